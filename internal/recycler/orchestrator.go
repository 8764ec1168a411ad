package recycler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/critterbot/internal/closer"
	"github.com/alejandrodnm/critterbot/internal/discovery"
	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
)

// Config contiene la configuración del loop de reciclado.
type Config struct {
	// CycleInterval es la pausa entre iteraciones del loop.
	CycleInterval time.Duration
	// GameDurationSlots es la duración de los juegos que abre el recycler.
	GameDurationSlots uint64
	// MinBalance y TopUpAmount controlan el fondeo: si el balance cae por
	// debajo del mínimo se pide un airdrop hasta el top-up.
	MinBalance  uint64
	TopUpAmount uint64
	// ClaimPrizes activa el barrido de premios propios tras un cierre ganado.
	ClaimPrizes bool
	// Once ejecuta exactamente un ciclo y termina.
	Once bool
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		CycleInterval: 15 * time.Second,
		// ~5 minutos a 400ms por slot.
		GameDurationSlots: 750,
		MinBalance:        1_000 * 1_000_000_000,
		TopUpAmount:       2_000 * 1_000_000_000,
		ClaimPrizes:       true,
	}
}

// Orchestrator es el loop de ciclo de vida: descubre juegos cerrables, los
// cierra vía el race controller, y si no queda ningún juego público abierto,
// crea uno nuevo. No persiste estado entre iteraciones más allá de lo que
// guarda el ledger: el loop es stateless y re-arrancable en cualquier punto.
type Orchestrator struct {
	cfg        Config
	finder     *discovery.Finder
	controller *closer.Controller
	contract   ports.Contract
	ledger     ports.Ledger
	funder     ports.Funder
	store      ports.AttemptStore // opcional
	notifier   ports.Notifier     // opcional
	identity   string
}

// New crea un Orchestrator con todas las dependencias inyectadas.
// store y notifier pueden ser nil.
func New(
	cfg Config,
	finder *discovery.Finder,
	controller *closer.Controller,
	contract ports.Contract,
	ledger ports.Ledger,
	funder ports.Funder,
	store ports.AttemptStore,
	notifier ports.Notifier,
	identity string,
) *Orchestrator {
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = 15 * time.Second
	}
	return &Orchestrator{
		cfg:        cfg,
		finder:     finder,
		controller: controller,
		contract:   contract,
		ledger:     ledger,
		funder:     funder,
		store:      store,
		notifier:   notifier,
		identity:   identity,
	}
}

// Run ejecuta el loop hasta que el contexto se cancele. Solo los errores de
// lógica (desajuste de derivación, invariantes violadas) abortan el loop; los
// transitorios se aíslan por juego y por ciclo.
func (o *Orchestrator) Run(ctx context.Context) error {
	slog.Info("recycler starting",
		"interval", o.cfg.CycleInterval,
		"game_duration_slots", o.cfg.GameDurationSlots,
		"once", o.cfg.Once,
	)

	if err := o.runCycle(ctx); err != nil {
		return err
	}
	if o.cfg.Once {
		return nil
	}

	ticker := time.NewTicker(o.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("recycler stopped")
			return nil
		case <-ticker.C:
			if err := o.runCycle(ctx); err != nil {
				return err
			}
		}
	}
}

// runCycle ejecuta una iteración completa: fondeo → cierres → reapertura.
// Devuelve error solo ante fallas fatales de lógica.
func (o *Orchestrator) runCycle(ctx context.Context) error {
	start := time.Now()

	if err := o.ensureFunding(ctx); err != nil {
		// Transitorio: sin fondos este ciclo no puede enviar transacciones,
		// pero el siguiente puede reintentar.
		slog.Warn("recycler: funding check failed", "err", err)
		return nil
	}

	closed, err := o.closeGames(ctx)
	if err != nil {
		return err
	}

	if err := o.ensureOpenGame(ctx); err != nil {
		slog.Warn("recycler: open-game check failed", "err", err)
	}

	slog.Info("recycler cycle complete",
		"closed", closed,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

// closeGames cierra secuencialmente cada juego cerrable. La falla de un juego
// no aborta el resto del ciclo.
func (o *Orchestrator) closeGames(ctx context.Context) (int, error) {
	games, err := o.finder.FindGames(ctx, discovery.CloseableCriteria())
	if err != nil {
		slog.Warn("recycler: discovery failed", "err", err)
		return 0, nil
	}
	o.notifyCandidates(ctx, games)
	if len(games) == 0 {
		slog.Debug("recycler: no closeable games found")
		return 0, nil
	}

	slog.Info("recycler: closing games", "count", len(games))

	closed := 0
	for _, game := range games {
		if ctx.Err() != nil {
			return closed, nil
		}

		res := o.controller.Close(ctx, game)
		o.recordResult(ctx, res)

		switch res.Outcome {
		case domain.OutcomeWon:
			closed++
			if errors.Is(res.Err, domain.ErrDerivationMismatch) {
				// Desajuste con el programa on-chain: seguir cerrando juegos
				// con una derivación rota solo quema fondos.
				return closed, fmt.Errorf("recycler: %w (game %s)", res.Err, res.Game)
			}
			if o.cfg.ClaimPrizes {
				o.claimWinnings(ctx, res.Game, res.DrawnNumber)
			}
		case domain.OutcomeLostRace:
			closed++
		case domain.OutcomeExpired:
			slog.Info("recycler: close attempt expired, leaving game for next cycle", "game", res.Game)
		case domain.OutcomeFailed:
			// Aislado: un juego fallido no aborta el ciclo.
			slog.Warn("recycler: close attempt failed", "game", res.Game, "err", res.Err)
		}
	}
	return closed, nil
}

// notifyCandidates proyecta los juegos a candidatos y los presenta.
func (o *Orchestrator) notifyCandidates(ctx context.Context, games []domain.GameAccount) {
	if o.notifier == nil {
		return
	}
	currentSlot, err := o.ledger.BlockHeight(ctx)
	if err != nil {
		slog.Warn("recycler: block height for candidates failed", "err", err)
		return
	}
	candidates := make([]domain.ClosingCandidate, 0, len(games))
	for _, acc := range games {
		candidates = append(candidates, domain.NewClosingCandidate(acc, currentSlot))
	}
	if err := o.notifier.NotifyCandidates(ctx, candidates); err != nil {
		slog.Warn("recycler: notifier error", "err", err)
	}
}

// recordResult persiste y notifica el resultado de un intento.
func (o *Orchestrator) recordResult(ctx context.Context, res domain.CloseResult) {
	if o.notifier != nil {
		if err := o.notifier.NotifyResult(ctx, res); err != nil {
			slog.Warn("recycler: notifier error", "err", err)
		}
	}
	if o.store == nil {
		return
	}
	rec := ports.AttemptRecord{
		ID:              uuid.New().String(),
		Game:            res.Game,
		Outcome:         res.Outcome,
		Signature:       res.Signature,
		Reward:          res.Reward,
		DrawnNumber:     res.DrawnNumber,
		PredictedNumber: res.PredictedNumber,
		Slot:            res.Slot,
		Attempts:        res.Attempts,
		CreatedAt:       time.Now().UTC(),
	}
	if err := o.store.SaveAttempt(ctx, rec); err != nil {
		slog.Warn("recycler: storage error", "err", err)
	}
}

// claimWinnings barre las apuestas propias del juego y reclama las ganadoras.
func (o *Orchestrator) claimWinnings(ctx context.Context, game string, drawnNumber uint8) {
	bets, err := o.contract.UserBets(ctx, game, o.identity)
	if err != nil {
		slog.Warn("recycler: could not list own bets", "game", game, "err", err)
		return
	}
	for _, bet := range bets {
		if !bet.Wins(drawnNumber) || bet.PrizeClaimed {
			continue
		}
		sig, err := o.contract.ClaimPrize(ctx, game, bet.Address)
		switch {
		case errors.Is(err, domain.ErrNoPrize), errors.Is(err, domain.ErrPrizeAlreadyClaimed):
			slog.Debug("recycler: nothing to claim", "bet", bet.Address, "err", err)
		case err != nil:
			slog.Warn("recycler: claim failed", "bet", bet.Address, "err", err)
		default:
			slog.Info("recycler: prize claimed", "game", game, "bet", bet.Address, "signature", sig)
		}
	}
}

// ensureOpenGame crea un juego público nuevo si no queda ninguno abierto.
func (o *Orchestrator) ensureOpenGame(ctx context.Context) error {
	open, err := o.finder.FindGames(ctx, discovery.OpenPublicCriteria())
	if err != nil {
		return fmt.Errorf("recycler.ensureOpenGame: %w", err)
	}
	if len(open) > 0 {
		slog.Debug("recycler: public games found", "count", len(open))
		return nil
	}

	address, signature, err := o.contract.CreateGame(ctx, o.cfg.GameDurationSlots, nil)
	if err != nil {
		return fmt.Errorf("recycler.ensureOpenGame: create game: %w", err)
	}
	slog.Info("recycler: created new game",
		"game", address,
		"signature", signature,
		"duration_slots", o.cfg.GameDurationSlots,
	)

	if o.store != nil {
		if err := o.store.SaveGameCreated(ctx, address, signature, o.cfg.GameDurationSlots); err != nil {
			slog.Warn("recycler: storage error", "err", err)
		}
	}
	return nil
}

// ensureFunding pide un airdrop si el balance cayó bajo el mínimo.
func (o *Orchestrator) ensureFunding(ctx context.Context) error {
	if o.funder == nil || o.cfg.MinBalance == 0 {
		return nil
	}
	balance, err := o.funder.Balance(ctx, o.identity)
	if err != nil {
		return fmt.Errorf("recycler.ensureFunding: balance: %w", err)
	}
	if balance >= o.cfg.MinBalance {
		return nil
	}
	// El objetivo nunca baja del mínimo: un top-up mal configurado por
	// debajo del balance actual desbordaría la resta.
	target := o.cfg.TopUpAmount
	if target < o.cfg.MinBalance {
		target = o.cfg.MinBalance
	}
	top := target - balance
	slog.Info("recycler: requesting airdrop", "balance", balance, "lamports", top)
	if err := o.funder.Airdrop(ctx, o.identity, top); err != nil {
		return fmt.Errorf("recycler.ensureFunding: airdrop: %w", err)
	}
	return nil
}
