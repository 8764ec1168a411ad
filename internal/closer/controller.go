package closer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
)

// State is the controller's position in the close race.
type State int

const (
	StateIdle State = iota
	StateSampling
	StateSubmitting
	StateAwaitingConfirmation
)

// String implementa fmt.Stringer para logging.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSampling:
		return "sampling"
	case StateSubmitting:
		return "submitting"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	}
	return "unknown"
}

// Config tunes the race controller.
type Config struct {
	// PollInterval is the entropy sampling cadence. Default 200ms, matching
	// typical block cadence.
	PollInterval time.Duration
	// MaxSubmitRetries caps retries for transient submission failures only.
	// A retry never re-targets a different entropy sample.
	MaxSubmitRetries int
	// MaxCycles bounds how many favorable-sample cycles to run before giving
	// up on the game. 0 means keep racing until the context is cancelled.
	MaxCycles int
	// MaxTransientErrors is the consecutive ledger/contract error budget
	// before the controller gives up with OutcomeFailed.
	MaxTransientErrors int
	// BetValue is the stake attached to the closing bet, in lamports.
	BetValue uint64
	// Identity is our wallet address, used to attribute the close.
	Identity string
}

// DefaultConfig devuelve una configuración sensata para producción.
func DefaultConfig() Config {
	return Config{
		PollInterval:       200 * time.Millisecond,
		MaxSubmitRetries:   1,
		MaxCycles:          0,
		MaxTransientErrors: 5,
		BetValue:           domain.MinBetValue,
	}
}

// Controller races other independent agents to close a single game. The race
// itself is inherent to the domain: correctness only needs the program's
// exactly-once acceptance of the first valid close, plus this controller
// detecting and discarding its own loss.
type Controller struct {
	cfg      Config
	ledger   ports.Ledger
	contract ports.Contract
}

// New crea un Controller con las dependencias inyectadas.
func New(cfg Config, ledger ports.Ledger, contract ports.Contract) *Controller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.MaxTransientErrors <= 0 {
		cfg.MaxTransientErrors = 5
	}
	if cfg.BetValue == 0 {
		cfg.BetValue = domain.MinBetValue
	}
	return &Controller{cfg: cfg, ledger: ledger, contract: contract}
}

// Close runs the state machine for one game until a terminal outcome:
// Idle → Sampling → Submitting → AwaitingConfirmation → {Won, LostRace,
// Expired, Failed}. An expired validity window restarts the cycle from Idle;
// only an exhausted cycle budget reports OutcomeExpired.
//
// Every transport error is classified into one of the terminal outcomes;
// raw errors never cross this boundary.
func (c *Controller) Close(ctx context.Context, game domain.GameAccount) domain.CloseResult {
	res := domain.CloseResult{Game: game.Address}
	errStreak := 0

	for cycle := 0; c.cfg.MaxCycles == 0 || cycle < c.cfg.MaxCycles; cycle++ {
		if err := ctx.Err(); err != nil {
			return c.failed(res, fmt.Errorf("closer.Close: cancelled: %w", err))
		}

		// Idle: always re-read the shared game record before deciding. The
		// record is mutated exclusively by the program; a stale local copy
		// must never drive a submission.
		g, err := c.contract.Game(ctx, game.Address)
		if err != nil {
			if errStreak++; errStreak >= c.cfg.MaxTransientErrors {
				return c.failed(res, fmt.Errorf("closer.Close: read game: %w", err))
			}
			slog.Warn("closer: game read failed, will retry", "game", game.Address, "err", err)
			c.sleep(ctx)
			continue
		}
		if err := g.CheckInvariants(); err != nil {
			// Chain/program version mismatch. Surface loudly, never race on
			// top of a corrupted view.
			slog.Error("closer: game state violates invariants", "game", game.Address, "err", err)
			return c.failed(res, fmt.Errorf("closer.Close: %w", err))
		}
		if g.BettingPeriodEnded {
			return c.lostRace(res, g)
		}

		// Sampling.
		sample, err := c.ledger.LatestEntropy(ctx)
		if err != nil {
			if errStreak++; errStreak >= c.cfg.MaxTransientErrors {
				return c.failed(res, fmt.Errorf("closer.Close: sample entropy: %w", err))
			}
			slog.Warn("closer: entropy sample failed, will retry", "game", game.Address, "err", err)
			c.sleep(ctx)
			continue
		}
		errStreak = 0

		if !FavorableSample(sample.Blockhash[:]) {
			c.sleep(ctx)
			continue
		}

		predicted := domain.PredictNumber(g.CombinedHash, sample.Blockhash)
		slog.Info("closer: favorable sample observed",
			"state", StateSubmitting,
			"game", game.Address,
			"slot", sample.Slot,
			"blockhash", sample.Hex(),
			"predicted_number", predicted,
		)

		// Submitting: the sampled blockhash is the validity anchor and the
		// expiry is one slot past it, so a stale submission self-invalidates
		// instead of landing against a later entropy sample.
		req := domain.CloseRequest{
			Game:       game.Address,
			Number:     predicted,
			Value:      c.cfg.BetValue,
			Anchor:     sample,
			MaxRetries: c.cfg.MaxSubmitRetries,
		}
		res.Attempts++
		res.PredictedNumber = predicted
		res.Slot = sample.Slot

		sig, err := c.contract.SubmitClose(ctx, req)
		switch {
		case errors.Is(err, domain.ErrTxExpired):
			// Dropped attempt, not a fault. Restart from Idle.
			slog.Debug("closer: submission expired", "game", game.Address, "slot", sample.Slot)
			continue
		case errors.Is(err, domain.ErrGameAlreadyClosed):
			g, rerr := c.contract.Game(ctx, game.Address)
			if rerr != nil {
				return c.failed(res, fmt.Errorf("closer.Close: read game after race loss: %w", rerr))
			}
			return c.lostRace(res, g)
		case err != nil:
			return c.failed(res, fmt.Errorf("closer.Close: submit: %w", err))
		}

		// AwaitingConfirmation: the submission landed; read back what the
		// program actually did with it.
		res.Signature = sig
		outcome, done := c.confirm(ctx, &res, sample, sig)
		if done {
			return outcome
		}
		// Confirmed but the program treated it as a plain bet (the entropy
		// it observed was not favorable). Back to Idle.
	}

	slog.Info("closer: cycle budget exhausted",
		"game", game.Address,
		"outcome", domain.OutcomeExpired,
		"attempts", res.Attempts,
	)
	res.Outcome = domain.OutcomeExpired
	return res
}

// confirm classifies a confirmed submission. done=false means the tx landed
// without closing the game and the race should continue.
func (c *Controller) confirm(ctx context.Context, res *domain.CloseResult, sample domain.EntropySample, sig string) (domain.CloseResult, bool) {
	events, err := c.ledger.TransactionEvents(ctx, sig)
	if err != nil {
		return c.failed(*res, fmt.Errorf("closer.confirm: read tx events %s: %w", sig, err)), true
	}

	for _, ev := range events {
		if ev.Kind != domain.EventBettingPeriodEnded {
			continue
		}
		if ev.Closer != c.cfg.Identity {
			// Our tx confirmed, but a competing close landed first in the
			// same window. Expected, non-error outcome.
			res.Outcome = domain.OutcomeLostRace
			res.Closer = ev.Closer
			res.DrawnNumber = ev.DrawnNumber
			slog.Info("closer: lost the race",
				"game", res.Game, "closer", ev.Closer, "drawn_number", ev.DrawnNumber)
			return *res, true
		}

		res.Outcome = domain.OutcomeWon
		res.Closer = ev.Closer
		res.Reward = ev.Reward
		res.DrawnNumber = ev.DrawnNumber

		if ev.DrawnNumber != res.PredictedNumber {
			// The program derived a different number from the digest we
			// predicted against. This is a logic-level mismatch, not noise.
			slog.Error("closer: DERIVATION MISMATCH",
				"game", res.Game,
				"predicted", res.PredictedNumber,
				"confirmed", ev.DrawnNumber,
				"blockhash", sample.Hex(),
			)
			res.Err = domain.ErrDerivationMismatch
		} else {
			slog.Info("closer: won the race",
				"game", res.Game,
				"signature", sig,
				"drawn_number", ev.DrawnNumber,
				"reward", ev.Reward,
			)
		}
		return *res, true
	}

	slog.Debug("closer: submission confirmed without closing", "game", res.Game, "signature", sig)
	return *res, false
}

// lostRace arma el resultado para un juego que ya fue cerrado por otro.
func (c *Controller) lostRace(res domain.CloseResult, g domain.Game) domain.CloseResult {
	res.Outcome = domain.OutcomeLostRace
	if g.DrawnNumber != nil {
		res.DrawnNumber = *g.DrawnNumber
	}
	slog.Info("closer: game already closed", "game", res.Game, "drawn_number", res.DrawnNumber)
	return res
}

// failed clasifica un error no recuperable. El error ya viene envuelto.
func (c *Controller) failed(res domain.CloseResult, err error) domain.CloseResult {
	res.Outcome = domain.OutcomeFailed
	res.Err = err
	return res
}

// sleep espera un tick de poll respetando el contexto.
func (c *Controller) sleep(ctx context.Context) {
	select {
	case <-time.After(c.cfg.PollInterval):
	case <-ctx.Done():
	}
}
