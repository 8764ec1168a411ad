package recycler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/critterbot/internal/closer"
	"github.com/alejandrodnm/critterbot/internal/discovery"
	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
)

const botIdentity = "bot-wallet"

// fakeWorld simula el ledger y el programa juntos: juegos, entropía siempre
// favorable, eventos por signature y fondeo. Implementa ports.Contract,
// ports.Ledger y ports.Funder.
type fakeWorld struct {
	mu sync.Mutex

	games      map[string]*domain.Game
	order      []string // orden de inserción para listados estables
	slot       uint64
	events     map[string][]domain.Event
	bets       map[string][]domain.Bet
	balance    uint64
	airdrops   []uint64
	created    []string
	claimed    []string
	sigs       int
	claimCalls int
	failGames  map[string]bool // juegos cuyo SubmitClose falla
	mismatch   bool
	// staleBetView hace que UserBets reporte las apuestas como no
	// reclamadas aunque ya lo estén, simulando una vista desactualizada.
	staleBetView bool
}

func newWorld(slot uint64) *fakeWorld {
	return &fakeWorld{
		games:     map[string]*domain.Game{},
		slot:      slot,
		events:    map[string][]domain.Event{},
		bets:      map[string][]domain.Bet{},
		balance:   5_000 * 1_000_000_000,
		failGames: map[string]bool{},
	}
}

// addGame registra un juego público totalmente suscripto.
func (w *fakeWorld) addGame(addr string, totalValue uint64) {
	g := &domain.Game{InitialSlot: 1000, DurationSlots: 750}
	per := totalValue / domain.NumberCount
	for i := range g.BetsPerNumber {
		g.BetsPerNumber[i] = per
	}
	g.BetsPerNumber[0] += totalValue % domain.NumberCount
	g.TotalValue = totalValue
	g.NumberOfBets = domain.NumberCount
	w.games[addr] = g
	w.order = append(w.order, addr)
}

// --- ports.Contract ---

func (w *fakeWorld) Games(context.Context, ports.GameFilters) ([]domain.GameAccount, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.GameAccount, 0, len(w.order))
	for _, addr := range w.order {
		out = append(out, domain.GameAccount{Address: addr, Game: *w.games[addr]})
	}
	return out, nil
}

func (w *fakeWorld) Game(_ context.Context, addr string) (domain.Game, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	g, ok := w.games[addr]
	if !ok {
		return domain.Game{}, fmt.Errorf("unknown game %s", addr)
	}
	return *g, nil
}

func (w *fakeWorld) CreateGame(_ context.Context, durationSlots uint64, _ []string) (string, string, error) {
	w.mu.Lock()
	addr := fmt.Sprintf("created-%d", len(w.created)+1)
	w.created = append(w.created, addr)
	sig := w.nextSig()
	w.mu.Unlock()

	w.addGameAt(addr, w.slot, durationSlots)
	return addr, sig, nil
}

func (w *fakeWorld) addGameAt(addr string, initialSlot, durationSlots uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.games[addr] = &domain.Game{InitialSlot: initialSlot, DurationSlots: durationSlots}
	w.order = append(w.order, addr)
}

func (w *fakeWorld) PlaceBet(context.Context, string, uint8, uint64) (string, error) {
	return "", errors.New("not used")
}

func (w *fakeWorld) SubmitClose(_ context.Context, req domain.CloseRequest) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failGames[req.Game] {
		return "", errors.New("simulated submit failure")
	}
	g := w.games[req.Game]
	if g.BettingPeriodEnded {
		return "", domain.ErrGameAlreadyClosed
	}

	drawn := req.Number
	if w.mismatch {
		drawn = req.Number%domain.NumberCount + 1
	}
	g.BettingPeriodEnded = true
	g.DrawnNumber = &drawn

	// la apuesta de cierre queda registrada a nombre del bot
	betAddr := fmt.Sprintf("%s-close-bet", req.Game)
	w.bets[req.Game] = append(w.bets[req.Game], domain.Bet{
		Address: betAddr,
		Game:    req.Game,
		Bettor:  botIdentity,
		Value:   req.Value,
		Number:  req.Number,
	})

	sig := w.nextSig()
	w.events[sig] = []domain.Event{{
		Kind:        domain.EventBettingPeriodEnded,
		Game:        req.Game,
		Closer:      botIdentity,
		DrawnNumber: drawn,
		Reward:      1_000_000,
	}}
	return sig, nil
}

func (w *fakeWorld) ClaimPrize(_ context.Context, game, bet string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.claimCalls++
	for i := range w.bets[game] {
		if w.bets[game][i].Address != bet {
			continue
		}
		if w.bets[game][i].PrizeClaimed {
			return "", domain.ErrPrizeAlreadyClaimed
		}
		w.bets[game][i].PrizeClaimed = true
		w.claimed = append(w.claimed, bet)
		return w.nextSig(), nil
	}
	return "", domain.ErrNoPrize
}

func (w *fakeWorld) UserBets(_ context.Context, game, bettor string) ([]domain.Bet, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []domain.Bet
	for _, b := range w.bets[game] {
		if b.Bettor == bettor {
			if w.staleBetView {
				b.PrizeClaimed = false
			}
			out = append(out, b)
		}
	}
	return out, nil
}

func (w *fakeWorld) DrawnNumber(context.Context, string) (uint8, error) { return 0, nil }
func (w *fakeWorld) Prize(context.Context, string, string) (uint64, error) {
	return 0, nil
}
func (w *fakeWorld) IsBettingPeriodEnded(context.Context, string) (bool, error) {
	return false, nil
}

// nextSig requiere el lock tomado.
func (w *fakeWorld) nextSig() string {
	w.sigs++
	return fmt.Sprintf("sig-%d", w.sigs)
}

// --- ports.Ledger ---

func (w *fakeWorld) LatestEntropy(context.Context) (domain.EntropySample, error) {
	var s domain.EntropySample
	s.Slot = w.slot
	s.Blockhash[31] = 0x55 // siempre favorable
	return s, nil
}

func (w *fakeWorld) BlockHeight(context.Context) (uint64, error) {
	return w.slot, nil
}

func (w *fakeWorld) TransactionEvents(_ context.Context, sig string) ([]domain.Event, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.events[sig], nil
}

// --- ports.Funder ---

func (w *fakeWorld) Balance(context.Context, string) (uint64, error) {
	return w.balance, nil
}

func (w *fakeWorld) Airdrop(_ context.Context, _ string, lamports uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.airdrops = append(w.airdrops, lamports)
	w.balance += lamports
	return nil
}

// fakeStore registra lo persistido en memoria.
type fakeStore struct {
	mu       sync.Mutex
	attempts []ports.AttemptRecord
	games    []string
}

func (s *fakeStore) SaveAttempt(_ context.Context, rec ports.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, rec)
	return nil
}

func (s *fakeStore) SaveGameCreated(_ context.Context, game, _ string, _ uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = append(s.games, game)
	return nil
}

func (s *fakeStore) History(context.Context, time.Time, time.Time) ([]ports.AttemptRecord, error) {
	return nil, nil
}

func (s *fakeStore) Stats(context.Context) (ports.AttemptStats, error) {
	return ports.AttemptStats{}, nil
}

func (s *fakeStore) Close() error { return nil }

func newOrchestrator(w *fakeWorld, store ports.AttemptStore, cfg Config) *Orchestrator {
	closerCfg := closer.DefaultConfig()
	closerCfg.PollInterval = time.Millisecond
	closerCfg.Identity = botIdentity
	controller := closer.New(closerCfg, w, w)
	finder := discovery.New(w, w)
	return New(cfg, finder, controller, w, w, w, store, nil, botIdentity)
}

func onceConfig() Config {
	cfg := DefaultConfig()
	cfg.Once = true
	return cfg
}

func TestRun_ClosesGamesAndReopens(t *testing.T) {
	w := newWorld(1800)
	w.addGame("game-1", 25_000_000)
	store := &fakeStore{}

	o := newOrchestrator(w, store, onceConfig())
	require.NoError(t, o.Run(context.Background()))

	// el juego quedó cerrado
	g, err := w.Game(context.Background(), "game-1")
	require.NoError(t, err)
	assert.True(t, g.BettingPeriodEnded)
	require.NotNil(t, g.DrawnNumber)

	// y al no quedar juegos abiertos se creó uno nuevo
	require.Len(t, w.created, 1)
	assert.Equal(t, []string{"created-1"}, store.games)

	require.Len(t, store.attempts, 1)
	assert.Equal(t, domain.OutcomeWon, store.attempts[0].Outcome)
	assert.Equal(t, "game-1", store.attempts[0].Game)
	assert.NotEmpty(t, store.attempts[0].ID)
}

func TestRun_ClosesRicherGamesFirst(t *testing.T) {
	w := newWorld(1800)
	w.addGame("poor", 25_000_000)
	w.addGame("rich", 100_000_000)
	store := &fakeStore{}

	o := newOrchestrator(w, store, onceConfig())
	require.NoError(t, o.Run(context.Background()))

	require.Len(t, store.attempts, 2)
	assert.Equal(t, "rich", store.attempts[0].Game)
	assert.Equal(t, "poor", store.attempts[1].Game)
}

func TestRun_NoCloseableGamesLeavesOpenGameAlone(t *testing.T) {
	w := newWorld(1700) // antes del min ending slot: abierto pero no cerrable
	w.addGame("game-1", 25_000_000)
	store := &fakeStore{}

	o := newOrchestrator(w, store, onceConfig())
	require.NoError(t, o.Run(context.Background()))

	assert.Empty(t, store.attempts)
	assert.Empty(t, w.created, "ya hay un juego abierto")
}

func TestRun_FailedGameDoesNotAbortCycle(t *testing.T) {
	w := newWorld(1800)
	w.addGame("broken", 100_000_000)
	w.addGame("ok", 25_000_000)
	w.failGames["broken"] = true
	store := &fakeStore{}

	o := newOrchestrator(w, store, onceConfig())
	require.NoError(t, o.Run(context.Background()))

	require.Len(t, store.attempts, 2)
	assert.Equal(t, domain.OutcomeFailed, store.attempts[0].Outcome)
	assert.Equal(t, domain.OutcomeWon, store.attempts[1].Outcome)

	g, _ := w.Game(context.Background(), "ok")
	assert.True(t, g.BettingPeriodEnded, "el juego sano se cierra igual")
}

func TestRun_DerivationMismatchIsFatal(t *testing.T) {
	w := newWorld(1800)
	w.addGame("game-1", 25_000_000)
	w.mismatch = true

	o := newOrchestrator(w, &fakeStore{}, onceConfig())
	err := o.Run(context.Background())
	assert.ErrorIs(t, err, domain.ErrDerivationMismatch)
}

func TestRun_ClaimsOwnWinningBet(t *testing.T) {
	w := newWorld(1800)
	w.addGame("game-1", 25_000_000)

	cfg := onceConfig()
	cfg.ClaimPrizes = true
	o := newOrchestrator(w, &fakeStore{}, cfg)
	require.NoError(t, o.Run(context.Background()))

	// la apuesta de cierre ganó y se reclamó exactamente una vez
	assert.Equal(t, []string{"game-1-close-bet"}, w.claimed)
}

func TestRun_RepeatedClaimSweepClaimsOnce(t *testing.T) {
	w := newWorld(1800)
	w.addGame("game-1", 25_000_000)

	cfg := onceConfig()
	cfg.ClaimPrizes = true
	o := newOrchestrator(w, &fakeStore{}, cfg)
	require.NoError(t, o.Run(context.Background()))
	require.Equal(t, []string{"game-1-close-bet"}, w.claimed)

	// un segundo barrido sobre una vista desactualizada reintenta el
	// claim; el programa responde que ya fue reclamado y no pasa nada
	w.staleBetView = true
	g, err := w.Game(context.Background(), "game-1")
	require.NoError(t, err)
	require.NotNil(t, g.DrawnNumber)

	o.claimWinnings(context.Background(), "game-1", *g.DrawnNumber)

	assert.Equal(t, 2, w.claimCalls, "el segundo barrido sí intenta reclamar")
	assert.Equal(t, []string{"game-1-close-bet"}, w.claimed, "el premio se paga una sola vez")
}

func TestRun_MisconfiguredTopUpClampsToMinimum(t *testing.T) {
	w := newWorld(1800)
	w.addGame("game-1", 25_000_000)
	w.balance = 3_000_000_000

	// top-up menor que el balance actual: la resta directa desbordaría
	// y pediría un airdrop de ~2^64 lamports
	cfg := onceConfig()
	cfg.MinBalance = 5_000_000_000
	cfg.TopUpAmount = 2_000_000_000
	o := newOrchestrator(w, &fakeStore{}, cfg)
	require.NoError(t, o.Run(context.Background()))

	require.Len(t, w.airdrops, 1)
	assert.Equal(t, uint64(2_000_000_000), w.airdrops[0], "sube hasta el mínimo, sin underflow")
}

func TestRun_TopsUpWhenBalanceLow(t *testing.T) {
	w := newWorld(1800)
	w.addGame("game-1", 25_000_000)
	w.balance = 300_000_000 // bajo el mínimo de 1 SOL

	cfg := onceConfig()
	cfg.MinBalance = 1_000_000_000
	cfg.TopUpAmount = 2_000_000_000
	o := newOrchestrator(w, &fakeStore{}, cfg)
	require.NoError(t, o.Run(context.Background()))

	require.Len(t, w.airdrops, 1)
	assert.Equal(t, uint64(1_700_000_000), w.airdrops[0], "pide la diferencia hasta el top-up")
}

func TestRun_SufficientBalanceSkipsAirdrop(t *testing.T) {
	w := newWorld(1800)
	w.addGame("game-1", 25_000_000)

	o := newOrchestrator(w, &fakeStore{}, onceConfig())
	require.NoError(t, o.Run(context.Background()))
	assert.Empty(t, w.airdrops)
}
