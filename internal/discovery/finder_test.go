package discovery

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
)

type fakeContract struct {
	ports.Contract

	games   []domain.GameAccount
	listErr error
}

func (f *fakeContract) Games(context.Context, ports.GameFilters) ([]domain.GameAccount, error) {
	return f.games, f.listErr
}

type fakeLedger struct {
	ports.Ledger

	slot uint64
}

func (f *fakeLedger) BlockHeight(context.Context) (uint64, error) {
	return f.slot, nil
}

// game arma un juego público totalmente suscripto con el pool dado.
func game(addr string, totalValue uint64) domain.GameAccount {
	g := domain.Game{InitialSlot: 1000, DurationSlots: 750}
	per := totalValue / domain.NumberCount
	for i := range g.BetsPerNumber {
		g.BetsPerNumber[i] = per
	}
	g.BetsPerNumber[0] += totalValue % domain.NumberCount
	g.TotalValue = totalValue
	g.NumberOfBets = domain.NumberCount
	return domain.GameAccount{Address: addr, Game: g}
}

func TestFindGames_RanksByTotalValueDesc(t *testing.T) {
	contract := &fakeContract{games: []domain.GameAccount{
		game("small", 25_000_000),
		game("big", 100_000_000),
		game("mid", 50_000_000),
	}}
	f := New(contract, &fakeLedger{slot: 1800})

	got, err := f.FindGames(context.Background(), CloseableCriteria())
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "big", got[0].Address)
	assert.Equal(t, "mid", got[1].Address)
	assert.Equal(t, "small", got[2].Address)
}

func TestFindGames_RechecksIndexedPredicates(t *testing.T) {
	// el índice puede devolver falsos positivos: un juego privado y uno ya
	// cerrado llegan igual en la lista cruda y se descartan client-side
	private := game("private", 30_000_000)
	private.Game.Participants = []string{"aa"}

	closed := game("closed", 40_000_000)
	n := uint8(5)
	closed.Game.BettingPeriodEnded = true
	closed.Game.DrawnNumber = &n

	contract := &fakeContract{games: []domain.GameAccount{
		private,
		closed,
		game("ok", 25_000_000),
	}}
	f := New(contract, &fakeLedger{slot: 1800})

	got, err := f.FindGames(context.Background(), CloseableCriteria())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Address)
}

func TestFindGames_FiltersNotYetCloseable(t *testing.T) {
	contract := &fakeContract{games: []domain.GameAccount{game("early", 25_000_000)}}
	f := New(contract, &fakeLedger{slot: 1700}) // antes del min ending slot 1750

	got, err := f.FindGames(context.Background(), CloseableCriteria())
	require.NoError(t, err)
	assert.Empty(t, got)

	// con criterios de recycler (sin exigir slot) sí aparece
	got, err = f.FindGames(context.Background(), OpenPublicCriteria())
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestFindGames_FiltersPartiallySubscribed(t *testing.T) {
	partial := game("partial", 24_000_000)
	partial.Game.BetsPerNumber[7] = 0

	contract := &fakeContract{games: []domain.GameAccount{partial}}
	f := New(contract, &fakeLedger{slot: 1800})

	got, err := f.FindGames(context.Background(), CloseableCriteria())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestFindGames_SkipsCorruptedAccounts(t *testing.T) {
	bad := game("bad", 30_000_000)
	bad.Game.TotalValue += 1 // viola la invariante de conservación

	contract := &fakeContract{games: []domain.GameAccount{
		bad,
		game("ok", 25_000_000),
	}}
	f := New(contract, &fakeLedger{slot: 1800})

	got, err := f.FindGames(context.Background(), CloseableCriteria())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Address)
}

func TestFindGames_ListError(t *testing.T) {
	contract := &fakeContract{listErr: errors.New("node down")}
	f := New(contract, &fakeLedger{slot: 1800})

	_, err := f.FindGames(context.Background(), CloseableCriteria())
	assert.ErrorContains(t, err, "node down")
}

func TestFindRichest_Empty(t *testing.T) {
	f := New(&fakeContract{}, &fakeLedger{slot: 1800})

	_, err := f.FindRichest(context.Background(), CloseableCriteria())
	assert.ErrorIs(t, err, domain.ErrNoCloseableGames)
}

func TestFindRichest_PicksBiggestPool(t *testing.T) {
	contract := &fakeContract{games: []domain.GameAccount{
		game("small", 25_000_000),
		game("big", 100_000_000),
	}}
	f := New(contract, &fakeLedger{slot: 1800})

	got, err := f.FindRichest(context.Background(), CloseableCriteria())
	require.NoError(t, err)
	assert.Equal(t, "big", got.Address)
}

func TestCandidates_ProjectsEphemeralView(t *testing.T) {
	contract := &fakeContract{games: []domain.GameAccount{game("g1", 25_000_000)}}
	f := New(contract, &fakeLedger{slot: 1800})

	cands, err := f.Candidates(context.Background(), CloseableCriteria())
	require.NoError(t, err)
	require.Len(t, cands, 1)
	assert.Equal(t, "g1", cands[0].GameID)
	assert.Equal(t, uint64(1800), cands[0].SlotAtDiscovery)
	assert.True(t, cands[0].Eligible)
}
