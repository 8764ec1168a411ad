package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func record(outcome domain.CloseOutcome, reward uint64, at time.Time) ports.AttemptRecord {
	return ports.AttemptRecord{
		ID:              uuid.New().String(),
		Game:            "game-1",
		Outcome:         outcome,
		Signature:       "sig-abc",
		Reward:          reward,
		DrawnNumber:     7,
		PredictedNumber: 7,
		Slot:            1800,
		Attempts:        1,
		CreatedAt:       at,
	}
}

func TestSQLiteStore_SaveAndHistory(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	older := record(domain.OutcomeLostRace, 0, now.Add(-time.Hour))
	newer := record(domain.OutcomeWon, 1_000_000, now)
	require.NoError(t, store.SaveAttempt(ctx, older))
	require.NoError(t, store.SaveAttempt(ctx, newer))

	recs, err := store.History(ctx, now.Add(-24*time.Hour), now.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	// más recientes primero
	assert.Equal(t, newer.ID, recs[0].ID)
	assert.Equal(t, domain.OutcomeWon, recs[0].Outcome)
	assert.Equal(t, uint64(1_000_000), recs[0].Reward)
	assert.Equal(t, uint8(7), recs[0].DrawnNumber)
	assert.Equal(t, older.ID, recs[1].ID)
}

func TestSQLiteStore_HistoryRange(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.SaveAttempt(ctx, record(domain.OutcomeWon, 1, now.Add(-48*time.Hour))))
	require.NoError(t, store.SaveAttempt(ctx, record(domain.OutcomeWon, 2, now)))

	recs, err := store.History(ctx, now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, uint64(2), recs[0].Reward)
}

func TestSQLiteStore_Stats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.SaveAttempt(ctx, record(domain.OutcomeWon, 24_000_000, now)))
	require.NoError(t, store.SaveAttempt(ctx, record(domain.OutcomeWon, 1_000_000, now)))
	require.NoError(t, store.SaveAttempt(ctx, record(domain.OutcomeLostRace, 0, now)))
	require.NoError(t, store.SaveAttempt(ctx, record(domain.OutcomeExpired, 0, now)))
	require.NoError(t, store.SaveAttempt(ctx, record(domain.OutcomeFailed, 0, now)))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 2, stats.Won)
	assert.Equal(t, 1, stats.LostRace)
	assert.Equal(t, 1, stats.Expired)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, uint64(25_000_000), stats.TotalReward)
}

func TestSQLiteStore_StatsEmpty(t *testing.T) {
	store := newTestStore(t)

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.TotalReward)
}

func TestSQLiteStore_SaveGameCreatedIdempotent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveGameCreated(ctx, "game-1", "sig-1", 750))
	// un segundo insert del mismo juego no es un error
	require.NoError(t, store.SaveGameCreated(ctx, "game-1", "sig-1", 750))
}
