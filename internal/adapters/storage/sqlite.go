package storage

// sqlite.go: historial operacional del bot.
//
// El estado de los juegos vive en el ledger y nunca se cachea acá; esto es
// memoria propia: qué intentos de cierre se hicieron, cómo terminaron y qué
// juegos abrió el recycler. Sirve para métricas y debugging post-mortem.

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
)

const schema = `
-- Un intento de cierre resuelto por fila
CREATE TABLE IF NOT EXISTS close_attempts (
    id               TEXT PRIMARY KEY,
    game             TEXT    NOT NULL,
    outcome          TEXT    NOT NULL,
    signature        TEXT,
    reward           INTEGER NOT NULL DEFAULT 0,
    drawn_number     INTEGER NOT NULL DEFAULT 0,
    predicted_number INTEGER NOT NULL DEFAULT 0,
    slot             INTEGER NOT NULL DEFAULT 0,
    attempts         INTEGER NOT NULL DEFAULT 0,
    created_at       DATETIME NOT NULL
);

-- Juegos abiertos por el recycler
CREATE TABLE IF NOT EXISTS games_created (
    game           TEXT PRIMARY KEY,
    signature      TEXT    NOT NULL,
    duration_slots INTEGER NOT NULL,
    created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_attempts_at      ON close_attempts(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_attempts_game    ON close_attempts(game);
CREATE INDEX IF NOT EXISTS idx_attempts_outcome ON close_attempts(outcome);
`

// retentionAttempts: los intentos viejos no aportan señal, se podan al abrir.
const retentionAttempts = 30 * 24 * time.Hour

// SQLiteStore implementa ports.AttemptStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada, aplica el
// schema y poda los intentos viejos.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}

	s := &SQLiteStore{db: db}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveAttempt persiste el resultado de un intento de cierre.
func (s *SQLiteStore) SaveAttempt(ctx context.Context, rec ports.AttemptRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO close_attempts
			(id, game, outcome, signature, reward, drawn_number, predicted_number, slot, attempts, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Game, rec.Outcome.String(), rec.Signature, rec.Reward,
		rec.DrawnNumber, rec.PredictedNumber, rec.Slot, rec.Attempts, rec.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveAttempt: %w", err)
	}
	return nil
}

// SaveGameCreated registra un juego abierto por el recycler.
func (s *SQLiteStore) SaveGameCreated(ctx context.Context, game, signature string, durationSlots uint64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games_created (game, signature, duration_slots, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game) DO NOTHING`,
		game, signature, durationSlots, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("storage.SaveGameCreated: %w", err)
	}
	return nil
}

// History devuelve los intentos en el rango dado, más recientes primero.
func (s *SQLiteStore) History(ctx context.Context, from, to time.Time) ([]ports.AttemptRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, game, outcome, signature, reward, drawn_number, predicted_number, slot, attempts, created_at
		FROM close_attempts
		WHERE created_at BETWEEN ? AND ?
		ORDER BY created_at DESC`,
		from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.History: %w", err)
	}
	defer rows.Close()

	var records []ports.AttemptRecord
	for rows.Next() {
		var rec ports.AttemptRecord
		var outcome string
		if err := rows.Scan(
			&rec.ID, &rec.Game, &outcome, &rec.Signature, &rec.Reward,
			&rec.DrawnNumber, &rec.PredictedNumber, &rec.Slot, &rec.Attempts, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.History: scan: %w", err)
		}
		rec.Outcome = parseOutcome(outcome)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Stats devuelve los contadores agregados de intentos.
func (s *SQLiteStore) Stats(ctx context.Context) (ports.AttemptStats, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT outcome, COUNT(*), COALESCE(SUM(reward), 0)
		FROM close_attempts
		GROUP BY outcome`,
	)
	if err != nil {
		return ports.AttemptStats{}, fmt.Errorf("storage.Stats: %w", err)
	}
	defer rows.Close()

	var stats ports.AttemptStats
	for rows.Next() {
		var outcome string
		var count int
		var reward uint64
		if err := rows.Scan(&outcome, &count, &reward); err != nil {
			return ports.AttemptStats{}, fmt.Errorf("storage.Stats: scan: %w", err)
		}
		stats.Total += count
		switch outcome {
		case "won":
			stats.Won = count
			stats.TotalReward += reward
		case "lost_race":
			stats.LostRace = count
		case "expired":
			stats.Expired = count
		case "failed":
			stats.Failed = count
		}
	}
	return stats, rows.Err()
}

// Close cierra la conexión a la base de datos limpiamente.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// pruneOld borra intentos más viejos que la retención. Best-effort.
func (s *SQLiteStore) pruneOld(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-retentionAttempts)
	s.db.ExecContext(ctx, `DELETE FROM close_attempts WHERE created_at < ?`, cutoff)
}

// parseOutcome es el inverso de CloseOutcome.String para filas persistidas.
func parseOutcome(s string) domain.CloseOutcome {
	switch s {
	case "won":
		return domain.OutcomeWon
	case "lost_race":
		return domain.OutcomeLostRace
	case "expired":
		return domain.OutcomeExpired
	default:
		return domain.OutcomeFailed
	}
}
