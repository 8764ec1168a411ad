package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// AttemptRecord es la fila persistida por cada intento de cierre resuelto.
type AttemptRecord struct {
	ID              string // uuid asignado por el orchestrator
	Game            string
	Outcome         domain.CloseOutcome
	Signature       string
	Reward          uint64
	DrawnNumber     uint8
	PredictedNumber uint8
	Slot            uint64
	Attempts        int
	CreatedAt       time.Time
}

// AttemptStats agrega los contadores históricos de intentos.
type AttemptStats struct {
	Total       int
	Won         int
	LostRace    int
	Expired     int
	Failed      int
	TotalReward uint64
}

// AttemptStore persiste el historial operacional del bot. El estado del juego
// vive en el ledger; esto es solo memoria propia para métricas y debugging.
type AttemptStore interface {
	// SaveAttempt persiste el resultado de un intento de cierre.
	SaveAttempt(ctx context.Context, rec AttemptRecord) error

	// SaveGameCreated registra un juego abierto por el recycler.
	SaveGameCreated(ctx context.Context, game, signature string, durationSlots uint64) error

	// History devuelve los intentos en el rango dado, más recientes primero.
	History(ctx context.Context, from, to time.Time) ([]AttemptRecord, error)

	// Stats devuelve los contadores agregados.
	Stats(ctx context.Context) (AttemptStats, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
