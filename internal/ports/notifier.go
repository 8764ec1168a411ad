package ports

import (
	"context"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// Notifier presenta el estado operacional al usuario.
type Notifier interface {
	// NotifyCandidates muestra los candidatos de cierre del ciclo, rankeados.
	NotifyCandidates(ctx context.Context, candidates []domain.ClosingCandidate) error

	// NotifyResult muestra el resultado de un intento de cierre.
	NotifyResult(ctx context.Context, result domain.CloseResult) error
}
