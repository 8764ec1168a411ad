package ports

import (
	"context"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// Ledger es el gateway de solo-lectura al ledger subyacente.
type Ledger interface {
	// LatestEntropy devuelve el blockhash más reciente y el slot observado.
	LatestEntropy(ctx context.Context) (domain.EntropySample, error)

	// BlockHeight devuelve el slot actual del ledger.
	BlockHeight(ctx context.Context) (uint64, error)

	// TransactionEvents devuelve los eventos del programa emitidos por una
	// transacción confirmada, parseados de sus logs.
	TransactionEvents(ctx context.Context, signature string) ([]domain.Event, error)
}

// Funder maneja el fondeo de la wallet del bot en redes de prueba.
type Funder interface {
	// Balance devuelve el balance en lamports de la dirección.
	Balance(ctx context.Context, address string) (uint64, error)

	// Airdrop solicita lamports para la dirección y espera la confirmación.
	Airdrop(ctx context.Context, address string, lamports uint64) error
}
