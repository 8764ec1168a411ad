package ports

import (
	"context"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// GameFilters son los criterios del pre-filtro indexado del ledger. El índice
// matchea por offset de bytes y puede devolver falsos positivos, así que todo
// predicado se re-verifica client-side en discovery.
type GameFilters struct {
	OnlyPublic         bool
	BettingPeriodEnded *bool // nil = no filtrar por este campo
}

// Contract es la superficie de instrucciones y vistas del programa de
// settlement. El programa es el único que muta el estado compartido, bajo su
// propia regla de exclusividad; acá nunca se asume coherencia de caché local.
type Contract interface {
	// Games devuelve las cuentas de juego que pasan el pre-filtro indexado.
	Games(ctx context.Context, filters GameFilters) ([]domain.GameAccount, error)

	// Game relee el estado actual de un juego.
	Game(ctx context.Context, address string) (domain.Game, error)

	// CreateGame abre un juego nuevo con la duración dada en slots.
	// participants vacío crea un juego público. Devuelve la dirección de la
	// cuenta creada y la signature de la transacción.
	CreateGame(ctx context.Context, durationSlots uint64, participants []string) (address, signature string, err error)

	// PlaceBet apuesta value lamports al número dado.
	PlaceBet(ctx context.Context, game string, number uint8, value uint64) (signature string, err error)

	// SubmitClose envía la transacción de cierre (apuesta en momento
	// favorable) con el ancla de validez y los reintentos del request.
	// Errores esperados: domain.ErrTxExpired si la ventana venció,
	// domain.ErrGameAlreadyClosed si otra transacción cerró primero.
	SubmitClose(ctx context.Context, req domain.CloseRequest) (signature string, err error)

	// ClaimPrize reclama el premio de una apuesta propia.
	// Errores esperados: domain.ErrNoPrize, domain.ErrPrizeAlreadyClaimed.
	ClaimPrize(ctx context.Context, game, bet string) (signature string, err error)

	// UserBets devuelve las apuestas del bettor en el juego dado.
	UserBets(ctx context.Context, game, bettor string) ([]domain.Bet, error)

	// DrawnNumber es la vista read-only del número sorteado.
	DrawnNumber(ctx context.Context, game string) (uint8, error)

	// Prize es la vista read-only del premio de una apuesta.
	Prize(ctx context.Context, game, bet string) (uint64, error)

	// IsBettingPeriodEnded es la vista read-only del estado del período.
	IsBettingPeriodEnded(ctx context.Context, game string) (bool, error)
}
