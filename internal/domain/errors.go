package domain

import "errors"

// Errores sentinela del dominio. Perder la carrera, quedarse sin juegos o
// reclamar sin premio son resultados esperados del loop: se loguean bajo y
// el ciclo continúa.
var (
	// ErrNoCloseableGames indica que el filtro de discovery no encontró juegos.
	ErrNoCloseableGames = errors.New("no closeable games found")

	// ErrGameAlreadyClosed indica que el juego ya tiene el período cerrado.
	ErrGameAlreadyClosed = errors.New("betting period already ended")

	// ErrNoPrize indica que la apuesta no tiene premio pagable.
	ErrNoPrize = errors.New("no prize for this bet")

	// ErrPrizeAlreadyClaimed indica un segundo intento de claim sobre la
	// misma apuesta.
	ErrPrizeAlreadyClaimed = errors.New("prize already claimed")

	// ErrTxExpired indica que la transacción venció su ventana de validez
	// (el height avanzó más allá del ancla) sin confirmarse.
	ErrTxExpired = errors.New("transaction expired past its validity window")

	// ErrDerivationMismatch indica que el número derivado localmente no
	// coincide con el confirmado por el programa para el mismo digest.
	// Es fatal: señala un desajuste de versión con el programa on-chain.
	ErrDerivationMismatch = errors.New("local draw derivation does not match confirmed on-chain number")
)
