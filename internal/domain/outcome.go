package domain

// CloseOutcome es el resultado terminal de un intento de cierre. Perder la
// carrera o expirar son resultados esperados del dominio, no errores.
type CloseOutcome int

const (
	// OutcomeWon: nuestra transacción cerró el juego y cobró la recompensa.
	OutcomeWon CloseOutcome = iota
	// OutcomeLostRace: el juego se cerró, pero lo cerró otro agente.
	OutcomeLostRace
	// OutcomeExpired: la ventana de validez venció sin confirmación.
	OutcomeExpired
	// OutcomeFailed: error de submission/confirmación no clasificable.
	OutcomeFailed
)

// String implementa fmt.Stringer para logging.
func (o CloseOutcome) String() string {
	switch o {
	case OutcomeWon:
		return "won"
	case OutcomeLostRace:
		return "lost_race"
	case OutcomeExpired:
		return "expired"
	case OutcomeFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal devuelve true si el outcome no admite reintento dentro del mismo
// juego (ganamos o el juego ya está cerrado por otro).
func (o CloseOutcome) Terminal() bool {
	return o == OutcomeWon || o == OutcomeLostRace
}

// CloseRequest describe una submission de cierre: una apuesta al número
// predicho, anclada a la muestra de entropía que la motivó. El ancla fija la
// ventana de validez (un slot más allá del sample): si la transacción no
// aterriza contra ese blockhash, se auto-invalida en vez de aterrizar contra
// una entropía posterior no buscada.
type CloseRequest struct {
	Game       string
	Number     uint8
	Value      uint64
	Anchor     EntropySample
	MaxRetries int // reintentos de submission transitoria, nunca re-sampling
}

// CloseResult es el informe completo de un intento de cierre.
type CloseResult struct {
	Outcome         CloseOutcome
	Game            string
	Signature       string
	Closer          string
	Reward          uint64
	DrawnNumber     uint8 // confirmado por el programa, 0 si no aplica
	PredictedNumber uint8 // derivación local al momento del sample
	Slot            uint64
	Attempts        int
	Err             error // solo para OutcomeFailed
}
