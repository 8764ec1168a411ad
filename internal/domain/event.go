package domain

// EventKind identifica un evento emitido por el programa de settlement.
type EventKind string

const (
	EventGameCreated        EventKind = "gameCreated"
	EventBetPlaced          EventKind = "betPlaced"
	EventBettingPeriodEnded EventKind = "endOfBettingPeriod"
	EventPrizeClaimed       EventKind = "prizeClaimed"
	EventGameEnded          EventKind = "gameEnded"
)

// Event es un evento del programa parseado de los logs de una transacción
// confirmada. Los campos que no aplican al kind quedan en cero.
type Event struct {
	Kind        EventKind `json:"event"`
	Game        string    `json:"game"`
	Creator     string    `json:"creator,omitempty"`
	Bettor      string    `json:"bettor,omitempty"`
	Closer      string    `json:"closer,omitempty"`
	Bet         string    `json:"bet,omitempty"`
	Number      uint8     `json:"number,omitempty"`
	Value       uint64    `json:"value,omitempty"`
	Reward      uint64    `json:"reward,omitempty"`
	DrawnNumber uint8     `json:"drawnNumber,omitempty"`
	PrizeValue  uint64    `json:"prizeValue,omitempty"`
	Timestamp   int64     `json:"timestamp,omitempty"`
}
