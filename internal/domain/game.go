package domain

import (
	"encoding/hex"
	"fmt"
)

const (
	// NumberCount es la cantidad de números apostables (1..25).
	NumberCount = 25

	// MinBetValue es el valor mínimo de apuesta que acepta el programa
	// (0.001 SOL en lamports).
	MinBetValue uint64 = 1_000_000
)

// EntropySample es una muestra de entropía del ledger: el blockhash más
// reciente y el slot en el que fue observado. El blockhash sirve a la vez
// como fuente de azar y como ancla de validez de la transacción que lo usa.
type EntropySample struct {
	Blockhash [32]byte
	Slot      uint64
}

// Hex devuelve el blockhash en hexadecimal.
func (s EntropySample) Hex() string {
	return hex.EncodeToString(s.Blockhash[:])
}

// Game es el estado on-chain de un juego. Es propiedad del programa de
// settlement: acá solo se lee, nunca se cachea entre decisiones.
type Game struct {
	Creator       string
	Participants  []string // vacío ⇒ juego público
	TotalValue    uint64   // suma de todas las apuestas, en lamports
	InitialSlot   uint64
	DurationSlots uint64
	LastBlockhash [32]byte
	CombinedHash  [32]byte // digest acumulado de todas las apuestas
	BetsPerNumber [NumberCount]uint64

	// BettingPeriodEnded y DrawnNumber se fijan juntos, exactamente una vez,
	// por la primera transacción de cierre confirmada. DrawnNumber es nil
	// sii BettingPeriodEnded es false.
	BettingPeriodEnded bool
	DrawnNumber        *uint8

	NumberOfBets           uint64
	ValueProvidedToWinners uint64
}

// GameAccount es un Game junto con la dirección de su cuenta.
type GameAccount struct {
	Address string
	Game    Game
}

// IsPublic devuelve true si el juego no tiene allow-list de participantes.
func (g Game) IsPublic() bool {
	return len(g.Participants) == 0
}

// MinEndingSlot es el slot mínimo a partir del cual el juego puede cerrarse.
func (g Game) MinEndingSlot() uint64 {
	return g.InitialSlot + g.DurationSlots
}

// PastMinEndingSlot devuelve true si el slot actual ya superó el mínimo.
func (g Game) PastMinEndingSlot(currentSlot uint64) bool {
	return currentSlot > g.MinEndingSlot()
}

// FullySubscribed devuelve true si todos los números tienen al menos una
// apuesta. Solo esos juegos garantizan que el número sorteado tenga ganador.
func (g Game) FullySubscribed() bool {
	for _, v := range g.BetsPerNumber {
		if v == 0 {
			return false
		}
	}
	return true
}

// Closeable devuelve true si el juego puede intentar cerrarse en este slot.
func (g Game) Closeable(currentSlot uint64) bool {
	return !g.BettingPeriodEnded && g.PastMinEndingSlot(currentSlot)
}

// CheckInvariants verifica las invariantes del estado on-chain. Una violación
// indica un desajuste de versión con el programa, no un estado transitorio.
func (g Game) CheckInvariants() error {
	var sum uint64
	for _, v := range g.BetsPerNumber {
		sum += v
	}
	if sum != g.TotalValue {
		return fmt.Errorf("domain.CheckInvariants: total %d != sum of bets per number %d", g.TotalValue, sum)
	}
	if g.BettingPeriodEnded && g.DrawnNumber == nil {
		return fmt.Errorf("domain.CheckInvariants: betting period ended without drawn number")
	}
	if !g.BettingPeriodEnded && g.DrawnNumber != nil {
		return fmt.Errorf("domain.CheckInvariants: drawn number %d set on open game", *g.DrawnNumber)
	}
	return nil
}

// ClosingCandidate es la vista efímera de un juego elegible para cierre.
// Se recalcula en cada ciclo de poll, nunca se persiste.
type ClosingCandidate struct {
	GameID          string
	TotalValue      uint64
	NumberOfBets    uint64
	SlotAtDiscovery uint64
	SlotsRemaining  uint64 // 0 si ya pasó el min ending slot
	Eligible        bool
}

// NewClosingCandidate arma el candidato para un juego en el slot dado.
func NewClosingCandidate(acc GameAccount, currentSlot uint64) ClosingCandidate {
	c := ClosingCandidate{
		GameID:          acc.Address,
		TotalValue:      acc.Game.TotalValue,
		NumberOfBets:    acc.Game.NumberOfBets,
		SlotAtDiscovery: currentSlot,
		Eligible:        acc.Game.Closeable(currentSlot) && acc.Game.IsPublic() && acc.Game.FullySubscribed(),
	}
	if min := acc.Game.MinEndingSlot(); min > currentSlot {
		c.SlotsRemaining = min - currentSlot
	}
	return c
}
