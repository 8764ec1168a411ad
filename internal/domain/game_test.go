package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fullGame arma un juego público con una apuesta mínima por número.
func fullGame() Game {
	g := Game{
		Creator:       "c0ffee",
		InitialSlot:   1000,
		DurationSlots: 750,
	}
	for i := range g.BetsPerNumber {
		g.BetsPerNumber[i] = MinBetValue
	}
	g.TotalValue = uint64(NumberCount) * MinBetValue
	g.NumberOfBets = NumberCount
	return g
}

func TestGame_IsPublic(t *testing.T) {
	g := fullGame()
	assert.True(t, g.IsPublic())

	g.Participants = []string{"aa", "bb"}
	assert.False(t, g.IsPublic())
}

func TestGame_MinEndingSlot(t *testing.T) {
	g := fullGame()
	assert.Equal(t, uint64(1750), g.MinEndingSlot())

	// el límite es estricto: en el slot exacto todavía no se puede cerrar
	assert.False(t, g.PastMinEndingSlot(1750))
	assert.True(t, g.PastMinEndingSlot(1751))
}

func TestGame_FullySubscribed(t *testing.T) {
	g := fullGame()
	assert.True(t, g.FullySubscribed())

	g.BetsPerNumber[13] = 0
	assert.False(t, g.FullySubscribed())
}

func TestGame_Closeable(t *testing.T) {
	g := fullGame()
	assert.False(t, g.Closeable(1700), "antes del min ending slot")
	assert.True(t, g.Closeable(1800))

	g.BettingPeriodEnded = true
	n := uint8(4)
	g.DrawnNumber = &n
	assert.False(t, g.Closeable(1800), "ya cerrado")
}

func TestGame_CheckInvariants(t *testing.T) {
	g := fullGame()
	assert.NoError(t, g.CheckInvariants())

	bad := fullGame()
	bad.TotalValue += 1
	assert.Error(t, bad.CheckInvariants(), "total desacoplado de bets por número")

	ended := fullGame()
	ended.BettingPeriodEnded = true
	assert.Error(t, ended.CheckInvariants(), "cerrado sin número sorteado")

	open := fullGame()
	n := uint8(9)
	open.DrawnNumber = &n
	assert.Error(t, open.CheckInvariants(), "número sorteado en juego abierto")
}

func TestNewClosingCandidate_Eligible(t *testing.T) {
	acc := GameAccount{Address: "deadbeef", Game: fullGame()}

	c := NewClosingCandidate(acc, 1800)
	assert.True(t, c.Eligible)
	assert.Equal(t, "deadbeef", c.GameID)
	assert.Equal(t, uint64(1800), c.SlotAtDiscovery)
	assert.Zero(t, c.SlotsRemaining)
}

func TestNewClosingCandidate_NotYetCloseable(t *testing.T) {
	acc := GameAccount{Address: "deadbeef", Game: fullGame()}

	c := NewClosingCandidate(acc, 1700)
	assert.False(t, c.Eligible)
	assert.Equal(t, uint64(50), c.SlotsRemaining)
}

func TestNewClosingCandidate_PrivateGameNotEligible(t *testing.T) {
	g := fullGame()
	g.Participants = []string{"aa"}
	c := NewClosingCandidate(GameAccount{Address: "x", Game: g}, 1800)
	assert.False(t, c.Eligible)
}

func TestBet_Wins(t *testing.T) {
	b := Bet{Number: 7, Value: MinBetValue}
	assert.True(t, b.Wins(7))
	assert.False(t, b.Wins(8))
}
