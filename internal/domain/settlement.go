package domain

import (
	"fmt"
	"math/bits"
)

// RewardMode selecciona la política de recompensa al cerrador.
type RewardMode string

const (
	// RewardModeFlat paga un monto fijo en lamports.
	RewardModeFlat RewardMode = "flat"
	// RewardModeProportional paga una fracción del pool total.
	RewardModeProportional RewardMode = "proportional"
)

// RewardPolicy es la recompensa que cobra quien confirma el cierre, tomada
// del tope del pool antes de repartir. Los artefactos originales usan ambas
// variantes según el script, así que queda configurable.
type RewardPolicy struct {
	Mode       RewardMode
	FlatAmount uint64  // lamports, para RewardModeFlat
	Rate       float64 // fracción del pool, para RewardModeProportional
}

// Validate verifica que la política sea coherente.
func (p RewardPolicy) Validate() error {
	switch p.Mode {
	case RewardModeFlat:
		return nil
	case RewardModeProportional:
		if p.Rate < 0 || p.Rate >= 1 {
			return fmt.Errorf("domain.RewardPolicy: rate %.4f outside [0,1)", p.Rate)
		}
		return nil
	default:
		return fmt.Errorf("domain.RewardPolicy: unknown mode %q", p.Mode)
	}
}

// CloserReward devuelve la recompensa del cerrador para un pool dado,
// acotada al pool (un pool chico nunca paga más de lo que tiene).
func (p RewardPolicy) CloserReward(totalPool uint64) uint64 {
	var reward uint64
	switch p.Mode {
	case RewardModeProportional:
		reward = uint64(float64(totalPool) * p.Rate)
	default:
		reward = p.FlatAmount
	}
	if reward > totalPool {
		reward = totalPool
	}
	return reward
}

// Prize calcula el premio de una apuesta: el pool restante tras la recompensa
// del cerrador, repartido proporcionalmente entre las apuestas al número
// sorteado. Si nadie apostó al número sorteado no hay premios pagables y el
// pool queda registrado sin reclamar: estado terminal aceptado, no un error.
//
// El producto intermedio se calcula en 128 bits: pool*value desborda uint64
// con pools grandes y el resultado debe ser exacto, no aproximado.
func Prize(betValue uint64, betNumber, drawnNumber uint8, betsOnDrawnNumber, totalPool, closerReward uint64) uint64 {
	if betsOnDrawnNumber == 0 || betNumber != drawnNumber {
		return 0
	}
	distributable := totalPool - closerReward
	// betsOnDrawnNumber >= betValue (la apuesta está incluida en el total del
	// número), así que el cociente cabe en uint64 y Div64 no entra en pánico.
	hi, lo := bits.Mul64(distributable, betValue)
	quo, _ := bits.Div64(hi, lo, betsOnDrawnNumber)
	return quo
}
