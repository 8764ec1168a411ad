package domain

// Bet es el estado on-chain de una apuesta individual.
type Bet struct {
	Address   string
	Game      string
	Bettor    string
	Value     uint64
	Number    uint8
	Blockhash [32]byte // blockhash observado por el programa al aceptar la apuesta

	// PrizeClaimed pasa de false a true exactamente una vez, solo después de
	// que termina el período de apuestas y solo por el apostador dueño.
	PrizeClaimed bool
}

// Wins devuelve true si la apuesta corresponde al número sorteado.
func (b Bet) Wins(drawnNumber uint8) bool {
	return b.Number == drawnNumber
}
