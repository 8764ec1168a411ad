package program

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// instruction es el payload de una instrucción del programa. Un solo struct
// con campos opcionales: el programa despacha por Method.
type instruction struct {
	Method        string   `json:"method"`
	Game          string   `json:"game,omitempty"`
	Bet           string   `json:"bet,omitempty"`
	Number        uint8    `json:"number,omitempty"`
	Value         uint64   `json:"value,omitempty"`
	DurationSlots uint64   `json:"durationSlots,omitempty"`
	Participants  []string `json:"participants,omitempty"`
}

// transaction es el sobre firmado que viaja por sendTransaction. El
// recentBlockhash es a la vez el ancla de validez y la entropía que el
// programa encadenará si la transacción aterriza a tiempo.
type transaction struct {
	Payer           string      `json:"payer"`
	RecentBlockhash string      `json:"recentBlockhash"`
	LastValidSlot   uint64      `json:"lastValidSlot"`
	Instruction     instruction `json:"instruction"`
	Signature       string      `json:"signature,omitempty"`
}

// signAndEncode firma la transacción y la devuelve en base64, lista para
// sendTransaction. La firma cubre el JSON canónico del sobre sin firma.
func (p *Program) signAndEncode(ix instruction, anchor domain.EntropySample, lastValidSlot uint64) (string, error) {
	tx := transaction{
		Payer:           p.wallet.Address(),
		RecentBlockhash: hex.EncodeToString(anchor.Blockhash[:]),
		LastValidSlot:   lastValidSlot,
		Instruction:     ix,
	}

	unsigned, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("program.signAndEncode: marshal: %w", err)
	}
	tx.Signature = hex.EncodeToString(p.wallet.Sign(unsigned))

	signed, err := json.Marshal(tx)
	if err != nil {
		return "", fmt.Errorf("program.signAndEncode: marshal signed: %w", err)
	}
	return base64.StdEncoding.EncodeToString(signed), nil
}
