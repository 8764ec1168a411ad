package program

// accounts.go: codec binario de las cuentas del programa.
//
// El layout es little-endian con discriminador de 8 bytes al frente, y los
// campos de tamaño fijo antes que los variables para que los filtros memcmp
// del nodo puedan matchear por offset.

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

var (
	gameDiscriminator = [8]byte{'c', 'r', 'i', 't', 'g', 'a', 'm', 'e'}
	betDiscriminator  = [8]byte{'c', 'r', 'i', 't', 'b', 'e', 't', 0}
)

// Offsets del layout de Game usados por los filtros indexados. El índice del
// nodo matchea bytes crudos en estos offsets; discovery re-verifica todo
// client-side igual.
const (
	offsetBettingPeriodEnded = 328
	offsetParticipantsLen    = 347

	gameFixedSize = 349
	betSize       = 114
)

// MarshalGame serializa un Game al layout de cuenta del programa.
func MarshalGame(g domain.Game) ([]byte, error) {
	creator, err := decodeAddress(g.Creator)
	if err != nil {
		return nil, fmt.Errorf("program.MarshalGame: creator: %w", err)
	}
	if len(g.Participants) > 0xFFFF {
		return nil, fmt.Errorf("program.MarshalGame: too many participants: %d", len(g.Participants))
	}

	buf := make([]byte, gameFixedSize, gameFixedSize+32*len(g.Participants))
	copy(buf[0:8], gameDiscriminator[:])
	copy(buf[8:40], creator[:])
	binary.LittleEndian.PutUint64(buf[40:48], g.TotalValue)
	binary.LittleEndian.PutUint64(buf[48:56], g.InitialSlot)
	binary.LittleEndian.PutUint64(buf[56:64], g.DurationSlots)
	copy(buf[64:96], g.LastBlockhash[:])
	copy(buf[96:128], g.CombinedHash[:])
	for i, v := range g.BetsPerNumber {
		binary.LittleEndian.PutUint64(buf[128+8*i:136+8*i], v)
	}
	if g.BettingPeriodEnded {
		buf[offsetBettingPeriodEnded] = 1
	}
	if g.DrawnNumber != nil {
		buf[329] = 1
		buf[330] = *g.DrawnNumber
	}
	binary.LittleEndian.PutUint64(buf[331:339], g.NumberOfBets)
	binary.LittleEndian.PutUint64(buf[339:347], g.ValueProvidedToWinners)
	binary.LittleEndian.PutUint16(buf[offsetParticipantsLen:349], uint16(len(g.Participants)))

	for _, p := range g.Participants {
		addr, err := decodeAddress(p)
		if err != nil {
			return nil, fmt.Errorf("program.MarshalGame: participant: %w", err)
		}
		buf = append(buf, addr[:]...)
	}
	return buf, nil
}

// UnmarshalGame decodifica una cuenta de juego.
func UnmarshalGame(data []byte) (domain.Game, error) {
	if len(data) < gameFixedSize {
		return domain.Game{}, fmt.Errorf("program.UnmarshalGame: account too short: %d bytes", len(data))
	}
	if [8]byte(data[0:8]) != gameDiscriminator {
		return domain.Game{}, fmt.Errorf("program.UnmarshalGame: not a game account")
	}

	var g domain.Game
	g.Creator = hex.EncodeToString(data[8:40])
	g.TotalValue = binary.LittleEndian.Uint64(data[40:48])
	g.InitialSlot = binary.LittleEndian.Uint64(data[48:56])
	g.DurationSlots = binary.LittleEndian.Uint64(data[56:64])
	copy(g.LastBlockhash[:], data[64:96])
	copy(g.CombinedHash[:], data[96:128])
	for i := range g.BetsPerNumber {
		g.BetsPerNumber[i] = binary.LittleEndian.Uint64(data[128+8*i : 136+8*i])
	}
	g.BettingPeriodEnded = data[offsetBettingPeriodEnded] == 1
	if data[329] == 1 {
		n := data[330]
		g.DrawnNumber = &n
	}
	g.NumberOfBets = binary.LittleEndian.Uint64(data[331:339])
	g.ValueProvidedToWinners = binary.LittleEndian.Uint64(data[339:347])

	count := int(binary.LittleEndian.Uint16(data[offsetParticipantsLen:349]))
	if len(data) < gameFixedSize+32*count {
		return domain.Game{}, fmt.Errorf("program.UnmarshalGame: truncated participants list")
	}
	for i := 0; i < count; i++ {
		start := gameFixedSize + 32*i
		g.Participants = append(g.Participants, hex.EncodeToString(data[start:start+32]))
	}
	return g, nil
}

// MarshalBet serializa un Bet al layout de cuenta del programa.
func MarshalBet(b domain.Bet) ([]byte, error) {
	game, err := decodeAddress(b.Game)
	if err != nil {
		return nil, fmt.Errorf("program.MarshalBet: game: %w", err)
	}
	bettor, err := decodeAddress(b.Bettor)
	if err != nil {
		return nil, fmt.Errorf("program.MarshalBet: bettor: %w", err)
	}

	buf := make([]byte, betSize)
	copy(buf[0:8], betDiscriminator[:])
	copy(buf[8:40], game[:])
	copy(buf[40:72], bettor[:])
	binary.LittleEndian.PutUint64(buf[72:80], b.Value)
	buf[80] = b.Number
	copy(buf[81:113], b.Blockhash[:])
	if b.PrizeClaimed {
		buf[113] = 1
	}
	return buf, nil
}

// UnmarshalBet decodifica una cuenta de apuesta.
func UnmarshalBet(data []byte) (domain.Bet, error) {
	if len(data) != betSize {
		return domain.Bet{}, fmt.Errorf("program.UnmarshalBet: want %d bytes, got %d", betSize, len(data))
	}
	if [8]byte(data[0:8]) != betDiscriminator {
		return domain.Bet{}, fmt.Errorf("program.UnmarshalBet: not a bet account")
	}

	var b domain.Bet
	b.Game = hex.EncodeToString(data[8:40])
	b.Bettor = hex.EncodeToString(data[40:72])
	b.Value = binary.LittleEndian.Uint64(data[72:80])
	b.Number = data[80]
	copy(b.Blockhash[:], data[81:113])
	b.PrizeClaimed = data[113] == 1
	return b, nil
}

// decodeAddress valida y decodifica una dirección hex de 32 bytes.
func decodeAddress(addr string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(addr)
	if err != nil {
		return out, fmt.Errorf("invalid address %q: %w", addr, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("address %q: want 32 bytes, got %d", addr, len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
