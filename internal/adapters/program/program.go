// Package program es el adapter del programa de settlement: implementa
// ports.Contract construyendo instrucciones firmadas y decodificando las
// cuentas que devuelve el nodo.
package program

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/critterbot/internal/adapters/rpc"
	"github.com/alejandrodnm/critterbot/internal/closer"
	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
	"github.com/alejandrodnm/critterbot/internal/wallet"
)

// defaultValiditySlots es la ventana de validez para transacciones que no
// corren carreras (crear juego, apostar, reclamar). Las submissions de
// cierre usan la ventana de un slot del CloseRequest.
const defaultValiditySlots = 150

// Program implementa ports.Contract.
type Program struct {
	client    *rpc.Client
	ledger    *rpc.Ledger
	wallet    *wallet.Wallet
	programID string
	rewards   domain.RewardPolicy
}

// New crea el adapter para el programa dado.
func New(client *rpc.Client, ledger *rpc.Ledger, w *wallet.Wallet, programID string, rewards domain.RewardPolicy) *Program {
	return &Program{client: client, ledger: ledger, wallet: w, programID: programID, rewards: rewards}
}

type accountFilter struct {
	Offset int    `json:"offset"`
	Bytes  string `json:"bytes"` // hex
}

type listAccountsParams struct {
	ProgramID string          `json:"programId"`
	Filters   []accountFilter `json:"filters,omitempty"`
}

type accountResult struct {
	Address string `json:"address"`
	Data    string `json:"data"` // base64
}

// Games devuelve las cuentas de juego que pasan el pre-filtro indexado del
// nodo. El filtro matchea por offset de bytes y puede devolver falsos
// positivos; el caller re-verifica.
func (p *Program) Games(ctx context.Context, filters ports.GameFilters) ([]domain.GameAccount, error) {
	params := listAccountsParams{ProgramID: p.programID}
	params.Filters = append(params.Filters, accountFilter{
		Offset: 0,
		Bytes:  hex.EncodeToString(gameDiscriminator[:]),
	})
	if filters.OnlyPublic {
		params.Filters = append(params.Filters, accountFilter{Offset: offsetParticipantsLen, Bytes: "0000"})
	}
	if filters.BettingPeriodEnded != nil {
		b := "00"
		if *filters.BettingPeriodEnded {
			b = "01"
		}
		params.Filters = append(params.Filters, accountFilter{Offset: offsetBettingPeriodEnded, Bytes: b})
	}

	var raw []accountResult
	if err := p.client.Call(ctx, "listProgramAccounts", params, &raw); err != nil {
		return nil, fmt.Errorf("program.Games: %w", err)
	}

	accounts := make([]domain.GameAccount, 0, len(raw))
	for _, acc := range raw {
		data, err := base64.StdEncoding.DecodeString(acc.Data)
		if err != nil {
			return nil, fmt.Errorf("program.Games: account %s: %w", acc.Address, err)
		}
		g, err := UnmarshalGame(data)
		if err != nil {
			// El índice puede devolver cuentas de otro tipo; no es fatal.
			slog.Debug("program: skipping undecodable account", "address", acc.Address, "err", err)
			continue
		}
		accounts = append(accounts, domain.GameAccount{Address: acc.Address, Game: g})
	}
	return accounts, nil
}

// Game relee una cuenta de juego.
func (p *Program) Game(ctx context.Context, address string) (domain.Game, error) {
	data, err := p.accountData(ctx, address)
	if err != nil {
		return domain.Game{}, fmt.Errorf("program.Game: %w", err)
	}
	g, err := UnmarshalGame(data)
	if err != nil {
		return domain.Game{}, fmt.Errorf("program.Game: %s: %w", address, err)
	}
	return g, nil
}

// CreateGame abre un juego nuevo. La cuenta del juego es un keypair efímero
// generado acá, igual que hace la wallet del creador en el cliente web.
func (p *Program) CreateGame(ctx context.Context, durationSlots uint64, participants []string) (string, string, error) {
	gameKey, err := wallet.Generate()
	if err != nil {
		return "", "", fmt.Errorf("program.CreateGame: %w", err)
	}
	address := gameKey.Address()

	signature, err := p.submit(ctx, instruction{
		Method:        "createGame",
		Game:          address,
		DurationSlots: durationSlots,
		Participants:  participants,
	})
	if err != nil {
		return "", "", fmt.Errorf("program.CreateGame: %w", err)
	}
	return address, signature, nil
}

// PlaceBet apuesta value lamports al número dado, con ventana de validez
// normal (no corre ninguna carrera).
func (p *Program) PlaceBet(ctx context.Context, game string, number uint8, value uint64) (string, error) {
	signature, err := p.submit(ctx, instruction{
		Method: "placeBet",
		Game:   game,
		Number: number,
		Value:  value,
	})
	if err != nil {
		return "", fmt.Errorf("program.PlaceBet: %w", err)
	}
	return signature, nil
}

// SubmitClose envía la apuesta de cierre anclada a la entropía muestreada,
// con expiry de un slot: si no aterriza contra ese blockhash, se
// auto-invalida en vez de aterrizar contra una entropía posterior.
func (p *Program) SubmitClose(ctx context.Context, req domain.CloseRequest) (string, error) {
	tx, err := p.signAndEncode(instruction{
		Method: "placeBet",
		Game:   req.Game,
		Number: req.Number,
		Value:  req.Value,
	}, req.Anchor, req.Anchor.Slot+1)
	if err != nil {
		return "", fmt.Errorf("program.SubmitClose: %w", err)
	}

	signature, err := p.ledger.SubmitTransaction(ctx, tx, req.Anchor.Slot+1, req.MaxRetries)
	if err != nil {
		// Los sentinelas del dominio pasan tal cual; el resto llega envuelto.
		return "", err
	}
	return signature, nil
}

// ClaimPrize reclama el premio de una apuesta propia.
func (p *Program) ClaimPrize(ctx context.Context, game, bet string) (string, error) {
	signature, err := p.submit(ctx, instruction{
		Method: "claimPrize",
		Game:   game,
		Bet:    bet,
	})
	if err != nil {
		if typed := rpc.ClassifyProgramError(err); typed != nil {
			return "", typed
		}
		return "", fmt.Errorf("program.ClaimPrize: %w", err)
	}
	return signature, nil
}

// UserBets devuelve las apuestas del bettor en el juego, vía el índice de
// cuentas de apuesta.
func (p *Program) UserBets(ctx context.Context, game, bettor string) ([]domain.Bet, error) {
	params := listAccountsParams{
		ProgramID: p.programID,
		Filters: []accountFilter{
			{Offset: 0, Bytes: hex.EncodeToString(betDiscriminator[:])},
			{Offset: 8, Bytes: game},
			{Offset: 40, Bytes: bettor},
		},
	}

	var raw []accountResult
	if err := p.client.Call(ctx, "listProgramAccounts", params, &raw); err != nil {
		return nil, fmt.Errorf("program.UserBets: %w", err)
	}

	bets := make([]domain.Bet, 0, len(raw))
	for _, acc := range raw {
		data, err := base64.StdEncoding.DecodeString(acc.Data)
		if err != nil {
			return nil, fmt.Errorf("program.UserBets: account %s: %w", acc.Address, err)
		}
		b, err := UnmarshalBet(data)
		if err != nil {
			slog.Debug("program: skipping undecodable account", "address", acc.Address, "err", err)
			continue
		}
		// El índice matchea bytes; re-verificar en el estado decodificado.
		if b.Game != game || b.Bettor != bettor {
			continue
		}
		b.Address = acc.Address
		bets = append(bets, b)
	}
	return bets, nil
}

// DrawnNumber es la vista read-only del número sorteado: el confirmado si el
// juego cerró, o la derivación sobre el digest actual si sigue abierto,
// exactamente como la computa el programa.
func (p *Program) DrawnNumber(ctx context.Context, game string) (uint8, error) {
	g, err := p.Game(ctx, game)
	if err != nil {
		return 0, err
	}
	if g.DrawnNumber != nil {
		return *g.DrawnNumber, nil
	}
	return domain.DeriveNumber(g.CombinedHash), nil
}

// Prize es la vista read-only del premio de una apuesta, espejo del cálculo
// on-chain sobre las cuentas releídas.
func (p *Program) Prize(ctx context.Context, game, bet string) (uint64, error) {
	g, err := p.Game(ctx, game)
	if err != nil {
		return 0, err
	}
	data, err := p.accountData(ctx, bet)
	if err != nil {
		return 0, fmt.Errorf("program.Prize: %w", err)
	}
	b, err := UnmarshalBet(data)
	if err != nil {
		return 0, fmt.Errorf("program.Prize: %s: %w", bet, err)
	}

	var drawn uint8
	if g.DrawnNumber != nil {
		drawn = *g.DrawnNumber
	} else {
		drawn = domain.DeriveNumber(g.CombinedHash)
	}
	reward := p.rewards.CloserReward(g.TotalValue)
	return domain.Prize(b.Value, b.Number, drawn, g.BetsPerNumber[drawn-1], g.TotalValue, reward), nil
}

// IsBettingPeriodEnded es la vista read-only del estado del período: cerrado
// de verdad, o cerrable ahora mismo según la regla del programa (pasado el
// slot mínimo y con el último blockhash en ventana favorable).
func (p *Program) IsBettingPeriodEnded(ctx context.Context, game string) (bool, error) {
	g, err := p.Game(ctx, game)
	if err != nil {
		return false, err
	}
	if g.BettingPeriodEnded {
		return true, nil
	}
	currentSlot, err := p.ledger.BlockHeight(ctx)
	if err != nil {
		return false, fmt.Errorf("program.IsBettingPeriodEnded: %w", err)
	}
	return g.PastMinEndingSlot(currentSlot) && closer.FavorableSample(g.LastBlockhash[:]), nil
}

// submit firma y envía una instrucción con ventana de validez normal.
func (p *Program) submit(ctx context.Context, ix instruction) (string, error) {
	anchor, err := p.ledger.LatestEntropy(ctx)
	if err != nil {
		return "", err
	}
	lastValid := anchor.Slot + defaultValiditySlots
	tx, err := p.signAndEncode(ix, anchor, lastValid)
	if err != nil {
		return "", err
	}
	return p.ledger.SubmitTransaction(ctx, tx, lastValid, 2)
}

// accountData trae y decodifica el payload base64 de una cuenta.
func (p *Program) accountData(ctx context.Context, address string) ([]byte, error) {
	var encoded string
	if err := p.client.Call(ctx, "getAccountData", []any{address}, &encoded); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("account %s: %w", address, err)
	}
	return data, nil
}
