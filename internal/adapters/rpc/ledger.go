package rpc

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// eventLogPrefix es el prefijo de los logs de eventos que emite el programa.
const eventLogPrefix = "Program log: critterbot:"

// Ledger implementa ports.Ledger contra el gateway JSON-RPC del nodo.
type Ledger struct {
	client       *Client
	pollInterval time.Duration
}

// NewLedger crea el adapter de ledger sobre un Client.
func NewLedger(client *Client) *Ledger {
	return &Ledger{client: client, pollInterval: 200 * time.Millisecond}
}

type blockEntropyResult struct {
	Blockhash string `json:"blockhash"`
	Slot      uint64 `json:"slot"`
}

// LatestEntropy devuelve el blockhash más reciente y su slot.
func (l *Ledger) LatestEntropy(ctx context.Context) (domain.EntropySample, error) {
	var res blockEntropyResult
	if err := l.client.Call(ctx, "getLatestBlockEntropy", nil, &res); err != nil {
		return domain.EntropySample{}, fmt.Errorf("rpc.LatestEntropy: %w", err)
	}
	raw, err := hex.DecodeString(res.Blockhash)
	if err != nil || len(raw) != 32 {
		return domain.EntropySample{}, fmt.Errorf("rpc.LatestEntropy: malformed blockhash %q", res.Blockhash)
	}
	sample := domain.EntropySample{Slot: res.Slot}
	copy(sample.Blockhash[:], raw)
	return sample, nil
}

// BlockHeight devuelve el slot actual.
func (l *Ledger) BlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	if err := l.client.Call(ctx, "getBlockHeight", nil, &height); err != nil {
		return 0, fmt.Errorf("rpc.BlockHeight: %w", err)
	}
	return height, nil
}

type transactionLogResult struct {
	Slot      uint64   `json:"slot"`
	Confirmed bool     `json:"confirmed"`
	Logs      []string `json:"logs"`
}

// TransactionEvents devuelve los eventos del programa parseados de los logs
// de una transacción confirmada.
func (l *Ledger) TransactionEvents(ctx context.Context, signature string) ([]domain.Event, error) {
	var res transactionLogResult
	if err := l.client.Call(ctx, "getTransactionLog", []any{signature}, &res); err != nil {
		return nil, fmt.Errorf("rpc.TransactionEvents: %w", err)
	}
	if !res.Confirmed {
		return nil, fmt.Errorf("rpc.TransactionEvents: %s not confirmed", signature)
	}
	return ParseEvents(res.Logs)
}

type sendTransactionParams struct {
	Transaction   string `json:"transaction"` // base64
	LastValidSlot uint64 `json:"lastValidSlot"`
}

type signatureStatusResult struct {
	Confirmed bool   `json:"confirmed"`
	Slot      uint64 `json:"slot"`
	Err       string `json:"err,omitempty"`
}

// SubmitTransaction envía una transacción firmada y espera su confirmación
// dentro de la ventana de validez. Los reintentos cubren solo fallas
// transitorias de envío: la transacción reenviada es byte a byte la misma,
// nunca re-anclada a otra entropía. Si el slot supera lastValidSlot sin
// confirmación devuelve domain.ErrTxExpired.
func (l *Ledger) SubmitTransaction(ctx context.Context, txBase64 string, lastValidSlot uint64, maxRetries int) (string, error) {
	params := sendTransactionParams{Transaction: txBase64, LastValidSlot: lastValidSlot}

	var signature string
	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := l.client.Call(ctx, "sendTransaction", params, &signature)
		if err == nil {
			lastErr = nil
			break
		}
		if typed := ClassifyProgramError(err); typed != nil {
			return "", typed
		}
		lastErr = err
		slog.Warn("rpc: transaction send failed", "attempt", attempt+1, "err", err)
	}
	if lastErr != nil {
		return "", fmt.Errorf("rpc.SubmitTransaction: send: %w", lastErr)
	}

	// Polling de confirmación hasta que la ventana de validez venza.
	for {
		var status signatureStatusResult
		if err := l.client.Call(ctx, "getSignatureStatus", []any{signature}, &status); err != nil {
			return "", fmt.Errorf("rpc.SubmitTransaction: status: %w", err)
		}
		if status.Confirmed {
			if status.Err != "" {
				if typed := classifyMessage(status.Err); typed != nil {
					return "", typed
				}
				return "", fmt.Errorf("rpc.SubmitTransaction: transaction failed: %s", status.Err)
			}
			return signature, nil
		}
		if status.Slot > lastValidSlot {
			return "", domain.ErrTxExpired
		}
		select {
		case <-time.After(l.pollInterval):
		case <-ctx.Done():
			return "", fmt.Errorf("rpc.SubmitTransaction: %w", ctx.Err())
		}
	}
}

// ClassifyProgramError mapea errores RPC del nodo a los sentinelas del
// dominio. Devuelve nil si el error no es clasificable (transitorio).
func ClassifyProgramError(err error) error {
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		return nil
	}
	return classifyMessage(rpcErr.Message)
}

// classifyMessage matchea los mensajes de error del programa/nodo.
func classifyMessage(msg string) error {
	switch {
	case strings.Contains(msg, "BlockhashExpired"), strings.Contains(msg, "past last valid slot"):
		return domain.ErrTxExpired
	case strings.Contains(msg, "BettingPeriodEnded"):
		return domain.ErrGameAlreadyClosed
	case strings.Contains(msg, "PrizeAlreadyClaimed"):
		return domain.ErrPrizeAlreadyClaimed
	case strings.Contains(msg, "NoPrize"):
		return domain.ErrNoPrize
	}
	return nil
}
