package rpc

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Funder implementa ports.Funder contra el nodo (airdrops de red de prueba).
type Funder struct {
	client       *Client
	pollInterval time.Duration
	waitTimeout  time.Duration
}

// NewFunder crea el adapter de fondeo sobre un Client.
func NewFunder(client *Client) *Funder {
	return &Funder{
		client:       client,
		pollInterval: 500 * time.Millisecond,
		waitTimeout:  30 * time.Second,
	}
}

// Balance devuelve el balance en lamports de la dirección.
func (f *Funder) Balance(ctx context.Context, address string) (uint64, error) {
	var balance uint64
	if err := f.client.Call(ctx, "getBalance", []any{address}, &balance); err != nil {
		return 0, fmt.Errorf("rpc.Balance: %w", err)
	}
	return balance, nil
}

// Airdrop solicita lamports y espera a que el balance los refleje.
func (f *Funder) Airdrop(ctx context.Context, address string, lamports uint64) error {
	before, err := f.Balance(ctx, address)
	if err != nil {
		return err
	}

	var signature string
	if err := f.client.Call(ctx, "requestAirdrop", []any{address, lamports}, &signature); err != nil {
		return fmt.Errorf("rpc.Airdrop: %w", err)
	}
	slog.Debug("rpc: airdrop requested", "address", address, "lamports", lamports, "signature", signature)

	deadline := time.Now().Add(f.waitTimeout)
	for time.Now().Before(deadline) {
		balance, err := f.Balance(ctx, address)
		if err != nil {
			return err
		}
		if balance > before {
			return nil
		}
		select {
		case <-time.After(f.pollInterval):
		case <-ctx.Done():
			return fmt.Errorf("rpc.Airdrop: %w", ctx.Err())
		}
	}
	return fmt.Errorf("rpc.Airdrop: not credited within %s", f.waitTimeout)
}
