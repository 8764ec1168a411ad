package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
)

// runFill apuesta una vez a cada número del juego dado, dejándolo totalmente
// suscripto y por lo tanto elegible para cierre. Pensado para poblar juegos
// de prueba en un validador local.
func runFill(ctx context.Context, contract ports.Contract, game string, betValue uint64) {
	if betValue < domain.MinBetValue {
		betValue = domain.MinBetValue
	}

	slog.Info("filling game", "game", game, "bet_value", betValue, "numbers", domain.NumberCount)

	for n := uint8(1); n <= domain.NumberCount; n++ {
		sig, err := contract.PlaceBet(ctx, game, n, betValue)
		if err != nil {
			slog.Error("bet failed", "game", game, "number", n, "err", err)
			os.Exit(1)
		}
		slog.Debug("bet placed", "number", n, "sig", sig)
	}

	slog.Info("game fully subscribed", "game", game, "total", uint64(domain.NumberCount)*betValue)
}
