package main

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/alejandrodnm/critterbot/internal/adapters/notify"
	"github.com/alejandrodnm/critterbot/internal/closer"
	"github.com/alejandrodnm/critterbot/internal/discovery"
	"github.com/alejandrodnm/critterbot/internal/domain"
)

// runClose cierra el juego elegible más rico y termina. Útil para probar el
// controller contra un validador local sin levantar el loop completo.
func runClose(ctx context.Context, finder *discovery.Finder, controller *closer.Controller, notifier *notify.Console) {
	richest, err := finder.FindRichest(ctx, discovery.CloseableCriteria())
	if err != nil {
		if errors.Is(err, domain.ErrNoCloseableGames) {
			slog.Info("no closeable games right now")
			return
		}
		slog.Error("discovery failed", "err", err)
		os.Exit(1)
	}

	slog.Info("racing to close",
		"game", richest.Address,
		"pool", richest.Game.TotalValue,
		"bets", richest.Game.NumberOfBets,
	)

	result := controller.Close(ctx, richest)
	if err := notifier.NotifyResult(ctx, result); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if result.Outcome == domain.OutcomeFailed {
		slog.Error("close failed", "game", result.Game, "err", result.Err)
		os.Exit(1)
	}
}
