package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/critterbot/internal/adapters/storage"
)

// runReport imprime las estadísticas agregadas y los intentos de la última
// semana desde la base local.
func runReport(ctx context.Context, store *storage.SQLiteStore) {
	stats, err := store.Stats(ctx)
	if err != nil {
		slog.Error("failed to load stats", "err", err)
		os.Exit(1)
	}

	fmt.Printf("\n── CLOSE ATTEMPTS ──\n")
	fmt.Printf("  Total:     %d\n", stats.Total)
	fmt.Printf("  Won:       %d\n", stats.Won)
	fmt.Printf("  Lost race: %d\n", stats.LostRace)
	fmt.Printf("  Expired:   %d\n", stats.Expired)
	fmt.Printf("  Failed:    %d\n", stats.Failed)
	fmt.Printf("  Rewards:   %.3f SOL\n", float64(stats.TotalReward)/1e9)
	if stats.Total > 0 {
		fmt.Printf("  Win rate:  %.1f%%\n", float64(stats.Won)/float64(stats.Total)*100)
	}

	now := time.Now()
	recs, err := store.History(ctx, now.AddDate(0, 0, -7), now)
	if err != nil {
		slog.Error("failed to load history", "err", err)
		os.Exit(1)
	}

	fmt.Printf("\n── LAST 7 DAYS (%d attempts) ──\n", len(recs))
	if len(recs) == 0 {
		fmt.Println("  (none)")
		return
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.Header("When", "Game", "Outcome", "Drawn", "Reward", "Attempts")
	for _, r := range recs {
		reward := ""
		if r.Reward > 0 {
			reward = fmt.Sprintf("%.3f SOL", float64(r.Reward)/1e9)
		}
		table.Append(
			r.CreatedAt.Format("01-02 15:04"),
			r.Game[:min(12, len(r.Game))],
			r.Outcome.String(),
			fmt.Sprintf("%d", r.DrawnNumber),
			reward,
			fmt.Sprintf("%d", r.Attempts),
		)
	}
	table.Render()
}
