package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/alejandrodnm/critterbot/internal/domain"
)

// Console implementa ports.Notifier escribiendo a stdout.
type Console struct {
	out   io.Writer
	table bool
}

// NewConsole crea un notificador que escribe a stdout. Con table activo
// imprime la tabla completa de candidatos; si no, una línea compacta.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// NotifyCandidates imprime los candidatos de cierre del ciclo.
func (c *Console) NotifyCandidates(_ context.Context, candidates []domain.ClosingCandidate) error {
	now := time.Now().Format("15:04:05")
	if len(candidates) == 0 {
		fmt.Fprintf(c.out, "[%s] no closeable games\n", now)
		return nil
	}

	if !c.table {
		best := candidates[0]
		fmt.Fprintf(c.out, "[%s] %d closeable | best %s pool=%s bets=%d\n",
			now, len(candidates), shortAddr(best.GameID), lamportsToSOL(best.TotalValue), best.NumberOfBets)
		return nil
	}

	table := tablewriter.NewTable(c.out, tablewriter.WithHeaderAutoFormat(tw.Off))
	table.Header("#", "Game", "Pool", "Bets", "Slot", "Eligible")
	for i, cand := range candidates {
		table.Append(
			fmt.Sprintf("%d", i+1),
			shortAddr(cand.GameID),
			lamportsToSOL(cand.TotalValue),
			fmt.Sprintf("%d", cand.NumberOfBets),
			fmt.Sprintf("%d", cand.SlotAtDiscovery),
			fmt.Sprintf("%t", cand.Eligible),
		)
	}
	table.Render()
	return nil
}

// NotifyResult imprime el resultado de un intento de cierre.
func (c *Console) NotifyResult(_ context.Context, result domain.CloseResult) error {
	now := time.Now().Format("15:04:05")
	switch result.Outcome {
	case domain.OutcomeWon:
		fmt.Fprintf(c.out, "[%s] WON %s drawn=%d reward=%s sig=%s\n",
			now, shortAddr(result.Game), result.DrawnNumber, lamportsToSOL(result.Reward), shortAddr(result.Signature))
	case domain.OutcomeLostRace:
		fmt.Fprintf(c.out, "[%s] lost race %s drawn=%d closer=%s\n",
			now, shortAddr(result.Game), result.DrawnNumber, shortAddr(result.Closer))
	case domain.OutcomeExpired:
		fmt.Fprintf(c.out, "[%s] expired %s after %d attempts\n",
			now, shortAddr(result.Game), result.Attempts)
	case domain.OutcomeFailed:
		fmt.Fprintf(c.out, "[%s] FAILED %s: %v\n", now, shortAddr(result.Game), result.Err)
	}
	return nil
}

// shortAddr recorta una dirección hex para consola.
func shortAddr(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + ".." + addr[len(addr)-4:]
}

// lamportsToSOL formatea lamports como SOL con 3 decimales.
func lamportsToSOL(lamports uint64) string {
	return fmt.Sprintf("%.3f SOL", float64(lamports)/1e9)
}
