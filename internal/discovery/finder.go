package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/alejandrodnm/critterbot/internal/domain"
	"github.com/alejandrodnm/critterbot/internal/ports"
)

// Criteria son los predicados de selección de juegos. Cada predicado activo
// se verifica client-side aunque el índice del ledger ya haya filtrado por él:
// el pre-filtro indexado matchea por offset de bytes y puede devolver falsos
// positivos.
type Criteria struct {
	OnlyPublic         bool
	BettingPeriodEnded *bool // nil = cualquier estado
	MinEndingSlotPast  bool
	FullySubscribed    bool
}

// CloseableCriteria devuelve los criterios del closer: juegos públicos, aún
// abiertos, pasados del slot mínimo y con apuestas en todos los números.
func CloseableCriteria() Criteria {
	ended := false
	return Criteria{
		OnlyPublic:         true,
		BettingPeriodEnded: &ended,
		MinEndingSlotPast:  true,
		FullySubscribed:    true,
	}
}

// OpenPublicCriteria devuelve los criterios del recycler: cualquier juego
// público con el período de apuestas abierto.
func OpenPublicCriteria() Criteria {
	ended := false
	return Criteria{OnlyPublic: true, BettingPeriodEnded: &ended}
}

// Finder consulta los juegos del programa y los filtra y rankea.
type Finder struct {
	contract ports.Contract
	ledger   ports.Ledger
}

// New crea un Finder con las dependencias inyectadas.
func New(contract ports.Contract, ledger ports.Ledger) *Finder {
	return &Finder{contract: contract, ledger: ledger}
}

// FindGames devuelve los juegos que pasan todos los criterios, ordenados por
// valor total descendente: los pools más grandes se priorizan porque la
// recompensa y el impacto escalan con el pool.
func (f *Finder) FindGames(ctx context.Context, criteria Criteria) ([]domain.GameAccount, error) {
	coarse, err := f.contract.Games(ctx, ports.GameFilters{
		OnlyPublic:         criteria.OnlyPublic,
		BettingPeriodEnded: criteria.BettingPeriodEnded,
	})
	if err != nil {
		return nil, fmt.Errorf("discovery.FindGames: list games: %w", err)
	}

	currentSlot, err := f.ledger.BlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery.FindGames: block height: %w", err)
	}

	matched := make([]domain.GameAccount, 0, len(coarse))
	for _, acc := range coarse {
		if err := acc.Game.CheckInvariants(); err != nil {
			slog.Error("discovery: skipping game with invalid state", "game", acc.Address, "err", err)
			continue
		}
		if !passes(acc.Game, criteria, currentSlot) {
			continue
		}
		matched = append(matched, acc)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Game.TotalValue > matched[j].Game.TotalValue
	})

	slog.Debug("discovery: games filtered",
		"coarse", len(coarse),
		"matched", len(matched),
		"slot", currentSlot,
	)
	return matched, nil
}

// FindRichest devuelve el juego con mayor pool entre los que pasan los
// criterios, o domain.ErrNoCloseableGames si no hay ninguno.
func (f *Finder) FindRichest(ctx context.Context, criteria Criteria) (domain.GameAccount, error) {
	games, err := f.FindGames(ctx, criteria)
	if err != nil {
		return domain.GameAccount{}, err
	}
	if len(games) == 0 {
		return domain.GameAccount{}, domain.ErrNoCloseableGames
	}
	return games[0], nil
}

// Candidates proyecta los juegos encontrados a la vista efímera de candidato.
func (f *Finder) Candidates(ctx context.Context, criteria Criteria) ([]domain.ClosingCandidate, error) {
	games, err := f.FindGames(ctx, criteria)
	if err != nil {
		return nil, err
	}
	currentSlot, err := f.ledger.BlockHeight(ctx)
	if err != nil {
		return nil, fmt.Errorf("discovery.Candidates: block height: %w", err)
	}
	candidates := make([]domain.ClosingCandidate, 0, len(games))
	for _, acc := range games {
		candidates = append(candidates, domain.NewClosingCandidate(acc, currentSlot))
	}
	return candidates, nil
}

// passes re-verifica todos los predicados sobre el estado decodificado.
func passes(g domain.Game, criteria Criteria, currentSlot uint64) bool {
	if criteria.OnlyPublic && !g.IsPublic() {
		return false
	}
	if criteria.BettingPeriodEnded != nil && g.BettingPeriodEnded != *criteria.BettingPeriodEnded {
		return false
	}
	if criteria.MinEndingSlotPast && !g.PastMinEndingSlot(currentSlot) {
		return false
	}
	if criteria.FullySubscribed && !g.FullySubscribed() {
		return false
	}
	return true
}
