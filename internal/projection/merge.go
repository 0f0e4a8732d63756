// Package projection implements the Projection Loader/Merger (§4.1): it
// joins one or more weighted external projection sources against the
// authoritative player list and produces the uniform domain.Player set the
// rest of the pipeline builds on.
package projection

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/apperrors"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/logging"
)

// AuthoritativeRecord is one row of the authoritative player list: id,
// name, position, team, and current price. It carries no projections of
// its own.
type AuthoritativeRecord struct {
	ID          int
	Name        string
	Position    domain.Position
	TeamID      int
	PriceTenths int
}

// SourceRow is a single (player, gameweek) projection reading from one
// source.
type SourceRow struct {
	PlayerID int
	Gameweek int
	Pts      float64
	XMins    float64
}

// Source is one weighted projection table. Rows for players absent from
// the authoritative list are dropped with a diagnostic, per §4.1.
type Source struct {
	Name   string
	Weight float64
	Rows   []SourceRow
}

// Diagnostic is a single non-fatal note raised while merging (an unknown
// player id in a projection source).
type Diagnostic struct {
	Source   string
	PlayerID int
	Reason   string
}

// Merge joins the authoritative list with the configured sources, for the
// given set of horizon gameweeks. Every authoritative player appears
// exactly once in the output, with a materialised (possibly zero)
// projection entry for each gameweek in gameweeks. The merged value per
// (player, gameweek, field) is the weighted average Σ wᵢ·valueᵢ / W — see
// §4.1's linearity law: a single source with weight 1 reproduces its input
// unchanged.
func Merge(authoritative []AuthoritativeRecord, sources []Source, gameweeks []int) ([]domain.Player, []Diagnostic, error) {
	if len(sources) == 0 {
		return nil, nil, &apperrors.DataError{Reason: "no projection sources configured"}
	}

	totalWeight := 0.0
	for _, s := range sources {
		totalWeight += s.Weight
	}
	if totalWeight <= 0 {
		return nil, nil, &apperrors.DataError{Reason: "projection source weights sum to <= 0"}
	}

	byID := make(map[int]*domain.Player, len(authoritative))
	players := make([]domain.Player, len(authoritative))
	for i, rec := range authoritative {
		players[i] = domain.Player{
			ID:          rec.ID,
			Name:        rec.Name,
			Position:    rec.Position,
			TeamID:      rec.TeamID,
			PriceTenths: rec.PriceTenths,
			Projections: make(map[int]domain.Projection, len(gameweeks)),
		}
		for _, gw := range gameweeks {
			players[i].Projections[gw] = domain.Projection{}
		}
		byID[rec.ID] = &players[i]
	}

	// weightedSum accumulates Σ wᵢ·valueᵢ per (player, gameweek); divided by
	// totalWeight at the end. Indexed by player id then gameweek to keep the
	// accumulation independent per field, as the contract requires.
	type accum struct {
		pts, mins float64
	}
	sums := make(map[int]map[int]accum, len(authoritative))

	var diagnostics []Diagnostic
	log := logging.Root()

	for _, src := range sources {
		if src.Weight <= 0 {
			continue
		}
		for _, row := range src.Rows {
			if _, ok := byID[row.PlayerID]; !ok {
				diagnostics = append(diagnostics, Diagnostic{
					Source:   src.Name,
					PlayerID: row.PlayerID,
					Reason:   "unknown player id, dropped",
				})
				log.WithFields(logrus.Fields{
					"source":    src.Name,
					"player_id": row.PlayerID,
				}).Warn("projection: unknown player id dropped")
				continue
			}
			byGW, ok := sums[row.PlayerID]
			if !ok {
				byGW = make(map[int]accum)
				sums[row.PlayerID] = byGW
			}
			a := byGW[row.Gameweek]
			a.pts += src.Weight * row.Pts
			a.mins += src.Weight * row.XMins
			byGW[row.Gameweek] = a
		}
	}

	for playerID, byGW := range sums {
		p := byID[playerID]
		for gw, a := range byGW {
			if _, inHorizon := p.Projections[gw]; !inHorizon {
				continue
			}
			p.Projections[gw] = domain.Projection{
				ExpectedPoints:  a.pts / totalWeight,
				ExpectedMinutes: a.mins / totalWeight,
			}
		}
	}

	return players, diagnostics, nil
}

// RequireColumns is a defensive pre-check a caller (CSV/HTTP collaborator)
// runs before constructing Source.Rows: it is the fatal DataError::
// MissingColumn path of §4.1, kept here because the merge algorithm itself
// has no notion of "columns" once rows are materialised.
func RequireColumns(present map[string]bool, required ...string) error {
	for _, col := range required {
		if !present[col] {
			return &apperrors.DataError{
				Field:  col,
				Reason: fmt.Sprintf("missing required column %q", col),
			}
		}
	}
	return nil
}
