// Package handlers implements the HTTP surface over the core solve,
// sensitivity, and health operations. Grounded on the teacher's
// internal/api/handlers package: one handler struct per concern, each
// holding its own slice of dependencies (db/cache/hub/config/logger),
// wired together in cmd/server/main.go.
package handlers

import (
	"fmt"
	"strconv"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
)

// PlayerDTO is the wire shape of a domain.Player, with Projections keyed by
// gameweek number as a JSON object (Go maps with int keys don't round-trip
// through encoding/json the way string keys do).
type PlayerDTO struct {
	ID          int                      `json:"id"`
	Name        string                   `json:"name"`
	Position    string                   `json:"position"`
	TeamID      int                      `json:"team_id"`
	PriceTenths int                      `json:"price_tenths"`
	Projections map[string]ProjectionDTO `json:"projections"`
}

// ProjectionDTO mirrors domain.Projection.
type ProjectionDTO struct {
	ExpectedPoints  float64 `json:"expected_points"`
	ExpectedMinutes float64 `json:"expected_minutes"`
}

// OwnedPlayerDTO mirrors domain.OwnedPlayer.
type OwnedPlayerDTO struct {
	PlayerID      int `json:"player_id"`
	PurchasePrice int `json:"purchase_price"`
	SellingPrice  int `json:"selling_price"`
}

// UsedChipDTO mirrors domain.UsedChip.
type UsedChipDTO struct {
	Chip     string `json:"chip"`
	Gameweek int    `json:"gameweek"`
}

// ChipAvailabilityDTO mirrors domain.ChipAvailability.
type ChipAvailabilityDTO struct {
	Wildcard      bool `json:"wildcard"`
	FreeHit       bool `json:"free_hit"`
	BenchBoost    bool `json:"bench_boost"`
	TripleCaptain bool `json:"triple_captain"`
}

// SquadStateDTO mirrors domain.SquadState for JSON transport.
type SquadStateDTO struct {
	Players        []OwnedPlayerDTO    `json:"players"`
	BankTenths     int                 `json:"bank_tenths"`
	FreeTransfers  int                 `json:"free_transfers"`
	ChipsAvailable ChipAvailabilityDTO `json:"chips_available"`
	ChipsUsed      []UsedChipDTO       `json:"chips_used"`
}

// SolveRequest is the body of POST /api/v1/solve.
type SolveRequest struct {
	Players   []PlayerDTO            `json:"players"`
	Squad     SquadStateDTO          `json:"squad"`
	Gameweeks []int                  `json:"gameweeks"`
	Config    map[string]interface{} `json:"config"`
}

// SensitivityRequest is the body of POST /api/v1/sensitivity.
type SensitivityRequest struct {
	SolveRequest
	Draws          int     `json:"draws"`
	StdDevFraction float64 `json:"std_dev_fraction"`
	Workers        int     `json:"workers"`
	Seed           int64   `json:"seed"`
}

// ErrorResponse is the handlers' uniform error shape.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code"`
	Details map[string]string `json:"details,omitempty"`
}

func toDomainPlayers(dtos []PlayerDTO) ([]domain.Player, error) {
	out := make([]domain.Player, len(dtos))
	for i, d := range dtos {
		pos, err := domain.ParsePosition(d.Position)
		if err != nil {
			return nil, fmt.Errorf("player %d: %w", d.ID, err)
		}

		projections := make(map[int]domain.Projection, len(d.Projections))
		for gwStr, p := range d.Projections {
			gw, err := strconv.Atoi(gwStr)
			if err != nil {
				return nil, fmt.Errorf("player %d: invalid gameweek key %q: %w", d.ID, gwStr, err)
			}
			projections[gw] = domain.Projection{
				ExpectedPoints:  p.ExpectedPoints,
				ExpectedMinutes: p.ExpectedMinutes,
			}
		}

		out[i] = domain.Player{
			ID:          d.ID,
			Name:        d.Name,
			Position:    pos,
			TeamID:      d.TeamID,
			PriceTenths: d.PriceTenths,
			Projections: projections,
		}
	}
	return out, nil
}

func toDomainSquad(dto SquadStateDTO) (domain.SquadState, error) {
	var squad domain.SquadState
	for i, p := range dto.Players {
		if i >= len(squad.Players) {
			break
		}
		squad.Players[i] = domain.OwnedPlayer{
			PlayerID:      p.PlayerID,
			PurchasePrice: p.PurchasePrice,
			SellingPrice:  p.SellingPrice,
		}
	}
	squad.BankTenths = dto.BankTenths
	squad.FreeTransfers = dto.FreeTransfers
	squad.ChipsAvailable = domain.ChipAvailability{
		Wildcard:      dto.ChipsAvailable.Wildcard,
		FreeHit:       dto.ChipsAvailable.FreeHit,
		BenchBoost:    dto.ChipsAvailable.BenchBoost,
		TripleCaptain: dto.ChipsAvailable.TripleCaptain,
	}

	for _, u := range dto.ChipsUsed {
		chip, err := domain.ParseChip(u.Chip)
		if err != nil {
			return domain.SquadState{}, err
		}
		squad.ChipsUsed = append(squad.ChipsUsed, domain.UsedChip{Chip: chip, Gameweek: u.Gameweek})
	}
	return squad, nil
}

// resolveConfig starts from config.Defaults() and overlays req.Config's raw
// keys through the same Viper decode path LoadConfig uses, so HTTP callers
// get identical semantics to the CLI's file/env/flag overlay (§6).
func resolveConfig(req SolveRequest) (config.Config, error) {
	if len(req.Config) == 0 {
		return config.Defaults(), nil
	}
	return config.Overlay(req.Config)
}
