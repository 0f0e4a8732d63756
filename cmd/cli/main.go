// Command fpl-optimizer-cli is the offline entry point for the solve core:
// load a player pool and squad from JSON files, solve, and print the
// resulting plan to stdout. No teacher CLI exists to ground this on, so it
// follows the cobra+viper pairing confirmed elsewhere in the retrieval pack
// (cobra.Command tree, flags bound into Viper with BindPFlag, a root
// PersistentPreRunE that loads config before any subcommand runs).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/config"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/domain"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/engine"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/filter"
	"github.com/xavier-xia-99/FPL-Optimization-Tools/internal/logging"
)

// playerFile is the on-disk shape the solve/sensitivity commands read
// players and the initial squad from.
type playerFile struct {
	Players []domain.Player   `json:"players"`
	Squad   domain.SquadState `json:"squad"`
}

func main() {
	var (
		configFile string
		playersIn  string
		gameweeks  []int
		outFile    string
	)

	var cfg config.Config

	root := &cobra.Command{
		Use:   "fpl-optimizer",
		Short: "Multi-period Fantasy Premier League squad optimizer",
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to a YAML config file (defaults layered under it)")
	root.PersistentFlags().StringVar(&playersIn, "players", "", "path to a JSON file of {players, squad}")
	root.PersistentFlags().IntSliceVar(&gameweeks, "gameweeks", nil, "gameweeks to plan across, e.g. --gameweeks=10,11,12")
	root.PersistentFlags().IntVar(&cfg.Horizon, "horizon", 0, "override the planning horizon")
	root.PersistentFlags().Float64Var(&cfg.DecayBase, "decay-base", 0, "override the objective decay base")
	root.PersistentFlags().StringVar(&cfg.Solver, "solver", "", "override the solver backend")
	root.PersistentFlags().IntVar(&cfg.TimeLimitSecs, "time-limit-secs", 0, "override the solver time limit")
	root.PersistentFlags().StringVar(&outFile, "out", "", "write the solution JSON here instead of stdout")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(config.LoadOptions{ConfigFile: configFile, Flags: cmd.Flags()})
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg = *loaded
		return cfg.Validate()
	}

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "Solve the multi-period squad-selection model once",
		RunE: func(cmd *cobra.Command, args []string) error {
			players, squad, err := loadPlayerFile(playersIn)
			if err != nil {
				return err
			}
			gws := gameweeks
			if len(gws) == 0 {
				gws = defaultGameweeks(cfg.Horizon)
			}

			filtered := filter.Apply(players, filter.Options{
				Owned:            ownedIDs(squad),
				Locked:           cfg.Locked,
				Keep:             cfg.Keep,
				Banned:           cfg.Banned,
				KeepTopEVPercent: cfg.KeepTopEVPercent,
				XMinLB:           cfg.XMinLB,
				EVPerPriceCutoff: cfg.EVPerPriceCutoff,
				Gameweeks:        gws,
			})
			for _, d := range filtered.Diagnostics {
				logging.Root().Warn(d)
			}

			sol, err := engine.Solve(context.Background(), filtered.Players, squad, cfg, gws)
			if err != nil {
				return fmt.Errorf("solve: %w", err)
			}
			return writeSolution(sol, outFile)
		},
	}

	iterateCmd := &cobra.Command{
		Use:   "iterate",
		Short: "Solve the model across num_iterations alternative solutions",
		RunE: func(cmd *cobra.Command, args []string) error {
			players, squad, err := loadPlayerFile(playersIn)
			if err != nil {
				return err
			}
			gws := gameweeks
			if len(gws) == 0 {
				gws = defaultGameweeks(cfg.Horizon)
			}

			solutions, err := engine.RunIterations(context.Background(), players, squad, cfg, gws)
			if err != nil {
				return fmt.Errorf("iterate: %w", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(solutions)
		},
	}

	root.AddCommand(solveCmd, iterateCmd)

	if err := root.Execute(); err != nil {
		logging.Root().WithError(err).Fatal("fpl-optimizer-cli failed")
	}
}

func loadPlayerFile(path string) ([]domain.Player, domain.SquadState, error) {
	if path == "" {
		return nil, domain.SquadState{}, fmt.Errorf("--players is required")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.SquadState{}, fmt.Errorf("reading %s: %w", path, err)
	}
	var pf playerFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return nil, domain.SquadState{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pf.Players, pf.Squad, nil
}

func writeSolution(sol domain.Solution, outFile string) error {
	data, err := json.MarshalIndent(sol, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding solution: %w", err)
	}
	if outFile == "" {
		fmt.Println(string(data))
		return nil
	}
	return os.WriteFile(outFile, data, 0o644)
}

func ownedIDs(squad domain.SquadState) []int {
	out := make([]int, 0, len(squad.Players))
	for _, p := range squad.Players {
		if p.PlayerID != 0 {
			out = append(out, p.PlayerID)
		}
	}
	return out
}

func defaultGameweeks(horizon int) []int {
	if horizon <= 0 {
		horizon = 1
	}
	gws := make([]int, horizon)
	for i := range gws {
		gws[i] = i + 1
	}
	return gws
}
