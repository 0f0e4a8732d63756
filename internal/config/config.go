// Package config holds the typed, immutable Config the rest of the solve
// pipeline is built around (§6 of spec.md), loaded through Viper the way
// the teacher's pkg/config.LoadConfig loads service configuration: a block
// of defaults, an optional config file, environment variables, and finally
// command-line flags (bound by cmd/cli), in that ascending order of
// precedence.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// BenchWeights maps a bench slot (0-3) to its objective weight.
type BenchWeights map[int]float64

// FTValueList maps a free-transfer state (2..5, per §4.4's ft_value_list)
// to its objective value.
type FTValueList map[int]float64

// ChipLimits caps how many times each chip may be activated across the
// horizon.
type ChipLimits struct {
	Wildcard      int `mapstructure:"wildcard"`
	FreeHit       int `mapstructure:"free_hit"`
	BenchBoost    int `mapstructure:"bench_boost"`
	TripleCaptain int `mapstructure:"triple_captain"`
}

// BookedTransfer is a transfer the caller has already committed to making
// in a given gameweek (forces transfer_in/transfer_out equalities).
type BookedTransfer struct {
	PlayerID   int    `mapstructure:"player_id"`
	Gameweek   int    `mapstructure:"gameweek"`
	Direction  string `mapstructure:"direction"` // "in" or "out"
}

// Config is the full, typed configuration accepted by the core (§6).
// Every field recognised by spec.md is represented here; defaults are
// registered in LoadConfig.
type Config struct {
	Horizon    int     `mapstructure:"horizon"`
	DecayBase  float64 `mapstructure:"decay_base"`

	BenchWeights BenchWeights `mapstructure:"bench_weights"`
	VCapWeight   float64      `mapstructure:"vcap_weight"`
	FTValueList  FTValueList  `mapstructure:"ft_value_list"`
	ITBValue     float64      `mapstructure:"itb_value"`
	HitCost      float64      `mapstructure:"hit_cost"`

	Banned []int `mapstructure:"banned"`
	Locked []int `mapstructure:"locked"`
	Keep   []int `mapstructure:"keep"`

	NoTransferLastGWs int              `mapstructure:"no_transfer_last_gws"`
	HitLimit          int              `mapstructure:"hit_limit"`
	WeeklyHitLimit    int              `mapstructure:"weekly_hit_limit"`
	BookedTransfers   []BookedTransfer `mapstructure:"booked_transfers"`

	UseWC []int `mapstructure:"use_wc"`
	UseBB []int `mapstructure:"use_bb"`
	UseFH []int `mapstructure:"use_fh"`
	UseTC []int `mapstructure:"use_tc"`

	ChipLimits ChipLimits `mapstructure:"chip_limits"`

	XMinLB             float64 `mapstructure:"xmin_lb"`
	EVPerPriceCutoff    float64 `mapstructure:"ev_per_price_cutoff"`
	KeepTopEVPercent    float64 `mapstructure:"keep_top_ev_percent"`

	Solver          string  `mapstructure:"solver"`
	TimeLimitSecs   int     `mapstructure:"time_limit_secs"`
	OptimalityGap   float64 `mapstructure:"optimality_gap"`
	RandomSeed      int64   `mapstructure:"random_seed"`

	NumIterations int `mapstructure:"num_iterations"`
}

// Defaults mirrors the bracketed defaults of §6 of spec.md.
func Defaults() Config {
	return Config{
		Horizon:   8,
		DecayBase: 0.9,
		BenchWeights: BenchWeights{
			0: 0.03,
			1: 0.21,
			2: 0.06,
			3: 0.002,
		},
		VCapWeight: 0.1,
		FTValueList: FTValueList{
			2: 2.0,
			3: 1.6,
			4: 1.3,
			5: 1.1,
		},
		ITBValue:          0.08,
		HitCost:           4,
		NoTransferLastGWs: 2,
		WeeklyHitLimit:    0,
		XMinLB:            300,
		EVPerPriceCutoff:  30,
		KeepTopEVPercent:  5,
		Solver:            "highs",
		TimeLimitSecs:     600,
		OptimalityGap:     0.0,
		NumIterations:     1,
	}
}

func registerDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("horizon", d.Horizon)
	v.SetDefault("decay_base", d.DecayBase)
	v.SetDefault("bench_weights", map[string]float64{"0": 0.03, "1": 0.21, "2": 0.06, "3": 0.002})
	v.SetDefault("vcap_weight", d.VCapWeight)
	v.SetDefault("ft_value_list", map[string]float64{"2": 2.0, "3": 1.6, "4": 1.3, "5": 1.1})
	v.SetDefault("itb_value", d.ITBValue)
	v.SetDefault("hit_cost", d.HitCost)
	v.SetDefault("no_transfer_last_gws", d.NoTransferLastGWs)
	v.SetDefault("weekly_hit_limit", d.WeeklyHitLimit)
	v.SetDefault("xmin_lb", d.XMinLB)
	v.SetDefault("ev_per_price_cutoff", d.EVPerPriceCutoff)
	v.SetDefault("keep_top_ev_percent", d.KeepTopEVPercent)
	v.SetDefault("solver", d.Solver)
	v.SetDefault("time_limit_secs", d.TimeLimitSecs)
	v.SetDefault("optimality_gap", d.OptimalityGap)
	v.SetDefault("num_iterations", d.NumIterations)
}

// LoadOptions controls where LoadConfig looks for overlay layers.
type LoadOptions struct {
	// ConfigFile is an optional explicit path; if empty, Viper searches
	// the configured name ("fpl-optimizer") in ConfigPaths.
	ConfigFile  string
	ConfigPaths []string
	// Flags, when non-nil, is bound last so command-line flags win over
	// file and environment values (cmd/cli passes cmd.Flags() here).
	Flags *pflag.FlagSet
}

// LoadConfig builds a Config from defaults, optionally overlaid by a config
// file, environment variables (FPL_* prefix), and bound flags, in that
// ascending precedence order -- the layered "priority stack" of §9 of
// spec.md, expressed through Viper's native precedence rather than a
// hand-rolled merge loop.
func LoadConfig(opts LoadOptions) (*Config, error) {
	v := viper.New()
	registerDefaults(v)

	v.SetEnvPrefix("FPL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("fpl-optimizer")
		v.SetConfigType("yaml")
		if len(opts.ConfigPaths) == 0 {
			v.AddConfigPath(".")
		}
		for _, p := range opts.ConfigPaths {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: reading config file: %w", err)
		}
	}

	if opts.Flags != nil {
		// Flag names are hyphenated ("decay-base"); config keys use
		// underscores ("decay_base").
		var bindErr error
		opts.Flags.VisitAll(func(f *pflag.Flag) {
			if err := v.BindPFlag(strings.ReplaceAll(f.Name, "-", "_"), f); err != nil && bindErr == nil {
				bindErr = err
			}
		})
		if bindErr != nil {
			return nil, fmt.Errorf("config: binding flags: %w", bindErr)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decoding: %w", err)
	}

	return &cfg, nil
}

// Overlay decodes a raw key/value map (typically an HTTP request body's
// "config" object) on top of Defaults(), through the same Viper/
// mapstructure path LoadConfig uses, so a request overlay and a YAML file
// overlay behave identically.
func Overlay(raw map[string]interface{}) (Config, error) {
	v := viper.New()
	registerDefaults(v)
	for k, val := range raw {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decoding overlay: %w", err)
	}
	return cfg, nil
}

// Fingerprint returns a stable hash of the config's canonical serialisation
// (§3: "a stable hash of the canonical serialisation"). Map-valued fields
// are serialised with sorted keys so the fingerprint is independent of Go's
// randomised map iteration order, giving the idempotence law of §8: calling
// Fingerprint twice on an unchanged Config (or on two configs that decode
// to the same values) always yields the same string.
func (c Config) Fingerprint() string {
	canon := c.canonicalForm()
	b, _ := json.Marshal(canon)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// canonicalForm produces a deterministically ordered representation of the
// config suitable for hashing: slices are copied verbatim (order is
// semantically significant for e.g. Banned), and the few map fields are
// turned into sorted key/value pairs.
func (c Config) canonicalForm() map[string]any {
	sortedFloatMap := func(m map[int]float64) [][2]any {
		keys := make([]int, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		out := make([][2]any, 0, len(keys))
		for _, k := range keys {
			out = append(out, [2]any{k, m[k]})
		}
		return out
	}

	return map[string]any{
		"horizon":              c.Horizon,
		"decay_base":           c.DecayBase,
		"bench_weights":        sortedFloatMap(c.BenchWeights),
		"vcap_weight":          c.VCapWeight,
		"ft_value_list":        sortedFloatMap(c.FTValueList),
		"itb_value":            c.ITBValue,
		"hit_cost":             c.HitCost,
		"banned":               c.Banned,
		"locked":               c.Locked,
		"keep":                 c.Keep,
		"no_transfer_last_gws": c.NoTransferLastGWs,
		"hit_limit":            c.HitLimit,
		"weekly_hit_limit":     c.WeeklyHitLimit,
		"booked_transfers":     c.BookedTransfers,
		"use_wc":               c.UseWC,
		"use_bb":               c.UseBB,
		"use_fh":               c.UseFH,
		"use_tc":               c.UseTC,
		"chip_limits":          c.ChipLimits,
		"xmin_lb":              c.XMinLB,
		"ev_per_price_cutoff":  c.EVPerPriceCutoff,
		"keep_top_ev_percent":  c.KeepTopEVPercent,
		"solver":               c.Solver,
		"time_limit_secs":      c.TimeLimitSecs,
		"optimality_gap":       c.OptimalityGap,
		"random_seed":          c.RandomSeed,
		"num_iterations":       c.NumIterations,
	}
}

// Validate enforces the ConfigError-raising checks of §7: out-of-range
// values and contradictory forced-chip schedules (two chips forced in the
// same gameweek).
func (c Config) Validate() error {
	if c.Horizon < 1 {
		return fmt.Errorf("config: horizon must be >= 1, got %d", c.Horizon)
	}
	if c.DecayBase <= 0 || c.DecayBase > 1 {
		return fmt.Errorf("config: decay_base must be in (0,1], got %v", c.DecayBase)
	}
	if c.NumIterations < 1 {
		return fmt.Errorf("config: num_iterations must be >= 1, got %d", c.NumIterations)
	}

	forced := map[int][]string{}
	add := func(gws []int, name string) {
		for _, gw := range gws {
			forced[gw] = append(forced[gw], name)
		}
	}
	add(c.UseWC, "wildcard")
	add(c.UseBB, "bench_boost")
	add(c.UseFH, "free_hit")
	add(c.UseTC, "triple_captain")

	for gw, chips := range forced {
		if len(chips) > 1 {
			return fmt.Errorf("config: gameweek %d forces more than one chip: %v", gw, chips)
		}
	}
	return nil
}
