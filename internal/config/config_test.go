package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint_IdempotentOnUnchangedConfig(t *testing.T) {
	cfg := Defaults()
	f1 := cfg.Fingerprint()
	f2 := cfg.Fingerprint()
	assert.Equal(t, f1, f2)
}

func TestFingerprint_MapKeyOrderDoesNotAffectHash(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.BenchWeights = BenchWeights{3: 0.002, 1: 0.21, 0: 0.03, 2: 0.06}
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
}

func TestFingerprint_DiffersWhenValueChanges(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.HitCost = 8
	assert.NotEqual(t, a.Fingerprint(), b.Fingerprint())
}

func TestValidate_RejectsZeroHorizon(t *testing.T) {
	cfg := Defaults()
	cfg.Horizon = 0
	require.Error(t, cfg.Validate())
}

func TestValidate_RejectsDecayBaseOutOfRange(t *testing.T) {
	cfg := Defaults()
	cfg.DecayBase = 0
	require.Error(t, cfg.Validate())

	cfg.DecayBase = 1.5
	require.Error(t, cfg.Validate())

	cfg.DecayBase = 1.0
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsTwoChipsForcedSameGameweek(t *testing.T) {
	cfg := Defaults()
	cfg.UseWC = []int{5}
	cfg.UseBB = []int{5}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gameweek 5")
}

func TestValidate_AcceptsDistinctGameweeksForDifferentChips(t *testing.T) {
	cfg := Defaults()
	cfg.UseWC = []int{3}
	cfg.UseBB = []int{5}
	cfg.UseFH = []int{7}
	cfg.UseTC = []int{8}
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsOnlyWhenNoFileOrEnv(t *testing.T) {
	cfg, err := LoadConfig(LoadOptions{ConfigPaths: []string{t.TempDir()}})
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Horizon)
	assert.Equal(t, 0.9, cfg.DecayBase)
	assert.Equal(t, "highs", cfg.Solver)
}
