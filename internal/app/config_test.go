package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/granary-erp/granary-erp/internal/testing/guard"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.AppAddr)
	require.Equal(t, 3, cfg.PaddyBagsPerQuintal)
	require.False(t, cfg.IsProduction())
}

func TestLoadConfigRejectsNonPositiveRatio(t *testing.T) {
	t.Setenv("PRODUCTION_PADDY_BAGS_PER_QUINTAL", "0")
	_, err := LoadConfig()
	require.Error(t, err)

	t.Setenv("PRODUCTION_PADDY_BAGS_PER_QUINTAL", "-2")
	_, err = LoadConfig()
	require.Error(t, err)
}

func TestInTestModeFlag(t *testing.T) {
	// The guard import forces GRANARY_TEST_MODE on for the package tests.
	RefreshTestMode()
	require.True(t, InTestMode())
}
