package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Mode)

	weights := cfg.Recommendation.Weights
	assert.Equal(t, 0.5, weights.CF)
	assert.Equal(t, 0.3, weights.Content)
	assert.Equal(t, 0.2, weights.SVD)
	assert.InDelta(t, 1.0, weights.CF+weights.Content+weights.SVD, 1e-9)

	assert.Equal(t, 25, cfg.Recommendation.CF.Neighbors)
	assert.Equal(t, 50, cfg.Recommendation.SVD.Factors)
	assert.Positive(t, cfg.Recommendation.CacheTTL)
	assert.Positive(t, cfg.Recommendation.RetrainInterval)
	assert.NotEmpty(t, cfg.Recommendation.ContextRules)
}
