package recommend

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brimstore/recsys/internal/config"
	"github.com/brimstore/recsys/pkg/models"
)

func svdConfig() *config.SVDConfig {
	return &config.SVDConfig{Factors: 2, Regularization: 0.02}
}

// blockMatrix has two disjoint taste clusters: users 1,2 buy products
// 10,11; users 3,4 buy products 20,21. User 1 has not bought 11 yet.
func blockMatrix() *InteractionMatrix {
	return BuildInteractionMatrix([]models.Interaction{
		interaction(1, 10, 5),
		interaction(2, 10, 4),
		interaction(2, 11, 5),
		interaction(3, 20, 5),
		interaction(3, 21, 4),
		interaction(4, 20, 4),
		interaction(4, 21, 5),
	})
}

func TestMatrixFactorizationTrain(t *testing.T) {
	e := NewMatrixFactorizationEngine(testLogger())

	t.Run("recovers cluster structure", func(t *testing.T) {
		factors, err := e.Train(context.Background(), blockMatrix(), svdConfig())
		require.NoError(t, err)
		e.Swap(factors)

		inCluster, ok := e.Predict(1, 11)
		require.True(t, ok)
		crossCluster, ok := e.Predict(1, 21)
		require.True(t, ok)
		assert.Greater(t, inCluster, crossCluster,
			"user 1 should prefer the unseen product from its own cluster")
	})

	t.Run("rank clamps to matrix dimensions", func(t *testing.T) {
		factors, err := e.Train(context.Background(), blockMatrix(), &config.SVDConfig{Factors: 50, Regularization: 0.02})
		require.NoError(t, err)
		assert.Equal(t, 4, factors.Rank())
	})

	t.Run("empty matrix fails", func(t *testing.T) {
		_, err := e.Train(context.Background(), BuildInteractionMatrix(nil), svdConfig())
		assert.Error(t, err)
	})

	t.Run("cancelled context aborts", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := e.Train(ctx, blockMatrix(), svdConfig())
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestMatrixFactorizationPredict(t *testing.T) {
	e := NewMatrixFactorizationEngine(testLogger())

	t.Run("no model means no prediction", func(t *testing.T) {
		_, ok := e.Predict(1, 10)
		assert.False(t, ok)
	})

	factors, err := e.Train(context.Background(), blockMatrix(), svdConfig())
	require.NoError(t, err)
	e.Swap(factors)

	t.Run("untrained user or product reports absence", func(t *testing.T) {
		_, ok := e.Predict(999, 10)
		assert.False(t, ok)
		_, ok = e.Predict(1, 999)
		assert.False(t, ok)
	})

	t.Run("predictions never go negative", func(t *testing.T) {
		for _, userID := range []int64{1, 2, 3, 4} {
			for _, productID := range []int64{10, 11, 20, 21} {
				score, ok := e.Predict(userID, productID)
				require.True(t, ok)
				assert.GreaterOrEqual(t, score, 0.0)
			}
		}
	})
}

func TestMatrixFactorizationScoreCandidates(t *testing.T) {
	e := NewMatrixFactorizationEngine(testLogger())
	m := blockMatrix()
	factors, err := e.Train(context.Background(), m, svdConfig())
	require.NoError(t, err)
	e.Swap(factors)

	t.Run("skips already-interacted products", func(t *testing.T) {
		scores := e.ScoreCandidates(1, m.Row(1))
		assert.NotContains(t, scores, int64(10))
		assert.Contains(t, scores, int64(11))
	})

	t.Run("unknown user returns nil", func(t *testing.T) {
		assert.Nil(t, e.ScoreCandidates(999, nil))
	})
}

func TestMatrixFactorizationSwap(t *testing.T) {
	e := NewMatrixFactorizationEngine(testLogger())
	assert.Nil(t, e.Factors())

	first, err := e.Train(context.Background(), blockMatrix(), svdConfig())
	require.NoError(t, err)
	e.Swap(first)
	assert.Same(t, first, e.Factors())

	second, err := e.Train(context.Background(), blockMatrix(), svdConfig())
	require.NoError(t, err)
	e.Swap(second)
	assert.Same(t, second, e.Factors(), "new reads see the swapped model")
}
