package recommend

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brimstore/recsys/pkg/models"
)

func interaction(userID, productID int64, strength float64) models.Interaction {
	return models.Interaction{
		UserID:    userID,
		ProductID: productID,
		Strength:  strength,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildInteractionMatrix(t *testing.T) {
	t.Run("sums repeated events for the same pair", func(t *testing.T) {
		m := BuildInteractionMatrix([]models.Interaction{
			interaction(1, 10, 2),
			interaction(1, 10, 3),
			interaction(2, 10, 1),
		})

		assert.Equal(t, 5.0, m.Row(1)[10])
		assert.Equal(t, 1.0, m.Row(2)[10])
	})

	t.Run("skips non-positive strengths", func(t *testing.T) {
		m := BuildInteractionMatrix([]models.Interaction{
			interaction(1, 10, 0),
			interaction(1, 11, -2),
			interaction(1, 12, 1),
		})

		assert.Len(t, m.Row(1), 1)
		assert.Equal(t, []int64{12}, m.Products())
	})

	t.Run("assigns indices in sorted id order regardless of input order", func(t *testing.T) {
		a := BuildInteractionMatrix([]models.Interaction{
			interaction(2, 20, 1),
			interaction(1, 10, 1),
		})
		b := BuildInteractionMatrix([]models.Interaction{
			interaction(1, 10, 1),
			interaction(2, 20, 1),
		})

		assert.Equal(t, a.Users(), b.Users())
		assert.Equal(t, a.Products(), b.Products())
		assert.Equal(t, []int64{1, 2}, a.Users())
		assert.Equal(t, []int64{10, 20}, a.Products())
	})

	t.Run("unknown user row is empty", func(t *testing.T) {
		m := BuildInteractionMatrix([]models.Interaction{interaction(1, 10, 1)})

		assert.Empty(t, m.Row(99))
		assert.Zero(t, m.InteractionCount(99))
	})
}

func TestInteractionMatrixDense(t *testing.T) {
	m := BuildInteractionMatrix([]models.Interaction{
		interaction(1, 10, 2),
		interaction(2, 20, 3),
	})

	dense := m.Dense()
	rows, cols := dense.Dims()
	require.Equal(t, 2, rows)
	require.Equal(t, 2, cols)

	// Absent cells are zero-imputed.
	assert.Equal(t, 2.0, dense.At(0, 0))
	assert.Equal(t, 0.0, dense.At(0, 1))
	assert.Equal(t, 0.0, dense.At(1, 0))
	assert.Equal(t, 3.0, dense.At(1, 1))
}
