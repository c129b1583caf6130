package recommend

import (
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brimstore/recsys/internal/config"
	"github.com/brimstore/recsys/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func cfEngine(t *testing.T) *UserCFEngine {
	t.Helper()
	return NewUserCFEngine(&config.CFConfig{Neighbors: 25, MinOverlap: 1}, testLogger())
}

func TestUserCFNeighbors(t *testing.T) {
	// User 1 and user 2 bought the same product with equal strength, so
	// their vectors are parallel. User 3 shares nothing with user 1.
	m := BuildInteractionMatrix([]models.Interaction{
		interaction(1, 10, 2),
		interaction(2, 10, 2),
		interaction(3, 30, 5),
	})
	e := cfEngine(t)

	t.Run("ranks co-purchasers by cosine similarity", func(t *testing.T) {
		neighbors := e.Neighbors(m, 1, 10)
		require.Len(t, neighbors, 1)
		assert.Equal(t, int64(2), neighbors[0].UserID)
		assert.InDelta(t, 1.0, neighbors[0].Similarity, 1e-9)
	})

	t.Run("excludes users with no shared product", func(t *testing.T) {
		for _, n := range e.Neighbors(m, 1, 10) {
			assert.NotEqual(t, int64(3), n.UserID)
		}
	})

	t.Run("cold start user has no neighbors", func(t *testing.T) {
		assert.Nil(t, e.Neighbors(m, 99, 10))
	})

	t.Run("equal similarity breaks on interaction count then lower id", func(t *testing.T) {
		// Strengths are Pythagorean so every norm is an exact integer and
		// the cosines come out bit-identical. Against user 1's vector {10:1}:
		// user 2 has norm 13 and similarity 5/13, user 3 has norm 65 and
		// similarity 25/65 = 5/13, user 4 mirrors user 2 exactly. User 3
		// wins the tie on interaction count, then user 2 beats user 4 on ID.
		tied := BuildInteractionMatrix([]models.Interaction{
			interaction(1, 10, 1),
			interaction(2, 10, 5),
			interaction(2, 20, 12),
			interaction(3, 10, 25),
			interaction(3, 30, 48),
			interaction(3, 40, 36),
			interaction(4, 10, 5),
			interaction(4, 50, 12),
		})
		neighbors := e.Neighbors(tied, 1, 10)
		require.Len(t, neighbors, 3)
		assert.InDelta(t, 5.0/13.0, neighbors[0].Similarity, 1e-12)
		assert.Equal(t, int64(3), neighbors[0].UserID, "more interactions wins the similarity tie")
		assert.Equal(t, int64(2), neighbors[1].UserID, "lower id wins when counts tie too")
		assert.Equal(t, int64(4), neighbors[2].UserID)
	})

	t.Run("min overlap filters weak matches", func(t *testing.T) {
		strict := NewUserCFEngine(&config.CFConfig{Neighbors: 25, MinOverlap: 2}, testLogger())
		neighbors := strict.Neighbors(m, 1, 10)
		assert.Empty(t, neighbors)
	})
}

func TestUserCFPredict(t *testing.T) {
	m := BuildInteractionMatrix([]models.Interaction{
		interaction(1, 10, 2),
		interaction(2, 10, 2),
		interaction(2, 20, 4),
	})
	e := cfEngine(t)

	t.Run("predicts neighbor strength for unseen product", func(t *testing.T) {
		score, ok := e.Predict(m, 1, 20)
		require.True(t, ok)
		assert.InDelta(t, 4.0, score, 1e-9)
	})

	t.Run("no neighbor vote means no prediction, not zero", func(t *testing.T) {
		_, ok := e.Predict(m, 1, 999)
		assert.False(t, ok)
	})
}

func TestUserCFScoreCandidates(t *testing.T) {
	m := BuildInteractionMatrix([]models.Interaction{
		interaction(1, 10, 2),
		interaction(2, 10, 2),
		interaction(2, 20, 4),
		interaction(2, 30, 1),
	})
	e := cfEngine(t)

	t.Run("scores neighbor products the user has not seen", func(t *testing.T) {
		scores := e.ScoreCandidates(m, 1)
		assert.Contains(t, scores, int64(20))
		assert.Contains(t, scores, int64(30))
		assert.NotContains(t, scores, int64(10), "already-interacted products are never candidates")
	})

	t.Run("cold start returns nil", func(t *testing.T) {
		assert.Nil(t, e.ScoreCandidates(m, 99))
	})

	t.Run("records neighbor and candidate counts at debug level", func(t *testing.T) {
		logger, hook := logtest.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		debugged := NewUserCFEngine(&config.CFConfig{Neighbors: 25, MinOverlap: 1}, logger)

		debugged.ScoreCandidates(m, 1)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.DebugLevel, entry.Level)
		assert.Equal(t, int64(1), entry.Data["user_id"])
		assert.Equal(t, 1, entry.Data["neighbors"])
		assert.Equal(t, 2, entry.Data["candidates"])
	})
}
