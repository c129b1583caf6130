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

func contentEngine(t *testing.T) *ContentSimilarityEngine {
	t.Helper()
	return NewContentSimilarityEngine(&config.ContentConfig{TopK: 50}, testLogger())
}

func catalogFixture() []models.Product {
	return []models.Product{
		{ID: 1, Name: "Trail Boots", Category: "footwear", Tags: []string{"outdoor", "hiking"}, Rating: 4.5},
		{ID: 2, Name: "Running Shoes", Category: "footwear", Tags: []string{"outdoor", "running"}, Rating: 4.0},
		{ID: 3, Name: "Espresso Maker", Category: "kitchen", Tags: []string{"coffee"}, Rating: 4.8},
		{ID: 4, Name: "Wool Socks", Category: "footwear", Tags: []string{"hiking"}, Rating: 3.2},
	}
}

func TestBuildContentModel(t *testing.T) {
	cm := BuildContentModel(catalogFixture())

	assert.Equal(t, []int64{1, 2, 3, 4}, cm.Products())
	assert.Equal(t, 4.5, cm.Rating(1))

	t.Run("feature assignment is order independent", func(t *testing.T) {
		reversed := catalogFixture()
		for i, j := 0, len(reversed)-1; i < j; i, j = i+1, j-1 {
			reversed[i], reversed[j] = reversed[j], reversed[i]
		}
		other := BuildContentModel(reversed)
		assert.Equal(t, cm.vectors, other.vectors)
	})
}

func TestContentSimilarProducts(t *testing.T) {
	cm := BuildContentModel(catalogFixture())
	e := contentEngine(t)

	t.Run("shared category and tags beat unrelated products", func(t *testing.T) {
		ranked := e.SimilarProducts(cm, 1, 3)
		require.Len(t, ranked, 3)
		assert.Equal(t, int64(4), ranked[0].ProductID, "same category, fully shared tags ranks first")
		assert.Equal(t, int64(2), ranked[1].ProductID)
		assert.Equal(t, int64(3), ranked[2].ProductID, "different category with no shared tag ranks last")
	})

	t.Run("excludes the query product", func(t *testing.T) {
		for _, sp := range e.SimilarProducts(cm, 1, 10) {
			assert.NotEqual(t, int64(1), sp.ProductID)
		}
	})

	t.Run("unknown product yields nothing", func(t *testing.T) {
		assert.Empty(t, e.SimilarProducts(cm, 999, 5))
	})
}

func TestContentScoreCandidates(t *testing.T) {
	cm := BuildContentModel(catalogFixture())
	e := contentEngine(t)

	scores := e.ScoreCandidates(cm, 1)
	require.NotNil(t, scores)
	assert.NotContains(t, scores, int64(1))
	assert.Greater(t, scores[2], scores[3], "closer metadata means higher cosine")

	assert.Nil(t, e.ScoreCandidates(cm, 999), "unknown seed is a cold start")

	t.Run("records the candidate count at debug level", func(t *testing.T) {
		logger, hook := logtest.NewNullLogger()
		logger.SetLevel(logrus.DebugLevel)
		debugged := NewContentSimilarityEngine(&config.ContentConfig{TopK: 50}, logger)

		debugged.ScoreCandidates(cm, 1)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, logrus.DebugLevel, entry.Level)
		assert.Equal(t, int64(1), entry.Data["seed_product"])
		assert.Equal(t, 3, entry.Data["candidates"])
	})
}

func TestContentRecommendForNewUser(t *testing.T) {
	cm := BuildContentModel(catalogFixture())
	e := contentEngine(t)

	t.Run("orders by rating descending", func(t *testing.T) {
		got := e.RecommendForNewUser(cm, 3)
		assert.Equal(t, []int64{3, 1, 2}, got)
	})

	t.Run("equal ratings break on lower id", func(t *testing.T) {
		flat := BuildContentModel([]models.Product{
			{ID: 7, Category: "a", Rating: 4.0},
			{ID: 5, Category: "b", Rating: 4.0},
			{ID: 6, Category: "c", Rating: 4.0},
		})
		assert.Equal(t, []int64{5, 6, 7}, e.RecommendForNewUser(flat, 10))
	})

	t.Run("limit larger than catalog returns everything", func(t *testing.T) {
		assert.Len(t, e.RecommendForNewUser(cm, 100), 4)
	})
}
