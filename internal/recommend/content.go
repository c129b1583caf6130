package recommend

import (
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"

	"github.com/brimstore/recsys/internal/config"
	"github.com/brimstore/recsys/pkg/models"
)

// maxRating is the upper bound of the catalog's rating scale, used to bring
// the rating feature into the same [0,1] range as the one-hot features.
const maxRating = 5.0

// ContentModel holds per-product feature vectors derived from metadata:
// one-hot category, multi-hot tags and the normalized rating. It is built
// once per snapshot and is immutable afterwards.
type ContentModel struct {
	products []int64
	vectors  map[int64][]float64
	ratings  map[int64]float64
}

// BuildContentModel derives feature vectors for the catalog. Feature
// positions are assigned from sorted category and tag names so two builds
// over the same catalog produce identical vectors.
func BuildContentModel(products []models.Product) *ContentModel {
	categorySet := make(map[string]struct{})
	tagSet := make(map[string]struct{})
	for _, p := range products {
		if p.Category != "" {
			categorySet[p.Category] = struct{}{}
		}
		for _, tag := range p.Tags {
			tagSet[tag] = struct{}{}
		}
	}

	categories := sortedKeys(categorySet)
	tags := sortedKeys(tagSet)
	categoryIdx := indexOf(categories)
	tagIdx := indexOf(tags)

	dim := len(categories) + len(tags) + 1
	cm := &ContentModel{
		products: make([]int64, 0, len(products)),
		vectors:  make(map[int64][]float64, len(products)),
		ratings:  make(map[int64]float64, len(products)),
	}

	for _, p := range products {
		vec := make([]float64, dim)
		if i, ok := categoryIdx[p.Category]; ok {
			vec[i] = 1
		}
		for _, tag := range p.Tags {
			if i, ok := tagIdx[tag]; ok {
				vec[len(categories)+i] = 1
			}
		}
		vec[dim-1] = p.Rating / maxRating

		cm.products = append(cm.products, p.ID)
		cm.vectors[p.ID] = vec
		cm.ratings[p.ID] = p.Rating
	}
	sort.Slice(cm.products, func(i, j int) bool { return cm.products[i] < cm.products[j] })

	return cm
}

// Products returns the catalog identifiers in index order.
func (cm *ContentModel) Products() []int64 { return cm.products }

// Rating returns the raw catalog rating used for tie-breaking.
func (cm *ContentModel) Rating(productID int64) float64 { return cm.ratings[productID] }

// ContentSimilarityEngine scores products against each other from metadata
// alone. Metadata always exists once a product is registered, so this
// engine has no cold-start failure mode and serves as the fallback for
// users without history.
type ContentSimilarityEngine struct {
	topK   int
	logger *logrus.Logger
}

func NewContentSimilarityEngine(cfg *config.ContentConfig, logger *logrus.Logger) *ContentSimilarityEngine {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 50
	}
	return &ContentSimilarityEngine{topK: topK, logger: logger}
}

// SimilarProducts returns the k products most similar to the query product
// by cosine over feature vectors, excluding the query itself. Ties break on
// higher raw rating, then lower identifier.
func (e *ContentSimilarityEngine) SimilarProducts(cm *ContentModel, productID int64, k int) []ScoredProduct {
	scores := e.ScoreCandidates(cm, productID)
	if scores == nil {
		return nil
	}
	if k <= 0 {
		k = e.topK
	}

	ranked := make([]ScoredProduct, 0, len(scores))
	for id, score := range scores {
		ranked = append(ranked, ScoredProduct{ProductID: id, Score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if cm.ratings[a.ProductID] != cm.ratings[b.ProductID] {
			return cm.ratings[a.ProductID] > cm.ratings[b.ProductID]
		}
		return a.ProductID < b.ProductID
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}

// ScoreCandidates computes the cosine similarity of every other product to
// the seed. A nil map means the seed is unknown to the catalog.
func (e *ContentSimilarityEngine) ScoreCandidates(cm *ContentModel, seedProductID int64) map[int64]float64 {
	seed, ok := cm.vectors[seedProductID]
	if !ok {
		return nil
	}
	seedNorm := floats.Norm(seed, 2)
	if seedNorm == 0 {
		return nil
	}

	scores := make(map[int64]float64, len(cm.products)-1)
	for _, id := range cm.products {
		if id == seedProductID {
			continue
		}
		vec := cm.vectors[id]
		norm := floats.Norm(vec, 2)
		if norm == 0 {
			continue
		}
		scores[id] = floats.Dot(seed, vec) / (seedNorm * norm)
	}

	e.logger.WithFields(logrus.Fields{
		"seed_product": seedProductID,
		"candidates":   len(scores),
	}).Debug("Content similarity candidates scored")
	return scores
}

// RecommendForNewUser seeds a list for a user with no history from the
// highest-rated products, the designated cold-start path when no anchor
// product is available.
func (e *ContentSimilarityEngine) RecommendForNewUser(cm *ContentModel, limit int) []int64 {
	ranked := make([]int64, len(cm.products))
	copy(ranked, cm.products)
	sort.Slice(ranked, func(i, j int) bool {
		if cm.ratings[ranked[i]] != cm.ratings[ranked[j]] {
			return cm.ratings[ranked[i]] > cm.ratings[ranked[j]]
		}
		return ranked[i] < ranked[j]
	})
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func indexOf(keys []string) map[string]int {
	idx := make(map[string]int, len(keys))
	for i, k := range keys {
		idx[k] = i
	}
	return idx
}
