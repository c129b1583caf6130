package recommend

import (
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/config"
)

// Neighbor is one similar user with its cosine similarity to the query user.
type Neighbor struct {
	UserID     int64
	Similarity float64
}

// UserCFEngine predicts affinity from neighbor votes: users whose
// interaction vectors point the same way tend to want the same products.
type UserCFEngine struct {
	neighbors  int
	minOverlap int
	logger     *logrus.Logger
}

func NewUserCFEngine(cfg *config.CFConfig, logger *logrus.Logger) *UserCFEngine {
	neighbors := cfg.Neighbors
	if neighbors <= 0 {
		neighbors = 25
	}
	minOverlap := cfg.MinOverlap
	if minOverlap <= 0 {
		minOverlap = 1
	}
	return &UserCFEngine{
		neighbors:  neighbors,
		minOverlap: minOverlap,
		logger:     logger,
	}
}

// Neighbors returns the k most similar users by cosine similarity over
// interaction-strength vectors. The query user and users sharing no product
// with it are excluded: similarity is undefined there, which is not the
// same as zero. Ties break on higher interaction count, then lower user ID.
func (e *UserCFEngine) Neighbors(m *InteractionMatrix, userID int64, k int) []Neighbor {
	row := m.Row(userID)
	if len(row) == 0 {
		return nil // cold start, other engines take over
	}
	if k <= 0 {
		k = e.neighbors
	}

	rowNorm := vectorNorm(row)

	candidates := make([]Neighbor, 0)
	for _, otherID := range m.Users() {
		if otherID == userID {
			continue
		}
		other := m.Row(otherID)

		overlap := 0
		dot := 0.0
		for productID, strength := range row {
			if otherStrength, ok := other[productID]; ok {
				overlap++
				dot += strength * otherStrength
			}
		}
		if overlap < e.minOverlap {
			continue
		}

		sim := dot / (rowNorm * vectorNorm(other))
		candidates = append(candidates, Neighbor{UserID: otherID, Similarity: sim})
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		ca, cb := m.InteractionCount(a.UserID), m.InteractionCount(b.UserID)
		if ca != cb {
			return ca > cb
		}
		return a.UserID < b.UserID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// Predict is the similarity-weighted average of neighbor strengths for the
// product. The second return is false when no neighbor interacted with it;
// the blender must treat that as missing, never as a low score.
func (e *UserCFEngine) Predict(m *InteractionMatrix, userID, productID int64) (float64, bool) {
	neighbors := e.Neighbors(m, userID, e.neighbors)
	return predictFromNeighbors(m, neighbors, productID)
}

// ScoreCandidates computes neighbor-vote predictions for every product some
// neighbor interacted with and the user has not. An empty map is the
// engine's "no prediction" for the whole candidate space.
func (e *UserCFEngine) ScoreCandidates(m *InteractionMatrix, userID int64) map[int64]float64 {
	neighbors := e.Neighbors(m, userID, e.neighbors)
	if len(neighbors) == 0 {
		return nil
	}

	seen := m.Row(userID)
	scores := make(map[int64]float64)
	for _, n := range neighbors {
		for productID := range m.Row(n.UserID) {
			if _, ok := seen[productID]; ok {
				continue
			}
			if _, done := scores[productID]; done {
				continue
			}
			if score, ok := predictFromNeighbors(m, neighbors, productID); ok {
				scores[productID] = score
			}
		}
	}

	e.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"neighbors":  len(neighbors),
		"candidates": len(scores),
	}).Debug("Collaborative filtering candidates scored")
	return scores
}

func predictFromNeighbors(m *InteractionMatrix, neighbors []Neighbor, productID int64) (float64, bool) {
	var weightedSum, weightSum float64
	for _, n := range neighbors {
		if strength, ok := m.Row(n.UserID)[productID]; ok {
			weightedSum += n.Similarity * strength
			weightSum += n.Similarity
		}
	}
	if weightSum == 0 {
		return 0, false
	}
	return weightedSum / weightSum, true
}

func vectorNorm(v map[int64]float64) float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}
