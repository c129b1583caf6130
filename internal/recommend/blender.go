package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/config"
	"github.com/brimstore/recsys/pkg/models"
)

// BlendWeights are the fixed per-engine weights of the hybrid blend. A
// candidate's blended score is the weighted average over the engines that
// produced a score for it; engines reporting "no prediction" are excluded
// from both numerator and denominator, never counted as zero.
type BlendWeights struct {
	CF      float64
	Content float64
	SVD     float64
}

func weightsFromConfig(cfg *config.WeightsConfig) BlendWeights {
	w := BlendWeights{CF: cfg.CF, Content: cfg.Content, SVD: cfg.SVD}
	if w.CF == 0 && w.Content == 0 && w.SVD == 0 {
		w = BlendWeights{CF: 0.5, Content: 0.3, SVD: 0.2}
	}
	return w
}

// candidateScore carries one candidate through blend, adjust and sort.
type candidateScore struct {
	productID int64
	blended   float64
	adjusted  float64
	signals   []models.Signal
}

// HybridBlender merges the three scorers and the contextual adjuster into
// one ranked list. All per-request state is read-only against the snapshot
// it loads at entry; the only mutable state is the contribution journal
// that backs Explain.
type HybridBlender struct {
	hub      *DataHub
	cf       *UserCFEngine
	content  *ContentSimilarityEngine
	mf       *MatrixFactorizationEngine
	adjuster *ContextualAdjuster
	weights  BlendWeights
	logger   *logrus.Logger

	mu            sync.RWMutex
	contributions map[int64]map[int64][]models.Signal
}

func NewHybridBlender(
	hub *DataHub,
	cf *UserCFEngine,
	content *ContentSimilarityEngine,
	mf *MatrixFactorizationEngine,
	adjuster *ContextualAdjuster,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *HybridBlender {
	return &HybridBlender{
		hub:           hub,
		cf:            cf,
		content:       content,
		mf:            mf,
		adjuster:      adjuster,
		weights:       weightsFromConfig(&cfg.Weights),
		logger:        logger,
		contributions: make(map[int64]map[int64][]models.Signal),
	}
}

// Recommend produces the ranked list for one user and context.
//
// Ordering is fully deterministic for a fixed snapshot: adjusted score
// descending, then pre-adjustment blended score, then lowest product
// identifier. When every engine reports "no prediction" for every
// candidate the global popularity ranking takes over and each result is
// marked as a popular-item fallback.
//
// Every engine proposes only products the user has not interacted with;
// already-interacted products re-enter solely through popularity padding.
func (b *HybridBlender) Recommend(ctx context.Context, userID int64, limit int, sig models.ContextSignature) (*models.RecommendationResult, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be a positive integer, got %d", ErrInvalidArgument, limit)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	snap, err := b.hub.Snapshot()
	if err != nil {
		return nil, err
	}

	start := time.Now()

	var cfScores, contentScores, svdScores map[int64]float64
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		cfScores = b.cf.ScoreCandidates(snap.Matrix, userID)
	}()
	go func() {
		defer wg.Done()
		seed, ok := snap.LastProduct[userID]
		if !ok {
			return
		}
		contentScores = b.content.ScoreCandidates(snap.Content, seed)
		// The content engine only knows the seed; drop the rest of the
		// user's history here so every engine proposes unseen products.
		for productID := range snap.Matrix.Row(userID) {
			delete(contentScores, productID)
		}
	}()
	go func() {
		defer wg.Done()
		svdScores = b.mf.ScoreCandidates(userID, snap.Matrix.Row(userID))
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfScores = normalizeScores(cfScores)
	contentScores = normalizeScores(contentScores)
	svdScores = normalizeScores(svdScores)

	candidates := b.blend(cfScores, contentScores, svdScores)
	if len(candidates) == 0 {
		return b.popularityFallback(snap, userID, limit), nil
	}

	blended := make(map[int64]float64, len(candidates))
	for id, c := range candidates {
		blended[id] = c.blended
	}
	adjusted := b.adjuster.Adjust(blended, sig, snap.Products)
	for id, c := range candidates {
		c.adjusted = adjusted[id]
		if c.adjusted != c.blended {
			c.signals = append(c.signals, models.SignalContext)
		}
	}

	ranked := make([]*candidateScore, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, c)
	}
	sort.Slice(ranked, func(i, j int) bool {
		a, c := ranked[i], ranked[j]
		if a.adjusted != c.adjusted {
			return a.adjusted > c.adjusted
		}
		if a.blended != c.blended {
			return a.blended > c.blended
		}
		return a.productID < c.productID
	})

	journal := make(map[int64][]models.Signal, len(ranked))
	for _, c := range ranked {
		journal[c.productID] = c.signals
	}

	result := &models.RecommendationResult{
		UserID:      userID,
		GeneratedAt: time.Now(),
	}
	for _, c := range ranked {
		if len(result.Items) == limit {
			break
		}
		result.Items = append(result.Items, models.RecommendedProduct{
			ProductID: c.productID,
			Score:     c.adjusted,
			Signals:   c.signals,
		})
	}

	// Users with history are still owed min(limit, catalog) items; pad from
	// the popularity ranking when the engines produced too few candidates.
	if len(result.Items) < limit {
		present := make(map[int64]struct{}, len(result.Items))
		for _, item := range result.Items {
			present[item.ProductID] = struct{}{}
		}
		for _, p := range snap.Popularity {
			if len(result.Items) == limit {
				break
			}
			if _, ok := present[p.ProductID]; ok {
				continue
			}
			result.Items = append(result.Items, models.RecommendedProduct{
				ProductID: p.ProductID,
				Signals:   []models.Signal{models.SignalPopularity},
			})
			journal[p.ProductID] = []models.Signal{models.SignalPopularity}
		}
	}

	b.recordContributions(userID, journal)

	blendDuration.Observe(time.Since(start).Seconds())
	b.logger.WithFields(logrus.Fields{
		"user_id":    userID,
		"candidates": len(candidates),
		"returned":   len(result.Items),
		"context":    sig.Canonical(),
	}).Debug("Recommendations blended")

	return result, nil
}

// blend combines the normalized per-engine scores into candidates. An
// engine that produced no score for a candidate contributes neither weight
// nor value.
func (b *HybridBlender) blend(cfScores, contentScores, svdScores map[int64]float64) map[int64]*candidateScore {
	type source struct {
		scores map[int64]float64
		weight float64
		signal models.Signal
	}
	sources := []source{
		{cfScores, b.weights.CF, models.SignalCF},
		{contentScores, b.weights.Content, models.SignalContent},
		{svdScores, b.weights.SVD, models.SignalSVD},
	}

	type accumulator struct {
		weightedSum float64
		weightSum   float64
		signals     []models.Signal
	}
	acc := make(map[int64]*accumulator)
	for _, src := range sources {
		if src.weight == 0 {
			continue
		}
		for productID, score := range src.scores {
			a := acc[productID]
			if a == nil {
				a = &accumulator{}
				acc[productID] = a
			}
			a.weightedSum += src.weight * score
			a.weightSum += src.weight
			a.signals = append(a.signals, src.signal)
		}
	}

	candidates := make(map[int64]*candidateScore, len(acc))
	for productID, a := range acc {
		score := a.weightedSum / a.weightSum
		candidates[productID] = &candidateScore{
			productID: productID,
			blended:   score,
			adjusted:  score,
			signals:   a.signals,
		}
	}
	return candidates
}

// popularityFallback serves the total cold-start case: no engine had any
// prediction, so rank globally by interaction count then rating.
func (b *HybridBlender) popularityFallback(snap *Snapshot, userID int64, limit int) *models.RecommendationResult {
	result := &models.RecommendationResult{
		UserID:      userID,
		GeneratedAt: time.Now(),
	}
	journal := make(map[int64][]models.Signal)
	for _, p := range snap.Popularity {
		if len(result.Items) == limit {
			break
		}
		result.Items = append(result.Items, models.RecommendedProduct{
			ProductID: p.ProductID,
			Score:     p.Score,
			Signals:   []models.Signal{models.SignalPopularity},
		})
		journal[p.ProductID] = []models.Signal{models.SignalPopularity}
	}
	b.recordContributions(userID, journal)

	b.logger.WithField("user_id", userID).Debug("Popularity fallback served")
	return result
}

// normalizeScores min-max scales to [0,1]. When all scores are equal every
// candidate maps to 1.0 so a single-valued engine still contributes.
func normalizeScores(scores map[int64]float64) map[int64]float64 {
	if len(scores) == 0 {
		return scores
	}

	first := true
	var minScore, maxScore float64
	for _, s := range scores {
		if first {
			minScore, maxScore = s, s
			first = false
			continue
		}
		if s < minScore {
			minScore = s
		}
		if s > maxScore {
			maxScore = s
		}
	}

	normalized := make(map[int64]float64, len(scores))
	scoreRange := maxScore - minScore
	for id, s := range scores {
		if scoreRange == 0 {
			normalized[id] = 1.0
			continue
		}
		normalized[id] = (s - minScore) / scoreRange
	}
	return normalized
}

func (b *HybridBlender) recordContributions(userID int64, journal map[int64][]models.Signal) {
	b.mu.Lock()
	b.contributions[userID] = journal
	b.mu.Unlock()
}

// Explanation templates, in priority order CF > content > SVD >
// context-only, plus the fallback sentence.
const (
	explainCF         = "Recommended because users similar to you purchased this."
	explainContent    = "Recommended because it is similar to products you have shown interest in."
	explainSVD        = "Recommended because it matches your overall taste profile."
	explainContext    = "Recommended because it fits the current season and time of day."
	explainPopularity = "Recommended based on trending and popular products."
)

// Explain renders the explanation for a (user, product) pair from the last
// computation's contribution journal. Pairs the blender never considered
// for the user fail with ErrNotFound.
func (b *HybridBlender) Explain(userID, productID int64) (string, error) {
	b.mu.RLock()
	journal, ok := b.contributions[userID]
	b.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: no recommendations computed for user %d", ErrNotFound, userID)
	}
	signals, ok := journal[productID]
	if !ok {
		return "", fmt.Errorf("%w: product %d was never a candidate for user %d", ErrNotFound, productID, userID)
	}

	set := make(map[models.Signal]bool, len(signals))
	for _, s := range signals {
		set[s] = true
	}
	switch {
	case set[models.SignalCF]:
		return explainCF, nil
	case set[models.SignalContent]:
		return explainContent, nil
	case set[models.SignalSVD]:
		return explainSVD, nil
	case set[models.SignalContext]:
		return explainContext, nil
	default:
		return explainPopularity, nil
	}
}
