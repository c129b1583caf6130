package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/config"
	"github.com/brimstore/recsys/internal/recommend"
)

// Retrainer periodically rebuilds the data snapshot, refits the latent
// factor model against it and clears the result cache so stale rankings
// age out immediately after a swap.
type Retrainer struct {
	hub      *recommend.DataHub
	mf       *recommend.MatrixFactorizationEngine
	cache    *recommend.CachedRecommender
	svdCfg   *config.SVDConfig
	interval time.Duration
	logger   *logrus.Logger
}

func NewRetrainer(
	hub *recommend.DataHub,
	mf *recommend.MatrixFactorizationEngine,
	cache *recommend.CachedRecommender,
	cfg *config.RecommendationConfig,
	logger *logrus.Logger,
) *Retrainer {
	interval := cfg.RetrainInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Retrainer{
		hub:      hub,
		mf:       mf,
		cache:    cache,
		svdCfg:   &cfg.SVD,
		interval: interval,
		logger:   logger,
	}
}

// Start runs the retrain loop until the context is cancelled. It fires
// once per interval; the initial fit is done by the caller before serving.
func (r *Retrainer) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.WithField("interval", r.interval.String()).Info("Model retrain loop started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Model retrain loop stopped")
			return
		case <-ticker.C:
			if err := r.RunOnce(ctx); err != nil {
				r.logger.WithError(err).Error("Scheduled retrain failed, serving previous model")
			}
		}
	}
}

// RunOnce performs one full retrain cycle. The previous snapshot and
// factors keep serving until the new ones are ready, so a failed cycle
// never degrades live traffic.
func (r *Retrainer) RunOnce(ctx context.Context) error {
	runID := uuid.New().String()
	start := time.Now()

	log := r.logger.WithField("run_id", runID)
	log.Info("Retrain cycle started")

	if err := r.hub.Refresh(ctx); err != nil {
		return err
	}
	snap, err := r.hub.Snapshot()
	if err != nil {
		return err
	}

	factors, err := r.mf.Train(ctx, snap.Matrix, r.svdCfg)
	if err != nil {
		return err
	}
	r.mf.Swap(factors)

	if r.cache != nil {
		if err := r.cache.InvalidateAll(ctx); err != nil {
			log.WithError(err).Warn("Failed to clear result cache after retrain")
		}
	}

	r.recordSuccess(start)
	log.WithFields(logrus.Fields{
		"users":    len(snap.Matrix.Users()),
		"products": len(snap.Matrix.Products()),
		"duration": time.Since(start).String(),
	}).Info("Retrain cycle complete")

	return nil
}

func (r *Retrainer) recordSuccess(start time.Time) {
	recommend.ObserveRetrain(time.Since(start))
}
