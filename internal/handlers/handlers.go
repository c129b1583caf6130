package handlers

import (
	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/database"
	"github.com/brimstore/recsys/internal/recommend"
)

type Handlers struct {
	Health         *HealthHandler
	Recommendation *RecommendationHandler
}

func New(
	logger *logrus.Logger,
	db *database.Database,
	recommender recommend.Recommender,
	explainer recommend.Explainer,
	hub *recommend.DataHub,
) *Handlers {
	return &Handlers{
		Health:         NewHealthHandler(logger, db, hub),
		Recommendation: NewRecommendationHandler(recommender, explainer, logger),
	}
}
