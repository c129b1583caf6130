package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/recommend"
	"github.com/brimstore/recsys/pkg/models"
)

// viewStrength is the implicit-feedback weight of a single browsing event.
// Purchases carry their quantity; a view is a much weaker signal.
const viewStrength = 0.2

// InteractionRepository reads the purchase and browsing history tables and
// folds them into per-event interaction strengths.
type InteractionRepository struct {
	db     Querier
	logger *logrus.Logger
}

func NewInteractionRepository(db Querier, logger *logrus.Logger) *InteractionRepository {
	return &InteractionRepository{db: db, logger: logger}
}

// FetchInteractions returns every interaction event at or after since, as
// (user, product, strength, timestamp) rows ordered by timestamp then ids
// so downstream aggregation is deterministic.
func (r *InteractionRepository) FetchInteractions(ctx context.Context, since time.Time) ([]models.Interaction, error) {
	query := `
		SELECT user_id, product_id, quantity::float8 AS strength, timestamp
		FROM purchase_history
		WHERE timestamp >= $1
		UNION ALL
		SELECT user_id, product_id, $2::float8 AS strength, timestamp
		FROM browsing_history
		WHERE timestamp >= $1
		ORDER BY timestamp, user_id, product_id`

	rows, err := r.db.Query(ctx, query, since, viewStrength)
	if err != nil {
		return nil, fmt.Errorf("%w: query interactions: %v", recommend.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var interactions []models.Interaction
	for rows.Next() {
		var in models.Interaction
		if err := rows.Scan(&in.UserID, &in.ProductID, &in.Strength, &in.Timestamp); err != nil {
			return nil, fmt.Errorf("scan interaction row: %w", err)
		}
		interactions = append(interactions, in)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read interactions: %v", recommend.ErrUpstreamUnavailable, err)
	}

	r.logger.WithFields(logrus.Fields{
		"count": len(interactions),
		"since": since.Format(time.RFC3339),
	}).Debug("Fetched interaction history")

	return interactions, nil
}
