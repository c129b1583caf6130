package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/internal/recommend"
	"github.com/brimstore/recsys/pkg/models"
)

// ProductRepository reads the product catalog.
type ProductRepository struct {
	db     Querier
	logger *logrus.Logger
}

func NewProductRepository(db Querier, logger *logrus.Logger) *ProductRepository {
	return &ProductRepository{db: db, logger: logger}
}

// FetchProducts returns the full catalog. Tags are stored as a
// comma-separated string and split here; the first tag doubles as the
// seasonal tag for contextual boosting.
func (r *ProductRepository) FetchProducts(ctx context.Context) ([]models.Product, error) {
	query := `
		SELECT product_id, name, category, COALESCE(tags, ''), rating
		FROM products
		ORDER BY product_id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query products: %v", recommend.ErrUpstreamUnavailable, err)
	}
	defer rows.Close()

	var products []models.Product
	for rows.Next() {
		var (
			p       models.Product
			rawTags string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Category, &rawTags, &p.Rating); err != nil {
			return nil, fmt.Errorf("scan product row: %w", err)
		}
		p.Tags = splitTags(rawTags)
		if len(p.Tags) > 0 {
			p.SeasonalTag = p.Tags[0]
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: read products: %v", recommend.ErrUpstreamUnavailable, err)
	}

	r.logger.WithField("count", len(products)).Debug("Fetched product catalog")
	return products, nil
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
