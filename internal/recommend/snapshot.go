package recommend

import (
	"context"
	"fmt"
	"sort"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/brimstore/recsys/pkg/models"
)

// InteractionStore is the collaborator that serves interaction history.
// Implementations live outside the engine; calls may fail or be slow and
// must honor the context deadline.
type InteractionStore interface {
	FetchInteractions(ctx context.Context, since time.Time) ([]models.Interaction, error)
}

// ProductStore is the collaborator that serves catalog metadata.
type ProductStore interface {
	FetchProducts(ctx context.Context) ([]models.Product, error)
}

// ScoredProduct pairs a product with a score; used wherever an engine ranks
// candidates.
type ScoredProduct struct {
	ProductID int64
	Score     float64
}

// Snapshot is one immutable view of the data every scorer reads: the
// interaction matrix, content feature vectors, the catalog, the global
// popularity ranking and each user's most recent product. A snapshot is
// never mutated after Build; refreshes produce a new one.
type Snapshot struct {
	Matrix      *InteractionMatrix
	Content     *ContentModel
	Products    map[int64]models.Product
	Popularity  []ScoredProduct
	LastProduct map[int64]int64

	BuiltAt time.Time
}

// BuildSnapshot assembles a snapshot from raw collaborator data. The
// popularity ranking orders by interaction count, then raw rating, then
// lowest identifier, so it stays deterministic even for an empty matrix.
func BuildSnapshot(interactions []models.Interaction, products []models.Product) *Snapshot {
	snap := &Snapshot{
		Matrix:      BuildInteractionMatrix(interactions),
		Content:     BuildContentModel(products),
		Products:    make(map[int64]models.Product, len(products)),
		LastProduct: make(map[int64]int64),
		BuiltAt:     time.Now(),
	}
	for _, p := range products {
		snap.Products[p.ID] = p
	}

	counts := make(map[int64]int)
	lastSeen := make(map[int64]time.Time)
	for _, in := range interactions {
		counts[in.ProductID]++
		if ts, ok := lastSeen[in.UserID]; !ok || in.Timestamp.After(ts) {
			lastSeen[in.UserID] = in.Timestamp
			snap.LastProduct[in.UserID] = in.ProductID
		}
	}

	snap.Popularity = make([]ScoredProduct, 0, len(products))
	for _, p := range products {
		snap.Popularity = append(snap.Popularity, ScoredProduct{
			ProductID: p.ID,
			Score:     float64(counts[p.ID]),
		})
	}
	sort.Slice(snap.Popularity, func(i, j int) bool {
		a, b := snap.Popularity[i], snap.Popularity[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		ra, rb := snap.Products[a.ProductID].Rating, snap.Products[b.ProductID].Rating
		if ra != rb {
			return ra > rb
		}
		return a.ProductID < b.ProductID
	})

	return snap
}

// DataHub owns the active snapshot and refreshes it from the collaborator
// stores. Readers load the pointer once per request and work against that
// view for the whole computation; Refresh swaps a fully built replacement.
type DataHub struct {
	interactions InteractionStore
	products     ProductStore
	logger       *logrus.Logger

	snap atomic.Pointer[Snapshot]
}

func NewDataHub(interactions InteractionStore, products ProductStore, logger *logrus.Logger) *DataHub {
	return &DataHub{
		interactions: interactions,
		products:     products,
		logger:       logger,
	}
}

// Refresh fetches fresh collaborator data and swaps in a new snapshot. On
// upstream failure the previous snapshot keeps serving reads and the error
// is reported as retryable.
func (h *DataHub) Refresh(ctx context.Context) error {
	interactions, err := h.interactions.FetchInteractions(ctx, time.Time{})
	if err != nil {
		h.logger.WithError(err).Warn("Interaction store unavailable, keeping current snapshot")
		return fmt.Errorf("%w: fetch interactions: %v", ErrUpstreamUnavailable, err)
	}

	products, err := h.products.FetchProducts(ctx)
	if err != nil {
		h.logger.WithError(err).Warn("Product store unavailable, keeping current snapshot")
		return fmt.Errorf("%w: fetch products: %v", ErrUpstreamUnavailable, err)
	}

	snap := BuildSnapshot(interactions, products)
	h.snap.Store(snap)

	h.logger.WithFields(logrus.Fields{
		"interactions": len(interactions),
		"products":     len(products),
	}).Info("Data snapshot refreshed")

	return nil
}

// Snapshot returns the active snapshot, or ErrUpstreamUnavailable when no
// refresh has ever succeeded.
func (h *DataHub) Snapshot() (*Snapshot, error) {
	snap := h.snap.Load()
	if snap == nil {
		return nil, fmt.Errorf("%w: no data snapshot loaded yet", ErrUpstreamUnavailable)
	}
	return snap, nil
}
