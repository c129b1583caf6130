package models

import "time"

// Signal identifies one of the scoring sources that can contribute to a
// recommended product. The set is closed: adding a source means adding a
// constant here, not changing call sites.
type Signal string

const (
	SignalCF         Signal = "cf"
	SignalContent    Signal = "content"
	SignalSVD        Signal = "svd"
	SignalContext    Signal = "context"
	SignalPopularity Signal = "popularity"
)

// RecommendedProduct is one ranked entry of a recommendation list. Signals
// records which scoring sources produced a non-missing contribution; the
// explain endpoint is rendered from it.
type RecommendedProduct struct {
	ProductID int64    `json:"product_id"`
	Score     float64  `json:"score"`
	Signals   []Signal `json:"signals"`
}

// RecommendationResult is the blended, ordered output for one user. Slice
// order is the final rank.
type RecommendationResult struct {
	UserID      int64                `json:"user_id"`
	Items       []RecommendedProduct `json:"items"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// ProductIDs returns the ranked identifiers, the shape the HTTP surface
// exposes.
func (r *RecommendationResult) ProductIDs() []int64 {
	ids := make([]int64, 0, len(r.Items))
	for _, item := range r.Items {
		ids = append(ids, item.ProductID)
	}
	return ids
}

type RecommendationResponse struct {
	Recommendations []int64 `json:"recommendations"`
}
