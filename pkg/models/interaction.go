package models

import "time"

// Interaction is one aggregated (user, product) observation. Strength is a
// non-negative implicit-feedback value derived from purchase quantity, view
// count or an explicit rating; a missing pair means "no observed
// interaction", never zero affinity.
type Interaction struct {
	UserID    int64     `json:"user_id" db:"user_id"`
	ProductID int64     `json:"product_id" db:"product_id"`
	Strength  float64   `json:"strength" db:"strength"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}
