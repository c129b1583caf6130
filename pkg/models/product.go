package models

// Product is catalog metadata as served by the product store. The engine
// treats products as read-only; they are created and maintained elsewhere.
type Product struct {
	ID          int64    `json:"product_id" db:"product_id"`
	Name        string   `json:"name" db:"name"`
	Category    string   `json:"category" db:"category" validate:"required"`
	Tags        []string `json:"tags,omitempty" db:"tags"`
	Rating      float64  `json:"rating" db:"rating" validate:"min=0,max=5"`
	SeasonalTag string   `json:"seasonal_tag,omitempty" db:"seasonal_tag"`
}
