package models

import (
	"fmt"
	"strings"
)

// ContextSignature is the canonical encoding of the situational inputs that
// influence a recommendation: time-of-day bucket, requesting device and
// season. It is part of every cache key, so Canonical must be deterministic
// and independent of construction order.
type ContextSignature struct {
	TimeBucket string `json:"time_bucket"`
	Device     string `json:"device"`
	Season     string `json:"season"`
}

// Canonical renders the signature with a fixed field order and casing.
func (s ContextSignature) Canonical() string {
	return fmt.Sprintf("device=%s|season=%s|time=%s",
		normalizeField(s.Device),
		normalizeField(s.Season),
		normalizeField(s.TimeBucket),
	)
}

func normalizeField(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return "unknown"
	}
	return strings.ReplaceAll(v, " ", "-")
}
