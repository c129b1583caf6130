package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextSignatureCanonical(t *testing.T) {
	t.Run("orders fields and lowercases values", func(t *testing.T) {
		sig := ContextSignature{TimeBucket: "Morning", Device: "MOBILE", Season: "Christmas"}
		assert.Equal(t, "device=mobile|season=christmas|time=morning", sig.Canonical())
	})

	t.Run("empty fields become unknown", func(t *testing.T) {
		assert.Equal(t, "device=unknown|season=unknown|time=unknown", ContextSignature{}.Canonical())
	})

	t.Run("inner spaces collapse to dashes", func(t *testing.T) {
		sig := ContextSignature{Season: "independence day"}
		assert.Contains(t, sig.Canonical(), "season=independence-day")
	})

	t.Run("equal signatures share a key", func(t *testing.T) {
		a := ContextSignature{TimeBucket: "morning", Device: " web ", Season: "winter"}
		b := ContextSignature{TimeBucket: "Morning", Device: "web", Season: "Winter"}
		assert.Equal(t, a.Canonical(), b.Canonical())
	})
}
