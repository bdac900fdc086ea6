package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidRating(t *testing.T) {
	for _, rating := range []float64{1, 1.5, 3, 4.9, 5} {
		assert.True(t, validRating(rating), "rating %v", rating)
	}
	for _, rating := range []float64{0, 0.9, 5.1, -1} {
		assert.False(t, validRating(rating), "rating %v", rating)
	}
}
