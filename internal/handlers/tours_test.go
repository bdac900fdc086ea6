package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesash096/NATours/internal/models"
)

func TestAliasTopTours(t *testing.T) {
	var captured url.Values
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = r.URL.Query()
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/tours/top-5-cheap?difficulty=easy", nil)
	AliasTopTours(next).ServeHTTP(httptest.NewRecorder(), req)

	require.NotNil(t, captured)
	assert.Equal(t, "5", captured.Get("limit"))
	assert.Equal(t, "-ratings_average,price", captured.Get("sort"))
	assert.Equal(t, "name,price,ratings_average,summary,difficulty", captured.Get("fields"))
	// Caller-supplied filters survive the rewrite.
	assert.Equal(t, "easy", captured.Get("difficulty"))
}

func TestValidateTour(t *testing.T) {
	valid := func() *models.Tour {
		return &models.Tour{
			Name:         "The Forest Hiker",
			Price:        497,
			Duration:     5,
			MaxGroupSize: 25,
			Summary:      "Breathtaking hike",
			Difficulty:   models.DifficultyEasy,
		}
	}

	assert.NoError(t, validateTour(valid()))

	cases := []struct {
		name   string
		mutate func(*models.Tour)
		want   string
	}{
		{"missing name", func(tr *models.Tour) { tr.Name = "" }, "A tour must have a name"},
		{"missing price", func(tr *models.Tour) { tr.Price = 0 }, "A tour must have a price"},
		{"missing duration", func(tr *models.Tour) { tr.Duration = 0 }, "A tour must have a duration"},
		{"missing group size", func(tr *models.Tour) { tr.MaxGroupSize = 0 }, "A tour must have a group size"},
		{"missing summary", func(tr *models.Tour) { tr.Summary = "" }, "A tour must have a summary"},
		{"bad difficulty", func(tr *models.Tour) { tr.Difficulty = "extreme" }, "Difficulty is either: easy, medium, difficult"},
		{"discount above price", func(tr *models.Tour) { tr.PriceDiscount = 500 }, "Discount price should be below regular price"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tour := valid()
			tc.mutate(tour)
			err := validateTour(tour)
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())
		})
	}
}

func TestParseLatLng(t *testing.T) {
	lat, lng, err := parseLatLng("34.111745,-118.113491")
	require.NoError(t, err)
	assert.Equal(t, 34.111745, lat)
	assert.Equal(t, -118.113491, lng)

	for _, raw := range []string{"", "34.111745", "34.1,-118.1,7", "north,west"} {
		_, _, err := parseLatLng(raw)
		assert.Error(t, err, "parseLatLng(%q)", raw)
	}
}

func TestMergeFilters(t *testing.T) {
	merged := mergeFilters(publicTourFilter(), map[string]interface{}{"difficulty": "easy"})
	assert.Len(t, merged, 2)
	assert.Equal(t, "easy", merged["difficulty"])
	assert.Contains(t, merged, "secret")
}
