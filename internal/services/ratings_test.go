package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRatingsPipeline(t *testing.T) {
	tourID := primitive.NewObjectID()
	pipeline := ratingsPipeline(tourID)

	require.Len(t, pipeline, 2)

	match := pipeline[0][0]
	assert.Equal(t, "$match", match.Key)
	assert.Equal(t, bson.M{"tour": tourID}, match.Value)

	group := pipeline[1][0]
	assert.Equal(t, "$group", group.Key)
	fields := group.Value.(bson.M)
	assert.Equal(t, bson.M{"$sum": 1}, fields["count"])
	assert.Equal(t, bson.M{"$avg": "$rating"}, fields["average"])
}

func TestRoundRating(t *testing.T) {
	cases := []struct {
		in   float64
		want float64
	}{
		{4.666666, 4.7},
		{4.649999, 4.6},
		{4.5, 4.5},
		{0, 0},
		{3.05, 3.1},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, RoundRating(tc.in), "RoundRating(%v)", tc.in)
	}
}
