package services

import (
	"context"
	"log"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jamesash096/NATours/internal/database"
	"github.com/jamesash096/NATours/internal/models"
)

// RecalcTourRatings recomputes a tour's aggregate rating from its reviews
// and writes the result back onto the tour document. Invoked explicitly by
// the review handlers after every create, update and delete; the brief
// staleness window between a concurrent review write and this recompute is
// acceptable.
func RecalcTourRatings(ctx context.Context, tourID primitive.ObjectID) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cursor, err := database.DB.Collection(database.ReviewsCollection).Aggregate(ctx, ratingsPipeline(tourID))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)

	var results []ratingStats
	if err := cursor.All(ctx, &results); err != nil {
		return err
	}

	quantity := int64(0)
	average := models.DefaultRatingsAverage
	if len(results) > 0 {
		quantity = results[0].Count
		average = RoundRating(results[0].Average)
	}

	_, err = database.DB.Collection(database.ToursCollection).UpdateByID(ctx, tourID, bson.M{
		"$set": bson.M{
			"ratings_quantity": quantity,
			"ratings_average":  average,
		},
	})
	if err != nil {
		return err
	}

	// Aggregate tour statistics are derived from ratings; drop the cache.
	if err := Cache.Delete(TourStatsCacheKey); err != nil {
		log.Printf("⚠️ Failed to invalidate tour stats cache: %v", err)
	}
	return nil
}

type ratingStats struct {
	Count   int64   `bson:"count"`
	Average float64 `bson:"average"`
}

// ratingsPipeline groups all reviews of a tour into a count and mean rating.
func ratingsPipeline(tourID primitive.ObjectID) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"tour": tourID}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$tour",
			"count":   bson.M{"$sum": 1},
			"average": bson.M{"$avg": "$rating"},
		}}},
	}
}

// RoundRating rounds to one decimal place, matching what clients display.
func RoundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
