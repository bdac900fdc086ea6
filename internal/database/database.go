package database

import (
	"context"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var Client *mongo.Client
var DB *mongo.Database

// Collection names used across the API.
const (
	ToursCollection   = "tours"
	UsersCollection   = "users"
	ReviewsCollection = "reviews"
)

func Connect(mongoURI string) error {
	// Use longer timeout for Atlas connections
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(mongoURI)
	clientOptions.SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return err
	}

	Client = client
	DB = client.Database(databaseName(mongoURI))

	log.Println("✅ Connected to MongoDB")
	return nil
}

// databaseName extracts the database from the connection string, defaulting
// to "natours".
func databaseName(mongoURI string) string {
	name := "natours"
	if mongoURI == "" {
		return name
	}
	parts := strings.Split(mongoURI, "/")
	if len(parts) > 3 {
		dbPart := strings.Split(parts[len(parts)-1], "?")[0]
		if dbPart != "" {
			name = dbPart
		}
	}
	return name
}

// EnsureIndexes creates the indexes the query patterns rely on: compound
// price/ratings and slug lookups on tours, the 2dsphere index for geo
// queries, unique user emails, and the one-review-per-user-per-tour
// constraint. Called on startup after Mongo has connected.
func EnsureIndexes(ctx context.Context) error {
	tourIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "price", Value: 1},
				{Key: "ratings_average", Value: -1},
			},
			Options: options.Index().SetName("idx_price_ratings"),
		},
		{
			Keys:    bson.D{{Key: "slug", Value: 1}},
			Options: options.Index().SetName("idx_slug"),
		},
		{
			Keys:    bson.D{{Key: "start_location", Value: "2dsphere"}},
			Options: options.Index().SetName("idx_start_location"),
		},
	}
	if _, err := DB.Collection(ToursCollection).Indexes().CreateMany(ctx, tourIndexes); err != nil {
		return err
	}

	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_email").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "password_reset_token", Value: 1}},
			Options: options.Index().SetName("idx_reset_token").SetSparse(true),
		},
	}
	if _, err := DB.Collection(UsersCollection).Indexes().CreateMany(ctx, userIndexes); err != nil {
		return err
	}

	reviewIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "tour", Value: 1},
				{Key: "user", Value: 1},
			},
			Options: options.Index().SetName("idx_tour_user").SetUnique(true),
		},
	}
	if _, err := DB.Collection(ReviewsCollection).Indexes().CreateMany(ctx, reviewIndexes); err != nil {
		return err
	}

	return nil
}

func Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return Client.Disconnect(ctx)
}
