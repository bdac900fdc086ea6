package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Difficulty values accepted for a tour.
const (
	DifficultyEasy      = "easy"
	DifficultyMedium    = "medium"
	DifficultyDifficult = "difficult"
)

// Location is a GeoJSON point with tour-specific metadata.
type Location struct {
	Type        string    `bson:"type" json:"type"` // always "Point"
	Coordinates []float64 `bson:"coordinates" json:"coordinates"`
	Address     string    `bson:"address,omitempty" json:"address,omitempty"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Day         int       `bson:"day,omitempty" json:"day,omitempty"`
}

type Tour struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Name string `bson:"name" json:"name"`
	Slug string `bson:"slug" json:"slug"`

	Duration     int    `bson:"duration" json:"duration"`
	MaxGroupSize int    `bson:"max_group_size" json:"max_group_size"`
	Difficulty   string `bson:"difficulty" json:"difficulty"`

	RatingsAverage  float64 `bson:"ratings_average" json:"ratings_average"`
	RatingsQuantity int64   `bson:"ratings_quantity" json:"ratings_quantity"`

	Price         float64 `bson:"price" json:"price"`
	PriceDiscount float64 `bson:"price_discount,omitempty" json:"price_discount,omitempty"`

	Summary     string `bson:"summary" json:"summary"`
	Description string `bson:"description,omitempty" json:"description,omitempty"`

	ImageCover string   `bson:"image_cover,omitempty" json:"image_cover,omitempty"`
	Images     []string `bson:"images,omitempty" json:"images,omitempty"`

	StartDates []time.Time `bson:"start_dates,omitempty" json:"start_dates,omitempty"`

	// Secret tours are hidden from every listing and aggregation.
	Secret bool `bson:"secret,omitempty" json:"-"`

	StartLocation *Location  `bson:"start_location,omitempty" json:"start_location,omitempty"`
	Locations     []Location `bson:"locations,omitempty" json:"locations,omitempty"`

	Guides []primitive.ObjectID `bson:"guides,omitempty" json:"guides,omitempty"`
}

// DefaultRatingsAverage is applied to new tours and to tours whose last
// review was deleted.
const DefaultRatingsAverage = 4.5

func ValidDifficulty(d string) bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyDifficult:
		return true
	}
	return false
}
