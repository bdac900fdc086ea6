package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Review belongs to exactly one tour and one user; the (tour, user) pair is
// unique so a user cannot review the same tour twice.
type Review struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updated_at"`

	Review string  `bson:"review" json:"review"`
	Rating float64 `bson:"rating" json:"rating"`

	Tour primitive.ObjectID `bson:"tour" json:"tour"`
	User primitive.ObjectID `bson:"user" json:"user"`
}
