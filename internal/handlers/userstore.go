package handlers

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jamesash096/NATours/internal/apperror"
	"github.com/jamesash096/NATours/internal/database"
	"github.com/jamesash096/NATours/internal/models"
)

// UserStore is the persistence surface the auth and profile handlers use.
// All lookups exclude soft-deleted users.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	UserByID(ctx context.Context, id string) (*models.User, error)
	UserByEmail(ctx context.Context, email string) (*models.User, error)
	UserByResetToken(ctx context.Context, hashedToken string) (*models.User, error)

	SetResetToken(ctx context.Context, id primitive.ObjectID, hashedToken string, expires time.Time) error
	ClearResetToken(ctx context.Context, id primitive.ObjectID) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, hashedPassword string, changedAt time.Time) error
	UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error)
	Deactivate(ctx context.Context, id primitive.ObjectID) error
}

// activeUserFilter excludes soft-deleted accounts. A missing active flag
// reads as active.
func activeUserFilter() bson.M {
	return bson.M{"active": bson.M{"$ne": false}}
}

type mongoUserStore struct{}

func (s *mongoUserStore) collection() *mongo.Collection {
	return database.DB.Collection(database.UsersCollection)
}

func (s *mongoUserStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	result, err := s.collection().InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Conflict("A user with this email already exists")
		}
		return err
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ID = oid
	}
	return nil
}

func (s *mongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	for k, v := range activeUserFilter() {
		filter[k] = v
	}

	var user models.User
	err := s.collection().FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *mongoUserStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}
	return s.findOne(ctx, bson.M{"_id": oid})
}

func (s *mongoUserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *mongoUserStore) UserByResetToken(ctx context.Context, hashedToken string) (*models.User, error) {
	return s.findOne(ctx, bson.M{
		"password_reset_token":   hashedToken,
		"password_reset_expires": bson.M{"$gt": time.Now()},
	})
}

func (s *mongoUserStore) SetResetToken(ctx context.Context, id primitive.ObjectID, hashedToken string, expires time.Time) error {
	_, err := s.collection().UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"password_reset_token":   hashedToken,
			"password_reset_expires": expires,
		},
	})
	return err
}

func (s *mongoUserStore) ClearResetToken(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.collection().UpdateByID(ctx, id, bson.M{
		"$unset": bson.M{
			"password_reset_token":   "",
			"password_reset_expires": "",
		},
	})
	return err
}

// UpdatePassword stores the new credential hash, records the rotation time
// and retires any outstanding reset token in one write.
func (s *mongoUserStore) UpdatePassword(ctx context.Context, id primitive.ObjectID, hashedPassword string, changedAt time.Time) error {
	_, err := s.collection().UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"password":            hashedPassword,
			"password_changed_at": changedAt,
			"updated_at":          time.Now(),
		},
		"$unset": bson.M{
			"password_reset_token":   "",
			"password_reset_expires": "",
		},
	})
	return err
}

func (s *mongoUserStore) UpdateProfile(ctx context.Context, id primitive.ObjectID, fields bson.M) (*models.User, error) {
	fields["updated_at"] = time.Now()

	var user models.User
	err := s.collection().FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": fields},
		findOneAndUpdateReturnAfter(),
	).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("No user found with that ID")
	}
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, apperror.Conflict("A user with this email already exists")
		}
		return nil, err
	}
	return &user, nil
}

func (s *mongoUserStore) Deactivate(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.collection().UpdateByID(ctx, id, bson.M{
		"$set": bson.M{"active": false, "updated_at": time.Now()},
	})
	return err
}
