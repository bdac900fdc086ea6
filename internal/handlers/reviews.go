package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jamesash096/NATours/internal/apperror"
	"github.com/jamesash096/NATours/internal/database"
	"github.com/jamesash096/NATours/internal/middleware"
	"github.com/jamesash096/NATours/internal/models"
	"github.com/jamesash096/NATours/internal/query"
	"github.com/jamesash096/NATours/internal/services"
)

func reviewsCollection() *mongo.Collection {
	return database.DB.Collection(database.ReviewsCollection)
}

// reviewsForTour loads all reviews of one tour, newest first.
func reviewsForTour(ctx context.Context, tourID primitive.ObjectID) ([]models.Review, error) {
	cursor, err := reviewsCollection().Find(ctx, bson.M{"tour": tourID})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	reviews := []models.Review{}
	if err := cursor.All(ctx, &reviews); err != nil {
		return nil, err
	}
	return reviews, nil
}

// recalcRatings refreshes the tour's rating aggregates after a review
// write. Failures are logged, not surfaced: the review operation itself
// already succeeded.
func recalcRatings(ctx context.Context, tourID primitive.ObjectID) {
	if err := services.RecalcTourRatings(context.WithoutCancel(ctx), tourID); err != nil {
		log.Printf("⚠️ Failed to recalculate ratings for tour %s: %v", tourID.Hex(), err)
	}
}

// GetAllReviews lists reviews through the query pipeline. When mounted
// under a tour route the listing is scoped to that tour.
func GetAllReviews(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	base := bson.M{}
	if tourParam := chi.URLParam(r, "tourId"); tourParam != "" {
		tourID, err := primitive.ObjectIDFromHex(tourParam)
		if err != nil {
			respondError(w, apperror.BadRequest("Invalid ID format"))
			return
		}
		base["tour"] = tourID
	}

	features := query.New(r.URL.Query()).
		ApplyFilter().
		ApplySort().
		Project().
		Paginate()

	cursor, err := reviewsCollection().Find(ctx, features.MergedFilter(base), features.FindOptions())
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	result := []models.Review{}
	if err := cursor.All(ctx, &result); err != nil {
		respondError(w, err)
		return
	}

	respondList(w, http.StatusOK, len(result), map[string]interface{}{"reviews": result})
}

type reviewRequest struct {
	Review string  `json:"review"`
	Rating float64 `json:"rating"`
	Tour   string  `json:"tour"`
}

func validRating(rating float64) bool {
	return rating >= 1 && rating <= 5
}

// CreateReview posts a review. The tour comes from the nested route (or the
// body on the flat route) and the author is always the authenticated user.
func CreateReview(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	var req reviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	tourParam := chi.URLParam(r, "tourId")
	if tourParam == "" {
		tourParam = req.Tour
	}
	tourID, err := primitive.ObjectIDFromHex(tourParam)
	if err != nil {
		respondError(w, apperror.BadRequest("Invalid ID format"))
		return
	}

	if req.Review == "" {
		respondError(w, apperror.BadRequest("Review can not be empty"))
		return
	}
	if !validRating(req.Rating) {
		respondError(w, apperror.BadRequest("Rating must be between 1 and 5"))
		return
	}

	// The tour must exist and be visible before accepting a review for it.
	count, err := toursCollection().CountDocuments(r.Context(),
		mergeFilters(publicTourFilter(), bson.M{"_id": tourID}))
	if err != nil {
		respondError(w, err)
		return
	}
	if count == 0 {
		respondError(w, apperror.NotFound("No tour found with that ID"))
		return
	}

	now := time.Now()
	review := models.Review{
		CreatedAt: now,
		UpdatedAt: now,
		Review:    req.Review,
		Rating:    req.Rating,
		Tour:      tourID,
		User:      user.ID,
	}

	result, err := reviewsCollection().InsertOne(r.Context(), review)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			respondError(w, apperror.Conflict("You have already reviewed this tour"))
			return
		}
		respondError(w, err)
		return
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		review.ID = oid
	}

	recalcRatings(r.Context(), tourID)

	respondData(w, http.StatusCreated, map[string]interface{}{"review": review})
}

// GetReview fetches one review by id.
func GetReview(w http.ResponseWriter, r *http.Request) {
	oid, err := objectIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var review models.Review
	err = reviewsCollection().FindOne(r.Context(), bson.M{"_id": oid}).Decode(&review)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respondError(w, apperror.NotFound("No review found with that ID"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"review": review})
}

// loadOwnedReview fetches a review and checks that the principal may modify
// it: authors edit their own reviews, admins edit any.
func loadOwnedReview(r *http.Request) (*models.Review, error) {
	oid, err := objectIDParam(r, "id")
	if err != nil {
		return nil, err
	}

	var review models.Review
	err = reviewsCollection().FindOne(r.Context(), bson.M{"_id": oid}).Decode(&review)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperror.NotFound("No review found with that ID")
	}
	if err != nil {
		return nil, err
	}

	user := middleware.CurrentUser(r.Context())
	if user.Role != models.RoleAdmin && review.User != user.ID {
		return nil, apperror.Forbidden("You do not have permission to perform this action")
	}
	return &review, nil
}

// UpdateReview changes the text or rating of a review.
func UpdateReview(w http.ResponseWriter, r *http.Request) {
	review, err := loadOwnedReview(r)
	if err != nil {
		respondError(w, err)
		return
	}

	var body map[string]interface{}
	if err := decodeJSON(w, r, &body); err != nil {
		respondError(w, err)
		return
	}

	fields := bson.M{}
	if v, ok := body["review"].(string); ok && v != "" {
		fields["review"] = v
	}
	if v, ok := body["rating"].(float64); ok {
		if !validRating(v) {
			respondError(w, apperror.BadRequest("Rating must be between 1 and 5"))
			return
		}
		fields["rating"] = v
	}
	if len(fields) == 0 {
		respondError(w, apperror.BadRequest("Please provide a review or rating to update"))
		return
	}
	fields["updated_at"] = time.Now()

	var updated models.Review
	err = reviewsCollection().FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": review.ID},
		bson.M{"$set": fields},
		findOneAndUpdateReturnAfter(),
	).Decode(&updated)
	if err != nil {
		respondError(w, err)
		return
	}

	recalcRatings(r.Context(), updated.Tour)

	respondData(w, http.StatusOK, map[string]interface{}{"review": updated})
}

// DeleteReview removes a review and refreshes the tour aggregates.
func DeleteReview(w http.ResponseWriter, r *http.Request) {
	review, err := loadOwnedReview(r)
	if err != nil {
		respondError(w, err)
		return
	}

	if _, err := reviewsCollection().DeleteOne(r.Context(), bson.M{"_id": review.ID}); err != nil {
		respondError(w, err)
		return
	}

	recalcRatings(r.Context(), review.Tour)

	w.WriteHeader(http.StatusNoContent)
}
