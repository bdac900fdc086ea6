package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jamesash096/NATours/internal/apperror"
	"github.com/jamesash096/NATours/internal/database"
	"github.com/jamesash096/NATours/internal/models"
	"github.com/jamesash096/NATours/internal/query"
	"github.com/jamesash096/NATours/internal/services"
	"github.com/jamesash096/NATours/pkg/utils"
)

// Earth radii used to convert a distance to radians for $centerSphere.
const (
	earthRadiusMiles = 3963.2
	earthRadiusKm    = 6378.1
)

// publicTourFilter hides secret tours from every listing and aggregation.
func publicTourFilter() bson.M {
	return bson.M{"secret": bson.M{"$ne": true}}
}

func toursCollection() *mongo.Collection {
	return database.DB.Collection(database.ToursCollection)
}

// AliasTopTours rewrites the query string to the five best cheap tours and
// delegates to the standard listing.
func AliasTopTours(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		q.Set("limit", "5")
		q.Set("sort", "-ratings_average,price")
		q.Set("fields", "name,price,ratings_average,summary,difficulty")
		r.URL.RawQuery = q.Encode()
		next.ServeHTTP(w, r)
	})
}

// GetAllTours lists tours through the filter/sort/project/paginate pipeline.
func GetAllTours(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	features := query.New(r.URL.Query()).
		ApplyFilter().
		ApplySort().
		Project().
		Paginate()

	cursor, err := toursCollection().Find(ctx, features.MergedFilter(publicTourFilter()), features.FindOptions())
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	result := []models.Tour{}
	if err := cursor.All(ctx, &result); err != nil {
		respondError(w, err)
		return
	}

	respondList(w, http.StatusOK, len(result), map[string]interface{}{"tours": result})
}

// tourWithReviews embeds the tour's reviews in the detail response.
type tourWithReviews struct {
	models.Tour
	Reviews []models.Review `json:"reviews"`
}

// GetTour fetches one tour by id together with its reviews.
func GetTour(w http.ResponseWriter, r *http.Request) {
	oid, err := objectIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var tour models.Tour
	err = toursCollection().FindOne(r.Context(), bson.M{"_id": oid}).Decode(&tour)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respondError(w, apperror.NotFound("No tour found with that ID"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondTourDetail(w, r, tour)
}

// GetTourBySlug resolves a tour by its URL slug, for rendered tour pages.
func GetTourBySlug(w http.ResponseWriter, r *http.Request) {
	var tour models.Tour
	err := toursCollection().FindOne(r.Context(), bson.M{"slug": chi.URLParam(r, "slug")}).Decode(&tour)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respondError(w, apperror.NotFound("There is no tour with that name."))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondTourDetail(w, r, tour)
}

func respondTourDetail(w http.ResponseWriter, r *http.Request, tour models.Tour) {
	reviews, err := reviewsForTour(r.Context(), tour.ID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{
		"tour": tourWithReviews{Tour: tour, Reviews: reviews},
	})
}

// CreateTour inserts a new tour. The slug derives from the name and the
// rating fields start at their defaults.
func CreateTour(w http.ResponseWriter, r *http.Request) {
	var tour models.Tour
	if err := decodeJSON(w, r, &tour); err != nil {
		respondError(w, err)
		return
	}
	if err := validateTour(&tour); err != nil {
		respondError(w, err)
		return
	}

	now := time.Now()
	tour.ID = primitive.NilObjectID
	tour.CreatedAt = now
	tour.UpdatedAt = now
	tour.Slug = utils.Slugify(tour.Name)
	tour.RatingsAverage = models.DefaultRatingsAverage
	tour.RatingsQuantity = 0

	result, err := toursCollection().InsertOne(r.Context(), tour)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			respondError(w, apperror.Conflict("A tour with this name already exists"))
			return
		}
		respondError(w, err)
		return
	}
	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		tour.ID = oid
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"tour": tour})
}

func validateTour(tour *models.Tour) error {
	switch {
	case tour.Name == "":
		return apperror.BadRequest("A tour must have a name")
	case tour.Price <= 0:
		return apperror.BadRequest("A tour must have a price")
	case tour.Duration <= 0:
		return apperror.BadRequest("A tour must have a duration")
	case tour.MaxGroupSize <= 0:
		return apperror.BadRequest("A tour must have a group size")
	case tour.Summary == "":
		return apperror.BadRequest("A tour must have a summary")
	case !models.ValidDifficulty(tour.Difficulty):
		return apperror.BadRequest("Difficulty is either: easy, medium, difficult")
	case tour.PriceDiscount > 0 && tour.PriceDiscount >= tour.Price:
		return apperror.BadRequest("Discount price should be below regular price")
	}
	return nil
}

// tourUpdateFields maps the writable JSON keys straight to their stored
// form; anything else in the body is ignored.
var tourUpdateFields = []string{
	"name", "duration", "max_group_size", "difficulty", "price",
	"price_discount", "summary", "description", "image_cover", "images",
	"start_dates", "secret", "start_location", "locations", "guides",
}

// UpdateTour applies a partial update. Renaming a tour regenerates its slug.
func UpdateTour(w http.ResponseWriter, r *http.Request) {
	oid, err := objectIDParam(r, "id")
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
	for _, key := range tourUpdateFields {
		if v, ok := body[key]; ok {
			fields[key] = v
		}
	}
	if len(fields) == 0 {
		respondError(w, apperror.BadRequest("Please provide at least one field to update"))
		return
	}

	if name, ok := fields["name"].(string); ok {
		if name == "" {
			respondError(w, apperror.BadRequest("A tour must have a name"))
			return
		}
		fields["slug"] = utils.Slugify(name)
	}
	if difficulty, ok := fields["difficulty"].(string); ok && !models.ValidDifficulty(difficulty) {
		respondError(w, apperror.BadRequest("Difficulty is either: easy, medium, difficult"))
		return
	}
	fields["updated_at"] = time.Now()

	var tour models.Tour
	err = toursCollection().FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": oid},
		bson.M{"$set": fields},
		findOneAndUpdateReturnAfter(),
	).Decode(&tour)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respondError(w, apperror.NotFound("No tour found with that ID"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"tour": tour})
}

// DeleteTour removes a tour and its reviews.
func DeleteTour(w http.ResponseWriter, r *http.Request) {
	oid, err := objectIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := toursCollection().DeleteOne(r.Context(), bson.M{"_id": oid})
	if err != nil {
		respondError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		respondError(w, apperror.NotFound("No tour found with that ID"))
		return
	}

	// Orphaned reviews are useless; sweep them with the tour.
	if _, err := database.DB.Collection(database.ReviewsCollection).DeleteMany(r.Context(), bson.M{"tour": oid}); err != nil {
		log.Printf("⚠️ Failed to delete reviews of tour %s: %v", oid.Hex(), err)
	}

	w.WriteHeader(http.StatusNoContent)
}

// TourStats groups public tours by difficulty with rating and price
// aggregates.
type TourStats struct {
	Difficulty string  `bson:"_id" json:"difficulty"`
	NumTours   int64   `bson:"num_tours" json:"num_tours"`
	NumRatings int64   `bson:"num_ratings" json:"num_ratings"`
	AvgRating  float64 `bson:"avg_rating" json:"avg_rating"`
	AvgPrice   float64 `bson:"avg_price" json:"avg_price"`
	MinPrice   float64 `bson:"min_price" json:"min_price"`
	MaxPrice   float64 `bson:"max_price" json:"max_price"`
}

// GetTourStats serves the difficulty-grouped statistics, cached in Redis
// until a review or tour write invalidates them.
func GetTourStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var cached []TourStats
	if hit, err := services.Cache.Get(ctx, services.TourStatsCacheKey, &cached); err == nil && hit {
		respondData(w, http.StatusOK, map[string]interface{}{"stats": cached})
		return
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: mergeFilters(publicTourFilter(),
			bson.M{"ratings_average": bson.M{"$gte": 4.5}})}},
		{{Key: "$group", Value: bson.M{
			"_id":         bson.M{"$toLower": "$difficulty"},
			"num_tours":   bson.M{"$sum": 1},
			"num_ratings": bson.M{"$sum": "$ratings_quantity"},
			"avg_rating":  bson.M{"$avg": "$ratings_average"},
			"avg_price":   bson.M{"$avg": "$price"},
			"min_price":   bson.M{"$min": "$price"},
			"max_price":   bson.M{"$max": "$price"},
		}}},
		{{Key: "$sort", Value: bson.M{"avg_price": 1}}},
	}

	cursor, err := toursCollection().Aggregate(ctx, pipeline)
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	stats := []TourStats{}
	if err := cursor.All(ctx, &stats); err != nil {
		respondError(w, err)
		return
	}

	if err := services.Cache.Set(ctx, services.TourStatsCacheKey, stats); err != nil {
		log.Printf("⚠️ Failed to cache tour stats: %v", err)
	}

	respondData(w, http.StatusOK, map[string]interface{}{"stats": stats})
}

// MonthlyPlanEntry counts tour starts per month of a year.
type MonthlyPlanEntry struct {
	Month         int      `bson:"month" json:"month"`
	NumTourStarts int64    `bson:"num_tour_starts" json:"num_tour_starts"`
	Tours         []string `bson:"tours" json:"tours"`
}

// GetMonthlyPlan unwinds start dates into per-month counts for the given
// year, busiest month first.
func GetMonthlyPlan(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		respondError(w, apperror.BadRequest("Invalid year"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(year, time.December, 31, 23, 59, 59, 0, time.UTC)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: publicTourFilter()}},
		{{Key: "$unwind", Value: "$start_dates"}},
		{{Key: "$match", Value: bson.M{"start_dates": bson.M{"$gte": from, "$lte": to}}}},
		{{Key: "$group", Value: bson.M{
			"_id":             bson.M{"$month": "$start_dates"},
			"num_tour_starts": bson.M{"$sum": 1},
			"tours":           bson.M{"$push": "$name"},
		}}},
		{{Key: "$addFields", Value: bson.M{"month": "$_id"}}},
		{{Key: "$project", Value: bson.M{"_id": 0}}},
		{{Key: "$sort", Value: bson.M{"num_tour_starts": -1}}},
		{{Key: "$limit", Value: 12}},
	}

	cursor, err := toursCollection().Aggregate(ctx, pipeline)
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	plan := []MonthlyPlanEntry{}
	if err := cursor.All(ctx, &plan); err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"plan": plan})
}

// GetToursWithin finds tours whose start location lies inside a sphere of
// the given radius around a center point.
// Route shape: /tours-within/{distance}/center/{latlng}/unit/{unit}
func GetToursWithin(w http.ResponseWriter, r *http.Request) {
	distance, err := strconv.ParseFloat(chi.URLParam(r, "distance"), 64)
	if err != nil || distance < 0 {
		respondError(w, apperror.BadRequest("Invalid distance"))
		return
	}
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		respondError(w, err)
		return
	}

	radius := distance / earthRadiusMiles
	if chi.URLParam(r, "unit") == "km" {
		radius = distance / earthRadiusKm
	}

	filter := mergeFilters(publicTourFilter(), bson.M{
		"start_location": bson.M{
			"$geoWithin": bson.M{
				"$centerSphere": bson.A{bson.A{lng, lat}, radius},
			},
		},
	})

	cursor, err := toursCollection().Find(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(r.Context())

	result := []models.Tour{}
	if err := cursor.All(r.Context(), &result); err != nil {
		respondError(w, err)
		return
	}

	respondList(w, http.StatusOK, len(result), map[string]interface{}{"tours": result})
}

// TourDistance pairs a tour with its distance from a reference point.
type TourDistance struct {
	ID       interface{} `bson:"_id" json:"id"`
	Name     string      `bson:"name" json:"name"`
	Distance float64     `bson:"distance" json:"distance"`
}

// GetDistances computes the distance of every public tour's start location
// from a point. Route shape: /distances/{latlng}/unit/{unit}
func GetDistances(w http.ResponseWriter, r *http.Request) {
	lat, lng, err := parseLatLng(chi.URLParam(r, "latlng"))
	if err != nil {
		respondError(w, err)
		return
	}

	// $geoNear yields meters; convert to the requested unit.
	multiplier := 0.000621371
	if chi.URLParam(r, "unit") == "km" {
		multiplier = 0.001
	}

	pipeline := mongo.Pipeline{
		{{Key: "$geoNear", Value: bson.M{
			"near": bson.M{
				"type":        "Point",
				"coordinates": bson.A{lng, lat},
			},
			"distanceField":      "distance",
			"distanceMultiplier": multiplier,
			"query":              publicTourFilter(),
		}}},
		{{Key: "$project", Value: bson.M{"distance": 1, "name": 1}}},
	}

	cursor, err := toursCollection().Aggregate(r.Context(), pipeline)
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(r.Context())

	distances := []TourDistance{}
	if err := cursor.All(r.Context(), &distances); err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"distances": distances})
}

// UploadTourImages replaces a tour's cover image and gallery with uploaded
// files. Fields: image_cover (single), images (up to three).
func UploadTourImages(w http.ResponseWriter, r *http.Request) {
	oid, err := objectIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}
	if cloudinaryService == nil {
		respondError(w, apperror.New(http.StatusServiceUnavailable, "Image uploads are not available right now"))
		return
	}
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, apperror.BadRequest("Invalid multipart form"))
		return
	}

	fields := bson.M{"updated_at": time.Now()}

	if headers := r.MultipartForm.File["image_cover"]; len(headers) > 0 {
		url, err := cloudinaryService.UploadImageFromHeader(r.Context(), headers[0], services.TourImageFolder)
		if err != nil {
			respondError(w, err)
			return
		}
		fields["image_cover"] = url
	}

	if headers := r.MultipartForm.File["images"]; len(headers) > 0 {
		if len(headers) > 3 {
			respondError(w, apperror.BadRequest("A tour can have at most 3 gallery images"))
			return
		}
		urls := make([]string, 0, len(headers))
		for _, header := range headers {
			url, err := cloudinaryService.UploadImageFromHeader(r.Context(), header, services.TourImageFolder)
			if err != nil {
				respondError(w, err)
				return
			}
			urls = append(urls, url)
		}
		fields["images"] = urls
	}

	if len(fields) == 1 {
		respondError(w, apperror.BadRequest("Please provide an image_cover or images"))
		return
	}

	var tour models.Tour
	err = toursCollection().FindOneAndUpdate(
		r.Context(),
		bson.M{"_id": oid},
		bson.M{"$set": fields},
		findOneAndUpdateReturnAfter(),
	).Decode(&tour)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respondError(w, apperror.NotFound("No tour found with that ID"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"tour": tour})
}

// parseLatLng parses "lat,lng" path segments.
func parseLatLng(raw string) (lat, lng float64, err error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 2 {
		return 0, 0, apperror.BadRequest("Please provide latitude and longitude in the format lat,lng.")
	}
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	lng, errLng := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if errLat != nil || errLng != nil {
		return 0, 0, apperror.BadRequest("Please provide latitude and longitude in the format lat,lng.")
	}
	return lat, lng, nil
}

func mergeFilters(filters ...bson.M) bson.M {
	merged := bson.M{}
	for _, f := range filters {
		for k, v := range f {
			merged[k] = v
		}
	}
	return merged
}
