package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/jamesash096/NATours/internal/apperror"
	"github.com/jamesash096/NATours/internal/database"
	"github.com/jamesash096/NATours/internal/middleware"
	"github.com/jamesash096/NATours/internal/models"
)

// GetCheckoutSession opens a Stripe checkout for one seat on a tour. A
// pending booking row is written first so the webhook has something to mark
// paid.
func GetCheckoutSession(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	if paymentService == nil {
		respondError(w, apperror.New(http.StatusServiceUnavailable, "Payments are not available right now"))
		return
	}

	tourID, err := objectIDParam(r, "tourId")
	if err != nil {
		respondError(w, err)
		return
	}

	var tour models.Tour
	err = toursCollection().FindOne(r.Context(), bson.M{"_id": tourID}).Decode(&tour)
	if errors.Is(err, mongo.ErrNoDocuments) {
		respondError(w, apperror.NotFound("No tour found with that ID"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	bookingID := uuid.New()
	_, err = database.PostgresDB.ExecContext(r.Context(), `
		INSERT INTO bookings (id, user_id, tour_id, price, paid)
		VALUES ($1, $2, $3, $4, FALSE)
	`, bookingID, user.ID.Hex(), tour.ID.Hex(), tour.Price)
	if err != nil {
		respondError(w, err)
		return
	}

	session, err := paymentService.CreateCheckoutSession(user, &tour, bookingID)
	if err != nil {
		// The pending row is useless without a session; clean it up.
		if _, delErr := database.PostgresDB.Exec(`DELETE FROM bookings WHERE id = $1`, bookingID); delErr != nil {
			log.Printf("⚠️ Failed to remove pending booking %s: %v", bookingID, delErr)
		}
		respondError(w, err)
		return
	}

	_, err = database.PostgresDB.ExecContext(r.Context(),
		`UPDATE bookings SET stripe_session_id = $1 WHERE id = $2`, session.ID, bookingID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{
		"session": map[string]string{
			"id":  session.ID,
			"url": session.URL,
		},
	})
}

// StripeWebhook marks bookings paid when Stripe reports a completed
// checkout. The payload must carry a valid signature.
func StripeWebhook(w http.ResponseWriter, r *http.Request) {
	if paymentService == nil {
		respondError(w, apperror.New(http.StatusServiceUnavailable, "Payments are not available right now"))
		return
	}

	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, apperror.BadRequest("Unable to read webhook payload"))
		return
	}

	event, err := paymentService.VerifyWebhook(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		respondError(w, apperror.BadRequest("Invalid webhook signature"))
		return
	}

	if event.Type == "checkout.session.completed" {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			respondError(w, apperror.BadRequest("Malformed checkout session payload"))
			return
		}
		if err := markBookingPaid(r, session.ClientReferenceID, session.ID); err != nil {
			respondError(w, err)
			return
		}
	}

	respondData(w, http.StatusOK, map[string]bool{"received": true})
}

func markBookingPaid(r *http.Request, bookingID, sessionID string) error {
	id, err := uuid.Parse(bookingID)
	if err != nil {
		return apperror.BadRequest("Invalid booking reference")
	}

	result, err := database.PostgresDB.ExecContext(r.Context(),
		`UPDATE bookings SET paid = TRUE, stripe_session_id = $1 WHERE id = $2`, sessionID, id)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return apperror.NotFound("No booking found for that session")
	}
	return nil
}

func scanBooking(scanner interface {
	Scan(dest ...interface{}) error
}) (models.Booking, error) {
	var b models.Booking
	var sessionID sql.NullString
	err := scanner.Scan(&b.ID, &b.CreatedAt, &b.UserID, &b.TourID, &b.Price, &b.Paid, &sessionID)
	b.StripeSessionID = sessionID.String
	return b, err
}

const bookingColumns = `id, created_at, user_id, tour_id, price, paid, stripe_session_id`

func queryBookings(r *http.Request, where string, args ...interface{}) ([]models.Booking, error) {
	q := `SELECT ` + bookingColumns + ` FROM bookings`
	if where != "" {
		q += ` WHERE ` + where
	}
	q += ` ORDER BY created_at DESC`

	rows, err := database.PostgresDB.QueryContext(r.Context(), q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// GetMyBookings lists the authenticated user's paid bookings together with
// the booked tours.
func GetMyBookings(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	bookings, err := queryBookings(r, `user_id = $1 AND paid = TRUE`, user.ID.Hex())
	if err != nil {
		respondError(w, err)
		return
	}

	tours, err := toursForBookings(r, bookings)
	if err != nil {
		respondError(w, err)
		return
	}

	respondList(w, http.StatusOK, len(bookings), map[string]interface{}{
		"bookings": bookings,
		"tours":    tours,
	})
}

func toursForBookings(r *http.Request, bookings []models.Booking) ([]models.Tour, error) {
	ids := make([]interface{}, 0, len(bookings))
	seen := map[string]bool{}
	for _, b := range bookings {
		if seen[b.TourID] {
			continue
		}
		seen[b.TourID] = true
		if oid, err := primitive.ObjectIDFromHex(b.TourID); err == nil {
			ids = append(ids, oid)
		}
	}
	if len(ids) == 0 {
		return []models.Tour{}, nil
	}

	cursor, err := toursCollection().Find(r.Context(), bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(r.Context())

	tours := []models.Tour{}
	if err := cursor.All(r.Context(), &tours); err != nil {
		return nil, err
	}
	return tours, nil
}

// GetAllBookings lists every booking, admin only.
func GetAllBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := queryBookings(r, "")
	if err != nil {
		respondError(w, err)
		return
	}
	respondList(w, http.StatusOK, len(bookings), map[string]interface{}{"bookings": bookings})
}

// GetBooking fetches one booking by id, admin only.
func GetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, apperror.BadRequest("Invalid ID format"))
		return
	}

	row := database.PostgresDB.QueryRowContext(r.Context(),
		`SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, apperror.NotFound("No booking found with that ID"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"booking": booking})
}

type bookingRequest struct {
	UserID string   `json:"user_id"`
	TourID string   `json:"tour_id"`
	Price  *float64 `json:"price"`
	Paid   *bool    `json:"paid"`
}

// CreateBooking records a booking manually, for bookings taken outside the
// checkout flow. Admin only.
func CreateBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.UserID == "" || req.TourID == "" || req.Price == nil || *req.Price <= 0 {
		respondError(w, apperror.BadRequest("Please provide user_id, tour_id and price"))
		return
	}

	paid := true
	if req.Paid != nil {
		paid = *req.Paid
	}

	booking := models.Booking{
		ID:     uuid.New(),
		UserID: req.UserID,
		TourID: req.TourID,
		Price:  *req.Price,
		Paid:   paid,
	}

	err := database.PostgresDB.QueryRowContext(r.Context(), `
		INSERT INTO bookings (id, user_id, tour_id, price, paid)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, booking.ID, booking.UserID, booking.TourID, booking.Price, booking.Paid).Scan(&booking.CreatedAt)
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusCreated, map[string]interface{}{"booking": booking})
}

// UpdateBooking changes the price or paid flag of a booking, admin only.
func UpdateBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, apperror.BadRequest("Invalid ID format"))
		return
	}

	var req bookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Price == nil && req.Paid == nil {
		respondError(w, apperror.BadRequest("Please provide a price or paid flag to update"))
		return
	}
	if req.Price != nil && *req.Price <= 0 {
		respondError(w, apperror.BadRequest("Price must be positive"))
		return
	}

	row := database.PostgresDB.QueryRowContext(r.Context(), `
		UPDATE bookings
		SET price = COALESCE($1, price), paid = COALESCE($2, paid)
		WHERE id = $3
		RETURNING `+bookingColumns+`
	`, req.Price, req.Paid, id)

	booking, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		respondError(w, apperror.NotFound("No booking found with that ID"))
		return
	}
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"booking": booking})
}

// DeleteBooking removes a booking row, admin only.
func DeleteBooking(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, apperror.BadRequest("Invalid ID format"))
		return
	}

	result, err := database.PostgresDB.ExecContext(r.Context(), `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		respondError(w, err)
		return
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		respondError(w, apperror.NotFound("No booking found with that ID"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
