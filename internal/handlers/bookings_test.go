package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
)

func withIDParam(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestBookingHandlersRejectMalformedIDs(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		method  string
	}{
		{"get", GetBooking, http.MethodGet},
		{"delete", DeleteBooking, http.MethodDelete},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := withIDParam(httptest.NewRequest(tc.method, "/api/v1/bookings/not-a-uuid", nil), "not-a-uuid")
			rec := httptest.NewRecorder()
			tc.handler(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Invalid ID format", decodeBody(t, rec)["message"])
		})
	}
}

func TestMarkBookingPaidRejectsBadReference(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/webhook-checkout", nil)
	err := markBookingPaid(req, "not-a-uuid", "cs_test_123")
	assert.EqualError(t, err, "Invalid booking reference")
}

func TestStripeWebhookUnavailableWithoutPayments(t *testing.T) {
	prev := paymentService
	paymentService = nil
	defer func() { paymentService = prev }()

	rec := httptest.NewRecorder()
	StripeWebhook(rec, httptest.NewRequest(http.MethodPost, "/api/v1/bookings/webhook-checkout", nil))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
