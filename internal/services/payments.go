package services

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/jamesash096/NATours/internal/models"
)

// PaymentService wraps Stripe checkout for tour bookings.
type PaymentService struct {
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewPaymentService(secretKey, webhookSecret, frontendURL string) *PaymentService {
	stripe.Key = secretKey
	return &PaymentService{
		webhookSecret: webhookSecret,
		successURL:    frontendURL + "/my-bookings?alert=booking",
		cancelURL:     frontendURL + "/tours",
	}
}

// CreateCheckoutSession opens a Stripe checkout session for one seat on the
// tour. The booking id rides along as the client reference so the webhook
// can mark the right row paid.
func (s *PaymentService) CreateCheckoutSession(user *models.User, tour *models.Tour, bookingID uuid.UUID) (*stripe.CheckoutSession, error) {
	session, err := checkoutsession.New(s.checkoutParams(user, tour, bookingID))
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return session, nil
}

func (s *PaymentService) checkoutParams(user *models.User, tour *models.Tour, bookingID uuid.UUID) *stripe.CheckoutSessionParams {
	productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
		Name:        stripe.String(tour.Name + " Tour"),
		Description: stripe.String(tour.Summary),
	}
	if tour.ImageCover != "" {
		productData.Images = stripe.StringSlice([]string{tour.ImageCover})
	}

	return &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		CustomerEmail:     stripe.String(user.Email),
		ClientReferenceID: stripe.String(bookingID.String()),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyUSD)),
					UnitAmount: stripe.Int64(int64(tour.Price * 100)),
					ProductData: productData,
				},
			},
		},
	}
}

// VerifyWebhook authenticates an incoming Stripe webhook payload against its
// signature header.
func (s *PaymentService) VerifyWebhook(payload []byte, signature string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, signature, s.webhookSecret)
}
