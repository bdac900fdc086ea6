package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/jamesash096/NATours/internal/handlers"
	"github.com/jamesash096/NATours/internal/middleware"
	"github.com/jamesash096/NATours/internal/models"
)

// SetupRoutes mounts the full API surface under /api/v1.
func SetupRoutes(r *chi.Mux, authmw *middleware.Auth) {
	r.Route("/api/v1", func(api chi.Router) {
		api.Route("/users", func(users chi.Router) {
			users.Post("/signup", handlers.Signup)
			users.Post("/login", handlers.Login)
			users.Get("/logout", handlers.Logout)
			users.Post("/forgotpassword", handlers.ForgotPassword)
			users.Patch("/resetpassword/{token}", handlers.ResetPassword)

			// Everything below requires a session.
			users.Group(func(protected chi.Router) {
				protected.Use(authmw.Protect)

				protected.Patch("/updatemypassword", handlers.UpdateMyPassword)
				protected.Get("/me", handlers.GetMe)
				protected.Patch("/updateme", handlers.UpdateMe)
				protected.Delete("/deleteme", handlers.DeleteMe)

				protected.Group(func(admin chi.Router) {
					admin.Use(middleware.RestrictTo(models.RoleAdmin))

					admin.Get("/", handlers.GetAllUsers)
					admin.Post("/", handlers.CreateUser)
					admin.Get("/{id}", handlers.GetUser)
					admin.Patch("/{id}", handlers.UpdateUser)
					admin.Delete("/{id}", handlers.DeleteUser)
				})
			})
		})

		api.Route("/tours", func(tours chi.Router) {
			// Public reads run soft auth so a logged-in browser session is
			// still visible to the handlers.
			tours.With(authmw.OptionalAuth, handlers.AliasTopTours).Get("/top-5-cheap", handlers.GetAllTours)

			tours.Get("/tour-stats", handlers.GetTourStats)
			tours.With(authmw.Protect, middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide, models.RoleGuide)).
				Get("/monthly-plan/{year}", handlers.GetMonthlyPlan)

			tours.Get("/tours-within/{distance}/center/{latlng}/unit/{unit}", handlers.GetToursWithin)
			tours.Get("/distances/{latlng}/unit/{unit}", handlers.GetDistances)

			tours.With(authmw.OptionalAuth).Get("/", handlers.GetAllTours)
			tours.With(authmw.OptionalAuth).Get("/slug/{slug}", handlers.GetTourBySlug)
			tours.With(authmw.OptionalAuth).Get("/{id}", handlers.GetTour)

			tours.Group(func(staff chi.Router) {
				staff.Use(authmw.Protect, middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide))

				staff.Post("/", handlers.CreateTour)
				staff.Patch("/{id}", handlers.UpdateTour)
				staff.Delete("/{id}", handlers.DeleteTour)
				staff.Post("/{id}/images", handlers.UploadTourImages)
			})

			// Nested review routes: the full review surface scoped to one
			// tour, sharing the flat handlers.
			tours.Route("/{tourId}/reviews", func(nested chi.Router) {
				nested.Get("/", handlers.GetAllReviews)
				nested.Get("/{id}", handlers.GetReview)

				nested.Group(func(protected chi.Router) {
					protected.Use(authmw.Protect)

					protected.With(middleware.RestrictTo(models.RoleUser)).
						Post("/", handlers.CreateReview)
					protected.With(middleware.RestrictTo(models.RoleUser, models.RoleAdmin)).
						Patch("/{id}", handlers.UpdateReview)
					protected.With(middleware.RestrictTo(models.RoleUser, models.RoleAdmin)).
						Delete("/{id}", handlers.DeleteReview)
				})
			})
		})

		api.Route("/reviews", func(reviews chi.Router) {
			reviews.Get("/", handlers.GetAllReviews)
			reviews.Get("/{id}", handlers.GetReview)

			reviews.Group(func(protected chi.Router) {
				protected.Use(authmw.Protect)

				protected.With(middleware.RestrictTo(models.RoleUser)).Post("/", handlers.CreateReview)
				protected.With(middleware.RestrictTo(models.RoleUser, models.RoleAdmin)).
					Patch("/{id}", handlers.UpdateReview)
				protected.With(middleware.RestrictTo(models.RoleUser, models.RoleAdmin)).
					Delete("/{id}", handlers.DeleteReview)
			})
		})

		api.Route("/bookings", func(bookings chi.Router) {
			// Stripe calls this unauthenticated; the signature is the auth.
			bookings.Post("/webhook", handlers.StripeWebhook)

			bookings.Group(func(protected chi.Router) {
				protected.Use(authmw.Protect)

				protected.Get("/checkout-session/{tourId}", handlers.GetCheckoutSession)
				protected.Get("/my", handlers.GetMyBookings)

				protected.Group(func(admin chi.Router) {
					admin.Use(middleware.RestrictTo(models.RoleAdmin, models.RoleLeadGuide))

					admin.Get("/", handlers.GetAllBookings)
					admin.Post("/", handlers.CreateBooking)
					admin.Get("/{id}", handlers.GetBooking)
					admin.Patch("/{id}", handlers.UpdateBooking)
					admin.Delete("/{id}", handlers.DeleteBooking)
				})
			})
		})
	})
}
