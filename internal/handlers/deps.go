package handlers

import (
	"github.com/jamesash096/NATours/internal/config"
	"github.com/jamesash096/NATours/internal/services"
)

// Package-level dependencies, wired once at startup. Tests swap these for
// fakes.
var (
	cfg = config.Load()

	users UserStore = &mongoUserStore{}

	mail              services.MailSender = services.LogSender{}
	paymentService    *services.PaymentService
	cloudinaryService *services.CloudinaryService
)

// Init wires the shared handler dependencies. Nil services stay on their
// fallbacks so the API degrades instead of crashing when a SaaS credential
// is missing.
func Init(c *config.Config, sender services.MailSender, payments *services.PaymentService, uploads *services.CloudinaryService) {
	if c != nil {
		cfg = c
	}
	if sender != nil {
		mail = sender
	}
	paymentService = payments
	cloudinaryService = uploads
}

// Users exposes the user store for the auth middleware's subject lookups.
func Users() UserStore {
	return users
}
