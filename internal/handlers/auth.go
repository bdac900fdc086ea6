package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jamesash096/NATours/internal/apperror"
	"github.com/jamesash096/NATours/internal/auth"
	"github.com/jamesash096/NATours/internal/middleware"
	"github.com/jamesash096/NATours/internal/models"
	"github.com/jamesash096/NATours/pkg/utils"
)

// Signup Request
type SignupRequest struct {
	Name            string `json:"name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	Role            string `json:"role"`
}

// Login Request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordUpdateRequest struct {
	PasswordCurrent string `json:"password_current"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

type passwordResetRequest struct {
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

const minPasswordLength = 8

// normalizeEmail lowercases and trims an address so storage and lookups are
// case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateNewPassword(password, confirm string) error {
	if len(password) < minPasswordLength {
		return apperror.BadRequest("Password must be at least 8 characters long")
	}
	if password != confirm {
		return apperror.BadRequest("Passwords do not match")
	}
	return nil
}

// createSendToken issues a session token for the user, sets it as an
// HTTP-only cookie for browser clients and returns it in the response body
// for API clients.
func createSendToken(w http.ResponseWriter, user *models.User, statusCode int) {
	token, err := auth.SignToken(user.ID.Hex(), []byte(cfg.JWTSecret), cfg.JWTExpires)
	if err != nil {
		respondError(w, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.JWTCookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(cfg.JWTCookieExpires),
		HttpOnly: true,
		Secure:   cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, statusCode, SuccessResponse{
		Status: "success",
		Token:  token,
		Data:   map[string]interface{}{"user": user},
	})
}

// signupRole accepts a known non-admin role from the request and falls back
// to "user". Admin accounts are only ever promoted by an existing admin.
func signupRole(requested string) models.Role {
	role := models.Role(requested)
	if models.ValidRole(role) && role != models.RoleAdmin {
		return role
	}
	return models.RoleUser
}

// Signup registers a new account.
func Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)

	if req.Name == "" || req.Email == "" || req.Password == "" {
		respondError(w, apperror.BadRequest("Please provide name, email and password"))
		return
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		respondError(w, err)
		return
	}

	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		respondError(w, err)
		return
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     signupRole(req.Role),
		Password: hashedPassword,
	}
	if err := users.Create(r.Context(), user); err != nil {
		respondError(w, err)
		return
	}

	// Welcome mail is best-effort; signup succeeds regardless.
	if err := mail.SendWelcome(r.Context(), user.Email, user.Name, cfg.FrontendURL+"/me"); err != nil {
		log.Printf("⚠️ Failed to send welcome email to %s: %v", user.Email, err)
	}

	createSendToken(w, user, http.StatusCreated)
}

// Login exchanges email and password for a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)

	if req.Email == "" || req.Password == "" {
		respondError(w, apperror.BadRequest("Please provide email and password!"))
		return
	}

	user, err := users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondError(w, apperror.Unauthorized("Incorrect email or password"))
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !valid {
		respondError(w, apperror.Unauthorized("Incorrect email or password"))
		return
	}

	createSendToken(w, user, http.StatusOK)
}

// Logout overwrites the session cookie with a short-lived dummy value.
func Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     middleware.JWTCookieName,
		Value:    "loggedout",
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Second),
		HttpOnly: true,
	})
	respondData(w, http.StatusOK, nil)
}

// ForgotPassword mints a reset token, stores its hash and emails the plain
// token to the account address. If the mail cannot be sent the stored token
// is rolled back so a retry starts clean.
func ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	req.Email = normalizeEmail(req.Email)
	if req.Email == "" {
		respondError(w, apperror.BadRequest("Please provide your email address"))
		return
	}

	user, err := users.UserByEmail(r.Context(), req.Email)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondError(w, apperror.NotFound("There is no user with email address."))
		return
	}

	plain, hashed, expires, err := auth.NewResetToken()
	if err != nil {
		respondError(w, err)
		return
	}
	if err := users.SetResetToken(r.Context(), user.ID, hashed, expires); err != nil {
		respondError(w, err)
		return
	}

	resetURL := fmt.Sprintf("%s/api/v1/users/resetpassword/%s", requestBaseURL(r), plain)
	if err := mail.SendPasswordReset(r.Context(), user.Email, user.Name, resetURL); err != nil {
		log.Printf("⚠️ Failed to send reset email to %s: %v", user.Email, err)
		if rbErr := users.ClearResetToken(context.WithoutCancel(r.Context()), user.ID); rbErr != nil {
			log.Printf("⚠️ Failed to roll back reset token for %s: %v", user.Email, rbErr)
		}
		respondError(w, apperror.New(http.StatusInternalServerError,
			"There was an error sending the email. Try again later!"))
		return
	}

	respondData(w, http.StatusOK, map[string]string{"message": "Token sent to email!"})
}

// ResetPassword redeems a reset token for a new password and logs the user
// in. The token arrives in plain form and is compared against the stored
// hash.
func ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req passwordResetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		respondError(w, err)
		return
	}

	hashed := auth.HashResetToken(chi.URLParam(r, "token"))
	user, err := users.UserByResetToken(r.Context(), hashed)
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondError(w, apperror.BadRequest("Token is invalid or has expired"))
		return
	}

	if err := applyPasswordChange(r.Context(), user, req.Password); err != nil {
		respondError(w, err)
		return
	}

	createSendToken(w, user, http.StatusOK)
}

// UpdateMyPassword rotates the password of the authenticated user after
// verifying the current one.
func UpdateMyPassword(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	var req passwordUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}

	valid, err := utils.VerifyPassword(req.PasswordCurrent, user.Password)
	if err != nil || !valid {
		respondError(w, apperror.Unauthorized("Your current password is wrong."))
		return
	}
	if err := validateNewPassword(req.Password, req.PasswordConfirm); err != nil {
		respondError(w, err)
		return
	}

	if err := applyPasswordChange(r.Context(), user, req.Password); err != nil {
		respondError(w, err)
		return
	}

	createSendToken(w, user, http.StatusOK)
}

// applyPasswordChange hashes and persists the new password. The rotation
// timestamp is backdated one second so a token issued in the same second as
// the change still fails the revocation check.
func applyPasswordChange(ctx context.Context, user *models.User, password string) error {
	hashedPassword, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	changedAt := time.Now().Add(-1 * time.Second)
	if err := users.UpdatePassword(ctx, user.ID, hashedPassword, changedAt); err != nil {
		return err
	}

	user.Password = hashedPassword
	user.PasswordChangedAt = changedAt
	user.PasswordResetToken = ""
	user.PasswordResetExpires = time.Time{}
	return nil
}

// requestBaseURL reconstructs the scheme and host the client used, honoring
// the proxy's forwarded-proto header.
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}
