package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jamesash096/NATours/internal/auth"
	"github.com/jamesash096/NATours/internal/models"
)

// JWTCookieName is the cookie carrying the session token for browser
// clients; API clients use the Authorization header instead.
const JWTCookieName = "jwt"

// UserLoader resolves a token subject to a live user record. Lookups must
// already exclude soft-deleted users.
type UserLoader interface {
	UserByID(ctx context.Context, id string) (*models.User, error)
}

// Auth verifies bearer tokens and attaches the authenticated principal to
// the request context.
type Auth struct {
	Secret []byte
	Users  UserLoader
}

type contextKey int

const principalKey contextKey = iota

// CurrentUser returns the authenticated principal, or nil when the request
// is anonymous.
func CurrentUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(principalKey).(*models.User)
	return u
}

// WithUser returns a context carrying the principal. Exposed for handler
// tests.
func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, principalKey, u)
}

// extractToken pulls a candidate token from the Authorization header or the
// jwt cookie, header winning.
func extractToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := r.Cookie(JWTCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// resolve runs the full verification chain: signature and expiry, live
// subject, and the computed revocation check against the credential-changed
// timestamp.
func (a *Auth) resolve(r *http.Request) (*models.User, *authFailure) {
	token := extractToken(r)
	if token == "" {
		return nil, &authFailure{http.StatusUnauthorized, "You are not logged in! Please log in to get access"}
	}

	userID, issuedAt, err := auth.VerifyToken(token, a.Secret)
	if err != nil {
		return nil, &authFailure{http.StatusUnauthorized, "Invalid or expired token. Please log in again"}
	}

	user, err := a.Users.UserByID(r.Context(), userID)
	if err != nil || user == nil {
		return nil, &authFailure{http.StatusUnauthorized, "The user belonging to this token no longer exists"}
	}

	if user.ChangedPasswordAfter(issuedAt) {
		return nil, &authFailure{http.StatusUnauthorized, "User recently changed password! Please log in again"}
	}

	return user, nil
}

type authFailure struct {
	code    int
	message string
}

// Protect rejects unauthenticated requests and attaches the principal on
// success.
func (a *Auth) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, failure := a.resolve(r)
		if failure != nil {
			writeFail(w, failure.code, failure.message)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// OptionalAuth runs the same checks as Protect but never rejects: any
// failure yields an anonymous request. Used to toggle UI affordances on
// rendered pages.
func (a *Auth) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, failure := a.resolve(r); failure == nil {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

// RestrictTo rejects authenticated principals whose role is outside the
// allow-list. Must run after Protect.
func RestrictTo(roles ...models.Role) func(http.Handler) http.Handler {
	allowed := make(map[models.Role]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := CurrentUser(r.Context())
			if user == nil {
				writeFail(w, http.StatusUnauthorized, "You are not logged in! Please log in to get access")
				return
			}
			if !allowed[user.Role] {
				writeFail(w, http.StatusForbidden, "You do not have permission to perform this action")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeFail(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "fail",
		"message": message,
	})
}
