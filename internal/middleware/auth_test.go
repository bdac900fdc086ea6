package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jamesash096/NATours/internal/auth"
	"github.com/jamesash096/NATours/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeUserLoader implements UserLoader over a map, with an injectable error.
type fakeUserLoader struct {
	users   map[string]*models.User
	loadErr error
}

func (f *fakeUserLoader) UserByID(_ context.Context, id string) (*models.User, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return u, nil
}

var testSecret = []byte("test-secret")

func newTestUser(t *testing.T, role models.Role) *models.User {
	t.Helper()
	return &models.User{
		ID:    primitive.NewObjectID(),
		Name:  "Test User",
		Email: "test@example.com",
		Role:  role,
	}
}

func newAuth(users ...*models.User) *Auth {
	loader := &fakeUserLoader{users: make(map[string]*models.User)}
	for _, u := range users {
		loader.users[u.ID.Hex()] = u
	}
	return &Auth{Secret: testSecret, Users: loader}
}

// okHandler records the principal it saw and returns 200.
func okHandler(saw **models.User) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*saw = CurrentUser(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func bearerRequest(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestProtect_MissingToken(t *testing.T) {
	var saw *models.User
	rec := httptest.NewRecorder()

	newAuth().Protect(okHandler(&saw)).ServeHTTP(rec, bearerRequest(""))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON body: %v", err)
	}
	if body["status"] != "fail" {
		t.Fatalf("status field = %q, want fail", body["status"])
	}
}

func TestProtect_CookieTokenAccepted(t *testing.T) {
	user := newTestUser(t, models.RoleUser)
	a := newAuth(user)

	token, err := auth.SignToken(user.ID.Hex(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("SignToken error: %v", err)
	}

	var saw *models.User
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req.AddCookie(&http.Cookie{Name: JWTCookieName, Value: token})

	a.Protect(okHandler(&saw)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if saw == nil || saw.ID != user.ID {
		t.Fatal("principal not attached to context")
	}
}

func TestProtect_InvalidToken(t *testing.T) {
	var saw *models.User
	rec := httptest.NewRecorder()

	newAuth().Protect(okHandler(&saw)).ServeHTTP(rec, bearerRequest("garbage.token.value"))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProtect_SubjectDeleted(t *testing.T) {
	a := newAuth() // empty store: subject no longer exists
	token, err := auth.SignToken(primitive.NewObjectID().Hex(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("SignToken error: %v", err)
	}

	var saw *models.User
	rec := httptest.NewRecorder()
	a.Protect(okHandler(&saw)).ServeHTTP(rec, bearerRequest(token))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestProtect_CredentialsRotatedAfterIssuance(t *testing.T) {
	user := newTestUser(t, models.RoleUser)
	a := newAuth(user)

	token, err := auth.SignToken(user.ID.Hex(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("SignToken error: %v", err)
	}

	// Rotate credentials after the token was issued.
	user.PasswordChangedAt = time.Now().Add(2 * time.Second)

	var saw *models.User
	rec := httptest.NewRecorder()
	a.Protect(okHandler(&saw)).ServeHTTP(rec, bearerRequest(token))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 after credential rotation", rec.Code)
	}
}

func TestProtect_CredentialsRotatedBeforeIssuanceStillValid(t *testing.T) {
	user := newTestUser(t, models.RoleUser)
	user.PasswordChangedAt = time.Now().Add(-time.Hour)
	a := newAuth(user)

	token, err := auth.SignToken(user.ID.Hex(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("SignToken error: %v", err)
	}

	var saw *models.User
	rec := httptest.NewRecorder()
	a.Protect(okHandler(&saw)).ServeHTTP(rec, bearerRequest(token))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for pre-issuance rotation", rec.Code)
	}
}

func TestOptionalAuth_NeverRejects(t *testing.T) {
	a := newAuth()

	for name, req := range map[string]*http.Request{
		"no token":  bearerRequest(""),
		"bad token": bearerRequest("not.a.jwt"),
	} {
		t.Run(name, func(t *testing.T) {
			var saw *models.User
			rec := httptest.NewRecorder()
			a.OptionalAuth(okHandler(&saw)).ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if saw != nil {
				t.Fatal("expected anonymous principal")
			}
		})
	}
}

func TestOptionalAuth_AttachesValidPrincipal(t *testing.T) {
	user := newTestUser(t, models.RoleUser)
	a := newAuth(user)
	token, err := auth.SignToken(user.ID.Hex(), testSecret, time.Hour)
	if err != nil {
		t.Fatalf("SignToken error: %v", err)
	}

	var saw *models.User
	rec := httptest.NewRecorder()
	a.OptionalAuth(okHandler(&saw)).ServeHTTP(rec, bearerRequest(token))

	if saw == nil || saw.ID != user.ID {
		t.Fatal("valid principal not attached")
	}
}

func TestRestrictTo(t *testing.T) {
	tests := []struct {
		name     string
		role     models.Role
		allowed  []models.Role
		wantCode int
	}{
		{"user on admin route", models.RoleUser, []models.Role{models.RoleAdmin}, http.StatusForbidden},
		{"admin on admin route", models.RoleAdmin, []models.Role{models.RoleAdmin}, http.StatusOK},
		{"lead-guide in multi-role list", models.RoleLeadGuide, []models.Role{models.RoleAdmin, models.RoleLeadGuide}, http.StatusOK},
		{"guide outside list", models.RoleGuide, []models.Role{models.RoleAdmin, models.RoleLeadGuide}, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user := newTestUser(t, tt.role)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)
			req = req.WithContext(WithUser(req.Context(), user))

			var saw *models.User
			RestrictTo(tt.allowed...)(okHandler(&saw)).ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
		})
	}
}

func TestRestrictTo_NoPrincipal(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/users", nil)

	var saw *models.User
	RestrictTo(models.RoleAdmin)(okHandler(&saw)).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 without a principal", rec.Code)
	}
}
