package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jamesash096/NATours/internal/middleware"
	"github.com/jamesash096/NATours/internal/models"
)

func TestGetMe(t *testing.T) {
	user := seedUser(t, "pass1234")
	defer swapUserStore(newFakeUserStore(user))()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), user))

	rec := httptest.NewRecorder()
	GetMe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	data := body["data"].(map[string]interface{})
	got := data["user"].(map[string]interface{})
	assert.Equal(t, "test@example.com", got["email"])
	assert.NotContains(t, got, "password")
}

func TestUpdateMe(t *testing.T) {
	user := seedUser(t, "pass1234")
	store := newFakeUserStore(user)
	defer swapUserStore(store)()

	req := postJSON("/api/v1/users/updateme", `{"name":"Renamed","role":"admin"}`)
	req.Method = http.MethodPatch
	req = req.WithContext(middleware.WithUser(req.Context(), user))

	rec := httptest.NewRecorder()
	UpdateMe(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Renamed", user.Name)
	// Role changes never come from the profile route.
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestUpdateMeRejectsPasswordFields(t *testing.T) {
	user := seedUser(t, "pass1234")
	store := newFakeUserStore(user)
	defer swapUserStore(store)()

	req := postJSON("/api/v1/users/updateme", `{"name":"Renamed","password":"sneaky123"}`)
	req.Method = http.MethodPatch
	req = req.WithContext(middleware.WithUser(req.Context(), user))

	rec := httptest.NewRecorder()
	UpdateMe(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "This route is not for password updates. Please use /updatemypassword.",
		decodeBody(t, rec)["message"])
	assert.Empty(t, store.profileUpdates, "a rejected update must not touch the store")
	assert.Equal(t, "Test User", user.Name)
}

func TestDeleteMe(t *testing.T) {
	user := seedUser(t, "pass1234")
	store := newFakeUserStore(user)
	defer swapUserStore(store)()

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/users/deleteme", nil)
	req = req.WithContext(middleware.WithUser(req.Context(), user))

	rec := httptest.NewRecorder()
	DeleteMe(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
	require.Len(t, store.deactivated, 1)
	assert.Equal(t, user.ID, store.deactivated[0])
	assert.False(t, user.IsActive())

	// A deactivated user disappears from lookups.
	found, err := store.UserByEmail(context.Background(), "test@example.com")
	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestCreateUserNotDefined(t *testing.T) {
	rec := httptest.NewRecorder()
	CreateUser(rec, httptest.NewRequest(http.MethodPost, "/api/v1/users", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "This route is not defined! Please use /signup instead", body["message"])
}
