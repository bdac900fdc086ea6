package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/jamesash096/NATours/internal/apperror"
	"github.com/jamesash096/NATours/internal/database"
	"github.com/jamesash096/NATours/internal/middleware"
	"github.com/jamesash096/NATours/internal/models"
	"github.com/jamesash096/NATours/internal/query"
	"github.com/jamesash096/NATours/internal/services"
)

// GetMe returns the authenticated user's own profile.
func GetMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	respondData(w, http.StatusOK, map[string]interface{}{"user": user})
}

// UpdateMe updates the authenticated user's name, email and photo. Password
// fields are rejected outright so credential changes always go through the
// dedicated route.
func UpdateMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())

	fields, err := collectProfileFields(w, r)
	if err != nil {
		respondError(w, err)
		return
	}
	if len(fields) == 0 {
		respondError(w, apperror.BadRequest("Please provide at least one field to update"))
		return
	}

	updated, err := users.UpdateProfile(r.Context(), user.ID, fields)
	if err != nil {
		respondError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]interface{}{"user": updated})
}

// collectProfileFields extracts the allowed profile updates from either a
// JSON body or a multipart form carrying a new photo.
func collectProfileFields(w http.ResponseWriter, r *http.Request) (bson.M, error) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		return collectMultipartProfileFields(r)
	}

	var body map[string]interface{}
	if err := decodeJSON(w, r, &body); err != nil {
		return nil, err
	}
	if err := rejectPasswordFields(body); err != nil {
		return nil, err
	}

	fields := bson.M{}
	if v, ok := body["name"].(string); ok && v != "" {
		fields["name"] = v
	}
	if v, ok := body["email"].(string); ok && v != "" {
		fields["email"] = normalizeEmail(v)
	}
	return fields, nil
}

func collectMultipartProfileFields(r *http.Request) (bson.M, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, apperror.BadRequest("Invalid multipart form")
	}

	formValues := map[string]interface{}{}
	for key := range r.MultipartForm.Value {
		formValues[key] = r.FormValue(key)
	}
	if err := rejectPasswordFields(formValues); err != nil {
		return nil, err
	}

	fields := bson.M{}
	if v := r.FormValue("name"); v != "" {
		fields["name"] = v
	}
	if v := r.FormValue("email"); v != "" {
		fields["email"] = normalizeEmail(v)
	}

	if headers := r.MultipartForm.File["photo"]; len(headers) > 0 {
		if cloudinaryService == nil {
			return nil, apperror.New(http.StatusServiceUnavailable, "Image uploads are not available right now")
		}
		url, err := cloudinaryService.UploadImageFromHeader(r.Context(), headers[0], services.UserPhotoFolder)
		if err != nil {
			return nil, err
		}
		fields["photo"] = url
	}

	return fields, nil
}

func rejectPasswordFields(body map[string]interface{}) error {
	for _, key := range []string{"password", "password_confirm", "password_current"} {
		if _, ok := body[key]; ok {
			return apperror.BadRequest("This route is not for password updates. Please use /updatemypassword.")
		}
	}
	return nil
}

// DeleteMe soft-deletes the authenticated user's account. The document is
// kept but excluded from every subsequent lookup.
func DeleteMe(w http.ResponseWriter, r *http.Request) {
	user := middleware.CurrentUser(r.Context())
	if err := users.Deactivate(r.Context(), user.ID); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetAllUsers lists users through the standard query pipeline, admin only.
func GetAllUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	features := query.New(r.URL.Query()).
		ApplyFilter().
		ApplySort().
		Project().
		Paginate()

	coll := database.DB.Collection(database.UsersCollection)
	cursor, err := coll.Find(ctx, features.MergedFilter(activeUserFilter()), features.FindOptions())
	if err != nil {
		respondError(w, err)
		return
	}
	defer cursor.Close(ctx)

	result := []models.User{}
	if err := cursor.All(ctx, &result); err != nil {
		respondError(w, err)
		return
	}

	respondList(w, http.StatusOK, len(result), map[string]interface{}{"users": result})
}

// GetUser fetches a single user by id, admin only.
func GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := users.UserByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	if user == nil {
		respondError(w, apperror.NotFound("No user found with that ID"))
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"user": user})
}

// CreateUser is deliberately not implemented; accounts are created through
// signup so they always pass the credential rules.
func CreateUser(w http.ResponseWriter, r *http.Request) {
	respondError(w, apperror.New(http.StatusInternalServerError,
		"This route is not defined! Please use /signup instead"))
}

// UpdateUser lets an admin change a user's name, email or role. Passwords
// are never editable here.
func UpdateUser(w http.ResponseWriter, r *http.Request) {
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
	if err := rejectPasswordFields(body); err != nil {
		respondError(w, err)
		return
	}

	fields := bson.M{}
	if v, ok := body["name"].(string); ok && v != "" {
		fields["name"] = v
	}
	if v, ok := body["email"].(string); ok && v != "" {
		fields["email"] = normalizeEmail(v)
	}
	if v, ok := body["role"].(string); ok && v != "" {
		if !models.ValidRole(models.Role(v)) {
			respondError(w, apperror.BadRequest("Invalid role"))
			return
		}
		fields["role"] = v
	}
	if len(fields) == 0 {
		respondError(w, apperror.BadRequest("Please provide at least one field to update"))
		return
	}

	updated, err := users.UpdateProfile(r.Context(), oid, fields)
	if err != nil {
		respondError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]interface{}{"user": updated})
}

// DeleteUser removes a user document entirely, admin only. Self-service
// deletion goes through DeleteMe and only deactivates.
func DeleteUser(w http.ResponseWriter, r *http.Request) {
	oid, err := objectIDParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	result, err := database.DB.Collection(database.UsersCollection).DeleteOne(r.Context(), bson.M{"_id": oid})
	if err != nil {
		respondError(w, err)
		return
	}
	if result.DeletedCount == 0 {
		respondError(w, apperror.NotFound("No user found with that ID"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

