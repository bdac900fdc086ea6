package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jamesash096/NATours/internal/apperror"
)

// SuccessResponse is the envelope for all successful responses.
type SuccessResponse struct {
	Status  string      `json:"status"`
	Results *int        `json:"results,omitempty"`
	Token   string      `json:"token,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// FailResponse is the envelope for client and server errors.
type FailResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("⚠️ Failed to encode response: %v", err)
	}
}

// respondData writes a success envelope wrapping data.
func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, SuccessResponse{Status: "success", Data: data})
}

// respondList writes a success envelope with a results count, for collection endpoints.
func respondList(w http.ResponseWriter, status int, count int, data interface{}) {
	writeJSON(w, status, SuccessResponse{Status: "success", Results: &count, Data: data})
}

// respondError funnels any error through the application error taxonomy.
// 4xx errors report status "fail"; 5xx errors report status "error" and are
// logged with their cause. Unclassified errors never leak details to clients.
func respondError(w http.ResponseWriter, err error) {
	appErr := apperror.From(err)

	status := "fail"
	if appErr.Code >= http.StatusInternalServerError {
		status = "error"
		log.Printf("⚠️ Internal error: %v", err)
	}

	writeJSON(w, appErr.Code, FailResponse{Status: status, Message: appErr.Message})
}
