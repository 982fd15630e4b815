package utils

import (
	"encoding/json"
	"net/http"

	"sunar-backend/internal/billing"
)

// JSON writes data as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// Error writes a structured error response. Billing errors carry their
// machine-readable kind and map to the matching HTTP status; anything else
// is reported as a plain 500.
func Error(w http.ResponseWriter, err error) {
	kind := billing.KindOf(err)

	status := http.StatusInternalServerError
	message := "Internal server error"

	switch kind {
	case billing.KindValidation, billing.KindInvalidAmount, billing.KindInsufficientStock:
		status = http.StatusBadRequest
		message = err.Error()
	case billing.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	case billing.KindForbidden:
		status = http.StatusForbidden
		message = err.Error()
	case billing.KindConsistency:
		status = http.StatusInternalServerError
		message = err.Error()
	}

	JSON(w, status, errorResponse{Error: message, Kind: string(kind)})
}
