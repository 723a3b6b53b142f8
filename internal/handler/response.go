package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/efreitasn/replaybroker/internal/domain"
)

// createdLayout formats bookkeeping timestamps. Market timestamps use
// domain.FormatTimestamp instead.
const createdLayout = "2006-01-02T15:04:05Z"

func formatCreated(t time.Time) string {
	return t.UTC().Format(createdLayout)
}

// WriteJSON writes a JSON response with the given status code and data.
// Sets Content-Type to application/json before writing the status code.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data) // client gone; nothing left to report to
}

// errorResponse is the standard error response format.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteError writes a standard error response with the given status code,
// error code, and human-readable message.
func WriteError(w http.ResponseWriter, status int, errorCode, message string) {
	WriteJSON(w, status, errorResponse{
		Error:   errorCode,
		Message: message,
	})
}

// ParseJSON decodes the request body as JSON into v, rejecting unknown
// fields. The Content-Type must be application/json.
func ParseJSON(r *http.Request, v any) error {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(ct, "application/json") {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("Request body must be valid JSON with Content-Type: application/json")
	}

	return nil
}

// errorStatus maps sentinel errors to their HTTP status. The error code
// in the body is the sentinel's own text.
var errorStatus = []struct {
	err    error
	status int
}{
	{domain.ErrOrderNotFound, http.StatusNotFound},
	{domain.ErrAccountNotFound, http.StatusNotFound},
	{domain.ErrWebhookNotFound, http.StatusNotFound},
	{domain.ErrQuoteNotFound, http.StatusNotFound},
	{domain.ErrInvalidOrderModel, http.StatusUnprocessableEntity},
	{domain.ErrUnknownMarket, http.StatusBadRequest},
	{domain.ErrUnknownFrequency, http.StatusBadRequest},
	{domain.ErrInvalidTransition, http.StatusConflict},
	{domain.ErrOrderAlreadyExists, http.StatusConflict},
	{domain.ErrUnknownEvent, http.StatusConflict},
}

// mapError writes the HTTP response for an error returned by the broker
// or one of its services.
func mapError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	for _, e := range errorStatus {
		if errors.Is(err, e.err) {
			WriteError(w, e.status, e.err.Error(), err.Error())
			return
		}
	}
	WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
}
