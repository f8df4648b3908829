// Package response provides helpers for writing consistent JSON HTTP
// responses.
//
// Success responses carry the payload directly (a student, a list, a
// page). Error responses always use the envelope:
//
//	{ "error": { "message": "...", "trace_id": "..." } }
//
// so API consumers have exactly one error shape to handle. The trace id
// attached here is the request-scoped one from the middleware.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/aanand-mishra/student-records-api/internal/http/middleware"
	"github.com/go-playground/validator/v10"
)

// ErrorBody is the inner object of the error envelope.
type ErrorBody struct {
	Message string `json:"message"`
	TraceID string `json:"trace_id,omitempty"`
}

// ErrorEnvelope wraps every error response.
type ErrorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// WriteJSON writes a JSON-encoded response with the given status code.
// Headers must be set before WriteHeader locks them in.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// Error writes the standard error envelope with the request's trace id.
// Callers pass an already-sanitized error: internal SQL detail is
// stripped at the handler boundary, not here.
func Error(w http.ResponseWriter, r *http.Request, status int, err error) {
	WriteJSON(w, status, ErrorEnvelope{
		Error: ErrorBody{
			Message: err.Error(),
			TraceID: middleware.GetTraceID(r.Context()),
		},
	})
}

// ValidationError converts validator field errors into one 400 response
// with a per-field message for each broken rule.
func ValidationError(w http.ResponseWriter, r *http.Request, errs validator.ValidationErrors) {
	var errMessages []string

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "min":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s characters long", e.Field(), e.Param()))
		case "max":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at most %s characters long", e.Field(), e.Param()))
		case "letters_spaces":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must contain only letters and spaces", e.Field()))
		case "datetime":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a date in YYYY-MM-DD format", e.Field()))
		case "gte":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be at least %s", e.Field(), e.Param()))
		case "lte":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s cannot exceed %s", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	WriteJSON(w, http.StatusBadRequest, ErrorEnvelope{
		Error: ErrorBody{
			Message: strings.Join(errMessages, ", "),
			TraceID: middleware.GetTraceID(r.Context()),
		},
	})
}
