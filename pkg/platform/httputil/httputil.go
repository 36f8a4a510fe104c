// Package httputil centralizes JSON response writing so every handler maps
// domain errors to HTTP statuses the same way.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "github.com/sou1357/bloodbankapp/pkg/domain-errors"
)

// ErrorResponse is the wire shape of every error payload. The description is
// omitted for internal errors so storage details never leak to callers.
// Available/Needed are populated only for insufficient-stock outcomes.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
	Available        *int   `json:"available,omitempty"`
	Needed           *int   `json:"needed,omitempty"`
}

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeValidation:        http.StatusBadRequest,
	dErrors.CodeBadRequest:        http.StatusBadRequest,
	dErrors.CodeUnauthorized:      http.StatusUnauthorized,
	dErrors.CodeForbidden:         http.StatusForbidden,
	dErrors.CodeNotFound:          http.StatusNotFound,
	dErrors.CodeConflict:          http.StatusConflict,
	dErrors.CodeInvalidTransition: http.StatusConflict,
	dErrors.CodeInsufficientStock: http.StatusConflict,
	dErrors.CodeTimeout:           http.StatusGatewayTimeout,
	dErrors.CodeInternal:          http.StatusInternalServerError,
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError maps a domain error to its HTTP status and writes the standard
// error payload. Unclassified errors are treated as internal.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		code = dErrors.CodeInternal
		status = http.StatusInternalServerError
	}

	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = errorMessage(err)
	}

	var stockErr *dErrors.InsufficientStockError
	if errors.As(err, &stockErr) {
		resp.Available = &stockErr.Available
		resp.Needed = &stockErr.Needed
	}

	WriteJSON(w, status, resp)
}

// errorMessage prefers the domain error's message over the full cause chain
// so wrapped infrastructure errors stay out of responses.
func errorMessage(err error) string {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return domainErr.Message()
	}
	return err.Error()
}
