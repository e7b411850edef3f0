package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"marketlens/pkg/marketlens"
)

// statusClientClosedRequest is the nginx convention for a caller that went
// away before the response was ready.
const statusClientClosedRequest = 499

// ErrorResponse represents an error API response with structured information.
type ErrorResponse struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	ErrorCode string `json:"error_code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type errorMessageSetter interface {
	SetErrorMessage(message string)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes the error envelope and hands the message to the request
// logger.
func writeError(w http.ResponseWriter, r *http.Request, status int, code marketlens.ErrorCode, message string) {
	if setter, ok := w.(errorMessageSetter); ok {
		setter.SetErrorMessage(message)
	}
	writeJSON(w, status, ErrorResponse{
		Code:      status,
		Message:   message,
		ErrorCode: string(code),
		RequestID: middleware.GetReqID(r.Context()),
	})
}

// writeErrorResponse maps err to a status. Errors without a code are
// reported as internal.
func writeErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := marketlens.ErrCodeInternal
	message := "internal server error"
	var typed *marketlens.Error
	if errors.As(err, &typed) {
		code = typed.Code
		message = typed.Message
	}
	writeError(w, r, mapErrorCodeToHTTPStatus(code), code, message)
}

// mapErrorCodeToHTTPStatus maps business error codes to HTTP status codes.
func mapErrorCodeToHTTPStatus(code marketlens.ErrorCode) int {
	switch code {
	case marketlens.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case marketlens.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case marketlens.ErrCodeProvider,
		marketlens.ErrCodeEmptyResponse,
		marketlens.ErrCodeInvalidOutput,
		marketlens.ErrCodeValidation:
		return http.StatusBadGateway
	case marketlens.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case marketlens.ErrCodeCanceled:
		return statusClientClosedRequest
	case marketlens.ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
