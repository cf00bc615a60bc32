package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// WHY HELPERS?
// Without helpers, every handler repeats the same boilerplate:
//   w.Header().Set("Content-Type", "application/json")
//   w.WriteHeader(statusCode)
//   json.NewEncoder(w).Encode(data)
//
// With helpers, handlers are cleaner and more consistent:
//   writeJSON(w, http.StatusOK, data)
//   writeError(w, logger, err)
//
// ERROR FORMAT:
// The browser client reads `data.error || data.errors[0]`, so every error
// response is one of:
//   {"error": "Invalid username/email or password."}
//   {"errors": ["Please enter your full name.", "Passwords do not match."]}

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/pulsepy/internal/apperror"
	"github.com/sakif/pulsepy/internal/auth"
	"github.com/sakif/pulsepy/internal/service"
)

// Client-facing messages owned by the HTTP layer.
const (
	MsgInvalidBody = "Invalid request body."
	MsgInternal    = "Something went wrong. Please try again."
)

// maxBodyBytes caps JSON request bodies. Learner code for the mentor is the
// largest thing we accept.
const maxBodyBytes = 1 << 20

// ErrorResponse is the single-message error shape.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrorListResponse is the batched-validation error shape.
type ErrorListResponse struct {
	Errors []string `json:"errors"`
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// You MUST set headers and status code BEFORE writing the body.
// Once you call w.Write() (which Encode does internally), the headers are sent.
// Any header changes after that are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// If encoding fails, the headers are already sent: we can only log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// decodeJSON reads a size-limited JSON body into dst.
// Any failure becomes a validation error carrying MsgInvalidBody.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return &apperror.AppError{
			Err:     apperror.ErrValidation,
			Message: MsgInvalidBody,
			Field:   "body",
			Cause:   err,
		}
	}
	return nil
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400 ({"errors": [...]} when the error carries a list)
//	ErrUnauthorized → 401
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrUnreachable  → 502
//	anything else   → 500 with a generic message; the real error is logged
//
// The service layer never knows about HTTP status codes; this is the one
// place they are decided.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		// NEVER expose internal error details to the client.
		// The raw message might contain SQL, file paths, or other sensitive info.
		logger.Error("request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: MsgInternal})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, apperror.ErrValidation):
		if len(appErr.Details) > 0 {
			writeJSON(w, http.StatusBadRequest, ErrorListResponse{Errors: appErr.Details})
			return
		}
		status = http.StatusBadRequest
	case errors.Is(err, apperror.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, apperror.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperror.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperror.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, apperror.ErrUnreachable):
		status = http.StatusBadGateway
	}

	message := appErr.Message
	if status == http.StatusInternalServerError {
		logger.Error("request failed", slog.String("error", err.Error()))
		message = MsgInternal
	}
	writeJSON(w, status, ErrorResponse{Error: message})
}

// Unauthorized returns the auth.UnauthorizedFunc used by auth.RequireAuth.
// Every authentication failure looks the same to the client.
func Unauthorized(logger *slog.Logger) auth.UnauthorizedFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Debug("session rejected",
			slog.String("path", r.URL.Path),
			slog.String("reason", err.Error()),
		)
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: service.MsgSessionExpired})
	}
}
