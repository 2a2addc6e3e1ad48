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
//   writeSuccess(w, http.StatusOK, "Login successful", data)
//   writeError(w, r, logger, err)
//
// CONSISTENT ENVELOPE:
// Every /api response has the same shape:
//   {"success": true,  "message": "Login successful", "data": {...}}
//   {"success": false, "message": "Group not found",  "data": null, "error": "not_found"}
//
// success is always status < 400, so the frontend can branch on one field.

import (
	"errors"
	"log/slog"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/sakif/bookifyme/internal/apperror"
)

// json is a drop-in for encoding/json that honours json.Marshaler and the
// standard struct tags.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// maxBodyBytes caps request bodies. The largest legitimate body is an
// add-to-shelf call carrying book_data.
const maxBodyBytes = 1 << 20

const (
	msgInvalidBody = "Invalid request body"
	msgInternal    = "An internal error occurred"
)

// Envelope is the standard response format of every /api endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
	Error   string `json:"error,omitempty"` // machine-readable type, e.g. "not_found"
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE writing the body. Once Encode writes,
// the headers are on the wire and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeSuccess wraps data in a successful envelope.
func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, Envelope{Success: true, Message: message, Data: data})
}

// errorStatus maps an apperror sentinel to its HTTP status and error type.
//
// WHY HERE AND NOT IN THE SERVICE?
// The service layer should not know about HTTP status codes. The same
// ErrNotFound could become codes.NotFound in gRPC or an exit code in a CLI.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, apperror.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, apperror.ErrNotAvailable):
		return http.StatusInternalServerError, "upstream_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

// writeError maps a domain error to a status code and an envelope.
//
// errors.As() walks the chain that the service built with %w:
//
//	fmt.Errorf("service/community: ...: %w", apperror.NotFound("Group not found"))
//
// so the client sees "Group not found" while the log keeps the full chain.
// Anything that is not an *AppError is a bug or an infrastructure failure:
// it is logged and the client gets a generic message. Raw errors can carry
// SQL or file paths and are never sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeJSON(w, http.StatusInternalServerError, Envelope{Message: msgInternal, Error: "internal_error"})
		return
	}

	status, errType := errorStatus(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), "upstream failure",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
			slog.String("cause", appErr.Err.Error()),
		)
	}
	writeJSON(w, status, Envelope{Message: appErr.Message, Error: errType})
}

// decodeJSON reads a JSON body into dst. Any failure (empty body, syntax
// error, wrong types, trailing data, oversize) is a validation error with
// the same client message.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("", msgInvalidBody)
	}
	if dec.More() {
		return apperror.ValidationFailed("", msgInvalidBody)
	}
	return nil
}
