package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/vmatch/internal/adapters/chat"
	service "github.com/okian/vmatch/internal/app"
	"github.com/okian/vmatch/internal/domain/matching"
)

// Sentinel kinds for API errors.
var (
	ErrServe      = errors.New("http serve failed")
	ErrBadRequest = errors.New("bad request")
)

// statusFor maps an error to its HTTP status and error code. This is the only
// place error kinds become status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrTooLong):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, service.ErrNotStarted),
		errors.Is(err, chat.ErrDisabled):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, chat.ErrUpstream):
		return http.StatusBadGateway, "upstream_error"
	}
	switch matching.Kind(err) {
	case matching.ErrNotFound:
		return http.StatusNotFound, "not_found"
	case matching.ErrValidation:
		return http.StatusBadRequest, "validation_failed"
	case matching.ErrUpstream:
		return http.StatusBadGateway, "upstream_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %w", ErrBadRequest, err)
}
