package api

import (
	"errors"
	"net/http"

	service "github.com/tricktrack/tricktrack/internal/app"
	"github.com/tricktrack/tricktrack/internal/domain/ledger"
	"github.com/tricktrack/tricktrack/internal/domain/validation"
)

const maxBodyBytes = 1 << 20

// Sentinel kinds for API errors.
var (
	ErrBadRequest = errors.New("bad request")
)

// statusFor returns the HTTP status and response code for err.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, ledger.ErrInvalidUser):
		return http.StatusBadRequest, "invalid_input"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	}

	code := validation.Code(err)
	switch validation.KindOf(err) {
	case validation.ErrInvalidInput, validation.ErrOutOfRange, validation.ErrSelfValidation:
		return http.StatusBadRequest, code
	case validation.ErrNotFound:
		return http.StatusNotFound, code
	case validation.ErrInvalidState, validation.ErrDuplicateValidator:
		return http.StatusConflict, code
	}
	return http.StatusInternalServerError, "internal_error"
}
