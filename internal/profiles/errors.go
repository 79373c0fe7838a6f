package profiles

import (
	"errors"
	"net/http"
)

// Domain errors for profile operations.
var (
	ErrNotFound       = errors.New("schema profile not found")
	ErrDuplicate      = errors.New("schema profile version already exists")
	ErrInvalidProfile = errors.New("profile requires an entity and at least one named field")
)

// MapHTTPStatus maps profile domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrInvalidProfile) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
