package records

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record key already exists")
)

// MapHTTPStatus maps record domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrDuplicate) {
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
