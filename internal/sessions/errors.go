package sessions

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound         = errors.New("import session not found")
	ErrDuplicate        = errors.New("import session already exists")
	ErrAlreadyCommitted = errors.New("file has already been committed for this entity")
)

// MapHTTPStatus maps session domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrAlreadyCommitted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
