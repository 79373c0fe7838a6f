package imports

import (
	"errors"
	"net/http"

	"github.com/JaimeStill/tally/internal/profiles"
	"github.com/JaimeStill/tally/internal/sessions"
	"github.com/JaimeStill/tally/pkg/tabular"
)

var (
	ErrUnknownEntity    = errors.New("unknown entity")
	ErrInvalidDecision  = errors.New("invalid duplicate decision")
	ErrInvalidMapping   = errors.New("mapping references a header not in the sheet")
	ErrFileRequired     = errors.New("file required: the import has no stored copy")
	ErrHashMismatch     = errors.New("file does not match the inspected import")
	ErrSessionNotFound  = errors.New("import session not found")
	ErrFileTooLarge     = errors.New("file exceeds upload size limit")
	ErrAlreadyCommitted = sessions.ErrAlreadyCommitted
)

// MapHTTPStatus maps import errors, including the parse errors surfaced
// from spreadsheet reading, to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, tabular.ErrNoFile),
		errors.Is(err, tabular.ErrEmptySheet),
		errors.Is(err, tabular.ErrUnsupportedFile),
		errors.Is(err, tabular.ErrSheetNotFound),
		errors.Is(err, ErrUnknownEntity),
		errors.Is(err, ErrInvalidDecision),
		errors.Is(err, ErrInvalidMapping),
		errors.Is(err, ErrFileRequired),
		errors.Is(err, ErrHashMismatch),
		errors.Is(err, profiles.ErrInvalidProfile):
		return http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrAlreadyCommitted):
		return http.StatusConflict
	case errors.Is(err, ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
