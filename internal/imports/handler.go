package imports

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/formatting"
	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/routes"
	"github.com/JaimeStill/tally/pkg/tabular"
)

// Handler provides the inspect and commit endpoints.
type Handler struct {
	sys           System
	logger        *slog.Logger
	maxUploadSize int64
}

// NewHandler creates a Handler with the given system, logger, and upload size limit.
func NewHandler(sys System, logger *slog.Logger, maxUploadSize int64) *Handler {
	return &Handler{
		sys:           sys,
		logger:        logger.With("handler", "imports"),
		maxUploadSize: maxUploadSize,
	}
}

// Routes returns the route group definition for import endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/imports",
		Tags:   []string{"Imports"},
		Routes: []routes.Route{
			{Method: "POST", Pattern: "/inspect", Handler: h.Inspect, OpenAPI: ops.Inspect},
			{Method: "POST", Pattern: "/commit", Handler: h.Commit, OpenAPI: ops.Commit},
		},
	}
}

// Inspect accepts a multipart form with file, entity, and an optional sheet.
func (h *Handler) Inspect(w http.ResponseWriter, r *http.Request) {
	if err := h.parseForm(w, r); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	upload, err := h.readFile(r)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if upload == nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, tabular.ErrNoFile)
		return
	}

	result, err := h.sys.Inspect(r.Context(), InspectCommand{
		Entity:      r.FormValue("entity"),
		Sheet:       r.FormValue("sheet"),
		Filename:    upload.filename,
		ContentType: upload.contentType,
		Data:        upload.data,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Commit accepts either a JSON body referencing an inspected import or a
// multipart form that may carry the file again. Mapping and dupDecisions
// are JSON-encoded form values in the multipart variant.
func (h *Handler) Commit(w http.ResponseWriter, r *http.Request) {
	var (
		cmd CommitCommand
		err error
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		cmd, err = h.decodeCommit(w, r)
	} else {
		cmd, err = h.commitForm(w, r)
	}
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	result, err := h.sys.Commit(r.Context(), cmd)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) decodeCommit(w http.ResponseWriter, r *http.Request) (CommitCommand, error) {
	var cmd CommitCommand
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := json.NewDecoder(r.Body).Decode(&cmd); err != nil {
		if tooLarge(err) {
			return cmd, h.tooLargeErr()
		}
		return cmd, fmt.Errorf("%w: %w", ErrInvalidDecision, err)
	}
	return cmd, nil
}

func (h *Handler) commitForm(w http.ResponseWriter, r *http.Request) (CommitCommand, error) {
	var cmd CommitCommand

	if err := h.parseForm(w, r); err != nil {
		return cmd, err
	}

	cmd.Entity = r.FormValue("entity")
	cmd.Sheet = r.FormValue("sheet")

	if v := r.FormValue("importId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return cmd, ErrSessionNotFound
		}
		cmd.ImportID = &id
	}

	if v := r.FormValue("mapping"); v != "" {
		if err := json.Unmarshal([]byte(v), &cmd.Mapping); err != nil {
			return cmd, fmt.Errorf("%w: %w", ErrInvalidMapping, err)
		}
	}

	if v := r.FormValue("dupDecisions"); v != "" {
		if err := json.Unmarshal([]byte(v), &cmd.DupDecisions); err != nil {
			return cmd, fmt.Errorf("%w: %w", ErrInvalidDecision, err)
		}
	}

	if v := r.FormValue("adoptAsStandard"); v != "" {
		adopt, err := strconv.ParseBool(v)
		if err != nil {
			return cmd, fmt.Errorf("%w: adoptAsStandard %q", ErrInvalidDecision, v)
		}
		cmd.AdoptAsStandard = adopt
	}

	upload, err := h.readFile(r)
	if err != nil {
		return cmd, err
	}
	if upload != nil {
		cmd.Filename = upload.filename
		cmd.Data = upload.data
	}

	return cmd, nil
}

func (h *Handler) parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize)
	if err := r.ParseMultipartForm(h.maxUploadSize); err != nil {
		if tooLarge(err) {
			return h.tooLargeErr()
		}
		return fmt.Errorf("%w: %w", tabular.ErrNoFile, err)
	}
	return nil
}

type upload struct {
	filename    string
	contentType string
	data        []byte
}

// readFile returns nil when the form has no file part.
func (h *Handler) readFile(r *http.Request) (*upload, error) {
	file, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tabular.ErrNoFile, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	return &upload{
		filename:    header.Filename,
		contentType: header.Header.Get("Content-Type"),
		data:        data,
	}, nil
}

func (h *Handler) tooLargeErr() error {
	return fmt.Errorf("%w (%s)", ErrFileTooLarge, formatting.FormatBytes(h.maxUploadSize, 1))
}

func tooLarge(err error) bool {
	var mbe *http.MaxBytesError
	return errors.As(err, &mbe)
}
