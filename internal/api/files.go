package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/internal/sessions"
	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/openapi"
	"github.com/JaimeStill/tally/pkg/routes"
	"github.com/JaimeStill/tally/pkg/storage"
)

var errNoStoredFile = errors.New("import has no stored file")

// fileHandler serves the uploaded spreadsheet retained for an import session.
type fileHandler struct {
	sessions sessions.System
	store    storage.System
	logger   *slog.Logger
}

func newFileHandler(ss sessions.System, store storage.System, logger *slog.Logger) *fileHandler {
	return &fileHandler{
		sessions: ss,
		store:    store,
		logger:   logger.With("handler", "files"),
	}
}

func (h *fileHandler) routes() routes.Group {
	return routes.Group{
		Prefix: "/sessions",
		Tags:   []string{"Sessions"},
		Routes: []routes.Route{
			{
				Method:  "GET",
				Pattern: "/{id}/file",
				Handler: h.download,
				OpenAPI: &openapi.Operation{
					OperationID: "downloadSessionFile",
					Summary:     "Download the file an import session was inspected from",
					Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Session id")},
					Responses: map[int]*openapi.Response{
						200: openapi.ResponseBinary("The stored upload"),
						400: openapi.ResponseRef("BadRequest"),
						404: openapi.ResponseRef("NotFound"),
					},
				},
			},
		},
	}
}

func (h *fileHandler) download(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid session id: %w", err))
		return
	}

	sess, err := h.sessions.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, sessions.MapHTTPStatus(err), err)
		return
	}
	if sess.StorageKey == "" {
		handlers.RespondError(w, h.logger, http.StatusNotFound, errNoStoredFile)
		return
	}

	body, err := h.store.Download(r.Context(), sess.StorageKey)
	if err != nil {
		handlers.RespondError(w, h.logger, storage.MapHTTPStatus(err), err)
		return
	}
	defer body.Close()

	name := sess.Filename
	if name == "" {
		name = path.Base(sess.StorageKey)
	}
	contentType := mime.TypeByExtension(path.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": name}))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, body); err != nil {
		h.logger.Warn("file download interrupted", "session", id, "error", err)
	}
}
