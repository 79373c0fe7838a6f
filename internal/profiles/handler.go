package profiles

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/handlers"
	"github.com/JaimeStill/tally/pkg/pagination"
	"github.com/JaimeStill/tally/pkg/routes"
	"github.com/JaimeStill/tally/pkg/schema"
)

// Handler provides HTTP endpoints for schema profile operations.
type Handler struct {
	sys        System
	logger     *slog.Logger
	pagination pagination.Config
}

// AdoptRequest is the body of the adopt endpoint.
type AdoptRequest struct {
	Fields []schema.Field `json:"fields"`
}

// NewHandler creates a Handler with the given system, logger, and pagination config.
func NewHandler(
	sys System,
	logger *slog.Logger,
	pagination pagination.Config,
) *Handler {
	return &Handler{
		sys:        sys,
		logger:     logger.With("handler", "profiles"),
		pagination: pagination,
	}
}

// Routes returns the route group definition for profile endpoints.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/profiles",
		Tags:   []string{"Profiles"},
		Routes: []routes.Route{
			{Method: "GET", Pattern: "", Handler: h.List, OpenAPI: ops.List},
			{Method: "GET", Pattern: "/{id}", Handler: h.Find, OpenAPI: ops.Find},
			{Method: "GET", Pattern: "/entity/{entity}/active", Handler: h.Active, OpenAPI: ops.Active},
			{Method: "POST", Pattern: "/entity/{entity}/adopt", Handler: h.Adopt, OpenAPI: ops.Adopt},
		},
	}
}

// List returns a paginated list of profile versions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.pagination)
	filters := FiltersFromQuery(r.URL.Query())

	result, err := h.sys.List(r.Context(), page, filters)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

// Find returns a single profile version by its UUID path parameter.
func (h *Handler) Find(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, ErrNotFound)
		return
	}

	p, err := h.sys.Find(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}

// Active returns the active profile for the entity path parameter.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	p, err := h.sys.Active(r.Context(), r.PathValue("entity"))
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, p)
}

// Adopt makes the posted field list the entity's new active profile.
func (h *Handler) Adopt(w http.ResponseWriter, r *http.Request) {
	var req AdoptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	p, err := h.sys.Adopt(r.Context(), AdoptCommand{
		Entity: r.PathValue("entity"),
		Fields: req.Fields,
	})
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusCreated, p)
}
