package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/imports"
	"github.com/JaimeStill/tally/internal/profiles"
	"github.com/JaimeStill/tally/internal/records"
	"github.com/JaimeStill/tally/internal/sessions"
	"github.com/JaimeStill/tally/pkg/openapi"
	"github.com/JaimeStill/tally/pkg/routes"
)

// registerRoutes mounts every domain handler on mux and serves the
// OpenAPI document generated from the same groups at /openapi.json.
func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) error {
	groups := []routes.Group{
		domain.Imports.Handler(cfg.API.MaxUploadSizeBytes()).Routes(),
		domain.Profiles.Handler().Routes(),
		domain.Sessions.Handler().Routes(),
		domain.Records.Handler().Routes(),
		newFileHandler(domain.Sessions, runtime.Storage, runtime.Logger).routes(),
	}

	spec, err := buildSpec(cfg, groups)
	if err != nil {
		return err
	}

	routes.Register(mux, groups...)
	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(spec))
	return nil
}

func buildSpec(cfg *config.Config, groups []routes.Group) ([]byte, error) {
	spec := openapi.NewSpec(cfg.API.OpenAPI, cfg.Version)
	spec.AddServer(cfg.API.BasePath)

	for _, schemas := range []map[string]*openapi.Schema{
		imports.Schemas(),
		profiles.Schemas(),
		sessions.Schemas(),
		records.Schemas(),
	} {
		spec.Components.AddSchemas(schemas)
	}

	if err := routes.Document(spec, groups...); err != nil {
		return nil, fmt.Errorf("openapi: %w", err)
	}
	return openapi.MarshalJSON(spec)
}
