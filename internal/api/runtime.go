package api

import (
	"github.com/JaimeStill/tally/internal/assist"
	"github.com/JaimeStill/tally/internal/config"
	"github.com/JaimeStill/tally/internal/imports"
	"github.com/JaimeStill/tally/internal/infrastructure"
	"github.com/JaimeStill/tally/pkg/pagination"

	gaconfig "github.com/JaimeStill/go-agents/pkg/config"
)

// Runtime extends Infrastructure with the configuration the API's domain
// systems are built from.
type Runtime struct {
	*infrastructure.Infrastructure
	Pagination pagination.Config
	Imports    imports.Config
	Assist     assist.Config
	Agent      gaconfig.AgentConfig
}

// NewRuntime creates an API runtime with a module-scoped logger.
func NewRuntime(cfg *config.Config, infra *infrastructure.Infrastructure) *Runtime {
	return &Runtime{
		Infrastructure: &infrastructure.Infrastructure{
			Lifecycle: infra.Lifecycle,
			Logger:    infra.Logger.With("module", "api"),
			Metrics:   infra.Metrics,
			Database:  infra.Database,
			Storage:   infra.Storage,
		},
		Pagination: cfg.API.Pagination,
		Imports:    cfg.Imports,
		Assist:     cfg.Assist,
		Agent:      cfg.Agent,
	}
}
