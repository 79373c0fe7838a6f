package api

import (
	"github.com/JaimeStill/tally/internal/assist"
	"github.com/JaimeStill/tally/internal/imports"
	"github.com/JaimeStill/tally/internal/profiles"
	"github.com/JaimeStill/tally/internal/records"
	"github.com/JaimeStill/tally/internal/sessions"
	"github.com/JaimeStill/tally/pkg/mapping"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Profiles profiles.System
	Sessions sessions.System
	Records  records.System
	Imports  imports.System
}

// NewDomain creates all domain systems from the API runtime. The mapping
// assistant is only built when assist is enabled.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	profilesSystem := profiles.New(db, runtime.Logger, runtime.Pagination)
	sessionsSystem := sessions.New(db, runtime.Logger, runtime.Pagination)
	recordsSystem := records.New(db, runtime.Logger, runtime.Pagination)

	var assistant mapping.Assistant
	if runtime.Assist.Enabled {
		assistant = assist.New(
			assist.AgentChat(runtime.Agent),
			runtime.Assist,
			runtime.Metrics,
			runtime.Logger,
		)
	}

	importsSystem := imports.New(
		imports.NewStore(db, profilesSystem, sessionsSystem, recordsSystem),
		runtime.Storage,
		assistant,
		runtime.Imports,
		runtime.Metrics,
		runtime.Logger,
	)

	return &Domain{
		Profiles: profilesSystem,
		Sessions: sessionsSystem,
		Records:  recordsSystem,
		Imports:  importsSystem,
	}
}
