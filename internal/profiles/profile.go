// Package profiles stores versioned schema profiles: the canonical field
// list each entity's imports are mapped onto. Versions are append-only and
// at most one version per entity is active.
package profiles

import (
	"time"

	"github.com/google/uuid"

	"github.com/JaimeStill/tally/pkg/schema"
)

// Profile is one version of an entity's canonical schema.
type Profile struct {
	ID        uuid.UUID      `json:"id"`
	Entity    string         `json:"entity"`
	Version   int            `json:"version"`
	Fields    []schema.Field `json:"fields"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"createdAt"`
}

// AdoptCommand carries a field list to adopt as an entity's new active version.
type AdoptCommand struct {
	Entity string         `json:"entity"`
	Fields []schema.Field `json:"fields"`
}
