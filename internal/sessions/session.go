// Package sessions is the import ledger. Each (entity, file hash) pair owns
// one row that moves from DRY_RUN to COMMITTED exactly once.
package sessions

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an import session.
type Status string

const (
	StatusDryRun    Status = "DRY_RUN"
	StatusCommitted Status = "COMMITTED"
)

// Stats summarizes an inspect or commit pass. Dry runs fill the analysis
// counters, commits fill inserted, skipped, and total.
type Stats struct {
	Rows           int    `json:"rows"`
	SchemaStatus   string `json:"schemaStatus,omitempty"`
	AutoMapped     int    `json:"autoMapped,omitempty"`
	PendingHeaders int    `json:"pendingHeaders,omitempty"`
	AutoInsert     int    `json:"autoInsert,omitempty"`
	Review         int    `json:"review,omitempty"`
	Inserted       int    `json:"inserted,omitempty"`
	Skipped        int    `json:"skipped,omitempty"`
	Total          int    `json:"total,omitempty"`
}

// Session is one ledger row.
type Session struct {
	ID         uuid.UUID       `json:"id"`
	Entity     string          `json:"entity"`
	FileHash   string          `json:"fileHash"`
	Filename   string          `json:"filename"`
	StorageKey string          `json:"storageKey,omitempty"`
	Status     Status          `json:"status"`
	Decisions  json.RawMessage `json:"decisions,omitempty"`
	Stats      Stats           `json:"stats"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// Committed reports whether the session has been applied.
func (s Session) Committed() bool {
	return s.Status == StatusCommitted
}

// DryRunCommand records an inspect pass.
type DryRunCommand struct {
	Entity     string
	FileHash   string
	Filename   string
	StorageKey string
	Stats      Stats
}

// CommitCommand records a successful commit along with the decisions that
// produced it.
type CommitCommand struct {
	Entity     string
	FileHash   string
	Filename   string
	StorageKey string
	Decisions  json.RawMessage
	Stats      Stats
}
