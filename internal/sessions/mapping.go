package sessions

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "import_sessions", "s").
	Project("id", "ID").
	Project("entity", "Entity").
	Project("file_hash", "FileHash").
	Project("filename", "Filename").
	Project("storage_key", "StorageKey").
	Project("status", "Status").
	Project("decisions", "Decisions").
	Project("stats", "Stats").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "UpdatedAt", Descending: true}

const returning = `RETURNING id, entity, file_hash, filename, storage_key, status,
	decisions, stats, created_at, updated_at`

// Filters contains optional filtering criteria for session queries.
type Filters struct {
	Entity   *string `json:"entity,omitempty"`
	Status   *string `json:"status,omitempty"`
	FileHash *string `json:"fileHash,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Entity", f.Entity).
		WhereEquals("Status", f.Status).
		WhereEquals("FileHash", f.FileHash)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if e := values.Get("entity"); e != "" {
		f.Entity = &e
	}
	if s := values.Get("status"); s != "" {
		f.Status = &s
	}
	if h := values.Get("fileHash"); h != "" {
		f.FileHash = &h
	}

	return f
}

func scanSession(s repository.Scanner) (Session, error) {
	var (
		sess      Session
		status    string
		decisions []byte
		stats     []byte
	)

	err := s.Scan(
		&sess.ID,
		&sess.Entity,
		&sess.FileHash,
		&sess.Filename,
		&sess.StorageKey,
		&status,
		&decisions,
		&stats,
		&sess.CreatedAt,
		&sess.UpdatedAt,
	)
	if err != nil {
		return sess, err
	}

	sess.Status = Status(status)
	if len(decisions) > 0 {
		sess.Decisions = json.RawMessage(decisions)
	}
	if len(stats) > 0 {
		if err := json.Unmarshal(stats, &sess.Stats); err != nil {
			return sess, fmt.Errorf("decode session stats: %w", err)
		}
	}
	return sess, nil
}
