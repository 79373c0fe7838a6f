package profiles

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "schema_profiles", "sp").
	Project("id", "ID").
	Project("entity", "Entity").
	Project("version", "Version").
	Project("fields", "Fields").
	Project("active", "Active").
	Project("created_at", "CreatedAt")

var defaultSort = []query.SortField{
	{Field: "Entity"},
	{Field: "Version", Descending: true},
}

// Filters contains optional filtering criteria for profile queries.
type Filters struct {
	Entity *string `json:"entity,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

// Apply adds filter conditions to a query builder.
func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Entity", f.Entity).
		WhereEquals("Active", f.Active)
}

// FiltersFromQuery extracts filter values from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if e := values.Get("entity"); e != "" {
		f.Entity = &e
	}

	if a := values.Get("active"); a != "" {
		if v, err := strconv.ParseBool(a); err == nil {
			f.Active = &v
		}
	}

	return f
}

func scanProfile(s repository.Scanner) (Profile, error) {
	var (
		p      Profile
		fields []byte
	)

	err := s.Scan(
		&p.ID,
		&p.Entity,
		&p.Version,
		&fields,
		&p.Active,
		&p.CreatedAt,
	)
	if err != nil {
		return p, err
	}

	if err := json.Unmarshal(fields, &p.Fields); err != nil {
		return p, fmt.Errorf("decode profile fields: %w", err)
	}
	return p, nil
}
