package records

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/JaimeStill/tally/pkg/query"
	"github.com/JaimeStill/tally/pkg/repository"
)

var projection = query.
	NewProjectionMap("public", "records", "r").
	Project("id", "ID").
	Project("entity", "Entity").
	Project("key_kind", "KeyKind").
	Project("natural_key", "NaturalKey").
	Project("data", "Data").
	Project("created_at", "CreatedAt").
	Project("updated_at", "UpdatedAt")

var defaultSort = query.SortField{Field: "UpdatedAt", Descending: true}

// Filters contains optional filtering criteria for record queries.
type Filters struct {
	Entity  *string `json:"entity,omitempty"`
	KeyKind *string `json:"keyKind,omitempty"`
}

func (f Filters) Apply(b *query.Builder) *query.Builder {
	return b.
		WhereEquals("Entity", f.Entity).
		WhereEquals("KeyKind", f.KeyKind)
}

func FiltersFromQuery(values url.Values) Filters {
	var f Filters

	if e := values.Get("entity"); e != "" {
		f.Entity = &e
	}
	if k := values.Get("keyKind"); k != "" {
		f.KeyKind = &k
	}

	return f
}

func scanRecord(s repository.Scanner) (Record, error) {
	var (
		r    Record
		kind string
		data []byte
	)

	if err := s.Scan(
		&r.ID,
		&r.Entity,
		&kind,
		&r.NaturalKey,
		&data,
		&r.CreatedAt,
		&r.UpdatedAt,
	); err != nil {
		return r, err
	}

	r.KeyKind = KeyKind(kind)
	if err := json.Unmarshal(data, &r.Data); err != nil {
		return r, fmt.Errorf("decode record data: %w", err)
	}
	return r, nil
}

type upserted struct {
	Record
	inserted bool
}

func scanUpserted(s repository.Scanner) (upserted, error) {
	var (
		u    upserted
		kind string
		data []byte
	)

	if err := s.Scan(
		&u.ID,
		&u.Entity,
		&kind,
		&u.NaturalKey,
		&data,
		&u.CreatedAt,
		&u.UpdatedAt,
		&u.inserted,
	); err != nil {
		return u, err
	}

	u.KeyKind = KeyKind(kind)
	if err := json.Unmarshal(data, &u.Data); err != nil {
		return u, fmt.Errorf("decode record data: %w", err)
	}
	return u, nil
}
