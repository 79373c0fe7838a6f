package query_test

import (
	"slices"
	"testing"

	"github.com/JaimeStill/tally/pkg/query"
)

const selectSessions = "SELECT s.id, s.entity, s.file_hash, s.updated_at FROM public.import_sessions s"

func testProjection() *query.ProjectionMap {
	return query.NewProjectionMap("public", "import_sessions", "s").
		Project("id", "ID").
		Project("entity", "Entity").
		Project("file_hash", "FileHash").
		Project("updated_at", "UpdatedAt")
}

func ptr[T any](v T) *T { return &v }

func TestProjectionMap(t *testing.T) {
	p := testProjection()

	if got := p.From(); got != "public.import_sessions s" {
		t.Errorf("From() = %q", got)
	}
	if got := p.Alias(); got != "s" {
		t.Errorf("Alias() = %q", got)
	}
	if got := p.Columns(); got != "s.id, s.entity, s.file_hash, s.updated_at" {
		t.Errorf("Columns() = %q", got)
	}
	if col, ok := p.Lookup("FileHash"); !ok || col != "s.file_hash" {
		t.Errorf("Lookup(FileHash) = %q, %v", col, ok)
	}
	if _, ok := p.Lookup("file_hash; DROP TABLE records"); ok {
		t.Error("Lookup accepted an unprojected name")
	}
}

func TestProjectionMapColumnPanicsOnUnknown(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Column did not panic for an unknown field")
		}
	}()
	testProjection().Column("Nope")
}

func TestParseSortFields(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []query.SortField
	}{
		{"empty", "", nil},
		{"blank", "  ", nil},
		{"ascending", "Entity", []query.SortField{{Field: "Entity"}}},
		{"descending", "-UpdatedAt", []query.SortField{{Field: "UpdatedAt", Descending: true}}},
		{
			"mixed with spaces and gaps",
			" Entity ,, -UpdatedAt ",
			[]query.SortField{{Field: "Entity"}, {Field: "UpdatedAt", Descending: true}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := query.ParseSortFields(tt.input); !slices.Equal(got, tt.want) {
				t.Errorf("ParseSortFields(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	tests := []struct {
		name     string
		build    func(*query.Builder) (string, []any)
		wantSQL  string
		wantArgs []any
	}{
		{
			name:    "plain select",
			build:   (*query.Builder).Build,
			wantSQL: selectSessions,
		},
		{
			name:    "count",
			build:   (*query.Builder).BuildCount,
			wantSQL: "SELECT COUNT(*) FROM public.import_sessions s",
		},
		{
			name: "single by id",
			build: func(b *query.Builder) (string, []any) {
				return b.BuildSingle("ID", "abc")
			},
			wantSQL:  selectSessions + " WHERE s.id = $1",
			wantArgs: []any{"abc"},
		},
		{
			name: "equals dereferences pointers",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Entity", ptr("inventory")).Build()
			},
			wantSQL:  selectSessions + " WHERE s.entity = $1",
			wantArgs: []any{"inventory"},
		},
		{
			name: "typed nil skipped",
			build: func(b *query.Builder) (string, []any) {
				var entity *string
				return b.WhereEquals("Entity", entity).WhereEquals("FileHash", nil).Build()
			},
			wantSQL: selectSessions,
		},
		{
			name: "conditions numbered in order",
			build: func(b *query.Builder) (string, []any) {
				return b.
					WhereEquals("Entity", "inventory").
					WhereSearch(ptr("ab"), "FileHash", "Entity").
					WhereIn("ID", []any{"x", "y"}).
					BuildCount()
			},
			wantSQL:  "SELECT COUNT(*) FROM public.import_sessions s WHERE s.entity = $1 AND (s.file_hash ILIKE $2 OR s.entity ILIKE $3) AND s.id IN ($4, $5)",
			wantArgs: []any{"inventory", "%ab%", "%ab%", "x", "y"},
		},
		{
			name: "search escapes wildcards",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereContains("FileHash", ptr("50%_off")).Build()
			},
			wantSQL:  selectSessions + " WHERE s.file_hash ILIKE $1",
			wantArgs: []any{`%50\%\_off%`},
		},
		{
			name: "empty search and list skipped",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereSearch(ptr(""), "Entity").WhereIn("ID", nil).Build()
			},
			wantSQL: selectSessions,
		},
		{
			name: "nullable",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereNullable("FileHash", nil).WhereNullable("Entity", "shipments").Build()
			},
			wantSQL:  selectSessions + " WHERE s.file_hash IS NULL AND s.entity = $1",
			wantArgs: []any{"shipments"},
		},
		{
			name: "first match",
			build: func(b *query.Builder) (string, []any) {
				return b.WhereEquals("Entity", "inventory").BuildSingleOrNull()
			},
			wantSQL:  selectSessions + " WHERE s.entity = $1 LIMIT 1",
			wantArgs: []any{"inventory"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := tt.build(query.NewBuilder(testProjection()))
			if sql != tt.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tt.wantSQL)
			}
			if !slices.Equal(args, tt.wantArgs) {
				t.Errorf("args = %v, want %v", args, tt.wantArgs)
			}
		})
	}
}

func TestBuilderOrdering(t *testing.T) {
	defaultSort := query.SortField{Field: "UpdatedAt", Descending: true}

	tests := []struct {
		name string
		sort []query.SortField
		want string
	}{
		{"default", nil, " ORDER BY s.updated_at DESC"},
		{
			"requested",
			[]query.SortField{{Field: "Entity"}, {Field: "UpdatedAt", Descending: true}},
			" ORDER BY s.entity ASC, s.updated_at DESC",
		},
		{
			"unknown fields dropped",
			[]query.SortField{{Field: "1; DROP TABLE records"}, {Field: "Entity", Descending: true}},
			" ORDER BY s.entity DESC",
		},
		{
			"all unknown falls back to default",
			[]query.SortField{{Field: "created_at"}},
			" ORDER BY s.updated_at DESC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, _ := query.NewBuilder(testProjection(), defaultSort).
				OrderByFields(tt.sort).
				BuildPage(3, 25)

			want := selectSessions + tt.want + " LIMIT 25 OFFSET 50"
			if sql != want {
				t.Errorf("sql = %q\nwant  %q", sql, want)
			}
		})
	}
}
