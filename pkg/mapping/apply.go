package mapping

import (
	"github.com/JaimeStill/tally/pkg/schema"
	"github.com/JaimeStill/tally/pkg/tabular"
)

// Column is one confirmed header mapping. An empty MapTo drops the column.
type Column struct {
	Incoming string `json:"incoming"`
	MapTo    string `json:"mapTo"`
}

// Confirmed returns the auto-mapped proposals as columns. It is the default
// mapping when a commit supplies none of its own.
func Confirmed(proposals []Proposal) []Column {
	cols := make([]Column, 0, len(proposals))
	for _, p := range proposals {
		if p.AutoMapped && p.BestMatch != nil {
			cols = append(cols, Column{Incoming: p.Incoming, MapTo: *p.BestMatch})
		}
	}
	return cols
}

// Apply produces a record document from row. With columns, each mapped
// header is written under its normalized target name; without, every header
// is written under its own normalized name. Null cells are omitted so they
// never overwrite stored values.
func Apply(row tabular.Row, headers []string, columns []Column) map[string]any {
	doc := make(map[string]any, len(row))

	if len(columns) == 0 {
		for _, h := range headers {
			put(doc, schema.NormalizeName(h), row[h])
		}
		return doc
	}

	for _, c := range columns {
		if c.MapTo == "" {
			continue
		}
		put(doc, schema.NormalizeName(c.MapTo), row[c.Incoming])
	}
	return doc
}

// AdoptedFields derives the field list for a new profile version. Mapped
// columns become string fields aliased by their incoming header; with no
// columns the normalized headers are used as-is without aliases.
func AdoptedFields(columns []Column, headers []string) []schema.Field {
	if len(columns) == 0 {
		return schema.FieldsFromHeaders(headers)
	}

	fields := make([]schema.Field, 0, len(columns))
	for _, c := range columns {
		if c.MapTo == "" {
			continue
		}
		fields = append(fields, schema.Field{
			Name:    c.MapTo,
			Type:    schema.TypeString,
			Aliases: []string{c.Incoming},
		})
	}
	return schema.Dedupe(fields)
}

func put(doc map[string]any, key string, v tabular.Value) {
	if key == "" || v.Kind() == tabular.KindNull {
		return
	}
	doc[key] = v.Any()
}
