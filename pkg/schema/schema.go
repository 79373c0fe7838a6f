// Package schema defines canonical field descriptions and infers the scalar
// type of spreadsheet columns from sampled values.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ErrInvalidType is returned when decoding an unknown scalar type.
var ErrInvalidType = errors.New("type must be string, integer, number, date, or boolean")

// ScalarType is the coarse type of a column or canonical field.
type ScalarType string

const (
	TypeString  ScalarType = "string"
	TypeInteger ScalarType = "integer"
	TypeNumber  ScalarType = "number"
	TypeDate    ScalarType = "date"
	TypeBoolean ScalarType = "boolean"
)

// Types returns all scalar types in inference precedence order.
func Types() []ScalarType {
	return []ScalarType{TypeBoolean, TypeInteger, TypeNumber, TypeDate, TypeString}
}

// ParseType validates s as a ScalarType.
func ParseType(s string) (ScalarType, error) {
	t := ScalarType(strings.ToLower(strings.TrimSpace(s)))
	for _, valid := range Types() {
		if t == valid {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidType, s)
}

func (t *ScalarType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Field is one canonical field of an entity schema.
type Field struct {
	Name    string     `json:"name"`
	Type    ScalarType `json:"type"`
	Aliases []string   `json:"aliases"`
}

// NormalizeName folds a header into a canonical field name: diacritics are
// stripped, inner whitespace collapsed, and the result lower-cased and trimmed.
func NormalizeName(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// Dedupe merges fields that share a normalized name, unioning their aliases
// in first-seen order. The first occurrence's type wins.
func Dedupe(fields []Field) []Field {
	out := make([]Field, 0, len(fields))
	index := make(map[string]int, len(fields))

	for _, f := range fields {
		name := NormalizeName(f.Name)
		if name == "" {
			continue
		}

		i, ok := index[name]
		if !ok {
			index[name] = len(out)
			out = append(out, Field{Name: name, Type: f.Type, Aliases: []string{}})
			i = len(out) - 1
		}

		for _, a := range f.Aliases {
			if !contains(out[i].Aliases, a) {
				out[i].Aliases = append(out[i].Aliases, a)
			}
		}
	}

	return out
}

// Lookup returns the field with the given normalized name.
func Lookup(fields []Field, name string) (Field, bool) {
	name = NormalizeName(name)
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
