package schema

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JaimeStill/tally/pkg/tabular"
)

// DefaultMinSupport is the share of non-empty samples the winning type must
// reach before a column is considered uniform rather than mixed.
const DefaultMinSupport = 0.6

var (
	dateLayouts = []string{"2006-01-02", "02/01/2006", "01/02/2006"}

	boolTokens = map[string]bool{
		"true": true, "false": true,
		"yes": true, "no": true,
		"y": true, "n": true,
		"1": true, "0": true,
	}

	epochMin = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
	epochMax = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC).UnixMilli()
)

// Inference is the result of classifying a column's samples.
type Inference struct {
	Type    ScalarType `json:"type"`
	Support float64    `json:"support"`
	Mixed   bool       `json:"mixed,omitempty"`
}

// InferColumnType classifies each non-empty sample into the first matching
// bucket of boolean, integer, number, date, string and returns the bucket
// with the most members. Support is that bucket's share of non-empty samples.
// A column with no non-empty samples is string with full support. The winner
// is kept even when its support falls below minSupport; such columns are
// flagged Mixed and the low support carries into TypeMatchConfidence.
func InferColumnType(samples []tabular.Value, minSupport float64) Inference {
	counts := make(map[ScalarType]int, 5)
	total := 0

	for _, v := range samples {
		if v.Empty() {
			continue
		}
		total++
		counts[Classify(v)]++
	}

	if total == 0 {
		return Inference{Type: TypeString, Support: 1}
	}

	best := TypeString
	bestCount := -1
	for _, t := range Types() {
		if counts[t] > bestCount {
			best, bestCount = t, counts[t]
		}
	}

	support := float64(bestCount) / float64(total)
	return Inference{Type: best, Support: support, Mixed: support < minSupport}
}

// Classify returns the first scalar type v satisfies in precedence order.
func Classify(v tabular.Value) ScalarType {
	switch {
	case IsBoolean(v):
		return TypeBoolean
	case IsInteger(v):
		return TypeInteger
	case IsNumber(v):
		return TypeNumber
	case IsDate(v):
		return TypeDate
	default:
		return TypeString
	}
}

func IsBoolean(v tabular.Value) bool {
	if v.Kind() == tabular.KindBool {
		return true
	}
	return boolTokens[strings.ToLower(strings.TrimSpace(v.String()))]
}

func IsInteger(v tabular.Value) bool {
	switch v.Kind() {
	case tabular.KindInt:
		return true
	case tabular.KindFloat:
		return v.Float() == math.Trunc(v.Float()) && !math.IsInf(v.Float(), 0)
	case tabular.KindText:
		f, ok := parseNumeric(v.String())
		return ok && f == math.Trunc(f)
	}
	return false
}

func IsNumber(v tabular.Value) bool {
	switch v.Kind() {
	case tabular.KindInt:
		return true
	case tabular.KindFloat:
		return !math.IsNaN(v.Float()) && !math.IsInf(v.Float(), 0)
	case tabular.KindText:
		_, ok := parseNumeric(v.String())
		return ok
	}
	return false
}

// IsDate accepts native dates, epoch-millisecond numbers between 1970 and
// 2100, and text in yyyy-MM-dd, dd/MM/yyyy or MM/dd/yyyy form.
func IsDate(v tabular.Value) bool {
	switch v.Kind() {
	case tabular.KindDate:
		return true
	case tabular.KindInt, tabular.KindFloat:
		n, _ := v.Number()
		ms := int64(n)
		return ms >= epochMin && ms < epochMax
	case tabular.KindText:
		s := strings.TrimSpace(v.String())
		for _, layout := range dateLayouts {
			if _, err := time.Parse(layout, s); err == nil {
				return true
			}
		}
	}
	return false
}

// parseNumeric strips thousands separators and whitespace and parses the
// remainder as a finite decimal.
func parseNumeric(s string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if r == ',' || r == ' ' || r == '\t' || r == '\u00a0' {
			return -1
		}
		return r
	}, s)

	if cleaned == "" {
		return 0, false
	}

	for _, r := range cleaned {
		if (r < '0' || r > '9') && r != '.' && r != '-' && r != '+' {
			return 0, false
		}
	}

	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// TypeMatchConfidence scores how well an inferred column type fits a
// canonical field type, given the inference support. An empty canonical
// type means no field matched.
func TypeMatchConfidence(inferred, canonical ScalarType, support float64) float64 {
	switch {
	case canonical != "" && inferred == canonical:
		return math.Max(0.95, support)
	case inferred == TypeInteger && canonical == TypeNumber:
		return math.Max(0.85, support*0.9)
	case inferred == TypeNumber && canonical == TypeInteger:
		return math.Max(0.7, support*0.7)
	default:
		return math.Min(0.5, support)
	}
}

// InferFields derives a transient cold-start field list from sampled rows:
// one field per header named by its normalized form, typed by inference
// over at most sampleRows rows, with no aliases.
func InferFields(headers []string, rows []tabular.Row, sampleRows int) []Field {
	n := min(len(rows), sampleRows)
	fields := make([]Field, 0, len(headers))

	for _, h := range headers {
		samples := make([]tabular.Value, 0, n)
		for _, row := range rows[:n] {
			samples = append(samples, row[h])
		}
		inf := InferColumnType(samples, DefaultMinSupport)
		fields = append(fields, Field{Name: NormalizeName(h), Type: inf.Type, Aliases: []string{}})
	}

	return Dedupe(fields)
}

// FieldsFromHeaders builds an adoptable field list straight from raw
// headers: normalized names, string type, no aliases.
func FieldsFromHeaders(headers []string) []Field {
	fields := make([]Field, 0, len(headers))
	for _, h := range headers {
		fields = append(fields, Field{Name: NormalizeName(h), Type: TypeString, Aliases: []string{}})
	}
	return Dedupe(fields)
}
