package mapping

import (
	"context"
	"strings"
	"unicode"

	"github.com/JaimeStill/tally/pkg/schema"
	"github.com/JaimeStill/tally/pkg/tabular"
)

// DefaultAssistSamples is how many scrubbed sample values accompany each
// header in an assistant request.
const DefaultAssistSamples = 5

// Suggestion is one assistant-proposed mapping. A nil MapTo means the
// assistant found no suitable canonical field.
type Suggestion struct {
	Incoming       string  `json:"incoming"`
	MapTo          *string `json:"mapTo"`
	NameConfidence float64 `json:"nameConfidence"`
	TypeConfidence float64 `json:"typeConfidence"`
	Rationale      string  `json:"rationale,omitempty"`
}

// AssistRequest carries unresolved headers with scrubbed sample values.
type AssistRequest struct {
	Entity  string              `json:"entity"`
	Fields  []schema.Field      `json:"canonicalFields"`
	Headers []string            `json:"headers"`
	Samples map[string][]string `json:"samples"`
}

// Assistant suggests mappings for headers the local matcher could not settle.
// Implementations never fail: any error yields an empty result.
type Assistant interface {
	Suggest(ctx context.Context, req AssistRequest) []Suggestion
}

// NoopAssistant suggests nothing.
type NoopAssistant struct{}

func (NoopAssistant) Suggest(context.Context, AssistRequest) []Suggestion { return nil }

// NewAssistRequest builds a request for the pending headers, attaching up to
// perHeader scrubbed non-empty samples from the leading rows.
func NewAssistRequest(entity string, fields []schema.Field, pending []string, rows []tabular.Row, perHeader int) AssistRequest {
	if perHeader <= 0 {
		perHeader = DefaultAssistSamples
	}

	samples := make(map[string][]string, len(pending))
	for _, h := range pending {
		vals := make([]string, 0, perHeader)
		for _, row := range rows {
			if len(vals) == perHeader {
				break
			}
			v := row[h]
			if v.Empty() {
				continue
			}
			vals = append(vals, Scrub(v.String()))
		}
		samples[h] = vals
	}

	return AssistRequest{
		Entity:  entity,
		Fields:  fields,
		Headers: pending,
		Samples: samples,
	}
}

// Scrub masks a sample value before it leaves the process: upper-case
// letters become A, lower-case letters a, digits 0. Punctuation, spacing
// and length survive so the value's shape stays recognizable.
func Scrub(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsUpper(r):
			return 'A'
		case unicode.IsLower(r):
			return 'a'
		case unicode.IsDigit(r):
			return '0'
		default:
			return r
		}
	}, s)
}
