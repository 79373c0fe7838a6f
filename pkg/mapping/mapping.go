// Package mapping proposes how incoming spreadsheet headers map onto an
// entity's canonical fields, merges assistant suggestions into those
// proposals, and applies a confirmed mapping to rows.
package mapping

import (
	"github.com/JaimeStill/tally/pkg/schema"
	"github.com/JaimeStill/tally/pkg/similarity"
	"github.com/JaimeStill/tally/pkg/tabular"
)

const (
	// AutoMapThreshold is the minimum name and type confidence for a header
	// to be mapped without user confirmation.
	AutoMapThreshold = 0.95
	// DefaultSampleRows bounds how many leading rows feed type inference.
	DefaultSampleRows = 50
)

// Proposal describes the suggested mapping for one incoming header.
type Proposal struct {
	Incoming          string             `json:"incoming"`
	InferredType      schema.ScalarType  `json:"inferredType"`
	InferredSupport   float64            `json:"inferredSupport"`
	BestMatch         *string            `json:"bestMatch"`
	BestMatchType     *schema.ScalarType `json:"bestMatchType"`
	NameConfidence    float64            `json:"nameConfidence"`
	TypeConfidence    float64            `json:"typeConfidence"`
	AutoMapped        bool               `json:"autoMapped"`
	NeedsUserDecision bool               `json:"needsUserDecision"`
}

// Options tunes Propose. Zero values fall back to the package defaults.
type Options struct {
	SampleRows int
	Threshold  float64
	MinSupport float64
}

func (o Options) withDefaults() Options {
	if o.SampleRows <= 0 {
		o.SampleRows = DefaultSampleRows
	}
	if o.Threshold <= 0 {
		o.Threshold = AutoMapThreshold
	}
	if o.MinSupport <= 0 {
		o.MinSupport = schema.DefaultMinSupport
	}
	return o
}

// Propose scores every header against fields, preserving header order.
// The best field maximizes Jaro-Winkler similarity over the field name and
// its aliases; the first field wins ties.
func Propose(headers []string, rows []tabular.Row, fields []schema.Field, opts Options) []Proposal {
	opts = opts.withDefaults()
	n := min(len(rows), opts.SampleRows)

	proposals := make([]Proposal, 0, len(headers))
	for _, h := range headers {
		samples := make([]tabular.Value, 0, n)
		for _, row := range rows[:n] {
			samples = append(samples, row[h])
		}
		inf := schema.InferColumnType(samples, opts.MinSupport)

		p := Proposal{
			Incoming:        h,
			InferredType:    inf.Type,
			InferredSupport: inf.Support,
		}

		var best *schema.Field
		for i := range fields {
			score := nameScore(h, fields[i])
			if best == nil || score > p.NameConfidence {
				best = &fields[i]
				p.NameConfidence = score
			}
		}

		canonical := schema.ScalarType("")
		if best != nil {
			name, typ := best.Name, best.Type
			p.BestMatch = &name
			p.BestMatchType = &typ
			canonical = typ
		}

		p.TypeConfidence = schema.TypeMatchConfidence(inf.Type, canonical, inf.Support)
		p.decide(opts.Threshold)

		proposals = append(proposals, p)
	}

	return proposals
}

// Pending returns the headers that still need a user decision.
func Pending(proposals []Proposal) []string {
	var out []string
	for _, p := range proposals {
		if p.NeedsUserDecision {
			out = append(out, p.Incoming)
		}
	}
	return out
}

func (p *Proposal) decide(threshold float64) {
	p.AutoMapped = p.BestMatch != nil &&
		p.NameConfidence >= threshold &&
		p.TypeConfidence >= threshold
	p.NeedsUserDecision = !p.AutoMapped
}

func nameScore(header string, f schema.Field) float64 {
	score := similarity.JaroWinkler(header, f.Name)
	for _, a := range f.Aliases {
		score = max(score, similarity.JaroWinkler(header, a))
	}
	return score
}
