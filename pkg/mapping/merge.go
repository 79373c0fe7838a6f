package mapping

import "github.com/JaimeStill/tally/pkg/schema"

// Merge folds assistant suggestions into proposals and returns a new slice.
//
// Confidences combine by maximum so a suggestion never weakens a local
// score. A suggested target replaces the local best match only when it names
// a known field and scores at least as high by name. Suggestions with no
// target or an unknown target leave the proposal as it was.
func Merge(proposals []Proposal, suggestions []Suggestion, fields []schema.Field, threshold float64) []Proposal {
	if threshold <= 0 {
		threshold = AutoMapThreshold
	}

	byHeader := make(map[string]Suggestion, len(suggestions))
	for _, s := range suggestions {
		byHeader[s.Incoming] = s
	}

	out := make([]Proposal, len(proposals))
	for i, p := range proposals {
		out[i] = p

		s, ok := byHeader[p.Incoming]
		if !ok || s.MapTo == nil {
			continue
		}

		f, known := schema.Lookup(fields, *s.MapTo)
		if !known {
			continue
		}

		same := p.BestMatch != nil && *p.BestMatch == f.Name
		if !same && s.NameConfidence < p.NameConfidence {
			continue
		}

		name, typ := f.Name, f.Type
		out[i].BestMatch = &name
		out[i].BestMatchType = &typ
		out[i].NameConfidence = max(p.NameConfidence, clamp(s.NameConfidence))
		out[i].TypeConfidence = max(p.TypeConfidence, clamp(s.TypeConfidence))
		out[i].decide(threshold)
	}

	return out
}

func clamp(v float64) float64 {
	return min(max(v, 0), 1)
}
