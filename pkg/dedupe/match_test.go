package dedupe

import "testing"

func TestBestMatchStopsAboveEarlyExit(t *testing.T) {
	candidates := []candidate{
		{id: "near", fp: fingerprint{sku: "near"}},
		{id: "exact", fp: fingerprint{sku: "exact"}},
		{id: "other", fp: fingerprint{sku: "other"}},
	}
	probs := map[string]float64{"near": 0.995, "exact": 1, "other": 0.2}

	var scored []string
	got := bestMatch(fingerprint{}, candidates, func(_, b fingerprint) float64 {
		scored = append(scored, b.sku)
		return probs[b.sku]
	})

	if got.matchID != "near" || got.probability != 0.995 {
		t.Errorf("verdict = %+v, want near at 0.995", got)
	}
	if len(scored) != 1 {
		t.Errorf("scored %v, want only the first candidate", scored)
	}
}

func TestBestMatchScansBelowEarlyExit(t *testing.T) {
	candidates := []candidate{
		{id: "a", fp: fingerprint{sku: "a"}},
		{id: "b", fp: fingerprint{sku: "b"}},
		{id: "c", fp: fingerprint{sku: "c"}},
		{id: "d", fp: fingerprint{sku: "d"}},
	}
	probs := map[string]float64{"a": 0.5, "b": 0.98, "c": 0.98, "d": 0.1}

	calls := 0
	got := bestMatch(fingerprint{}, candidates, func(_, b fingerprint) float64 {
		calls++
		return probs[b.sku]
	})

	if got.matchID != "b" {
		t.Errorf("matchID = %s, want b (first of the tied best)", got.matchID)
	}
	if calls != len(candidates) {
		t.Errorf("calls = %d, want every candidate scored", calls)
	}
}

// The weights sum to one, so even an exact match stays under earlyExit
// with the production probability.
func TestExactMatchProbabilityBound(t *testing.T) {
	exact := fingerprint{sku: "abc123", brand: "acme", model: "x1", price: 10}
	if p := duplicateProbability(exact, exact); p != Probability(1) || p > earlyExit {
		t.Errorf("exact match probability = %f, want Probability(1) below %v", p, earlyExit)
	}
}
