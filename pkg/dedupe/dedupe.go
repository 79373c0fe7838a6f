// Package dedupe estimates, for each incoming row, the probability that it
// duplicates an existing record, and partitions rows into those safe to
// insert automatically and those that need review.
package dedupe

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/tally/pkg/similarity"
	"github.com/JaimeStill/tally/pkg/tabular"
)

const (
	// DefaultThreshold is the minimum confidence that a row is not a
	// duplicate for it to be inserted without review.
	DefaultThreshold = 0.90
	// DefaultCandidateLimit caps how many existing records are compared.
	DefaultCandidateLimit = 5000

	weightSKU   = 0.55
	weightBrand = 0.15
	weightModel = 0.20
	weightPrice = 0.10

	sigmoidSlope  = 8.0
	sigmoidCenter = 0.8
	earlyExit     = 0.99
)

// Candidate is an existing record compared against incoming rows.
type Candidate struct {
	ID  string
	Doc map[string]any
}

// AutoInsert is a row judged not to be a duplicate.
type AutoInsert struct {
	RowIndex               int         `json:"rowIndex"`
	Row                    tabular.Row `json:"row"`
	ConfidenceNotDuplicate float64     `json:"confidenceNotDuplicate"`
}

// Review is a row that may duplicate MatchID and needs a user decision.
type Review struct {
	RowIndex             int         `json:"rowIndex"`
	Row                  tabular.Row `json:"row"`
	ProbabilityDuplicate float64     `json:"probabilityDuplicate"`
	MatchID              string      `json:"matchId,omitempty"`
}

// Report partitions incoming rows. Every row appears in exactly one list,
// and each list keeps the incoming order.
type Report struct {
	AutoInsert []AutoInsert `json:"autoInsert"`
	Review     []Review     `json:"review"`
}

// Options tunes Build. Zero values fall back to the package defaults.
type Options struct {
	Threshold float64
	Workers   int
}

type verdict struct {
	probability float64
	matchID     string
}

// Build scores each row against every candidate and partitions the rows.
// Rows are scored concurrently; the only error is context cancellation.
func Build(ctx context.Context, rows []tabular.Row, headers []string, existing []Candidate, opts Options) (Report, error) {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}

	incoming := newLocator(headers)
	candidates := fingerprints(existing)

	verdicts := make([]verdict, len(rows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(opts.Workers, len(rows)))

	for i := range rows {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fp := incoming.fingerprint(func(k string) tabular.Value { return rows[i][k] })
			verdicts[i] = bestMatch(fp, candidates, duplicateProbability)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	report := Report{
		AutoInsert: make([]AutoInsert, 0),
		Review:     make([]Review, 0),
	}

	for i, v := range verdicts {
		if 1-v.probability >= opts.Threshold {
			report.AutoInsert = append(report.AutoInsert, AutoInsert{
				RowIndex:               i,
				Row:                    rows[i],
				ConfidenceNotDuplicate: 1 - v.probability,
			})
			continue
		}
		report.Review = append(report.Review, Review{
			RowIndex:             i,
			Row:                  rows[i],
			ProbabilityDuplicate: v.probability,
			MatchID:              v.matchID,
		})
	}

	return report, nil
}

// Probability maps a weighted similarity score onto a duplicate probability.
func Probability(score float64) float64 {
	return 1 / (1 + math.Exp(-sigmoidSlope*(score-sigmoidCenter)))
}

type candidate struct {
	id string
	fp fingerprint
}

func fingerprints(existing []Candidate) []candidate {
	cache := newLocators()
	out := make([]candidate, len(existing))

	for i, c := range existing {
		keys := make([]string, 0, len(c.Doc))
		for k := range c.Doc {
			keys = append(keys, k)
		}
		loc := cache.forKeys(keys)
		doc := c.Doc
		out[i] = candidate{
			id: c.ID,
			fp: loc.fingerprint(func(k string) tabular.Value { return tabular.FromAny(doc[k]) }),
		}
	}

	return out
}

func duplicateProbability(a, b fingerprint) float64 {
	return Probability(score(a, b))
}

// bestMatch keeps the first candidate with the highest probability and
// stops scanning once one exceeds earlyExit.
func bestMatch(fp fingerprint, candidates []candidate, prob func(a, b fingerprint) float64) verdict {
	var best verdict
	for _, c := range candidates {
		p := prob(fp, c.fp)
		if p > best.probability {
			best = verdict{probability: p, matchID: c.id}
		}
		if best.probability > earlyExit {
			break
		}
	}
	return best
}

func score(a, b fingerprint) float64 {
	sku := 0.0
	if a.sku != "" && b.sku != "" {
		sku = similarity.JaroWinkler(a.sku, b.sku)
	}

	return weightSKU*sku +
		weightBrand*similarity.JaroWinkler(a.brand, b.brand) +
		weightModel*similarity.JaroWinkler(a.model, b.model) +
		weightPrice*priceSimilarity(a.price, b.price)
}

func priceSimilarity(a, b float64) float64 {
	sim := 1 - math.Abs(a-b)/math.Max(1, a)
	return min(max(sim, 0), 1)
}

func workerCount(workers, rows int) int {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return max(min(workers, rows), 1)
}
