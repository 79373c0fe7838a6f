package dedupe

import (
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"unicode"

	"github.com/JaimeStill/tally/pkg/tabular"
)

// rule binds a reconciliation field to the header pattern that locates it.
type rule struct {
	field   string
	pattern *regexp.Regexp
}

// rules are evaluated in order; within a rule the first matching header wins.
var rules = []rule{
	{field: "sku", pattern: regexp.MustCompile(`(?i)sku|item\s?code|id`)},
	{field: "brand", pattern: regexp.MustCompile(`(?i)brand|maker|manufacturer`)},
	{field: "model", pattern: regexp.MustCompile(`(?i)model`)},
	{field: "price", pattern: regexp.MustCompile(`(?i)price|amount`)},
}

// fingerprint is the normalized subset of a row used for scoring.
type fingerprint struct {
	sku   string
	brand string
	model string
	price float64
}

// locator maps each rule field to the source key that supplies it.
type locator map[string]string

func newLocator(headers []string) locator {
	loc := make(locator, len(rules))
	for _, r := range rules {
		loc[r.field] = r.field
		for _, h := range headers {
			if r.pattern.MatchString(h) {
				loc[r.field] = h
				break
			}
		}
	}
	return loc
}

func (l locator) fingerprint(get func(key string) tabular.Value) fingerprint {
	return fingerprint{
		sku:   token(get(l["sku"])),
		brand: token(get(l["brand"])),
		model: token(get(l["model"])),
		price: price(get(l["price"])),
	}
}

// locators memoizes a locator per distinct key set so documents sharing a
// shape resolve their headers once.
type locators struct {
	mu    sync.Mutex
	cache map[string]locator
}

func newLocators() *locators {
	return &locators{cache: make(map[string]locator)}
}

func (c *locators) forKeys(keys []string) locator {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sig := strings.Join(sorted, "\x1f")

	c.mu.Lock()
	defer c.mu.Unlock()

	if loc, ok := c.cache[sig]; ok {
		return loc
	}
	loc := newLocator(sorted)
	c.cache[sig] = loc
	return loc
}

// token lower-cases v and strips everything but letters and digits.
func token(v tabular.Value) string {
	if v.Empty() {
		return ""
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return -1
	}, v.String())
}

// price reads v as a number, tolerating currency symbols and thousands
// separators. Missing or unreadable prices are 0.
func price(v tabular.Value) float64 {
	if n, ok := v.Number(); ok {
		return n
	}
	if v.Kind() != tabular.KindText {
		return 0
	}
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, v.String())
	f, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0
	}
	return f
}
