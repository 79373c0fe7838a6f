// Package formatting converts byte sizes to and from their human-readable
// form and pulls JSON payloads out of model replies.
package formatting

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// units are base-1024. "KiB" style spellings are accepted on input.
var units = []string{"B", "KB", "MB", "GB", "TB", "PB", "EB"}

var bytesPattern = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([A-Za-z]*)$`)

// FormatBytes renders n with the largest unit that keeps the value at or
// above 1, e.g. FormatBytes(52428800, 1) == "50.0 MB".
func FormatBytes(n int64, precision int) string {
	if n < 1024 {
		return strconv.FormatInt(n, 10) + " B"
	}

	size, i := float64(n), 0
	for size >= 1024 && i < len(units)-1 {
		size /= 1024
		i++
	}
	return strconv.FormatFloat(size, 'f', max(precision, 0), 64) + " " + units[i]
}

// ParseBytes parses sizes like "50MB", "1.5 gb", "512KiB" or a bare byte
// count.
func ParseBytes(s string) (int64, error) {
	m := bytesPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid byte size %q", s)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	unit := strings.ToUpper(m[2])
	if unit == "" || unit == "B" {
		return int64(value), nil
	}
	unit = strings.Replace(unit, "IB", "B", 1)
	if len(unit) == 1 {
		unit += "B"
	}

	for i, u := range units {
		if u == unit {
			return int64(value * math.Pow(1024, float64(i))), nil
		}
	}
	return 0, fmt.Errorf("unknown byte size unit %q", m[2])
}
