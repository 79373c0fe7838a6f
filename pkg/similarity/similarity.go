// Package similarity scores how alike two short strings are.
// Scores are in [0, 1] where 1 means identical after normalization.
package similarity

import "strings"

const (
	prefixCap   = 4
	prefixScale = 0.1
)

// JaroWinkler returns the Jaro-Winkler similarity of a and b.
// Both inputs are lower-cased and trimmed before comparison.
// Two empty strings are identical; one empty string scores 0.
func JaroWinkler(a, b string) float64 {
	s1 := []rune(strings.ToLower(strings.TrimSpace(a)))
	s2 := []rune(strings.ToLower(strings.TrimSpace(b)))

	if len(s1) == 0 && len(s2) == 0 {
		return 1
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}

	j := jaro(s1, s2)

	prefix := 0
	for i := 0; i < min(len(s1), len(s2), prefixCap); i++ {
		if s1[i] != s2[i] {
			break
		}
		prefix++
	}

	return j + float64(prefix)*prefixScale*(1-j)
}

func jaro(s1, s2 []rune) float64 {
	window := max(max(len(s1), len(s2))/2-1, 0)

	matched1 := make([]bool, len(s1))
	matched2 := make([]bool, len(s2))

	matches := 0
	for i := range s1 {
		lo := max(0, i-window)
		hi := min(len(s2), i+window+1)
		for k := lo; k < hi; k++ {
			if matched2[k] || s1[i] != s2[k] {
				continue
			}
			matched1[i] = true
			matched2[k] = true
			matches++
			break
		}
	}

	if matches == 0 {
		return 0
	}

	transpositions := 0
	k := 0
	for i := range s1 {
		if !matched1[i] {
			continue
		}
		for !matched2[k] {
			k++
		}
		if s1[i] != s2[k] {
			transpositions++
		}
		k++
	}

	m := float64(matches)
	t := float64(transpositions) / 2

	return (m/float64(len(s1)) + m/float64(len(s2)) + (m-t)/m) / 3
}
