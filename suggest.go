package soep

import (
	"cmp"
	"slices"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

const (
	suggestionLimit  = 3
	suggestionCutoff = 0.6
)

// Suggest returns up to 3 registered variables whose names are closest to name, best match first. Only names with
// a similarity ratio of at least 0.6 are returned; the ratio is 2*M/T, M being the number of matching characters
// and T the total number of characters of both names.
func (r *Registry) Suggest(name string) []Suggestion {
	return closeMatches(name, r.names, suggestionLimit, suggestionCutoff, func(match string, score float64) Suggestion {
		return Suggestion{
			Name:  match,
			Table: r.variables[match].Table,
			Score: score,
		}
	})
}

// closeMatches returns the best n candidates with a ratio of at least cutoff. Equal scores are ordered by name.
func closeMatches[T any](word string, candidates []string, n int, cutoff float64, f func(string, float64) T) []T {
	type scored struct {
		name  string
		score float64
	}

	matcher := difflib.NewMatcher(nil, splitChars(word))

	var matches []scored
	for _, c := range candidates {
		matcher.SetSeq1(splitChars(c))
		if matcher.RealQuickRatio() >= cutoff && matcher.QuickRatio() >= cutoff {
			if ratio := matcher.Ratio(); ratio >= cutoff {
				matches = append(matches, scored{name: c, score: ratio})
			}
		}
	}

	slices.SortFunc(matches, func(a, b scored) int {
		if r := cmp.Compare(b.score, a.score); r != 0 {
			return r
		}
		return cmp.Compare(a.name, b.name)
	})

	ret := make([]T, 0, min(n, len(matches)))
	for _, m := range matches[:min(n, len(matches))] {
		ret = append(ret, f(m.name, m.score))
	}
	return ret
}

func splitChars(s string) []string {
	return strings.Split(s, "")
}
