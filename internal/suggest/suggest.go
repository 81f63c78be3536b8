// Package suggest produces "did you mean" candidates for a specifier that
// failed to resolve, by fuzzy-matching it against the sibling entries of
// the directory the lookup failed in.
package suggest

import (
	"sort"

	"github.com/hbollon/go-edlib"
)

// MaxSuggestions bounds how many candidates NotFound errors attach.
const MaxSuggestions = 3

// Candidates returns up to MaxSuggestions entries of siblings most similar
// to specifier, closest first. Entries further than a generous edit-distance
// threshold are dropped rather than suggested — a near-miss is useful, a
// random unrelated package name is noise.
func Candidates(specifier string, siblings []string) []string {
	if specifier == "" || len(siblings) == 0 {
		return nil
	}
	n := MaxSuggestions
	if n > len(siblings) {
		n = len(siblings)
	}
	matches, err := edlib.FuzzySearchSet(specifier, siblings, n, edlib.Levenshtein)
	if err != nil {
		return nil
	}

	type scored struct {
		name string
		dist float64
	}
	out := make([]scored, 0, len(matches))
	for _, m := range matches {
		sim, err := edlib.StringsSimilarity(specifier, m, edlib.Levenshtein)
		if err != nil {
			continue
		}
		out = append(out, scored{name: m, dist: sim})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].dist > out[j].dist })

	result := make([]string, 0, len(out))
	for _, s := range out {
		if s.dist < 0.3 { // too dissimilar to be a useful suggestion
			continue
		}
		result = append(result, s.name)
	}
	return result
}
