// Package match proposes bindings between target and source headers.
package match

import "strings"

// DefaultThreshold is the minimum similarity for a fuzzy header match.
const DefaultThreshold = 0.82

// SuggestHeaderMapping proposes a source header for every target header.
// Exact matches win, then case-insensitive matches, then the most similar
// header scoring at least DefaultThreshold. Among source headers equal up to
// case the last one is used. Fuzzy ties go to the earlier source header.
// Unmatched targets map to "".
func SuggestHeaderMapping(targetHeaders, sourceHeaders []string) map[string]string {
	return SuggestHeaderMappingWithThreshold(targetHeaders, sourceHeaders, DefaultThreshold)
}

// SuggestHeaderMappingWithThreshold is SuggestHeaderMapping with a custom
// acceptance threshold.
func SuggestHeaderMappingWithThreshold(targetHeaders, sourceHeaders []string, threshold float64) map[string]string {
	exact := make(map[string]struct{}, len(sourceHeaders))
	lower := make(map[string]string, len(sourceHeaders))
	for _, h := range sourceHeaders {
		exact[h] = struct{}{}
		lower[strings.ToLower(h)] = h
	}

	mapping := make(map[string]string, len(targetHeaders))
	for _, th := range targetHeaders {
		if _, ok := exact[th]; ok {
			mapping[th] = th
			continue
		}
		if h, ok := lower[strings.ToLower(th)]; ok {
			mapping[th] = h
			continue
		}
		mapping[th] = BestMatch(th, sourceHeaders, threshold)
	}
	return mapping
}

// BestMatch returns the candidate most similar to s, or "" when no candidate
// reaches threshold.
func BestMatch(s string, candidates []string, threshold float64) string {
	best := ""
	bestScore := -1.0
	for _, c := range candidates {
		score := Similarity(s, c)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if bestScore < threshold {
		return ""
	}
	return best
}
