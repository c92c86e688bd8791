// Package span normalizes match positions into disjoint highlight ranges.
package span

import "twitch_notify/internal/model"

// Merge returns spans sorted by start with overlapping ranges fused.
//
// A span starting at or after the end of the previous output entry opens a new
// entry; a span starting inside it extends that entry's end when it reaches
// further. Spans with End <= Start are dropped. The input is not modified.
func Merge(spans []model.MatchSpan) []model.MatchSpan {
	sorted := make([]model.MatchSpan, 0, len(spans))
	for _, s := range spans {
		if !s.Valid() {
			continue
		}
		i := len(sorted)
		sorted = append(sorted, s)
		for i > 0 && sorted[i-1].Start > s.Start {
			sorted[i] = sorted[i-1]
			i--
		}
		sorted[i] = s
	}

	if len(sorted) == 0 {
		return nil
	}

	out := make([]model.MatchSpan, 0, len(sorted))
	lastEnd := -1
	for _, s := range sorted {
		switch {
		case s.Start >= lastEnd:
			out = append(out, s)
			lastEnd = s.End
		case s.End > lastEnd:
			out[len(out)-1].End = s.End
			lastEnd = s.End
		}
	}
	return out
}

// Covered returns the total number of bytes covered by spans, counting
// overlapping bytes once per span.
func Covered(spans []model.MatchSpan) int {
	n := 0
	for _, s := range spans {
		if s.Valid() {
			n += s.Len()
		}
	}
	return n
}
