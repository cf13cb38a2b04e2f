package view

import (
	"sort"
	"strings"

	"example.com/canview/internal/rows"
)

// IDSet is a set of raw message identifiers.
type IDSet map[string]struct{}

// NewIDSet builds a set from ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set. A nil set is empty.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// VisibleRows returns the rows whose id is not hidden and, when search is not
// empty, that have a display cell containing search case-insensitively. The
// inputs are not modified and the original order is kept.
func VisibleRows(all []rows.Row, hidden IDSet, search string) []rows.Row {
	term := strings.ToLower(search)
	out := make([]rows.Row, 0, len(all))
	for _, r := range all {
		if hidden.Has(r.ID) {
			continue
		}
		if term != "" && !rowMatches(r, term) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func rowMatches(r rows.Row, lowerTerm string) bool {
	for _, cell := range r.Cells() {
		if strings.Contains(strings.ToLower(cell), lowerTerm) {
			return true
		}
	}
	return false
}

// Segment is a run of cell text, flagged when it matched the search term.
type Segment struct {
	Text  string `json:"text"`
	Match bool   `json:"match,omitempty"`
}

// HighlightSegments splits cell into alternating plain and matching runs.
// Matching is case-insensitive and non-overlapping from the left; the original
// casing is preserved in the returned text.
func HighlightSegments(cell, search string) []Segment {
	if search == "" || cell == "" {
		return []Segment{{Text: cell}}
	}
	lowerCell := strings.ToLower(cell)
	lowerTerm := strings.ToLower(search)
	if len(lowerCell) != len(cell) {
		// Case folding changed byte offsets; report the cell unsplit.
		if strings.Contains(lowerCell, lowerTerm) {
			return []Segment{{Text: cell, Match: true}}
		}
		return []Segment{{Text: cell}}
	}
	var out []Segment
	start := 0
	for {
		idx := strings.Index(lowerCell[start:], lowerTerm)
		if idx == -1 {
			if start < len(cell) {
				out = append(out, Segment{Text: cell[start:]})
			}
			break
		}
		idx += start
		if idx > start {
			out = append(out, Segment{Text: cell[start:idx]})
		}
		end := idx + len(lowerTerm)
		out = append(out, Segment{Text: cell[idx:end], Match: true})
		start = end
	}
	return out
}
