// Package pagerange parses page range expressions such as "1,3-5,9".
//
// Terms are separated by commas. Each term is a positive page number or an
// inclusive "start-end" range. Malformed terms are skipped without affecting
// the others: non-numeric, zero or negative numbers, empty terms and reversed
// ranges ("5-2") all contribute nothing.
package pagerange

import (
	"sort"
	"strconv"
	"strings"
)

// MaxRangeSpan caps how many pages a single "start-end" term may expand to.
const MaxRangeSpan = 100000

// Set is a set of 1-based original page numbers.
type Set struct {
	pages map[int]struct{}
}

// Of builds a set from explicit page numbers, ignoring non-positive ones.
func Of(pages ...int) Set {
	s := Set{pages: make(map[int]struct{}, len(pages))}
	for _, p := range pages {
		if p > 0 {
			s.pages[p] = struct{}{}
		}
	}
	return s
}

// Parse parses expr into a Set. Empty or whitespace-only input yields an empty set.
func Parse(expr string) Set {
	s := Set{pages: map[int]struct{}{}}
	for _, term := range strings.Split(expr, ",") {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		start, end, ok := parseTerm(term)
		if !ok {
			continue
		}
		for p := start; p <= end; p++ {
			s.pages[p] = struct{}{}
		}
	}
	return s
}

func parseTerm(term string) (int, int, bool) {
	lo, hi, isRange := strings.Cut(term, "-")
	start, ok := parsePage(lo)
	if !ok {
		return 0, 0, false
	}
	if !isRange {
		return start, start, true
	}
	end, ok := parsePage(hi)
	if !ok || end < start || end-start >= MaxRangeSpan {
		return 0, 0, false
	}
	return start, end, true
}

func parsePage(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// Contains reports whether page is in the set.
func (s Set) Contains(page int) bool {
	_, ok := s.pages[page]
	return ok
}

// Len returns the number of pages in the set.
func (s Set) Len() int { return len(s.pages) }

// Pages returns the members in ascending order.
func (s Set) Pages() []int {
	out := make([]int, 0, len(s.pages))
	for p := range s.pages {
		out = append(out, p)
	}
	sort.Ints(out)
	return out
}

// String renders the set in canonical form, collapsing consecutive runs.
func (s Set) String() string {
	pages := s.Pages()
	var b strings.Builder
	for i := 0; i < len(pages); {
		j := i
		for j+1 < len(pages) && pages[j+1] == pages[j]+1 {
			j++
		}
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Itoa(pages[i]))
		if j > i {
			b.WriteByte('-')
			b.WriteString(strconv.Itoa(pages[j]))
		}
		i = j + 1
	}
	return b.String()
}
