package session

import "fmt"

// MovePosition removes the page at from and reinserts it at to, shifting the
// pages in between by one. It returns a new slice; pages is not modified.
// Positions must be in range; equal positions return an unchanged copy.
func MovePosition(pages []Page, from, to int) []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	if from == to {
		return out
	}
	moved := out[from]
	if from < to {
		copy(out[from:to], out[from+1:to+1])
	} else {
		copy(out[to+1:from+1], out[to:from])
	}
	out[to] = moved
	return out
}

// MovePage moves the page fromID to the position currently held by toID.
// The second result is false (and pages returned unchanged) when either id is
// missing or both ids refer to the same page.
func MovePage(pages []Page, fromID, toID string) ([]Page, bool) {
	from, to := indexOf(pages, fromID), indexOf(pages, toID)
	if from < 0 || to < 0 || from == to {
		return pages, false
	}
	return MovePosition(pages, from, to), true
}

func indexOf(pages []Page, id string) int {
	for i, p := range pages {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// Arrange puts the pages with the listed original indexes first, in the given
// order; unlisted pages follow in their current relative order. It fails on an
// index that is missing from pages or listed twice.
func Arrange(pages []Page, order []int) ([]Page, error) {
	pos := make(map[int]int, len(pages))
	for i, p := range pages {
		pos[p.OriginalIndex] = i
	}
	out := make([]Page, 0, len(pages))
	used := make(map[int]bool, len(order))
	for _, idx := range order {
		i, ok := pos[idx]
		if !ok || used[idx] {
			return pages, fmt.Errorf("%w: %d", ErrUnknownPage, idx)
		}
		used[idx] = true
		out = append(out, pages[i])
	}
	for _, p := range pages {
		if !used[p.OriginalIndex] {
			out = append(out, p)
		}
	}
	return out, nil
}
