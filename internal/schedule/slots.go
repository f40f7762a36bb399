package schedule

import (
	"errors"
	"fmt"
)

// DefaultGroupCapacity applies to group sessions that were created without an
// explicit capacity.
const DefaultGroupCapacity = 8

var ErrUnknownSlot = errors.New("slot is not on the booking grid")

// Grid is the ordered list of bookable slot labels for a day.
type Grid []string

// DefaultGrid returns the hourly grid the gym books against, 07:00 through
// 21:00 inclusive.
func DefaultGrid() Grid {
	g := make(Grid, 0, 15)
	for h := 7; h <= 21; h++ {
		g = append(g, fmt.Sprintf("%02d:00", h))
	}
	return g
}

// Index returns the position of label on the grid, or -1 if it is not a slot.
func (g Grid) Index(label string) int {
	for i, s := range g {
		if s == label {
			return i
		}
	}
	return -1
}

// Span expands a sub-range of the grid: start inclusive, end exclusive. When
// the end index is at or before the start index the range collapses to the
// single starting slot.
func (g Grid) Span(start, end string) ([]string, error) {
	si := g.Index(start)
	if si < 0 {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSlot, start)
	}
	ei := g.Index(end)
	if ei <= si {
		return []string{g[si]}, nil
	}
	out := make([]string, 0, ei-si)
	for i := si; i < ei; i++ {
		out = append(out, g[i])
	}
	return out, nil
}
