package domain

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidDock is returned when a dock value does not parse to a member
// of the dock universe.
var ErrInvalidDock = errors.New("invalid dock")

// DockSet is an ordered universe of valid dock numbers.
type DockSet struct {
	numbers []int
	members map[int]struct{}
}

// NewDockSet builds a set preserving the given order. Duplicates are
// dropped, keeping the first occurrence.
func NewDockSet(numbers []int) DockSet {
	ds := DockSet{members: make(map[int]struct{}, len(numbers))}
	for _, n := range numbers {
		if _, ok := ds.members[n]; ok {
			continue
		}
		ds.members[n] = struct{}{}
		ds.numbers = append(ds.numbers, n)
	}
	return ds
}

// DefaultDocks is the yard's physical dock universe: 312 through 370 with
// 358 absent.
func DefaultDocks() DockSet {
	nums := make([]int, 0, 58)
	for n := 312; n <= 357; n++ {
		nums = append(nums, n)
	}
	for n := 359; n <= 370; n++ {
		nums = append(nums, n)
	}
	return NewDockSet(nums)
}

// Contains reports membership.
func (d DockSet) Contains(n int) bool {
	_, ok := d.members[n]
	return ok
}

// Numbers returns the docks in canonical order. The caller must not
// mutate the returned slice.
func (d DockSet) Numbers() []int { return d.numbers }

// Len returns the universe size.
func (d DockSet) Len() int { return len(d.numbers) }

// ParseValue interprets a raw dock field. Empty input means "no dock" and
// yields a nil pointer; anything else must be a numeric member of the
// universe. Placeholder markers are not tolerated here: a committed dock
// may only be cleared by an explicitly empty value.
func (d DockSet) ParseValue(raw string) (*int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidDock, raw)
	}
	if !d.Contains(n) {
		return nil, fmt.Errorf("%w: %d is not a known dock", ErrInvalidDock, n)
	}
	return &n, nil
}
