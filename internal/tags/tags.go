// Package tags implements the species-count map that every media record
// carries. The map is sparse: a species that was not detected has no key,
// and stored counts are always positive. Mutations that would drive a
// count to zero remove the key instead.
package tags

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrEmptySpecies = errors.New("species name must be a non-empty string")
	ErrInvalidCount = errors.New("count must be a positive integer")
)

// Entry is one species with an absolute count, constructed once at the
// request boundary. Internal components never pass packed
// "species,count" strings around.
type Entry struct {
	Species string
	Count   int
}

// Condition is one clause of a search predicate.
type Condition struct {
	Species  string
	MinCount int
}

// ParseEntry parses a packed "species,count" string. The count part is
// validated only when requireCount is set (add operations); remove
// operations ignore it entirely.
func ParseEntry(raw string, requireCount bool) (Entry, error) {
	species, countStr, _ := strings.Cut(raw, ",")
	species = strings.TrimSpace(species)
	if species == "" {
		return Entry{}, ErrEmptySpecies
	}

	entry := Entry{Species: species}
	if !requireCount {
		return entry, nil
	}

	count, err := strconv.Atoi(strings.TrimSpace(countStr))
	if err != nil || count <= 0 {
		return Entry{}, fmt.Errorf("tag %q: %w", species, ErrInvalidCount)
	}
	entry.Count = count
	return entry, nil
}

// ParseEntries parses a batch of packed tag strings; the first invalid
// entry fails the whole batch.
func ParseEntries(raw []string, requireCount bool) ([]Entry, error) {
	entries := make([]Entry, 0, len(raw))
	for _, s := range raw {
		entry, err := ParseEntry(s, requireCount)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Apply overwrites each entry's species with its absolute count and
// returns the resulting map, leaving the input untouched. This is
// set-count semantics, not accumulation: adding the same species twice
// keeps the last value. Any non-positive count fails the whole call with
// no partial application.
func Apply(current map[string]int, entries []Entry) (map[string]int, error) {
	for _, e := range entries {
		if e.Species == "" {
			return nil, ErrEmptySpecies
		}
		if e.Count <= 0 {
			return nil, fmt.Errorf("tag %q: %w", e.Species, ErrInvalidCount)
		}
	}

	next := clone(current)
	for _, e := range entries {
		next[e.Species] = e.Count
	}
	return next, nil
}

// Remove deletes the given species keys outright, regardless of their
// counts. Species not present are silently skipped. The returned slice
// holds the keys that actually matched, so callers can skip the store
// write when nothing changed.
func Remove(current map[string]int, species []string) (map[string]int, []string) {
	var matched []string
	for _, s := range species {
		if _, ok := current[s]; ok {
			matched = append(matched, s)
		}
	}
	if len(matched) == 0 {
		return current, nil
	}

	next := clone(current)
	for _, s := range matched {
		delete(next, s)
	}
	return next, matched
}

// Decrement lowers one species count by n, deleting the key when the
// result reaches zero. A species that is absent stays absent.
func Decrement(current map[string]int, species string, n int) map[string]int {
	cur, ok := current[species]
	if !ok || n <= 0 {
		return current
	}

	next := clone(current)
	if cur-n <= 0 {
		delete(next, species)
	} else {
		next[species] = cur - n
	}
	return next
}

// MatchesThreshold reports whether the map satisfies every condition:
// the species must be present with a count at least the condition's
// minimum. An absent species counts as zero and fails its condition.
func MatchesThreshold(m map[string]int, conds []Condition) bool {
	for _, c := range conds {
		min := c.MinCount
		if min < 1 {
			min = 1
		}
		if m[c.Species] < min {
			return false
		}
	}
	return true
}

// MatchesAny reports whether at least one of the given species is
// present, counts ignored beyond presence.
func MatchesAny(m map[string]int, species []string) bool {
	for _, s := range species {
		if m[s] >= 1 {
			return true
		}
	}
	return false
}

// Slug derives the deterministic notification channel suffix for a
// species: lowercased, spaces replaced with hyphens.
func Slug(species string) string {
	return strings.ReplaceAll(strings.ToLower(species), " ", "-")
}

func clone(m map[string]int) map[string]int {
	next := make(map[string]int, len(m))
	for k, v := range m {
		next[k] = v
	}
	return next
}
