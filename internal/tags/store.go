// Package tags holds the per-session tag assignments: which user tags
// (selected, interested, companion groups, ...) are attached to which
// screening.
package tags

import (
	"slices"
	"sort"
)

// Store maps a screening ID to its ordered, duplicate-free tag IDs.
// A screening without tags has no entry. The zero value is not usable;
// construct with New. Store is not safe for concurrent use: it belongs to a
// single session.
type Store struct {
	byScreening map[string][]string
}

func New() *Store {
	return &Store{byScreening: make(map[string][]string)}
}

// Get returns a copy of the tags on screeningID in the order they were
// added. Unknown screenings yield an empty slice.
func (s *Store) Get(screeningID string) []string {
	cur := s.byScreening[screeningID]
	out := make([]string, len(cur))
	copy(out, cur)
	return out
}

// Add attaches tagID to screeningID. Adding an existing tag is a no-op.
func (s *Store) Add(screeningID, tagID string) {
	cur := s.byScreening[screeningID]
	if slices.Contains(cur, tagID) {
		return
	}
	s.byScreening[screeningID] = append(cur, tagID)
}

// Remove detaches tagID. The screening entry disappears with its last tag.
func (s *Store) Remove(screeningID, tagID string) {
	cur, ok := s.byScreening[screeningID]
	if !ok {
		return
	}
	kept := make([]string, 0, len(cur))
	for _, t := range cur {
		if t != tagID {
			kept = append(kept, t)
		}
	}
	if len(kept) == 0 {
		delete(s.byScreening, screeningID)
		return
	}
	s.byScreening[screeningID] = kept
}

// Toggle removes tagID if present and adds it otherwise.
func (s *Store) Toggle(screeningID, tagID string) {
	if s.Has(screeningID, tagID) {
		s.Remove(screeningID, tagID)
		return
	}
	s.Add(screeningID, tagID)
}

func (s *Store) Has(screeningID, tagID string) bool {
	return slices.Contains(s.byScreening[screeningID], tagID)
}

// ScreeningsWithTag returns every screening carrying tagID. Membership is
// what matters; the slice is sorted only so that output is reproducible.
func (s *Store) ScreeningsWithTag(tagID string) []string {
	out := make([]string, 0)
	for id, ts := range s.byScreening {
		if slices.Contains(ts, tagID) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// IDs returns every tagged screening, sorted.
func (s *Store) IDs() []string {
	out := make([]string, 0, len(s.byScreening))
	for id := range s.byScreening {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Len is the number of tagged screenings.
func (s *Store) Len() int {
	return len(s.byScreening)
}

// Clear drops every assignment.
func (s *Store) Clear() {
	s.byScreening = make(map[string][]string)
}

func (s *Store) Clone() *Store {
	c := New()
	for id, ts := range s.byScreening {
		c.byScreening[id] = slices.Clone(ts)
	}
	return c
}

// Equal compares set membership: tag order within a screening is ignored.
func (s *Store) Equal(other *Store) bool {
	if len(s.byScreening) != len(other.byScreening) {
		return false
	}
	for id, ts := range s.byScreening {
		ots, ok := other.byScreening[id]
		if !ok || len(ots) != len(ts) {
			return false
		}
		for _, t := range ts {
			if !slices.Contains(ots, t) {
				return false
			}
		}
	}
	return true
}
