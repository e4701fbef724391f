// Package conflict finds selected screenings that overlap in time and
// counts selections for the ticket budget.
package conflict

import (
	"sort"
	"time"

	"festplan/internal/model"
	"festplan/internal/tags"
)

// Overlap is one pair of selected screenings whose intervals intersect.
// A sorts before B.
type Overlap struct {
	A       string `json:"a"`
	B       string `json:"b"`
	Minutes int    `json:"minutes"`
}

// Result is the conflict state for one selection.
type Result struct {
	// Any is true when at least one pair overlaps.
	Any bool `json:"any"`
	// IDs holds every screening that takes part in some overlap.
	IDs   map[string]struct{} `json:"-"`
	Pairs []Overlap           `json:"pairs"`
}

// Has reports whether screeningID is in a conflict.
func (r Result) Has(screeningID string) bool {
	_, ok := r.IDs[screeningID]
	return ok
}

// Sorted returns the conflicting IDs in sorted order.
func (r Result) Sorted() []string {
	out := make([]string, 0, len(r.IDs))
	for id := range r.IDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Detect checks every unordered pair of screenings tagged selected.
// Intervals are half-open, so one screening ending exactly when another
// starts is not a conflict. Venue and series play no part. Selected IDs
// missing from the catalog are skipped.
func Detect(cat *model.Catalog, store *tags.Store) Result {
	res := Result{IDs: make(map[string]struct{}), Pairs: []Overlap{}}

	selected := selectedScreenings(cat, store)
	for i := 0; i < len(selected); i++ {
		for j := i + 1; j < len(selected); j++ {
			a, b := selected[i], selected[j]
			if !Overlaps(a, b) {
				continue
			}
			res.Any = true
			res.IDs[a.ID] = struct{}{}
			res.IDs[b.ID] = struct{}{}
			res.Pairs = append(res.Pairs, Overlap{
				A:       a.ID,
				B:       b.ID,
				Minutes: overlapMinutes(a, b),
			})
		}
	}
	return res
}

// Overlaps tests [start1, end1) against [start2, end2).
func Overlaps(a, b model.Screening) bool {
	return a.Start.Before(b.End) && a.End.After(b.Start)
}

func overlapMinutes(a, b model.Screening) int {
	start := a.Start
	if b.Start.After(start) {
		start = b.Start
	}
	end := a.End
	if b.End.Before(end) {
		end = b.End
	}
	return int(end.Sub(start) / time.Minute)
}

// selectedScreenings resolves selected IDs against the catalog. The store
// returns IDs sorted, so pairs come out in a stable order.
func selectedScreenings(cat *model.Catalog, store *tags.Store) []model.Screening {
	ids := store.ScreeningsWithTag(tags.TagSelected)
	out := make([]model.Screening, 0, len(ids))
	for _, id := range ids {
		if s, ok := cat.Screening(id); ok {
			out = append(out, s)
		}
	}
	return out
}
