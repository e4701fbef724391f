package conflict

import (
	"festplan/internal/model"
	"festplan/internal/tags"
)

// DefaultMaxPaid is the paid-ticket budget the counter warns above.
const DefaultMaxPaid = 10

// Stats summarizes the current selection.
type Stats struct {
	Selected      int  `json:"selected"`
	Paid          int  `json:"paid"`
	MaxPaid       int  `json:"max_paid"`
	OverPaidLimit bool `json:"over_paid_limit"`
}

// Count tallies selected screenings. Selected counts every selected ID;
// Paid only those present in the catalog and not free.
func Count(cat *model.Catalog, store *tags.Store, maxPaid int) Stats {
	if maxPaid <= 0 {
		maxPaid = DefaultMaxPaid
	}
	ids := store.ScreeningsWithTag(tags.TagSelected)
	st := Stats{Selected: len(ids), MaxPaid: maxPaid}
	for _, id := range ids {
		s, ok := cat.Screening(id)
		if ok && !s.IsFree {
			st.Paid++
		}
	}
	st.OverPaidLimit = st.Paid > maxPaid
	return st
}
