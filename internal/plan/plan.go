// Package plan runs the recompute cycle behind every view: given the
// catalog and the session's tags it produces the decorated day grids,
// conflicts, counters and the shareable fragment in one pass.
package plan

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"festplan/internal/conflict"
	"festplan/internal/grid"
	"festplan/internal/model"
	"festplan/internal/tagcodec"
	"festplan/internal/tags"
)

var (
	ErrUnknownTag = errors.New("unknown tag")
	ErrUnknownOp  = errors.New("unknown operation")

	// ErrInvalidScreeningID rejects IDs the fragment cannot carry: the
	// codec splits on ',' and trims whitespace.
	ErrInvalidScreeningID = errors.New("invalid screening_id")
)

// Options carries the configuration a view depends on.
type Options struct {
	Grid    grid.Config
	Defs    []tags.Def
	MaxPaid int
}

// DayView is one day section of the schedule.
type DayView struct {
	Date  string   `json:"date"`
	Label string   `json:"label"`
	Grid  grid.Day `json:"grid"`
}

// View is everything a renderer needs for one state.
type View struct {
	Days      []DayView       `json:"days"`
	Conflicts conflict.Result `json:"conflicts"`
	// ConflictIDs lists Conflicts.IDs in sorted order for JSON clients.
	ConflictIDs []string          `json:"conflict_ids"`
	Stats       conflict.Stats    `json:"stats"`
	Selected    []model.Screening `json:"selected"`
	Series      []model.Series    `json:"series"`
	Tags        []tags.Def        `json:"tags"`
	// Fragment is the encoded state, ready for a link's #.
	Fragment     string  `json:"fragment"`
	RowHeightPx  float64 `json:"row_height_px"`
	GridHeightPx float64 `json:"grid_height_px"`
}

// Build computes the full view from scratch. store is read, never changed.
func Build(cat *model.Catalog, store *tags.Store, opts Options) *View {
	if len(opts.Defs) == 0 {
		opts.Defs = tags.DefaultDefs()
	}
	if opts.Grid.RowHeightPx <= 0 {
		opts.Grid = grid.DefaultConfig()
	}

	v := &View{
		Conflicts:    conflict.Detect(cat, store),
		Stats:        conflict.Count(cat, store, opts.MaxPaid),
		Selected:     SelectedByStart(cat, store),
		Tags:         opts.Defs,
		Fragment:     tagcodec.Encode(store, opts.Defs),
		RowHeightPx:  opts.Grid.RowHeightPx,
		GridHeightPx: opts.Grid.Span().Hours() * opts.Grid.RowHeightPx,
		Days:         []DayView{},
	}
	v.ConflictIDs = v.Conflicts.Sorted()
	if cat == nil {
		return v
	}
	v.Series = cat.Series

	groups := grid.GroupByDay(cat.Screenings)
	for _, date := range grid.Dates(groups) {
		day := grid.BuildDay(date, groups[date], cat.Venues, opts.Grid)
		day.Boxes(func(b *grid.Box) {
			id := b.Screening.ID
			b.Selected = store.Has(id, tags.TagSelected)
			b.Conflict = v.Conflicts.Has(id)
			b.Tags = store.Get(id)
		})
		v.Days = append(v.Days, DayView{
			Date:  date,
			Label: dayLabel(cat, date),
			Grid:  day,
		})
	}
	return v
}

// SelectedByStart resolves the selected screenings and orders them by start
// time. IDs missing from the catalog are dropped.
func SelectedByStart(cat *model.Catalog, store *tags.Store) []model.Screening {
	out := make([]model.Screening, 0)
	for _, id := range store.ScreeningsWithTag(tags.TagSelected) {
		if s, ok := cat.Screening(id); ok {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Start.Before(out[j].Start)
	})
	return out
}

func dayLabel(cat *model.Catalog, date string) string {
	if d, ok := cat.Day(date); ok && d.Label != "" {
		return d.Label
	}
	return date
}

// Op is a tag mutation requested by the view layer.
type Op string

const (
	OpAdd    Op = "add"
	OpRemove Op = "remove"
	OpToggle Op = "toggle"
	OpClear  Op = "clear"
)

// Mutation is one user action against the tag store.
type Mutation struct {
	Op          Op     `json:"op"`
	ScreeningID string `json:"screening_id"`
	TagID       string `json:"tag_id"`
}

// Apply validates m against defs and applies it to store. Unlike the store
// itself, it refuses tags outside the enumeration.
func Apply(store *tags.Store, defs []tags.Def, m Mutation) error {
	if m.Op == OpClear {
		store.Clear()
		return nil
	}
	switch m.Op {
	case OpAdd, OpRemove, OpToggle:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOp, m.Op)
	}
	if m.ScreeningID == "" {
		return errors.New("screening_id is required")
	}
	if strings.ContainsRune(m.ScreeningID, ',') || strings.TrimSpace(m.ScreeningID) != m.ScreeningID {
		return fmt.Errorf("%w: %q", ErrInvalidScreeningID, m.ScreeningID)
	}
	if _, ok := tags.Lookup(defs, m.TagID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTag, m.TagID)
	}

	switch m.Op {
	case OpAdd:
		store.Add(m.ScreeningID, m.TagID)
	case OpRemove:
		store.Remove(m.ScreeningID, m.TagID)
	case OpToggle:
		store.Toggle(m.ScreeningID, m.TagID)
	}
	return nil
}
