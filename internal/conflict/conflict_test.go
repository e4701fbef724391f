package conflict

import (
	"reflect"
	"testing"
	"time"

	"festplan/internal/model"
	"festplan/internal/tags"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 9, hour, min, 0, 0, time.UTC)
}

func screening(id, venue string, startH, startM, endH, endM int) model.Screening {
	start, end := at(startH, startM), at(endH, endM)
	return model.Screening{
		ID:              id,
		Title:           "Title " + id,
		VenueID:         venue,
		Start:           start,
		End:             end,
		DurationMinutes: int(end.Sub(start) / time.Minute),
	}
}

func catalogOf(ss ...model.Screening) *model.Catalog {
	cat := &model.Catalog{Screenings: ss}
	cat.Index()
	return cat
}

func selectAll(ids ...string) *tags.Store {
	s := tags.New()
	for _, id := range ids {
		s.Add(id, tags.TagSelected)
	}
	return s
}

func TestDetectScenarios(t *testing.T) {
	cat := catalogOf(
		screening("A", "v1", 10, 0, 12, 0),
		screening("B", "v2", 11, 0, 13, 0),
		screening("C", "v1", 12, 0, 13, 0),
	)

	tests := []struct {
		name     string
		selected []string
		wantAny  bool
		wantIDs  []string
	}{
		{"overlap across venues", []string{"A", "B"}, true, []string{"A", "B"}},
		{"touching boundary", []string{"A", "C"}, false, []string{}},
		{"single selection", []string{"A"}, false, []string{}},
		{"nothing selected", nil, false, []string{}},
		{"three way", []string{"A", "B", "C"}, true, []string{"A", "B", "C"}},
		{"stale id ignored", []string{"A", "ghost"}, false, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Detect(cat, selectAll(tt.selected...))
			if res.Any != tt.wantAny {
				t.Errorf("Any = %v, want %v", res.Any, tt.wantAny)
			}
			if got := res.Sorted(); !reflect.DeepEqual(got, tt.wantIDs) {
				t.Errorf("IDs = %v, want %v", got, tt.wantIDs)
			}
		})
	}
}

func TestDetectOnlyLooksAtSelected(t *testing.T) {
	cat := catalogOf(
		screening("A", "v1", 10, 0, 12, 0),
		screening("B", "v1", 11, 0, 13, 0),
	)
	s := tags.New()
	s.Add("A", tags.TagSelected)
	s.Add("B", "interested")
	if res := Detect(cat, s); res.Any {
		t.Fatalf("interested screening counted as conflict: %+v", res)
	}
}

func TestDetectSameVenueAndSeries(t *testing.T) {
	a := screening("A", "v1", 18, 0, 19, 30)
	b := screening("B", "v1", 19, 0, 20, 0)
	a.SeriesID, b.SeriesID = "shorts", "shorts"
	res := Detect(catalogOf(a, b), selectAll("A", "B"))
	if !res.Any || len(res.Pairs) != 1 {
		t.Fatalf("same venue/series pair not reported: %+v", res)
	}
	if p := res.Pairs[0]; p.A != "A" || p.B != "B" || p.Minutes != 30 {
		t.Errorf("pair = %+v, want A/B with 30 minutes", p)
	}
}

func TestOverlapsSymmetricAndIrreflexiveForTouching(t *testing.T) {
	pairs := [][2]model.Screening{
		{screening("A", "v", 10, 0, 12, 0), screening("B", "v", 11, 0, 13, 0)},
		{screening("A", "v", 10, 0, 12, 0), screening("C", "v", 12, 0, 13, 0)},
		{screening("A", "v", 10, 0, 12, 0), screening("D", "v", 10, 30, 11, 0)},
		{screening("A", "v", 10, 0, 12, 0), screening("E", "v", 8, 0, 10, 0)},
	}
	for _, p := range pairs {
		if Overlaps(p[0], p[1]) != Overlaps(p[1], p[0]) {
			t.Errorf("Overlaps not symmetric for %s/%s", p[0].ID, p[1].ID)
		}
	}
	// A screening is never paired with itself even when selected once.
	a := screening("A", "v", 10, 0, 12, 0)
	if res := Detect(catalogOf(a), selectAll("A")); res.Any {
		t.Error("screening conflicted with itself")
	}
}

func TestCount(t *testing.T) {
	free := screening("F", "v1", 10, 0, 11, 0)
	free.IsFree = true
	paid := screening("P", "v1", 12, 0, 13, 0)
	cat := catalogOf(free, paid)

	st := Count(cat, selectAll("F", "P"), 0)
	if st.Selected != 2 || st.Paid != 1 {
		t.Errorf("Count = %+v, want 2 selected / 1 paid", st)
	}
	if st.MaxPaid != DefaultMaxPaid || st.OverPaidLimit {
		t.Errorf("limit fields = %+v", st)
	}

	st = Count(cat, selectAll("P", "ghost"), 1)
	if st.Selected != 2 || st.Paid != 1 || st.OverPaidLimit {
		t.Errorf("Count with stale id = %+v", st)
	}
}

func TestCountOverLimit(t *testing.T) {
	var ss []model.Screening
	var ids []string
	for i := 0; i < 3; i++ {
		id := string(rune('a' + i))
		ss = append(ss, screening(id, "v", 10+i, 0, 11+i, 0))
		ids = append(ids, id)
	}
	st := Count(catalogOf(ss...), selectAll(ids...), 2)
	if !st.OverPaidLimit {
		t.Errorf("3 paid over a limit of 2 not flagged: %+v", st)
	}
}
