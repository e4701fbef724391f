package plan

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"festplan/internal/grid"
	"festplan/internal/model"
	"festplan/internal/tagcodec"
	"festplan/internal/tags"
)

func at(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

func testCatalog() *model.Catalog {
	mk := func(id, venue string, start time.Time, minutes int, free bool) model.Screening {
		return model.Screening{
			ID: id, Title: "T-" + id, VenueID: venue,
			Start: start, End: start.Add(time.Duration(minutes) * time.Minute),
			DurationMinutes: minutes, IsFree: free,
		}
	}
	cat := &model.Catalog{
		Days: []model.Day{{Date: "2026-03-09", Label: "Ma 9.3."}},
		Venues: []model.Venue{
			{ID: "ca1", Name: "Cine Atlas 1"},
			{ID: "plaza", Name: "Plaza", Order: 1},
		},
		Series: []model.Series{{ID: "shorts", Name: "shorts"}},
		Screenings: []model.Screening{
			mk("A", "ca1", at(9, 10, 0), 120, false),
			mk("B", "plaza", at(9, 11, 0), 120, true),
			mk("C", "ca1", at(9, 12, 0), 60, false),
			mk("D", "plaza", at(10, 9, 15), 50, false),
		},
	}
	cat.Index()
	return cat
}

func TestBuildDecoratesBoxes(t *testing.T) {
	cat := testCatalog()
	store := tagcodec.Decode("?tag[selected]=A,B,C&tag[interested]=D", tags.DefaultDefs())

	v := Build(cat, store, Options{Grid: grid.DefaultConfig()})

	if !v.Conflicts.Any {
		t.Fatal("A/B overlap not detected")
	}
	if want := []string{"A", "B", "C"}; !reflect.DeepEqual(v.ConflictIDs, want) {
		t.Errorf("ConflictIDs = %v, want %v", v.ConflictIDs, want)
	}
	if v.Stats.Selected != 3 || v.Stats.Paid != 2 {
		t.Errorf("Stats = %+v, want 3 selected / 2 paid", v.Stats)
	}
	if len(v.Days) != 2 || v.Days[0].Label != "Ma 9.3." || v.Days[1].Label != "2026-03-10" {
		t.Fatalf("days = %+v", v.Days)
	}
	if v.GridHeightPx != 15*40 {
		t.Errorf("GridHeightPx = %v, want 600", v.GridHeightPx)
	}

	found := map[string]grid.Box{}
	for _, d := range v.Days {
		d.Grid.Boxes(func(b *grid.Box) { found[b.Screening.ID] = *b })
	}
	if b := found["A"]; !b.Selected || !b.Conflict {
		t.Errorf("box A = %+v, want selected and conflicting", b)
	}
	if b := found["D"]; b.Selected || b.Conflict || !reflect.DeepEqual(b.Tags, []string{"interested"}) {
		t.Errorf("box D = %+v, want only interested", b)
	}
	if b := found["D"]; b.Geometry.TopPx != 10 {
		t.Errorf("box D top = %v, want 10", b.Geometry.TopPx)
	}
}

func TestBuildSelectedSortedByStart(t *testing.T) {
	cat := testCatalog()
	store := tags.New()
	for _, id := range []string{"D", "C", "A", "ghost"} {
		store.Add(id, tags.TagSelected)
	}
	v := Build(cat, store, Options{})
	var got []string
	for _, s := range v.Selected {
		got = append(got, s.ID)
	}
	if want := []string{"A", "C", "D"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Selected = %v, want %v", got, want)
	}
	if v.Conflicts.Any {
		t.Errorf("A [10-12) and C [12-13) touch only; got conflicts %v", v.ConflictIDs)
	}
}

func TestBuildFragmentMatchesStore(t *testing.T) {
	store := tags.New()
	store.Add("A", tags.TagSelected)
	v := Build(testCatalog(), store, Options{})
	if !tagcodec.Decode(v.Fragment, tags.DefaultDefs()).Equal(store) {
		t.Errorf("Fragment %q does not decode back to the store", v.Fragment)
	}
}

func TestBuildDoesNotMutateStore(t *testing.T) {
	store := tagcodec.Decode("?tag[selected]=A,B", tags.DefaultDefs())
	before := store.Clone()
	Build(testCatalog(), store, Options{})
	if !store.Equal(before) {
		t.Error("Build changed the store")
	}
}

func TestBuildNilCatalog(t *testing.T) {
	store := tags.New()
	store.Add("A", tags.TagSelected)
	v := Build(nil, store, Options{})
	if len(v.Days) != 0 || v.Conflicts.Any || v.Stats.Paid != 0 || v.Stats.Selected != 1 {
		t.Errorf("nil catalog view = %+v", v)
	}
}

func TestApply(t *testing.T) {
	defs := tags.DefaultDefs()
	store := tags.New()

	steps := []struct {
		m       Mutation
		wantErr error
		check   func() bool
	}{
		{Mutation{Op: OpAdd, ScreeningID: "A", TagID: "interested"}, nil, func() bool { return store.Has("A", "interested") }},
		{Mutation{Op: OpToggle, ScreeningID: "A", TagID: tags.TagSelected}, nil, func() bool { return store.Has("A", tags.TagSelected) }},
		{Mutation{Op: OpToggle, ScreeningID: "A", TagID: tags.TagSelected}, nil, func() bool { return !store.Has("A", tags.TagSelected) }},
		{Mutation{Op: OpRemove, ScreeningID: "A", TagID: "interested"}, nil, func() bool { return store.Len() == 0 }},
		{Mutation{Op: OpAdd, ScreeningID: "A", TagID: "bogus"}, ErrUnknownTag, func() bool { return store.Len() == 0 }},
		{Mutation{Op: "rename", ScreeningID: "A", TagID: "interested"}, ErrUnknownOp, func() bool { return store.Len() == 0 }},
		{Mutation{Op: OpToggle, ScreeningID: "K1,K2", TagID: tags.TagSelected}, ErrInvalidScreeningID, func() bool { return store.Len() == 0 }},
		{Mutation{Op: OpAdd, ScreeningID: " K1", TagID: tags.TagSelected}, ErrInvalidScreeningID, func() bool { return store.Len() == 0 }},
		{Mutation{Op: OpAdd, ScreeningID: "B", TagID: tags.TagSelected}, nil, func() bool { return store.Len() == 1 }},
		{Mutation{Op: OpClear}, nil, func() bool { return store.Len() == 0 }},
	}
	for i, st := range steps {
		err := Apply(store, defs, st.m)
		if st.wantErr != nil {
			if !errors.Is(err, st.wantErr) {
				t.Fatalf("step %d: err = %v, want %v", i, err, st.wantErr)
			}
		} else if err != nil {
			t.Fatalf("step %d: unexpected err %v", i, err)
		}
		if !st.check() {
			t.Fatalf("step %d: store state check failed", i)
		}
	}

	if err := Apply(store, defs, Mutation{Op: OpAdd, TagID: "interested"}); err == nil {
		t.Error("missing screening_id accepted")
	}
}

func TestApplyKeepsFragmentRoundTrip(t *testing.T) {
	defs := tags.DefaultDefs()
	store := tags.New()
	for _, id := range []string{"K1", "G-1", "x y"} {
		if err := Apply(store, defs, Mutation{Op: OpToggle, ScreeningID: id, TagID: tags.TagSelected}); err != nil {
			t.Fatalf("Apply(%q): %v", id, err)
		}
	}
	_ = Apply(store, defs, Mutation{Op: OpToggle, ScreeningID: "K1,K2", TagID: tags.TagSelected})

	back := tagcodec.Decode(tagcodec.Encode(store, defs), defs)
	if !back.Equal(store) {
		t.Errorf("round trip = %v, want %v", back.ScreeningsWithTag(tags.TagSelected), store.ScreeningsWithTag(tags.TagSelected))
	}
}
