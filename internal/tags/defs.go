package tags

// TagSelected marks screenings the user intends to attend. Conflict
// detection and the paid-ticket counter only look at this tag.
const TagSelected = "selected"

// Def is one entry of the fixed tag enumeration.
type Def struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
}

// DefaultDefs is the built-in enumeration. Companion-viewing groups are
// the "seura-" entries.
func DefaultDefs() []Def {
	return []Def{
		{ID: TagSelected, Label: "#selected"},
		{ID: "interested", Label: "#interested"},
		{ID: "notinterested", Label: "#notinterested"},
		{ID: "seura-manuli", Label: "#manuli"},
		{ID: "seura-vikunja", Label: "#vikunja"},
	}
}

// Lookup finds the definition for id.
func Lookup(defs []Def, id string) (Def, bool) {
	for _, d := range defs {
		if d.ID == id {
			return d, true
		}
	}
	return Def{}, false
}

// Validate copies store keeping only tag IDs from defs. When known is
// non-nil, screenings it rejects are dropped as well (stale references to
// screenings no longer in the catalog).
func Validate(store *Store, defs []Def, known func(screeningID string) bool) *Store {
	out := New()
	for _, id := range store.IDs() {
		if known != nil && !known(id) {
			continue
		}
		for _, t := range store.Get(id) {
			if _, ok := Lookup(defs, t); ok {
				out.Add(id, t)
			}
		}
	}
	return out
}
