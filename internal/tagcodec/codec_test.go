package tagcodec

import (
	"reflect"
	"testing"

	"festplan/internal/tags"
)

func TestEncodeEmpty(t *testing.T) {
	if got := Encode(tags.New(), tags.DefaultDefs()); got != "" {
		t.Errorf("Encode(empty) = %q, want empty string", got)
	}
}

func TestEncodeOrderAndEscaping(t *testing.T) {
	s := tags.New()
	s.Add("c", "interested")
	s.Add("b", tags.TagSelected)
	s.Add("a", tags.TagSelected)

	// selected is declared before interested; ids within a key are sorted.
	want := "?tag%5Bselected%5D=a%2Cb&tag%5Binterested%5D=c"
	if got := Encode(s, tags.DefaultDefs()); got != want {
		t.Errorf("Encode = %q, want %q", got, want)
	}
}

func TestEncodeSkipsUnenumeratedTags(t *testing.T) {
	s := tags.New()
	s.Add("a", "custom")
	if got := Encode(s, tags.DefaultDefs()); got != "" {
		t.Errorf("Encode = %q, want empty for tags outside the enumeration", got)
	}
}

func TestDecodeScenario(t *testing.T) {
	s := Decode("?tag[selected]=a,b&tag[interested]=c", tags.DefaultDefs())

	want := tags.New()
	want.Add("a", tags.TagSelected)
	want.Add("b", tags.TagSelected)
	want.Add("c", "interested")

	if !s.Equal(want) {
		t.Fatalf("decoded store = %v, want a,b selected and c interested", dump(s))
	}
}

func TestDecodeVariants(t *testing.T) {
	defs := tags.DefaultDefs()
	tests := []struct {
		name string
		raw  string
		want map[string][]string
	}{
		{"empty", "", map[string][]string{}},
		{"only separator", "?", map[string][]string{}},
		{"hash and separator", "#?tag[selected]=x", map[string][]string{"x": {tags.TagSelected}}},
		{"no separator", "tag[selected]=x", map[string][]string{"x": {tags.TagSelected}}},
		{"only one separator stripped", "??tag[selected]=x", map[string][]string{}},
		{"only one hash stripped", "##?tag[selected]=x", map[string][]string{}},
		{"escaped form", "?tag%5Bselected%5D=a%2Cb", map[string][]string{"a": {tags.TagSelected}, "b": {tags.TagSelected}}},
		{"trims and drops empty tokens", "?tag[interested]= a ,, b ,", map[string][]string{"a": {"interested"}, "b": {"interested"}}},
		{"unknown tag key ignored", "?tag[bogus]=a&tag[selected]=b", map[string][]string{"b": {tags.TagSelected}}},
		{"unrelated keys ignored", "?reset=1&foo=bar", map[string][]string{}},
		{"bad escape keeps good pairs", "?tag[selected]=a&broken=%zz", map[string][]string{"a": {tags.TagSelected}}},
		{"garbage", "%%%&&&===", map[string][]string{}},
		{"duplicate ids collapse", "?tag[selected]=a,a", map[string][]string{"a": {tags.TagSelected}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dump(Decode(tt.raw, defs))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	defs := tags.DefaultDefs()
	stores := []func() *tags.Store{
		tags.New,
		func() *tags.Store {
			s := tags.New()
			s.Add("s1", tags.TagSelected)
			return s
		},
		func() *tags.Store {
			s := tags.New()
			s.Add("s1", tags.TagSelected)
			s.Add("s1", "seura-vikunja")
			s.Add("s2", "notinterested")
			s.Add("s3", "seura-manuli")
			s.Add("s3", "interested")
			s.Add("s3", tags.TagSelected)
			s.Add("id with space", "interested")
			s.Add("ä-ö/å&=?", tags.TagSelected)
			return s
		},
	}
	for i, mk := range stores {
		orig := mk()
		enc := Encode(orig, defs)
		back := Decode(enc, defs)
		if !back.Equal(orig) {
			t.Errorf("case %d: round trip via %q gave %v, want %v", i, enc, dump(back), dump(orig))
		}
	}
}

func dump(s *tags.Store) map[string][]string {
	out := map[string][]string{}
	for _, id := range s.IDs() {
		out[id] = s.Get(id)
	}
	return out
}

func TestTogglerMatchesEncode(t *testing.T) {
	defs := tags.DefaultDefs()
	base := tags.New()
	base.Add("b", tags.TagSelected)
	base.Add("d", tags.TagSelected)
	base.Add("c", "interested")

	tog := NewToggler(base, defs)
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		for _, tag := range []string{tags.TagSelected, "interested", "bogus"} {
			next := base.Clone()
			next.Toggle(id, tag)
			want := Encode(next, defs)
			if got := tog.Toggle(id, tag); got != want {
				t.Errorf("Toggle(%s, %s) = %q, want %q", id, tag, got, want)
			}
		}
	}
	if got, want := tog.Toggle("b", tags.TagSelected), "?tag%5Bselected%5D=d&tag%5Binterested%5D=c"; got != want {
		t.Errorf("deselect b = %q, want %q", got, want)
	}

	only := tags.New()
	only.Add("x", tags.TagSelected)
	if got := NewToggler(only, defs).Toggle("x", tags.TagSelected); got != "" {
		t.Errorf("deselecting the last screening = %q, want empty", got)
	}
}
