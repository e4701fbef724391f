// Package tagcodec turns a tag store into the query-string fragment used in
// shareable links, and back.
//
// Wire format:
//
//	?tag[selected]=a,b&tag[interested]=c
//
// Keys and values are query-escaped, so the brackets and commas travel as
// %5B, %5D and %2C. Keys appear in enumeration order and only for tags that
// at least one screening carries. An empty store encodes to "".
//
// Decode strips at most one leading '#' and then at most one '?', so both
// location.hash ("#?tag...") and location.search ("?tag...") values work.
// Anything past those two characters is parsed as the query itself.
package tagcodec

import (
	"net/url"
	"slices"
	"strings"

	"festplan/internal/tags"
)

const (
	keyPrefix = "tag["
	keySuffix = "]"
)

// KeyFor returns the unescaped query key for a tag ID.
func KeyFor(tagID string) string {
	return keyPrefix + tagID + keySuffix
}

// Encode serializes store for the tags in defs. Tags outside defs are not
// represented.
func Encode(store *tags.Store, defs []tags.Def) string {
	parts := make([]string, 0, len(defs))
	for _, d := range defs {
		ids := store.ScreeningsWithTag(d.ID)
		if len(ids) == 0 {
			continue
		}
		parts = append(parts, pair(d.ID, ids))
	}
	return join(parts)
}

func pair(tagID string, ids []string) string {
	return url.QueryEscape(KeyFor(tagID)) + "=" + url.QueryEscape(strings.Join(ids, ","))
}

func join(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return "?" + strings.Join(parts, "&")
}

// Toggler encodes variants of one store that differ by a single toggled
// (screening, tag) pair. The store is grouped once in NewToggler; each
// Toggle only rebuilds the list of the toggled tag.
type Toggler struct {
	defs  []tags.Def
	ids   [][]string
	parts []string
}

// NewToggler snapshots store. Later changes to store are not seen.
func NewToggler(store *tags.Store, defs []tags.Def) *Toggler {
	t := &Toggler{defs: defs, ids: make([][]string, len(defs)), parts: make([]string, len(defs))}
	for i, d := range defs {
		t.ids[i] = store.ScreeningsWithTag(d.ID)
		if len(t.ids[i]) > 0 {
			t.parts[i] = pair(d.ID, t.ids[i])
		}
	}
	return t
}

// Toggle returns what Encode would produce after toggling tagID on
// screeningID.
func (t *Toggler) Toggle(screeningID, tagID string) string {
	parts := make([]string, 0, len(t.defs))
	for i, d := range t.defs {
		if d.ID != tagID {
			if t.parts[i] != "" {
				parts = append(parts, t.parts[i])
			}
			continue
		}
		if ids := toggleSorted(t.ids[i], screeningID); len(ids) > 0 {
			parts = append(parts, pair(d.ID, ids))
		}
	}
	return join(parts)
}

// toggleSorted returns a sorted copy of ids with id removed or inserted.
func toggleSorted(ids []string, id string) []string {
	i, found := slices.BinarySearch(ids, id)
	if found {
		return slices.Delete(slices.Clone(ids), i, i+1)
	}
	return slices.Insert(slices.Clone(ids), i, id)
}

// Decode parses a fragment into a fresh store. It accepts the fragment with
// or without the URL's leading '#' and the '?' separator. Malformed input
// never fails: pairs that parse are used, the rest are ignored, and keys
// for tags outside defs are skipped.
func Decode(raw string, defs []tags.Def) *tags.Store {
	store := tags.New()

	raw = strings.TrimPrefix(raw, "#")
	raw = strings.TrimPrefix(raw, "?")
	if raw == "" {
		return store
	}

	// ParseQuery keeps every pair it could decode even when it reports an
	// error for another one.
	values, _ := url.ParseQuery(raw)

	for _, d := range defs {
		val := values.Get(KeyFor(d.ID))
		if val == "" {
			continue
		}
		for _, tok := range strings.Split(val, ",") {
			id := strings.TrimSpace(tok)
			if id == "" {
				continue
			}
			store.Add(id, d.ID)
		}
	}
	return store
}
