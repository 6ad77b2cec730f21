package resource

import (
	"strings"

	"golang.org/x/exp/slices"
)

// Collection is an ordered sequence of entities.
type Collection []Entity

// URIs returns the uris of all entities in order.
func (c Collection) URIs() []string {
	uris := make([]string, len(c))
	for i, e := range c {
		uris[i] = e.Res().URI()
	}
	return uris
}

// Find returns the entity with the given uri, or nil.
func (c Collection) Find(uri string) Entity {
	for _, e := range c {
		if e.Res().URI() == uri {
			return e
		}
	}
	return nil
}

// SortByURI sorts c by uri ascending, comparing bytes.
func (c Collection) SortByURI() {
	slices.SortStableFunc(c, func(a, b Entity) int {
		return strings.Compare(a.Res().URI(), b.Res().URI())
	})
}

// SortByOrder sorts c to match the order of uris.
// Entities whose uri is not contained in uris are moved to the end, keeping their relative order.
func (c Collection) SortByOrder(uris []string) {
	index := make(map[string]int, len(uris))
	for i, uri := range uris {
		if _, ok := index[uri]; !ok {
			index[uri] = i
		}
	}

	position := func(e Entity) int {
		if i, ok := index[e.Res().URI()]; ok {
			return i
		}
		return len(uris)
	}

	slices.SortStableFunc(c, func(a, b Entity) int {
		return position(a) - position(b)
	})
}
