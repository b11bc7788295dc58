// Package search derives a filtered, ranked conversation view from the
// store for a live query string.
package search

import (
	"strings"

	"github.com/talc-dev/talc/internal/store"
)

// Index answers incremental display-name queries against the store.
// Results are recomputed lazily: a store change invalidates the cached
// result, and the next Query call recomputes it. Must only be used from
// the run loop, like the store it reads.
type Index struct {
	st *store.Store

	cachedGen    uint64
	cachedFolder store.Folder
	cachedQuery  string
	cached       []string
	valid        bool
}

// New creates an index over the store.
func New(st *store.Store) *Index {
	return &Index{st: st}
}

// Query returns conversation IDs in the given folder matching the query,
// case-insensitive substring over display names. An empty query returns
// the store's default order unchanged. Non-empty queries rank
// exact-prefix matches before substring matches, preserving store order
// within each tier.
func (ix *Index) Query(folder store.Folder, query string) []string {
	if ix.valid && ix.cachedGen == ix.st.Generation() &&
		ix.cachedFolder == folder && ix.cachedQuery == query {
		return ix.cached
	}

	convs := ix.st.List(folder)
	var ids []string
	if query == "" {
		ids = make([]string, 0, len(convs))
		for _, c := range convs {
			ids = append(ids, c.ID)
		}
	} else {
		q := strings.ToLower(query)
		var prefix, substr []string
		for _, c := range convs {
			name := strings.ToLower(c.Name)
			switch {
			case strings.HasPrefix(name, q):
				prefix = append(prefix, c.ID)
			case strings.Contains(name, q):
				substr = append(substr, c.ID)
			}
		}
		ids = append(prefix, substr...)
	}

	ix.cachedGen = ix.st.Generation()
	ix.cachedFolder = folder
	ix.cachedQuery = query
	ix.cached = ids
	ix.valid = true
	return ids
}
