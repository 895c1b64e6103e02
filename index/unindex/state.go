package unindex

import (
	"slices"

	"github.com/hupe1980/catalogo/index"
)

// ExportState implements index.Stateful.
func (ix *Index) ExportState() (*index.State, error) {
	st := &index.State{
		Version: 1,
		Counter: ix.counter,
		Entries: make([]index.Entry, 0, len(ix.reverse)),
	}
	for d, vs := range ix.reverse {
		st.Entries = append(st.Entries, index.Entry{Doc: d, Values: slices.Clone(vs)})
	}
	slices.SortFunc(st.Entries, func(a, b index.Entry) int {
		switch {
		case a.Doc < b.Doc:
			return -1
		case a.Doc > b.Doc:
			return 1
		}
		return 0
	})
	return st, nil
}

// ImportState implements index.Stateful. It replaces the current contents
// and rebuilds the forward map from the reverse entries.
func (ix *Index) ImportState(st *index.State) error {
	if st == nil {
		return nil
	}
	ix.Clear()
	for _, e := range st.Entries {
		ix.Insert(e.Doc, e.Values...)
	}
	if st.Counter > ix.counter {
		ix.counter = st.Counter
	}
	return nil
}
