package boolean

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/hupe1980/catalogo/idset"
	"github.com/hupe1980/catalogo/index"
	"github.com/hupe1980/catalogo/value"
)

// stateVersion 1 stores the polarity and the explicit set. Version 0 states
// carry only the per-document values and are rebuilt on load.
const stateVersion = 1

const (
	metaIndexed = "indexed"
	setExplicit = "explicit"
)

// ExportState implements index.Stateful.
func (ix *Index) ExportState() (*index.State, error) {
	explicit, err := ix.explicit.MarshalBinary()
	if err != nil {
		return nil, err
	}
	st := &index.State{
		Version: stateVersion,
		Counter: ix.counter,
		Sets:    map[string][]byte{setExplicit: explicit},
		Meta:    map[string]any{metaIndexed: ix.indexed},
	}
	docs := make([]uint32, 0, len(ix.reverse))
	for d := range ix.reverse {
		docs = append(docs, d)
	}
	slices.Sort(docs)
	for _, d := range docs {
		st.Entries = append(st.Entries, index.Entry{Doc: d, Values: []value.Value{value.Bool(ix.reverse[d])}})
	}
	return st, nil
}

// ImportState implements index.Stateful.
func (ix *Index) ImportState(st *index.State) error {
	ix.reset()
	for _, e := range st.Entries {
		if len(e.Values) != 1 {
			return fmt.Errorf("boolean index %q: doc %d: want one value, got %d", ix.id, e.Doc, len(e.Values))
		}
		ix.reverse[e.Doc] = TruthyValue(e.Values[0])
		ix.docs.Add(e.Doc)
	}

	if err := ix.loadExplicit(st); err != nil {
		ix.logger.Warn("boolean index state rebuilt",
			slog.String("index", ix.id),
			slog.Int("version", st.Version),
			slog.String("reason", err.Error()),
		)
		ix.rebuild()
	}
	ix.counter = max(ix.counter, st.Counter)
	return nil
}

func (ix *Index) loadExplicit(st *index.State) error {
	if st.Version < stateVersion {
		return fmt.Errorf("legacy state version %d", st.Version)
	}
	indexed, ok := st.Meta[metaIndexed].(bool)
	if !ok {
		return fmt.Errorf("missing %q", metaIndexed)
	}
	raw, ok := st.Sets[setExplicit]
	if !ok {
		return fmt.Errorf("missing %q set", setExplicit)
	}
	explicit := idset.New()
	if err := explicit.UnmarshalBinary(raw); err != nil {
		return err
	}
	for d := range explicit.All() {
		if v, ok := ix.reverse[d]; !ok || v != indexed {
			return fmt.Errorf("explicit set disagrees with entries at doc %d", d)
		}
	}
	ix.indexed = indexed
	ix.explicit = explicit
	return nil
}

// rebuild derives polarity and explicit set from the reverse map, storing
// the minority value.
func (ix *Index) rebuild() {
	var trues int
	for _, v := range ix.reverse {
		if v {
			trues++
		}
	}
	ix.indexed = trues <= len(ix.reverse)-trues
	ix.explicit = idset.New()
	for d, v := range ix.reverse {
		if v == ix.indexed {
			ix.explicit.Add(d)
		}
	}
}
