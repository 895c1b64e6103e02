package index

import (
	"github.com/hupe1980/catalogo/value"
)

// Definition describes how to construct an index. It is what catalog
// snapshots and YAML catalog files persist.
type Definition struct {
	ID         string         `json:"id" yaml:"id"`
	MetaType   string         `json:"meta_type" yaml:"type"`
	Attributes []string       `json:"attributes,omitempty" yaml:"attributes,omitempty"`
	Extra      map[string]any `json:"extra,omitempty" yaml:"extra,omitempty"`
}

// Definer is implemented by indexes that can describe themselves.
type Definer interface {
	Definition() Definition
}

// Entry is one reverse-map row of a persisted index.
type Entry struct {
	Doc    uint32        `json:"d"`
	Values []value.Value `json:"v"`
}

// State is the persisted form of an index. Forward maps are rebuilt from
// Entries on import.
type State struct {
	Version int               `json:"version"`
	Counter uint64            `json:"counter"`
	Entries []Entry           `json:"entries,omitempty"`
	Sets    map[string][]byte `json:"sets,omitempty"`
	Meta    map[string]any    `json:"meta,omitempty"`
}

// Stateful is implemented by indexes that support snapshots.
type Stateful interface {
	ExportState() (*State, error)
	ImportState(st *State) error
}
