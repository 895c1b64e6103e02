package value

import (
	"encoding/json"
	"unique"
)

type wireValue struct {
	K Kind    `json:"k"`
	I int64   `json:"i,omitempty"`
	F float64 `json:"f,omitempty"`
	S string  `json:"s,omitempty"`
	B bool    `json:"b,omitempty"`
	A []Value `json:"a,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	w := wireValue{K: v.Kind, I: v.I64, F: v.F64, B: v.B, A: v.A}
	if v.Kind == KindString {
		w.S = v.s.Value()
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var w wireValue
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*v = Value{Kind: w.K, I64: w.I, F64: w.F, B: w.B, A: w.A}
	if w.K == KindString {
		v.s = unique.Make(w.S)
	}
	return nil
}
