// Package value defines the typed values stored in catalog indexes.
//
// A Value is a scalar (bool, int, float, string, null), a tuple of values
// (used for composite keys), or one of the two markers Missing and Empty that
// record "attribute absent" and "empty collection" for a document.
//
// Values are totally ordered by Compare:
//
//	Missing < Empty < Null < Bool < Int/Float < String < Tuple
//
// Example:
//
//	keys := []value.Value{value.String("b"), value.Int(3), value.String("a")}
//	keys = value.SortUnique(keys) // [3 "a" "b"]
package value
