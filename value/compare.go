package value

import (
	"cmp"
	"slices"
)

// rank maps kinds to their sort rank. Int and Float share a rank so that
// numbers of both kinds interleave.
func rank(k Kind) int {
	switch k {
	case KindFloat:
		return int(KindInt)
	default:
		return int(k)
	}
}

// Compare returns -1, 0 or +1 and defines a total order over all values.
func Compare(a, b Value) int {
	ra, rb := rank(a.Kind), rank(b.Kind)
	if ra != rb {
		return cmp.Compare(ra, rb)
	}

	switch a.Kind {
	case KindInvalid, KindMissing, KindEmpty, KindNull:
		return 0
	case KindBool:
		switch {
		case a.B == b.B:
			return 0
		case !a.B:
			return -1
		default:
			return 1
		}
	case KindInt, KindFloat:
		if a.Kind == KindInt && b.Kind == KindInt {
			return cmp.Compare(a.I64, b.I64)
		}
		fa, _ := a.AsFloat64()
		fb, _ := b.AsFloat64()
		if c := cmp.Compare(fa, fb); c != 0 {
			return c
		}
		// 1 and 1.0 are numerically equal but distinct keys.
		return cmp.Compare(a.Kind, b.Kind)
	case KindString:
		return cmp.Compare(a.s.Value(), b.s.Value())
	case KindTuple:
		return slices.CompareFunc(a.A, b.A, Compare)
	}
	return 0
}

// Less reports whether a sorts before b.
func Less(a, b Value) bool { return Compare(a, b) < 0 }

// Equal reports whether a and b are the same value.
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

// SortUnique sorts vs in place and removes duplicates.
func SortUnique(vs []Value) []Value {
	slices.SortFunc(vs, Compare)
	return slices.CompactFunc(vs, Equal)
}
