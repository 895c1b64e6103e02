// Package unindex implements the forward/reverse index core shared by the
// value-based indexes (field, keyword, date, composite).
//
// The forward map is an ordered B-tree from value to docid set; the reverse
// map remembers what each document was indexed under, so documents can be
// unindexed without re-reading the object. Query evaluation follows a
// combiner model: a query resolves to an operator, a list of sets and a list
// of exclusion sets, and the result is
//
//	operator(sets...) - union(excludes...)
package unindex
