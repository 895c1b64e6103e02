// Package index defines the contract every catalog index implements.
//
// An index keeps a forward map (value -> docids) and a reverse map
// (docid -> value or values). The catalog feeds it objects through
// IndexObject/UnindexObject and evaluates queries with Apply.
//
// Apply returns a nil *Result when the request does not mention the index
// ("not applicable") and a Result with an empty set when it does but nothing
// matches. The two outcomes are different: the first contributes no
// constraint, the second empties the whole search.
//
// Implementations live in sub-packages:
//
//   - field: one value per document
//   - keyword: a set of values per document
//   - boolean: minority-only boolean index
//   - composite: multi-attribute synthetic keys
//   - date, daterange: minute-encoded timestamps
//   - topic: named predicate sets
package index
