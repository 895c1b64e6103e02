// Package query normalizes heterogeneous query parameters into IndexQuery.
//
// A catalog query is a Request (map from index name to parameter). Each index
// calls Parse with its own name and the options it supports:
//
//	req := query.Request{
//	    "review_state": "published",                                   // scalar
//	    "portal_type":  []string{"News", "Document"},                  // list, implicit "or"
//	    "subject":      map[string]any{"query": "a", "not": "b"},      // dict
//	    "created":      query.Record{Query: t, Range: "min"},          // record
//	    "modified":     t, "modified_usage": "range:max",              // flat options
//	}
//
//	iq, err := query.Parse(req, "subject", []string{"query", "not", "operator"}, []string{"or", "and"})
//
// Unknown option keys, invalid operators and invalid ranges are errors
// wrapping ErrInvalidQuery.
package query
