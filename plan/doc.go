// Package plan learns in which order a catalog should evaluate the indexes
// of a query.
//
// Every search records, per index, how long the index took and whether it
// limits the running result. The Store keeps a running mean per query
// shape; later searches of the same shape evaluate fast and non-limiting
// indexes first. Searches that exceed a threshold are aggregated in
// Reports.
//
// The order never changes which documents a search returns.
package plan
