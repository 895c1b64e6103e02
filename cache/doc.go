// Package cache provides the result caches used during catalog searches.
//
// RequestCache memoizes per-index intermediate results for one request or
// transaction. QueryCache memoizes whole search results across requests;
// its entries carry the storage commit marker of the transaction that
// produced them, so a reader whose snapshot predates that commit is told the
// entry is stale instead of receiving it.
package cache
