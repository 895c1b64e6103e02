// Package catalogo provides an embedded object catalog for Go.
//
// A Catalog maps objects to small integer document ids (rids) and keeps a
// set of named indexes over their attributes plus a table of metadata
// columns. Searches combine per-index queries by intersection and return
// the matching metadata records, optionally sorted by an index and cut into
// batches.
//
// # Quick Start
//
//	cat := catalogo.New(catalogo.WithID("site"))
//	_ = cat.AddIndex(field.New("portal_type", nil, nil))
//	_ = cat.AddIndex(keyword.New("subject", nil, nil))
//	_ = cat.AddColumn("title", nil)
//
//	_, _ = cat.CatalogObject(ctx, index.Record{
//	    "portal_type": "Document",
//	    "subject":     []string{"go", "search"},
//	    "title":       "Hello",
//	}, "/site/hello")
//
//	res, _ := cat.Search(ctx, query.Request{
//	    "portal_type": "Document",
//	    "subject":     map[string]any{"query": []string{"go", "rust"}, "operator": "or"},
//	    "sort_on":     "portal_type",
//	})
//	for _, b := range res.All() {
//	    fmt.Println(b.UID, b.Data["title"])
//	}
//
// # Indexes
//
// The index sub-packages provide FieldIndex (one value per object),
// KeywordIndex (many values), BooleanIndex (stores only the minority value),
// DateIndex and DateRangeIndex (minute-precision date encodings),
// CompositeIndex (multi-attribute keys with automatic query rewriting) and
// TopicIndex (named predicate sets). Any type implementing index.Index can
// be added.
//
// # Query Plans
//
// Every search is timed per index. Structurally identical searches reuse
// the measurements to evaluate cheap, selective indexes first. Plans can be
// seeded from YAML (see plan.Store) and searches slower than the long query
// threshold are logged and reported.
//
// # Transactions
//
// The catalog keeps its indexes in memory. When CatalogObject and
// UncatalogObject run inside a storage transaction (see Update and
// RetryOnConflict), uid mappings and metadata rows are written through it
// and concurrent writers surface as ErrTransientConflict:
//
//	err := catalogo.RetryOnConflict(ctx, store, 3, func(ctx context.Context) error {
//	    _, err := cat.CatalogObject(ctx, obj, uid)
//	    return err
//	})
//
// # Snapshots
//
// Save and Restore persist the schema, the metadata table and the reverse
// maps of all indexes to a blobstore.Store (memory, local directory, MinIO
// or S3).
package catalogo
