package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	gojson "github.com/goccy/go-json"
	"github.com/hupe1980/catalogo/index"
	"github.com/spf13/cobra"
)

type pending struct {
	uid string
	obj index.Record
}

func newIndexCmd(o *rootOptions) *cobra.Command {
	var (
		uidField  string
		batchSize int
	)
	cmd := &cobra.Command{
		Use:   "index [file.jsonl...]",
		Short: "Catalog JSON-lines objects and save the snapshot",
		Long: `Reads one JSON object per line from the given files or stdin and
catalogs it under the value of the uid field. Objects that are already
catalogued are reindexed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := o.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			var (
				batch []pending
				total int
			)
			flush := func() error {
				if len(batch) == 0 {
					return nil
				}
				err := s.update(ctx, func(ctx context.Context) error {
					for _, p := range batch {
						if _, err := s.catalog.CatalogObject(ctx, p.obj, p.uid); err != nil {
							return fmt.Errorf("%s: %w", p.uid, err)
						}
					}
					return nil
				})
				total += len(batch)
				batch = batch[:0]
				return err
			}
			add := func(uid string, obj index.Record) error {
				batch = append(batch, pending{uid: uid, obj: obj})
				if len(batch) >= batchSize {
					return flush()
				}
				return nil
			}

			if len(args) == 0 {
				if err := decodeObjects(cmd.InOrStdin(), uidField, add); err != nil {
					return err
				}
			}
			for _, path := range args {
				if err := decodeFile(path, uidField, add); err != nil {
					return err
				}
			}
			if err := flush(); err != nil {
				return err
			}
			if err := s.save(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "catalogued %d objects, %d in catalog\n", total, s.catalog.Len())
			return nil
		},
	}
	cmd.Flags().StringVar(&uidField, "uid-field", "uid", "object attribute holding the uid")
	cmd.Flags().IntVar(&batchSize, "batch-size", 500, "objects per storage transaction")
	return cmd
}

func newRemoveCmd(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <uid>...",
		Short: "Uncatalog objects and save the snapshot",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := o.open(ctx)
			if err != nil {
				return err
			}
			defer s.Close()

			err = s.update(ctx, func(ctx context.Context) error {
				for _, uid := range args {
					if err := s.catalog.UncatalogObject(ctx, uid); err != nil {
						return err
					}
				}
				return nil
			})
			if err != nil {
				return err
			}
			return s.save(ctx)
		},
	}
}

func decodeFile(path, uidField string, fn func(string, index.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := decodeObjects(f, uidField, fn); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

// decodeObjects calls fn for every JSON object in r. The uid attribute is
// kept in the object.
func decodeObjects(r io.Reader, uidField string, fn func(string, index.Record) error) error {
	dec := gojson.NewDecoder(r)
	for n := 1; ; n++ {
		var obj index.Record
		if err := dec.Decode(&obj); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("object %d: %w", n, err)
		}
		uid, ok := obj[uidField].(string)
		if !ok || uid == "" {
			return fmt.Errorf("object %d: missing string attribute %q", n, uidField)
		}
		if err := fn(uid, obj); err != nil {
			return err
		}
	}
}
