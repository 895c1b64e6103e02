package main

import (
	"context"
	"errors"

	"github.com/hupe1980/catalogo"
	"github.com/hupe1980/catalogo/blobstore"
	"github.com/hupe1980/catalogo/config"
	"github.com/hupe1980/catalogo/plan"
	badgerstore "github.com/hupe1980/catalogo/storage/badger"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	snapshot   string
}

func (o *rootOptions) planBlob() string { return o.snapshot + ".plan.yaml" }

func newRootCmd() *cobra.Command {
	o := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "catalogo",
		Short: "Build and query object catalogs",
		Long: `catalogo maintains a catalog of objects in a snapshot blob.
The schema comes from the catalog file on first use and from the
snapshot afterwards.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&o.configPath, "config", "c", "catalog.yaml", "catalog file")
	cmd.PersistentFlags().StringVarP(&o.snapshot, "snapshot", "s", "catalog", "snapshot blob name")

	cmd.AddCommand(
		newIndexCmd(o),
		newRemoveCmd(o),
		newSearchCmd(o),
		newPlanCmd(o),
		newServeCmd(o),
	)
	return cmd
}

// session is a catalog opened from the catalog file and its snapshot.
type session struct {
	opts    *rootOptions
	cfg     *config.Config
	catalog *catalogo.Catalog
	blobs   blobstore.Store
	plans   *plan.Store

	// store is nil unless the catalog file configures storage.
	store *badgerstore.Store
}

func (o *rootOptions) open(ctx context.Context, optFns ...catalogo.Option) (*session, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	blobs, err := cfg.Blobstore.Open(ctx)
	if err != nil {
		return nil, err
	}

	plans := plan.NewStore()
	if cfg.Catalog.PlanFile != "" {
		if err := plans.LoadFromPath(cfg.Catalog.PlanFile); err != nil {
			return nil, err
		}
	} else if err := plans.LoadFrom(ctx, blobs, o.planBlob()); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
		return nil, err
	}

	c, err := catalogo.FromConfig(cfg, append([]catalogo.Option{catalogo.WithPlanStore(plans)}, optFns...)...)
	if err != nil {
		return nil, err
	}
	if err := c.Restore(ctx, blobs, o.snapshot); err != nil && !errors.Is(err, catalogo.ErrNotFound) {
		return nil, err
	}

	s := &session{opts: o, cfg: cfg, catalog: c, blobs: blobs, plans: plans}
	if s.store, err = cfg.Storage.Open(c.Logger().Logger); err != nil {
		return nil, err
	}
	return s, nil
}

// update runs fn in a storage transaction when storage is configured.
func (s *session) update(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.store == nil {
		return fn(ctx)
	}
	return catalogo.RetryOnConflict(ctx, s.store, 3, fn)
}

func (s *session) save(ctx context.Context) error {
	if err := s.catalog.Save(ctx, s.blobs, s.opts.snapshot); err != nil {
		return err
	}
	return s.savePlans(ctx)
}

func (s *session) savePlans(ctx context.Context) error {
	if s.cfg.Catalog.PlanFile != "" {
		return nil
	}
	return s.plans.SaveTo(ctx, s.blobs, s.opts.planBlob())
}

func (s *session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
