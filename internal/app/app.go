// Package app implements the application layer for ims.
package app

import (
	"context"
	"errors"
	"time"

	"go.trai.ch/ims/internal/adapters/registry"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/ims/internal/engine/ingest"
	"go.trai.ch/ims/internal/engine/resolver"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader  ports.ConfigLoader
	logger        ports.Logger
	tracer        ports.Tracer
	fingerprinter ports.Fingerprinter
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	log ports.Logger,
	tracer ports.Tracer,
	fingerprinter ports.Fingerprinter,
) *App {
	return &App{
		configLoader:  loader,
		logger:        log,
		tracer:        tracer,
		fingerprinter: fingerprinter,
	}
}

// SyncOptions configures the Sync method.
type SyncOptions struct {
	ConfigPath string
	// Once stops after a single session instead of retrying forever.
	Once bool
}

// Sync replicates the registry feed into the local index.
func (a *App) Sync(ctx context.Context, opts SyncOptions) error {
	rt, err := a.open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer rt.close()

	syncer := a.newSyncer(rt)
	if opts.Once {
		if err := syncer.RunOnce(ctx); err != nil {
			return zerr.Wrap(err, "sync failed")
		}
		a.logger.Info("sync finished", "seq", rt.status.Snapshot().Seq, "length", rt.store.Version())
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return syncer.Run(ctx)
	})
	g.Go(func() error {
		ingest.NewReporter(rt.status, a.logger, rt.cfg.StatusInterval).Run(ctx)
		return nil
	})
	return g.Wait()
}

// ServeOptions configures the Serve method.
type ServeOptions struct {
	ConfigPath string
	// Sync also runs the registry sync loop.
	Sync bool
}

// Serve accepts peers, dials the configured ones and answers their prefetch
// requests until ctx is cancelled.
func (a *App) Serve(ctx context.Context, opts ServeOptions) error {
	rt, err := a.open(ctx, opts.ConfigPath)
	if err != nil {
		return err
	}
	defer rt.close()

	g, ctx := errgroup.WithContext(ctx)

	if rt.cfg.Listen != "" {
		g.Go(func() error {
			return rt.swarm.Listen(ctx, rt.cfg.Listen)
		})
	}

	rt.connect()

	g.Go(func() error {
		ticker := time.NewTicker(rt.cfg.StatusInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				rt.swarm.Advertise()
			}
		}
	})

	if opts.Sync {
		syncer := a.newSyncer(rt)
		g.Go(func() error {
			return syncer.Run(ctx)
		})
		g.Go(func() error {
			ingest.NewReporter(rt.status, a.logger, rt.cfg.StatusInterval).Run(ctx)
			return nil
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// ResolveOptions configures the Resolve method.
type ResolveOptions struct {
	ConfigPath string
	// Target is a package name or the path of a manifest file.
	Target     string
	Range      string
	Production bool
}

// Resolve builds the dependency tree of a package or a local manifest.
func (a *App) Resolve(ctx context.Context, opts ResolveOptions) (*domain.Tree, error) {
	target, err := loadTarget(opts.Target)
	if err != nil {
		return nil, err
	}

	rt, err := a.open(ctx, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	defer rt.close()

	rt.connect()

	tree, err := rt.resolver.Resolve(ctx, target, resolver.Options{
		Range:      opts.Range,
		Production: opts.Production,
		OnDependency: func(pkg domain.PackageInfo, tree *domain.Tree, id domain.NodeID) {
			a.logger.Debug("resolved", "package", pkg.String(), "depth", len(tree.Path(id)))
		},
	})
	if err != nil {
		return nil, zerr.With(err, "target", opts.Target)
	}
	return tree, nil
}

// GetOptions configures the Get method.
type GetOptions struct {
	ConfigPath string
	Name       string
	Range      string
}

// Get returns the record selected for name and range.
func (a *App) Get(ctx context.Context, opts GetOptions) (*domain.Node, error) {
	rt, err := a.open(ctx, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	defer rt.close()

	return rt.resolver.GetLatest(ctx, opts.Name, opts.Range)
}

func (a *App) newSyncer(rt *runtime) *ingest.Syncer {
	engine := ingest.New(rt.store, a.fingerprinter, rt.checkpoint, rt.status, a.tracer, a.logger)
	feed := registry.NewClient(rt.cfg.RegistryURL, a.logger)
	return ingest.NewSyncer(engine, feed, rt.checkpoint, rt.status, a.logger, rt.cfg.RetryDelay)
}
