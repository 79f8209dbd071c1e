// Package resolver builds dependency trees from the package index.
package resolver

import (
	"context"
	"sync"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

// Resolver resolves packages and manifests against the store.
type Resolver struct {
	store     ports.Store
	announcer ports.Announcer
	tracer    ports.Tracer
}

var _ ports.PositionFinder = (*Resolver)(nil)

// New creates a new Resolver.
func New(store ports.Store, announcer ports.Announcer, tracer ports.Tracer) *Resolver {
	return &Resolver{store: store, announcer: announcer, tracer: tracer}
}

// Options tunes a single resolution.
type Options struct {
	// Range constrains the root package. Defaults to DefaultRange.
	Range string
	// Production drops the root's dev dependencies. Deeper levels never
	// follow dev dependencies.
	Production bool
	// OnDependency is called once for every node attached to the tree,
	// before its own dependencies are visited. Calls are serialized.
	OnDependency func(pkg domain.PackageInfo, tree *domain.Tree, id domain.NodeID)
}

// Resolve builds the dependency tree of target.
//
// All dependency edges are visited concurrently. The first error is
// returned once every visit already started has finished; no partial tree
// is returned.
func (r *Resolver) Resolve(ctx context.Context, target domain.Target, opts Options) (tree *domain.Tree, err error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	if opts.Range == "" {
		opts.Range = DefaultRange
	}

	ctx, span := r.tracer.Start(ctx, "resolve")
	defer span.End()
	span.SetAttribute("ims.range", opts.Range)
	span.SetAttribute("ims.production", opts.Production)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
	}()

	w := &treeWalk{resolver: r, opts: opts}

	if target.Manifest == nil {
		span.SetAttribute("ims.package", target.Name)
		r.announcer.Announce(ctx, domain.ResolveRequest{
			Name:       target.Name,
			Range:      opts.Range,
			Production: opts.Production,
		})

		w.tree = domain.NewTree(target.Name, "", opts.Range)
		root := w.tree.Root()
		w.group.Go(func() error {
			return w.visit(ctx, root, target.Name, opts.Range, opts.Production)
		})
	} else {
		m := target.Manifest
		span.SetAttribute("ims.package", m.Name)

		edges := m.Record().Edges(opts.Production)
		for _, edge := range edges {
			r.announcer.Announce(ctx, domain.ResolveRequest{
				Name:       edge.Name,
				Range:      edge.Range,
				Production: opts.Production,
			})
		}

		w.tree = domain.NewTree(m.Name, m.Version, opts.Range)
		w.attach(ctx, w.tree.Root(), edges)
	}

	if err := w.group.Wait(); err != nil {
		return nil, err
	}
	span.SetAttribute("ims.nodes", w.tree.Len())
	return w.tree, nil
}

// treeWalk is the private state of one Resolve call.
type treeWalk struct {
	resolver *Resolver
	opts     Options
	tree     *domain.Tree
	group    errgroup.Group

	notifyMu sync.Mutex
}

// visit settles node id on the best version of name and fans out to its edges.
func (w *treeWalk) visit(ctx context.Context, id domain.NodeID, name, rng string, production bool) error {
	node, err := w.resolver.latest(ctx, name, rng, nil)
	if err != nil {
		return err
	}
	if node == nil {
		return notFound(name, rng)
	}

	pkg, err := domain.ParseKey(node.Key)
	if err != nil {
		return err
	}

	// Provided by an ancestor, or by a child of one: drop the edge.
	if !w.tree.Settle(id, pkg.Version) {
		return nil
	}

	w.notify(pkg, id)
	w.attach(ctx, id, node.Record.Edges(production))
	return nil
}

func (w *treeWalk) attach(ctx context.Context, parent domain.NodeID, edges []domain.Dependency) {
	for _, edge := range edges {
		child := w.tree.AddChild(parent, edge.Name, edge.Range)
		w.group.Go(func() error {
			return w.visit(ctx, child, edge.Name, edge.Range, true)
		})
	}
}

func (w *treeWalk) notify(pkg domain.PackageInfo, id domain.NodeID) {
	if w.opts.OnDependency == nil {
		return
	}
	w.notifyMu.Lock()
	defer w.notifyMu.Unlock()
	w.opts.OnDependency(pkg, w.tree, id)
}
