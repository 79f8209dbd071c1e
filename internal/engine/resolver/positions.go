package resolver

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Positions returns the log positions a resolution of name@rng reads: every
// scanned entry and every indirection target, transitively. Positions are
// listed once, in the order the walk reached them, so the root's entries come
// first and a truncated list keeps what is needed earliest.
//
// Unlike Resolve, each resolved version is expanded once per call no matter
// how many paths reach it, and a missing package ends its branch quietly.
func (r *Resolver) Positions(ctx context.Context, name, rng string, production bool) (positions []uint64, err error) {
	if rng == "" {
		rng = DefaultRange
	}

	ctx, span := r.tracer.Start(ctx, "resolver.positions")
	defer span.End()
	span.SetAttribute("ims.package", name)
	span.SetAttribute("ims.range", rng)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
	}()

	w := &positionWalk{resolver: r, found: make(map[uint64]struct{})}
	w.visit(ctx, name, rng, production)
	if err := w.group.Wait(); err != nil {
		return nil, err
	}

	positions = w.positions()
	span.SetAttribute("ims.positions", len(positions))
	return positions, nil
}

type positionWalk struct {
	resolver *Resolver
	group    errgroup.Group
	seen     sync.Map

	mu    sync.Mutex
	found map[uint64]struct{}
	order []uint64
}

func (w *positionWalk) visit(ctx context.Context, name, rng string, production bool) {
	w.group.Go(func() error {
		node, err := w.resolver.latest(ctx, name, rng, w.add)
		if err != nil {
			return err
		}
		if node == nil {
			return nil
		}
		if _, loaded := w.seen.LoadOrStore(node.Key, struct{}{}); loaded {
			return nil
		}

		for _, edge := range node.Record.Edges(production) {
			w.visit(ctx, edge.Name, edge.Range, true)
		}
		return nil
	})
}

func (w *positionWalk) add(position uint64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.found[position]; ok {
		return
	}
	w.found[position] = struct{}{}
	w.order = append(w.order, position)
}

func (w *positionWalk) positions() []uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]uint64(nil), w.order...)
}
