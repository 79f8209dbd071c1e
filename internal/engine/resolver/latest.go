package resolver

import (
	"context"
	"errors"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/zerr"
)

// DefaultRange matches every released version.
const DefaultRange = "*"

// GetLatest returns the highest stored version of name satisfying rng.
//
// Indirections are followed once: the returned node keeps the key and
// position of the scanned entry but carries the record it points at.
func (r *Resolver) GetLatest(ctx context.Context, name, rng string) (*domain.Node, error) {
	node, err := r.latest(ctx, name, rng, nil)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, notFound(name, rng)
	}
	return node, nil
}

// latest scans every entry under name. collect, when set, receives the
// position of each scanned entry and of each indirection target.
// A nil node means no version satisfies rng.
func (r *Resolver) latest(ctx context.Context, name, rng string, collect func(uint64)) (*domain.Node, error) {
	if err := r.store.Ready(ctx); err != nil {
		return nil, err
	}
	if r.store.Version() == 0 {
		if err := r.store.Update(ctx); err != nil {
			return nil, err
		}
	}

	if rng == "" {
		rng = DefaultRange
	}
	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		// An unparseable range is satisfied by nothing.
		constraint = nil
	}

	var (
		best     *semver.Version
		bestNode *domain.Node
	)

	it := r.store.Iterate(ctx, name)
	for {
		node, err := it.Next(ctx)
		if err != nil {
			return nil, err
		}
		if node == nil {
			return bestNode, nil
		}

		if node.Record.IsIndirect() {
			target, err := r.follow(ctx, node)
			if err != nil {
				return nil, err
			}
			if collect != nil {
				collect(target.Position)
			}
			node = &domain.Node{Key: node.Key, Position: node.Position, Record: target.Record}
		}
		if collect != nil {
			collect(node.Position)
		}

		if constraint == nil {
			continue
		}
		pkg, err := domain.ParseKey(node.Key)
		if err != nil || pkg.Name != name {
			continue
		}
		v, err := semver.StrictNewVersion(pkg.Version)
		if err != nil {
			continue
		}
		if !constraint.Check(v) {
			continue
		}
		if best == nil || v.GreaterThan(best) {
			best = v
			bestNode = node
		}
	}
}

// follow reads the record an indirection points at.
func (r *Resolver) follow(ctx context.Context, node *domain.Node) (*domain.Node, error) {
	position := node.Record.SameDependencies

	target, err := r.store.ReadByPosition(ctx, position)
	if err != nil {
		if errors.Is(err, domain.ErrPositionOutOfRange) {
			err = zerr.With(errors.Join(domain.ErrDanglingIndirection, err), "key", node.Key)
			return nil, zerr.With(err, "position", position)
		}
		return nil, err
	}

	switch {
	case target.Tombstone:
		err = zerr.With(zerr.Wrap(domain.ErrDanglingIndirection, "target was deleted"), "key", node.Key)
		return nil, zerr.With(err, "position", position)
	case target.Record.IsIndirect():
		err = zerr.With(zerr.Wrap(domain.ErrIndirectionChain, "refusing second hop"), "key", node.Key)
		return nil, zerr.With(err, "position", position)
	}
	return target, nil
}

func notFound(name, rng string) error {
	err := zerr.With(zerr.Wrap(domain.ErrPackageNotFound, "no stored version satisfies range"), "name", name)
	return zerr.With(err, "range", rng)
}
