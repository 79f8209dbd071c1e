// Package ingest turns registry change events into package records.
package ingest

import (
	"context"
	"slices"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
)

// Engine ingests change events into the store and advances the checkpoint
// once an event is fully written.
type Engine struct {
	store         ports.Store
	fingerprinter ports.Fingerprinter
	checkpoint    ports.CheckpointStore
	status        *domain.SyncStatus
	tracer        ports.Tracer
	logger        ports.Logger
}

// New creates a new Engine with the given dependencies.
func New(
	store ports.Store,
	fingerprinter ports.Fingerprinter,
	checkpoint ports.CheckpointStore,
	status *domain.SyncStatus,
	tracer ports.Tracer,
	logger ports.Logger,
) *Engine {
	return &Engine{
		store:         store,
		fingerprinter: fingerprinter,
		checkpoint:    checkpoint,
		status:        status,
		tracer:        tracer,
		logger:        logger,
	}
}

// Ingest applies one change event.
//
// Re-ingesting an event is a no-op for every version already stored, so an
// event interrupted half way can be replayed from the last checkpoint.
func (e *Engine) Ingest(ctx context.Context, event domain.ChangeEvent) (err error) {
	ctx, span := e.tracer.Start(ctx, "ingest.event")
	defer span.End()
	span.SetAttribute("ims.package", event.ID)
	span.SetAttribute("ims.seq", event.Seq)
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
	}()

	if event.Deleted {
		if err := e.deleteAll(ctx, event.ID); err != nil {
			return err
		}
	} else {
		for _, v := range event.Versions {
			if err := e.ingestVersion(ctx, event.ID, v); err != nil {
				return err
			}
		}
	}

	if err := e.checkpoint.Write(event.Seq); err != nil {
		return err
	}
	e.status.SetSeq(event.Seq)
	e.status.SetLength(e.store.Version())
	return nil
}

func (e *Engine) ingestVersion(ctx context.Context, id string, v domain.VersionManifest) error {
	key := domain.RecordKey(id, v.Version)

	e.status.SetPhase(domain.PhasePreGet)
	existing, err := e.store.Get(ctx, key)
	e.status.SetPhase(domain.PhasePostGet)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	record := domain.DirectRecord(domain.EdgesFromMap(v.Dependencies), domain.EdgesFromMap(v.DevDependencies))

	e.status.SetPhase(domain.PhasePreCopy)
	position, err := e.findCopy(ctx, id, e.fingerprinter.Fingerprint(record))
	e.status.SetPhase(domain.PhasePostCopy)
	if err != nil {
		return err
	}
	if position > 0 {
		record = domain.IndirectRecord(position)
	}

	e.status.SetPhase(domain.PhasePrePut)
	written, err := e.store.Put(ctx, key, record)
	e.status.SetPhase(domain.PhasePostPut)
	if err != nil {
		return err
	}

	e.status.SetLength(e.store.Version())
	e.logger.Debug("stored record", "key", key, "position", written, "same_dependencies", record.SameDependencies)
	return nil
}

// findCopy returns the position of the oldest stored version of id whose
// dependency lists match fp, or 0. Indirections are never candidates.
func (e *Engine) findCopy(ctx context.Context, id string, fp domain.Fingerprint) (uint64, error) {
	var candidates []*domain.Node

	it := e.store.Iterate(ctx, id)
	for {
		node, err := it.Next(ctx)
		if err != nil {
			return 0, err
		}
		if node == nil {
			break
		}
		if node.Record.IsIndirect() {
			continue
		}
		candidates = append(candidates, node)
	}

	slices.SortFunc(candidates, func(a, b *domain.Node) int {
		switch {
		case a.Position < b.Position:
			return -1
		case a.Position > b.Position:
			return 1
		default:
			return 0
		}
	})

	for _, node := range candidates {
		if e.fingerprinter.Fingerprint(node.Record).Equal(fp) {
			return node.Position, nil
		}
	}
	return 0, nil
}

// deleteAll tombstones every live key of the package, one at a time.
func (e *Engine) deleteAll(ctx context.Context, id string) error {
	it := e.store.Iterate(ctx, id)
	for {
		node, err := it.Next(ctx)
		if err != nil {
			return err
		}
		if node == nil {
			return nil
		}
		if err := e.store.Delete(ctx, node.Key); err != nil {
			return err
		}
		e.logger.Debug("deleted record", "key", node.Key)
	}
}
