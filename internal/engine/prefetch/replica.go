package prefetch

import (
	"context"
	"sync"
	"time"

	"go.trai.ch/ims/internal/adapters/wire"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultFetchTimeout bounds how long a read waits for a peer to deliver an entry.
const DefaultFetchTimeout = 10 * time.Second

// entriesPerMessage bounds the size of one entries reply.
const entriesPerMessage = 256

var (
	_ ports.Store          = (*Replica)(nil)
	_ ports.MessageHandler = (*Replica)(nil)
	_ Requester            = (*Replica)(nil)
)

// Replica is a Store that pulls missing entries from peers on demand.
// It serves the get channel for other nodes and imports what arrives on the
// entries channel.
type Replica struct {
	ports.Store

	peers   ports.PeerSet
	logger  ports.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending map[uint64]*pendingFetch

	wg sync.WaitGroup
}

type pendingFetch struct {
	done    chan struct{}
	waiters int
}

// NewReplica wraps store. A timeout of zero means DefaultFetchTimeout.
func NewReplica(store ports.Store, peers ports.PeerSet, logger ports.Logger, timeout time.Duration) *Replica {
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &Replica{
		Store:   store,
		peers:   peers,
		logger:  logger,
		timeout: timeout,
		pending: make(map[uint64]*pendingFetch),
	}
}

// ReadByPosition returns the entry at position, fetching it from a peer first
// when it is not held locally.
func (r *Replica) ReadByPosition(ctx context.Context, position uint64) (*domain.Node, error) {
	if !r.Store.Has(position) {
		if err := r.Fetch(ctx, position); err != nil {
			return nil, err
		}
	}
	return r.Store.ReadByPosition(ctx, position)
}

// Fetch blocks until the entry at position is held locally. It fails with
// domain.ErrPositionOutOfRange when no connected peer advertises the position.
func (r *Replica) Fetch(ctx context.Context, position uint64) error {
	done, release := r.await(position)
	defer release()

	if r.Store.Has(position) {
		return nil
	}

	requested := false
	for _, p := range r.peers.Peers() {
		if !p.RemoteHas(position) {
			continue
		}
		if err := r.Request(ctx, p, []uint64{position}); err != nil {
			r.logger.Debug("entry request failed", "peer", p.ID(), "position", position, "error", err)
			continue
		}
		requested = true
		break
	}
	if !requested {
		return zerr.With(zerr.Wrap(domain.ErrPositionOutOfRange, "no peer advertises position"), "position", position)
	}

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return zerr.With(zerr.Wrap(domain.ErrFetchTimeout, "no peer delivered the entry"), "position", position)
	}
}

// Request asks peer for the entries at positions. The entries arrive later on
// the entries channel.
func (r *Replica) Request(ctx context.Context, peer ports.Peer, positions []uint64) error {
	return peer.Send(ctx, GetChannel, wire.EncodeGetRequest(positions))
}

// HandleMessage serves entry requests and imports delivered entries.
func (r *Replica) HandleMessage(ctx context.Context, peer ports.Peer, channel string, payload []byte) {
	switch channel {
	case GetChannel:
		positions, err := wire.DecodeGetRequest(payload)
		if err != nil {
			r.logger.Debug("dropping entry request", "peer", peer.ID(), "error", err)
			return
		}
		if len(positions) > MaxPositions {
			positions = positions[:MaxPositions]
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.serve(ctx, peer, positions)
		}()

	case EntriesChannel:
		nodes, err := wire.DecodeEntries(payload)
		if err != nil {
			r.logger.Debug("dropping entries", "peer", peer.ID(), "error", err)
			return
		}
		r.importEntries(ctx, peer, nodes)
	}
}

// Wait blocks until all entry requests being served have finished.
func (r *Replica) Wait() {
	r.wg.Wait()
}

// serve sends the requested entries this node holds. Positions it does not
// hold are left out.
func (r *Replica) serve(ctx context.Context, peer ports.Peer, positions []uint64) {
	batch := make([]*domain.Node, 0, min(len(positions), entriesPerMessage))
	flush := func() bool {
		if len(batch) == 0 {
			return true
		}
		if err := peer.Send(ctx, EntriesChannel, wire.EncodeEntries(batch)); err != nil {
			r.logger.Debug("sending entries failed", "peer", peer.ID(), "error", err)
			return false
		}
		batch = batch[:0]
		return true
	}

	for _, position := range positions {
		if !r.Store.Has(position) {
			continue
		}
		node, err := r.Store.ReadByPosition(ctx, position)
		if err != nil {
			r.logger.Debug("reading entry failed", "position", position, "error", err)
			continue
		}
		batch = append(batch, node)
		if len(batch) == entriesPerMessage && !flush() {
			return
		}
	}
	flush()
}

func (r *Replica) importEntries(ctx context.Context, peer ports.Peer, nodes []*domain.Node) {
	for _, node := range nodes {
		if err := r.Store.Import(ctx, node); err != nil {
			r.logger.Warn("rejected entry from peer", "peer", peer.ID(), "position", node.Position, "error", err.Error())
			continue
		}
		r.arrived(node.Position)
	}
}

func (r *Replica) await(position uint64) (<-chan struct{}, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pf, ok := r.pending[position]
	if !ok {
		pf = &pendingFetch{done: make(chan struct{})}
		r.pending[position] = pf
	}
	pf.waiters++

	return pf.done, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		pf.waiters--
		if pf.waiters == 0 && r.pending[position] == pf {
			delete(r.pending, position)
		}
	}
}

func (r *Replica) arrived(position uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if pf, ok := r.pending[position]; ok {
		close(pf.done)
		delete(r.pending, position)
	}
}
