// Package prefetch exchanges resolution hints with peers so that log entries
// are replicated before a resolution asks for them.
//
// All nodes share one log written by a single node; a position names the same
// entry everywhere. A resolving node announces what it is about to resolve,
// peers answer with the positions that resolution reads, and the node pulls
// the entries it lacks from the peer that answered.
package prefetch

import (
	"context"
	"sync"

	"go.trai.ch/ims/internal/adapters/wire"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
)

// Extension channels.
const (
	ResolveChannel   = "ims/resolve"
	PositionsChannel = "ims/seqs"
	GetChannel       = "ims/get"
	EntriesChannel   = "ims/entries"
)

// MaxPositions bounds how many positions of one message are acted upon.
const MaxPositions = 8192

// Requester pulls log entries from a peer.
type Requester interface {
	Request(ctx context.Context, peer ports.Peer, positions []uint64) error
}

var (
	_ ports.Announcer      = (*Broadcaster)(nil)
	_ ports.MessageHandler = (*Handler)(nil)
)

// Broadcaster announces resolutions to every connected peer.
type Broadcaster struct {
	peers  ports.PeerSet
	logger ports.Logger
}

// NewBroadcaster creates a Broadcaster sending to peers.
func NewBroadcaster(peers ports.PeerSet, logger ports.Logger) *Broadcaster {
	return &Broadcaster{peers: peers, logger: logger}
}

// Announce sends req to all peers. Failures are logged and otherwise ignored.
func (b *Broadcaster) Announce(ctx context.Context, req domain.ResolveRequest) {
	payload := wire.EncodeResolveRequest(req)
	for _, p := range b.peers.Peers() {
		if err := p.Send(ctx, ResolveChannel, payload); err != nil {
			b.logger.Debug("announce failed", "peer", p.ID(), "package", req.Name, "error", err)
		}
	}
}

// Handler answers resolve requests from peers and prefetches the positions
// they send back.
type Handler struct {
	finder    ports.PositionFinder
	store     ports.Store
	requester Requester
	logger    ports.Logger
	limit     int

	wg sync.WaitGroup
}

// NewHandler creates a Handler. Replies carry at most limit positions and at
// most limit positions of an incoming reply are fetched; a limit outside
// 1..MaxPositions means MaxPositions.
func NewHandler(
	finder ports.PositionFinder,
	store ports.Store,
	requester Requester,
	logger ports.Logger,
	limit int,
) *Handler {
	if limit <= 0 || limit > MaxPositions {
		limit = MaxPositions
	}
	return &Handler{finder: finder, store: store, requester: requester, logger: logger, limit: limit}
}

// HandleMessage dispatches one extension message. Work runs in the background
// so the peer's receive loop is never blocked. Malformed messages are dropped.
func (h *Handler) HandleMessage(ctx context.Context, peer ports.Peer, channel string, payload []byte) {
	switch channel {
	case ResolveChannel:
		req, err := wire.DecodeResolveRequest(payload)
		if err != nil {
			h.logger.Debug("dropping resolve request", "peer", peer.ID(), "error", err)
			return
		}
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.answer(ctx, peer, req)
		}()

	case PositionsChannel:
		positions, err := wire.DecodeResolveResult(payload)
		if err != nil {
			h.logger.Debug("dropping positions", "peer", peer.ID(), "error", err)
			return
		}
		if len(positions) > h.limit {
			positions = positions[:h.limit]
		}
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			h.fetch(ctx, peer, positions)
		}()
	}
}

// Wait blocks until all background work has finished.
func (h *Handler) Wait() {
	h.wg.Wait()
}

func (h *Handler) answer(ctx context.Context, peer ports.Peer, req domain.ResolveRequest) {
	rng := req.Range
	if rng == "" {
		rng = "*"
	}

	positions, err := h.finder.Positions(ctx, req.Name, rng, req.Production)
	if err != nil {
		h.logger.Debug("positions lookup failed", "peer", peer.ID(), "package", req.Name, "error", err)
		return
	}

	missing := make([]uint64, 0, len(positions))
	for _, position := range positions {
		if len(missing) == h.limit {
			break
		}
		if peer.RemoteHas(position) {
			continue
		}
		missing = append(missing, position)
	}
	if len(missing) == 0 {
		return
	}

	if err := peer.Send(ctx, PositionsChannel, wire.EncodeResolveResult(missing)); err != nil {
		h.logger.Debug("sending positions failed", "peer", peer.ID(), "error", err)
	}
}

// fetch asks peer, which just listed these positions, for the ones not held.
func (h *Handler) fetch(ctx context.Context, peer ports.Peer, positions []uint64) {
	missing := make([]uint64, 0, len(positions))
	for _, position := range positions {
		if !h.store.Has(position) {
			missing = append(missing, position)
		}
	}
	if len(missing) == 0 {
		return
	}

	if err := h.requester.Request(ctx, peer, missing); err != nil {
		h.logger.Debug("prefetch request failed", "peer", peer.ID(), "positions", len(missing), "error", err)
	}
}
