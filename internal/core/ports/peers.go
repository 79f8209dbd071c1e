package ports

import (
	"context"

	"go.trai.ch/ims/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=peers.go -destination=mocks/mock_peers.go -package=mocks

// Peer is a connected remote index node.
type Peer interface {
	// ID identifies the peer in logs.
	ID() string

	// Send delivers payload on the named channel.
	Send(ctx context.Context, channel string, payload []byte) error

	// RemoteHas reports whether the peer advertised the entry at position.
	RemoteHas(position uint64) bool
}

// PeerSet lists the currently connected peers.
type PeerSet interface {
	Peers() []Peer
}

// MessageHandler receives extension messages from peers.
type MessageHandler interface {
	HandleMessage(ctx context.Context, peer Peer, channel string, payload []byte)
}

// Announcer tells peers which resolution is about to start.
type Announcer interface {
	Announce(ctx context.Context, req domain.ResolveRequest)
}

// PositionFinder computes the log positions needed to resolve a package.
type PositionFinder interface {
	Positions(ctx context.Context, name, rng string, production bool) ([]uint64, error)
}
