package swarm

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"go.trai.ch/ims/internal/adapters/wire"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/zerr"
)

// stream is the part of grpc.ServerStream and grpc.ClientStream a peer uses.
type stream interface {
	SendMsg(m any) error
	RecvMsg(m any) error
}

var _ ports.Peer = (*peer)(nil)

// peer is one open exchange stream. Sends are serialized; receiving happens
// on the swarm's loop for this peer.
type peer struct {
	id     string
	stream stream

	sendMu sync.Mutex
	have   atomic.Uint64
}

func newPeer(id string, s stream) *peer {
	return &peer{id: id, stream: s}
}

func (p *peer) ID() string {
	return p.id
}

// Send delivers payload on channel.
func (p *peer) Send(ctx context.Context, channel string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.send(&wire.Frame{Channel: channel, Payload: payload})
}

// RemoteHas reports whether the peer advertised a log covering pos.
func (p *peer) RemoteHas(pos uint64) bool {
	return pos >= 1 && pos <= p.have.Load()
}

func (p *peer) advertise(length uint64) error {
	if length == 0 {
		return nil
	}
	return p.send(&wire.Frame{Have: length})
}

// observe raises the advertised length. Lengths never shrink.
func (p *peer) observe(length uint64) {
	for {
		cur := p.have.Load()
		if length <= cur || p.have.CompareAndSwap(cur, length) {
			return
		}
	}
}

func (p *peer) send(f *wire.Frame) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	if err := p.stream.SendMsg(f); err != nil {
		return zerr.With(errors.Join(domain.ErrPeerSendFailed, err), "peer", p.id)
	}
	return nil
}
