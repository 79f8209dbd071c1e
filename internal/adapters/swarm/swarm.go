// Package swarm links index nodes over grpc streams carrying named extension frames.
package swarm

import (
	"context"
	"errors"
	"io"
	"net"
	"slices"
	"strings"
	"sync"

	"go.trai.ch/ims/internal/adapters/wire"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/zerr"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	grpcpeer "google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

const (
	serviceName    = "ims.swarm.v1.Swarm"
	exchangeMethod = "/" + serviceName + "/Exchange"
)

// ExchangeServer is the server side of the Swarm service.
type ExchangeServer interface {
	Exchange(stream grpc.ServerStream) error
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ExchangeServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Exchange",
			Handler:       exchangeHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "ims/swarm/v1/swarm.proto",
}

func exchangeHandler(srv any, stream grpc.ServerStream) error {
	return srv.(ExchangeServer).Exchange(stream)
}

// LengthSource reports how many leading entries of the shared log are held
// locally. Peers read it as "every position up to here is available".
type LengthSource interface {
	Contiguous() uint64
}

var (
	_ ports.PeerSet  = (*Swarm)(nil)
	_ ExchangeServer = (*Swarm)(nil)
)

// Swarm holds the open peer streams of this node and dispatches incoming
// frames to the handler registered for their channel.
type Swarm struct {
	logger ports.Logger
	source LengthSource

	mu       sync.RWMutex
	handlers map[string]ports.MessageHandler
	peers    map[*peer]struct{}

	wg sync.WaitGroup
}

// New creates a swarm advertising the length reported by source.
func New(logger ports.Logger, source LengthSource) *Swarm {
	return &Swarm{
		logger:   logger,
		source:   source,
		handlers: make(map[string]ports.MessageHandler),
		peers:    make(map[*peer]struct{}),
	}
}

// Handle registers h for frames arriving on channel.
func (s *Swarm) Handle(channel string, h ports.MessageHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[channel] = h
}

// Peers returns the connected peers ordered by id.
func (s *Swarm) Peers() []ports.Peer {
	list := s.snapshot()
	out := make([]ports.Peer, len(list))
	for i, p := range list {
		out[i] = p
	}
	return out
}

// Advertise sends the current log length to every connected peer.
func (s *Swarm) Advertise() {
	length := s.source.Contiguous()
	for _, p := range s.snapshot() {
		if err := p.advertise(length); err != nil {
			s.logger.Debug("advertise failed", "peer", p.id, "error", err)
		}
	}
}

func (s *Swarm) snapshot() []*peer {
	s.mu.RLock()
	list := make([]*peer, 0, len(s.peers))
	for p := range s.peers {
		list = append(list, p)
	}
	s.mu.RUnlock()

	slices.SortFunc(list, func(a, b *peer) int { return strings.Compare(a.id, b.id) })
	return list
}

// Listen binds addr and serves peers until ctx is cancelled.
func (s *Swarm) Listen(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrListenFailed, err), "addr", addr)
	}
	return s.Serve(ctx, lis)
}

// Serve accepts peer streams on lis until ctx is cancelled.
func (s *Swarm) Serve(ctx context.Context, lis net.Listener) error {
	server := grpc.NewServer(grpc.ForceServerCodec(frameCodec{}))
	server.RegisterService(&serviceDesc, s)

	s.logger.Info("accepting peers", "addr", lis.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		server.Stop()
		return nil
	case err := <-errCh:
		return zerr.With(errors.Join(domain.ErrListenFailed, err), "addr", lis.Addr().String())
	}
}

// Exchange implements ExchangeServer.
func (s *Swarm) Exchange(stream grpc.ServerStream) error {
	ctx := stream.Context()

	id := "unknown"
	if info, ok := grpcpeer.FromContext(ctx); ok && info.Addr != nil {
		id = info.Addr.String()
	}

	p := newPeer(id, stream)
	s.add(p)
	if err := p.advertise(s.source.Contiguous()); err != nil {
		s.remove(p)
		return err
	}
	return s.receive(ctx, p)
}

// Connect dials addr and keeps the exchange open until ctx is cancelled or
// the remote side goes away. It returns once the stream is established.
func (s *Swarm) Connect(ctx context.Context, addr string, opts ...grpc.DialOption) error {
	dialOpts := append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithDefaultCallOptions(grpc.ForceCodec(frameCodec{})),
	}, opts...)

	conn, err := grpc.NewClient(addr, dialOpts...)
	if err != nil {
		return zerr.With(errors.Join(domain.ErrPeerConnectFailed, err), "addr", addr)
	}

	clientStream, err := conn.NewStream(ctx, &serviceDesc.Streams[0], exchangeMethod)
	if err != nil {
		_ = conn.Close()
		return zerr.With(errors.Join(domain.ErrPeerConnectFailed, err), "addr", addr)
	}

	p := newPeer(addr, clientStream)
	s.add(p)
	if err := p.advertise(s.source.Contiguous()); err != nil {
		s.remove(p)
		_ = conn.Close()
		return err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			_ = conn.Close()
		}()
		if err := s.receive(ctx, p); err != nil {
			s.logger.Debug("peer stream closed", "peer", addr, "error", err)
		}
		_ = clientStream.CloseSend()
	}()
	return nil
}

// Wait blocks until every stream opened by Connect has ended.
func (s *Swarm) Wait() {
	s.wg.Wait()
}

// receive reads frames from p until the stream ends, then drops p.
func (s *Swarm) receive(ctx context.Context, p *peer) error {
	defer s.remove(p)

	s.logger.Debug("peer connected", "peer", p.id)

	for {
		var raw rawFrame
		if err := p.stream.RecvMsg(&raw); err != nil {
			if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled {
				return nil
			}
			return err
		}

		var f wire.Frame
		if err := wire.DecodeFrame(raw.data, &f); err != nil {
			s.logger.Debug("dropping malformed frame", "peer", p.id, "error", err)
			continue
		}

		if f.Have > 0 {
			p.observe(f.Have)
		}
		if f.Channel == "" {
			continue
		}

		h := s.handler(f.Channel)
		if h == nil {
			s.logger.Debug("no handler for channel", "peer", p.id, "channel", f.Channel)
			continue
		}
		h.HandleMessage(ctx, p, f.Channel, f.Payload)
	}
}

func (s *Swarm) handler(channel string) ports.MessageHandler {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.handlers[channel]
}

func (s *Swarm) add(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.peers[p] = struct{}{}
}

func (s *Swarm) remove(p *peer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.peers, p)
}
