package prefetch_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ims/internal/adapters/logstore"
	"go.trai.ch/ims/internal/adapters/swarm"
	"go.trai.ch/ims/internal/adapters/telemetry"
	"go.trai.ch/ims/internal/adapters/wire"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports/mocks"
	"go.trai.ch/ims/internal/engine/prefetch"
	"go.trai.ch/ims/internal/engine/resolver"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"
)

// indexNode is one index node wired the way the application wires it.
type indexNode struct {
	store    *logstore.Store
	swarm    *swarm.Swarm
	replica  *prefetch.Replica
	resolver *resolver.Resolver
}

func newIndexNode(t *testing.T, store *logstore.Store) *indexNode {
	t.Helper()
	log := quietLogger()
	sw := swarm.New(log, store)
	replica := prefetch.NewReplica(store, sw, log, 5*time.Second)
	res := resolver.New(replica, prefetch.NewBroadcaster(sw, log), telemetry.NewNoOpTracer())
	handler := prefetch.NewHandler(res, replica, replica, log, 0)

	sw.Handle(prefetch.ResolveChannel, handler)
	sw.Handle(prefetch.PositionsChannel, handler)
	sw.Handle(prefetch.GetChannel, replica)
	sw.Handle(prefetch.EntriesChannel, replica)

	t.Cleanup(func() {
		sw.Wait()
		handler.Wait()
		replica.Wait()
	})
	return &indexNode{store: store, swarm: sw, replica: replica, resolver: res}
}

// serve starts n's swarm on an in-memory listener and returns the dial option
// reaching it.
func (n *indexNode) serve(t *testing.T, ctx context.Context) grpc.DialOption {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	done := make(chan error, 1)
	go func() { done <- n.swarm.Serve(ctx, lis) }()
	t.Cleanup(func() {
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})

	return grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	})
}

// connect links n to the node behind dialer and waits until the remote
// advertisement covers length entries.
func (n *indexNode) connect(t *testing.T, ctx context.Context, dialer grpc.DialOption, length uint64) {
	t.Helper()
	require.NoError(t, n.swarm.Connect(ctx, "passthrough:///bufnet", dialer))
	require.Eventually(t, func() bool {
		peers := n.swarm.Peers()
		return len(peers) == 1 && peers[0].RemoteHas(length)
	}, 5*time.Second, 10*time.Millisecond)
}

// seedWriter writes x/1.0.0 -> y ^1, x/2.0.0 sharing x/1.0.0's dependencies,
// and y/1.0.0.
func seedWriter(t *testing.T) *logstore.Store {
	t.Helper()
	store := openStore(t)
	first := put(t, store, "x/1.0.0", domain.DirectRecord([]domain.Dependency{{Name: "y", Range: "^1.0.0"}}, nil))
	put(t, store, "x/2.0.0", domain.IndirectRecord(first))
	put(t, store, "y/1.0.0", domain.Record{})
	require.Equal(t, uint64(3), store.Contiguous())
	return store
}

func TestReplication_ResolveAnnouncementPrefetches(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newIndexNode(t, seedWriter(t))
	b := newIndexNode(t, openStore(t))
	b.connect(t, ctx, a.serve(t, ctx), 3)

	_, err := b.resolver.GetLatest(ctx, "x", "*")
	require.ErrorIs(t, err, domain.ErrPackageNotFound, "nothing is replicated before the announcement")

	prefetch.NewBroadcaster(b.swarm, quietLogger()).Announce(ctx, domain.ResolveRequest{Name: "x", Range: "*"})

	require.Eventually(t, func() bool {
		node, err := b.resolver.GetLatest(ctx, "x", "*")
		return err == nil && node.Key == "x/2.0.0"
	}, 5*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return b.store.Contiguous() == 3 }, 5*time.Second, 10*time.Millisecond)

	node, err := b.resolver.GetLatest(ctx, "x", "*")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), node.Position, "positions match the writer's")
	assert.Equal(t, []domain.Dependency{{Name: "y", Range: "^1.0.0"}}, node.Record.Dependencies)

	tree, err := b.resolver.Resolve(ctx, domain.NameTarget("x"), resolver.Options{})
	require.NoError(t, err)
	root := tree.Node(tree.Root())
	assert.Equal(t, "2.0.0", root.Version)
	require.Contains(t, root.Deps, "y")
	assert.Equal(t, "1.0.0", tree.Node(root.Deps["y"]).Version)

	assert.True(t, b.store.IsReplica())
	_, err = b.store.Put(ctx, "z/1.0.0", domain.Record{})
	require.ErrorIs(t, err, domain.ErrReplicaReadOnly)
}

func TestReplication_ReadFetchesOnDemand(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a := newIndexNode(t, seedWriter(t))
	b := newIndexNode(t, openStore(t))
	b.connect(t, ctx, a.serve(t, ctx), 3)

	require.False(t, b.store.Has(3))
	node, err := b.replica.ReadByPosition(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, "y/1.0.0", node.Key)
	assert.True(t, b.store.Has(3))
	assert.False(t, b.store.Has(1))

	_, err = b.replica.ReadByPosition(ctx, 4)
	require.ErrorIs(t, err, domain.ErrPositionOutOfRange, "no peer advertises position 4")
}

func TestReplication_TruncatedReplyKeepsRootEntries(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	store := openStore(t)
	dep := put(t, store, "dep/1.0.0", domain.Record{})
	first := put(t, store, "root/1.0.0", domain.DirectRecord([]domain.Dependency{{Name: "dep", Range: "^1.0.0"}}, nil))
	second := put(t, store, "root/2.0.0", domain.IndirectRecord(first))

	res := resolver.New(store, mocks.NewMockAnnouncer(ctrl), telemetry.NewNoOpTracer())
	h := prefetch.NewHandler(res, store, &requests{}, quietLogger(), 2)

	peer := mocks.NewMockPeer(ctrl)
	peer.EXPECT().RemoteHas(gomock.Any()).Return(false).AnyTimes()
	sent := sentPositions(t, peer)

	h.HandleMessage(t.Context(), peer, prefetch.ResolveChannel, wire.EncodeResolveRequest(domain.ResolveRequest{Name: "root"}))
	h.Wait()

	require.Len(t, *sent, 1)
	assert.Equal(t, []uint64{first, second}, (*sent)[0])
	assert.NotContains(t, (*sent)[0], dep)
}
