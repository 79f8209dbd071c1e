package ingest_test

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ims/internal/adapters/checkpoint"
	"go.trai.ch/ims/internal/adapters/fingerprint"
	"go.trai.ch/ims/internal/adapters/logger"
	"go.trai.ch/ims/internal/adapters/logstore"
	"go.trai.ch/ims/internal/adapters/telemetry"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/ims/internal/core/ports/mocks"
	"go.trai.ch/ims/internal/engine/ingest"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	store      *logstore.Store
	checkpoint *checkpoint.File
	status     *domain.SyncStatus
	engine     *ingest.Engine
}

func quietLogger() ports.Logger {
	l := logger.New().(*logger.Logger)
	l.SetOutput(io.Discard)
	return l
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()

	store, err := logstore.Open(t.Context(), domain.LogPath(dir))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cp := checkpoint.NewFile(domain.SeqPath(dir))
	status := domain.NewSyncStatus()
	engine := ingest.New(store, fingerprint.NewHasher(), cp, status, telemetry.NewNoOpTracer(), quietLogger())
	return &fixture{store: store, checkpoint: cp, status: status, engine: engine}
}

func (f *fixture) record(t *testing.T, key string) *domain.Node {
	t.Helper()
	node, err := f.store.Get(t.Context(), key)
	require.NoError(t, err)
	require.NotNil(t, node, "missing %s", key)
	return node
}

func deps(pairs ...string) map[string]any {
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m
}

func TestEngine_IngestDeduplicates(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	withGit := deps("a", "^1.0.0")
	withGit["local"] = map[string]any{"url": "git+ssh://example.com/local.git"}

	event := domain.ChangeEvent{
		Seq: 10,
		ID:  "pkg",
		Versions: []domain.VersionManifest{
			{Version: "1.0.0", Dependencies: deps("a", "^1.0.0")},
			{Version: "1.0.1", Dependencies: deps("a", "^1.0.0")},
			{Version: "1.0.2", Dependencies: deps("b", "^2.0.0")},
			{Version: "1.0.3", Dependencies: withGit},
			{Version: "1.0.4", DevDependencies: deps("a", "^1.0.0")},
		},
	}
	require.NoError(t, f.engine.Ingest(t.Context(), event))

	first := f.record(t, "pkg/1.0.0")
	assert.Equal(t, uint64(1), first.Position)
	assert.Equal(t, []domain.Dependency{{Name: "a", Range: "^1.0.0"}}, first.Record.Dependencies)

	assert.Equal(t, domain.IndirectRecord(1), f.record(t, "pkg/1.0.1").Record)
	assert.False(t, f.record(t, "pkg/1.0.2").Record.IsIndirect())
	assert.Equal(t, domain.IndirectRecord(1), f.record(t, "pkg/1.0.3").Record)

	dev := f.record(t, "pkg/1.0.4").Record
	assert.False(t, dev.IsIndirect(), "dev dependencies are not regular dependencies")
	assert.Equal(t, []domain.Dependency{{Name: "a", Range: "^1.0.0"}}, dev.DevDependencies)

	seq, err := f.checkpoint.Read()
	require.NoError(t, err)
	assert.Equal(t, uint64(10), seq)

	snap := f.status.Snapshot()
	assert.Equal(t, uint64(10), snap.Seq)
	assert.Equal(t, uint64(5), snap.Length)
	assert.Equal(t, domain.PhasePostPut, snap.Phase)
}

func TestEngine_IngestIsIdempotent(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	event := domain.ChangeEvent{
		Seq: 3,
		ID:  "pkg",
		Versions: []domain.VersionManifest{
			{Version: "1.0.0", Dependencies: deps("a", "1")},
			{Version: "2.0.0"},
		},
	}
	require.NoError(t, f.engine.Ingest(t.Context(), event))
	require.Equal(t, uint64(2), f.store.Version())

	require.NoError(t, f.engine.Ingest(t.Context(), event))
	assert.Equal(t, uint64(2), f.store.Version())
}

func TestEngine_LaterEventsReuseOldestMatch(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.NoError(t, f.engine.Ingest(t.Context(), domain.ChangeEvent{
		Seq: 1,
		ID:  "pkg",
		Versions: []domain.VersionManifest{
			{Version: "2.0.0", Dependencies: deps("b", "^2.0.0")},
			{Version: "1.0.0", Dependencies: deps("a", "^1.0.0")},
		},
	}))
	require.NoError(t, f.engine.Ingest(t.Context(), domain.ChangeEvent{
		Seq: 2,
		ID:  "pkg",
		Versions: []domain.VersionManifest{
			{Version: "3.0.0", Dependencies: deps("b", "^2.0.0")},
			{Version: "3.1.0", Dependencies: deps("a", "^1.0.0")},
		},
	}))

	assert.Equal(t, domain.IndirectRecord(1), f.record(t, "pkg/3.0.0").Record)
	assert.Equal(t, domain.IndirectRecord(2), f.record(t, "pkg/3.1.0").Record)
}

func TestEngine_ScopedPackages(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.NoError(t, f.engine.Ingest(t.Context(), domain.ChangeEvent{
		Seq: 1,
		ID:  "@scope/pkg",
		Versions: []domain.VersionManifest{
			{Version: "1.0.0", Dependencies: deps("a", "1")},
			{Version: "1.0.1", Dependencies: deps("a", "1")},
		},
	}))

	assert.Equal(t, domain.IndirectRecord(1), f.record(t, "@scope/pkg/1.0.1").Record)
}

func TestEngine_DeleteTombstonesPackage(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := t.Context()

	require.NoError(t, f.engine.Ingest(ctx, domain.ChangeEvent{
		Seq:      1,
		ID:       "pkg",
		Versions: []domain.VersionManifest{{Version: "1.0.0"}, {Version: "1.0.1"}},
	}))
	require.NoError(t, f.engine.Ingest(ctx, domain.ChangeEvent{
		Seq:      2,
		ID:       "pkg-extra",
		Versions: []domain.VersionManifest{{Version: "1.0.0"}},
	}))

	require.NoError(t, f.engine.Ingest(ctx, domain.ChangeEvent{Seq: 3, ID: "pkg", Deleted: true}))

	node, err := f.store.Get(ctx, "pkg/1.0.0")
	require.NoError(t, err)
	assert.Nil(t, node)
	node, err = f.store.Get(ctx, "pkg/1.0.1")
	require.NoError(t, err)
	assert.Nil(t, node)
	f.record(t, "pkg-extra/1.0.0")

	assert.Equal(t, uint64(5), f.store.Version())
	seq, err := f.checkpoint.Read()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), seq)
}

type emptyIterator struct{}

func (emptyIterator) Next(context.Context) (*domain.Node, error) { return nil, nil }

func TestEngine_WriteFailureKeepsCheckpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	store := mocks.NewMockStore(ctrl)
	cp := mocks.NewMockCheckpointStore(ctrl)
	tracer := mocks.NewMockTracer(ctrl)
	span := mocks.NewMockSpan(ctrl)

	diskFull := errors.New("disk full")
	store.EXPECT().Get(gomock.Any(), "pkg/1.0.0").Return(nil, nil)
	store.EXPECT().Iterate(gomock.Any(), "pkg").Return(emptyIterator{})
	store.EXPECT().Put(gomock.Any(), "pkg/1.0.0", gomock.Any()).Return(uint64(0), diskFull)

	tracer.EXPECT().Start(gomock.Any(), "ingest.event").
		DoAndReturn(func(ctx context.Context, _ string) (context.Context, ports.Span) { return ctx, span })
	span.EXPECT().SetAttribute(gomock.Any(), gomock.Any()).AnyTimes()
	span.EXPECT().RecordError(diskFull)
	span.EXPECT().End()

	engine := ingest.New(store, fingerprint.NewHasher(), cp, domain.NewSyncStatus(), tracer, quietLogger())
	err := engine.Ingest(t.Context(), domain.ChangeEvent{
		Seq:      4,
		ID:       "pkg",
		Versions: []domain.VersionManifest{{Version: "1.0.0"}, {Version: "1.0.1"}},
	})
	require.ErrorIs(t, err, diskFull)
}

func TestEngine_DeleteFailureKeepsCheckpoint(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)

	store := mocks.NewMockStore(ctrl)
	it := mocks.NewMockIterator(ctrl)
	cp := mocks.NewMockCheckpointStore(ctrl)

	boom := errors.New("boom")
	store.EXPECT().Iterate(gomock.Any(), "pkg").Return(it)
	it.EXPECT().Next(gomock.Any()).Return(&domain.Node{Key: "pkg/1.0.0", Position: 1}, nil)
	store.EXPECT().Delete(gomock.Any(), "pkg/1.0.0").Return(boom)

	engine := ingest.New(store, fingerprint.NewHasher(), cp, domain.NewSyncStatus(), telemetry.NewNoOpTracer(), quietLogger())
	err := engine.Ingest(t.Context(), domain.ChangeEvent{Seq: 4, ID: "pkg", Deleted: true})
	require.ErrorIs(t, err, boom)
}

func TestEngine_CheckpointFailureSurfaces(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, checkpoint.NewFile(blocker).Write(1))
	cp := checkpoint.NewFile(filepath.Join(blocker, "seq"))

	engine := ingest.New(f.store, fingerprint.NewHasher(), cp, f.status, telemetry.NewNoOpTracer(), quietLogger())
	err := engine.Ingest(t.Context(), domain.ChangeEvent{Seq: 2, ID: "pkg"})
	require.ErrorIs(t, err, domain.ErrCheckpointWriteFailed)
	assert.Equal(t, uint64(0), f.status.Snapshot().Seq)
}
