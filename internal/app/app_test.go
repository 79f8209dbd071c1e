package app_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ims/internal/adapters/fingerprint"
	"go.trai.ch/ims/internal/adapters/logger"
	"go.trai.ch/ims/internal/adapters/logstore"
	"go.trai.ch/ims/internal/adapters/telemetry"
	"go.trai.ch/ims/internal/app"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/ims/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func quietLogger() ports.Logger {
	l := logger.New().(*logger.Logger)
	l.SetOutput(io.Discard)
	return l
}

func newApp(t *testing.T, cfg *domain.Config) *app.App {
	t.Helper()
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("ims.yaml").Return(cfg, nil).AnyTimes()
	return app.New(loader, quietLogger(), telemetry.NewNoOpTracer(), fingerprint.NewHasher())
}

func testConfig(t *testing.T) *domain.Config {
	t.Helper()
	return &domain.Config{
		DataDir:        t.TempDir(),
		RegistryURL:    domain.DefaultRegistryURL,
		RetryDelay:     time.Millisecond,
		StatusInterval: time.Hour,
		PrefetchCap:    domain.DefaultPrefetchCap,
	}
}

func seed(t *testing.T, dir string, records map[string]domain.Record) {
	t.Helper()
	store, err := logstore.Open(t.Context(), domain.LogPath(dir))
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	for _, key := range []string{"a/1.0.0", "a/1.1.0", "b/1.0.0", "c/1.0.0"} {
		record, ok := records[key]
		if !ok {
			continue
		}
		_, err := store.Put(t.Context(), key, record)
		require.NoError(t, err)
	}
}

func TestApp_SyncOnceThenGet(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0", r.URL.Query().Get("since"))
		_, _ = fmt.Fprintln(w, `{"seq":1,"id":"a","doc":{"versions":{"1.0.0":{"dependencies":{"b":"^1.0.0"}},"1.1.0":{"dependencies":{"b":"^1.0.0"}}}}}`)
		_, _ = fmt.Fprintln(w, `{"seq":2,"id":"b","doc":{"versions":{"1.0.0":{}}}}`)
	}))
	defer srv.Close()

	cfg := testConfig(t)
	cfg.RegistryURL = srv.URL
	a := newApp(t, cfg)

	require.NoError(t, a.Sync(t.Context(), app.SyncOptions{ConfigPath: "ims.yaml", Once: true}))

	data, err := os.ReadFile(domain.SeqPath(cfg.DataDir))
	require.NoError(t, err)
	assert.Equal(t, "2", string(data))

	node, err := a.Get(t.Context(), app.GetOptions{ConfigPath: "ims.yaml", Name: "a", Range: "^1.0.0"})
	require.NoError(t, err)
	assert.Equal(t, "a/1.1.0", node.Key)
	assert.Equal(t, []domain.Dependency{{Name: "b", Range: "^1.0.0"}}, node.Record.Dependencies)
}

func TestApp_ResolveName(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	seed(t, cfg.DataDir, map[string]domain.Record{
		"a/1.0.0": domain.DirectRecord([]domain.Dependency{{Name: "b", Range: "*"}}, nil),
		"b/1.0.0": domain.DirectRecord(nil, nil),
	})

	tree, err := newApp(t, cfg).Resolve(t.Context(), app.ResolveOptions{ConfigPath: "ims.yaml", Target: "a"})
	require.NoError(t, err)
	assert.Equal(t, 2, tree.Len())

	root := tree.Node(tree.Root())
	assert.Equal(t, "1.0.0", root.Version)
	assert.Contains(t, root.Deps, "b")
}

func TestApp_ResolveManifest(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	seed(t, cfg.DataDir, map[string]domain.Record{
		"b/1.0.0": domain.DirectRecord(nil, nil),
		"c/1.0.0": domain.DirectRecord(nil, nil),
	})

	manifest := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(manifest, []byte(`{
  "name": "local",
  "version": "0.1.0",
  "dependencies": {"b": "^1.0.0"},
  "devDependencies": {"c": "*"}
}`), 0o600))

	tree, err := newApp(t, cfg).Resolve(t.Context(), app.ResolveOptions{
		ConfigPath: "ims.yaml",
		Target:     manifest,
		Production: true,
	})
	require.NoError(t, err)

	root := tree.Node(tree.Root())
	assert.Equal(t, "local", root.Name)
	assert.Equal(t, "0.1.0", root.Version)
	assert.Len(t, root.Deps, 1)
	assert.Contains(t, root.Deps, "b")
}

func TestApp_ResolveErrors(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	a := newApp(t, cfg)

	_, err := a.Resolve(t.Context(), app.ResolveOptions{ConfigPath: "ims.yaml", Target: "missing"})
	require.ErrorIs(t, err, domain.ErrPackageNotFound)

	_, err = a.Resolve(t.Context(), app.ResolveOptions{ConfigPath: "ims.yaml", Target: "nope/package.json"})
	require.ErrorIs(t, err, domain.ErrManifestReadFailed)

	bad := filepath.Join(t.TempDir(), "package.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = a.Resolve(t.Context(), app.ResolveOptions{ConfigPath: "ims.yaml", Target: bad})
	require.ErrorIs(t, err, domain.ErrManifestReadFailed)
}

func TestApp_ConfigError(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	loader := mocks.NewMockConfigLoader(ctrl)
	loader.EXPECT().Load("broken.yaml").Return(nil, domain.ErrConfigParseFailed)

	a := app.New(loader, quietLogger(), telemetry.NewNoOpTracer(), fingerprint.NewHasher())
	_, err := a.Get(t.Context(), app.GetOptions{ConfigPath: "broken.yaml", Name: "a"})
	require.ErrorIs(t, err, domain.ErrConfigParseFailed)
}

func TestApp_ServeStopsOnCancel(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Listen = "127.0.0.1:0"
	cfg.Peers = []string{"127.0.0.1:1"}
	a := newApp(t, cfg)

	ctx, cancel := context.WithTimeout(t.Context(), 200*time.Millisecond)
	defer cancel()

	require.NoError(t, a.Serve(ctx, app.ServeOptions{ConfigPath: "ims.yaml"}))
}
