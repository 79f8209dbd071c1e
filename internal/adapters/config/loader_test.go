package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ims/internal/adapters/config"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), domain.ConfigFileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newLoader(t *testing.T) *config.Loader {
	t.Helper()
	ctrl := gomock.NewController(t)
	mockLogger := mocks.NewMockLogger(ctrl)
	mockLogger.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	return config.NewLoader(mockLogger)
}

func TestLoader_Load_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv(domain.DataDirEnv, "")
	t.Setenv("XDG_DATA_HOME", "/var/lib/xdg")

	cfg, err := newLoader(t).Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("/var/lib/xdg", domain.AppName), cfg.DataDir)
	assert.Equal(t, domain.DefaultRegistryURL, cfg.RegistryURL)
	assert.Equal(t, time.Second, cfg.RetryDelay)
	assert.Equal(t, 5*time.Second, cfg.StatusInterval)
	assert.Equal(t, domain.DefaultPrefetchCap, cfg.PrefetchCap)
	assert.Empty(t, cfg.Listen)
	assert.Empty(t, cfg.Peers)
}

func TestLoader_Load_File(t *testing.T) {
	t.Setenv(domain.DataDirEnv, "")
	path := writeConfig(t, `
data_dir: state
registry_url: http://localhost:5984/registry
retry_delay: 250ms
status_interval: 1m
listen: 127.0.0.1:7420
peers:
  - 10.0.0.2:7420
  - 10.0.0.3:7420
  - 10.0.0.2:7420
prefetch_cap: 512
`)

	cfg, err := newLoader(t).Load(path)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(path), "state"), cfg.DataDir)
	assert.Equal(t, "http://localhost:5984/registry", cfg.RegistryURL)
	assert.Equal(t, 250*time.Millisecond, cfg.RetryDelay)
	assert.Equal(t, time.Minute, cfg.StatusInterval)
	assert.Equal(t, "127.0.0.1:7420", cfg.Listen)
	assert.Equal(t, []string{"10.0.0.2:7420", "10.0.0.3:7420"}, cfg.Peers)
	assert.Equal(t, 512, cfg.PrefetchCap)
}

func TestLoader_Load_EmptyFile(t *testing.T) {
	t.Setenv(domain.DataDirEnv, "")
	cfg, err := newLoader(t).Load(writeConfig(t, ""))
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultRegistryURL, cfg.RegistryURL)
}

func TestLoader_Load_EnvOverridesDataDir(t *testing.T) {
	t.Setenv(domain.DataDirEnv, "/srv/ims")
	cfg, err := newLoader(t).Load(writeConfig(t, "data_dir: /tmp/elsewhere\n"))
	require.NoError(t, err)
	assert.Equal(t, "/srv/ims", cfg.DataDir)
}

func TestLoader_Load_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    error
	}{
		{"malformed yaml", "peers: [", domain.ErrConfigParseFailed},
		{"unknown field", "prefetch: 3\n", domain.ErrConfigParseFailed},
		{"bad duration", "retry_delay: soon\n", domain.ErrConfigParseFailed},
		{"negative delay", "retry_delay: -1s\n", domain.ErrInvalidConfig},
		{"cap too large", "prefetch_cap: 9000\n", domain.ErrInvalidConfig},
		{"bad url", "registry_url: ftp://mirror\n", domain.ErrInvalidConfig},
		{"empty peer", "peers: ['']\n", domain.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newLoader(t).Load(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLoader_Load_ReadError(t *testing.T) {
	_, err := newLoader(t).Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConfigReadFailed)
}
