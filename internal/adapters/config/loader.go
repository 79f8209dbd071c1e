// Package config provides the configuration loader for ims.
package config

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	defaultRetryDelay     = time.Second
	defaultStatusInterval = 5 * time.Second
)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger ports.Logger
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	return &Loader{Logger: logger}
}

// Defaults returns the configuration used when no file is present.
func Defaults() *domain.Config {
	return &domain.Config{
		DataDir:        DefaultDataDir(),
		RegistryURL:    domain.DefaultRegistryURL,
		RetryDelay:     defaultRetryDelay,
		StatusInterval: defaultStatusInterval,
		PrefetchCap:    domain.DefaultPrefetchCap,
	}
}

// DefaultDataDir resolves the directory holding the log and the checkpoint.
func DefaultDataDir() string {
	xdg.Reload()

	dataHome := xdg.DataHome
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return filepath.Join(os.TempDir(), domain.AppName)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, domain.AppName)
}

// Load reads the configuration at path. A missing file yields the defaults.
// IMS_DATA_DIR takes precedence over data_dir.
func (l *Loader) Load(path string) (*domain.Config, error) {
	file, err := l.readFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if file != nil {
		if err := apply(cfg, file, filepath.Dir(path)); err != nil {
			return nil, zerr.With(err, "path", path)
		}
	}

	if dir := os.Getenv(domain.DataDirEnv); dir != "" {
		cfg.DataDir = dir
	}
	return cfg, nil
}

func (l *Loader) readFile(path string) (*File, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if errors.Is(err, fs.ErrNotExist) {
		l.Logger.Debug("no config file, using defaults", "path", path)
		return nil, nil
	}
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrConfigReadFailed, err), "path", path)
	}

	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return nil, zerr.With(errors.Join(domain.ErrConfigParseFailed, err), "path", path)
	}
	return &file, nil
}

// apply overlays the values set in file onto cfg. Relative data directories
// are taken relative to the directory of the config file.
func apply(cfg *domain.Config, file *File, baseDir string) error {
	if file.DataDir != "" {
		cfg.DataDir = file.DataDir
		if !filepath.IsAbs(cfg.DataDir) {
			cfg.DataDir = filepath.Join(baseDir, cfg.DataDir)
		}
	}

	if file.RegistryURL != "" {
		u, err := url.Parse(file.RegistryURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("registry_url", file.RegistryURL)
		}
		cfg.RegistryURL = file.RegistryURL
	}

	if file.RetryDelay < 0 {
		return invalid("retry_delay", file.RetryDelay)
	}
	if file.RetryDelay > 0 {
		cfg.RetryDelay = file.RetryDelay
	}

	if file.StatusInterval < 0 {
		return invalid("status_interval", file.StatusInterval)
	}
	if file.StatusInterval > 0 {
		cfg.StatusInterval = file.StatusInterval
	}

	if file.PrefetchCap < 0 || file.PrefetchCap > domain.DefaultPrefetchCap {
		return invalid("prefetch_cap", file.PrefetchCap)
	}
	if file.PrefetchCap > 0 {
		cfg.PrefetchCap = file.PrefetchCap
	}

	cfg.Listen = file.Listen

	peers := make([]string, 0, len(file.Peers))
	for _, addr := range file.Peers {
		if addr == "" {
			return invalid("peers", addr)
		}
		if !slices.Contains(peers, addr) {
			peers = append(peers, addr)
		}
	}
	cfg.Peers = peers
	return nil
}

func invalid(field string, value any) error {
	err := zerr.With(zerr.Wrap(domain.ErrInvalidConfig, "value out of range"), "field", field)
	return zerr.With(err, "value", value)
}
