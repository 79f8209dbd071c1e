package app

import (
	"encoding/json"
	"errors"
	"os"
	"strings"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/zerr"
)

// loadTarget treats arg as a manifest path when it names a file or ends in
// .json, and as a package name otherwise.
func loadTarget(arg string) (domain.Target, error) {
	if arg == "" {
		return domain.Target{}, domain.ErrInvalidTarget
	}

	info, err := os.Stat(arg)
	isFile := err == nil && !info.IsDir()
	if !isFile && !strings.HasSuffix(arg, ".json") {
		return domain.NameTarget(arg), nil
	}

	m, err := loadManifest(arg)
	if err != nil {
		return domain.Target{}, err
	}
	return domain.ManifestTarget(m), nil
}

func loadManifest(path string) (*domain.Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is provided by user
	if err != nil {
		return nil, zerr.With(errors.Join(domain.ErrManifestReadFailed, err), "path", path)
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, zerr.With(errors.Join(domain.ErrManifestReadFailed, err), "path", path)
	}
	return &m, nil
}
