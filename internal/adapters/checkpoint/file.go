// Package checkpoint persists the ingestion checkpoint in a small text file.
package checkpoint

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.CheckpointStore = (*File)(nil)

// File stores the checkpoint as a decimal integer.
type File struct {
	path string
}

// NewFile creates a checkpoint store backed by path.
func NewFile(path string) *File {
	return &File{path: filepath.Clean(path)}
}

// Read returns the stored checkpoint. A missing file reads as zero.
func (f *File) Read() (uint64, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, zerr.With(errors.Join(domain.ErrCheckpointReadFailed, err), "path", f.path)
	}

	text := strings.TrimSpace(string(data))
	if text == "" {
		return 0, nil
	}

	seq, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, zerr.With(zerr.Wrap(domain.ErrCheckpointInvalid, "not a decimal integer"), "path", f.path)
	}
	return seq, nil
}

// Write replaces the checkpoint. The new value is written to a temporary
// file and renamed over the old one, so a crash leaves either value intact.
func (f *File) Write(seq uint64) error {
	if err := atomicWriteFile(f.path, []byte(strconv.FormatUint(seq, 10))); err != nil {
		return zerr.With(errors.Join(domain.ErrCheckpointWriteFailed, err), "path", f.path)
	}
	return nil
}

func atomicWriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, domain.DirPerm); err != nil {
		return err
	}

	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmpFile.Name()

	// Clean up temp file on error
	defer func() {
		if _, statErr := os.Stat(tmpName); statErr == nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Sync(); err != nil {
		_ = tmpFile.Close()
		return err
	}

	if err := tmpFile.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, domain.FilePerm); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
