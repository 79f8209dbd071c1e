package checkpoint_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/ims/internal/adapters/checkpoint"
	"go.trai.ch/ims/internal/core/domain"
)

func TestFile_ReadMissing(t *testing.T) {
	t.Parallel()
	f := checkpoint.NewFile(filepath.Join(t.TempDir(), "seq"))

	seq, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), seq)
}

func TestFile_WriteRead(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "data", "seq")
	f := checkpoint.NewFile(path)

	require.NoError(t, f.Write(41))
	require.NoError(t, f.Write(42))

	seq, err := f.Read()
	require.NoError(t, err)
	assert.Equal(t, uint64(42), seq)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "42", string(data))

	// No temporary files are left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFile_ReadTrimsWhitespace(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "seq")
	require.NoError(t, os.WriteFile(path, []byte("17\n"), domain.FilePerm))

	seq, err := checkpoint.NewFile(path).Read()
	require.NoError(t, err)
	assert.Equal(t, uint64(17), seq)
}

func TestFile_ReadInvalid(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "seq")
	require.NoError(t, os.WriteFile(path, []byte("abc"), domain.FilePerm))

	_, err := checkpoint.NewFile(path).Read()
	assert.ErrorIs(t, err, domain.ErrCheckpointInvalid)
}
