package domain

import "path/filepath"

const (
	// AppName is the directory name used under the XDG data home.
	AppName = "ims"

	// ConfigFileName is the name of the default configuration file.
	ConfigFileName = "ims.yaml"

	// LogFileName is the name of the SQLite database that holds the log.
	LogFileName = "log.db"

	// SeqFileName is the name of the checkpoint file.
	SeqFileName = "seq"

	// DataDirEnv overrides the configured data directory.
	DataDirEnv = "IMS_DATA_DIR"

	// DefaultRegistryURL is the upstream registry replicated by default.
	DefaultRegistryURL = "https://replicate.npmjs.com"

	// DefaultPrefetchCap bounds the number of positions accepted from one peer reply.
	DefaultPrefetchCap = 8192

	// DirPerm is the default permission for directories (rwxr-x---).
	DirPerm = 0o750

	// FilePerm is the default permission for files (rw-r--r--).
	FilePerm = 0o644
)

// LogPath returns the path of the log database inside dataDir.
func LogPath(dataDir string) string {
	return filepath.Join(dataDir, LogFileName)
}

// SeqPath returns the path of the checkpoint file inside dataDir.
func SeqPath(dataDir string) string {
	return filepath.Join(dataDir, SeqFileName)
}
