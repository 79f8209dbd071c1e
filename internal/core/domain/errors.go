package domain

import "go.trai.ch/zerr"

var (
	// ErrPackageNotFound is returned when no stored version of a package satisfies the requested range.
	ErrPackageNotFound = zerr.New("package not found")

	// ErrIndirectionChain is returned when an indirection points at another indirection.
	ErrIndirectionChain = zerr.New("indirection target is itself an indirection")

	// ErrDanglingIndirection is returned when an indirection points at a position that holds no live record.
	ErrDanglingIndirection = zerr.New("indirection target is missing")

	// ErrInvalidKey is returned when a record key cannot be split into name and version.
	ErrInvalidKey = zerr.New("invalid record key")

	// ErrInvalidTarget is returned when a resolution target has neither a name nor a manifest.
	ErrInvalidTarget = zerr.New("invalid resolution target")
)

var (
	// ErrStoreOpenFailed is returned when the log store cannot be opened.
	ErrStoreOpenFailed = zerr.New("failed to open log store")

	// ErrStoreMigrationFailed is returned when the log store schema cannot be migrated.
	ErrStoreMigrationFailed = zerr.New("failed to migrate log store")

	// ErrStoreReadFailed is returned when reading from the log store fails.
	ErrStoreReadFailed = zerr.New("failed to read from log store")

	// ErrStoreWriteFailed is returned when appending to the log store fails.
	ErrStoreWriteFailed = zerr.New("failed to write to log store")

	// ErrPositionOutOfRange is returned when a position lies beyond the end of the log.
	ErrPositionOutOfRange = zerr.New("position out of range")

	// ErrReplicaConflict is returned when an imported entry differs from the one already held at its position.
	ErrReplicaConflict = zerr.New("replicated entry conflicts with local log")

	// ErrReplicaReadOnly is returned when a replica is asked to append.
	ErrReplicaReadOnly = zerr.New("replica does not accept appends")

	// ErrFetchTimeout is returned when no peer delivered a requested entry in time.
	ErrFetchTimeout = zerr.New("timed out fetching entry from peers")

	// ErrRecordDecodeFailed is returned when a stored value cannot be decoded.
	ErrRecordDecodeFailed = zerr.New("failed to decode record")
)

var (
	// ErrCheckpointReadFailed is returned when the checkpoint file cannot be read.
	ErrCheckpointReadFailed = zerr.New("failed to read checkpoint")

	// ErrCheckpointWriteFailed is returned when the checkpoint file cannot be written.
	ErrCheckpointWriteFailed = zerr.New("failed to write checkpoint")

	// ErrCheckpointInvalid is returned when the checkpoint file does not hold a decimal integer.
	ErrCheckpointInvalid = zerr.New("invalid checkpoint")
)

var (
	// ErrFeedRequestFailed is returned when the change feed cannot be reached.
	ErrFeedRequestFailed = zerr.New("change feed request failed")

	// ErrFeedStatus is returned when the change feed answers with a non-success status.
	ErrFeedStatus = zerr.New("change feed returned unexpected status")

	// ErrFeedParseFailed is returned when a change feed line cannot be parsed.
	ErrFeedParseFailed = zerr.New("failed to parse change feed line")
)

var (
	// ErrProtocolDecode is returned when a peer message cannot be decoded.
	ErrProtocolDecode = zerr.New("malformed peer message")

	// ErrPeerConnectFailed is returned when a peer cannot be dialled.
	ErrPeerConnectFailed = zerr.New("failed to connect to peer")

	// ErrPeerSendFailed is returned when a message cannot be delivered to a peer.
	ErrPeerSendFailed = zerr.New("failed to send to peer")

	// ErrListenFailed is returned when the swarm cannot bind its listen address.
	ErrListenFailed = zerr.New("failed to listen for peers")
)

var (
	// ErrConfigReadFailed is returned when the configuration file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when the configuration file is not valid YAML.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrInvalidConfig is returned when a configuration value is out of range.
	ErrInvalidConfig = zerr.New("invalid configuration")

	// ErrManifestReadFailed is returned when a manifest file cannot be read or parsed.
	ErrManifestReadFailed = zerr.New("failed to read manifest")
)
