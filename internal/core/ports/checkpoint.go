package ports

//go:generate go run go.uber.org/mock/mockgen -source=checkpoint.go -destination=mocks/mock_checkpoint.go -package=mocks

// CheckpointStore persists the last fully ingested upstream sequence.
type CheckpointStore interface {
	// Read returns the stored sequence, or zero if none was written yet.
	Read() (uint64, error)

	// Write durably replaces the stored sequence.
	Write(seq uint64) error
}
