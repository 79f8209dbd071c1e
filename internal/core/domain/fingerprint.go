package domain

// Fingerprint identifies a pair of dependency lists for equality checks.
// It is never persisted.
type Fingerprint struct {
	Digest    uint64
	Canonical string
}

// Equal reports whether two fingerprints describe the same dependency lists.
func (f Fingerprint) Equal(other Fingerprint) bool {
	return f.Digest == other.Digest && f.Canonical == other.Canonical
}
