// Package fingerprint computes comparable identities of dependency lists.
package fingerprint

import (
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/ims/internal/core/domain"
	"go.trai.ch/ims/internal/core/ports"
)

var _ ports.Fingerprinter = (*Hasher)(nil)

// Hasher fingerprints the dependency lists of records.
type Hasher struct{}

// NewHasher creates a new Hasher.
func NewHasher() *Hasher {
	return &Hasher{}
}

// Fingerprint serializes both lists in a canonical order and digests the result.
// List order, and absent versus empty lists, do not affect the fingerprint.
func (h *Hasher) Fingerprint(record domain.Record) domain.Fingerprint {
	var sb strings.Builder
	writeSection(&sb, record.Dependencies)
	writeSection(&sb, record.DevDependencies)

	canonical := sb.String()
	return domain.Fingerprint{
		Digest:    xxhash.Sum64String(canonical),
		Canonical: canonical,
	}
}

func writeSection(sb *strings.Builder, deps []domain.Dependency) {
	sorted := slices.Clone(deps)
	slices.SortFunc(sorted, func(a, b domain.Dependency) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Range, b.Range)
	})

	for _, dep := range sorted {
		sb.WriteString(dep.Name)
		sb.WriteByte(0)
		sb.WriteString(dep.Range)
		sb.WriteByte(0)
	}
	sb.WriteByte(0) // Section separator
}
