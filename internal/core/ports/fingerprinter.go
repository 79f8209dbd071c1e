package ports

import "go.trai.ch/ims/internal/core/domain"

// Fingerprinter computes comparable identities of dependency sets.
//
//go:generate go run go.uber.org/mock/mockgen -source=fingerprinter.go -destination=mocks/mock_fingerprinter.go -package=mocks
type Fingerprinter interface {
	// Fingerprint returns the identity of the record's dependency lists.
	Fingerprint(record domain.Record) domain.Fingerprint
}
