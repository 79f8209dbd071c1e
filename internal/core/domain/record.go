// Package domain contains the core models of the package index: records, keys, trees and sync state.
package domain

import (
	"sort"
	"strings"

	"go.trai.ch/zerr"
)

// Dependency is a single edge of a manifest: a package name and the range it accepts.
type Dependency struct {
	Name  string
	Range string
}

// Record is the value stored under a package key.
//
// A record is either direct, carrying its own dependency lists, or an
// indirection whose SameDependencies points at the log position of an
// earlier record with identical lists. Indirect records never carry lists.
type Record struct {
	Dependencies     []Dependency
	DevDependencies  []Dependency
	SameDependencies uint64
}

// DirectRecord builds a record that carries its own dependency lists.
func DirectRecord(deps, devDeps []Dependency) Record {
	return Record{Dependencies: deps, DevDependencies: devDeps}
}

// IndirectRecord builds a record that shares the lists stored at position.
func IndirectRecord(position uint64) Record {
	return Record{SameDependencies: position}
}

// IsIndirect reports whether the record points at another record.
func (r Record) IsIndirect() bool {
	return r.SameDependencies > 0
}

// Edges returns the dependencies to follow for this record.
// Dev dependencies are appended unless production is set; a name listed in
// both maps is only returned once, with the regular range.
func (r Record) Edges(production bool) []Dependency {
	if production || len(r.DevDependencies) == 0 {
		return r.Dependencies
	}

	edges := make([]Dependency, 0, len(r.Dependencies)+len(r.DevDependencies))
	seen := make(map[string]struct{}, len(r.Dependencies))
	for _, dep := range r.Dependencies {
		seen[dep.Name] = struct{}{}
		edges = append(edges, dep)
	}
	for _, dep := range r.DevDependencies {
		if _, ok := seen[dep.Name]; ok {
			continue
		}
		seen[dep.Name] = struct{}{}
		edges = append(edges, dep)
	}
	return edges
}

// Node is a record read back from the log together with its key and position.
type Node struct {
	Key      string
	Record   Record
	Position uint64
	// Tombstone is set when the entry at Position is a deletion marker.
	Tombstone bool
}

// PackageInfo identifies a single published version of a package.
type PackageInfo struct {
	Name    string
	Version string
}

// Key returns the storage key for the package version.
func (p PackageInfo) Key() string {
	return RecordKey(p.Name, p.Version)
}

func (p PackageInfo) String() string {
	return p.Name + "@" + p.Version
}

// RecordKey joins a package name and version into a storage key.
func RecordKey(name, version string) string {
	return name + "/" + version
}

// ParseKey splits a storage key into a package name and version.
// Keys with three segments belong to scoped packages, whose name spans the
// first two segments.
func ParseKey(key string) (PackageInfo, error) {
	parts := strings.Split(key, "/")
	switch len(parts) {
	case 2:
		return PackageInfo{Name: parts[0], Version: parts[1]}, nil
	case 3:
		return PackageInfo{Name: parts[0] + "/" + parts[1], Version: parts[2]}, nil
	default:
		return PackageInfo{}, zerr.With(zerr.Wrap(ErrInvalidKey, "unexpected segment count"), "key", key)
	}
}

// EdgesFromMap converts a manifest dependency map into a list of edges.
// Entries whose value is not a string are dropped. A nil map yields nil.
// The result is sorted by name so that equal maps produce equal lists.
func EdgesFromMap(m map[string]any) []Dependency {
	if m == nil {
		return nil
	}

	edges := make([]Dependency, 0, len(m))
	for name, value := range m {
		rng, ok := value.(string)
		if !ok {
			continue
		}
		edges = append(edges, Dependency{Name: name, Range: rng})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].Name < edges[j].Name })
	return edges
}
