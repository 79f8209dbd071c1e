package domain

// VersionManifest is the dependency information of one published version.
type VersionManifest struct {
	Version         string
	Dependencies    map[string]any
	DevDependencies map[string]any
}

// ChangeEvent is one entry of the upstream registry's change stream.
type ChangeEvent struct {
	Seq     uint64
	ID      string
	Deleted bool
	// Versions keeps the order in which the registry document lists them.
	Versions []VersionManifest
}

// Manifest describes a local project that can be resolved without being stored.
type Manifest struct {
	Name            string         `json:"name"`
	Version         string         `json:"version"`
	Dependencies    map[string]any `json:"dependencies"`
	DevDependencies map[string]any `json:"devDependencies"`
}

// Record converts the manifest into a direct record.
func (m *Manifest) Record() Record {
	return DirectRecord(EdgesFromMap(m.Dependencies), EdgesFromMap(m.DevDependencies))
}

// Target is what a resolution starts from: a stored package or a local manifest.
type Target struct {
	Name     string
	Manifest *Manifest
}

// NameTarget resolves a package from the index.
func NameTarget(name string) Target {
	return Target{Name: name}
}

// ManifestTarget resolves the dependencies of a local manifest.
func ManifestTarget(m *Manifest) Target {
	return Target{Manifest: m}
}

// Validate reports whether the target identifies something to resolve.
func (t Target) Validate() error {
	if t.Manifest == nil && t.Name == "" {
		return ErrInvalidTarget
	}
	return nil
}

// ResolveRequest is the prefetch hint announced to peers before a resolution.
type ResolveRequest struct {
	Name       string
	Range      string
	Production bool
}
