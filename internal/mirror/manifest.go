package mirror

import (
	"encoding/json"
	"fmt"
)

// ManifestFilename is the name of the manifest file at the mirror root.
const ManifestFilename = ".archidekt-mirror.json"

// ManifestEntry records where a deck's artifacts were last written.
type ManifestEntry struct {
	Filename string `json:"filename"`
	FolderID string `json:"folderId"`
}

// Manifest maps deck ids (decimal strings) to their last-known artifact
// location. It is the only durable state the engine owns: loaded at run
// start, rewritten wholesale at run end.
type Manifest map[string]ManifestEntry

// LoadManifest reads the manifest from the mirror root, returning an empty
// manifest when none exists yet.
func LoadManifest(store Store) (Manifest, error) {
	data, exists, err := store.ReadFile(store.Root(), ManifestFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if !exists {
		return make(Manifest), nil
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest == nil {
		manifest = make(Manifest)
	}
	return manifest, nil
}

// Persist replaces the stored manifest with m. Marshaling a map sorts its
// keys, so an unchanged manifest serializes to identical bytes and the write
// is skipped.
func (m Manifest) Persist(store Store) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if _, err := WriteIfChanged(store, store.Root(), ManifestFilename, append(data, '\n')); err != nil {
		return fmt.Errorf("failed to persist manifest: %w", err)
	}
	return nil
}

// Clone returns an independent copy of the manifest. The engine mutates the
// copy as its kill list while the original stays authoritative until PERSIST.
func (m Manifest) Clone() Manifest {
	clone := make(Manifest, len(m))
	for id, entry := range m {
		clone[id] = entry
	}
	return clone
}
