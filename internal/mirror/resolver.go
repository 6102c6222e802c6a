package mirror

import (
	"context"
	"log/slog"

	"github.com/ramonehamilton/archidekt-mirror/internal/archidekt"
)

// RootFolderID is the sentinel folder id that resolves to the mirror root
// without a remote call.
const RootFolderID = 0

// FolderFetcher is the slice of the remote API the resolver needs.
type FolderFetcher interface {
	GetFolder(ctx context.Context, folderID int) (*archidekt.Folder, error)
}

// Resolver maps remote folder ids onto mirror storage locations, creating
// local folders as needed. Results are memoized for the run; the cache is
// never persisted.
//
// The remote folder tree is assumed acyclic (the remote service enforces
// this); a cyclic parent chain would not terminate.
type Resolver struct {
	client FolderFetcher
	store  Store
	logger *slog.Logger
	cache  map[int]Location
}

// NewResolver creates a resolver with an empty per-run cache.
func NewResolver(client FolderFetcher, store Store, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: client,
		store:  store,
		logger: logger,
		cache:  make(map[int]Location),
	}
}

// Resolve returns the local location for a remote folder id, walking the
// parent chain recursively. A folder whose fetch comes back as
// authentication-required is treated as living directly under the root
// rather than failing the run; any other fetch error is fatal, so partial
// folder trees are never created speculatively.
func (r *Resolver) Resolve(ctx context.Context, folderID int) (Location, error) {
	if folderID == RootFolderID {
		return r.store.Root(), nil
	}
	if loc, ok := r.cache[folderID]; ok {
		return loc, nil
	}

	folder, err := r.client.GetFolder(ctx, folderID)
	if err != nil {
		if archidekt.IsAuthDenied(err) {
			r.logger.Warn("folder is private, attaching subtree under root", "folder", folderID)
			r.cache[folderID] = r.store.Root()
			return r.store.Root(), nil
		}
		return "", err
	}

	return r.locate(ctx, folder)
}

// Locate resolves a folder from an already-fetched record, so a caller that
// walked the tree top-down does not trigger a second fetch of the same node.
func (r *Resolver) Locate(ctx context.Context, folder *archidekt.Folder) (Location, error) {
	if loc, ok := r.cache[folder.ID]; ok {
		return loc, nil
	}
	return r.locate(ctx, folder)
}

func (r *Resolver) locate(ctx context.Context, folder *archidekt.Folder) (Location, error) {
	parentID := RootFolderID
	if folder.ParentFolder != nil {
		parentID = folder.ParentFolder.ID
	}

	parentLoc, err := r.Resolve(ctx, parentID)
	if err != nil {
		return "", err
	}

	loc, err := r.store.FindOrCreateFolder(parentLoc, folder.Name)
	if err != nil {
		return "", err
	}

	r.cache[folder.ID] = loc
	return loc, nil
}
