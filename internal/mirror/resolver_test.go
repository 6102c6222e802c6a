package mirror

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ramonehamilton/archidekt-mirror/internal/archidekt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFolders serves folder records from memory and counts fetches.
type fakeFolders struct {
	folders map[int]*archidekt.Folder
	private map[int]bool
	calls   int
}

func (f *fakeFolders) GetFolder(ctx context.Context, folderID int) (*archidekt.Folder, error) {
	f.calls++
	if f.private[folderID] {
		return nil, &archidekt.APIError{
			StatusCode: 403,
			Detail:     "Authentication credentials were not provided.",
		}
	}
	folder, ok := f.folders[folderID]
	if !ok {
		return nil, &archidekt.NotFoundError{URL: fmt.Sprintf("folder/%d", folderID)}
	}
	return folder, nil
}

func TestResolveRootSentinel(t *testing.T) {
	store := newMemStore(t)
	client := &fakeFolders{}
	resolver := NewResolver(client, store, discardLogger())

	loc, err := resolver.Resolve(context.Background(), RootFolderID)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if loc != store.Root() {
		t.Errorf("root sentinel should resolve to the store root, got %q", loc)
	}
	if client.calls != 0 {
		t.Errorf("root resolution made %d remote calls", client.calls)
	}
}

func TestResolveWalksParentChain(t *testing.T) {
	store := newMemStore(t)
	client := &fakeFolders{
		folders: map[int]*archidekt.Folder{
			5:  {ID: 5, Name: "All Decks"},
			10: {ID: 10, Name: "Competitive", ParentFolder: &archidekt.FolderRef{ID: 5, Name: "All Decks"}},
		},
	}
	resolver := NewResolver(client, store, discardLogger())

	loc, err := resolver.Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if loc != Location("All Decks/Competitive") {
		t.Errorf("resolved location = %q", loc)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 fetches (folder + parent), got %d", client.calls)
	}
}

func TestResolveMemoizes(t *testing.T) {
	store := newMemStore(t)
	client := &fakeFolders{
		folders: map[int]*archidekt.Folder{
			10: {ID: 10, Name: "Competitive"},
		},
	}
	resolver := NewResolver(client, store, discardLogger())

	first, err := resolver.Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	second, err := resolver.Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	if first != second {
		t.Errorf("memoized resolution differs: %q vs %q", first, second)
	}
	if client.calls != 1 {
		t.Errorf("expected a single fetch, got %d", client.calls)
	}
}

func TestResolveAuthDeniedFallsBackToRoot(t *testing.T) {
	store := newMemStore(t)
	client := &fakeFolders{private: map[int]bool{99: true}}
	resolver := NewResolver(client, store, discardLogger())

	loc, err := resolver.Resolve(context.Background(), 99)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if loc != store.Root() {
		t.Errorf("private folder should resolve to root, got %q", loc)
	}

	// The fallback is cached too.
	if _, err := resolver.Resolve(context.Background(), 99); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if client.calls != 1 {
		t.Errorf("fallback not cached: %d calls", client.calls)
	}
}

func TestResolvePrivateAncestor(t *testing.T) {
	store := newMemStore(t)
	client := &fakeFolders{
		folders: map[int]*archidekt.Folder{
			10: {ID: 10, Name: "Competitive", ParentFolder: &archidekt.FolderRef{ID: 99}},
		},
		private: map[int]bool{99: true},
	}
	resolver := NewResolver(client, store, discardLogger())

	loc, err := resolver.Resolve(context.Background(), 10)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// The inaccessible ancestor attaches the subtree directly under root.
	if loc != Location("Competitive") {
		t.Errorf("resolved location = %q", loc)
	}
}

func TestResolveFetchErrorIsFatal(t *testing.T) {
	store := newMemStore(t)
	client := &fakeFolders{}
	resolver := NewResolver(client, store, discardLogger())

	if _, err := resolver.Resolve(context.Background(), 10); err == nil {
		t.Error("expected error for unknown folder")
	}
}

func TestLocateUsesFetchedRecord(t *testing.T) {
	store := newMemStore(t)
	client := &fakeFolders{}
	resolver := NewResolver(client, store, discardLogger())

	folder := &archidekt.Folder{ID: 10, Name: "Competitive"}
	loc, err := resolver.Locate(context.Background(), folder)
	if err != nil {
		t.Fatalf("Locate failed: %v", err)
	}
	if loc != Location("Competitive") {
		t.Errorf("located at %q", loc)
	}
	if client.calls != 0 {
		t.Errorf("Locate with a record in hand should not fetch, got %d calls", client.calls)
	}

	// Later Resolve calls hit the cache seeded by Locate.
	if _, err := resolver.Resolve(context.Background(), 10); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if client.calls != 0 {
		t.Errorf("cache not shared with Resolve: %d calls", client.calls)
	}
}
