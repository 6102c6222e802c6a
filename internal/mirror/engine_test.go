package mirror

import (
	"context"
	"fmt"
	"testing"

	"github.com/ramonehamilton/archidekt-mirror/internal/archidekt"
	"github.com/ramonehamilton/archidekt-mirror/internal/render"
)

// fakeRemote serves a small deck universe from memory.
type fakeRemote struct {
	user    archidekt.User
	owned   []archidekt.DeckStub
	folders map[int]*archidekt.Folder
	private map[int]bool
	decks   map[int]*archidekt.Deck
	listErr error
}

func (f *fakeRemote) GetUser(ctx context.Context, userID int) (*archidekt.User, error) {
	user := f.user
	return &user, nil
}

func (f *fakeRemote) ListDecks(ctx context.Context, ownerID int) ([]archidekt.DeckStub, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.owned, nil
}

func (f *fakeRemote) GetFolder(ctx context.Context, folderID int) (*archidekt.Folder, error) {
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

func (f *fakeRemote) GetDeck(ctx context.Context, deckID int) (*archidekt.Deck, error) {
	deck, ok := f.decks[deckID]
	if !ok {
		return nil, &archidekt.NotFoundError{URL: fmt.Sprintf("deck/%d", deckID)}
	}
	copied := *deck
	return &copied, nil
}

// countingStore wraps a Store and counts mutations.
type countingStore struct {
	Store
	writes  int
	deletes int
}

func (s *countingStore) WriteFile(loc Location, name string, content []byte) error {
	s.writes++
	return s.Store.WriteFile(loc, name, content)
}

func (s *countingStore) DeleteFile(loc Location, name string) error {
	s.deletes++
	return s.Store.DeleteFile(loc, name)
}

func simpleDeck(id int, name string) *archidekt.Deck {
	return &archidekt.Deck{
		ID:     id,
		Name:   name,
		Format: 3,
		Owner:  archidekt.Owner{ID: 7, Username: "testuser"},
		Cards: []archidekt.DeckCard{
			{
				Quantity: 1,
				Card: archidekt.Printing{
					Edition:    archidekt.Edition{Code: "cmr"},
					OracleCard: archidekt.OracleCard{Name: "Sol Ring"},
				},
			},
		},
	}
}

func newTestRemote() *fakeRemote {
	return &fakeRemote{
		user: archidekt.User{ID: 7, Username: "testuser"},
		folders: map[int]*archidekt.Folder{
			10: {
				ID:   10,
				Name: "Competitive",
				Decks: []archidekt.DeckStub{
					{ID: 42, Name: "Burn Deck"},
				},
				SubFolders: []archidekt.FolderRef{{ID: 11}},
			},
			11: {
				ID:           11,
				Name:         "Retired",
				ParentFolder: &archidekt.FolderRef{ID: 10},
				Decks: []archidekt.DeckStub{
					{ID: 43, Name: "Old Brew"},
				},
			},
		},
		owned: []archidekt.DeckStub{
			{ID: 42, Name: "Burn Deck"}, // also lives in folder 10
			{ID: 44, Name: "Lands"},
		},
		decks: map[int]*archidekt.Deck{
			42: simpleDeck(42, "Burn Deck"),
			43: simpleDeck(43, "Old Brew"),
			44: simpleDeck(44, "Lands"),
		},
	}
}

func testOptions() Options {
	return Options{
		UserID:         7,
		WatchedFolders: []int{10},
		Formats:        []render.Format{render.FormatArchidekt, render.FormatJSON},
		BackupAll:      true,
		DeleteStale:    true,
	}
}

func mustExist(t *testing.T, store Store, loc Location, name string) {
	t.Helper()
	_, exists, err := store.ReadFile(loc, name)
	if err != nil {
		t.Fatalf("ReadFile %s/%s failed: %v", loc, name, err)
	}
	if !exists {
		t.Errorf("expected artifact %s/%s to exist", loc, name)
	}
}

func mustNotExist(t *testing.T, store Store, loc Location, name string) {
	t.Helper()
	_, exists, err := store.ReadFile(loc, name)
	if err != nil {
		t.Fatalf("ReadFile %s/%s failed: %v", loc, name, err)
	}
	if exists {
		t.Errorf("expected artifact %s/%s to be gone", loc, name)
	}
}

func TestRunMirrorsFolderTreeAndOwnedDecks(t *testing.T) {
	remote := newTestRemote()
	store := &countingStore{Store: newMemStore(t)}
	engine := NewEngine(remote, store, testOptions(), discardLogger())

	stats, err := engine.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Deck 42 is both in a watched folder and owned; it is processed once,
	// at its folder location.
	if stats.Decks != 3 {
		t.Errorf("expected 3 decks processed, got %d", stats.Decks)
	}

	mustExist(t, store, Location("Competitive"), "burn_deck.42.txt")
	mustExist(t, store, Location("Competitive"), "burn_deck.42.json")
	mustExist(t, store, Location("Competitive/Retired"), "old_brew.43.txt")
	mustExist(t, store, store.Root(), "lands.44.txt")
	mustExist(t, store, store.Root(), "testuser.json")
	mustNotExist(t, store, store.Root(), "burn_deck.42.txt")

	manifest, err := LoadManifest(store)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if len(manifest) != 3 {
		t.Errorf("expected 3 manifest entries, got %d", len(manifest))
	}
	if entry := manifest["42"]; entry.Filename != "burn_deck.42" || entry.FolderID != "Competitive" {
		t.Errorf("manifest entry 42 = %+v", entry)
	}
}

func TestRunIsIdempotent(t *testing.T) {
	remote := newTestRemote()
	store := &countingStore{Store: newMemStore(t)}

	if _, err := NewEngine(remote, store, testOptions(), discardLogger()).Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	writesAfterFirst := store.writes
	stats, err := NewEngine(remote, store, testOptions(), discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if store.writes != writesAfterFirst {
		t.Errorf("second run against unchanged remote performed %d writes", store.writes-writesAfterFirst)
	}
	if stats.Writes != 0 {
		t.Errorf("second run stats report %d writes", stats.Writes)
	}
	if stats.Stale != 0 {
		t.Errorf("second run found %d stale entries", stats.Stale)
	}
}

func TestRunReconcilesRenamedAndMovedDeck(t *testing.T) {
	remote := newTestRemote()
	store := &countingStore{Store: newMemStore(t)}
	opts := testOptions()
	opts.WatchedFolders = []int{10, 20}
	remote.folders[20] = &archidekt.Folder{ID: 20, Name: "New Home"}

	if _, err := NewEngine(remote, store, opts, discardLogger()).Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	mustExist(t, store, Location("Competitive"), "burn_deck.42.txt")

	// Deck 42 is renamed and moved from folder 10 to folder 20 upstream.
	remote.folders[10].Decks = nil
	remote.folders[20].Decks = []archidekt.DeckStub{{ID: 42, Name: "Storm Deck"}}
	remote.decks[42] = simpleDeck(42, "Storm Deck")
	remote.owned[0] = archidekt.DeckStub{ID: 42, Name: "Storm Deck"}

	stats, err := NewEngine(remote, store, opts, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if stats.Stale != 1 {
		t.Errorf("expected 1 stale entry, got %d", stats.Stale)
	}
	mustNotExist(t, store, Location("Competitive"), "burn_deck.42.txt")
	mustNotExist(t, store, Location("Competitive"), "burn_deck.42.json")
	mustExist(t, store, Location("New Home"), "storm_deck.42.txt")
	mustExist(t, store, Location("New Home"), "storm_deck.42.json")

	manifest, err := LoadManifest(store)
	if err != nil {
		t.Fatalf("LoadManifest failed: %v", err)
	}
	if entry := manifest["42"]; entry.Filename != "storm_deck.42" || entry.FolderID != "New Home" {
		t.Errorf("manifest entry 42 = %+v", entry)
	}
}

func TestRunVanishedDeckDeleted(t *testing.T) {
	remote := newTestRemote()
	store := &countingStore{Store: newMemStore(t)}

	if _, err := NewEngine(remote, store, testOptions(), discardLogger()).Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	// Deck 44 is deleted upstream.
	remote.owned = remote.owned[:1]
	delete(remote.decks, 44)

	if _, err := NewEngine(remote, store, testOptions(), discardLogger()).Run(context.Background()); err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	mustNotExist(t, store, store.Root(), "lands.44.txt")
	mustNotExist(t, store, store.Root(), "lands.44.json")

	manifest, _ := LoadManifest(store)
	if _, ok := manifest["44"]; ok {
		t.Error("vanished deck still in manifest")
	}
}

func TestRunDeleteDisabledKeepsStaleArtifacts(t *testing.T) {
	remote := newTestRemote()
	store := &countingStore{Store: newMemStore(t)}
	opts := testOptions()
	opts.DeleteStale = false

	if _, err := NewEngine(remote, store, opts, discardLogger()).Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	remote.owned = remote.owned[:1]
	delete(remote.decks, 44)

	stats, err := NewEngine(remote, store, opts, discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}

	if stats.Stale != 1 {
		t.Errorf("expected 1 stale entry, got %d", stats.Stale)
	}
	if store.deletes != 0 {
		t.Errorf("deletion disabled but %d deletes issued", store.deletes)
	}
	mustExist(t, store, store.Root(), "lands.44.txt")

	// The manifest drops the entry regardless.
	manifest, _ := LoadManifest(store)
	if _, ok := manifest["44"]; ok {
		t.Error("stale deck should leave the manifest even without deletion")
	}
}

func TestRunPrivateWatchedFolderIsSkipped(t *testing.T) {
	remote := newTestRemote()
	remote.private = map[int]bool{10: true}
	store := &countingStore{Store: newMemStore(t)}

	stats, err := NewEngine(remote, store, testOptions(), discardLogger()).Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Only the owned decks are reachable; both land at the root.
	if stats.Decks != 2 {
		t.Errorf("expected 2 decks, got %d", stats.Decks)
	}
	mustExist(t, store, store.Root(), "burn_deck.42.txt")
}

func TestRunEnumerationFailurePreservesManifest(t *testing.T) {
	remote := newTestRemote()
	store := &countingStore{Store: newMemStore(t)}

	if _, err := NewEngine(remote, store, testOptions(), discardLogger()).Run(context.Background()); err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	before, _, err := store.ReadFile(store.Root(), ManifestFilename)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}

	remote.listErr = fmt.Errorf("connection reset")
	if _, err := NewEngine(remote, store, testOptions(), discardLogger()).Run(context.Background()); err == nil {
		t.Fatal("expected run to fail")
	}

	after, _, err := store.ReadFile(store.Root(), ManifestFilename)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(before) != string(after) {
		t.Error("failed run must not touch the manifest")
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		name string
		id   int
		want string
	}{
		{"Bör's Deck!", 42, "b_r_s_deck_.42"},
		{"Burn Deck", 7, "burn_deck.7"},
		{"already_safe-1", 9, "already_safe-1.9"},
		{"", 3, ".3"},
	}
	for _, tt := range tests {
		if got := Stem(tt.name, tt.id); got != tt.want {
			t.Errorf("Stem(%q, %d) = %q, want %q", tt.name, tt.id, got, tt.want)
		}
	}
}
