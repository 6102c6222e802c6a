package mirror

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/ramonehamilton/archidekt-mirror/internal/archidekt"
	"github.com/ramonehamilton/archidekt-mirror/internal/render"
)

// RemoteClient is the slice of the Archidekt API the engine consumes.
type RemoteClient interface {
	GetUser(ctx context.Context, userID int) (*archidekt.User, error)
	ListDecks(ctx context.Context, ownerID int) ([]archidekt.DeckStub, error)
	GetFolder(ctx context.Context, folderID int) (*archidekt.Folder, error)
	GetDeck(ctx context.Context, deckID int) (*archidekt.Deck, error)
}

// Options controls one engine's behavior across runs.
type Options struct {
	// UserID is the Archidekt user whose decks are mirrored.
	UserID int

	// WatchedFolders are remote folder ids whose subtrees are mirrored.
	WatchedFolders []int

	// Formats are the artifact formats rendered for every deck.
	Formats []render.Format

	// BackupAll also mirrors owned decks that live outside the watched
	// folders, placing their artifacts at the mirror root.
	BackupAll bool

	// DeleteStale removes artifacts of decks that vanished or moved since
	// the previous run. When false, stale artifacts are left in place but
	// still dropped from the manifest.
	DeleteStale bool
}

// Stats summarizes one mirror run.
type Stats struct {
	Decks     int           // decks processed
	Writes    int           // files created or updated
	Unchanged int           // idempotent writes skipped
	Stale     int           // stale manifest entries reconciled
	Duration  time.Duration // wall time of the run
}

// Engine orchestrates one mirror run: enumerate decks, render and write
// artifacts, reconcile the manifest, delete stale artifacts.
//
// The engine assumes at most one concurrent run per mirror; the manifest
// provides no locking. Overlapping runs would race on the kill list.
type Engine struct {
	client RemoteClient
	store  Store
	logger *slog.Logger
	opts   Options
}

// NewEngine creates an engine. The store must be rooted at the mirror
// directory the manifest lives in.
func NewEngine(client RemoteClient, store Store, opts Options, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		client: client,
		store:  store,
		logger: logger,
		opts:   opts,
	}
}

// taggedDeck pairs a deck stub with the resolved location of its immediate
// containing folder, computed once while descending the tree.
type taggedDeck struct {
	stub     archidekt.DeckStub
	location Location
}

// Run executes one full mirror pass. Any remote or storage failure aborts
// the run before the manifest is persisted, so the previous manifest stays
// authoritative for the next attempt.
func (e *Engine) Run(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{}

	// INIT: the loaded manifest doubles as the kill list. Entries still
	// confirmed valid are removed as decks are processed; what remains at
	// the end belongs to decks that vanished or moved.
	previous, err := LoadManifest(e.store)
	if err != nil {
		return nil, err
	}
	killList := previous.Clone()

	resolver := NewResolver(e.client, e.store, e.logger)

	// ENUMERATE: watched folder subtrees first, in traversal order, then
	// owned decks not already covered, in API order.
	var decks []taggedDeck
	seen := make(map[int]bool)
	for _, folderID := range e.opts.WatchedFolders {
		if err := e.walkFolder(ctx, resolver, folderID, seen, &decks); err != nil {
			return nil, err
		}
	}

	if e.opts.BackupAll {
		owned, err := e.client.ListDecks(ctx, e.opts.UserID)
		if err != nil {
			return nil, err
		}
		for _, stub := range owned {
			if seen[stub.ID] {
				continue
			}
			seen[stub.ID] = true
			decks = append(decks, taggedDeck{stub: stub, location: e.store.Root()})
		}
	}

	if err := e.writeProfile(ctx, stats); err != nil {
		return nil, err
	}

	e.logger.Info("enumerated decks", "count", len(decks))

	// RENDER_AND_WRITE
	next := make(Manifest, len(decks))
	for _, tagged := range decks {
		if err := e.processDeck(ctx, tagged, killList, next, stats); err != nil {
			return nil, err
		}
	}

	// RECONCILE: everything left in the kill list is stale.
	stats.Stale = len(killList)
	for id, entry := range killList {
		if !e.opts.DeleteStale {
			e.logger.Info("stale deck retained (deletion disabled)", "deck", id, "stem", entry.Filename)
			continue
		}
		for _, suffix := range render.AllSuffixes() {
			if err := e.store.DeleteFile(Location(entry.FolderID), entry.Filename+suffix); err != nil {
				return nil, fmt.Errorf("failed to delete stale artifact %s%s: %w", entry.Filename, suffix, err)
			}
		}
		e.logger.Info("deleted stale artifacts", "deck", id, "stem", entry.Filename, "folder", entry.FolderID)
	}

	// PERSIST
	if err := next.Persist(e.store); err != nil {
		return nil, err
	}

	stats.Duration = time.Since(start)
	return stats, nil
}

// walkFolder fetches a folder and descends into its subtree, tagging every
// deck with the location of its immediate containing folder. A watched
// folder that turns out to be private contributes nothing: its contents are
// not visible to an unauthenticated fetch.
func (e *Engine) walkFolder(ctx context.Context, resolver *Resolver, folderID int, seen map[int]bool, out *[]taggedDeck) error {
	folder, err := e.client.GetFolder(ctx, folderID)
	if err != nil {
		if archidekt.IsAuthDenied(err) {
			e.logger.Warn("skipping private folder", "folder", folderID)
			return nil
		}
		return err
	}

	loc, err := resolver.Locate(ctx, folder)
	if err != nil {
		return err
	}

	for _, stub := range folder.Decks {
		if seen[stub.ID] {
			continue
		}
		seen[stub.ID] = true
		*out = append(*out, taggedDeck{stub: stub, location: loc})
	}

	for _, sub := range folder.SubFolders {
		if err := e.walkFolder(ctx, resolver, sub.ID, seen, out); err != nil {
			return err
		}
	}

	return nil
}

// processDeck fetches, renders, and writes one deck, then records it in the
// new manifest and clears it from the kill list if still valid.
func (e *Engine) processDeck(ctx context.Context, tagged taggedDeck, killList, next Manifest, stats *Stats) error {
	deck, err := e.client.GetDeck(ctx, tagged.stub.ID)
	if err != nil {
		return err
	}

	stem := Stem(deck.Name, deck.ID)
	id := strconv.Itoa(deck.ID)

	// An exact stem+folder match means the deck is unchanged and its
	// artifacts must not be deleted this run. A mismatch leaves the old
	// entry on the kill list: the deck was renamed or moved, so it is
	// written fresh here and its old artifacts go away in RECONCILE.
	if prev, ok := killList[id]; ok && prev.Filename == stem && prev.FolderID == string(tagged.location) {
		delete(killList, id)
	}

	artifacts, err := render.Render(deck, e.opts.Formats)
	if err != nil {
		return err
	}

	for _, format := range e.opts.Formats {
		name := stem + format.Suffix()
		changed, err := WriteIfChanged(e.store, tagged.location, name, artifacts[format])
		if err != nil {
			return err
		}
		if changed {
			stats.Writes++
			e.logger.Info("updated artifact", "file", name, "folder", tagged.location)
		} else {
			stats.Unchanged++
		}
	}

	next[id] = ManifestEntry{Filename: stem, FolderID: string(tagged.location)}
	stats.Decks++
	return nil
}

// writeProfile mirrors the owner's profile as <username>.json at the root.
func (e *Engine) writeProfile(ctx context.Context, stats *Stats) error {
	user, err := e.client.GetUser(ctx, e.opts.UserID)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(user, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal user profile: %w", err)
	}

	changed, err := WriteIfChanged(e.store, e.store.Root(), user.Username+".json", append(data, '\n'))
	if err != nil {
		return err
	}
	if changed {
		stats.Writes++
	} else {
		stats.Unchanged++
	}
	return nil
}

// Stem derives the filesystem-safe filename stem for a deck: the name
// lower-cased with every character outside [a-z0-9_-] replaced by an
// underscore, then "." and the deck id so renamed decks with colliding
// names stay unique.
func Stem(name string, id int) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	sb.WriteByte('.')
	sb.WriteString(strconv.Itoa(id))
	return sb.String()
}
