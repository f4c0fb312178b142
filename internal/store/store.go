// Package store persists per-user state: preferred bitrate, favorites, and
// lifetime download stats. Records live in a single JSON file rewritten
// atomically on every change; the working set stays in memory.
package store

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	json "github.com/goccy/go-json"

	"github.com/cmpdchtr/Sluhay/internal/shared"
)

// CurrentSchemaVersion is stamped on every record written. Records loaded
// with an older version are migrated in place on load.
const CurrentSchemaVersion = 3

// FavoriteItem is one saved track, album, or playlist.
type FavoriteItem struct {
	Name    string `json:"name"`
	Owner   string `json:"owner,omitempty"`
	URL     string `json:"url"`
	SavedAt int64  `json:"saved_at"`
}

// Favorites groups the saved items by kind.
type Favorites struct {
	Tracks    []FavoriteItem `json:"tracks"`
	Albums    []FavoriteItem `json:"albums"`
	Playlists []FavoriteItem `json:"playlists"`
}

// Stats accumulates lifetime download counters.
type Stats struct {
	TracksDownloaded    int64   `json:"tracks_downloaded"`
	AlbumsDownloaded    int64   `json:"albums_downloaded"`
	PlaylistsDownloaded int64   `json:"playlists_downloaded"`
	TotalDurationSec    int64   `json:"total_duration_sec"`
	TotalSizeMB         float64 `json:"total_size_mb"`
}

// UserRecord is the full persisted state of one user. TempItems holds
// short-lived save candidates keyed by a compact hash; they are deliberately
// session-only and never written to disk.
type UserRecord struct {
	UserID        int64                   `json:"user_id"`
	SchemaVersion int                     `json:"schema_version"`
	Bitrate       int                     `json:"bitrate"`
	Favorites     Favorites               `json:"favorites"`
	Stats         Stats                   `json:"stats"`
	TempItems     map[string]FavoriteItem `json:"-"`
}

type diskFormat struct {
	Version int                    `json:"version"`
	Users   map[string]*UserRecord `json:"users"`
}

// Store is safe for concurrent use. A global mutex guards the record map and
// file writes; per-user mutexes serialize read-modify-persist sequences so
// two updates for the same user never interleave.
type Store struct {
	path string

	mu      sync.Mutex
	userMu  map[int64]*sync.Mutex
	records map[int64]*UserRecord
}

// Open loads the store file at path, creating an empty store if the file
// does not exist yet.
func Open(path string) (*Store, error) {
	s := &Store{
		path:    path,
		userMu:  make(map[int64]*sync.Mutex),
		records: make(map[int64]*UserRecord),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read store file: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	var disk diskFormat
	if err := json.Unmarshal(data, &disk); err != nil {
		return fmt.Errorf("failed to parse store file %s: %w", s.path, err)
	}

	for key, rec := range disk.Users {
		if rec == nil {
			continue
		}
		var id int64
		if _, err := fmt.Sscanf(key, "%d", &id); err != nil {
			continue
		}
		rec.UserID = id
		migrate(rec)
		s.records[id] = rec
	}
	return nil
}

// migrate backfills fields added after the record was written. Version 1
// predates the bitrate preference, version 2 predates playlist favorites
// (the slice was simply absent, which zero values cover). TempItems never
// survive a restart.
func migrate(rec *UserRecord) {
	if rec.Bitrate == 0 || !shared.ValidBitrate(rec.Bitrate) {
		rec.Bitrate = shared.DefaultBitrate
	}
	rec.TempItems = make(map[string]FavoriteItem)
	rec.SchemaVersion = CurrentSchemaVersion
}

// persist rewrites the whole store file. Caller must hold s.mu.
func (s *Store) persist() error {
	disk := diskFormat{
		Version: CurrentSchemaVersion,
		Users:   make(map[string]*UserRecord, len(s.records)),
	}
	for id, rec := range s.records {
		disk.Users[fmt.Sprintf("%d", id)] = rec
	}

	data, err := json.MarshalIndent(disk, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write store file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace store file: %w", err)
	}
	return nil
}

// lockUser returns the mutex for one user, creating it on first use.
func (s *Store) lockUser(userID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.userMu[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userMu[userID] = mu
	}
	return mu
}

// record returns the user's record, creating a fresh one with defaults if
// this is the first time the user is seen. Caller must hold s.mu.
func (s *Store) record(userID int64) *UserRecord {
	rec, ok := s.records[userID]
	if !ok {
		rec = &UserRecord{
			UserID:        userID,
			SchemaVersion: CurrentSchemaVersion,
			Bitrate:       shared.DefaultBitrate,
			TempItems:     make(map[string]FavoriteItem),
		}
		s.records[userID] = rec
	}
	return rec
}

// update runs fn against the user's record under both locks and persists the
// result.
func (s *Store) update(userID int64, fn func(rec *UserRecord) error) error {
	userLock := s.lockUser(userID)
	userLock.Lock()
	defer userLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	rec := s.record(userID)
	if err := fn(rec); err != nil {
		return err
	}
	return s.persist()
}

// Bitrate returns the user's preferred bitrate, or the default for users
// that never set one.
func (s *Store) Bitrate(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[userID]; ok {
		return rec.Bitrate
	}
	return shared.DefaultBitrate
}

// SetBitrate validates and persists the user's bitrate preference.
func (s *Store) SetBitrate(userID int64, bitrate int) error {
	if !shared.ValidBitrate(bitrate) {
		return fmt.Errorf("unsupported bitrate %d, allowed: %v", bitrate, shared.AllowedBitrates)
	}
	return s.update(userID, func(rec *UserRecord) error {
		rec.Bitrate = bitrate
		return nil
	})
}

// RecordDownload adds one finished download to the user's lifetime stats.
func (s *Store) RecordDownload(userID int64, kind shared.Kind, durationSec int64, sizeMB float64) error {
	return s.update(userID, func(rec *UserRecord) error {
		switch kind {
		case shared.KindAlbum:
			rec.Stats.AlbumsDownloaded++
		case shared.KindPlaylist:
			rec.Stats.PlaylistsDownloaded++
		default:
			rec.Stats.TracksDownloaded++
		}
		rec.Stats.TotalDurationSec += durationSec
		rec.Stats.TotalSizeMB += sizeMB
		return nil
	})
}

// GetStats returns a copy of the user's stats.
func (s *Store) GetStats(userID int64) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.records[userID]; ok {
		return rec.Stats
	}
	return Stats{}
}

// ResetStats zeroes the user's counters without touching favorites.
func (s *Store) ResetStats(userID int64) error {
	return s.update(userID, func(rec *UserRecord) error {
		rec.Stats = Stats{}
		return nil
	})
}

// ResetSettings returns the user's preferences to their defaults. Favorites
// and stats are untouched.
func (s *Store) ResetSettings(userID int64) error {
	return s.update(userID, func(rec *UserRecord) error {
		rec.Bitrate = shared.DefaultBitrate
		return nil
	})
}

// AddFavorite saves an item under the given kind. Items are deduplicated by
// catalog URL; saving one that is already present returns ErrDuplicate.
func (s *Store) AddFavorite(userID int64, kind shared.Kind, item FavoriteItem) error {
	if item.SavedAt == 0 {
		item.SavedAt = time.Now().Unix()
	}
	return s.update(userID, func(rec *UserRecord) error {
		list := favoritesFor(&rec.Favorites, kind)
		for _, existing := range *list {
			if existing.URL == item.URL {
				return shared.ErrDuplicate
			}
		}
		*list = append(*list, item)
		return nil
	})
}

// RemoveFavorite deletes the item with the given URL. Removing an absent
// item is not an error; the store ends up in the desired state either way.
func (s *Store) RemoveFavorite(userID int64, kind shared.Kind, url string) error {
	return s.update(userID, func(rec *UserRecord) error {
		list := favoritesFor(&rec.Favorites, kind)
		kept := (*list)[:0]
		for _, existing := range *list {
			if existing.URL != url {
				kept = append(kept, existing)
			}
		}
		*list = kept
		return nil
	})
}

// ListFavorites returns a copy of the user's favorites of one kind.
func (s *Store) ListFavorites(userID int64, kind shared.Kind) []FavoriteItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return nil
	}
	list := favoritesFor(&rec.Favorites, kind)
	out := make([]FavoriteItem, len(*list))
	copy(out, *list)
	return out
}

// ResetFavorites clears one kind of favorites, or everything when scope is
// "all".
func (s *Store) ResetFavorites(userID int64, scope string) error {
	return s.update(userID, func(rec *UserRecord) error {
		switch strings.ToLower(scope) {
		case "tracks":
			rec.Favorites.Tracks = nil
		case "albums":
			rec.Favorites.Albums = nil
		case "playlists":
			rec.Favorites.Playlists = nil
		case "all":
			rec.Favorites = Favorites{}
		default:
			return fmt.Errorf("unknown favorites scope %q", scope)
		}
		return nil
	})
}

// PutTempItem stashes a save candidate and returns its key. The key is a
// short stable hash so it fits in constrained callback payloads. Temp items
// are in-memory only.
func (s *Store) PutTempItem(userID int64, item FavoriteItem) string {
	key := TempKey(item)
	userLock := s.lockUser(userID)
	userLock.Lock()
	defer userLock.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	rec := s.record(userID)
	rec.TempItems[key] = item
	return key
}

// TakeTempItem retrieves a stashed save candidate by key. The item stays
// available until the process restarts, so a user can tap save twice and get
// a duplicate error rather than a dead button.
func (s *Store) TakeTempItem(userID int64, key string) (FavoriteItem, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[userID]
	if !ok {
		return FavoriteItem{}, false
	}
	item, ok := rec.TempItems[key]
	return item, ok
}

// TempKey derives the compact lookup key for a save candidate.
func TempKey(item FavoriteItem) string {
	h := fnv.New32a()
	h.Write([]byte(item.Owner))
	h.Write([]byte{0})
	h.Write([]byte(item.Name))
	return fmt.Sprintf("%08x", h.Sum32())
}

func favoritesFor(f *Favorites, kind shared.Kind) *[]FavoriteItem {
	switch kind {
	case shared.KindAlbum:
		return &f.Albums
	case shared.KindPlaylist:
		return &f.Playlists
	default:
		return &f.Tracks
	}
}
