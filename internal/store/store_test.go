package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cmpdchtr/Sluhay/internal/shared"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "user_settings.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, path
}

func reopen(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	return s
}

func TestBitrateDefault(t *testing.T) {
	s, _ := newTestStore(t)
	if got := s.Bitrate(1); got != shared.DefaultBitrate {
		t.Errorf("Bitrate for unknown user = %d, want %d", got, shared.DefaultBitrate)
	}
}

func TestSetBitratePersists(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.SetBitrate(1, 320); err != nil {
		t.Fatalf("SetBitrate: %v", err)
	}
	if got := s.Bitrate(1); got != 320 {
		t.Errorf("Bitrate = %d, want 320", got)
	}

	s2 := reopen(t, path)
	if got := s2.Bitrate(1); got != 320 {
		t.Errorf("Bitrate after reload = %d, want 320", got)
	}
}

func TestSetBitrateRejectsInvalid(t *testing.T) {
	s, _ := newTestStore(t)
	for _, bad := range []int{0, -1, 100, 256, 999} {
		if err := s.SetBitrate(1, bad); err == nil {
			t.Errorf("SetBitrate(%d) accepted, want error", bad)
		}
	}
	if got := s.Bitrate(1); got != shared.DefaultBitrate {
		t.Errorf("Bitrate after rejected sets = %d, want default", got)
	}
}

func TestAddFavoriteDuplicate(t *testing.T) {
	s, _ := newTestStore(t)
	item := FavoriteItem{Name: "Dark Side of the Moon", Owner: "Pink Floyd", URL: "https://open.spotify.com/album/abc"}

	if err := s.AddFavorite(1, shared.KindAlbum, item); err != nil {
		t.Fatalf("first AddFavorite: %v", err)
	}
	err := s.AddFavorite(1, shared.KindAlbum, item)
	if !errors.Is(err, shared.ErrDuplicate) {
		t.Fatalf("second AddFavorite err = %v, want ErrDuplicate", err)
	}
	if got := s.ListFavorites(1, shared.KindAlbum); len(got) != 1 {
		t.Errorf("favorites count = %d, want 1", len(got))
	}
}

func TestRemoveFavoriteIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	item := FavoriteItem{Name: "Song", URL: "https://open.spotify.com/track/xyz"}
	if err := s.AddFavorite(1, shared.KindTrack, item); err != nil {
		t.Fatalf("AddFavorite: %v", err)
	}

	if err := s.RemoveFavorite(1, shared.KindTrack, item.URL); err != nil {
		t.Fatalf("RemoveFavorite: %v", err)
	}
	// Removing again is fine.
	if err := s.RemoveFavorite(1, shared.KindTrack, item.URL); err != nil {
		t.Fatalf("second RemoveFavorite: %v", err)
	}
	if got := s.ListFavorites(1, shared.KindTrack); len(got) != 0 {
		t.Errorf("favorites count = %d, want 0", len(got))
	}
}

func TestStatsAccumulate(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.RecordDownload(1, shared.KindTrack, 200, 4.5); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}
	if err := s.RecordDownload(1, shared.KindAlbum, 2400, 110.0); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}
	if err := s.RecordDownload(1, shared.KindTrack, 180, 4.0); err != nil {
		t.Fatalf("RecordDownload: %v", err)
	}

	stats := reopen(t, path).GetStats(1)
	if stats.TracksDownloaded != 2 || stats.AlbumsDownloaded != 1 || stats.PlaylistsDownloaded != 0 {
		t.Errorf("counters = %d/%d/%d, want 2/1/0", stats.TracksDownloaded, stats.AlbumsDownloaded, stats.PlaylistsDownloaded)
	}
	if stats.TotalDurationSec != 2780 {
		t.Errorf("TotalDurationSec = %d, want 2780", stats.TotalDurationSec)
	}
	if stats.TotalSizeMB != 118.5 {
		t.Errorf("TotalSizeMB = %v, want 118.5", stats.TotalSizeMB)
	}
}

func TestResetStatsKeepsFavorites(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.AddFavorite(1, shared.KindTrack, FavoriteItem{Name: "Song", URL: "u1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDownload(1, shared.KindTrack, 100, 3.0); err != nil {
		t.Fatal(err)
	}

	if err := s.ResetStats(1); err != nil {
		t.Fatalf("ResetStats: %v", err)
	}
	if stats := s.GetStats(1); stats.TracksDownloaded != 0 || stats.TotalSizeMB != 0 {
		t.Errorf("stats not zeroed: %+v", stats)
	}
	if got := s.ListFavorites(1, shared.KindTrack); len(got) != 1 {
		t.Errorf("favorites lost on stats reset: %d items", len(got))
	}
}

func TestResetSettingsRestoresDefaultBitrate(t *testing.T) {
	s, path := newTestStore(t)
	if err := s.SetBitrate(1, 320); err != nil {
		t.Fatal(err)
	}
	if err := s.AddFavorite(1, shared.KindTrack, FavoriteItem{Name: "Song", URL: "u1"}); err != nil {
		t.Fatal(err)
	}
	if err := s.RecordDownload(1, shared.KindTrack, 100, 3.0); err != nil {
		t.Fatal(err)
	}

	if err := s.ResetSettings(1); err != nil {
		t.Fatalf("ResetSettings: %v", err)
	}
	if got := s.Bitrate(1); got != shared.DefaultBitrate {
		t.Errorf("bitrate after reset = %d, want %d", got, shared.DefaultBitrate)
	}
	if got := s.ListFavorites(1, shared.KindTrack); len(got) != 1 {
		t.Errorf("favorites lost on settings reset: %d items", len(got))
	}
	if stats := s.GetStats(1); stats.TracksDownloaded != 1 {
		t.Errorf("stats lost on settings reset: %+v", stats)
	}

	// The default persists.
	if got := reopen(t, path).Bitrate(1); got != shared.DefaultBitrate {
		t.Errorf("bitrate after reload = %d, want %d", got, shared.DefaultBitrate)
	}
}

func TestResetFavoritesScopes(t *testing.T) {
	s, _ := newTestStore(t)
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	must(s.AddFavorite(1, shared.KindTrack, FavoriteItem{Name: "t", URL: "u1"}))
	must(s.AddFavorite(1, shared.KindAlbum, FavoriteItem{Name: "a", URL: "u2"}))
	must(s.AddFavorite(1, shared.KindPlaylist, FavoriteItem{Name: "p", URL: "u3"}))

	must(s.ResetFavorites(1, "albums"))
	if len(s.ListFavorites(1, shared.KindAlbum)) != 0 {
		t.Error("albums not cleared")
	}
	if len(s.ListFavorites(1, shared.KindTrack)) != 1 || len(s.ListFavorites(1, shared.KindPlaylist)) != 1 {
		t.Error("scoped reset touched other kinds")
	}

	must(s.ResetFavorites(1, "all"))
	if len(s.ListFavorites(1, shared.KindTrack)) != 0 || len(s.ListFavorites(1, shared.KindPlaylist)) != 0 {
		t.Error("all scope left favorites behind")
	}

	if err := s.ResetFavorites(1, "podcasts"); err == nil {
		t.Error("unknown scope accepted")
	}
}

func TestTempItemsNotPersisted(t *testing.T) {
	s, path := newTestStore(t)
	item := FavoriteItem{Name: "Dark Side of the Moon", Owner: "Pink Floyd", URL: "u"}
	key := s.PutTempItem(1, item)

	got, ok := s.TakeTempItem(1, key)
	if !ok || got.Name != item.Name {
		t.Fatalf("TakeTempItem = %+v, %v", got, ok)
	}
	// Force a persist so the user record hits disk.
	if err := s.SetBitrate(1, 192); err != nil {
		t.Fatal(err)
	}

	s2 := reopen(t, path)
	if _, ok := s2.TakeTempItem(1, key); ok {
		t.Error("temp item survived a reload")
	}
}

func TestMigrationBackfillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "user_settings.json")
	// A version 1 file: no bitrate, no playlists slice.
	old := `{
  "version": 1,
  "users": {
    "42": {
      "user_id": 42,
      "schema_version": 1,
      "favorites": {
        "tracks": [{"name": "Song", "url": "u1", "saved_at": 1700000000}],
        "albums": []
      },
      "stats": {"tracks_downloaded": 5, "total_duration_sec": 900, "total_size_mb": 21.5}
    }
  }
}`
	if err := os.WriteFile(path, []byte(old), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := s.Bitrate(42); got != shared.DefaultBitrate {
		t.Errorf("migrated bitrate = %d, want default %d", got, shared.DefaultBitrate)
	}
	if got := s.ListFavorites(42, shared.KindTrack); len(got) != 1 || got[0].Name != "Song" {
		t.Errorf("migrated favorites = %+v", got)
	}
	if stats := s.GetStats(42); stats.TracksDownloaded != 5 || stats.TotalSizeMB != 21.5 {
		t.Errorf("migrated stats = %+v", stats)
	}
	// Adding a favorite works right away on a migrated record.
	if err := s.AddFavorite(42, shared.KindPlaylist, FavoriteItem{Name: "Mix", URL: "u9"}); err != nil {
		t.Fatalf("AddFavorite on migrated record: %v", err)
	}
}

func TestOpenMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "user_settings.json")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on missing file: %v", err)
	}
	// First write creates the parent directory.
	if err := s.SetBitrate(1, 96); err != nil {
		t.Fatalf("SetBitrate: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("store file not created: %v", err)
	}
}
