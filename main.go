package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/cheggaaa/pb/v3"
	"github.com/spf13/cobra"

	"github.com/cmpdchtr/Sluhay/internal/config"
	"github.com/cmpdchtr/Sluhay/internal/core/batch"
	"github.com/cmpdchtr/Sluhay/internal/services"
	"github.com/cmpdchtr/Sluhay/internal/shared"
	"github.com/cmpdchtr/Sluhay/internal/store"
)

const toolVersion = "2.0.0"

var (
	configFile string
	userID     int64
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:     "sluhay",
	Version: toolVersion,
	Short:   "Download music from Spotify links or free-text searches.",
	Long: fmt.Sprintf(`Sluhay (v%s)

Fetches tracks, albums, and playlists as tagged MP3 files. Paste a Spotify
link or type what you are looking for:
- a bare query downloads the best matching track
- "album: <query>" or "альбом: <query>" downloads a whole album
- "playlist: <query>" or "плейлист: <query>" downloads a playlist

Per-user bitrate, favorites, and download stats persist between runs.`, toolVersion),
}

var getCmd = &cobra.Command{
	Use:   "get [link or search text]",
	Short: "Download a track, album, or playlist.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, shared.RequestTimeout)
		defer cancel()

		var bar *pb.ProgressBar
		progress := func(index, total int, track shared.TrackDescriptor) {
			if !shared.IsTTY() {
				shared.ColorInfo.Printf("[%d/%d] %s\n", index, total, shared.TruncateString(track.DisplayName(), 64))
				return
			}
			if bar == nil {
				bar = pb.StartNew(total)
			}
			bar.SetCurrent(int64(index - 1))
		}

		outcome, err := container.Requests.Handle(ctx, userID, args[0], progress)
		if bar != nil {
			bar.SetCurrent(bar.Total())
			bar.Finish()
		}
		if err != nil {
			reportFailure(err)
			os.Exit(1)
		}

		if outcome.Result != nil {
			res := outcome.Result
			shared.ColorSuccess.Printf("✅ %s (%s, %.1f MB)\n",
				res.Track.DisplayName(), shared.FormatDuration(res.DurationMS), res.File.SizeMB())
			shared.ColorInfo.Printf("Saved to %s\n", res.File.Path)
			return
		}

		printManifest(outcome.Manifest)
		if outcome.Manifest.Status == shared.StatusEmpty {
			os.Exit(1)
		}
	},
}

var bitrateCmd = &cobra.Command{
	Use:   "bitrate [kbps]",
	Short: "Show or set your preferred bitrate.",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()
		if len(args) == 0 {
			shared.ColorInfo.Printf("Current bitrate: %d kbps (allowed: %v)\n",
				container.Store.Bitrate(userID), shared.AllowedBitrates)
			return
		}

		kbps, err := strconv.Atoi(args[0])
		if err != nil {
			shared.ColorError.Printf("❌ %q is not a number\n", args[0])
			os.Exit(1)
		}
		if err := container.Store.SetBitrate(userID, kbps); err != nil {
			shared.ColorError.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		shared.ColorSuccess.Printf("✅ Bitrate set to %d kbps\n", kbps)
	},
}

var bitrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Return your bitrate to the default.",
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()
		if err := container.Store.ResetSettings(userID); err != nil {
			shared.ColorError.Printf("❌ Failed to reset settings: %v\n", err)
			os.Exit(1)
		}
		shared.ColorSuccess.Printf("✅ Bitrate reset to %d kbps\n", shared.DefaultBitrate)
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show your download statistics.",
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()
		stats := container.Store.GetStats(userID)
		shared.ColorInfo.Printf("Tracks:    %d\n", stats.TracksDownloaded)
		shared.ColorInfo.Printf("Albums:    %d\n", stats.AlbumsDownloaded)
		shared.ColorInfo.Printf("Playlists: %d\n", stats.PlaylistsDownloaded)
		shared.ColorInfo.Printf("Duration:  %s\n", shared.FormatDuration(stats.TotalDurationSec*1000))
		shared.ColorInfo.Printf("Size:      %.1f MB\n", stats.TotalSizeMB)
	},
}

var statsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset your download statistics.",
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()
		if err := container.Store.ResetStats(userID); err != nil {
			shared.ColorError.Printf("❌ Failed to reset stats: %v\n", err)
			os.Exit(1)
		}
		shared.ColorSuccess.Println("✅ Stats reset")
	},
}

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage saved tracks, albums, and playlists.",
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your saved items.",
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()
		empty := true
		for _, kind := range []shared.Kind{shared.KindTrack, shared.KindAlbum, shared.KindPlaylist} {
			items := container.Store.ListFavorites(userID, kind)
			if len(items) == 0 {
				continue
			}
			empty = false
			shared.ColorInfo.Printf("%ss:\n", kind)
			for i, item := range items {
				line := item.Name
				if item.Owner != "" {
					line = item.Owner + " - " + item.Name
				}
				fmt.Printf("  %d. %s\n     %s\n", i+1, line, item.URL)
			}
		}
		if empty {
			shared.ColorInfo.Println("No favorites saved yet.")
		}
	},
}

var favoritesAddCmd = &cobra.Command{
	Use:   "add [kind] [name] [url]",
	Short: "Save an item (kind: track, album, playlist).",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()
		kind, err := parseKind(args[0])
		if err != nil {
			shared.ColorError.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		err = container.Store.AddFavorite(userID, kind, store.FavoriteItem{Name: args[1], URL: args[2]})
		if errors.Is(err, shared.ErrDuplicate) {
			shared.ColorWarning.Println("⚠️ Already saved")
			return
		}
		if err != nil {
			shared.ColorError.Printf("❌ Failed to save: %v\n", err)
			os.Exit(1)
		}
		shared.ColorSuccess.Printf("✅ Saved %s %q\n", kind, args[1])
	},
}

var favoritesRemoveCmd = &cobra.Command{
	Use:   "remove [kind] [url]",
	Short: "Remove a saved item by its URL.",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()
		kind, err := parseKind(args[0])
		if err != nil {
			shared.ColorError.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		if err := container.Store.RemoveFavorite(userID, kind, args[1]); err != nil {
			shared.ColorError.Printf("❌ Failed to remove: %v\n", err)
			os.Exit(1)
		}
		shared.ColorSuccess.Println("✅ Removed")
	},
}

var favoritesClearCmd = &cobra.Command{
	Use:   "clear [scope]",
	Short: "Clear favorites (scope: tracks, albums, playlists, all).",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		container := initContainer()
		if err := container.Store.ResetFavorites(userID, args[0]); err != nil {
			shared.ColorError.Printf("❌ %v\n", err)
			os.Exit(1)
		}
		shared.ColorSuccess.Printf("✅ Cleared %s favorites\n", args[0])
	},
}

func parseKind(s string) (shared.Kind, error) {
	switch s {
	case "track":
		return shared.KindTrack, nil
	case "album":
		return shared.KindAlbum, nil
	case "playlist":
		return shared.KindPlaylist, nil
	}
	return "", fmt.Errorf("unknown kind %q, expected track, album, or playlist", s)
}

func printManifest(m *shared.BatchManifest) {
	coll := m.Collection
	switch m.Status {
	case shared.StatusCancelled:
		shared.ColorWarning.Printf("⚠️ Download of %q cancelled, partial files removed\n", coll.Name)
		return
	case shared.StatusEmpty:
		shared.ColorError.Printf("❌ No tracks of %q could be downloaded\n", coll.Name)
		return
	}

	shared.ColorSuccess.Printf("✅ %s: %d/%d tracks (%s, %.1f MB)\n",
		coll.Name, m.Succeeded, m.Attempted,
		shared.FormatDuration(m.TotalDurationMS()),
		float64(m.TotalSizeBytes())/(1024*1024))

	if m.Failed > 0 {
		shared.ColorWarning.Printf("⚠️ %d tracks failed:\n", m.Failed)
		for _, title := range m.FailedTitles() {
			fmt.Printf("  - %s\n", title)
		}
	}

	for i, group := range batch.DeliveryGroups(m) {
		shared.ColorInfo.Printf("Group %d:\n", i+1)
		for _, res := range group {
			fmt.Printf("  %s\n", res.File.Path)
		}
	}
}

func reportFailure(err error) {
	switch {
	case errors.Is(err, shared.ErrUnsupportedLink):
		shared.ColorError.Println("❌ Only track, album, and playlist Spotify links are supported")
	case errors.Is(err, shared.ErrNotFound):
		shared.ColorError.Println("❌ Nothing found, check the link or try a more specific search")
	case errors.Is(err, shared.ErrServiceUnavailable):
		shared.ColorError.Println("❌ The music catalog is unreachable right now, try again later")
	case errors.Is(err, context.Canceled):
		shared.ColorWarning.Println("⚠️ Cancelled")
	case errors.Is(err, context.DeadlineExceeded):
		shared.ColorError.Println("❌ The request took too long and was aborted")
	default:
		shared.ColorError.Printf("❌ %v\n", err)
	}
}

func initContainer() *services.ServiceContainer {
	cfg := config.GetDefaultConfig()

	if err := config.EnsureConfigExists(configFile); err != nil {
		shared.ColorWarning.Printf("⚠️ Failed to create config %s: %v\n", configFile, err)
	}
	if err := config.LoadConfig(configFile, cfg); err != nil {
		shared.ColorWarning.Printf("⚠️ Failed to load config from %s: %v\n", configFile, err)
	}
	cfg.ApplyDefaults()
	cfg.ApplyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		shared.ColorError.Printf("❌ Invalid configuration: %v\n", err)
		shared.ColorPrompt.Println("Set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET or fill in", configFile)
		os.Exit(1)
	}

	container, err := services.NewServiceContainer(cfg)
	if err != nil {
		shared.ColorError.Printf("❌ Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	container.Logger.SetDebugMode(debug)
	return container
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.json", "Path to the config file")
	rootCmd.PersistentFlags().Int64Var(&userID, "user", 1, "User ID to act as")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	bitrateCmd.AddCommand(bitrateResetCmd)
	statsCmd.AddCommand(statsResetCmd)
	favoritesCmd.AddCommand(favoritesListCmd)
	favoritesCmd.AddCommand(favoritesAddCmd)
	favoritesCmd.AddCommand(favoritesRemoveCmd)
	favoritesCmd.AddCommand(favoritesClearCmd)

	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(bitrateCmd)
	rootCmd.AddCommand(favoritesCmd)
	rootCmd.AddCommand(statsCmd)
}

func main() {
	shared.InitializeColors()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
