// Package acquire obtains playable audio files for resolved tracks. The
// actual search-and-fetch work is delegated to yt-dlp; this package owns the
// policy around it: source fallback ordering, retries, unique file naming,
// rate limiting, and tagging of the resulting mp3.
package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/bogem/id3v2"
	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/cmpdchtr/Sluhay/internal/interfaces"
	"github.com/cmpdchtr/Sluhay/internal/shared"
)

// Audio source search prefixes, tried in order. SoundCloud first: it
// throttles less aggressively than YouTube for plain audio queries.
var sourceOrder = []string{"scsearch1:", "ytsearch1:"}

// adoptWindow bounds how old a stray output file may be for the gateway to
// adopt it as the result of the fetch that just ran.
const adoptWindow = 60 * time.Second

// Gateway materializes audio files into a working directory. One Gateway is
// shared by all chat sessions; the semaphore bounds concurrent fetches and
// the limiter spaces out fetch starts so the audio source's rate limits hold
// across users.
type Gateway struct {
	dir        string
	maxRetries int
	sem        *semaphore.Weighted
	limiter    *rate.Limiter
	httpClient *http.Client
	logger     interfaces.Logger
}

// NewGateway creates a gateway writing into dir, which is created if needed.
func NewGateway(dir string, maxRetries, maxConcurrent, startsPerMinute int, logger interfaces.Logger) (*Gateway, error) {
	if err := shared.CreateDirIfNotExists(dir); err != nil {
		return nil, fmt.Errorf("failed to create download directory: %w", err)
	}
	if maxRetries <= 0 {
		maxRetries = 1
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	if startsPerMinute <= 0 {
		startsPerMinute = 60
	}
	return &Gateway{
		dir:        dir,
		maxRetries: maxRetries,
		sem:        semaphore.NewWeighted(int64(maxConcurrent)),
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(startsPerMinute)), maxConcurrent),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}, nil
}

// UniqueFileName builds a filesystem-safe base name for a track that is
// unique even when two users, or two tracks of one batch, share a display
// name: sanitized display name plus the user id and a wall-clock suffix.
func UniqueFileName(displayName string, userID int64) string {
	base := shared.SanitizeFileName(displayName)
	if base == "" {
		base = "track_" + uuid.NewString()[:8]
	}
	return fmt.Sprintf("%s_%d_%d", base, userID, time.Now().UnixMilli())
}

// Acquire fetches the track's audio as an mp3 encoded at or below the given
// bitrate ceiling. Sources are tried in fallback order; a track no source can
// provide comes back as shared.ErrNotFound.
func (g *Gateway) Acquire(ctx context.Context, track shared.TrackDescriptor, userID int64, bitrate int) (*shared.LocalFile, error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer g.sem.Release(1)

	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	name := UniqueFileName(track.DisplayName(), userID)
	outPath := filepath.Join(g.dir, name+".mp3")
	template := filepath.Join(g.dir, name+".%(ext)s")

	for _, source := range sourceOrder {
		err := shared.RetryWithBackoff(g.maxRetries, 2, func() error {
			return g.fetch(ctx, source+track.SearchQuery, template, bitrate)
		})
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if err != nil {
			g.logger.Warning("fetch via %s failed for %q: %v", source, track.DisplayName(), err)
			continue
		}

		file, ok := g.reconcile(outPath)
		if !ok {
			g.logger.Warning("fetch via %s reported success but produced no file for %q", source, track.DisplayName())
			continue
		}

		g.tag(file.Path, track)
		return file, nil
	}

	return nil, shared.ErrNotFound
}

// Release deletes an acquired file. Best-effort by contract.
func (g *Gateway) Release(file *shared.LocalFile) {
	if file == nil || file.Path == "" {
		return
	}
	if err := os.Remove(file.Path); err != nil && !os.IsNotExist(err) {
		g.logger.Warning("failed to delete %s: %v", file.Path, err)
	}
}

func (g *Gateway) fetch(ctx context.Context, target, template string, bitrate int) error {
	_, err := ytdlp.New().
		Format("bestaudio/best").
		ExtractAudio().
		AudioFormat("mp3").
		AudioQuality(strconv.Itoa(bitrate) + "K").
		Output(template).
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		NoCheckCertificates().
		Run(ctx, target)
	return err
}

// reconcile verifies that the fetch actually produced the expected file. The
// downstream tool occasionally writes under a slightly different name, so
// when the expected path is missing we adopt the freshest matching mp3 in the
// working directory and rename it into place.
func (g *Gateway) reconcile(outPath string) (*shared.LocalFile, bool) {
	if f, ok := statNonEmpty(outPath); ok {
		return f, true
	}

	entries, err := os.ReadDir(g.dir)
	if err != nil {
		return nil, false
	}
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".mp3" {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.Size() == 0 {
			continue
		}
		if now.Sub(info.ModTime()) > adoptWindow {
			continue
		}
		strayPath := filepath.Join(g.dir, entry.Name())
		if err := os.Rename(strayPath, outPath); err != nil {
			// Could not rename; hand back the stray path as-is.
			return &shared.LocalFile{Path: strayPath, SizeBytes: info.Size()}, true
		}
		return &shared.LocalFile{Path: outPath, SizeBytes: info.Size()}, true
	}
	return nil, false
}

// tag writes ID3v2 title/performer/album frames and embeds artwork when the
// catalog provided it. Tagging problems never fail an acquisition.
func (g *Gateway) tag(path string, track shared.TrackDescriptor) {
	tagFile, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		g.logger.Warning("failed to open %s for tagging: %v", path, err)
		return
	}
	defer tagFile.Close()

	tagFile.SetTitle(track.Title)
	tagFile.SetArtist(track.Artists)
	tagFile.SetAlbum(track.Album)

	if artwork, err := g.fetchArtwork(track.ArtworkURL); err == nil && artwork != nil {
		tagFile.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Picture:     artwork,
		})
	}

	if err := tagFile.Save(); err != nil {
		g.logger.Warning("failed to save tags for %s: %v", path, err)
	}
}

func (g *Gateway) fetchArtwork(url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}
	var data []byte
	err := shared.RetryWithBackoffForHTTP(shared.DefaultMaxRetries, time.Second, 10*time.Second, func() error {
		req, err := http.NewRequest(http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("User-Agent", shared.UserAgent)
		resp, err := g.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return &shared.HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Message: "artwork fetch failed"}
		}
		data, err = io.ReadAll(resp.Body)
		return err
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func statNonEmpty(path string) (*shared.LocalFile, bool) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		return nil, false
	}
	return &shared.LocalFile{Path: path, SizeBytes: info.Size()}, true
}
