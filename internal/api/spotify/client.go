// Package spotify is the catalog resolver: it turns Spotify URLs and search
// queries into normalized track and collection descriptors. It never hosts or
// fetches audio; the acquisition gateway does that from the descriptor's
// search query.
package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"sync"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/cmpdchtr/Sluhay/internal/shared"
)

// Client resolves catalog lookups through the Spotify Web API using
// client-credentials auth. The underlying client is created lazily on first
// use so construction never touches the network.
type Client struct {
	ID     string
	Secret string

	mu     sync.Mutex
	client *spotify.Client
}

// NewClient creates a resolver with the given API credentials.
func NewClient(id, secret string) *Client {
	return &Client{ID: id, Secret: secret}
}

// ID extraction patterns. Both the web URL form and the spotify: URI form are
// canonicalized to https://open.spotify.com/<kind>/<id>.
var idPatterns = map[shared.Kind][]*regexp.Regexp{
	shared.KindTrack: {
		regexp.MustCompile(`spotify\.com/(?:intl-[a-z-]+/)?track/([a-zA-Z0-9]+)`),
		regexp.MustCompile(`spotify:track:([a-zA-Z0-9]+)`),
	},
	shared.KindAlbum: {
		regexp.MustCompile(`spotify\.com/(?:intl-[a-z-]+/)?album/([a-zA-Z0-9]+)`),
		regexp.MustCompile(`spotify:album:([a-zA-Z0-9]+)`),
	},
	shared.KindPlaylist: {
		regexp.MustCompile(`spotify\.com/(?:intl-[a-z-]+/)?playlist/([a-zA-Z0-9]+)`),
		regexp.MustCompile(`spotify:playlist:([a-zA-Z0-9]+)`),
	},
}

// ExtractID pulls the catalog identifier of the given kind out of a URL or
// URI. Returns false when the link carries no such identifier.
func ExtractID(url string, kind shared.Kind) (string, bool) {
	for _, re := range idPatterns[kind] {
		if m := re.FindStringSubmatch(url); m != nil {
			return m[1], true
		}
	}
	return "", false
}

// CanonicalURL is the canonical catalog URL form stored on every descriptor.
// It is the favorites dedup key.
func CanonicalURL(kind shared.Kind, id string) string {
	return fmt.Sprintf("https://open.spotify.com/%s/%s", kind, id)
}

// Authenticate obtains an app token and builds the API client.
func (c *Client) Authenticate(ctx context.Context) error {
	config := &clientcredentials.Config{
		ClientID:     c.ID,
		ClientSecret: c.Secret,
		TokenURL:     spotifyauth.TokenURL,
	}
	token, err := config.Token(ctx)
	if err != nil {
		return fmt.Errorf("%w: spotify auth: %v", shared.ErrServiceUnavailable, err)
	}

	httpClient := spotifyauth.New().Client(ctx, token)
	c.client = spotify.New(httpClient)
	return nil
}

func (c *Client) api(ctx context.Context) (*spotify.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		if err := c.Authenticate(ctx); err != nil {
			return nil, err
		}
	}
	return c.client, nil
}

// ResolveTrack resolves a catalog track URL to a normalized descriptor.
func (c *Client) ResolveTrack(ctx context.Context, url string) (*shared.TrackDescriptor, error) {
	id, ok := ExtractID(url, shared.KindTrack)
	if !ok {
		return nil, shared.ErrNotFound
	}

	api, err := c.api(ctx)
	if err != nil {
		return nil, err
	}

	track, err := api.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return nil, classifyAPIError(err)
	}

	desc := normalizeFullTrack(track)
	return &desc, nil
}

// SearchTrack returns the first best match for a free-text query. Ranking is
// the catalog's; we just take result one.
func (c *Client) SearchTrack(ctx context.Context, query string) (*shared.TrackDescriptor, error) {
	api, err := c.api(ctx)
	if err != nil {
		return nil, err
	}

	results, err := api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(1))
	if err != nil {
		return nil, classifyAPIError(err)
	}
	if results.Tracks == nil || len(results.Tracks.Tracks) == 0 {
		return nil, shared.ErrNotFound
	}

	desc := normalizeFullTrack(&results.Tracks.Tracks[0])
	return &desc, nil
}

// ResolveCollection resolves an album or playlist URL to its full track
// listing, preserving catalog order.
func (c *Client) ResolveCollection(ctx context.Context, url string, kind shared.Kind) (*shared.CollectionDescriptor, error) {
	id, ok := ExtractID(url, kind)
	if !ok {
		return nil, shared.ErrNotFound
	}

	api, err := c.api(ctx)
	if err != nil {
		return nil, err
	}

	switch kind {
	case shared.KindAlbum:
		return c.resolveAlbum(ctx, api, id)
	case shared.KindPlaylist:
		return c.resolvePlaylist(ctx, api, id)
	default:
		return nil, shared.ErrUnsupportedLink
	}
}

// SearchCollection finds a collection by free text and returns its canonical
// URL only. Search results are lightweight identifiers; the heavier full
// listing is fetched through ResolveCollection once the candidate is chosen.
func (c *Client) SearchCollection(ctx context.Context, query string, kind shared.Kind) (string, error) {
	api, err := c.api(ctx)
	if err != nil {
		return "", err
	}

	switch kind {
	case shared.KindAlbum:
		results, err := api.Search(ctx, query, spotify.SearchTypeAlbum, spotify.Limit(1))
		if err != nil {
			return "", classifyAPIError(err)
		}
		if results.Albums == nil || len(results.Albums.Albums) == 0 {
			return "", shared.ErrNotFound
		}
		return CanonicalURL(shared.KindAlbum, string(results.Albums.Albums[0].ID)), nil

	case shared.KindPlaylist:
		results, err := api.Search(ctx, query, spotify.SearchTypePlaylist, spotify.Limit(1))
		if err != nil {
			return "", classifyAPIError(err)
		}
		if results.Playlists == nil || len(results.Playlists.Playlists) == 0 {
			return "", shared.ErrNotFound
		}
		return CanonicalURL(shared.KindPlaylist, string(results.Playlists.Playlists[0].ID)), nil

	default:
		return "", shared.ErrUnsupportedLink
	}
}

func (c *Client) resolveAlbum(ctx context.Context, api *spotify.Client, id string) (*shared.CollectionDescriptor, error) {
	album, err := api.GetAlbum(ctx, spotify.ID(id))
	if err != nil {
		return nil, classifyAPIError(err)
	}

	artwork := firstImageURL(album.Images)
	tracks := make([]shared.TrackDescriptor, 0, len(album.Tracks.Tracks))
	for _, t := range album.Tracks.Tracks {
		artists := joinSimpleArtists(t.Artists)
		tracks = append(tracks, shared.TrackDescriptor{
			Title:       t.Name,
			Artists:     artists,
			Album:       album.Name,
			DurationMS:  int64(t.Duration),
			SearchQuery: fmt.Sprintf("%s - %s", artists, t.Name),
			ArtworkURL:  artwork,
			CatalogURL:  CanonicalURL(shared.KindTrack, string(t.ID)),
		})
	}

	return &shared.CollectionDescriptor{
		Kind:        shared.KindAlbum,
		Name:        album.Name,
		Owner:       joinSimpleArtists(album.Artists),
		ReleaseDate: album.ReleaseDate,
		ArtworkURL:  artwork,
		Tracks:      tracks,
		CatalogURL:  CanonicalURL(shared.KindAlbum, id),
	}, nil
}

func (c *Client) resolvePlaylist(ctx context.Context, api *spotify.Client, id string) (*shared.CollectionDescriptor, error) {
	playlist, err := api.GetPlaylist(ctx, spotify.ID(id))
	if err != nil {
		return nil, classifyAPIError(err)
	}

	tracks := make([]shared.TrackDescriptor, 0, len(playlist.Tracks.Tracks))
	for _, item := range playlist.Tracks.Tracks {
		// Removed or region-locked items come back empty; skip them the way
		// the catalog UI does.
		if item.Track.ID == "" {
			continue
		}
		tracks = append(tracks, normalizeFullTrack(&item.Track))
	}

	return &shared.CollectionDescriptor{
		Kind:       shared.KindPlaylist,
		Name:       playlist.Name,
		Owner:      playlist.Owner.DisplayName,
		ArtworkURL: firstImageURL(playlist.Images),
		Tracks:     tracks,
		CatalogURL: CanonicalURL(shared.KindPlaylist, id),
	}, nil
}

func normalizeFullTrack(t *spotify.FullTrack) shared.TrackDescriptor {
	artists := joinSimpleArtists(t.Artists)
	return shared.TrackDescriptor{
		Title:       t.Name,
		Artists:     artists,
		Album:       t.Album.Name,
		DurationMS:  int64(t.Duration),
		SearchQuery: fmt.Sprintf("%s - %s", artists, t.Name),
		ArtworkURL:  firstImageURL(t.Album.Images),
		CatalogURL:  CanonicalURL(shared.KindTrack, string(t.ID)),
	}
}

func joinSimpleArtists(artists []spotify.SimpleArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return shared.JoinArtists(names)
}

func firstImageURL(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

// classifyAPIError maps API failures onto the shared taxonomy: a 404 or bad
// identifier is a catalog miss, everything else is a transport fault that the
// orchestrator must treat as non-fatal but distinguishable in logs.
func classifyAPIError(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusNotFound, http.StatusBadRequest:
			return shared.ErrNotFound
		}
	}
	return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
}
