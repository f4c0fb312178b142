// Package classify turns free-form user input into a closed request shape:
// one of {track, album, playlist}, carrying either a catalog URL or a search
// query. It is the entry gate for every incoming message and is pure and
// deterministic.
package classify

import (
	"strings"

	"github.com/cmpdchtr/Sluhay/internal/shared"
)

// Request is the classified form of a raw user message.
type Request struct {
	Kind     shared.Kind
	Payload  string // URL or search query, prefix stripped
	IsSearch bool   // true when Payload is free text, false for catalog URLs
}

// Markers recognized inside catalog links. Both the web URL form
// (open.spotify.com/track/...) and the URI form (spotify:track:...) are
// accepted.
var linkMarkers = []struct {
	web  string
	uri  string
	kind shared.Kind
}{
	{"/track/", ":track:", shared.KindTrack},
	{"/album/", ":album:", shared.KindAlbum},
	{"/playlist/", ":playlist:", shared.KindPlaylist},
}

// Kind prefixes accepted in free-text requests, in both supported input
// languages. A bare query defaults to a track search.
var textPrefixes = map[string]shared.Kind{
	"album":    shared.KindAlbum,
	"альбом":   shared.KindAlbum,
	"playlist": shared.KindPlaylist,
	"плейлист": shared.KindPlaylist,
	"track":    shared.KindTrack,
	"трек":     shared.KindTrack,
}

// Classify inspects raw input and decides what the user asked for. It never
// panics on well-formed strings; the only error condition is a recognized
// catalog domain with an unsupported link shape.
func Classify(raw string) (Request, error) {
	input := strings.TrimSpace(raw)

	if isCatalogLink(input) {
		lower := strings.ToLower(input)
		for _, m := range linkMarkers {
			if strings.Contains(lower, m.web) || strings.Contains(lower, m.uri) {
				return Request{Kind: m.kind, Payload: input, IsSearch: false}, nil
			}
		}
		return Request{}, shared.ErrUnsupportedLink
	}

	if prefix, rest, ok := strings.Cut(input, ":"); ok {
		key := strings.ToLower(strings.TrimSpace(prefix))
		if kind, known := textPrefixes[key]; known {
			query := strings.TrimSpace(rest)
			return Request{Kind: kind, Payload: query, IsSearch: true}, nil
		}
	}

	return Request{Kind: shared.KindTrack, Payload: input, IsSearch: true}, nil
}

func isCatalogLink(input string) bool {
	lower := strings.ToLower(input)
	return strings.Contains(lower, "spotify.com") || strings.HasPrefix(lower, "spotify:")
}
