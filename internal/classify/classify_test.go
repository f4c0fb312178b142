package classify

import (
	"errors"
	"testing"

	"github.com/cmpdchtr/Sluhay/internal/shared"
)

func TestClassifyLinks(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    shared.Kind
		payload string
	}{
		{
			name:    "track url",
			input:   "https://open.spotify.com/track/abc123",
			kind:    shared.KindTrack,
			payload: "https://open.spotify.com/track/abc123",
		},
		{
			name:    "album url with query params",
			input:   "https://open.spotify.com/album/xyz789?si=share",
			kind:    shared.KindAlbum,
			payload: "https://open.spotify.com/album/xyz789?si=share",
		},
		{
			name:    "playlist url",
			input:   "https://open.spotify.com/playlist/37i9dQ",
			kind:    shared.KindPlaylist,
			payload: "https://open.spotify.com/playlist/37i9dQ",
		},
		{
			name:    "track uri form",
			input:   "spotify:track:abc123",
			kind:    shared.KindTrack,
			payload: "spotify:track:abc123",
		},
		{
			name:    "surrounding whitespace",
			input:   "  https://open.spotify.com/track/abc123  ",
			kind:    shared.KindTrack,
			payload: "https://open.spotify.com/track/abc123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Classify(tt.input)
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", tt.input, err)
			}
			if req.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", req.Kind, tt.kind)
			}
			if req.Payload != tt.payload {
				t.Errorf("payload = %q, want %q", req.Payload, tt.payload)
			}
			if req.IsSearch {
				t.Error("catalog links must not be classified as search text")
			}
		})
	}
}

func TestClassifyUnsupportedLink(t *testing.T) {
	inputs := []string{
		"https://open.spotify.com/artist/abc123",
		"https://open.spotify.com/show/abc123",
		"spotify:episode:abc123",
	}
	for _, input := range inputs {
		if _, err := Classify(input); !errors.Is(err, shared.ErrUnsupportedLink) {
			t.Errorf("Classify(%q) error = %v, want ErrUnsupportedLink", input, err)
		}
	}
}

func TestClassifySearchText(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		kind    shared.Kind
		payload string
	}{
		{"bare query defaults to track", "The Weeknd - Blinding Lights", shared.KindTrack, "The Weeknd - Blinding Lights"},
		{"album prefix", "album: Pink Floyd Dark Side", shared.KindAlbum, "Pink Floyd Dark Side"},
		{"playlist prefix", "playlist: workout mix", shared.KindPlaylist, "workout mix"},
		{"track prefix", "track: Bohemian Rhapsody", shared.KindTrack, "Bohemian Rhapsody"},
		{"ukrainian album prefix", "альбом: Океан Ельзи Модель", shared.KindAlbum, "Океан Ельзи Модель"},
		{"ukrainian playlist prefix", "плейлист: дорожні пісні", shared.KindPlaylist, "дорожні пісні"},
		{"prefix is case insensitive", "Album: Abbey Road", shared.KindAlbum, "Abbey Road"},
		{"unknown prefix stays a track query", "AC: DC Highway to Hell", shared.KindTrack, "AC: DC Highway to Hell"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := Classify(tt.input)
			if err != nil {
				t.Fatalf("Classify(%q) returned error: %v", tt.input, err)
			}
			if req.Kind != tt.kind {
				t.Errorf("kind = %s, want %s", req.Kind, tt.kind)
			}
			if req.Payload != tt.payload {
				t.Errorf("payload = %q, want %q", req.Payload, tt.payload)
			}
			if !req.IsSearch {
				t.Error("free text must be classified as search")
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	input := "album: Dark Side of the Moon"
	first, err := Classify(input)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := Classify(input)
		if err != nil {
			t.Fatal(err)
		}
		if again != first {
			t.Fatalf("classification changed between calls: %+v vs %+v", first, again)
		}
	}
}
