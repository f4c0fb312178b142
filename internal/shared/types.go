package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// RequestTimeout bounds a single catalog or acquisition HTTP request.
	RequestTimeout = 10 * time.Minute
	UserAgent      = "sluhay/2.0"

	DefaultMaxRetries = 3

	// DeliveryBatchSize is the hard platform limit on how many audio files
	// can be handed to the delivery layer in one group.
	DeliveryBatchSize = 10

	// DefaultBitrate is the encode quality assigned to new user records, in kbps.
	DefaultBitrate = 128
)

// AllowedBitrates is the fixed set of per-user encode quality choices, in kbps.
var AllowedBitrates = []int{64, 96, 128, 192, 320}

// ValidBitrate reports whether v is one of the allowed bitrate choices.
func ValidBitrate(v int) bool {
	for _, b := range AllowedBitrates {
		if v == b {
			return true
		}
	}
	return false
}

// Kind identifies what a user request resolves to.
type Kind string

const (
	KindTrack    Kind = "track"
	KindAlbum    Kind = "album"
	KindPlaylist Kind = "playlist"
)

// Sentinel errors forming the error taxonomy the orchestrator works with.
// Collaborator failures are normalized to these before they cross a boundary.
var (
	// ErrNotFound means the catalog or audio source has no match. Expected,
	// user-facing, never retried at this level.
	ErrNotFound = errors.New("nothing found")

	// ErrServiceUnavailable is a transport-level fault in a collaborator.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrUnsupportedLink is returned for recognized catalog domains with an
	// unrecognized link shape.
	ErrUnsupportedLink = errors.New("unsupported link kind")

	// ErrDuplicate is the defined negative result of a favorites add.
	ErrDuplicate = errors.New("already saved")

	// ErrDownloadCancelled is returned when the user cancels an in-flight batch.
	ErrDownloadCancelled = errors.New("download cancelled by user")
)

// TrackDescriptor is the normalized catalog view of one track. Immutable once
// resolved.
type TrackDescriptor struct {
	Title       string
	Artists     string // all performers joined as a display string
	Album       string
	DurationMS  int64
	SearchQuery string // "artists - title", fed to the acquisition source
	ArtworkURL  string
	CatalogURL  string // canonical form, favorites dedup key
}

// DisplayName returns the "artists - title" form used for file naming and
// delivery captions.
func (t TrackDescriptor) DisplayName() string {
	if t.Artists == "" {
		return t.Title
	}
	return fmt.Sprintf("%s - %s", t.Artists, t.Title)
}

// CollectionDescriptor is a resolved album or playlist. Track order is
// catalog-provided and is the delivery order.
type CollectionDescriptor struct {
	Kind        Kind
	Name        string
	Owner       string // artist for albums, owner display name for playlists
	ReleaseDate string // albums only
	ArtworkURL  string
	Tracks      []TrackDescriptor
	CatalogURL  string
}

// LocalFile is a materialized audio file returned by the acquisition gateway.
type LocalFile struct {
	Path      string
	SizeBytes int64
}

// SizeMB returns the file size in megabytes.
func (f *LocalFile) SizeMB() float64 {
	return float64(f.SizeBytes) / (1024 * 1024)
}

// FailureReason tags why a track could not be acquired.
type FailureReason string

const (
	ReasonNotFound    FailureReason = "not_found"
	ReasonUnavailable FailureReason = "unavailable"
	ReasonInternal    FailureReason = "internal"
)

// AcquisitionResult is the outcome of one track attempt within a batch.
// File is nil on failure, in which case Reason is set.
type AcquisitionResult struct {
	Track      TrackDescriptor
	File       *LocalFile
	DurationMS int64
	Reason     FailureReason
}

// OK reports whether the track was acquired.
func (r AcquisitionResult) OK() bool { return r.File != nil }

// BatchStatus is the terminal state of a batch download.
type BatchStatus string

const (
	StatusCompleted BatchStatus = "completed"
	StatusCancelled BatchStatus = "cancelled"
	StatusEmpty     BatchStatus = "empty"
)

// BatchManifest is the structured result of a collection download, built
// incrementally during the batch loop. Results keep collection order.
type BatchManifest struct {
	Collection CollectionDescriptor
	Results    []AcquisitionResult
	Attempted  int
	Succeeded  int
	Failed     int
	Status     BatchStatus
}

// Successes returns the acquired results in original collection order.
func (m *BatchManifest) Successes() []AcquisitionResult {
	out := make([]AcquisitionResult, 0, m.Succeeded)
	for _, r := range m.Results {
		if r.OK() {
			out = append(out, r)
		}
	}
	return out
}

// FailedTitles lists the titles that could not be acquired, for user-facing
// failure reports.
func (m *BatchManifest) FailedTitles() []string {
	var out []string
	for _, r := range m.Results {
		if !r.OK() {
			out = append(out, r.Track.Title)
		}
	}
	return out
}

// TotalDurationMS sums the duration of all acquired tracks.
func (m *BatchManifest) TotalDurationMS() int64 {
	var total int64
	for _, r := range m.Results {
		if r.OK() {
			total += r.DurationMS
		}
	}
	return total
}

// TotalSizeBytes sums the size of all acquired files.
func (m *BatchManifest) TotalSizeBytes() int64 {
	var total int64
	for _, r := range m.Results {
		if r.OK() {
			total += r.File.SizeBytes
		}
	}
	return total
}

// Progress is invoked before each track attempt with a 1-based index.
type Progress func(index, total int, track TrackDescriptor)

// JoinArtists renders a performer list as a single display string.
func JoinArtists(names []string) string {
	return strings.Join(names, ", ")
}
