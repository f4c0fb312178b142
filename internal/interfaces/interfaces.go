package interfaces

import (
	"context"

	"github.com/cmpdchtr/Sluhay/internal/shared"
)

// CatalogResolver resolves user requests against the external music catalog.
// It is read-only; absence is signaled with shared.ErrNotFound and transport
// faults with shared.ErrServiceUnavailable.
type CatalogResolver interface {
	// ResolveTrack resolves a catalog track URL to a normalized descriptor
	ResolveTrack(ctx context.Context, url string) (*shared.TrackDescriptor, error)

	// SearchTrack returns the catalog's first best match for a free-text query
	SearchTrack(ctx context.Context, query string) (*shared.TrackDescriptor, error)

	// ResolveCollection resolves an album or playlist URL to its full track listing
	ResolveCollection(ctx context.Context, url string, kind shared.Kind) (*shared.CollectionDescriptor, error)

	// SearchCollection finds a collection by free text and returns only its
	// canonical URL; the full listing is fetched separately via ResolveCollection
	SearchCollection(ctx context.Context, query string, kind shared.Kind) (string, error)
}

// AcquisitionGateway obtains a playable local audio file for a resolved track.
// Ordinary "track unavailable" conditions come back as shared.ErrNotFound;
// only unexpected faults propagate as anything else.
type AcquisitionGateway interface {
	// Acquire materializes the track as a local file, encoded at or below the
	// requested bitrate ceiling. The returned path is guaranteed to exist and
	// be non-empty at time of return.
	Acquire(ctx context.Context, track shared.TrackDescriptor, userID int64, bitrate int) (*shared.LocalFile, error)

	// Release deletes an acquired file. Best-effort: failures are logged, never fatal.
	Release(file *shared.LocalFile)
}

// UserSettings is the read side of the per-user settings store.
type UserSettings interface {
	// Bitrate returns the user's current bitrate preference in kbps
	Bitrate(userID int64) int
}

// StatsRecorder folds a completed download's metrics into per-user counters.
type StatsRecorder interface {
	// RecordDownload increments the matching kind counter and adds the
	// duration/size deltas, persisting immediately
	RecordDownload(userID int64, kind shared.Kind, durationSec int64, sizeMB float64) error
}

// BatchDownloader drives a full collection download.
type BatchDownloader interface {
	// Download acquires every track in order and returns the manifest. The
	// returned manifest is always non-nil, even when cancelled mid-batch.
	Download(ctx context.Context, userID int64, coll shared.CollectionDescriptor, progress shared.Progress) *shared.BatchManifest
}

// Deliverer is the boundary the excluded chat layer implements. It consumes
// manifests with valid, still-existing file paths and is responsible for
// chunked transmission, captions, and calling Release after confirmed
// delivery.
type Deliverer interface {
	// DeliverTrack hands over a single acquired track
	DeliverTrack(ctx context.Context, userID int64, res shared.AcquisitionResult) error

	// DeliverBatch hands over a finished batch manifest
	DeliverBatch(ctx context.Context, userID int64, manifest *shared.BatchManifest) error
}

// Logger defines the interface for logging operations
type Logger interface {
	// Info logs an informational message
	Info(message string, args ...interface{})

	// Warning logs a warning message
	Warning(message string, args ...interface{})

	// Error logs an error message
	Error(message string, args ...interface{})

	// Debug logs a debug message
	Debug(message string, args ...interface{})

	// Success logs a success message
	Success(message string, args ...interface{})

	// SetDebugMode enables or disables debug logging
	SetDebugMode(enabled bool)
}
