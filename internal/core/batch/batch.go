// Package batch drives the download of a whole album or playlist: strictly
// sequential track acquisition with per-track failure isolation, cooperative
// cancellation, and a manifest the delivery layer can consume in fixed-size
// groups.
package batch

import (
	"context"
	"errors"

	"github.com/samber/lo"

	"github.com/cmpdchtr/Sluhay/internal/interfaces"
	"github.com/cmpdchtr/Sluhay/internal/shared"
)

// Orchestrator runs collection downloads. Tracks are acquired one at a time:
// the audio source and the delivery channel both rate-limit, and progress
// reporting assumes strict ordering, so there is no intra-batch parallelism.
type Orchestrator struct {
	gateway  interfaces.AcquisitionGateway
	settings interfaces.UserSettings
	stats    interfaces.StatsRecorder
	logger   interfaces.Logger
}

// NewOrchestrator wires an orchestrator with its collaborators.
func NewOrchestrator(gateway interfaces.AcquisitionGateway, settings interfaces.UserSettings, stats interfaces.StatsRecorder, logger interfaces.Logger) *Orchestrator {
	return &Orchestrator{
		gateway:  gateway,
		settings: settings,
		stats:    stats,
		logger:   logger,
	}
}

// Download acquires every track of the collection in catalog order and
// returns the manifest. Cancellation is cooperative: the context is polled
// before each track attempt, never preempting an in-flight acquisition. On
// cancellation every already-acquired file is released and the partial
// manifest comes back tagged cancelled; cancelled batches contribute nothing
// to the user's stats.
func (o *Orchestrator) Download(ctx context.Context, userID int64, coll shared.CollectionDescriptor, progress shared.Progress) *shared.BatchManifest {
	manifest := &shared.BatchManifest{Collection: coll}
	total := len(coll.Tracks)

	for i, track := range coll.Tracks {
		if ctx.Err() != nil {
			return o.cancel(manifest)
		}

		if progress != nil {
			progress(i+1, total, track)
		}

		result := o.acquireOne(ctx, userID, track)

		// An acquisition interrupted by cancellation is not a track failure;
		// the batch just stops here. A file that slipped through right before
		// the cancel is released along with the rest.
		if ctx.Err() != nil {
			if result.OK() {
				o.gateway.Release(result.File)
			}
			return o.cancel(manifest)
		}

		manifest.Results = append(manifest.Results, result)
		manifest.Attempted++
		if result.OK() {
			manifest.Succeeded++
		} else {
			manifest.Failed++
		}
	}

	if manifest.Succeeded == 0 {
		manifest.Status = shared.StatusEmpty
		return manifest
	}

	manifest.Status = shared.StatusCompleted
	if err := o.stats.RecordDownload(userID, coll.Kind, manifest.TotalDurationMS()/1000, float64(manifest.TotalSizeBytes())/(1024*1024)); err != nil {
		o.logger.Warning("failed to record download stats for user %d: %v", userID, err)
	}
	return manifest
}

// DeliveryGroups splits the manifest's successes into groups the delivery
// layer can send in one go, preserving original collection order.
func DeliveryGroups(m *shared.BatchManifest) [][]shared.AcquisitionResult {
	successes := m.Successes()
	if len(successes) == 0 {
		return nil
	}
	return lo.Chunk(successes, shared.DeliveryBatchSize)
}

// acquireOne attempts a single track. Whatever goes wrong inside — a missing
// source, a transport fault, even a panic — is contained here as a Failure
// entry so one bad track never aborts the batch.
func (o *Orchestrator) acquireOne(ctx context.Context, userID int64, track shared.TrackDescriptor) (result shared.AcquisitionResult) {
	result = shared.AcquisitionResult{Track: track}

	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("panic while acquiring %q: %v", track.DisplayName(), r)
			result.File = nil
			result.Reason = shared.ReasonInternal
		}
	}()

	// Read the bitrate fresh each track: the user may change the preference
	// while a long batch is running.
	bitrate := o.settings.Bitrate(userID)

	file, err := o.gateway.Acquire(ctx, track, userID, bitrate)
	if err != nil {
		result.Reason = failureReason(err)
		return result
	}

	result.File = file
	result.DurationMS = track.DurationMS
	return result
}

// cancel releases every file acquired so far and tags the partial manifest.
// The successes stay listed so the caller can report how far the batch got,
// but their files are gone.
func (o *Orchestrator) cancel(manifest *shared.BatchManifest) *shared.BatchManifest {
	for _, r := range manifest.Results {
		if r.OK() {
			o.gateway.Release(r.File)
		}
	}
	manifest.Status = shared.StatusCancelled
	return manifest
}

func failureReason(err error) shared.FailureReason {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return shared.ReasonNotFound
	case errors.Is(err, shared.ErrServiceUnavailable):
		return shared.ReasonUnavailable
	default:
		return shared.ReasonInternal
	}
}
