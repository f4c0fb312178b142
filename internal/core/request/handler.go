// Package request ties the pipeline together: an incoming message is
// classified, resolved against the catalog, and routed to either a single
// track acquisition or a batch download.
package request

import (
	"context"
	"fmt"

	"github.com/cmpdchtr/Sluhay/internal/classify"
	"github.com/cmpdchtr/Sluhay/internal/interfaces"
	"github.com/cmpdchtr/Sluhay/internal/shared"
	"github.com/cmpdchtr/Sluhay/internal/store"
)

// Outcome is the result of one handled request. Exactly one of Result and
// Manifest is set, matching Kind. SaveKey references the stashed favorite
// candidate for this item, usable until the process exits.
type Outcome struct {
	Kind     shared.Kind
	Track    *shared.TrackDescriptor
	Result   *shared.AcquisitionResult
	Manifest *shared.BatchManifest
	SaveKey  string
}

// Handler executes classified requests end to end.
type Handler struct {
	resolver interfaces.CatalogResolver
	gateway  interfaces.AcquisitionGateway
	batches  interfaces.BatchDownloader
	store    *store.Store
	logger   interfaces.Logger
}

// NewHandler wires a request handler.
func NewHandler(resolver interfaces.CatalogResolver, gateway interfaces.AcquisitionGateway, batches interfaces.BatchDownloader, st *store.Store, logger interfaces.Logger) *Handler {
	return &Handler{
		resolver: resolver,
		gateway:  gateway,
		batches:  batches,
		store:    st,
		logger:   logger,
	}
}

// Handle classifies the raw message and runs the matching pipeline. The
// progress callback only fires for collections.
func (h *Handler) Handle(ctx context.Context, userID int64, message string, progress shared.Progress) (*Outcome, error) {
	req, err := classify.Classify(message)
	if err != nil {
		return nil, err
	}

	if req.Kind == shared.KindTrack {
		return h.handleTrack(ctx, userID, req)
	}
	return h.handleCollection(ctx, userID, req, progress)
}

func (h *Handler) handleTrack(ctx context.Context, userID int64, req classify.Request) (*Outcome, error) {
	var track *shared.TrackDescriptor
	var err error
	if req.IsSearch {
		track, err = h.resolver.SearchTrack(ctx, req.Payload)
	} else {
		track, err = h.resolver.ResolveTrack(ctx, req.Payload)
	}
	if err != nil {
		return nil, err
	}

	h.logger.Info("acquiring track %s for user %d", track.DisplayName(), userID)

	bitrate := h.store.Bitrate(userID)
	file, err := h.gateway.Acquire(ctx, *track, userID, bitrate)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire %s: %w", track.DisplayName(), err)
	}

	if err := h.store.RecordDownload(userID, shared.KindTrack, track.DurationMS/1000, file.SizeMB()); err != nil {
		h.logger.Warning("failed to record download stats for user %d: %v", userID, err)
	}

	key := h.store.PutTempItem(userID, store.FavoriteItem{
		Name:  track.Title,
		Owner: track.Artists,
		URL:   track.CatalogURL,
	})

	result := &shared.AcquisitionResult{Track: *track, File: file, DurationMS: track.DurationMS}
	return &Outcome{
		Kind:    shared.KindTrack,
		Track:   track,
		Result:  result,
		SaveKey: key,
	}, nil
}

func (h *Handler) handleCollection(ctx context.Context, userID int64, req classify.Request, progress shared.Progress) (*Outcome, error) {
	url := req.Payload
	if req.IsSearch {
		// Search yields only the canonical URL; the track listing always
		// comes from a full resolve so both entry points share one path.
		found, err := h.resolver.SearchCollection(ctx, req.Payload, req.Kind)
		if err != nil {
			return nil, err
		}
		url = found
	}

	coll, err := h.resolver.ResolveCollection(ctx, url, req.Kind)
	if err != nil {
		return nil, err
	}
	if len(coll.Tracks) == 0 {
		return nil, fmt.Errorf("%s %q has no tracks: %w", coll.Kind, coll.Name, shared.ErrNotFound)
	}

	h.logger.Info("starting %s download %q (%d tracks) for user %d", coll.Kind, coll.Name, len(coll.Tracks), userID)

	manifest := h.batches.Download(ctx, userID, *coll, progress)

	outcome := &Outcome{Kind: coll.Kind, Manifest: manifest}
	if manifest.Status == shared.StatusCompleted {
		outcome.SaveKey = h.store.PutTempItem(userID, store.FavoriteItem{
			Name:  coll.Name,
			Owner: coll.Owner,
			URL:   coll.CatalogURL,
		})
	}
	return outcome, nil
}
