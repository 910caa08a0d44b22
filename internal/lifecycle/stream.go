package lifecycle

import (
	"context"
	"fmt"

	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// StreamLifecycle creates, deletes and reads event streams.
type StreamLifecycle struct {
	*core
}

// NewStreamLifecycle returns a StreamLifecycle over d.
func NewStreamLifecycle(d Deps) *StreamLifecycle { return &StreamLifecycle{core: newCore(d)} }

// Create provisions the stream for a dataset version. A soft-deleted stream
// with the same id is revived under a new config version.
func (s *StreamLifecycle) Create(ctx context.Context, datasetID, version, requestedBy string, createRaw bool) (es *eventstream.EventStream, err error) {
	start := s.now()
	id := eventstream.StreamID(datasetID, version)
	defer func() {
		s.finish(ctx, "stream.create", start, logging.Fields{"id": id, "requestedBy": requestedBy, "createRaw": createRaw}, err)
	}()

	if err := validateRequest(datasetID, version, requestedBy); err != nil {
		return nil, err
	}
	// Duplicates are rejected before the catalog is consulted. The write below
	// checks again against the version it replaces.
	if cur, err := s.store.Get(ctx, id); err == nil && !cur.Deleted {
		return nil, fmt.Errorf("%w: event stream %s already exists", eventstream.ErrConflict, id)
	}
	ds, err := s.catalog.Dataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}
	tpl, err := s.templates.Stream(ds, version, requestedBy, createRaw)
	if err != nil {
		return nil, err
	}
	body, err := tpl.Body()
	if err != nil {
		return nil, err
	}
	stackName := eventstream.StreamStackName(datasetID, version)

	es, err = s.update(ctx, "stream.create", id, func(cur *eventstream.EventStream) (*eventstream.EventStream, error) {
		now := s.now()
		next := cur
		switch {
		case cur == nil:
			next = eventstream.New(datasetID, version, createRaw, requestedBy, now)
		case !cur.Deleted:
			return nil, fmt.Errorf("%w: event stream %s already exists", eventstream.ErrConflict, id)
		default:
			next.Deleted = false
			next.CreateRaw = createRaw
		}
		next.Status = eventstream.StatusCreateInProgress
		next.StackName = stackName
		next.StackTemplate = body
		next.Touch(requestedBy, now)
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	if err := s.provisionCreate(ctx, "stream.create", stackName, body, requestedBy); err != nil {
		return nil, err
	}
	return es, nil
}

// Delete soft-deletes the stream and requests deletion of its stack. The
// stream must have no live sub-resources.
func (s *StreamLifecycle) Delete(ctx context.Context, datasetID, version, requestedBy string) (err error) {
	start := s.now()
	id := eventstream.StreamID(datasetID, version)
	defer func() {
		s.finish(ctx, "stream.delete", start, logging.Fields{"id": id, "requestedBy": requestedBy}, err)
	}()

	if err := validateRequest(datasetID, version, requestedBy); err != nil {
		return err
	}
	_, err = s.update(ctx, "stream.delete", id, func(cur *eventstream.EventStream) (*eventstream.EventStream, error) {
		next, err := live(cur, id)
		if err != nil {
			return nil, err
		}
		if next.HasLiveSubResources() {
			return nil, fmt.Errorf("%w: event stream %s has live sub-resources", eventstream.ErrConflict, id)
		}
		next.Deleted = true
		next.Status = eventstream.StatusDeleteInProgress
		next.Touch(requestedBy, s.now())
		return next, nil
	})
	if err != nil {
		return err
	}
	return s.provisionDelete(ctx, "stream.delete", eventstream.StreamStackName(datasetID, version))
}

// Get returns the owner-facing view of a live stream, including the
// dataset's confidentiality.
func (s *StreamLifecycle) Get(ctx context.Context, datasetID, version string) (eventstream.StreamView, error) {
	es, err := s.read(ctx, datasetID, version)
	if err != nil {
		return eventstream.StreamView{}, err
	}
	view := es.View()
	ds, err := s.catalog.Dataset(ctx, datasetID)
	if err != nil {
		return eventstream.StreamView{}, err
	}
	if view.Confidentiality, err = ds.Confidentiality(); err != nil {
		return eventstream.StreamView{}, err
	}
	return view, nil
}
