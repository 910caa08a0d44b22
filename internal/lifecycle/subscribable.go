package lifecycle

import (
	"context"
	"fmt"

	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// SubscribableLifecycle enables and disables the subscription hook of a stream.
type SubscribableLifecycle struct {
	*core
}

// NewSubscribableLifecycle returns a SubscribableLifecycle over d.
func NewSubscribableLifecycle(d Deps) *SubscribableLifecycle {
	return &SubscribableLifecycle{core: newCore(d)}
}

// Get returns the subscribable of a live stream.
func (s *SubscribableLifecycle) Get(ctx context.Context, datasetID, version string) (eventstream.Subscribable, error) {
	es, err := s.read(ctx, datasetID, version)
	if err != nil {
		return eventstream.Subscribable{}, err
	}
	return es.Subscribable, nil
}

// Enable replaces the subscribable with a fresh enabled one and requests its
// stack. The stream must be ACTIVE.
func (s *SubscribableLifecycle) Enable(ctx context.Context, datasetID, version, requestedBy string) (sub eventstream.Subscribable, err error) {
	start := s.now()
	id := eventstream.StreamID(datasetID, version)
	defer func() {
		s.finish(ctx, "subscribable.enable", start, logging.Fields{"id": id, "requestedBy": requestedBy}, err)
	}()

	if err := validateRequest(datasetID, version, requestedBy); err != nil {
		return eventstream.Subscribable{}, err
	}
	ds, err := s.catalog.Dataset(ctx, datasetID)
	if err != nil {
		return eventstream.Subscribable{}, err
	}
	tpl, err := s.templates.Subscribable(ds, version)
	if err != nil {
		return eventstream.Subscribable{}, err
	}
	body, err := tpl.Body()
	if err != nil {
		return eventstream.Subscribable{}, err
	}
	stackName := eventstream.SubscribableStackName(datasetID, version)

	es, err := s.update(ctx, "subscribable.enable", id, func(cur *eventstream.EventStream) (*eventstream.EventStream, error) {
		next, err := live(cur, id)
		if err != nil {
			return nil, err
		}
		switch {
		case next.Status != eventstream.StatusActive:
			return nil, fmt.Errorf("%w: event stream %s is %s", eventstream.ErrParentNotReady, id, next.Status)
		case next.Subscribable.Enabled:
			return nil, fmt.Errorf("%w: subscribable on %s already enabled", eventstream.ErrConflict, id)
		case next.Subscribable.Status == eventstream.StatusDeleteInProgress:
			return nil, fmt.Errorf("%w: subscribable on %s", eventstream.ErrUnderDeletion, id)
		}
		now := s.now()
		next.Subscribable = eventstream.Subscribable{
			Status:        eventstream.StatusCreateInProgress,
			Enabled:       true,
			StackName:     stackName,
			StackTemplate: body,
			UpdatedBy:     requestedBy,
			UpdatedAt:     now,
		}
		next.Touch(requestedBy, now)
		return next, nil
	})
	if err != nil {
		return eventstream.Subscribable{}, err
	}
	if err := s.provisionCreate(ctx, "subscribable.enable", stackName, body, requestedBy); err != nil {
		return eventstream.Subscribable{}, err
	}
	return es.Subscribable, nil
}

// Disable turns the subscribable off and requests deletion of its stack.
func (s *SubscribableLifecycle) Disable(ctx context.Context, datasetID, version, requestedBy string) (sub eventstream.Subscribable, err error) {
	start := s.now()
	id := eventstream.StreamID(datasetID, version)
	defer func() {
		s.finish(ctx, "subscribable.disable", start, logging.Fields{"id": id, "requestedBy": requestedBy}, err)
	}()

	if err := validateRequest(datasetID, version, requestedBy); err != nil {
		return eventstream.Subscribable{}, err
	}
	es, err := s.update(ctx, "subscribable.disable", id, func(cur *eventstream.EventStream) (*eventstream.EventStream, error) {
		next, err := live(cur, id)
		if err != nil {
			return nil, err
		}
		if !next.Subscribable.Enabled {
			return nil, fmt.Errorf("%w: subscribable on %s is not enabled", eventstream.ErrConflict, id)
		}
		now := s.now()
		next.Subscribable.Status = eventstream.StatusDeleteInProgress
		next.Subscribable.Enabled = false
		next.Subscribable.UpdatedBy = requestedBy
		next.Subscribable.UpdatedAt = now
		next.Touch(requestedBy, now)
		return next, nil
	})
	if err != nil {
		return eventstream.Subscribable{}, err
	}
	stackName := es.Subscribable.StackName
	if stackName == "" {
		stackName = eventstream.SubscribableStackName(datasetID, version)
	}
	if err := s.provisionDelete(ctx, "subscribable.disable", stackName); err != nil {
		return eventstream.Subscribable{}, err
	}
	return es.Subscribable, nil
}
