package lifecycle

import (
	"context"
	"fmt"

	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/template"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// maxSinkIDAttempts bounds regeneration when a fresh sink id collides with
// one already on the stream.
const maxSinkIDAttempts = 10

// SinkLifecycle enables, disables and reads sinks. A stream holds at most one
// live sink per type.
type SinkLifecycle struct {
	*core
}

// NewSinkLifecycle returns a SinkLifecycle over d.
func NewSinkLifecycle(d Deps) *SinkLifecycle { return &SinkLifecycle{core: newCore(d)} }

// EnableSink adds a sink of the given type and requests its stack.
func (s *SinkLifecycle) EnableSink(ctx context.Context, datasetID, version, sinkType, requestedBy string) (sink *eventstream.Sink, err error) {
	start := s.now()
	id := eventstream.StreamID(datasetID, version)
	fields := logging.Fields{"id": id, "type": sinkType, "requestedBy": requestedBy}
	defer func() { s.finish(ctx, "sink.enable", start, fields, err) }()

	t, err := eventstream.ParseSinkType(sinkType)
	if err != nil {
		return nil, err
	}
	kind, err := template.SinkFor(t)
	if err != nil {
		return nil, err
	}
	if err := validateRequest(datasetID, version, requestedBy); err != nil {
		return nil, err
	}
	ds, err := s.catalog.Dataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	var created eventstream.Sink
	_, err = s.update(ctx, "sink.enable", id, func(cur *eventstream.EventStream) (*eventstream.EventStream, error) {
		next, err := live(cur, id)
		if err != nil {
			return nil, err
		}
		if _, ok := next.LiveSink(t); ok {
			return nil, fmt.Errorf("%w: %s sink already exists on %s", eventstream.ErrConflict, t, id)
		}
		for _, existing := range next.Sinks {
			if existing.Type == t && existing.Status == eventstream.StatusDeleteInProgress {
				return nil, fmt.Errorf("%w: %s sink %s on %s", eventstream.ErrUnderDeletion, t, existing.ID, id)
			}
		}
		sinkID, err := s.uniqueSinkID(next)
		if err != nil {
			return nil, err
		}
		tpl, err := s.templates.Sink(kind, template.SinkParams{StreamID: id, Dataset: ds, Version: version, SinkID: sinkID})
		if err != nil {
			return nil, err
		}
		body, err := tpl.Body()
		if err != nil {
			return nil, err
		}
		now := s.now()
		created = eventstream.Sink{
			ID:            sinkID,
			Type:          t,
			Status:        eventstream.StatusCreateInProgress,
			StackName:     eventstream.SinkStackName(datasetID, version, sinkID),
			StackTemplate: body,
			UpdatedBy:     requestedBy,
			UpdatedAt:     now,
		}
		next.Sinks = append(next.Sinks, created)
		next.Touch(requestedBy, now)
		return next, nil
	})
	if err != nil {
		return nil, err
	}
	fields["sinkId"] = created.ID
	if err := s.provisionCreate(ctx, "sink.enable", created.StackName, created.StackTemplate, requestedBy); err != nil {
		return nil, err
	}
	return &created, nil
}

func (s *SinkLifecycle) uniqueSinkID(es *eventstream.EventStream) (string, error) {
	for i := 0; i < maxSinkIDAttempts; i++ {
		id := s.newSinkID()
		if _, taken := es.SinkByID(id); !taken {
			return id, nil
		}
	}
	return "", fmt.Errorf("no free sink id on %s after %d attempts", es.ID, maxSinkIDAttempts)
}

// DisableSink flags the live sink of the given type deleted and requests
// deletion of its stack.
func (s *SinkLifecycle) DisableSink(ctx context.Context, datasetID, version, sinkType, requestedBy string) (err error) {
	start := s.now()
	id := eventstream.StreamID(datasetID, version)
	fields := logging.Fields{"id": id, "type": sinkType, "requestedBy": requestedBy}
	defer func() { s.finish(ctx, "sink.disable", start, fields, err) }()

	t, err := eventstream.ParseSinkType(sinkType)
	if err != nil {
		return err
	}
	if err := validateRequest(datasetID, version, requestedBy); err != nil {
		return err
	}

	var stackName string
	_, err = s.update(ctx, "sink.disable", id, func(cur *eventstream.EventStream) (*eventstream.EventStream, error) {
		next, err := live(cur, id)
		if err != nil {
			return nil, err
		}
		sink, ok := next.LiveSink(t)
		if !ok {
			return nil, fmt.Errorf("%w: no %s sink on %s", eventstream.ErrSubResourceNotFound, t, id)
		}
		if sink.Status == eventstream.StatusCreateInProgress {
			return nil, fmt.Errorf("%w: %s sink %s on %s", eventstream.ErrUnderConstruction, t, sink.ID, id)
		}
		now := s.now()
		sink.Status = eventstream.StatusDeleteInProgress
		sink.Deleted = true
		sink.UpdatedBy = requestedBy
		sink.UpdatedAt = now
		stackName = sink.StackName
		fields["sinkId"] = sink.ID
		next.Touch(requestedBy, now)
		return next, nil
	})
	if err != nil {
		return err
	}
	return s.provisionDelete(ctx, "sink.disable", stackName)
}

// GetSink returns the live sink of the given type.
func (s *SinkLifecycle) GetSink(ctx context.Context, datasetID, version, sinkType string) (eventstream.SinkView, error) {
	t, err := eventstream.ParseSinkType(sinkType)
	if err != nil {
		return eventstream.SinkView{}, err
	}
	es, err := s.read(ctx, datasetID, version)
	if err != nil {
		return eventstream.SinkView{}, err
	}
	sink, ok := es.LiveSink(t)
	if !ok {
		return eventstream.SinkView{}, fmt.Errorf("%w: no %s sink on %s", eventstream.ErrSubResourceNotFound, t, es.ID)
	}
	return sink.View(), nil
}

// ListSinks returns the live sinks in creation order.
func (s *SinkLifecycle) ListSinks(ctx context.Context, datasetID, version string) ([]eventstream.SinkView, error) {
	es, err := s.read(ctx, datasetID, version)
	if err != nil {
		return nil, err
	}
	sinks := es.LiveSinks()
	out := make([]eventstream.SinkView, 0, len(sinks))
	for _, sink := range sinks {
		out = append(out, sink.View())
	}
	return out, nil
}
