// Package lifecycle turns user intents on event streams, sinks and
// subscribables into stack provisioning requests, and applies asynchronous
// provisioning outcomes back onto the aggregate.
//
// Every mutation is a read-modify-write of the whole aggregate guarded by the
// store's compare-and-swap on configVersion. The aggregate is persisted in its
// *_IN_PROGRESS state before the provisioner is called.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mikecbrant/event-streams/internal/catalog"
	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/metrics"
	"github.com/mikecbrant/event-streams/internal/template"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// DefaultMaxWriteAttempts bounds the retry loop on version conflicts.
const DefaultMaxWriteAttempts = 3

// Provisioner creates and deletes named stacks asynchronously.
type Provisioner interface {
	CreateStack(ctx context.Context, name, templateBody string, tags map[string]string) error
	DeleteStack(ctx context.Context, name string) error
}

// Deps wires the lifecycle services. Store, Provisioner, Templates and
// Catalog are required.
type Deps struct {
	Store       eventstream.Store
	Provisioner Provisioner
	Templates   *template.Generator
	Catalog     catalog.Catalog
	Logger      logging.Logger
	Metrics     *metrics.Recorder
	// Now defaults to time.Now in UTC.
	Now func() time.Time
	// NewSinkID defaults to the first five hex digits of a random UUID.
	NewSinkID        func() string
	MaxWriteAttempts int
}

// core holds what every service shares.
type core struct {
	store       eventstream.Store
	provisioner Provisioner
	templates   *template.Generator
	catalog     catalog.Catalog
	log         logging.Logger
	metrics     *metrics.Recorder
	now         func() time.Time
	newSinkID   func() string
	maxAttempts int
}

func newCore(d Deps) *core {
	c := &core{
		store:       d.Store,
		provisioner: d.Provisioner,
		templates:   d.Templates,
		catalog:     d.Catalog,
		log:         logging.OrNop(d.Logger),
		metrics:     d.Metrics,
		now:         d.Now,
		newSinkID:   d.NewSinkID,
		maxAttempts: d.MaxWriteAttempts,
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.newSinkID == nil {
		c.newSinkID = randomSinkID
	}
	if c.maxAttempts < 1 {
		c.maxAttempts = DefaultMaxWriteAttempts
	}
	return c
}

func randomSinkID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:5]
}

// errSkip aborts an update without writing.
var errSkip = errors.New("lifecycle: nothing to write")

// mutateFunc receives a private copy of the latest aggregate, or nil when
// none exists, and returns the aggregate to persist.
type mutateFunc func(cur *eventstream.EventStream) (*eventstream.EventStream, error)

// update runs fn against the latest version of id and writes the result as
// the next version. On a lost compare-and-swap it re-reads and re-runs fn, so
// fn must be free of side effects.
func (c *core) update(ctx context.Context, op, id string, fn mutateFunc) (*eventstream.EventStream, error) {
	for attempt := 1; ; attempt++ {
		cur, err := c.store.Get(ctx, id)
		expected := 0
		switch {
		case errors.Is(err, eventstream.ErrNoRecord):
			cur = nil
		case err != nil:
			return nil, fmt.Errorf("read %s: %w", id, err)
		default:
			expected = cur.ConfigVersion
		}

		next, err := fn(cur)
		if err != nil {
			return nil, err
		}
		next.ConfigVersion = expected + 1

		err = c.store.Put(ctx, next, expected)
		if err == nil {
			return next, nil
		}
		if !errors.Is(err, eventstream.ErrVersionConflict) || attempt >= c.maxAttempts {
			return nil, fmt.Errorf("write %s: %w", id, err)
		}
		c.metrics.VersionConflict(ctx, op)
		c.log.Warn("lifecycle.version_conflict", logging.Fields{"op": op, "id": id, "attempt": attempt})
	}
}

// live returns cur unless it is missing or soft-deleted.
func live(cur *eventstream.EventStream, id string) (*eventstream.EventStream, error) {
	if cur == nil || cur.Deleted {
		return nil, fmt.Errorf("%w: event stream %s", eventstream.ErrNotFound, id)
	}
	return cur, nil
}

// read returns the latest live aggregate without writing.
func (c *core) read(ctx context.Context, datasetID, version string) (*eventstream.EventStream, error) {
	if err := eventstream.ValidateKey(datasetID, version); err != nil {
		return nil, err
	}
	id := eventstream.StreamID(datasetID, version)
	cur, err := c.store.Get(ctx, id)
	if errors.Is(err, eventstream.ErrNoRecord) {
		cur, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", id, err)
	}
	return live(cur, id)
}

func validateRequest(datasetID, version, requestedBy string) error {
	if err := eventstream.ValidateKey(datasetID, version); err != nil {
		return err
	}
	if strings.TrimSpace(requestedBy) == "" {
		return &eventstream.ValidationError{Field: "requestedBy", Value: requestedBy, Reason: "must not be empty"}
	}
	return nil
}

func createdByTags(requestedBy string) map[string]string {
	return map[string]string{"created_by": requestedBy}
}

// provisionCreate starts creation of stackName. When the provisioner refuses,
// no stack exists, so the resource is rolled back to a never provisioned
// state and the same request can simply be retried.
func (c *core) provisionCreate(ctx context.Context, op, stackName, body, requestedBy string) error {
	if err := c.provisioner.CreateStack(ctx, stackName, body, createdByTags(requestedBy)); err != nil {
		ref, perr := eventstream.ParseStackName(stackName)
		if perr == nil {
			perr = c.abandonCreate(ctx, op+".abandon", ref)
		}
		if perr != nil {
			c.log.Error("lifecycle.abandon_create", logging.Fields{"op": op, "stack": stackName, "error": perr.Error()})
		}
		return fmt.Errorf("provision %s: %w", stackName, err)
	}
	return nil
}

// abandonCreate undoes a persisted create whose stack was never accepted. A
// stream or sink goes back to deleted and INACTIVE, a subscribable to
// disabled and INACTIVE. Resources that moved on in the meantime are left
// alone.
func (c *core) abandonCreate(ctx context.Context, op string, ref eventstream.StackRef) error {
	_, err := c.update(ctx, op, ref.StreamID(), func(cur *eventstream.EventStream) (*eventstream.EventStream, error) {
		if cur == nil {
			return nil, errSkip
		}
		now := c.now()
		switch ref.Kind {
		case eventstream.KindStream:
			if cur.Deleted || cur.Status != eventstream.StatusCreateInProgress {
				return nil, errSkip
			}
			cur.Deleted = true
			cur.Status = eventstream.StatusInactive
			cur.UpdatedAt = now
		case eventstream.KindSubscribable:
			sub := &cur.Subscribable
			if !sub.Enabled || sub.Status != eventstream.StatusCreateInProgress {
				return nil, errSkip
			}
			sub.Enabled = false
			sub.Status = eventstream.StatusInactive
			sub.UpdatedAt = now
		case eventstream.KindSink:
			sink, ok := cur.SinkByID(ref.SubID)
			if !ok || sink.Deleted || sink.Status != eventstream.StatusCreateInProgress {
				return nil, errSkip
			}
			sink.Deleted = true
			sink.Status = eventstream.StatusInactive
			sink.UpdatedAt = now
		default:
			return nil, errSkip
		}
		return cur, nil
	})
	if errors.Is(err, errSkip) {
		return nil
	}
	return err
}

// provisionDelete starts deletion of stackName. The stack still exists when
// the provisioner refuses, so the resource is marked OPERATION_FAILED for an
// operator to repair.
func (c *core) provisionDelete(ctx context.Context, op, stackName string) error {
	if err := c.provisioner.DeleteStack(ctx, stackName); err != nil {
		return c.provisionFailed(ctx, op, stackName, err)
	}
	return nil
}

func (c *core) provisionFailed(ctx context.Context, op, stackName string, cause error) error {
	ref, err := eventstream.ParseStackName(stackName)
	if err == nil {
		_, err = c.transition(ctx, op+".failed", ref, eventstream.StatusOperationFailed, false)
	}
	if err != nil {
		c.log.Error("lifecycle.mark_failed", logging.Fields{"op": op, "stack": stackName, "error": err.Error()})
	}
	return fmt.Errorf("provision %s: %w", stackName, cause)
}

// finish records metrics and logs the outcome of a public operation.
func (c *core) finish(ctx context.Context, op string, start time.Time, fields logging.Fields, err error) {
	c.metrics.Operation(ctx, op, start, err)
	msg := "lifecycle." + op
	switch {
	case err == nil:
		c.log.Info(msg, fields)
	case eventstream.HTTPStatus(err) < 500:
		fields["error"] = err.Error()
		c.log.Info(msg+".rejected", fields)
	default:
		fields["error"] = err.Error()
		c.log.Error(msg+".failed", fields)
	}
}

// Services bundles the lifecycle services and the reconciler over one set of
// dependencies.
type Services struct {
	Streams       *StreamLifecycle
	Sinks         *SinkLifecycle
	Subscribables *SubscribableLifecycle
	Reconciler    *Reconciler
}

// NewServices wires every service over d.
func NewServices(d Deps) *Services {
	c := newCore(d)
	return &Services{
		Streams:       &StreamLifecycle{core: c},
		Sinks:         &SinkLifecycle{core: c},
		Subscribables: &SubscribableLifecycle{core: c},
		Reconciler:    &Reconciler{core: c},
	}
}
