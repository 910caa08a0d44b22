package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// Stack outcomes reported by the provisioner.
const (
	OutcomeCreateComplete   = "CREATE_COMPLETE"
	OutcomeDeleteComplete   = "DELETE_COMPLETE"
	OutcomeRollbackComplete = "ROLLBACK_COMPLETE"
)

// TargetStatus maps a terminal stack outcome onto the resource status it
// implies. Other outcomes are not actionable.
func TargetStatus(outcome string) (eventstream.Status, bool) {
	switch outcome {
	case OutcomeCreateComplete:
		return eventstream.StatusActive, true
	case OutcomeDeleteComplete:
		return eventstream.StatusInactive, true
	case OutcomeRollbackComplete:
		return eventstream.StatusOperationFailed, true
	}
	return "", false
}

// Result describes what a notification did to the aggregate.
type Result string

const (
	ResultApplied   Result = "applied"
	ResultUnchanged Result = "unchanged"
	ResultMissing   Result = "missing"
	ResultRejected  Result = "rejected"
	ResultIgnored   Result = "ignored"
)

// allowedFrom lists, per target status, the statuses a resource may move
// from when driven by a notification.
var allowedFrom = map[eventstream.Status][]eventstream.Status{
	eventstream.StatusActive:          {eventstream.StatusCreateInProgress, eventstream.StatusOperationFailed},
	eventstream.StatusOperationFailed: {eventstream.StatusCreateInProgress, eventstream.StatusDeleteInProgress},
	eventstream.StatusInactive:        {eventstream.StatusDeleteInProgress, eventstream.StatusOperationFailed},
}

// CanTransition reports whether a notification may move a resource from
// one status to another.
func CanTransition(from, to eventstream.Status) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Reconciler applies stack outcomes to the aggregate the stack belongs to.
type Reconciler struct {
	*core
}

// NewReconciler returns a Reconciler over d.
func NewReconciler(d Deps) *Reconciler { return &Reconciler{core: newCore(d)} }

// Apply handles one notification. Unknown stack names, non-terminal outcomes,
// missing aggregates and missing sub-resources are no-ops, reported through
// the Result. Only store failures are returned as errors.
func (r *Reconciler) Apply(ctx context.Context, stackName, outcome string) (Result, error) {
	target, ok := TargetStatus(outcome)
	if !ok {
		r.log.Debug("reconciler.skip", logging.Fields{"stack": stackName, "outcome": outcome})
		return ResultIgnored, nil
	}
	return r.set(ctx, "reconcile", stackName, target, false)
}

// Force sets the status of the resource behind stackName regardless of the
// transition table. It is meant for operators repairing stuck resources.
func (r *Reconciler) Force(ctx context.Context, stackName string, status eventstream.Status) (Result, error) {
	if !status.Valid() {
		return "", &eventstream.ValidationError{Field: "status", Value: string(status), Reason: "unknown status"}
	}
	return r.set(ctx, "reconcile.force", stackName, status, true)
}

func (r *Reconciler) set(ctx context.Context, op, stackName string, target eventstream.Status, force bool) (Result, error) {
	start := r.now()
	ref, err := eventstream.ParseStackName(stackName)
	if err != nil {
		r.log.Warn("reconciler.unknown_stack", logging.Fields{"stack": stackName, "error": err.Error()})
		r.metrics.Notification(ctx, "unknown", string(ResultIgnored))
		return ResultIgnored, nil
	}
	res, err := r.transition(ctx, op, ref, target, force)
	fields := logging.Fields{"stack": stackName, "status": string(target), "result": string(res)}
	if err != nil {
		fields["error"] = err.Error()
		r.log.Error("reconciler.failed", fields)
		r.metrics.Operation(ctx, op, start, err)
		return res, err
	}
	r.log.Info("reconciler."+string(res), fields)
	r.metrics.Notification(ctx, string(ref.Kind), string(res))
	return res, nil
}

// statusSlot addresses the status of one resource inside an aggregate.
type statusSlot struct {
	status    *eventstream.Status
	updatedAt *time.Time
}

func locate(es *eventstream.EventStream, ref eventstream.StackRef) (statusSlot, bool) {
	switch ref.Kind {
	case eventstream.KindStream:
		return statusSlot{&es.Status, &es.UpdatedAt}, true
	case eventstream.KindSubscribable:
		return statusSlot{&es.Subscribable.Status, &es.Subscribable.UpdatedAt}, true
	case eventstream.KindSink:
		if s, ok := es.SinkByID(ref.SubID); ok {
			return statusSlot{&s.Status, &s.UpdatedAt}, true
		}
	}
	return statusSlot{}, false
}

// transition moves the resource ref names to target. Unless force is set the
// move must be allowed by the transition table.
func (c *core) transition(ctx context.Context, op string, ref eventstream.StackRef, target eventstream.Status, force bool) (Result, error) {
	var res Result
	_, err := c.update(ctx, op, ref.StreamID(), func(cur *eventstream.EventStream) (*eventstream.EventStream, error) {
		if cur == nil {
			res = ResultMissing
			return nil, errSkip
		}
		slot, ok := locate(cur, ref)
		switch {
		case !ok:
			res = ResultMissing
			return nil, errSkip
		case *slot.status == target:
			res = ResultUnchanged
			return nil, errSkip
		case !force && !CanTransition(*slot.status, target):
			res = ResultRejected
			return nil, errSkip
		}
		*slot.status = target
		*slot.updatedAt = c.now()
		res = ResultApplied
		return cur, nil
	})
	if errors.Is(err, errSkip) {
		err = nil
	}
	return res, err
}
