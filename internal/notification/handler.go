package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mikecbrant/event-streams/internal/lifecycle"
	"github.com/mikecbrant/event-streams/internal/metrics"
	"github.com/mikecbrant/event-streams/internal/utils"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// Applier applies a stack outcome; *lifecycle.Reconciler implements it.
type Applier interface {
	Apply(ctx context.Context, stackName, outcome string) (lifecycle.Result, error)
}

// Handler filters stack events and forwards the actionable ones.
type Handler struct {
	applier Applier
	managed []string
	log     logging.Logger
	metrics *metrics.Recorder
}

// NewHandler returns a Handler acting on stacks whose names match one of the
// managed doublestar globs; an empty list matches every stack.
func NewHandler(applier Applier, managed []string, logger logging.Logger, rec *metrics.Recorder) *Handler {
	return &Handler{applier: applier, managed: managed, log: logging.OrNop(logger), metrics: rec}
}

// HandleMessage processes one SNS message body.
func (h *Handler) HandleMessage(ctx context.Context, body string) (lifecycle.Result, error) {
	msg, err := ParseMessage(body)
	if err != nil {
		h.log.Warn("notification.malformed", logging.Fields{"error": err.Error()})
		h.metrics.Notification(ctx, "unknown", "malformed")
		return lifecycle.ResultIgnored, nil
	}
	fields := logging.Fields{"stack": msg.StackName, "status": msg.ResourceStatus, "type": msg.ResourceType}
	switch {
	case !msg.Actionable():
		h.log.Debug("notification.nested_resource", fields)
		return lifecycle.ResultIgnored, nil
	case !utils.MatchAny(h.managed, msg.StackName):
		h.log.Debug("notification.unmanaged_stack", fields)
		h.metrics.Notification(ctx, "unmanaged", string(lifecycle.ResultIgnored))
		return lifecycle.ResultIgnored, nil
	}
	res, err := h.applier.Apply(ctx, msg.StackName, msg.ResourceStatus)
	if err != nil {
		return res, fmt.Errorf("apply %s %s: %w", msg.StackName, msg.ResourceStatus, err)
	}
	return res, nil
}

// HandleSNSEvent processes every record of a Lambda SNS event. Records that
// fail to apply are reported together so the invocation is retried.
func (h *Handler) HandleSNSEvent(ctx context.Context, ev events.SNSEvent) error {
	var errs []error
	for _, rec := range ev.Records {
		if _, err := h.HandleMessage(ctx, rec.SNS.Message); err != nil {
			h.log.Error("notification.failed", logging.Fields{"messageId": rec.SNS.MessageID, "error": err.Error()})
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
