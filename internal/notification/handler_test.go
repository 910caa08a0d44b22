package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"github.com/mikecbrant/event-streams/internal/catalog"
	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/lifecycle"
	"github.com/mikecbrant/event-streams/internal/template"
	"github.com/mikecbrant/event-streams/internal/testutil"
)

type call struct{ stack, outcome string }

type fakeApplier struct {
	calls []call
	err   error
}

func (f *fakeApplier) Apply(_ context.Context, stack, outcome string) (lifecycle.Result, error) {
	f.calls = append(f.calls, call{stack, outcome})
	if f.err != nil {
		return "", f.err
	}
	return lifecycle.ResultApplied, nil
}

func TestHandleMessage_Filters(t *testing.T) {
	a := &fakeApplier{}
	h := NewHandler(a, []string{"event-stream-*", "event-sink-*"}, &testutil.BufferLogger{}, nil)
	ctx := context.Background()

	for _, tc := range []struct {
		body string
		want lifecycle.Result
	}{
		{cfMessage(stackName, "CREATE_COMPLETE", RootStackType), lifecycle.ResultApplied},
		{cfMessage(stackName, "CREATE_COMPLETE", "AWS::Kinesis::Stream"), lifecycle.ResultIgnored},
		{cfMessage("event-subscribable-ds-1", "CREATE_COMPLETE", RootStackType), lifecycle.ResultIgnored},
		{"garbage", lifecycle.ResultIgnored},
	} {
		res, err := h.HandleMessage(ctx, tc.body)
		if err != nil || res != tc.want {
			t.Fatalf("HandleMessage => %s, %v; want %s", res, err, tc.want)
		}
	}
	if len(a.calls) != 1 || a.calls[0] != (call{stackName, "CREATE_COMPLETE"}) {
		t.Fatalf("unexpected apply calls: %+v", a.calls)
	}
}

func TestHandleSNSEvent_JoinsErrors(t *testing.T) {
	a := &fakeApplier{err: errors.New("store down")}
	l := &testutil.BufferLogger{}
	h := NewHandler(a, nil, l, nil)
	ev := events.SNSEvent{Records: []events.SNSEventRecord{
		{SNS: events.SNSEntity{MessageID: "m1", Message: cfMessage("event-stream-a-1", "DELETE_COMPLETE", RootStackType)}},
		{SNS: events.SNSEntity{MessageID: "m2", Message: cfMessage("event-stream-b-1", "DELETE_COMPLETE", RootStackType)}},
	}}
	err := h.HandleSNSEvent(context.Background(), ev)
	if err == nil || !testutil.Contains(err.Error(), "event-stream-a-1") || !testutil.Contains(err.Error(), "event-stream-b-1") {
		t.Fatalf("expected both failures, got %v", err)
	}
	if !l.Has("notification.failed") {
		t.Fatalf("expected failure logs")
	}
}

func TestHandleSNSEvent_DrivesReconciler(t *testing.T) {
	ctx := context.Background()
	store := eventstream.NewMemoryStore()
	svc := lifecycle.NewServices(lifecycle.Deps{
		Store:       store,
		Provisioner: &testutil.FakeProvisioner{},
		Templates:   template.NewGenerator(template.Config{Environment: "dev"}),
		Catalog:     catalog.NewStatic(nil, "public"),
	})
	if _, err := svc.Streams.Create(ctx, "dataset-id", "1", "alice", true); err != nil {
		t.Fatalf("create: %v", err)
	}
	h := NewHandler(svc.Reconciler, nil, nil, nil)
	ev := events.SNSEvent{Records: []events.SNSEventRecord{
		{SNS: events.SNSEntity{Message: cfMessage(stackName, "CREATE_IN_PROGRESS", RootStackType)}},
		{SNS: events.SNSEntity{Message: cfMessage(stackName, "CREATE_COMPLETE", RootStackType)}},
		{SNS: events.SNSEntity{Message: cfMessage("event-stream-gone-1", "DELETE_COMPLETE", RootStackType)}},
	}}
	if err := h.HandleSNSEvent(ctx, ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	es, err := store.Get(ctx, "dataset-id/1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if es.Status != eventstream.StatusActive || es.ConfigVersion != 2 {
		t.Fatalf("expected ACTIVE at version 2, got %s at %d", es.Status, es.ConfigVersion)
	}
}
