package cloudformation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudformation/types"
	"github.com/google/go-cmp/cmp"

	awserrors "github.com/mikecbrant/event-streams/internal/awssdk/errors"
	"github.com/mikecbrant/event-streams/internal/testutil"
)

func TestCreateStack(t *testing.T) {
	c := &testutil.FakeCloudFormationClient{}
	l := &testutil.BufferLogger{}
	p := NewProvisioner(c, "arn:aws:sns:eu-west-1:123:topic", l)

	err := p.CreateStack(context.Background(), "event-stream-ds1-1", `{"Resources":{}}`, map[string]string{"z": "1", "created_by": "alice"})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(c.Created) != 1 {
		t.Fatalf("expected one create call, got %d", len(c.Created))
	}
	in := c.Created[0]
	if aws.ToString(in.StackName) != "event-stream-ds1-1" || aws.ToString(in.TemplateBody) != `{"Resources":{}}` {
		t.Fatalf("unexpected input: %#v", in)
	}
	if len(in.Capabilities) != 1 || in.Capabilities[0] != types.CapabilityCapabilityNamedIam {
		t.Fatalf("expected CAPABILITY_NAMED_IAM, got %v", in.Capabilities)
	}
	if diff := cmp.Diff([]string{"arn:aws:sns:eu-west-1:123:topic"}, in.NotificationARNs); diff != "" {
		t.Fatalf("notification arns (-want +got):\n%s", diff)
	}
	if len(in.Tags) != 2 || aws.ToString(in.Tags[0].Key) != "created_by" || aws.ToString(in.Tags[0].Value) != "alice" {
		t.Fatalf("tags must be sorted by key: %#v", in.Tags)
	}
	if !l.Has("cloudformation.create") {
		t.Fatalf("expected create log, got %v", l.Entries)
	}
}

func TestCreateStack_ClassifiesErrors(t *testing.T) {
	c := &testutil.FakeCloudFormationClient{CreateErr: testutil.APIError{Code: "AlreadyExistsException"}}
	l := &testutil.BufferLogger{}
	p := NewProvisioner(c, "", l)
	err := p.CreateStack(context.Background(), "s", "{}", nil)
	var conflict *awserrors.ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if c.Created[0].NotificationARNs != nil {
		t.Fatalf("no topic configured means no notification arns")
	}
	if !l.Has("cloudformation.create.failed") {
		t.Fatalf("expected failure log")
	}
}

func TestCreateStack_CompactsTemplateBody(t *testing.T) {
	c := &testutil.FakeCloudFormationClient{}
	p := NewProvisioner(c, "", nil)
	body := "{\n  \"Resources\": {\n    \"A\": {\"Type\": \"AWS::Kinesis::Stream\"}\n  }\n}"
	if err := p.CreateStack(context.Background(), "s", body, nil); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := aws.ToString(c.Created[0].TemplateBody); got != `{"Resources":{"A":{"Type":"AWS::Kinesis::Stream"}}}` {
		t.Fatalf("expected compact body, got %s", got)
	}
}

func TestCreateStack_RetriesThrottling(t *testing.T) {
	c := &testutil.FakeCloudFormationClient{CreateErrs: []error{
		testutil.APIError{Code: "Throttling"},
		testutil.APIError{Code: "Throttling"},
	}}
	l := &testutil.BufferLogger{}
	p := NewProvisioner(c, "", l, WithRetry(3, 0))
	if err := p.CreateStack(context.Background(), "s", "{}", nil); err != nil {
		t.Fatalf("expected success on the third attempt, got %v", err)
	}
	if len(c.Created) != 3 || !l.Has("cloudformation.create.retry") {
		t.Fatalf("expected two retries, got %d calls and %v", len(c.Created), l.Entries)
	}

	c = &testutil.FakeCloudFormationClient{CreateErr: testutil.APIError{Code: "Throttling"}}
	p = NewProvisioner(c, "", nil, WithRetry(2, 0))
	err := p.CreateStack(context.Background(), "s", "{}", nil)
	if !awserrors.IsRetryable(err) || len(c.Created) != 2 {
		t.Fatalf("expected retryable error after two calls, got %v after %d", err, len(c.Created))
	}
}

func TestCreateStack_RetryStopsOnCancel(t *testing.T) {
	c := &testutil.FakeCloudFormationClient{CreateErr: testutil.APIError{Code: "Throttling"}}
	p := NewProvisioner(c, "", nil, WithRetry(5, time.Hour))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.CreateStack(ctx, "s", "{}", nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
	if len(c.Created) != 1 {
		t.Fatalf("expected a single call, got %d", len(c.Created))
	}
}

func TestDeleteStack(t *testing.T) {
	c := &testutil.FakeCloudFormationClient{}
	p := NewProvisioner(c, "", nil)
	if err := p.DeleteStack(context.Background(), "event-sink-ds1-1-abcde"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if len(c.Deleted) != 1 || aws.ToString(c.Deleted[0].StackName) != "event-sink-ds1-1-abcde" {
		t.Fatalf("unexpected delete calls: %#v", c.Deleted)
	}
	c.DeleteErr = errors.New("boom")
	if err := p.DeleteStack(context.Background(), "x"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestResolveTopicARN(t *testing.T) {
	s := &testutil.FakeSTSClient{Account: "123456789012"}
	arn, err := ResolveTopicARN(context.Background(), s, "eu-west-1", "")
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if arn != "arn:aws:sns:eu-west-1:123456789012:event-stream-api-cloudformation-events" {
		t.Fatalf("unexpected arn: %s", arn)
	}
	if _, err := ResolveTopicARN(context.Background(), s, "", "t"); err == nil {
		t.Fatalf("expected error without region")
	}
	s.Err = errors.New("denied")
	if _, err := ResolveTopicARN(context.Background(), s, "eu-west-1", "t"); err == nil {
		t.Fatalf("expected sts error")
	}
}
