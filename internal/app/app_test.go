package app

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/mikecbrant/event-streams/internal/config"
	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/lifecycle"
	"github.com/mikecbrant/event-streams/internal/testutil"
)

func TestNew_EndToEndOverFakes(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()
	cfg.Region = "eu-west-1"
	cfg.Catalog.DefaultAccessRights = "restricted"

	db := &testutil.FakeDynamoClient{}
	cf := &testutil.FakeCloudFormationClient{}
	st := &testutil.FakeSTSClient{Account: "123456789012"}
	a, err := New(ctx, cfg, Clients{Dynamo: db, CloudFormation: cf, STS: st}, &testutil.BufferLogger{})
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, err := a.Services.Streams.Create(ctx, "ds1", "1", "alice", true); err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(cf.Created) != 1 {
		t.Fatalf("expected one stack, got %d", len(cf.Created))
	}
	want := "arn:aws:sns:eu-west-1:123456789012:event-stream-api-cloudformation-events"
	if got := cf.Created[0].NotificationARNs; len(got) != 1 || got[0] != want {
		t.Fatalf("notification arns: %v", got)
	}
	if aws.ToString(db.TxIn.TransactItems[0].Put.TableName) != "event-streams" {
		t.Fatalf("table name not wired")
	}

	body := "StackName='event-stream-ds1-1'\nResourceStatus='CREATE_COMPLETE'\nResourceType='AWS::CloudFormation::Stack'\n"
	res, err := a.Handler.HandleMessage(ctx, body)
	if err != nil || res != lifecycle.ResultApplied {
		t.Fatalf("handle: %s %v", res, err)
	}
	view, err := a.Services.Streams.Get(ctx, "ds1", "1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if view.Status != eventstream.StatusActive || view.Confidentiality != "yellow" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if db.Len() != 2 {
		t.Fatalf("expected two stored versions, got %d", db.Len())
	}
}

func TestNew_ConfiguredTopicSkipsSTS(t *testing.T) {
	cfg := config.Default()
	cfg.Topic.ARN = "arn:aws:sns:eu-west-1:1:t"
	st := &testutil.FakeSTSClient{}
	if _, err := New(context.Background(), cfg, Clients{Dynamo: &testutil.FakeDynamoClient{}, CloudFormation: &testutil.FakeCloudFormationClient{}, STS: st}, nil); err != nil {
		t.Fatalf("new: %v", err)
	}
	if st.Calls != 0 {
		t.Fatalf("sts must not be called when the topic arn is configured")
	}
	if _, err := New(context.Background(), config.Default(), Clients{}, nil); err == nil {
		t.Fatalf("expected error without clients")
	}
}
