// Package testutil provides fakes for the AWS client interfaces and a
// recording logger.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	cfn "github.com/aws/aws-sdk-go-v2/service/cloudformation"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/aws/smithy-go"

	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// APIError is a minimal smithy.APIError.
type APIError struct{ Code string }

func (e APIError) Error() string                 { return e.Code }
func (e APIError) ErrorCode() string             { return e.Code }
func (e APIError) ErrorMessage() string          { return e.Code }
func (e APIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

var _ smithy.APIError = APIError{}

// FakeDynamoClient is an in-memory table keyed by (PK, SK). It evaluates the
// two condition shapes the store emits: attribute_exists(PK) on a check and
// not-exists on a put.
type FakeDynamoClient struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	TxIn     *dynamodb.TransactWriteItemsInput
	TxErr    error
	QueryIn  *dynamodb.QueryInput
	QueryErr error
}

func itemKey(item map[string]types.AttributeValue) string {
	return attrString(item["PK"]) + "|" + attrString(item["SK"])
}

func attrString(v types.AttributeValue) string {
	if s, ok := v.(*types.AttributeValueMemberS); ok {
		return s.Value
	}
	return ""
}

// TransactWriteItems records the input and applies it atomically unless a
// condition fails or TxErr is set.
func (f *FakeDynamoClient) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.TxIn = in
	if f.TxErr != nil {
		return nil, f.TxErr
	}
	if f.items == nil {
		f.items = map[string]map[string]types.AttributeValue{}
	}
	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, a := range in.TransactItems {
		reasons[i].Code = aws.String("None")
		switch {
		case a.ConditionCheck != nil:
			if _, ok := f.items[itemKey(a.ConditionCheck.Key)]; !ok {
				reasons[i].Code, failed = aws.String("ConditionalCheckFailed"), true
			}
		case a.Put != nil:
			if _, ok := f.items[itemKey(a.Put.Item)]; ok && a.Put.ConditionExpression != nil {
				reasons[i].Code, failed = aws.String("ConditionalCheckFailed"), true
			}
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}
	for _, a := range in.TransactItems {
		if a.Put != nil {
			f.items[itemKey(a.Put.Item)] = a.Put.Item
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// Query returns items whose PK equals :pk, honouring ScanIndexForward and Limit.
func (f *FakeDynamoClient) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.QueryIn = in
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	pk := attrString(in.ExpressionAttributeValues[":pk"])
	var out []map[string]types.AttributeValue
	for _, item := range f.items {
		if attrString(item["PK"]) == pk {
			out = append(out, item)
		}
	}
	forward := in.ScanIndexForward == nil || *in.ScanIndexForward
	sort.Slice(out, func(i, j int) bool {
		if forward {
			return attrString(out[i]["SK"]) < attrString(out[j]["SK"])
		}
		return attrString(out[i]["SK"]) > attrString(out[j]["SK"])
	})
	if in.Limit != nil && int(*in.Limit) < len(out) {
		out = out[:*in.Limit]
	}
	return &dynamodb.QueryOutput{Items: out, Count: int32(len(out))}, nil
}

// Len returns the number of stored items.
func (f *FakeDynamoClient) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

// FakeCloudFormationClient records stack calls. CreateErrs are returned by
// the first create calls, one each, before CreateErr applies.
type FakeCloudFormationClient struct {
	Created    []*cfn.CreateStackInput
	Deleted    []*cfn.DeleteStackInput
	CreateErrs []error
	CreateErr  error
	DeleteErr  error
}

// CreateStack records the input and returns the next queued error or CreateErr.
func (f *FakeCloudFormationClient) CreateStack(_ context.Context, in *cfn.CreateStackInput, _ ...func(*cfn.Options)) (*cfn.CreateStackOutput, error) {
	f.Created = append(f.Created, in)
	if len(f.CreateErrs) > 0 {
		err := f.CreateErrs[0]
		f.CreateErrs = f.CreateErrs[1:]
		return nil, err
	}
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}
	return &cfn.CreateStackOutput{StackId: aws.String("arn:aws:cloudformation:stack/" + aws.ToString(in.StackName))}, nil
}

// DeleteStack records the input and returns DeleteErr.
func (f *FakeCloudFormationClient) DeleteStack(_ context.Context, in *cfn.DeleteStackInput, _ ...func(*cfn.Options)) (*cfn.DeleteStackOutput, error) {
	f.Deleted = append(f.Deleted, in)
	return &cfn.DeleteStackOutput{}, f.DeleteErr
}

// FakeSTSClient returns a fixed account id.
type FakeSTSClient struct {
	Account string
	Err     error
	Calls   int
}

// GetCallerIdentity returns Account or Err.
func (f *FakeSTSClient) GetCallerIdentity(_ context.Context, _ *sts.GetCallerIdentityInput, _ ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return &sts.GetCallerIdentityOutput{Account: aws.String(f.Account)}, nil
}

// BufferLogger is a buffer-backed logger that records calls for assertions.
type BufferLogger struct {
	mu      sync.Mutex
	Calls   []string
	Entries []string
}

// Debug records a debug-level log entry.
func (l *BufferLogger) Debug(msg string, ctx logging.Fields) { l.record("debug", msg, ctx) }

// Info records an info-level log entry.
func (l *BufferLogger) Info(msg string, ctx logging.Fields) { l.record("info", msg, ctx) }

// Warn records a warn-level log entry.
func (l *BufferLogger) Warn(msg string, ctx logging.Fields) { l.record("warn", msg, ctx) }

// Error records an error-level log entry.
func (l *BufferLogger) Error(msg string, ctx logging.Fields) { l.record("error", msg, ctx) }

func (l *BufferLogger) record(level, msg string, ctx logging.Fields) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Calls = append(l.Calls, level)
	// simple human-readable capture for assertions; not a JSON serializer
	l.Entries = append(l.Entries, fmt.Sprintf("%s: %s ctx=%v", level, msg, ctx))
}

// Has reports whether any entry contains sub.
func (l *BufferLogger) Has(sub string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.Entries {
		if strings.Contains(e, sub) {
			return true
		}
	}
	return false
}

var _ logging.Logger = (*BufferLogger)(nil)

// Contains reports whether s contains sub; exported for reuse across tests.
func Contains(s, sub string) bool { return strings.Contains(s, sub) }

// StackCall is one recorded provisioner call.
type StackCall struct {
	Op   string
	Name string
	Body string
	Tags map[string]string
}

// FakeProvisioner records stack requests. CreateErr and DeleteErr are
// returned from the matching calls.
type FakeProvisioner struct {
	mu        sync.Mutex
	Calls     []StackCall
	CreateErr error
	DeleteErr error
}

// CreateStack records a create call.
func (p *FakeProvisioner) CreateStack(_ context.Context, name, body string, tags map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, StackCall{Op: "create", Name: name, Body: body, Tags: tags})
	return p.CreateErr
}

// DeleteStack records a delete call.
func (p *FakeProvisioner) DeleteStack(_ context.Context, name string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls = append(p.Calls, StackCall{Op: "delete", Name: name})
	return p.DeleteErr
}

// Names returns "op:name" for every recorded call.
func (p *FakeProvisioner) Names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.Calls))
	for _, c := range p.Calls {
		out = append(out, c.Op+":"+c.Name)
	}
	return out
}
