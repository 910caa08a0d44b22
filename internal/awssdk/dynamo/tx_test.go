package dynamo

import (
	"context"
	"testing"

	"github.com/mikecbrant/event-streams/internal/testutil"
)

func TestWriteTransaction_BuildsActions(t *testing.T) {
	c := &testutil.FakeDynamoClient{}
	l := &testutil.BufferLogger{}
	item := Item{"PK": StringAttribute("A"), "SK": StringAttribute("B")}
	existing := Item{"PK": StringAttribute("A"), "SK": StringAttribute("C")}
	if err := WriteTransaction(context.Background(), c, "tbl", []TxPut{{Item: existing}}, nil, l); err != nil {
		t.Fatalf("seed: %v", err)
	}
	check := TxCheck{Key: existing, ConditionExpression: "attribute_exists(PK)"}
	if err := WriteTransaction(context.Background(), c, "tbl", []TxPut{{Item: item}}, []TxCheck{check}, l); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	in := c.TxIn
	if in == nil || len(in.TransactItems) != 2 || in.TransactItems[0].ConditionCheck == nil || in.TransactItems[1].Put == nil {
		t.Fatalf("unexpected transact items: %#v", in)
	}
	put := in.TransactItems[1].Put
	if put.ConditionExpression == nil || *put.ConditionExpression != notExistsCondition {
		t.Fatalf("expected not-exists condition on put, got: %v", put.ConditionExpression)
	}
	if put.TableName == nil || *put.TableName != "tbl" || *in.TransactItems[0].ConditionCheck.TableName != "tbl" {
		t.Fatalf("table name must be set on every action")
	}
	if len(l.Calls) == 0 {
		t.Fatalf("expected logs to be emitted")
	}
}

func TestWriteTransaction_InvalidInput(t *testing.T) {
	c := &testutil.FakeDynamoClient{}
	l := &testutil.BufferLogger{}
	if err := WriteTransaction(context.Background(), c, "tbl", nil, nil, l); err == nil {
		t.Fatalf("expected error on empty input")
	}
	item := Item{"PK": StringAttribute("A")}
	if err := WriteTransaction(context.Background(), c, "", []TxPut{{Item: item}}, nil, l); err == nil {
		t.Fatalf("expected error on missing table")
	}
	if c.TxIn != nil {
		t.Fatalf("client must not be called on invalid input")
	}
}

func TestWriteTransaction_ClassifiesErrors(t *testing.T) {
	c := &testutil.FakeDynamoClient{TxErr: testutil.APIError{Code: "ThrottlingException"}}
	l := &testutil.BufferLogger{}
	err := WriteTransaction(context.Background(), c, "tbl", []TxPut{{Item: Item{}}}, nil, l)
	if err == nil || !testutil.Contains(err.Error(), "retryable") {
		t.Fatalf("expected retryable error, got %v", err)
	}
	if !testutil.Contains(l.Entries[len(l.Entries)-1], "dynamo.tx.failed") {
		t.Fatalf("expected failure log, got %v", l.Entries)
	}
}
