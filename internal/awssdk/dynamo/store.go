package dynamo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	awserrors "github.com/mikecbrant/event-streams/internal/awssdk/errors"
	"github.com/mikecbrant/event-streams/internal/eventstream"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

// Client is the subset of the DynamoDB API used by Store.
type Client interface {
	TxWriter
	Query(context.Context, *dynamodb.QueryInput, ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store persists every version of an event stream as its own item under a
// shared partition key. Writes are conditional on the previous version being
// the latest, so concurrent writers that read the same version cannot both win.
type Store struct {
	client Client
	table  string
	logger logging.Logger
}

// NewStore returns a Store over table.
func NewStore(client Client, table string, logger logging.Logger) *Store {
	return &Store{client: client, table: table, logger: logging.OrNop(logger)}
}

// Get returns the highest version of id.
func (s *Store) Get(ctx context.Context, id string) (*eventstream.EventStream, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(s.table),
		KeyConditionExpression:    aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":pk": StringAttribute(StreamPK(id))},
		ScanIndexForward:          aws.Bool(false),
		Limit:                     aws.Int32(1),
		ConsistentRead:            aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamo: get %s: %w", id, awserrors.Classify(err))
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("%w: %s", eventstream.ErrNoRecord, id)
	}
	var es eventstream.EventStream
	if err := attributevalue.UnmarshalMap(out.Items[0], &es); err != nil {
		return nil, fmt.Errorf("dynamo: decode %s: %w", id, err)
	}
	if es.Sinks == nil {
		es.Sinks = []eventstream.Sink{}
	}
	s.logger.Debug("dynamo.store.get", logging.Fields{"id": id, "configVersion": es.ConfigVersion})
	return &es, nil
}

// Put writes es as a new version. When expectedVersion is non-zero the
// transaction also checks that the expected version's item exists; the new
// item itself must not exist yet.
func (s *Store) Put(ctx context.Context, es *eventstream.EventStream, expectedVersion int) error {
	if err := eventstream.CheckNextVersion(es, expectedVersion); err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(es)
	if err != nil {
		return fmt.Errorf("dynamo: encode %s: %w", es.ID, err)
	}
	for k, v := range StreamVersionKey(es.ID, es.ConfigVersion) {
		item[k] = v
	}

	var checks []TxCheck
	if expectedVersion > 0 {
		checks = append(checks, TxCheck{
			Key:                 StreamVersionKey(es.ID, expectedVersion),
			ConditionExpression: "attribute_exists(PK)",
		})
	}
	err = WriteTransaction(ctx, s.client, s.table, []TxPut{{Item: item}}, checks, s.logger)
	switch {
	case err == nil:
		return nil
	case awserrors.IsConflict(err):
		return fmt.Errorf("%w: %s expected %d", eventstream.ErrVersionConflict, es.ID, expectedVersion)
	default:
		return fmt.Errorf("dynamo: put %s: %w", es.ID, err)
	}
}

var _ eventstream.Store = (*Store)(nil)
