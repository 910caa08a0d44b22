package dynamo

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	awserrors "github.com/mikecbrant/event-streams/internal/awssdk/errors"
	"github.com/mikecbrant/event-streams/internal/utils/logging"
)

const notExistsCondition = "attribute_not_exists(PK) AND attribute_not_exists(SK)"

// TxPut defines a put with a standard not-exists condition for (PK, SK).
type TxPut struct {
	Item Item
}

// TxCheck defines a condition check on an existing key.
type TxCheck struct {
	Key                 Item
	ConditionExpression string
}

// TxWriter is the subset of the DynamoDB client used for transactions.
type TxWriter interface {
	TransactWriteItems(context.Context, *dynamodb.TransactWriteItemsInput, ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// WriteTransaction composes a TransactWriteItems call against table.
// It applies not-exists conditions for each TxPut and classifies errors.
func WriteTransaction(ctx context.Context, client TxWriter, table string, puts []TxPut, checks []TxCheck, logger logging.Logger) error {
	logger = logging.OrNop(logger)
	if len(puts) == 0 && len(checks) == 0 {
		return errors.New("dynamo: WriteTransaction requires at least one put or check")
	}
	if table == "" {
		return errors.New("dynamo: WriteTransaction requires a table name")
	}
	actions := make([]types.TransactWriteItem, 0, len(puts)+len(checks))
	for i, c := range checks {
		actions = append(actions, types.TransactWriteItem{ConditionCheck: &types.ConditionCheck{
			TableName:           aws.String(table),
			Key:                 c.Key,
			ConditionExpression: aws.String(c.ConditionExpression),
		}})
		logger.Debug("dynamo.tx.check", logging.Fields{"index": i})
	}
	for i, p := range puts {
		actions = append(actions, types.TransactWriteItem{Put: &types.Put{
			TableName:           aws.String(table),
			Item:                p.Item,
			ConditionExpression: aws.String(notExistsCondition),
		}})
		logger.Debug("dynamo.tx.put", logging.Fields{"index": i})
	}
	_, err := client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: actions})
	if err != nil {
		err = awserrors.Classify(err)
		logger.Warn("dynamo.tx.failed", logging.Fields{"table": table, "error": err.Error()})
		return err
	}
	logger.Info("dynamo.tx.ok", logging.Fields{"table": table, "puts": len(puts), "checks": len(checks)})
	return nil
}
