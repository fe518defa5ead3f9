package remote

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// tableWaitTimeout bounds how long EnsureTable waits for a new table.
const tableWaitTimeout = 2 * time.Minute

// EnsureTable creates the list table with an on-demand billing mode if it
// does not exist and waits until it is active. It reports whether the
// table was created.
func (s *Store) EnsureTable(ctx context.Context) (bool, error) {
	callCtx, cancel := s.callContext(ctx)
	_, err := s.api.DescribeTable(callCtx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.cfg.Table),
	})
	cancel()
	if err == nil {
		return false, nil
	}

	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, newError("describe_table", s.cfg.Table, 0, err)
	}

	callCtx, cancel = s.callContext(ctx)
	_, err = s.api.CreateTable(callCtx, &dynamodb.CreateTableInput{
		TableName: aws.String(s.cfg.Table),
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(attrID), AttributeType: types.ScalarAttributeTypeN},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(attrID), KeyType: types.KeyTypeHash},
		},
		BillingMode: types.BillingModePayPerRequest,
	})
	cancel()
	if err != nil {
		return false, newError("create_table", s.cfg.Table, 0, err)
	}

	s.logger.Info().Str("table", s.cfg.Table).Msg("created table")

	waiter := dynamodb.NewTableExistsWaiter(s.api, func(o *dynamodb.TableExistsWaiterOptions) {
		o.MinDelay = 500 * time.Millisecond
		o.MaxDelay = 5 * time.Second
	})
	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.cfg.Table),
	}, tableWaitTimeout); err != nil {
		return true, newError("wait_table", s.cfg.Table, 0, err)
	}
	return true, nil
}
