package remote

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helpmebuyapp/helpmebuy/internal/model"
	"github.com/helpmebuyapp/helpmebuy/internal/repository"
)

var _ repository.Repository = (*Store)(nil)

func testConfig() Config {
	return Config{Table: "TestLists", Timeout: time.Second}
}

func TestStore_PutItemShape(t *testing.T) {
	var got *dynamodb.PutItemInput
	m := &mockDynamo{
		PutItemFunc: func(ctx context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "put should run under a per-call deadline")
			got = in
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewWithClient(m, testConfig())

	id, err := s.Insert(context.Background(), &Record{
		ID:    7,
		Name:  "Weekly",
		Items: []model.Item{{Name: "Milk", Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, 7, id)

	require.NotNil(t, got)
	assert.Equal(t, "TestLists", aws.ToString(got.TableName))
	assert.Equal(t, &types.AttributeValueMemberN{Value: "7"}, got.Item[attrID])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "Weekly"}, got.Item[attrName])
	assert.Equal(t, &types.AttributeValueMemberS{Value: model.DefaultCategory}, got.Item[attrCategory])
	assert.Equal(t, &types.AttributeValueMemberS{Value: `[{"name":"Milk","quantity":2}]`}, got.Item[attrItems])
}

func TestStore_RoundTripThroughTable(t *testing.T) {
	table := newFakeTable(2)
	s := NewWithClient(table.mock(), testConfig())
	ctx := context.Background()

	items := []model.Item{{Name: "Eggs", Quantity: 12}}
	_, err := s.Insert(ctx, &Record{ID: 1, Name: "Breakfast", Category: "Food", Items: items})
	require.NoError(t, err)

	got, err := repository.Lookup(ctx, s, 1)
	require.NoError(t, err)
	require.NotNil(t, got)

	rec, ok := got.(*Record)
	require.True(t, ok, "GetByID should emit *Record, got %T", got)
	assert.Equal(t, "Breakfast", rec.Name)
	assert.Equal(t, "Food", rec.Category)
	assert.Equal(t, items, rec.Items)
}

func TestStore_UpdateReplacesWholesale(t *testing.T) {
	table := newFakeTable(10)
	s := NewWithClient(table.mock(), testConfig())
	ctx := context.Background()

	_, err := s.Insert(ctx, &Record{ID: 3, Name: "Old", Category: "A", Items: []model.Item{{Name: "Milk", Quantity: 1}}})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, model.List{ID: 3, Name: "New", Category: "B"}))

	got, err := repository.Lookup(ctx, s, 3)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "New", got.EntityName())
	assert.Equal(t, "B", got.EntityCategory())
	assert.Empty(t, model.ItemsOf(got))
}

func TestStore_UpdateUnknownIDCreates(t *testing.T) {
	table := newFakeTable(10)
	s := NewWithClient(table.mock(), testConfig())
	ctx := context.Background()

	require.NoError(t, s.Update(ctx, model.List{ID: 11, Name: "Upserted"}))

	got, err := repository.Lookup(ctx, s, 11)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Upserted", got.EntityName())
}

func TestStore_DeleteAndMissing(t *testing.T) {
	table := newFakeTable(10)
	s := NewWithClient(table.mock(), testConfig())
	ctx := context.Background()

	_, err := s.Insert(ctx, model.List{ID: 5, Name: "Gone soon"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, model.List{ID: 5}))
	require.NoError(t, s.Delete(ctx, model.List{ID: 5}), "deleting a missing id is a no-op")

	got, err := repository.Lookup(ctx, s, 5)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStore_GetAllFollowsPagination(t *testing.T) {
	table := newFakeTable(2)
	s := NewWithClient(table.mock(), testConfig())
	ctx := context.Background()

	for id := 1; id <= 5; id++ {
		_, err := s.Insert(ctx, model.List{ID: id, Name: "list"})
		require.NoError(t, err)
	}

	all, err := repository.Snapshot(ctx, s)
	require.NoError(t, err)
	require.Len(t, all, 5)
	for i, e := range all {
		assert.Equal(t, i+1, e.EntityID(), "lists should be ordered by id")
	}
	assert.Equal(t, 3, table.scans, "5 items at page size 2 take 3 scan calls")
}

func TestStore_GetAllEmitsOnceAndCloses(t *testing.T) {
	s := NewWithClient(newFakeTable(10).mock(), testConfig())

	ch, err := s.GetAll(context.Background())
	require.NoError(t, err)

	first, ok := <-ch
	require.True(t, ok)
	assert.Empty(t, first)

	_, ok = <-ch
	assert.False(t, ok, "remote feed should close after one emission")
}

func TestStore_ErrorsMatchSentinels(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		wantUnavailable bool
	}{
		{
			name:            "throttling",
			err:             &smithy.GenericAPIError{Code: "ThrottlingException", Message: "slow down"},
			wantUnavailable: true,
		},
		{
			name:            "connection refused",
			err:             &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")},
			wantUnavailable: true,
		},
		{
			name:            "deadline",
			err:             context.DeadlineExceeded,
			wantUnavailable: true,
		},
		{
			name:            "validation",
			err:             &smithy.GenericAPIError{Code: "ValidationException", Message: "bad"},
			wantUnavailable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockDynamo{
				PutItemFunc: func(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
					return nil, tt.err
				},
			}
			s := NewWithClient(m, testConfig())

			err := s.Update(context.Background(), model.List{ID: 1, Name: "x"})
			require.Error(t, err)
			assert.ErrorIs(t, err, model.ErrRemote)
			assert.Equal(t, tt.wantUnavailable, errors.Is(err, model.ErrRemoteUnavailable))
			assert.ErrorIs(t, err, tt.err)

			var rerr *Error
			require.ErrorAs(t, err, &rerr)
			assert.Equal(t, "update", rerr.Op)
			assert.Equal(t, "TestLists", rerr.Table)
			assert.Equal(t, 1, rerr.ID)
		})
	}
}

func TestStore_CallTimeout(t *testing.T) {
	m := &mockDynamo{
		ScanFunc: func(ctx context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	s := NewWithClient(m, Config{Table: "TestLists", Timeout: 20 * time.Millisecond})

	_, err := s.GetAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrRemoteUnavailable)
}

func TestStore_RejectsUnsupportedEntity(t *testing.T) {
	called := false
	m := &mockDynamo{
		PutItemFunc: func(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			called = true
			return &dynamodb.PutItemOutput{}, nil
		},
	}
	s := NewWithClient(m, testConfig())

	for _, e := range []model.Entity{
		model.List{ID: 1, Name: ""},
		model.List{ID: 0, Name: "No id"},
		model.List{ID: -2, Name: "Negative"},
	} {
		_, err := s.Insert(context.Background(), e)
		assert.ErrorIs(t, err, model.ErrUnsupportedEntity, "insert %+v", e)
		assert.ErrorIs(t, err, model.ErrRemote, "insert %+v", e)

		err = s.Update(context.Background(), e)
		assert.ErrorIs(t, err, model.ErrUnsupportedEntity, "update %+v", e)
	}
	assert.False(t, called)
}

func TestDecodeItem(t *testing.T) {
	tests := []struct {
		name      string
		item      map[string]types.AttributeValue
		wantName  string
		wantCat   string
		wantItems []model.Item
	}{
		{
			name:     "missing optional attributes",
			item:     map[string]types.AttributeValue{attrID: &types.AttributeValueMemberN{Value: "4"}},
			wantName: "",
			wantCat:  model.DefaultCategory,
		},
		{
			name: "malformed itemsJson",
			item: map[string]types.AttributeValue{
				attrID:    &types.AttributeValueMemberN{Value: "4"},
				attrName:  &types.AttributeValueMemberS{Value: "x"},
				attrItems: &types.AttributeValueMemberS{Value: "{oops"},
			},
			wantName: "x",
			wantCat:  model.DefaultCategory,
		},
		{
			name: "pair encoding",
			item: map[string]types.AttributeValue{
				attrID:       &types.AttributeValueMemberN{Value: "4"},
				attrName:     &types.AttributeValueMemberS{Value: "x"},
				attrCategory: &types.AttributeValueMemberS{Value: "Food"},
				attrItems:    &types.AttributeValueMemberS{Value: `[{"first":"Milk","second":3}]`},
			},
			wantName:  "x",
			wantCat:   "Food",
			wantItems: []model.Item{{Name: "Milk", Quantity: 3}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := decodeItem(tt.item)
			require.NoError(t, err)
			assert.Equal(t, 4, rec.ID)
			assert.Equal(t, tt.wantName, rec.Name)
			assert.Equal(t, tt.wantCat, rec.Category)
			assert.Equal(t, tt.wantItems, rec.Items)
		})
	}

	_, err := decodeItem(map[string]types.AttributeValue{attrName: &types.AttributeValueMemberS{Value: "x"}})
	assert.Error(t, err, "an item without a key cannot be decoded")
}

func TestEnsureTable(t *testing.T) {
	t.Run("existing table", func(t *testing.T) {
		m := &mockDynamo{
			CreateTableFunc: func(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
				t.Fatal("CreateTable should not be called for an existing table")
				return nil, nil
			},
		}
		created, err := NewWithClient(m, testConfig()).EnsureTable(context.Background())
		require.NoError(t, err)
		assert.False(t, created)
	})

	t.Run("missing table", func(t *testing.T) {
		exists := false
		var createIn *dynamodb.CreateTableInput
		m := &mockDynamo{
			DescribeTableFunc: func(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
				if !exists {
					return nil, &types.ResourceNotFoundException{Message: aws.String("no such table")}
				}
				return &dynamodb.DescribeTableOutput{
					Table: &types.TableDescription{TableStatus: types.TableStatusActive},
				}, nil
			},
			CreateTableFunc: func(_ context.Context, in *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
				createIn = in
				exists = true
				return &dynamodb.CreateTableOutput{}, nil
			},
		}

		created, err := NewWithClient(m, testConfig()).EnsureTable(context.Background())
		require.NoError(t, err)
		assert.True(t, created)

		require.NotNil(t, createIn)
		assert.Equal(t, "TestLists", aws.ToString(createIn.TableName))
		assert.Equal(t, types.BillingModePayPerRequest, createIn.BillingMode)
		require.Len(t, createIn.KeySchema, 1)
		assert.Equal(t, attrID, aws.ToString(createIn.KeySchema[0].AttributeName))
	})

	t.Run("describe failure", func(t *testing.T) {
		m := &mockDynamo{
			DescribeTableFunc: func(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
				return nil, &smithy.GenericAPIError{Code: "AccessDeniedException"}
			},
		}
		_, err := NewWithClient(m, testConfig()).EnsureTable(context.Background())
		assert.ErrorIs(t, err, model.ErrRemote)
	})
}
