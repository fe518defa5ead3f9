package remote

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// mockDynamo is a mock implementation of DynamoAPI.
// Each operation can be customized through its function field.
type mockDynamo struct {
	PutItemFunc       func(context.Context, *dynamodb.PutItemInput, ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItemFunc       func(context.Context, *dynamodb.GetItemInput, ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	DeleteItemFunc    func(context.Context, *dynamodb.DeleteItemInput, ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	ScanFunc          func(context.Context, *dynamodb.ScanInput, ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTableFunc func(context.Context, *dynamodb.DescribeTableInput, ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTableFunc   func(context.Context, *dynamodb.CreateTableInput, ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

func (m *mockDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	if m.PutItemFunc != nil {
		return m.PutItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (m *mockDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if m.GetItemFunc != nil {
		return m.GetItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.GetItemOutput{}, nil
}

func (m *mockDynamo) DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	if m.DeleteItemFunc != nil {
		return m.DeleteItemFunc(ctx, params, optFns...)
	}
	return &dynamodb.DeleteItemOutput{}, nil
}

func (m *mockDynamo) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	if m.ScanFunc != nil {
		return m.ScanFunc(ctx, params, optFns...)
	}
	return &dynamodb.ScanOutput{}, nil
}

func (m *mockDynamo) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	if m.DescribeTableFunc != nil {
		return m.DescribeTableFunc(ctx, params, optFns...)
	}
	return &dynamodb.DescribeTableOutput{}, nil
}

func (m *mockDynamo) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	if m.CreateTableFunc != nil {
		return m.CreateTableFunc(ctx, params, optFns...)
	}
	return &dynamodb.CreateTableOutput{}, nil
}

// fakeTable is an in-memory table that pages Scan results.
type fakeTable struct {
	mu       sync.Mutex
	items    map[int]map[string]types.AttributeValue
	pageSize int
	scans    int
}

func newFakeTable(pageSize int) *fakeTable {
	return &fakeTable{
		items:    make(map[int]map[string]types.AttributeValue),
		pageSize: pageSize,
	}
}

func (f *fakeTable) mock() *mockDynamo {
	return &mockDynamo{
		PutItemFunc: func(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			id := keyID(in.Item)
			f.items[id] = in.Item
			return &dynamodb.PutItemOutput{}, nil
		},
		GetItemFunc: func(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			return &dynamodb.GetItemOutput{Item: f.items[keyID(in.Key)]}, nil
		},
		DeleteItemFunc: func(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.items, keyID(in.Key))
			return &dynamodb.DeleteItemOutput{}, nil
		},
		ScanFunc: func(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.scans++

			ids := make([]int, 0, len(f.items))
			for id := range f.items {
				ids = append(ids, id)
			}
			// Descending so the store has to sort.
			sort.Sort(sort.Reverse(sort.IntSlice(ids)))

			start := 0
			if in.ExclusiveStartKey != nil {
				last := keyID(in.ExclusiveStartKey)
				for i, id := range ids {
					if id == last {
						start = i + 1
						break
					}
				}
			}

			end := start + f.pageSize
			if end > len(ids) {
				end = len(ids)
			}

			out := &dynamodb.ScanOutput{}
			for _, id := range ids[start:end] {
				out.Items = append(out.Items, f.items[id])
			}
			if end < len(ids) {
				out.LastEvaluatedKey = keyOf(ids[end-1])
			}
			return out, nil
		},
	}
}

func keyID(item map[string]types.AttributeValue) int {
	n, ok := item[attrID].(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	id, _ := strconv.Atoi(n.Value)
	return id
}
