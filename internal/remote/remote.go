// Package remote provides the DynamoDB mirror of the list store.
//
// The remote store is a single-snapshot Repository: reads return one
// emission and close. Every write is an unconditional full replace keyed by
// list id. Each call runs under its own deadline taken from Config.Timeout.
//
// Errors are always *Error values matching model.ErrRemote, so callers can
// tell remote trouble from local trouble with errors.Is.
package remote

import (
	"context"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/rs/zerolog"

	"github.com/helpmebuyapp/helpmebuy/internal/feed"
	"github.com/helpmebuyapp/helpmebuy/internal/model"
)

// Store talks to one DynamoDB table.
type Store struct {
	api    DynamoAPI
	cfg    Config
	logger zerolog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger.With().Str("component", "remote").Logger()
	}
}

// New creates a Store backed by a DynamoDB client built from cfg.
// Credentials come from the default AWS chain.
//
// Example:
//
//	store, err := remote.New(ctx, remote.DefaultConfig())
//	if err != nil {
//	    return err
//	}
func New(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg = cfg.withDefaults()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, newError("init", cfg.Table, 0, err)
	}

	var ddbOpts []func(*dynamodb.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		ddbOpts = append(ddbOpts, func(o *dynamodb.Options) {
			o.BaseEndpoint = aws.String(endpoint)
		})
	}

	return NewWithClient(dynamodb.NewFromConfig(awsCfg, ddbOpts...), cfg, opts...), nil
}

// NewWithClient creates a Store with a custom DynamoAPI implementation.
// This is primarily used for testing with fake clients.
func NewWithClient(api DynamoAPI, cfg Config, opts ...Option) *Store {
	s := &Store{
		api:    api,
		cfg:    cfg.withDefaults(),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Table returns the table name.
func (s *Store) Table() string {
	return s.cfg.Table
}

func (s *Store) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.Timeout)
}

// Insert writes e under its own id and returns that id.
func (s *Store) Insert(ctx context.Context, e model.Entity) (int, error) {
	if err := s.put(ctx, "insert", e); err != nil {
		return 0, err
	}
	return e.EntityID(), nil
}

// Update writes e under its id, creating it if absent.
func (s *Store) Update(ctx context.Context, e model.Entity) error {
	return s.put(ctx, "update", e)
}

func (s *Store) put(ctx context.Context, op string, e model.Entity) error {
	rec, err := ToRecord(e)
	if err != nil {
		return newError(op, s.cfg.Table, 0, err)
	}

	item, err := encodeItem(rec)
	if err != nil {
		return newError(op, s.cfg.Table, rec.ID, err)
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	_, err = s.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.cfg.Table),
		Item:      item,
	})
	if err != nil {
		return newError(op, s.cfg.Table, rec.ID, err)
	}

	s.logger.Debug().Str("op", op).Int("id", rec.ID).Msg("put list")
	return nil
}

// Delete removes the list with e's id. Missing ids are not an error.
func (s *Store) Delete(ctx context.Context, e model.Entity) error {
	if model.IsNil(e) {
		return newError("delete", s.cfg.Table, 0, model.Validate(e))
	}

	ctx, cancel := s.callContext(ctx)
	defer cancel()

	_, err := s.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.cfg.Table),
		Key:       keyOf(e.EntityID()),
	})
	if err != nil {
		return newError("delete", s.cfg.Table, e.EntityID(), err)
	}
	return nil
}

// GetByID fetches one list. The feed emits once, nil when the id is
// unknown, and closes.
func (s *Store) GetByID(ctx context.Context, id int) (<-chan model.Entity, error) {
	callCtx, cancel := s.callContext(ctx)
	defer cancel()

	out, err := s.api.GetItem(callCtx, &dynamodb.GetItemInput{
		TableName: aws.String(s.cfg.Table),
		Key:       keyOf(id),
	})
	if err != nil {
		return nil, newError("get", s.cfg.Table, id, err)
	}

	if len(out.Item) == 0 {
		return feed.Once[model.Entity](nil), nil
	}

	rec, err := decodeItem(out.Item)
	if err != nil {
		return nil, newError("get", s.cfg.Table, id, err)
	}
	return feed.Once[model.Entity](rec), nil
}

// GetAll scans the whole table, following pagination to the end. The feed
// emits the lists ordered by id once and closes.
func (s *Store) GetAll(ctx context.Context) (<-chan []model.Entity, error) {
	records, err := s.scanAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]model.Entity, len(records))
	for i, r := range records {
		out[i] = r
	}
	return feed.Once(out), nil
}

func (s *Store) scanAll(ctx context.Context) ([]*Record, error) {
	ctx, cancel := s.callContext(ctx)
	defer cancel()

	var records []*Record
	var startKey map[string]types.AttributeValue
	pages := 0

	for {
		out, err := s.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.cfg.Table),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, newError("scan", s.cfg.Table, 0, err)
		}
		pages++

		for _, item := range out.Items {
			rec, err := decodeItem(item)
			if err != nil {
				s.logger.Warn().Err(err).Msg("skipping undecodable item")
				continue
			}
			records = append(records, rec)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	s.logger.Debug().Int("lists", len(records)).Int("pages", pages).Msg("scanned table")
	return records, nil
}

// AutoSuggestions implements repository.Repository.
func (s *Store) AutoSuggestions(query string) []string {
	return model.Suggest(query)
}
