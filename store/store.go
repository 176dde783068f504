package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// Client is the slice of the DynamoDB API the store consumes. Tests
// substitute an in-memory implementation.
type Client interface {
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// Store issues all DynamoDB operations for the report table.
type Store struct {
	client Client
	config Config
	logger *zap.Logger
}

// New creates a Store over the given client.
func New(client Client, config Config, logger *zap.Logger) *Store {
	config.validate()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		client: client,
		config: config,
		logger: logger,
	}
}

// Config returns the store's physical table configuration.
func (s *Store) Config() Config {
	return s.config
}

// TransactPut writes all items as a single atomic transaction: either every
// item is durably written or none is. No partial-success state is ever
// exposed to callers.
func (s *Store) TransactPut(ctx context.Context, items []map[string]types.AttributeValue) error {
	writes := make([]types.TransactWriteItem, 0, len(items))
	for _, item := range items {
		writes = append(writes, types.TransactWriteItem{
			Put: &types.Put{
				TableName: aws.String(s.config.Table),
				Item:      item,
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		s.logger.Error("transact put failed",
			zap.String("table", s.config.Table),
			zap.Int("items", len(items)),
			zap.Error(err),
		)
		return fmt.Errorf("transact put: %w", classify(err))
	}
	return nil
}

// TransactDelete removes all keys as a single atomic transaction.
func (s *Store) TransactDelete(ctx context.Context, keys []PK) error {
	writes := make([]types.TransactWriteItem, 0, len(keys))
	for _, key := range keys {
		writes = append(writes, types.TransactWriteItem{
			Delete: &types.Delete{
				TableName: aws.String(s.config.Table),
				Key:       key,
			},
		})
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: writes,
	})
	if err != nil {
		s.logger.Error("transact delete failed",
			zap.String("table", s.config.Table),
			zap.Int("keys", len(keys)),
			zap.Error(err),
		)
		return fmt.Errorf("transact delete: %w", classify(err))
	}
	return nil
}

// Get retrieves a single item by key, returning ErrNotFound if absent.
func (s *Store) Get(ctx context.Context, key PK) (map[string]types.AttributeValue, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.config.Table),
		Key:       key,
	})
	if err != nil {
		s.logger.Error("get item failed", zap.String("table", s.config.Table), zap.Error(err))
		return nil, fmt.Errorf("get item: %w", classify(err))
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}
	return result.Item, nil
}

// UpdateField sets a single attribute, addressed by a dotted path, and
// returns the post-update item. The attribute_exists condition keeps the
// update from materializing a new item under a key that was never created;
// a condition failure surfaces as ErrNotFound.
func (s *Store) UpdateField(ctx context.Context, key PK, path string, value types.AttributeValue) (map[string]types.AttributeValue, error) {
	segments := strings.Split(path, ".")
	names := map[string]string{"#pk": "pk"}
	refs := make([]string, len(segments))
	for i, segment := range segments {
		ref := fmt.Sprintf("#p%d", i)
		names[ref] = segment
		refs[i] = ref
	}

	result, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.config.Table),
		Key:                       key,
		UpdateExpression:          aws.String("SET " + strings.Join(refs, ".") + " = :v"),
		ConditionExpression:       aws.String("attribute_exists(#pk)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": value},
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			return nil, ErrNotFound
		}
		s.logger.Error("update item failed",
			zap.String("table", s.config.Table),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("update item: %w", classify(err))
	}
	return result.Attributes, nil
}

// Delete removes a single item. Deleting an absent key is not an error.
func (s *Store) Delete(ctx context.Context, key PK) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.config.Table),
		Key:       key,
	})
	if err != nil {
		s.logger.Error("delete item failed", zap.String("table", s.config.Table), zap.Error(err))
		return fmt.Errorf("delete item: %w", classify(err))
	}
	return nil
}

// QueryPartition returns every record in one base-table partition.
func (s *Store) QueryPartition(ctx context.Context, pk string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue

	paginator := dynamodb.NewQueryPaginator(s.client, &dynamodb.QueryInput{
		TableName:                aws.String(s.config.Table),
		KeyConditionExpression:   aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{"#pk": "pk"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			s.logger.Error("query partition failed", zap.String("pk", pk), zap.Error(err))
			return nil, fmt.Errorf("query partition: %w", classify(err))
		}
		items = append(items, page.Items...)
	}

	return items, nil
}

// PageInput defines one page of an index query.
type PageInput struct {
	// IndexName is the GSI to query; empty queries the base table.
	IndexName string

	// KeyConditionExpression is the DynamoDB key condition.
	KeyConditionExpression string

	// FilterExpression is an optional post-read filter.
	FilterExpression string

	// ExpressionAttributeNames maps expression attribute name placeholders.
	ExpressionAttributeNames map[string]string

	// ExpressionAttributeValues maps expression attribute value placeholders.
	ExpressionAttributeValues map[string]types.AttributeValue

	// Limit bounds the number of items read before filtering (0 = no limit).
	Limit int32

	// ExclusiveStartKey resumes the query strictly after this full physical
	// key. Must carry every key attribute of the table and the index.
	ExclusiveStartKey PK
}

// Page is one page of query results.
type Page struct {
	Items []map[string]types.AttributeValue

	// LastEvaluatedKey is the store's resumption key, nil at end of stream.
	// Its presence, not page fullness, signals that more results may exist:
	// a filter can shrink a page below Limit while the partition still has
	// unread rows.
	LastEvaluatedKey PK
}

// QueryPage executes a single bounded query call. It never drains the
// result set; pagination is driven by the caller through ExclusiveStartKey.
func (s *Store) QueryPage(ctx context.Context, in PageInput) (Page, error) {
	input := &dynamodb.QueryInput{
		TableName:                 aws.String(s.config.Table),
		KeyConditionExpression:    aws.String(in.KeyConditionExpression),
		ExpressionAttributeNames:  in.ExpressionAttributeNames,
		ExpressionAttributeValues: in.ExpressionAttributeValues,
	}
	if in.IndexName != "" {
		input.IndexName = aws.String(in.IndexName)
	}
	if in.FilterExpression != "" {
		input.FilterExpression = aws.String(in.FilterExpression)
	}
	if in.Limit > 0 {
		input.Limit = aws.Int32(in.Limit)
	}
	if len(in.ExclusiveStartKey) > 0 {
		input.ExclusiveStartKey = in.ExclusiveStartKey
	}

	result, err := s.client.Query(ctx, input)
	if err != nil {
		s.logger.Error("query page failed",
			zap.String("table", s.config.Table),
			zap.String("index", in.IndexName),
			zap.Error(err),
		)
		return Page{}, fmt.Errorf("query page: %w", classify(err))
	}

	page := Page{Items: result.Items}
	if len(result.LastEvaluatedKey) > 0 {
		page.LastEvaluatedKey = result.LastEvaluatedKey
	}
	return page, nil
}

// classify maps SDK failures onto the store's error taxonomy.
func classify(err error) error {
	var cancelled *types.TransactionCanceledException
	if errors.As(err, &cancelled) {
		for _, reason := range cancelled.CancellationReasons {
			if reason.Code != nil && *reason.Code == "ProvisionedThroughputExceeded" {
				return fmt.Errorf("%w: %v", ErrUnavailable, err)
			}
		}
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	var throughput *types.ProvisionedThroughputExceededException
	var requestLimit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if errors.As(err, &throughput) || errors.As(err, &requestLimit) || errors.As(err, &internal) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorFault() == smithy.FaultClient {
		return fmt.Errorf("%w: %v", ErrRejected, err)
	}

	// Connectivity failures and anything unrecognized: retryable by the caller.
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
