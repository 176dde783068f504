// Package dynamotest provides an in-memory stand-in for the slice of the
// DynamoDB API the store consumes. It models exactly the behaviors the data
// layer depends on: atomic multi-item transactions, partitions sorted by
// sort key, exclusive start keys, and filters that run after the page limit
// is applied. A resumption key is returned only when rows remain past the
// page, the stricter of the behaviors real tables exhibit.
package dynamotest

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Fake is a minimal in-memory DynamoDB table with a string hash key "pk",
// a string range key "sk" and one index partition attribute "gsi1pk".
type Fake struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue

	// TransactErr, when set, is returned by TransactWriteItems before any
	// write is applied, simulating a rejected transaction.
	TransactErr error
}

// New creates an empty Fake.
func New() *Fake {
	return &Fake{items: make(map[string]map[string]types.AttributeValue)}
}

// Len reports the number of stored items.
func (f *Fake) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

func strAttr(item map[string]types.AttributeValue, name string) string {
	if v, ok := item[name].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}

func itemKey(item map[string]types.AttributeValue) (string, error) {
	pk, sk := strAttr(item, "pk"), strAttr(item, "sk")
	if pk == "" || sk == "" {
		return "", fmt.Errorf("dynamotest: item is missing pk or sk")
	}
	return pk + "|" + sk, nil
}

// TransactWriteItems applies all puts and deletes atomically, or none of
// them when TransactErr is set.
func (f *Fake) TransactWriteItems(_ context.Context, params *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.TransactErr != nil {
		return nil, f.TransactErr
	}

	type write struct {
		key  string
		item map[string]types.AttributeValue // nil means delete
	}
	writes := make([]write, 0, len(params.TransactItems))
	for _, t := range params.TransactItems {
		switch {
		case t.Put != nil:
			key, err := itemKey(t.Put.Item)
			if err != nil {
				return nil, err
			}
			writes = append(writes, write{key: key, item: t.Put.Item})
		case t.Delete != nil:
			key, err := itemKey(t.Delete.Key)
			if err != nil {
				return nil, err
			}
			writes = append(writes, write{key: key})
		default:
			return nil, fmt.Errorf("dynamotest: unsupported transact item")
		}
	}

	for _, w := range writes {
		if w.item == nil {
			delete(f.items, w.key)
		} else {
			f.items[w.key] = w.item
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

// GetItem returns the item under the exact key, or a nil Item when absent.
func (f *Fake) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := f.items[key]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: item}, nil
}

// DeleteItem removes the item under the key; absent keys are not an error.
func (f *Fake) DeleteItem(_ context.Context, params *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	delete(f.items, key)
	return &dynamodb.DeleteItemOutput{}, nil
}

// UpdateItem applies a single "SET <path> = :ref" expression. An
// attribute_exists condition fails with ConditionalCheckFailedException when
// the item is absent; without a condition the update materializes a new
// item, mirroring the create-on-update behavior of real tables.
func (f *Fake) UpdateItem(_ context.Context, params *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, err := itemKey(params.Key)
	if err != nil {
		return nil, err
	}
	item, ok := f.items[key]
	if !ok {
		if strings.Contains(aws.ToString(params.ConditionExpression), "attribute_exists") {
			return nil, &types.ConditionalCheckFailedException{
				Message: aws.String("The conditional request failed"),
			}
		}
		item = map[string]types.AttributeValue{}
		for k, v := range params.Key {
			item[k] = v
		}
		f.items[key] = item
	}

	pathExpr, valueRef, err := splitAssignment(strings.TrimPrefix(aws.ToString(params.UpdateExpression), "SET "))
	if err != nil {
		return nil, err
	}
	value, ok := params.ExpressionAttributeValues[valueRef]
	if !ok {
		return nil, fmt.Errorf("dynamotest: unbound value %s", valueRef)
	}
	if err := setPath(item, resolvePath(pathExpr, params.ExpressionAttributeNames), value); err != nil {
		return nil, err
	}

	updated := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		updated[k] = v
	}
	return &dynamodb.UpdateItemOutput{Attributes: updated}, nil
}

// Query supports single-attribute equality key conditions over the base
// table ("pk") or the index attribute ("gsi1pk"), with sort-key ordering,
// exclusive start keys, limits and equality filter expressions.
func (f *Fake) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	partExpr, partRef, err := splitAssignment(aws.ToString(params.KeyConditionExpression))
	if err != nil {
		return nil, err
	}
	partAttr := resolveName(partExpr, params.ExpressionAttributeNames)
	partValue, ok := params.ExpressionAttributeValues[partRef].(*types.AttributeValueMemberS)
	if !ok {
		return nil, fmt.Errorf("dynamotest: unbound partition value %s", partRef)
	}

	var rows []map[string]types.AttributeValue
	for _, item := range f.items {
		if strAttr(item, partAttr) == partValue.Value {
			rows = append(rows, item)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return strAttr(rows[i], "sk") < strAttr(rows[j], "sk")
	})

	if len(params.ExclusiveStartKey) > 0 {
		startSK := strAttr(params.ExclusiveStartKey, "sk")
		i := sort.Search(len(rows), func(i int) bool {
			return strAttr(rows[i], "sk") > startSK
		})
		rows = rows[i:]
	}

	scanned := rows
	var lastEvaluated map[string]types.AttributeValue
	if params.Limit != nil && int(*params.Limit) < len(rows) {
		scanned = rows[:int(*params.Limit)]
		last := scanned[len(scanned)-1]
		lastEvaluated = map[string]types.AttributeValue{
			"pk": last["pk"],
			"sk": last["sk"],
		}
		if params.IndexName != nil {
			lastEvaluated["gsi1pk"] = last["gsi1pk"]
		}
	}

	// Filters run after the page is cut, as on a real table: a filtered page
	// can be shorter than Limit while LastEvaluatedKey is still present.
	out := scanned
	if filter := aws.ToString(params.FilterExpression); filter != "" {
		filterExpr, filterRef, err := splitAssignment(filter)
		if err != nil {
			return nil, err
		}
		want, ok := params.ExpressionAttributeValues[filterRef].(*types.AttributeValueMemberS)
		if !ok {
			return nil, fmt.Errorf("dynamotest: unbound filter value %s", filterRef)
		}
		path := resolvePath(filterExpr, params.ExpressionAttributeNames)
		out = nil
		for _, item := range scanned {
			if got, ok := lookupPath(item, path).(*types.AttributeValueMemberS); ok && got.Value == want.Value {
				out = append(out, item)
			}
		}
	}

	return &dynamodb.QueryOutput{
		Items:            out,
		Count:            int32(len(out)),
		LastEvaluatedKey: lastEvaluated,
	}, nil
}

// splitAssignment splits "<name> = <ref>" into its two sides.
func splitAssignment(expr string) (string, string, error) {
	left, right, ok := strings.Cut(expr, " = ")
	if !ok {
		return "", "", fmt.Errorf("dynamotest: unsupported expression %q", expr)
	}
	return strings.TrimSpace(left), strings.TrimSpace(right), nil
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		return names[name]
	}
	return name
}

func resolvePath(expr string, names map[string]string) []string {
	segments := strings.Split(expr, ".")
	for i, segment := range segments {
		segments[i] = resolveName(segment, names)
	}
	return segments
}

func lookupPath(item map[string]types.AttributeValue, path []string) types.AttributeValue {
	current := item
	for i, segment := range path {
		value, ok := current[segment]
		if !ok {
			return nil
		}
		if i == len(path)-1 {
			return value
		}
		nested, ok := value.(*types.AttributeValueMemberM)
		if !ok {
			return nil
		}
		current = nested.Value
	}
	return nil
}

func setPath(item map[string]types.AttributeValue, path []string, value types.AttributeValue) error {
	current := item
	for i, segment := range path {
		if i == len(path)-1 {
			current[segment] = value
			return nil
		}
		nested, ok := current[segment].(*types.AttributeValueMemberM)
		if !ok {
			return fmt.Errorf("dynamotest: path %s is not a map", strings.Join(path[:i+1], "."))
		}
		current = nested.Value
	}
	return nil
}
