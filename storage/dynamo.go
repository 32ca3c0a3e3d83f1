package storage

import (
	"context"
	"errors"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoClient is the subset of *dynamodb.Client the storages use.
type DynamoClient interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

var _ DynamoClient = (*dynamodb.Client)(nil)

func stringKey(value string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: value},
	}
}

func emptyList() types.AttributeValue {
	return &types.AttributeValueMemberL{Value: []types.AttributeValue{}}
}

func number(value string) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: value}
}

func isConditionFailure(err error) bool {
	var cce *types.ConditionalCheckFailedException
	return errors.As(err, &cce)
}

func getItem[T any](ctx context.Context, client DynamoClient, table, key, area string) (*T, error) {
	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &table,
		Key:       stringKey(key),
	})
	if err != nil {
		logging.Log.Errorf("%s: GetItem for %s failed: %v", area, key, err)
		return nil, err
	}
	if out.Item == nil {
		return nil, ErrItemNotFound
	}

	var item T
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		logging.Log.Errorf("%s: failed to unmarshal %s: %v", area, key, err)
		return nil, err
	}
	return &item, nil
}

func scanAll[T any](ctx context.Context, client DynamoClient, table, area string) ([]*T, error) {
	items := make([]*T, 0)
	paginator := dynamodb.NewScanPaginator(client, &dynamodb.ScanInput{
		TableName: &table,
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			logging.Log.Errorf("%s: scan failed: %v", area, err)
			return nil, err
		}

		var batch []*T
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			logging.Log.Errorf("%s: failed to unmarshal list: %v", area, err)
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}

func updateReturningNew[T any](ctx context.Context, client DynamoClient, input *dynamodb.UpdateItemInput, area string) (*T, error) {
	input.ReturnValues = types.ReturnValueAllNew
	out, err := client.UpdateItem(ctx, input)
	if err != nil {
		if isConditionFailure(err) {
			return nil, ErrConditionFailed
		}
		logging.Log.Errorf("%s: UpdateItem failed: %v", area, err)
		return nil, err
	}

	var item T
	if err := attributevalue.UnmarshalMap(out.Attributes, &item); err != nil {
		logging.Log.Errorf("%s: failed to unmarshal updated item: %v", area, err)
		return nil, err
	}
	return &item, nil
}
