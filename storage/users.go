package storage

import (
	"context"
	"errors"
	"strconv"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoUserStorage struct {
	Client    DynamoClient
	TableName string
}

func (s *DynamoUserStorage) Get(ctx context.Context, name string) (*User, error) {
	return getItem[User](ctx, s.Client, s.TableName, name, "USER")
}

func (s *DynamoUserStorage) GetAll(ctx context.Context) ([]*User, error) {
	return scanAll[User](ctx, s.Client, s.TableName, "USER")
}

func (s *DynamoUserStorage) Create(ctx context.Context, user *User) error {
	if user.VotedPairs == nil {
		user.VotedPairs = []string{}
	}
	if user.VotedWinners == nil {
		user.VotedWinners = []string{}
	}
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		logging.Log.Errorf("USER: failed to marshal user: %v", err)
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			logging.Log.Warnf("USER: user '%s' already exists", user.Name)
			return ErrItemWithIDAlreadyExists
		}
		logging.Log.Errorf("USER: failed to create user: %v", err)
		return err
	}
	return nil
}

func (s *DynamoUserStorage) ApplyVote(ctx context.Context, name, pairKey, winnerID, date string) (*User, error) {
	return updateReturningNew[User](ctx, s.Client, applyVoteInput(s.TableName, name, pairKey, winnerID, date), "USER")
}

func (s *DynamoUserStorage) ConsumeRefresh(ctx context.Context, name string) (*User, error) {
	return updateReturningNew[User](ctx, s.Client, consumeRefreshInput(s.TableName, name), "USER")
}

func (s *DynamoUserStorage) Reset(ctx context.Context, name string, reset QuotaReset) (*User, error) {
	user, err := updateReturningNew[User](ctx, s.Client, resetInput(s.TableName, name, reset), "USER")
	if errors.Is(err, ErrConditionFailed) {
		return nil, ErrItemNotFound
	}
	return user, err
}

func applyVoteInput(table, name, pairKey, winnerID, date string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName: aws.String(table),
		Key:       stringKey(name),
		UpdateExpression: aws.String("SET VotesRemaining = VotesRemaining - :one, " +
			"VotedPairs = list_append(if_not_exists(VotedPairs, :empty), :pair), " +
			"VotedWinners = list_append(if_not_exists(VotedWinners, :empty), :winner), " +
			"LastVoteDate = :date"),
		ConditionExpression: aws.String("attribute_exists(PK) AND VotesRemaining > :zero"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":    number("1"),
			":zero":   number("0"),
			":empty":  emptyList(),
			":pair":   &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: pairKey}}},
			":winner": &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberS{Value: winnerID}}},
			":date":   &types.AttributeValueMemberS{Value: date},
		},
	}
}

func consumeRefreshInput(table, name string) *dynamodb.UpdateItemInput {
	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(table),
		Key:                 stringKey(name),
		UpdateExpression:    aws.String("SET RefreshesRemaining = RefreshesRemaining - :one"),
		ConditionExpression: aws.String("attribute_exists(PK) AND RefreshesRemaining > :zero"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one":  number("1"),
			":zero": number("0"),
		},
	}
}

func resetInput(table, name string, reset QuotaReset) *dynamodb.UpdateItemInput {
	expression := "SET VotesRemaining = :votes, RefreshesRemaining = :refreshes, VotedPairs = :empty, VotedWinners = :empty"
	values := map[string]types.AttributeValue{
		":votes":     number(strconv.Itoa(reset.Votes)),
		":refreshes": number(strconv.Itoa(reset.Refreshes)),
		":empty":     emptyList(),
	}
	if reset.Watermark != "" {
		expression += ", LastVoteDate = :date"
		values[":date"] = &types.AttributeValueMemberS{Value: reset.Watermark}
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       stringKey(name),
		UpdateExpression:          aws.String(expression),
		ConditionExpression:       aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: values,
	}
}
