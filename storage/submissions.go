package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type DynamoSubmissionStorage struct {
	Client    DynamoClient
	TableName string
}

func (s *DynamoSubmissionStorage) Get(ctx context.Context, id string) (*Submission, error) {
	return getItem[Submission](ctx, s.Client, s.TableName, id, "SUBMISSION")
}

func (s *DynamoSubmissionStorage) GetAll(ctx context.Context) ([]*Submission, error) {
	return scanAll[Submission](ctx, s.Client, s.TableName, "SUBMISSION")
}

func (s *DynamoSubmissionStorage) Create(ctx context.Context, submission *Submission) error {
	if submission.Votes == nil {
		submission.Votes = []VoteRecord{}
	}
	item, err := attributevalue.MarshalMap(submission)
	if err != nil {
		logging.Log.Errorf("SUBMISSION: failed to marshal submission: %v", err)
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &s.TableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		if isConditionFailure(err) {
			logging.Log.Warnf("SUBMISSION: item with ID %s already exists", submission.ID)
			return ErrItemWithIDAlreadyExists
		}
		logging.Log.Errorf("SUBMISSION: failed to create submission: %v", err)
		return err
	}
	return nil
}

func (s *DynamoSubmissionStorage) Delete(ctx context.Context, id string) error {
	_, err := s.Client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: &s.TableName,
		Key:       stringKey(id),
	})
	if err != nil {
		logging.Log.Errorf("SUBMISSION: failed to delete submission with ID %s: %v", id, err)
		return err
	}
	logging.Log.Infof("SUBMISSION: deleted submission with ID %s", id)
	return nil
}

func (s *DynamoSubmissionStorage) RecordVote(ctx context.Context, id string, vote VoteRecord) error {
	input, err := recordVoteInput(s.TableName, id, vote)
	if err != nil {
		logging.Log.Errorf("SUBMISSION: failed to marshal vote record: %v", err)
		return err
	}

	if _, err := s.Client.UpdateItem(ctx, input); err != nil {
		if isConditionFailure(err) {
			return ErrItemNotFound
		}
		logging.Log.Errorf("SUBMISSION: failed to record vote on %s: %v", id, err)
		return err
	}
	return nil
}

// RemoveVote locates the record by ID and removes it by list index. The condition
// re-checks the record at that index so a concurrent removal cannot shift it.
func (s *DynamoSubmissionStorage) RemoveVote(ctx context.Context, id string, voteID string) error {
	submission, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	index := -1
	for i, v := range submission.Votes {
		if v.ID == voteID {
			index = i
			break
		}
	}
	if index < 0 {
		logging.Log.Warnf("SUBMISSION: vote %s not found on %s", voteID, id)
		return ErrItemNotFound
	}

	_, err = s.Client.UpdateItem(ctx, removeVoteInput(s.TableName, id, voteID, index, submission.Score > 0))
	if err != nil {
		if isConditionFailure(err) {
			return ErrConditionFailed
		}
		logging.Log.Errorf("SUBMISSION: failed to remove vote %s from %s: %v", voteID, id, err)
		return err
	}
	return nil
}

func recordVoteInput(table, id string, vote VoteRecord) (*dynamodb.UpdateItemInput, error) {
	record, err := attributevalue.Marshal(vote)
	if err != nil {
		return nil, err
	}
	return &dynamodb.UpdateItemInput{
		TableName:           aws.String(table),
		Key:                 stringKey(id),
		UpdateExpression:    aws.String("SET Votes = list_append(if_not_exists(Votes, :empty), :vote) ADD Score :one"),
		ConditionExpression: aws.String("attribute_exists(PK)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty": emptyList(),
			":vote":  &types.AttributeValueMemberL{Value: []types.AttributeValue{record}},
			":one":   number("1"),
		},
	}, nil
}

func removeVoteInput(table, id, voteID string, index int, decrement bool) *dynamodb.UpdateItemInput {
	expression := fmt.Sprintf("REMOVE Votes[%d]", index)
	condition := fmt.Sprintf("Votes[%d].ID = :voteID", index)
	values := map[string]types.AttributeValue{
		":voteID": &types.AttributeValueMemberS{Value: voteID},
	}
	if decrement {
		expression += " SET Score = Score - :one"
		condition += " AND Score > :zero"
		values[":one"] = number("1")
		values[":zero"] = number("0")
	}
	return &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       stringKey(id),
		UpdateExpression:          aws.String(expression),
		ConditionExpression:       aws.String(condition),
		ExpressionAttributeValues: values,
	}
}

// IsNotFound reports the storage-level absence of a document.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound)
}
