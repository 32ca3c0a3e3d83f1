package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDynamo records requests and replays canned responses.
type fakeDynamo struct {
	items   map[string]map[string]types.AttributeValue
	pages   []*dynamodb.ScanOutput
	err     error
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	deletes []*dynamodb.DeleteItemInput
	scans   []*dynamodb.ScanInput
	updated map[string]types.AttributeValue
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	key := in.Key["PK"].(*types.AttributeValueMemberS).Value
	return &dynamodb.GetItemOutput{Item: f.items[key]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	return &dynamodb.PutItemOutput{}, f.err
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.UpdateItemOutput{Attributes: f.updated}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	return &dynamodb.DeleteItemOutput{}, f.err
}

func (f *fakeDynamo) Scan(_ context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.scans = append(f.scans, in)
	if f.err != nil {
		return nil, f.err
	}
	page := f.pages[0]
	f.pages = f.pages[1:]
	return page, nil
}

var conditionFailed = &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}

func mustMarshal(t *testing.T, v any) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(v)
	require.NoError(t, err)
	return item
}

func TestDynamoUserStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy path - apply vote is a guarded update", func(t *testing.T) {
		fake := &fakeDynamo{updated: mustMarshal(t, &User{Name: "Mei", VotesRemaining: 4, VotedPairs: []string{"a-b"}, VotedWinners: []string{"a"}, LastVoteDate: "2025-03-10"})}
		s := &DynamoUserStorage{Client: fake, TableName: "Users"}

		user, err := s.ApplyVote(ctx, "Mei", "a-b", "a", "2025-03-10")

		require.NoError(t, err)
		assert.Equal(t, 4, user.VotesRemaining)
		require.Len(t, fake.updates, 1)
		in := fake.updates[0]
		assert.Equal(t, "Users", aws.ToString(in.TableName))
		assert.Equal(t, "attribute_exists(PK) AND VotesRemaining > :zero", aws.ToString(in.ConditionExpression))
		assert.Contains(t, aws.ToString(in.UpdateExpression), "VotesRemaining = VotesRemaining - :one")
		assert.Contains(t, aws.ToString(in.UpdateExpression), "list_append(if_not_exists(VotedPairs, :empty), :pair)")
		assert.Equal(t, types.ReturnValueAllNew, in.ReturnValues)
	})

	t.Run("Unhappy path - no votes left", func(t *testing.T) {
		s := &DynamoUserStorage{Client: &fakeDynamo{err: conditionFailed}, TableName: "Users"}
		_, err := s.ApplyVote(ctx, "Mei", "a-b", "a", "2025-03-10")
		assert.ErrorIs(t, err, ErrConditionFailed)
		_, err = s.ConsumeRefresh(ctx, "Mei")
		assert.ErrorIs(t, err, ErrConditionFailed)
	})

	t.Run("Happy path - sweep reset leaves the watermark", func(t *testing.T) {
		in := resetInput("Users", "Mei", QuotaReset{Votes: 5, Refreshes: 15})
		assert.NotContains(t, aws.ToString(in.UpdateExpression), "LastVoteDate")
		assert.NotContains(t, in.ExpressionAttributeValues, ":date")

		in = resetInput("Users", "Mei", QuotaReset{Votes: 5, Refreshes: 15, Watermark: "2025-03-10"})
		assert.Contains(t, aws.ToString(in.UpdateExpression), "LastVoteDate = :date")
		assert.Equal(t, &types.AttributeValueMemberN{Value: "5"}, in.ExpressionAttributeValues[":votes"])
	})

	t.Run("Unhappy path - reset of a missing user", func(t *testing.T) {
		s := &DynamoUserStorage{Client: &fakeDynamo{err: conditionFailed}, TableName: "Users"}
		_, err := s.Reset(ctx, "ghost", QuotaReset{Votes: 5, Refreshes: 15})
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("Unhappy path - create an existing user", func(t *testing.T) {
		fake := &fakeDynamo{err: conditionFailed}
		s := &DynamoUserStorage{Client: fake, TableName: "Users"}

		err := s.Create(ctx, &User{Name: "Mei"})

		assert.ErrorIs(t, err, ErrItemWithIDAlreadyExists)
		require.Len(t, fake.puts, 1)
		assert.Equal(t, "attribute_not_exists(PK)", aws.ToString(fake.puts[0].ConditionExpression))
		assert.IsType(t, &types.AttributeValueMemberL{}, fake.puts[0].Item["VotedPairs"])
	})

	t.Run("Happy path - get all follows pagination", func(t *testing.T) {
		fake := &fakeDynamo{pages: []*dynamodb.ScanOutput{
			{Items: []map[string]types.AttributeValue{mustMarshal(t, &User{Name: "Mei"})}, LastEvaluatedKey: stringKey("Mei")},
			{Items: []map[string]types.AttributeValue{mustMarshal(t, &User{Name: "Tom"})}},
		}}
		s := &DynamoUserStorage{Client: fake, TableName: "Users"}

		users, err := s.GetAll(ctx)

		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "Tom", users[1].Name)
		assert.Len(t, fake.scans, 2)
	})

	t.Run("Unhappy path - get a missing user", func(t *testing.T) {
		s := &DynamoUserStorage{Client: &fakeDynamo{}, TableName: "Users"}
		_, err := s.Get(ctx, "ghost")
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("Unhappy path - transport errors pass through", func(t *testing.T) {
		boom := errors.New("connection reset")
		s := &DynamoUserStorage{Client: &fakeDynamo{err: boom}, TableName: "Users"}
		_, err := s.Get(ctx, "Mei")
		assert.ErrorIs(t, err, boom)
		_, err = s.ApplyVote(ctx, "Mei", "a-b", "a", "2025-03-10")
		assert.ErrorIs(t, err, boom)
	})
}

func TestDynamoSubmissionStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy path - record vote appends and increments", func(t *testing.T) {
		fake := &fakeDynamo{}
		s := &DynamoSubmissionStorage{Client: fake, TableName: "Submissions"}

		err := s.RecordVote(ctx, "submission_a", VoteRecord{ID: "v1", Voter: "Mei", Timestamp: time.Unix(0, 0).UTC()})

		require.NoError(t, err)
		in := fake.updates[0]
		assert.Equal(t, "SET Votes = list_append(if_not_exists(Votes, :empty), :vote) ADD Score :one", aws.ToString(in.UpdateExpression))
		assert.Equal(t, "attribute_exists(PK)", aws.ToString(in.ConditionExpression))
	})

	t.Run("Unhappy path - vote for a deleted submission", func(t *testing.T) {
		s := &DynamoSubmissionStorage{Client: &fakeDynamo{err: conditionFailed}, TableName: "Submissions"}
		err := s.RecordVote(ctx, "submission_a", VoteRecord{ID: "v1"})
		assert.ErrorIs(t, err, ErrItemNotFound)
	})

	t.Run("Happy path - remove vote by index with a guarded decrement", func(t *testing.T) {
		fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{
			"submission_a": mustMarshal(t, &Submission{ID: "submission_a", Score: 2, Votes: []VoteRecord{{ID: "v1"}, {ID: "v2"}}}),
		}}
		s := &DynamoSubmissionStorage{Client: fake, TableName: "Submissions"}

		require.NoError(t, s.RemoveVote(ctx, "submission_a", "v2"))

		in := fake.updates[0]
		assert.Equal(t, "REMOVE Votes[1] SET Score = Score - :one", aws.ToString(in.UpdateExpression))
		assert.Equal(t, "Votes[1].ID = :voteID AND Score > :zero", aws.ToString(in.ConditionExpression))
	})

	t.Run("Happy path - score already at zero is not decremented", func(t *testing.T) {
		in := removeVoteInput("Submissions", "submission_a", "v1", 0, false)
		assert.Equal(t, "REMOVE Votes[0]", aws.ToString(in.UpdateExpression))
		assert.NotContains(t, in.ExpressionAttributeValues, ":one")
	})

	t.Run("Unhappy path - unknown vote id", func(t *testing.T) {
		fake := &fakeDynamo{items: map[string]map[string]types.AttributeValue{
			"submission_a": mustMarshal(t, &Submission{ID: "submission_a", Votes: []VoteRecord{{ID: "v1"}}}),
		}}
		s := &DynamoSubmissionStorage{Client: fake, TableName: "Submissions"}

		assert.ErrorIs(t, s.RemoveVote(ctx, "submission_a", "nope"), ErrItemNotFound)
		assert.Empty(t, fake.updates)
	})
}

func TestDynamoSettingsStorage(t *testing.T) {
	ctx := context.Background()

	t.Run("Happy path - settings and leaderboard share the table", func(t *testing.T) {
		fake := &fakeDynamo{}
		settings := &DynamoSettingsStorage{Client: fake, TableName: "Settings"}
		leaderboard := NewDynamoLeaderboardStorage(fake, "Settings")

		require.NoError(t, settings.Put(ctx, &Settings{Theme: "Spring"}))
		require.NoError(t, leaderboard.Put(ctx, &Leaderboard{Entries: []LeaderboardEntry{{Rank: 1, ID: "a"}}}))

		require.Len(t, fake.puts, 2)
		assert.Equal(t, &types.AttributeValueMemberS{Value: SettingsKey}, fake.puts[0].Item["PK"])
		assert.Equal(t, &types.AttributeValueMemberS{Value: LeaderboardKey}, fake.puts[1].Item["PK"])
		assert.NotContains(t, fake.puts[0].Item, "VotingStartTime")
	})

	t.Run("Unhappy path - nothing written yet", func(t *testing.T) {
		s := &DynamoSettingsStorage{Client: &fakeDynamo{}, TableName: "Settings"}
		_, err := s.Get(ctx)
		assert.ErrorIs(t, err, ErrItemNotFound)
	})
}
