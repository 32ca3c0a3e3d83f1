package storage

import (
	"context"

	"github.com/alex-pricope/art-contest-voting/logging"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// DynamoSettingsStorage keeps the singleton settings document and the leaderboard
// snapshot in one table, keyed by SettingsKey and LeaderboardKey.
type DynamoSettingsStorage struct {
	Client    DynamoClient
	TableName string
}

func (s *DynamoSettingsStorage) Get(ctx context.Context) (*Settings, error) {
	return getItem[Settings](ctx, s.Client, s.TableName, SettingsKey, "SETTINGS")
}

func (s *DynamoSettingsStorage) Put(ctx context.Context, settings *Settings) error {
	settings.ID = SettingsKey
	return s.put(ctx, settings, "SETTINGS")
}

func (s *DynamoSettingsStorage) put(ctx context.Context, document any, area string) error {
	item, err := attributevalue.MarshalMap(document)
	if err != nil {
		logging.Log.Errorf("%s: failed to marshal document: %v", area, err)
		return err
	}

	_, err = s.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &s.TableName,
		Item:      item,
	})
	if err != nil {
		logging.Log.Errorf("%s: failed to put document: %v", area, err)
		return err
	}
	return nil
}

type DynamoLeaderboardStorage struct {
	settings *DynamoSettingsStorage
}

func NewDynamoLeaderboardStorage(client DynamoClient, tableName string) *DynamoLeaderboardStorage {
	return &DynamoLeaderboardStorage{settings: &DynamoSettingsStorage{Client: client, TableName: tableName}}
}

func (s *DynamoLeaderboardStorage) Get(ctx context.Context) (*Leaderboard, error) {
	return getItem[Leaderboard](ctx, s.settings.Client, s.settings.TableName, LeaderboardKey, "LEADERBOARD")
}

func (s *DynamoLeaderboardStorage) Put(ctx context.Context, leaderboard *Leaderboard) error {
	leaderboard.ID = LeaderboardKey
	return s.settings.put(ctx, leaderboard, "LEADERBOARD")
}
