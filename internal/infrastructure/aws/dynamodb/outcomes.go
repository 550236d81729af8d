package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"code-vault-go/internal/game"
)

const (
	DefaultTable     = "vault_outcomes"
	FastestWinsIndex = "fastest_wins"

	resultWon  = "won"
	resultLost = "lost"
)

// API is the subset of the DynamoDB client the outcome store uses
type API interface {
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

// OutcomeStore writes finished games to a DynamoDB table. Wins are indexed by
// a sortable key so the fastest ones come back from a single Query.
type OutcomeStore struct {
	client API
	table  string
}

func NewOutcomeStore(client API, table string) *OutcomeStore {
	if table == "" {
		table = DefaultTable
	}
	return &OutcomeStore{client: client, table: table}
}

// EnsureTable creates the outcome table and its index when they are missing.
func (s *OutcomeStore) EnsureTable(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(s.table),
	})
	if err == nil {
		return nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return fmt.Errorf("failed to describe table %s: %w", s.table, err)
	}

	_, err = s.client.CreateTable(ctx, s.tableSchema())
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return nil
		}
		return fmt.Errorf("failed to create table %s: %w", s.table, err)
	}
	return nil
}

func (s *OutcomeStore) tableSchema() *dynamodb.CreateTableInput {
	return &dynamodb.CreateTableInput{
		TableName: aws.String(s.table),
		AttributeDefinitions: []types.AttributeDefinition{
			{
				AttributeName: aws.String("id"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("result"),
				AttributeType: types.ScalarAttributeTypeS,
			},
			{
				AttributeName: aws.String("rank_key"),
				AttributeType: types.ScalarAttributeTypeS,
			},
		},
		KeySchema: []types.KeySchemaElement{
			{
				AttributeName: aws.String("id"),
				KeyType:       types.KeyTypeHash,
			},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(FastestWinsIndex),
				KeySchema: []types.KeySchemaElement{
					{
						AttributeName: aws.String("result"),
						KeyType:       types.KeyTypeHash,
					},
					{
						AttributeName: aws.String("rank_key"),
						KeyType:       types.KeyTypeRange,
					},
				},
				Projection: &types.Projection{
					ProjectionType: types.ProjectionTypeAll,
				},
			},
		},
		BillingMode: types.BillingModePayPerRequest,
	}
}

// outcomeItem is the stored shape of a game.Outcome
type outcomeItem struct {
	ID         string    `dynamodbav:"id"`
	SessionID  string    `dynamodbav:"session_id"`
	Result     string    `dynamodbav:"result"`
	RankKey    string    `dynamodbav:"rank_key"`
	Won        bool      `dynamodbav:"won"`
	Elapsed    int       `dynamodbav:"elapsed"`
	Points     int       `dynamodbav:"points"`
	RankColor  string    `dynamodbav:"rank_color"`
	Secret     []int     `dynamodbav:"secret"`
	Sequence   []int     `dynamodbav:"sequence"`
	FinishedAt time.Time `dynamodbav:"finished_at"`
}

func newOutcomeItem(o game.Outcome) outcomeItem {
	result := resultLost
	if o.Won {
		result = resultWon
	}
	return outcomeItem{
		ID:         o.ID,
		SessionID:  o.SessionID,
		Result:     result,
		RankKey:    rankKey(o),
		Won:        o.Won,
		Elapsed:    o.Elapsed,
		Points:     o.Points,
		RankColor:  o.RankColor,
		Secret:     o.Secret,
		Sequence:   o.Sequence,
		FinishedAt: o.FinishedAt.UTC(),
	}
}

func (i outcomeItem) outcome() game.Outcome {
	return game.Outcome{
		ID:         i.ID,
		SessionID:  i.SessionID,
		Won:        i.Won,
		Elapsed:    i.Elapsed,
		Points:     i.Points,
		RankColor:  i.RankColor,
		Secret:     i.Secret,
		Sequence:   i.Sequence,
		FinishedAt: i.FinishedAt.UTC(),
	}
}

func (s *OutcomeStore) Record(ctx context.Context, outcome game.Outcome) error {
	item, err := attributevalue.MarshalMap(newOutcomeItem(outcome))
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		return fmt.Errorf("failed to record outcome: %w", err)
	}
	return nil
}

func (s *OutcomeStore) Fastest(ctx context.Context, limit int) ([]game.Outcome, error) {
	out, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.table),
		IndexName:              aws.String(FastestWinsIndex),
		KeyConditionExpression: aws.String("#result = :won"),
		ExpressionAttributeNames: map[string]string{
			"#result": "result",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":won": &types.AttributeValueMemberS{Value: resultWon},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(int32(game.ClampLimit(limit))),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query outcomes: %w", err)
	}
	return decodeOutcomes(out.Items)
}

func decodeOutcomes(items []map[string]types.AttributeValue) ([]game.Outcome, error) {
	var stored []outcomeItem
	if err := attributevalue.UnmarshalListOfMaps(items, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal outcomes: %w", err)
	}
	outcomes := make([]game.Outcome, len(stored))
	for i, item := range stored {
		outcomes[i] = item.outcome()
	}
	return outcomes, nil
}

// rankKey sorts lexically by elapsed seconds, then finish time.
func rankKey(o game.Outcome) string {
	return fmt.Sprintf("%06d#%s#%s", o.Elapsed, o.FinishedAt.UTC().Format("20060102T150405.000000000"), o.ID)
}
