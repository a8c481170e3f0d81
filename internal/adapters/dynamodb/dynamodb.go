// Package dynamodb implements the applicant and pass repositories on DynamoDB.
//
// Table names are not fixed at construction; every call resolves them from the shared
// configcache handle so a deployment can point a running process at its own tables.
package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/movement-pass/public-api/internal/platform/configcache"
)

// PassesByApplicantIndex is the global secondary index used to list an applicant's passes.
// Its sort key is endAtKey (endAt + "#" + id) so equal end times still order by id.
const PassesByApplicantIndex = "ix_applicantId-endAt"

const (
	timeLayout = "2006-01-02T15:04:05.000Z"
	dateLayout = "2006-01-02"
)

// API is the subset of the DynamoDB client the repositories use.
type API interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

// NewClient builds a client for cfg. A non-empty endpoint targets DynamoDB Local.
func NewClient(cfg aws.Config, endpoint string) *dynamodb.Client {
	return dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
}

type tables struct {
	config *configcache.Cache
}

func (t tables) applicants(ctx context.Context) (string, error) {
	return t.name(ctx, configcache.KeyApplicantsTable)
}

func (t tables) passes(ctx context.Context) (string, error) {
	return t.name(ctx, configcache.KeyPassesTable)
}

func (t tables) name(ctx context.Context, key string) (string, error) {
	if t.config == nil {
		return "", errors.New("nil config cache")
	}
	values, err := t.config.Get(ctx)
	if err != nil {
		return "", err
	}
	return values.String(key)
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("dynamodb: bad timestamp %q: %w", s, err)
	}
	return t.UTC(), nil
}

func stringValue(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

// EnsureTables creates both tables and the listing index when they are missing.
// It is meant for DynamoDB Local; deployed tables are provisioned outside the service.
func EnsureTables(ctx context.Context, client *dynamodb.Client, applicantsTable, passesTable string) error {
	_, err := client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(applicantsTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
	})
	if err != nil && !isTableExists(err) {
		return fmt.Errorf("create %s: %w", applicantsTable, err)
	}

	_, err = client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(passesTable),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("applicantId"), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String("endAtKey"), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{{
			IndexName: aws.String(PassesByApplicantIndex),
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("applicantId"), KeyType: types.KeyTypeHash},
				{AttributeName: aws.String("endAtKey"), KeyType: types.KeyTypeRange},
			},
			Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
		}},
	})
	if err != nil && !isTableExists(err) {
		return fmt.Errorf("create %s: %w", passesTable, err)
	}
	return nil
}

func isTableExists(err error) bool {
	var inUse *types.ResourceInUseException
	return errors.As(err, &inUse)
}
