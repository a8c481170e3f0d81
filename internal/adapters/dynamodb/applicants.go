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

	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/platform/configcache"
	"github.com/movement-pass/public-api/internal/ports/out/applicantrepo"
)

type applicantItem struct {
	ID            string `dynamodbav:"id"`
	Name          string `dynamodbav:"name"`
	District      int    `dynamodbav:"district"`
	Thana         int    `dynamodbav:"thana"`
	DateOfBirth   string `dynamodbav:"dateOfBirth"`
	Gender        string `dynamodbav:"gender"`
	IDType        string `dynamodbav:"idType"`
	IDNumber      string `dynamodbav:"idNumber"`
	Photo         string `dynamodbav:"photo"`
	CreatedAt     string `dynamodbav:"createdAt"`
	AppliedCount  int    `dynamodbav:"appliedCount"`
	ApprovedCount int    `dynamodbav:"approvedCount"`
	RejectedCount int    `dynamodbav:"rejectedCount"`
}

func toApplicantItem(a applicantrepo.Applicant) applicantItem {
	return applicantItem{
		ID:            string(a.ID),
		Name:          a.Name,
		District:      a.District,
		Thana:         a.Thana,
		DateOfBirth:   a.DateOfBirth.UTC().Format(dateLayout),
		Gender:        string(a.Gender),
		IDType:        string(a.IDType),
		IDNumber:      a.IDNumber,
		Photo:         a.Photo,
		CreatedAt:     formatTime(a.CreatedAt),
		AppliedCount:  a.AppliedCount,
		ApprovedCount: a.ApprovedCount,
		RejectedCount: a.RejectedCount,
	}
}

func (it applicantItem) toRecord() (applicantrepo.Applicant, error) {
	dob, err := time.Parse(dateLayout, it.DateOfBirth)
	if err != nil {
		return applicantrepo.Applicant{}, fmt.Errorf("dynamodb: bad dateOfBirth %q: %w", it.DateOfBirth, err)
	}
	createdAt, err := parseTime(it.CreatedAt)
	if err != nil {
		return applicantrepo.Applicant{}, err
	}
	return applicantrepo.Applicant{
		ID:            domain.ApplicantID(it.ID),
		Name:          it.Name,
		District:      it.District,
		Thana:         it.Thana,
		DateOfBirth:   dob,
		Gender:        domain.Gender(it.Gender),
		IDType:        domain.IDType(it.IDType),
		IDNumber:      it.IDNumber,
		Photo:         it.Photo,
		CreatedAt:     createdAt,
		AppliedCount:  it.AppliedCount,
		ApprovedCount: it.ApprovedCount,
		RejectedCount: it.RejectedCount,
	}, nil
}

// ApplicantRepo is a DynamoDB implementation of applicantrepo.Repository.
type ApplicantRepo struct {
	api    API
	tables tables
}

var _ applicantrepo.Repository = (*ApplicantRepo)(nil)

func NewApplicantRepo(api API, config *configcache.Cache) *ApplicantRepo {
	return &ApplicantRepo{api: api, tables: tables{config: config}}
}

func (r *ApplicantRepo) Create(ctx context.Context, a applicantrepo.Applicant) error {
	table, err := r.tables.applicants(ctx)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(toApplicantItem(a))
	if err != nil {
		return err
	}
	_, err = r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return applicantrepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *ApplicantRepo) GetByID(ctx context.Context, id domain.ApplicantID) (applicantrepo.Applicant, error) {
	table, err := r.tables.applicants(ctx)
	if err != nil {
		return applicantrepo.Applicant{}, err
	}
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            map[string]types.AttributeValue{"id": stringValue(string(id))},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return applicantrepo.Applicant{}, err
	}
	if len(out.Item) == 0 {
		return applicantrepo.Applicant{}, applicantrepo.ErrNotFound
	}
	var it applicantItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return applicantrepo.Applicant{}, err
	}
	return it.toRecord()
}
