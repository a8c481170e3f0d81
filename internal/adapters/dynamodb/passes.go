package dynamodb

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/movement-pass/public-api/internal/domain"
	"github.com/movement-pass/public-api/internal/platform/configcache"
	"github.com/movement-pass/public-api/internal/ports/out/passrepo"
)

type passItem struct {
	ID          string `dynamodbav:"id"`
	ApplicantID string `dynamodbav:"applicantId"`

	FromLocation string `dynamodbav:"fromLocation"`
	ToLocation   string `dynamodbav:"toLocation"`
	District     int    `dynamodbav:"district"`
	Thana        int    `dynamodbav:"thana"`

	StartAt  string `dynamodbav:"startAt"`
	EndAt    string `dynamodbav:"endAt"`
	EndAtKey string `dynamodbav:"endAtKey"`

	Type   string `dynamodbav:"type"`
	Reason string `dynamodbav:"reason"`

	IncludeVehicle  bool    `dynamodbav:"includeVehicle"`
	VehicleNo       *string `dynamodbav:"vehicleNo,omitempty"`
	SelfDriven      bool    `dynamodbav:"selfDriven"`
	DriverName      *string `dynamodbav:"driverName,omitempty"`
	DriverLicenseNo *string `dynamodbav:"driverLicenseNo,omitempty"`

	Status    string `dynamodbav:"status"`
	CreatedAt string `dynamodbav:"createdAt"`
}

// endAtKey sorts like (endAt, id) under byte-wise string comparison.
func endAtKey(k domain.PassListKey) string {
	return formatTime(k.EndAt) + "#" + string(k.ID)
}

func toPassItem(p passrepo.Pass) passItem {
	return passItem{
		ID:              string(p.ID),
		ApplicantID:     string(p.ApplicantID),
		FromLocation:    p.FromLocation,
		ToLocation:      p.ToLocation,
		District:        p.District,
		Thana:           p.Thana,
		StartAt:         formatTime(p.StartAt),
		EndAt:           formatTime(p.EndAt),
		EndAtKey:        endAtKey(domain.PassListKey{ID: p.ID, EndAt: p.EndAt}),
		Type:            string(p.Type),
		Reason:          p.Reason,
		IncludeVehicle:  p.IncludeVehicle,
		VehicleNo:       p.VehicleNo,
		SelfDriven:      p.SelfDriven,
		DriverName:      p.DriverName,
		DriverLicenseNo: p.DriverLicenseNo,
		Status:          string(p.Status),
		CreatedAt:       formatTime(p.CreatedAt),
	}
}

func (it passItem) toRecord() (passrepo.Pass, error) {
	startAt, err := parseTime(it.StartAt)
	if err != nil {
		return passrepo.Pass{}, err
	}
	endAt, err := parseTime(it.EndAt)
	if err != nil {
		return passrepo.Pass{}, err
	}
	createdAt, err := parseTime(it.CreatedAt)
	if err != nil {
		return passrepo.Pass{}, err
	}
	return passrepo.Pass{
		ID:              domain.PassID(it.ID),
		ApplicantID:     domain.ApplicantID(it.ApplicantID),
		FromLocation:    it.FromLocation,
		ToLocation:      it.ToLocation,
		District:        it.District,
		Thana:           it.Thana,
		StartAt:         startAt,
		EndAt:           endAt,
		Type:            domain.PassType(it.Type),
		Reason:          it.Reason,
		IncludeVehicle:  it.IncludeVehicle,
		VehicleNo:       it.VehicleNo,
		SelfDriven:      it.SelfDriven,
		DriverName:      it.DriverName,
		DriverLicenseNo: it.DriverLicenseNo,
		Status:          domain.PassStatus(it.Status),
		CreatedAt:       createdAt,
	}, nil
}

// PassRepo is a DynamoDB implementation of passrepo.Repository.
type PassRepo struct {
	api    API
	tables tables
}

var _ passrepo.Repository = (*PassRepo)(nil)

func NewPassRepo(api API, config *configcache.Cache) *PassRepo {
	return &PassRepo{api: api, tables: tables{config: config}}
}

// CreateApplied writes the pass and bumps the owner's appliedCount in one transaction.
func (r *PassRepo) CreateApplied(ctx context.Context, p passrepo.Pass) error {
	passesTable, err := r.tables.passes(ctx)
	if err != nil {
		return err
	}
	applicantsTable, err := r.tables.applicants(ctx)
	if err != nil {
		return err
	}
	item, err := attributevalue.MarshalMap(toPassItem(p))
	if err != nil {
		return err
	}

	_, err = r.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(passesTable),
				Item:                item,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
			{Update: &types.Update{
				TableName:           aws.String(applicantsTable),
				Key:                 map[string]types.AttributeValue{"id": stringValue(string(p.ApplicantID))},
				UpdateExpression:    aws.String("SET appliedCount = appliedCount + :inc"),
				ConditionExpression: aws.String("attribute_exists(id)"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":inc": &types.AttributeValueMemberN{Value: "1"},
				},
			}},
		},
	})
	if err != nil {
		return mapCancellation(err)
	}
	return nil
}

// mapCancellation turns a failed condition on the put (index 0) or the update (index 1)
// into the matching repository error.
func mapCancellation(err error) error {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		return err
	}
	for i, reason := range tce.CancellationReasons {
		if aws.ToString(reason.Code) != "ConditionalCheckFailed" {
			continue
		}
		switch i {
		case 0:
			return passrepo.ErrAlreadyExists
		case 1:
			return passrepo.ErrApplicantNotFound
		}
	}
	return err
}

func (r *PassRepo) GetByID(ctx context.Context, id domain.PassID) (passrepo.Pass, error) {
	table, err := r.tables.passes(ctx)
	if err != nil {
		return passrepo.Pass{}, err
	}
	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            map[string]types.AttributeValue{"id": stringValue(string(id))},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return passrepo.Pass{}, err
	}
	if len(out.Item) == 0 {
		return passrepo.Pass{}, passrepo.ErrNotFound
	}
	var it passItem
	if err := attributevalue.UnmarshalMap(out.Item, &it); err != nil {
		return passrepo.Pass{}, err
	}
	return it.toRecord()
}

func (r *PassRepo) ListByApplicant(ctx context.Context, applicantID domain.ApplicantID, limit int, startKey *domain.PassListKey) (passrepo.Page, error) {
	table, err := r.tables.passes(ctx)
	if err != nil {
		return passrepo.Page{}, err
	}
	if limit <= 0 {
		limit = passrepo.DefaultPageSize
	}

	in := &dynamodb.QueryInput{
		TableName:              aws.String(table),
		IndexName:              aws.String(PassesByApplicantIndex),
		KeyConditionExpression: aws.String("applicantId = :applicantId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":applicantId": stringValue(string(applicantID)),
		},
		ScanIndexForward: aws.Bool(false),
		// One extra item tells us whether another page exists.
		Limit: aws.Int32(int32(limit + 1)),
	}
	if startKey != nil {
		in.ExclusiveStartKey = map[string]types.AttributeValue{
			"id":          stringValue(string(startKey.ID)),
			"applicantId": stringValue(string(applicantID)),
			"endAtKey":    stringValue(endAtKey(*startKey)),
		}
	}

	out, err := r.api.Query(ctx, in)
	if err != nil {
		return passrepo.Page{}, err
	}

	var items []passItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return passrepo.Page{}, err
	}

	passes := make([]passrepo.Pass, 0, min(len(items), limit))
	for _, it := range items {
		p, err := it.toRecord()
		if err != nil {
			return passrepo.Page{}, err
		}
		passes = append(passes, p)
	}

	var next *domain.PassListKey
	switch {
	case len(passes) > limit:
		passes = passes[:limit]
		last := passes[len(passes)-1]
		next = &domain.PassListKey{ID: last.ID, EndAt: last.EndAt}
	case len(out.LastEvaluatedKey) > 0 && len(passes) > 0:
		// The 1 MB response cap cut the page short; more items may follow.
		last := passes[len(passes)-1]
		next = &domain.PassListKey{ID: last.ID, EndAt: last.EndAt}
	}
	return passrepo.Page{Passes: passes, Next: next}, nil
}
