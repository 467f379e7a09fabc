package dynamo

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/qwiksale/verify-api/internal/domain"
)

// AccountRepo reads marketplace accounts and flips their contact confirmation
// flags. It is a downstream collaborator of verification: callers treat every
// operation on it as best-effort.
type AccountRepo struct {
	client    *dynamodb.Client
	tableName string
}

func NewAccountRepo(client *dynamodb.Client, tableName string) *AccountRepo {
	return &AccountRepo{client: client, tableName: tableName}
}

func (r *AccountRepo) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.queryGSI(ctx, "email-index", "email", email)
}

func (r *AccountRepo) GetByPhone(ctx context.Context, phone string) (*domain.Account, error) {
	return r.queryGSI(ctx, "phone-index", "phone", phone)
}

// ConfirmIdentifier marks the identifier's confirmation flag on the owning
// account. A missing account is not an error: codes are issued for any
// identifier, known or not.
func (r *AccountRepo) ConfirmIdentifier(ctx context.Context, identifier string, channel domain.Channel) error {
	var (
		acc  *domain.Account
		err  error
		flag string
	)
	switch channel {
	case domain.ChannelEmail:
		acc, err = r.GetByEmail(ctx, identifier)
		flag = "email_confirmed"
	case domain.ChannelPhone:
		acc, err = r.GetByPhone(ctx, identifier)
		flag = "phone_confirmed"
	default:
		return fmt.Errorf("unknown channel %q: %w", channel, domain.ErrBadRequest)
	}
	if err != nil {
		return err
	}
	if acc == nil {
		return nil
	}
	return r.update(ctx, acc.AccountID, map[string]interface{}{flag: true})
}

func (r *AccountRepo) update(ctx context.Context, accountID string, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now().UTC().Format(time.RFC3339)
	ue, err := buildUpdateExpr(updates)
	if err != nil {
		return err
	}
	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       strKey("account_id", accountID),
		UpdateExpression:          aws.String(ue.Expr),
		ExpressionAttributeNames:  ue.Names,
		ExpressionAttributeValues: ue.Values,
	})
	return err
}

// queryGSI returns the first match, or nil when the identifier maps to no account.
func (r *AccountRepo) queryGSI(ctx context.Context, index, attr, value string) (*domain.Account, error) {
	out, err := r.client.Query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		IndexName:                 aws.String(index),
		KeyConditionExpression:    aws.String("#a = :v"),
		ExpressionAttributeNames:  map[string]string{"#a": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":v": &types.AttributeValueMemberS{Value: value}},
		Limit:                     aws.Int32(1),
	})
	if err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var acc domain.Account
	if err := attributevalue.UnmarshalMap(out.Items[0], &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}
