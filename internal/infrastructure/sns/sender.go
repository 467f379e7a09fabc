package sns

import (
	"context"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/qwiksale/verify-api/internal/config"
)

// SMSSender sends SMS messages via AWS SNS.
type SMSSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type sender struct {
	client *sns.Client
}

func NewSender(cfg *config.Config) (SMSSender, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(cfg.SNSRegion),
	)
	if err != nil {
		return nil, err
	}
	return &sender{client: sns.NewFromConfig(awsCfg)}, nil
}

func (s *sender) SendSMS(ctx context.Context, to, message string) error {
	// SNS wants a +-prefixed E.164 number; identifiers are stored without it.
	phone := "+" + to
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber: &phone,
		Message:     &message,
	})
	return err
}

// logSender writes the message to the log instead of sending it. Development
// convenience only; main refuses to wire it in production.
type logSender struct{}

func NewLogSender() SMSSender { return &logSender{} }

func (logSender) SendSMS(_ context.Context, to, message string) error {
	slog.Info("sns not configured, logging sms instead", "to", to, "message", message)
	return nil
}
