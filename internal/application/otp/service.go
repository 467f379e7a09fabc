package otp

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/qwiksale/verify-api/internal/domain"
	"github.com/qwiksale/verify-api/internal/infrastructure/otpstore"
	"github.com/qwiksale/verify-api/internal/infrastructure/smtp"
	"github.com/qwiksale/verify-api/internal/infrastructure/sns"
	"github.com/qwiksale/verify-api/internal/infrastructure/throttle"
	pkgcode "github.com/qwiksale/verify-api/internal/pkg/code"
	pkgid "github.com/qwiksale/verify-api/internal/pkg/id"
	pkgidentifier "github.com/qwiksale/verify-api/internal/pkg/identifier"
)

// AccountConfirmer is the downstream collaborator notified after a successful
// verification. Its failures never demote the verification result.
type AccountConfirmer interface {
	ConfirmIdentifier(ctx context.Context, identifier string, channel domain.Channel) error
}

// Config carries the issuance/verification policy knobs.
type Config struct {
	TTL             time.Duration
	DispatchTimeout time.Duration

	IssuePerIP          throttle.Policy
	IssuePerIdentifier  throttle.Policy
	VerifyPerIP         throttle.Policy
	VerifyPerIdentifier throttle.Policy
}

// Service issues and verifies one-time codes.
//
// Issue returning nil tells the caller nothing about whether the identifier
// maps to an account; the only distinct caller-visible failures are
// validation and throttling.
type Service interface {
	Issue(ctx context.Context, rawIdentifier, ip string) error
	Verify(ctx context.Context, rawIdentifier, suppliedCode, ip string) (domain.VerifyOutcome, error)
}

type service struct {
	store     otpstore.Store
	throttle  throttle.Throttle
	mailer    smtp.Mailer
	smsSender sns.SMSSender
	accounts  AccountConfirmer // nil when no accounts table is configured
	cfg       Config
}

func NewService(
	store otpstore.Store,
	thr throttle.Throttle,
	mailer smtp.Mailer,
	smsSender sns.SMSSender,
	accounts AccountConfirmer,
	cfg Config,
) Service {
	return &service{
		store:     store,
		throttle:  thr,
		mailer:    mailer,
		smsSender: smsSender,
		accounts:  accounts,
		cfg:       cfg,
	}
}

func (s *service) Issue(ctx context.Context, rawIdentifier, ip string) error {
	identifier, channel, err := pkgidentifier.Normalize(rawIdentifier)
	if err != nil {
		return err
	}
	if err := s.allow(ctx, "issue:ip", ip, s.cfg.IssuePerIP); err != nil {
		return err
	}
	if err := s.allow(ctx, "issue:id", identifier, s.cfg.IssuePerIdentifier); err != nil {
		return err
	}

	code, err := pkgcode.New()
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, identifier, code, channel, s.cfg.TTL); err != nil {
		return fmt.Errorf("persist code: %w", err)
	}

	// The stored code, not the delivery, is the source of truth: a send
	// failure after a successful Put must still report success.
	s.dispatch(ctx, identifier, channel, code)
	return nil
}

func (s *service) Verify(ctx context.Context, rawIdentifier, suppliedCode, ip string) (domain.VerifyOutcome, error) {
	identifier, channel, err := pkgidentifier.Normalize(rawIdentifier)
	if err != nil {
		return "", err
	}
	if !pkgcode.Valid(suppliedCode) {
		return "", fmt.Errorf("malformed code: %w", domain.ErrBadRequest)
	}
	if err := s.allow(ctx, "verify:ip", ip, s.cfg.VerifyPerIP); err != nil {
		return "", err
	}
	if err := s.allow(ctx, "verify:id", identifier, s.cfg.VerifyPerIdentifier); err != nil {
		return "", err
	}

	outcome, err := s.store.Consume(ctx, identifier, suppliedCode)
	if err != nil {
		return "", fmt.Errorf("consume code: %w", err)
	}

	if outcome == domain.OutcomeOK && s.accounts != nil {
		if err := s.accounts.ConfirmIdentifier(ctx, identifier, channel); err != nil {
			slog.Warn("account confirmation update failed", "channel", channel, "err", err)
		}
	}
	return outcome, nil
}

// allow runs one throttle bucket. A backend failure fails open: an
// infrastructure hiccup must not keep legitimate users from their codes.
func (s *service) allow(ctx context.Context, bucket, subject string, p throttle.Policy) error {
	if subject == "" {
		return nil
	}
	res, err := s.throttle.Check(ctx, bucket, subject, p)
	if err != nil {
		slog.Warn("throttle backend unavailable, allowing request", "bucket", bucket, "err", err)
		return nil
	}
	if !res.Allowed {
		return &domain.ThrottledError{RetryAfter: res.RetryAfter}
	}
	return nil
}

func (s *service) dispatch(ctx context.Context, identifier string, channel domain.Channel, code string) {
	ref := pkgid.New()
	ctx, cancel := context.WithTimeout(ctx, s.cfg.DispatchTimeout)
	defer cancel()

	minutes := int(s.cfg.TTL.Minutes())
	message := fmt.Sprintf("Your QwikSale verification code is %s. It expires in %d minutes.", code, minutes)

	var err error
	switch channel {
	case domain.ChannelEmail:
		err = s.mailer.SendEmail(identifier, "Your QwikSale verification code", message)
	case domain.ChannelPhone:
		err = s.smsSender.SendSMS(ctx, identifier, message)
	}
	if err != nil {
		slog.Warn("code delivery failed", "dispatch_ref", ref, "channel", channel, "err", err)
	}
}
