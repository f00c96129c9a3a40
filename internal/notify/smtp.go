// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
	"gopkg.in/gomail.v2"

	"github.com/holomush/accountd/internal/auth"
)

// Default SMTP delivery settings.
const (
	DefaultSMTPRetries   = 2
	DefaultSMTPBaseDelay = 200 * time.Millisecond
)

// Sender sends composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTPConfig describes the outgoing mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPSink emails one-time tokens through an SMTP server.
type SMTPSink struct {
	sender    Sender
	from      string
	retries   uint64
	baseDelay time.Duration
}

// SMTPOption configures an SMTPSink.
type SMTPOption func(*SMTPSink)

// WithSender replaces the gomail dialer.
func WithSender(sender Sender) SMTPOption {
	return func(s *SMTPSink) { s.sender = sender }
}

// WithRetry sets how many times a failed send is retried and the initial
// backoff between attempts.
func WithRetry(retries uint64, baseDelay time.Duration) SMTPOption {
	return func(s *SMTPSink) {
		s.retries = retries
		s.baseDelay = baseDelay
	}
}

// NewSMTPSink creates an SMTPSink for cfg.
func NewSMTPSink(cfg SMTPConfig, opts ...SMTPOption) (*SMTPSink, error) {
	if cfg.Host == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").Errorf("sender address is required")
	}

	s := &SMTPSink{
		sender:    gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:      cfg.From,
		retries:   DefaultSMTPRetries,
		baseDelay: DefaultSMTPBaseDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.baseDelay <= 0 {
		return nil, oops.Code("NOTIFY_CONFIG_INVALID").
			With("base_delay", s.baseDelay).
			Errorf("retry base delay must be positive")
	}
	return s, nil
}

// SendToken emails token to email, retrying transient send failures with
// exponential backoff until ctx is done.
func (s *SMTPSink) SendToken(ctx context.Context, email, token string, purpose auth.Purpose) error {
	m, err := s.compose(email, token, purpose)
	if err != nil {
		return err
	}

	backoff := retry.WithMaxRetries(s.retries, retry.NewExponential(s.baseDelay))
	err = retry.Do(ctx, backoff, func(_ context.Context) error {
		if err := s.sender.DialAndSend(m); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("NOTIFY_SEND_FAILED").
			With("purpose", string(purpose)).
			Wrap(err)
	}
	return nil
}

func (s *SMTPSink) compose(email, token string, purpose auth.Purpose) (*gomail.Message, error) {
	var subject, intro string
	switch purpose {
	case auth.PurposeVerification:
		subject = "Verify your email address"
		intro = "Use this code to verify your account:"
	case auth.PurposePasswordReset:
		subject = "Reset your password"
		intro = "Use this code to choose a new password:"
	default:
		return nil, oops.Code("NOTIFY_UNKNOWN_PURPOSE").
			With("purpose", string(purpose)).
			Errorf("no message for token purpose %q", purpose)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", email)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", fmt.Sprintf(
		"%s\n\n%s\n\nIf you did not request this, you can ignore this message.\n",
		intro, token))
	return m, nil
}
