// Package email renders the notification templates and sends them through
// Resend or SMTP.
package email

import (
	"context"
	"errors"

	"autopost-backend/config"

	"golang.org/x/time/rate"
)

var ErrNotConfigured = errors.New("email: no Resend key or SMTP credentials configured")

type Message struct {
	From    string
	To      []string
	ReplyTo string
	Subject string
	HTML    string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender prefers the Resend API and falls back to SMTP (Brevo). Sends are
// paced to cfg.EmailPerSec.
func NewSender(cfg *config.Config) (Sender, error) {
	var s Sender
	switch {
	case cfg.ResendAPIKey != "":
		s = NewResendSender(cfg.ResendBaseURL, cfg.ResendAPIKey, nil)
	default:
		smtpSender := NewSMTPSender(cfg)
		if !smtpSender.IsConfigured() {
			return nil, ErrNotConfigured
		}
		s = smtpSender
	}
	return NewRateLimitedSender(s, rate.Limit(cfg.EmailPerSec), 1), nil
}

// RateLimitedSender waits for a token before every send.
type RateLimitedSender struct {
	next    Sender
	limiter *rate.Limiter
}

func NewRateLimitedSender(next Sender, limit rate.Limit, burst int) *RateLimitedSender {
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &RateLimitedSender{next: next, limiter: rate.NewLimiter(limit, burst)}
}

func (s *RateLimitedSender) Send(ctx context.Context, msg Message) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return err
	}
	return s.next.Send(ctx, msg)
}
