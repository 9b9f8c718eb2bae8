package domain

import (
	"context"
	"errors"
	"fmt"
)

type NotificationKind string

const (
	NotifyBetaSignup  NotificationKind = "beta_signup"
	NotifyIntakeLink  NotificationKind = "intake_link"
	NotifyDenial      NotificationKind = "denial"
	NotifyCredentials NotificationKind = "credentials_submitted"
	NotifyWorkflow    NotificationKind = "workflow_created"
)

type BetaSignupNotice struct {
	Name          string   `json:"name"`
	Email         string   `json:"email"`
	BusinessType  string   `json:"businessType"`
	Platforms     []string `json:"platforms"`
	VideosPerWeek string   `json:"videosPerWeek"`
	PainPoint     string   `json:"painPoint"`
}

type IntakeLinkNotice struct {
	Email       string `json:"email"`
	Name        string `json:"name"`
	IntakeToken string `json:"intakeToken"`
}

type DenialNotice struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

type CredentialsNotice struct {
	Platform  string `json:"platform"`
	Username  string `json:"username"`
	UserEmail string `json:"userEmail,omitempty"`
}

type WorkflowNotice struct {
	UserEmail      string   `json:"userEmail"`
	UserName       string   `json:"userName,omitempty"`
	SourcePlatform string   `json:"sourcePlatform"`
	Destinations   []string `json:"destinations"`
	Frequency      string   `json:"frequency"`
	SkippedSetup   bool     `json:"skippedSetup"`
}

// Notification is one queued email job. Exactly one payload is set, the
// one matching Kind.
type Notification struct {
	Kind        NotificationKind   `json:"kind"`
	BetaSignup  *BetaSignupNotice  `json:"betaSignup,omitempty"`
	IntakeLink  *IntakeLinkNotice  `json:"intakeLink,omitempty"`
	Denial      *DenialNotice      `json:"denial,omitempty"`
	Credentials *CredentialsNotice `json:"credentials,omitempty"`
	Workflow    *WorkflowNotice    `json:"workflow,omitempty"`
}

var ErrInvalidNotification = errors.New("invalid notification")

func (n Notification) Validate() error {
	var ok bool
	switch n.Kind {
	case NotifyBetaSignup:
		ok = n.BetaSignup != nil && n.BetaSignup.Email != ""
	case NotifyIntakeLink:
		ok = n.IntakeLink != nil && n.IntakeLink.Email != "" && n.IntakeLink.Name != "" && n.IntakeLink.IntakeToken != ""
	case NotifyDenial:
		ok = n.Denial != nil && n.Denial.Email != "" && n.Denial.Name != ""
	case NotifyCredentials:
		ok = n.Credentials != nil && n.Credentials.Platform != ""
	case NotifyWorkflow:
		ok = n.Workflow != nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidNotification, n.Kind)
	}
	if !ok {
		return fmt.Errorf("%w: missing %s payload fields", ErrInvalidNotification, n.Kind)
	}
	return nil
}

// Notifier accepts notifications for asynchronous, at-least-once delivery.
type Notifier interface {
	Enqueue(ctx context.Context, n Notification) error
}

// NotificationDispatcher renders and sends one notification.
type NotificationDispatcher interface {
	Deliver(ctx context.Context, n Notification) error
}
