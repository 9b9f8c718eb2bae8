package domain

import (
	"context"
	"time"
)

// PlatformAnswer is one platform block of the detailed intake form.
type PlatformAnswer struct {
	HasAccount           *bool    `json:"hasAccount"`
	HandleOrURL          string   `json:"handleOrUrl"`
	AddToWorkflow        bool     `json:"addToWorkflow"`
	WantsAccountCreation *bool    `json:"wantsAccountCreation"`
	PostTypes            []string `json:"postTypes,omitempty"`
}

// Normalize drops answers that contradict HasAccount: without an account
// there is no handle and nothing to add to a workflow, with one there is
// nothing to create.
func (a PlatformAnswer) Normalize() PlatformAnswer {
	out := a
	out.PostTypes = append([]string{}, a.PostTypes...)
	if a.HasAccount == nil {
		return out
	}
	if *a.HasAccount {
		out.WantsAccountCreation = nil
	} else {
		out.HandleOrURL = ""
		out.AddToWorkflow = false
	}
	return out
}

type IntakeRequest struct {
	Token            string                    `json:"token,omitempty"`
	FullName         string                    `json:"fullName" validate:"required,max=200"`
	Email            string                    `json:"email" validate:"required,max=255,basic_email"`
	BusinessName     string                    `json:"businessName" validate:"max=200"`
	BusinessType     string                    `json:"businessType" validate:"required,max=100"`
	PostingFrequency string                    `json:"postingFrequency" validate:"max=50"`
	PainPoint        string                    `json:"painPoint" validate:"max=2000"`
	ExtraNotes       string                    `json:"extraNotes" validate:"max=2000"`
	Platforms        map[string]PlatformAnswer `json:"platforms"`
}

// IntakeSubmission is a row of intake_submissions.
type IntakeSubmission struct {
	ID               string                    `json:"id"`
	FullName         string                    `json:"fullName"`
	Email            string                    `json:"email"`
	BusinessName     *string                   `json:"businessName,omitempty"`
	BusinessType     string                    `json:"businessType"`
	PostingFrequency *string                   `json:"postingFrequency,omitempty"`
	PainPoint        *string                   `json:"painPoint,omitempty"`
	ExtraNotes       *string                   `json:"extraNotes,omitempty"`
	Platforms        map[string]PlatformAnswer `json:"platforms"`
	IntakeToken      *string                   `json:"intakeToken,omitempty"`
	CreatedAt        time.Time                 `json:"createdAt"`
}

type IntakeRepository interface {
	// Create inserts the submission. With a token it also marks the beta
	// request's intake as completed in the same transaction.
	Create(ctx context.Context, sub *IntakeSubmission) error
}

type IntakeUsecase interface {
	SubmitVideoRequest(ctx context.Context, input VideoRequestInput) (*VideoRequest, error)
	SubmitBetaSignup(ctx context.Context, req BetaSignupRequest) (*BetaSignupResult, error)
	CheckToken(ctx context.Context, token string) (*IntakeTokenStatus, error)
	SubmitIntake(ctx context.Context, req IntakeRequest) (*IntakeSubmission, error)
	LinkToken(ctx context.Context, token string) error
}
