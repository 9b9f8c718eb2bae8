package usecase

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/logger"
	"autopost-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	msgInvalidToken = "Invalid token. Please complete your intake form first."
	msgNotApproved  = "Your beta request has not been approved yet."
)

type intakeUsecase struct {
	requests domain.VideoRequestRepository
	intakes  domain.IntakeRepository
	notifier domain.Notifier
	validate *validator.Validate
	newToken func() string
}

func NewIntakeUsecase(
	requests domain.VideoRequestRepository,
	intakes domain.IntakeRepository,
	notifier domain.Notifier,
	validate *validator.Validate,
) domain.IntakeUsecase {
	return &intakeUsecase{
		requests: requests,
		intakes:  intakes,
		notifier: notifier,
		validate: validate,
		newToken: uuid.NewString,
	}
}

// ============================================================================
// Video request
// ============================================================================

func (u *intakeUsecase) SubmitVideoRequest(ctx context.Context, input domain.VideoRequestInput) (*domain.VideoRequest, error) {
	userID, ok := ctx.Value(domain.KeyUserID).(string)
	if !ok || userID == "" {
		return nil, apperror.Unauthorized("User not authenticated")
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.TrimSpace(input.Email)
	input.VideoLink = strings.TrimSpace(input.VideoLink)
	if err := u.validate.Struct(input); err != nil {
		return nil, apperror.Validation("Validation failed", validation.FormatValidationErrors(err))
	}
	if input.Frequency == "" {
		input.Frequency = domain.DefaultRequestFrequency
	}

	req := &domain.VideoRequest{
		UserID:            &userID,
		Name:              input.Name,
		Email:             input.Email,
		VideoLink:         input.VideoLink,
		Platforms:         input.Platforms,
		Frequency:         input.Frequency,
		Notes:             optional(input.Notes),
		DriveUploadStatus: domain.DriveStatusPending,
		Status:            domain.RequestPending,
	}
	if err := u.requests.Create(ctx, req); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to submit request", err)
	}

	logger.Log.Info("Video request submitted", "request_id", req.ID, "user_id", userID, "platforms", len(req.Platforms))
	return req, nil
}

// ============================================================================
// Beta signup
// ============================================================================

func (u *intakeUsecase) SubmitBetaSignup(ctx context.Context, in domain.BetaSignupRequest) (*domain.BetaSignupResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	if err := u.validate.Struct(in); err != nil {
		return nil, apperror.Validation("Validation failed", validation.FormatValidationErrors(err))
	}

	token := u.newToken()
	req := &domain.VideoRequest{
		Name:              in.Name,
		Email:             in.Email,
		Platforms:         in.Platforms,
		Frequency:         in.VideosPerWeek,
		Notes:             optional(in.PainPoint),
		BusinessType:      optional(in.BusinessType),
		DriveUploadStatus: domain.DriveStatusBetaRequest,
		Status:            domain.RequestPending,
		IntakeToken:       &token,
	}
	if err := u.requests.Create(ctx, req); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to submit beta request", err)
	}

	notifyQuietly(ctx, u.notifier, domain.Notification{
		Kind: domain.NotifyBetaSignup,
		BetaSignup: &domain.BetaSignupNotice{
			Name:          in.Name,
			Email:         in.Email,
			BusinessType:  in.BusinessType,
			Platforms:     in.Platforms,
			VideosPerWeek: in.VideosPerWeek,
			PainPoint:     in.PainPoint,
		},
	})

	logger.Log.Info("Beta request submitted", "request_id", req.ID)
	return &domain.BetaSignupResult{ID: req.ID}, nil
}

// ============================================================================
// Detailed intake
// ============================================================================

func (u *intakeUsecase) CheckToken(ctx context.Context, token string) (*domain.IntakeTokenStatus, error) {
	req, err := u.approvedRequest(ctx, token)
	if err != nil {
		return nil, err
	}
	return &domain.IntakeTokenStatus{
		Email:           req.Email,
		Name:            req.Name,
		IntakeCompleted: req.IntakeCompleted,
	}, nil
}

func (u *intakeUsecase) SubmitIntake(ctx context.Context, in domain.IntakeRequest) (*domain.IntakeSubmission, error) {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := u.validate.Struct(in); err != nil {
		return nil, apperror.Validation("Validation failed", validation.FormatValidationErrors(err))
	}

	var token *string
	if in.Token != "" {
		if _, err := u.approvedRequest(ctx, in.Token); err != nil {
			return nil, err
		}
		token = &in.Token
	}

	sub := &domain.IntakeSubmission{
		FullName:         in.FullName,
		Email:            in.Email,
		BusinessName:     optional(in.BusinessName),
		BusinessType:     in.BusinessType,
		PostingFrequency: optional(in.PostingFrequency),
		PainPoint:        optional(in.PainPoint),
		ExtraNotes:       optional(in.ExtraNotes),
		Platforms:        normalizeAnswers(in.Platforms),
		IntakeToken:      token,
	}
	if err := u.intakes.Create(ctx, sub); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to submit intake form", err)
	}

	logger.Log.Info("Intake submitted", "intake_id", sub.ID, "with_token", token != nil)
	return sub, nil
}

// LinkToken attaches the beta request behind token to the signed-in user.
func (u *intakeUsecase) LinkToken(ctx context.Context, token string) error {
	userID, ok := ctx.Value(domain.KeyUserID).(string)
	if !ok || userID == "" {
		return apperror.Unauthorized("User not authenticated")
	}
	if token == "" {
		return apperror.BadRequest("Token is required")
	}

	err := u.requests.LinkUser(ctx, token, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return apperror.NotFound(msgInvalidToken)
	}
	if err != nil {
		return apperror.New(http.StatusInternalServerError, "Failed to link intake to account", err)
	}
	return nil
}

func (u *intakeUsecase) approvedRequest(ctx context.Context, token string) (*domain.VideoRequest, error) {
	if token == "" {
		return nil, apperror.NotFound(msgInvalidToken)
	}
	req, err := u.requests.GetByIntakeToken(ctx, token)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperror.NotFound(msgInvalidToken)
	}
	if err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to verify token", err)
	}
	if req.Status != domain.RequestApproved {
		return nil, apperror.Forbidden(msgNotApproved)
	}
	return req, nil
}

// normalizeAnswers keeps the known intake platforms and drops contradictory
// answers.
func normalizeAnswers(in map[string]domain.PlatformAnswer) map[string]domain.PlatformAnswer {
	out := make(map[string]domain.PlatformAnswer, len(in))
	for platform, answer := range in {
		if !slices.Contains(domain.IntakePlatforms, platform) {
			continue
		}
		out[platform] = answer.Normalize()
	}
	return out
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
