package usecase

import (
	"context"
	"errors"
	"net/http"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/logger"
	"autopost-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

type onboardingUsecase struct {
	repo     domain.OnboardingRepository
	notifier domain.Notifier
	validate *validator.Validate
}

func NewOnboardingUsecase(repo domain.OnboardingRepository, notifier domain.Notifier, validate *validator.Validate) domain.OnboardingUsecase {
	return &onboardingUsecase{
		repo:     repo,
		notifier: notifier,
		validate: validate,
	}
}

// ============================================================================
// Read
// ============================================================================

func (u *onboardingUsecase) Get(ctx context.Context, userID string) (*domain.OnboardingView, error) {
	state, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	view := state.View()
	return &view, nil
}

func (u *onboardingUsecase) Summary(ctx context.Context, userID string) (*domain.DashboardSummary, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}

	summary, err := u.repo.Summary(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return &domain.DashboardSummary{}, nil
	}
	if err != nil {
		return nil, apperror.New(http.StatusInternalServerError, "Failed to load dashboard summary", err)
	}
	return summary, nil
}

// ============================================================================
// Updates
// ============================================================================

func (u *onboardingUsecase) Patch(ctx context.Context, userID string, patch domain.OnboardingPatch) (*domain.OnboardingView, error) {
	if err := u.validatePatch(&patch); err != nil {
		return nil, err
	}
	state, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.persist(ctx, userID, state.WithData(patch))
}

func (u *onboardingUsecase) SetStep(ctx context.Context, userID string, step int) (*domain.OnboardingView, error) {
	state, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return u.persist(ctx, userID, state.WithStep(step))
}

// Save replaces the stored answers with a full client snapshot. The
// completed flag can only be set through Complete or Navigate.
func (u *onboardingUsecase) Save(ctx context.Context, userID string, req domain.SaveProgressRequest) (*domain.OnboardingView, error) {
	if req.Data.TestOption != "" && req.Data.TestOption != domain.TestOptionWatch && req.Data.TestOption != domain.TestOptionProvided {
		return nil, apperror.Validation("Validation failed", []string{"Test option must be one of: watch, provided"})
	}
	current, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	next := domain.NewOnboardingState(req.CurrentStep, req.Data, current.Completed())
	return u.persist(ctx, userID, next)
}

// Navigate applies an optional patch and one wizard transition, then
// persists the result in one transaction.
func (u *onboardingUsecase) Navigate(ctx context.Context, userID string, req domain.NavigateRequest) (*domain.OnboardingView, error) {
	if err := u.validate.Struct(req); err != nil {
		return nil, apperror.Validation("Validation failed", validation.FormatValidationErrors(err))
	}
	if req.Data != nil {
		if err := u.validatePatch(req.Data); err != nil {
			return nil, err
		}
	}

	state, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if req.Data != nil {
		state = state.WithData(*req.Data)
	}

	var next domain.OnboardingState
	switch req.Action {
	case domain.ActionContinue:
		next, err = state.Continue()
	case domain.ActionBack:
		next = state.Back()
	case domain.ActionSkip:
		next, err = state.Skip()
	default:
		err = domain.ErrUnknownAction
	}
	if err != nil {
		return nil, navigationError(err)
	}

	view, err := u.persist(ctx, userID, next)
	if err != nil {
		return nil, err
	}
	if next.Completed() && !state.Completed() {
		u.notifyWorkflow(ctx, next)
	}
	return view, nil
}

// Complete saves the snapshot with the completed flag set and queues the
// workflow notice for the team. Completing twice does not notify twice.
func (u *onboardingUsecase) Complete(ctx context.Context, userID string, patch *domain.OnboardingPatch) (*domain.OnboardingView, error) {
	if patch != nil {
		if err := u.validatePatch(patch); err != nil {
			return nil, err
		}
	}
	state, err := u.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if patch != nil {
		state = state.WithData(*patch)
	}

	next := state.Complete()
	view, err := u.persist(ctx, userID, next)
	if err != nil {
		return nil, err
	}
	if !state.Completed() {
		u.notifyWorkflow(ctx, next)
	}
	return view, nil
}

// ============================================================================
// Helpers
// ============================================================================

// load returns the persisted snapshot, or the default one for a user
// without a profile row.
func (u *onboardingUsecase) load(ctx context.Context, userID string) (domain.OnboardingState, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return domain.OnboardingState{}, err
	}

	state, err := u.repo.Load(ctx, userID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.DefaultOnboardingState(), nil
	}
	if err != nil {
		return domain.OnboardingState{}, apperror.New(http.StatusInternalServerError, "Failed to load onboarding progress", err)
	}
	return state, nil
}

func (u *onboardingUsecase) persist(ctx context.Context, userID string, state domain.OnboardingState) (*domain.OnboardingView, error) {
	if err := u.repo.Save(ctx, userID, state); err != nil {
		logger.Log.Error("Failed to save onboarding progress", "user_id", userID, "step", state.CurrentStep().String(), "error", err)
		return nil, apperror.New(http.StatusInternalServerError, "Failed to save onboarding progress", err)
	}
	view := state.View()
	return &view, nil
}

func (u *onboardingUsecase) validatePatch(patch *domain.OnboardingPatch) error {
	if err := u.validate.Struct(patch); err != nil {
		return apperror.Validation("Validation failed", validation.FormatValidationErrors(err))
	}
	return nil
}

func (u *onboardingUsecase) notifyWorkflow(ctx context.Context, state domain.OnboardingState) {
	data := state.Data()
	email, _ := ctx.Value(domain.KeyUserEmail).(string)
	notifyQuietly(ctx, u.notifier, domain.Notification{
		Kind: domain.NotifyWorkflow,
		Workflow: &domain.WorkflowNotice{
			UserEmail:      email,
			UserName:       data.BrandName,
			SourcePlatform: data.MainSourcePlatform,
			Destinations:   data.Destinations,
			Frequency:      data.Frequency,
			SkippedSetup:   state.SkippedWorkflowSetup(),
		},
	})
}

func navigationError(err error) error {
	var incomplete *domain.StepIncompleteError
	switch {
	case errors.As(err, &incomplete):
		return apperror.New(http.StatusBadRequest, incomplete.Reason, err)
	case errors.Is(err, domain.ErrSkipNotAllowed), errors.Is(err, domain.ErrUnknownAction):
		return apperror.New(http.StatusBadRequest, err.Error(), err)
	default:
		return apperror.Internal(err)
	}
}

// requireSelf rejects requests for another user's data.
func requireSelf(ctx context.Context, userID string) error {
	ctxUserID, ok := ctx.Value(domain.KeyUserID).(string)
	if !ok || ctxUserID == "" {
		return apperror.Unauthorized("User not authenticated")
	}
	if ctxUserID != userID {
		return apperror.Forbidden("You can only access your own onboarding")
	}
	return nil
}
