package usecase_test

import (
	"net/http"
	"testing"

	"autopost-backend/internal/domain"
	"autopost-backend/internal/usecase"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func workflowsState() domain.OnboardingState {
	data := domain.DefaultOnboardingData()
	data.BusinessType = "gym_studio"
	data.BrandName = "Iron Gym"
	data.Industry = "fitness_gym"
	data.Frequency = "daily"
	return domain.NewOnboardingState(int(domain.StepWorkflows), data, false)
}

func TestOnboardingUsecase_Get(t *testing.T) {
	t.Run("Should start a new user at the welcome step", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())
		repo.On("Load", mock.Anything, "user-1").Return(domain.OnboardingState{}, domain.ErrNotFound)

		view, err := uc.Get(userCtx("user-1"), "user-1")
		require.NoError(t, err)
		assert.Equal(t, 0, view.CurrentStep)
		assert.Equal(t, domain.TotalSteps, view.TotalSteps)
		assert.Equal(t, domain.TestOptionWatch, view.Data.TestOption)
	})

	t.Run("Should refuse another user's progress", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())

		_, err := uc.Get(userCtx("user-1"), "user-2")
		assert.Equal(t, http.StatusForbidden, apperror.StatusOf(err))
		repo.AssertNotCalled(t, "Load", mock.Anything, mock.Anything)
	})
}

func TestOnboardingUsecase_SetStep(t *testing.T) {
	repo := new(MockOnboardingRepo)
	uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())
	repo.On("Load", mock.Anything, "user-1").Return(domain.DefaultOnboardingState(), nil)
	repo.On("Save", mock.Anything, "user-1", mock.Anything).Return(nil)

	t.Run("Should clamp steps past the end", func(t *testing.T) {
		view, err := uc.SetStep(userCtx("user-1"), "user-1", 99)
		require.NoError(t, err)
		assert.Equal(t, int(domain.StepAutoPublish), view.CurrentStep)
	})

	t.Run("Should clamp negative steps", func(t *testing.T) {
		view, err := uc.SetStep(userCtx("user-1"), "user-1", -3)
		require.NoError(t, err)
		assert.Equal(t, 0, view.CurrentStep)
	})
}

func TestOnboardingUsecase_Patch(t *testing.T) {
	t.Run("Should clear destinations when the main source changes", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())

		data := domain.DefaultOnboardingData()
		data.MainSourcePlatform = "tiktok"
		data.Destinations = []string{"instagram", "youtube"}
		repo.On("Load", mock.Anything, "user-1").Return(domain.NewOnboardingState(3, data, false), nil)
		repo.On("Save", mock.Anything, "user-1", mock.MatchedBy(func(s domain.OnboardingState) bool {
			return s.Data().MainSourcePlatform == "youtube" && len(s.Data().Destinations) == 0
		})).Return(nil)

		source := "youtube"
		view, err := uc.Patch(userCtx("user-1"), "user-1", domain.OnboardingPatch{MainSourcePlatform: &source})
		require.NoError(t, err)
		assert.Empty(t, view.Data.Destinations)
		repo.AssertExpectations(t)
	})

	t.Run("Should reject an unknown test option", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())

		opt := "later"
		_, err := uc.Patch(userCtx("user-1"), "user-1", domain.OnboardingPatch{TestOption: &opt})
		assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestOnboardingUsecase_Save(t *testing.T) {
	t.Run("Should strip the main source from destinations", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())
		repo.On("Load", mock.Anything, "user-1").Return(domain.DefaultOnboardingState(), nil)
		repo.On("Save", mock.Anything, "user-1", mock.Anything).Return(nil)

		data := domain.DefaultOnboardingData()
		data.MainSourcePlatform = "tiktok"
		data.Destinations = []string{"tiktok", "instagram"}
		view, err := uc.Save(userCtx("user-1"), "user-1", domain.SaveProgressRequest{CurrentStep: 3, Data: data})
		require.NoError(t, err)
		assert.Equal(t, []string{"instagram"}, view.Data.Destinations)
	})

	t.Run("Should surface storage failures as 500", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())
		repo.On("Load", mock.Anything, "user-1").Return(domain.DefaultOnboardingState(), nil)
		repo.On("Save", mock.Anything, "user-1", mock.Anything).Return(assert.AnError)

		_, err := uc.Save(userCtx("user-1"), "user-1", domain.SaveProgressRequest{Data: domain.DefaultOnboardingData()})
		assert.Equal(t, http.StatusInternalServerError, apperror.StatusOf(err))
	})
}

func TestOnboardingUsecase_Navigate(t *testing.T) {
	t.Run("Should not advance past an incomplete step", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())
		repo.On("Load", mock.Anything, "user-1").Return(workflowsState(), nil)

		_, err := uc.Navigate(userCtx("user-1"), "user-1", domain.NavigateRequest{Action: domain.ActionContinue})
		require.Error(t, err)
		assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
		assert.Contains(t, err.Error(), "main source platform is required")
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should apply the patch and advance in one save", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())
		repo.On("Load", mock.Anything, "user-1").Return(workflowsState(), nil)
		repo.On("Save", mock.Anything, "user-1", mock.MatchedBy(func(s domain.OnboardingState) bool {
			return s.CurrentStep() == domain.StepAutoPublish && s.Data().MainSourcePlatform == "tiktok"
		})).Return(nil).Once()

		source, dests := "tiktok", []string{"instagram"}
		view, err := uc.Navigate(userCtx("user-1"), "user-1", domain.NavigateRequest{
			Action: domain.ActionContinue,
			Data:   &domain.OnboardingPatch{MainSourcePlatform: &source, Destinations: &dests},
		})
		require.NoError(t, err)
		assert.Equal(t, int(domain.StepAutoPublish), view.CurrentStep)
		repo.AssertExpectations(t)
	})

	t.Run("Should only skip the connect accounts step", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())
		repo.On("Load", mock.Anything, "user-1").Return(workflowsState(), nil)

		_, err := uc.Navigate(userCtx("user-1"), "user-1", domain.NavigateRequest{Action: domain.ActionSkip})
		assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
	})

	t.Run("Should complete on the final step and notify the team", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		notifier := new(MockNotifier)
		uc := usecase.NewOnboardingUsecase(repo, notifier, validation.New())

		data := workflowsState().Data()
		data.MainSourcePlatform = "tiktok"
		data.Destinations = []string{"instagram", "facebook"}
		repo.On("Load", mock.Anything, "user-1").Return(domain.NewOnboardingState(4, data, false), nil)
		repo.On("Save", mock.Anything, "user-1", mock.MatchedBy(func(s domain.OnboardingState) bool {
			return s.Completed()
		})).Return(nil)
		notifier.On("Enqueue", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
			return n.Kind == domain.NotifyWorkflow &&
				n.Workflow.UserEmail == "user-1@example.com" &&
				n.Workflow.SourcePlatform == "tiktok" &&
				len(n.Workflow.Destinations) == 2 &&
				!n.Workflow.SkippedSetup
		})).Return(nil).Once()

		view, err := uc.Navigate(userCtx("user-1"), "user-1", domain.NavigateRequest{Action: domain.ActionContinue})
		require.NoError(t, err)
		assert.True(t, view.Completed)
		notifier.AssertExpectations(t)
	})
}

func TestOnboardingUsecase_Complete(t *testing.T) {
	t.Run("Should flag a skipped workflow setup", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		notifier := new(MockNotifier)
		uc := usecase.NewOnboardingUsecase(repo, notifier, validation.New())
		repo.On("Load", mock.Anything, "user-1").Return(domain.DefaultOnboardingState(), nil)
		repo.On("Save", mock.Anything, "user-1", mock.Anything).Return(nil)
		notifier.On("Enqueue", mock.Anything, mock.MatchedBy(func(n domain.Notification) bool {
			return n.Workflow != nil && n.Workflow.SkippedSetup
		})).Return(nil)

		view, err := uc.Complete(userCtx("user-1"), "user-1", nil)
		require.NoError(t, err)
		assert.True(t, view.Completed)
		notifier.AssertNumberOfCalls(t, "Enqueue", 1)
	})

	t.Run("Should not notify twice for a completed wizard", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		notifier := new(MockNotifier)
		uc := usecase.NewOnboardingUsecase(repo, notifier, validation.New())
		repo.On("Load", mock.Anything, "user-1").
			Return(domain.NewOnboardingState(4, domain.DefaultOnboardingData(), true), nil)
		repo.On("Save", mock.Anything, "user-1", mock.Anything).Return(nil)

		_, err := uc.Complete(userCtx("user-1"), "user-1", nil)
		require.NoError(t, err)
		notifier.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("Should still succeed when the notice cannot be queued", func(t *testing.T) {
		repo := new(MockOnboardingRepo)
		notifier := new(MockNotifier)
		uc := usecase.NewOnboardingUsecase(repo, notifier, validation.New())
		repo.On("Load", mock.Anything, "user-1").Return(domain.DefaultOnboardingState(), nil)
		repo.On("Save", mock.Anything, "user-1", mock.Anything).Return(nil)
		notifier.On("Enqueue", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := uc.Complete(userCtx("user-1"), "user-1", nil)
		assert.NoError(t, err)
	})
}

func TestOnboardingUsecase_Summary(t *testing.T) {
	repo := new(MockOnboardingRepo)
	uc := usecase.NewOnboardingUsecase(repo, nil, validation.New())
	repo.On("Summary", mock.Anything, "user-1").Return(nil, domain.ErrNotFound)

	summary, err := uc.Summary(userCtx("user-1"), "user-1")
	require.NoError(t, err)
	assert.Equal(t, &domain.DashboardSummary{}, summary)
}
