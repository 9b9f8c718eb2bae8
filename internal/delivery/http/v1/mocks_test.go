package v1_test

import (
	"context"

	"autopost-backend/internal/domain"

	"github.com/stretchr/testify/mock"
)

type MockUploadUsecase struct {
	mock.Mock
}

func (m *MockUploadUsecase) RelayUpload(ctx context.Context, in domain.RelayUpload, client domain.ClientInfo) (*domain.RelayResult, error) {
	args := m.Called(ctx, in, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RelayResult), args.Error(1)
}

func (m *MockUploadUsecase) RelayLink(ctx context.Context, req domain.RelayLinkRequest, client domain.ClientInfo) (*domain.RelayResult, error) {
	args := m.Called(ctx, req, client)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RelayResult), args.Error(1)
}

type MockAdminUsecase struct {
	mock.Mock
}

func (m *MockAdminUsecase) ListBetaRequests(ctx context.Context, page, pageSize int) (*domain.PaginatedResult[domain.VideoRequest], error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PaginatedResult[domain.VideoRequest]), args.Error(1)
}

func (m *MockAdminUsecase) ApproveBetaRequest(ctx context.Context, id string) (*domain.VideoRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VideoRequest), args.Error(1)
}

func (m *MockAdminUsecase) RejectBetaRequest(ctx context.Context, id string, notify bool) (*domain.VideoRequest, error) {
	args := m.Called(ctx, id, notify)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VideoRequest), args.Error(1)
}

func (m *MockAdminUsecase) ExportBetaRequests(ctx context.Context) ([]byte, string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).([]byte), args.String(1), args.Error(2)
}

func (m *MockAdminUsecase) ListCredentials(ctx context.Context) ([]domain.AdminCredential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AdminCredential), args.Error(1)
}

func (m *MockAdminUsecase) ListUsers(ctx context.Context) ([]domain.UserOverview, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.UserOverview), args.Error(1)
}

func (m *MockAdminUsecase) ListWorkflows(ctx context.Context) ([]domain.AdminWorkflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AdminWorkflow), args.Error(1)
}

type MockOnboardingUsecase struct {
	mock.Mock
}

func (m *MockOnboardingUsecase) view(args mock.Arguments) (*domain.OnboardingView, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OnboardingView), args.Error(1)
}

func (m *MockOnboardingUsecase) Get(ctx context.Context, userID string) (*domain.OnboardingView, error) {
	return m.view(m.Called(ctx, userID))
}

func (m *MockOnboardingUsecase) Patch(ctx context.Context, userID string, patch domain.OnboardingPatch) (*domain.OnboardingView, error) {
	return m.view(m.Called(ctx, userID, patch))
}

func (m *MockOnboardingUsecase) SetStep(ctx context.Context, userID string, step int) (*domain.OnboardingView, error) {
	return m.view(m.Called(ctx, userID, step))
}

func (m *MockOnboardingUsecase) Save(ctx context.Context, userID string, req domain.SaveProgressRequest) (*domain.OnboardingView, error) {
	return m.view(m.Called(ctx, userID, req))
}

func (m *MockOnboardingUsecase) Navigate(ctx context.Context, userID string, req domain.NavigateRequest) (*domain.OnboardingView, error) {
	return m.view(m.Called(ctx, userID, req))
}

func (m *MockOnboardingUsecase) Complete(ctx context.Context, userID string, patch *domain.OnboardingPatch) (*domain.OnboardingView, error) {
	return m.view(m.Called(ctx, userID, patch))
}

func (m *MockOnboardingUsecase) Summary(ctx context.Context, userID string) (*domain.DashboardSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardSummary), args.Error(1)
}

type stubHealth struct {
	status  map[string]string
	healthy bool
}

func (s stubHealth) Check(context.Context) (map[string]string, bool) {
	return s.status, s.healthy
}
