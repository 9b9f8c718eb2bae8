package usecase_test

import (
	"context"
	"io"
	"sync"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/email"
	"autopost-backend/pkg/gdrive"

	"github.com/stretchr/testify/mock"
)

// Mock Repositories
type MockOnboardingRepo struct {
	mock.Mock
}

func (m *MockOnboardingRepo) Load(ctx context.Context, userID string) (domain.OnboardingState, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(domain.OnboardingState), args.Error(1)
}

func (m *MockOnboardingRepo) Save(ctx context.Context, userID string, state domain.OnboardingState) error {
	return m.Called(ctx, userID, state).Error(0)
}

func (m *MockOnboardingRepo) Summary(ctx context.Context, userID string) (*domain.DashboardSummary, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DashboardSummary), args.Error(1)
}

type MockVideoRequestRepo struct {
	mock.Mock
}

func (m *MockVideoRequestRepo) Create(ctx context.Context, req *domain.VideoRequest) error {
	return m.Called(ctx, req).Error(0)
}

func (m *MockVideoRequestRepo) GetByID(ctx context.Context, id string) (*domain.VideoRequest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VideoRequest), args.Error(1)
}

func (m *MockVideoRequestRepo) GetByIntakeToken(ctx context.Context, token string) (*domain.VideoRequest, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VideoRequest), args.Error(1)
}

func (m *MockVideoRequestRepo) MarkUploaded(ctx context.Context, id string, fileIDs []string, fileName string) error {
	return m.Called(ctx, id, fileIDs, fileName).Error(0)
}

func (m *MockVideoRequestRepo) MarkFailed(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockVideoRequestRepo) SetArchiveKey(ctx context.Context, id, key string) error {
	return m.Called(ctx, id, key).Error(0)
}

func (m *MockVideoRequestRepo) LinkUser(ctx context.Context, token, userID string) error {
	return m.Called(ctx, token, userID).Error(0)
}

func (m *MockVideoRequestRepo) ListBetaRequests(ctx context.Context, page, pageSize int) ([]domain.VideoRequest, int64, error) {
	args := m.Called(ctx, page, pageSize)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.VideoRequest), args.Get(1).(int64), args.Error(2)
}

func (m *MockVideoRequestRepo) ListAllBetaRequests(ctx context.Context) ([]domain.VideoRequest, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.VideoRequest), args.Error(1)
}

func (m *MockVideoRequestRepo) UpdateStatus(ctx context.Context, id string, status domain.RequestStatus) (*domain.VideoRequest, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VideoRequest), args.Error(1)
}

type MockIntakeRepo struct {
	mock.Mock
}

func (m *MockIntakeRepo) Create(ctx context.Context, sub *domain.IntakeSubmission) error {
	return m.Called(ctx, sub).Error(0)
}

type MockCredentialRepo struct {
	mock.Mock
}

func (m *MockCredentialRepo) Upsert(ctx context.Context, cred *domain.StoredCredential) error {
	return m.Called(ctx, cred).Error(0)
}

func (m *MockCredentialRepo) ListAll(ctx context.Context) ([]domain.StoredCredential, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StoredCredential), args.Error(1)
}

type MockRoleRepo struct {
	mock.Mock
}

func (m *MockRoleRepo) HasRole(ctx context.Context, userID string, role domain.AppRole) (bool, error) {
	args := m.Called(ctx, userID, role)
	return args.Bool(0), args.Error(1)
}

type MockAdminRepo struct {
	mock.Mock
}

func (m *MockAdminRepo) ListWorkflows(ctx context.Context) ([]domain.Workflow, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Workflow), args.Error(1)
}

// Mock Collaborators
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Enqueue(ctx context.Context, n domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}

type MockDrive struct {
	mock.Mock
}

func (m *MockDrive) EnsureFolder(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockDrive) Upload(ctx context.Context, folderID, name, mimeType string, r io.Reader) (*gdrive.UploadedFile, error) {
	// drain so the relay has to rewind before the next folder
	_, _ = io.Copy(io.Discard, r)
	args := m.Called(ctx, folderID, name, mimeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gdrive.UploadedFile), args.Error(1)
}

type MockLimiter struct {
	mock.Mock
}

func (m *MockLimiter) AllowUpload(ctx context.Context, ip, userID string) (bool, int, error) {
	args := m.Called(ctx, ip, userID)
	return args.Bool(0), args.Int(1), args.Error(2)
}

type MockArchiver struct {
	mock.Mock
}

func (m *MockArchiver) Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) error {
	return m.Called(ctx, key, contentType, size).Error(0)
}

// recordingSender keeps every message it was asked to send.
type recordingSender struct {
	mu   sync.Mutex
	sent []email.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg email.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

// plainCipher is a reversible stand-in for the XChaCha20 box.
type plainCipher struct{}

func (plainCipher) Seal(p []byte) ([]byte, error) { return append([]byte("sealed:"), p...), nil }

func (plainCipher) Open(c []byte) ([]byte, error) { return c[len("sealed:"):], nil }

func userCtx(userID string) context.Context {
	ctx := context.WithValue(context.Background(), domain.KeyUserID, userID)
	return context.WithValue(ctx, domain.KeyUserEmail, userID+"@example.com")
}
