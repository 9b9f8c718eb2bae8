package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/logger"

	"github.com/xuri/excelize/v2"
)

// ============================================================================
// Authorization
// ============================================================================

type roleAuthorizer struct {
	roles domain.RoleRepository
}

// NewAuthorizer answers every admin check from the user_roles table.
func NewAuthorizer(roles domain.RoleRepository) domain.Authorizer {
	return &roleAuthorizer{roles: roles}
}

func (a *roleAuthorizer) Authorize(ctx context.Context, userID string) domain.Authorization {
	if userID == "" {
		return domain.Denied(domain.ReasonUnauthenticated)
	}
	ok, err := a.roles.HasRole(ctx, userID, domain.RoleAdmin)
	if err != nil {
		logger.Log.Error("Admin role lookup failed", "user_id", userID, "error", err)
		return domain.Denied(domain.ReasonRoleLookupFailed)
	}
	if !ok {
		return domain.Denied(domain.ReasonRoleMissing)
	}
	return domain.Authorized()
}

// ============================================================================
// Admin views
// ============================================================================

type adminUsecase struct {
	requests    domain.VideoRequestRepository
	credentials domain.CredentialRepository
	adminRepo   domain.AdminRepository
	cipher      domain.Cipher
	notifier    domain.Notifier
	now         func() time.Time
}

func NewAdminUsecase(
	requests domain.VideoRequestRepository,
	credentials domain.CredentialRepository,
	adminRepo domain.AdminRepository,
	cipher domain.Cipher,
	notifier domain.Notifier,
) domain.AdminUsecase {
	return &adminUsecase{
		requests:    requests,
		credentials: credentials,
		adminRepo:   adminRepo,
		cipher:      cipher,
		notifier:    notifier,
		now:         time.Now,
	}
}

// ListBetaRequests returns paginated beta signups, newest first
func (u *adminUsecase) ListBetaRequests(ctx context.Context, page, pageSize int) (*domain.PaginatedResult[domain.VideoRequest], error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	requests, total, err := u.requests.ListBetaRequests(ctx, page, pageSize)
	if err != nil {
		return nil, apperror.Internal(errors.New("Failed to fetch beta requests: " + err.Error()))
	}

	totalPages := int(math.Ceil(float64(total) / float64(pageSize)))

	return &domain.PaginatedResult[domain.VideoRequest]{
		Data:       requests,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}, nil
}

// ApproveBetaRequest approves the signup and queues the intake link email.
func (u *adminUsecase) ApproveBetaRequest(ctx context.Context, id string) (*domain.VideoRequest, error) {
	req, err := u.setStatus(ctx, id, domain.RequestApproved)
	if err != nil {
		return nil, err
	}

	if req.IntakeToken == nil || *req.IntakeToken == "" {
		logger.Log.Warn("Approved beta request has no intake token", "request_id", req.ID)
		return req, nil
	}
	notifyQuietly(ctx, u.notifier, domain.Notification{
		Kind: domain.NotifyIntakeLink,
		IntakeLink: &domain.IntakeLinkNotice{
			Email:       req.Email,
			Name:        req.Name,
			IntakeToken: *req.IntakeToken,
		},
	})
	return req, nil
}

// RejectBetaRequest rejects the signup; notify queues the denial email.
func (u *adminUsecase) RejectBetaRequest(ctx context.Context, id string, notify bool) (*domain.VideoRequest, error) {
	req, err := u.setStatus(ctx, id, domain.RequestRejected)
	if err != nil {
		return nil, err
	}
	if notify {
		notifyQuietly(ctx, u.notifier, domain.Notification{
			Kind:   domain.NotifyDenial,
			Denial: &domain.DenialNotice{Email: req.Email, Name: req.Name},
		})
	}
	return req, nil
}

func (u *adminUsecase) setStatus(ctx context.Context, id string, status domain.RequestStatus) (*domain.VideoRequest, error) {
	if id == "" {
		return nil, apperror.BadRequest("Request ID is required")
	}
	// Upload relay rows share the table; only signups can be approved.
	current, err := u.requests.GetByID(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && current.DriveUploadStatus != domain.DriveStatusBetaRequest) {
		return nil, apperror.NotFound("Beta request not found")
	}
	if err != nil {
		return nil, apperror.Internal(errors.New("Failed to fetch beta request: " + err.Error()))
	}

	req, err := u.requests.UpdateStatus(ctx, id, status)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, apperror.NotFound("Beta request not found")
	}
	if err != nil {
		return nil, apperror.Internal(errors.New("Failed to update beta request: " + err.Error()))
	}
	logger.Log.Info("Beta request status changed", "request_id", id, "status", status)
	return req, nil
}

// ExportBetaRequests renders every beta signup as an XLSX workbook.
func (u *adminUsecase) ExportBetaRequests(ctx context.Context) ([]byte, string, error) {
	requests, err := u.requests.ListAllBetaRequests(ctx)
	if err != nil {
		return nil, "", apperror.Internal(errors.New("Failed to fetch beta requests: " + err.Error()))
	}

	f := excelize.NewFile()
	defer f.Close()
	sheetName := "Beta Requests"
	f.SetSheetName("Sheet1", sheetName)

	headers := []string{"SUBMITTED AT", "NAME", "EMAIL", "BUSINESS TYPE", "PLATFORMS", "VIDEOS PER WEEK", "BIGGEST CHALLENGE", "STATUS", "INTAKE COMPLETED"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, h)
	}

	// Dark blue header with white text
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#1E3A5F"}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	endCell, _ := excelize.CoordinatesToCellName(len(headers), 1)
	f.SetCellStyle(sheetName, "A1", endCell, headerStyle)

	for rowIdx, r := range requests {
		platforms := make([]string, 0, len(r.Platforms))
		for _, p := range r.Platforms {
			platforms = append(platforms, domain.PlatformDisplayName(p))
		}
		values := []any{
			r.SubmittedAt.UTC().Format("2006-01-02 15:04"),
			r.Name,
			r.Email,
			deref(r.BusinessType),
			strings.Join(platforms, ", "),
			r.Frequency,
			deref(r.Notes),
			string(r.Status),
			r.IntakeCompleted,
		}
		for colIdx, v := range values {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	for i := range headers {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, 20)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, "", apperror.Internal(fmt.Errorf("failed to write Excel file: %w", err))
	}

	filename := fmt.Sprintf("beta_requests_%s.xlsx", u.now().Format("20060102_150405"))
	return buf.Bytes(), filename, nil
}

// ListCredentials decrypts every stored credential for the admin view.
func (u *adminUsecase) ListCredentials(ctx context.Context) ([]domain.AdminCredential, error) {
	if u.cipher == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "Credential storage is not configured", nil)
	}
	stored, err := u.credentials.ListAll(ctx)
	if err != nil {
		return nil, apperror.Internal(errors.New("Failed to fetch credentials: " + err.Error()))
	}

	out := make([]domain.AdminCredential, 0, len(stored))
	for _, c := range stored {
		ac, err := u.decrypt(c)
		if err != nil {
			logger.Log.Error("Failed to decrypt credential", "credential_id", c.ID, "error", err)
			return nil, apperror.Internal(errors.New("Failed to decrypt credentials"))
		}
		out = append(out, ac)
	}
	return out, nil
}

func (u *adminUsecase) decrypt(c domain.StoredCredential) (domain.AdminCredential, error) {
	password, err := u.cipher.Open(c.PasswordCiphertext)
	if err != nil {
		return domain.AdminCredential{}, err
	}
	ac := domain.AdminCredential{
		ID:           c.ID,
		UserID:       c.UserID,
		Platform:     c.Platform,
		PlatformName: domain.PlatformDisplayName(c.Platform),
		Username:     c.Username,
		Password:     string(password),
		Notes:        c.Notes,
		SubmittedAt:  c.SubmittedAt,
	}
	if len(c.TwoFactorCiphertext) > 0 {
		codes, err := u.cipher.Open(c.TwoFactorCiphertext)
		if err != nil {
			return domain.AdminCredential{}, err
		}
		s := string(codes)
		ac.TwoFactorBackup = &s
	}
	return ac, nil
}

func (u *adminUsecase) ListWorkflows(ctx context.Context) ([]domain.AdminWorkflow, error) {
	workflows, err := u.adminRepo.ListWorkflows(ctx)
	if err != nil {
		return nil, apperror.Internal(errors.New("Failed to fetch workflows: " + err.Error()))
	}
	out := make([]domain.AdminWorkflow, 0, len(workflows))
	for _, w := range workflows {
		out = append(out, domain.AdminWorkflow{
			Workflow:        w,
			SourceName:      domain.PlatformDisplayName(w.SourcePlatform),
			DestinationName: domain.PlatformDisplayName(w.DestinationPlatform),
		})
	}
	return out, nil
}

// ListUsers groups credentials and workflows by user. Users are ordered by
// their most recent activity.
// Without a cipher the credential half is left empty.
func (u *adminUsecase) ListUsers(ctx context.Context) ([]domain.UserOverview, error) {
	creds := []domain.AdminCredential{}
	if u.cipher != nil {
		var err error
		if creds, err = u.ListCredentials(ctx); err != nil {
			return nil, err
		}
	} else {
		logger.Log.Warn("Listing users without credentials: encryption key not configured")
	}
	workflows, err := u.ListWorkflows(ctx)
	if err != nil {
		return nil, err
	}

	byUser := map[string]*domain.UserOverview{}
	latest := map[string]time.Time{}
	get := func(userID string, at time.Time) *domain.UserOverview {
		o, ok := byUser[userID]
		if !ok {
			o = &domain.UserOverview{UserID: userID, Credentials: []domain.AdminCredential{}, Workflows: []domain.AdminWorkflow{}}
			byUser[userID] = o
		}
		if at.After(latest[userID]) {
			latest[userID] = at
		}
		return o
	}
	for _, c := range creds {
		o := get(c.UserID, c.SubmittedAt)
		o.Credentials = append(o.Credentials, c)
	}
	for _, w := range workflows {
		o := get(w.UserID, w.CreatedAt)
		o.Workflows = append(o.Workflows, w)
	}

	out := make([]domain.UserOverview, 0, len(byUser))
	for _, o := range byUser {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := latest[out[i].UserID], latest[out[j].UserID]
		if ti.Equal(tj) {
			return out[i].UserID < out[j].UserID
		}
		return ti.After(tj)
	})
	return out, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
