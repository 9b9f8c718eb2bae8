package domain

import (
	"context"
	"time"
)

type DriveUploadStatus string

const (
	DriveStatusPending     DriveUploadStatus = "pending"
	DriveStatusUploaded    DriveUploadStatus = "uploaded"
	DriveStatusFailed      DriveUploadStatus = "failed"
	DriveStatusBetaRequest DriveUploadStatus = "beta_request"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// VideoRequest is a row of video_requests. Beta signups share the table
// and are told apart by DriveUploadStatus = beta_request.
type VideoRequest struct {
	ID                string            `json:"id"`
	UserID            *string           `json:"userId,omitempty"`
	Name              string            `json:"name"`
	Email             string            `json:"email"`
	VideoLink         string            `json:"videoLink"`
	Platforms         []string          `json:"platforms"`
	Frequency         string            `json:"frequency"`
	Notes             *string           `json:"notes,omitempty"`
	BusinessType      *string           `json:"businessType,omitempty"`
	DriveUploadStatus DriveUploadStatus `json:"driveUploadStatus"`
	DriveFileIDs      []string          `json:"driveFileIds,omitempty"`
	FileName          *string           `json:"fileName,omitempty"`
	ArchiveKey        *string           `json:"archiveKey,omitempty"`
	Status            RequestStatus     `json:"status"`
	ApprovedAt        *time.Time        `json:"approvedAt,omitempty"`
	IntakeToken       *string           `json:"intakeToken,omitempty"`
	IntakeCompleted   bool              `json:"intakeCompleted"`
	SubmittedAt       time.Time         `json:"submittedAt"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// VideoRequestInput is the authenticated "repurpose this video" form.
type VideoRequestInput struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Email     string   `json:"email" validate:"required,max=255,basic_email"`
	VideoLink string   `json:"videoLink" validate:"required,web_url"`
	Platforms []string `json:"platforms" validate:"required,min=1,dive,oneof=tiktok youtube_shorts instagram_reels facebook_reels"`
	Frequency string   `json:"frequency" validate:"omitempty,max=50"`
	Notes     string   `json:"notes" validate:"max=1000"`
}

const DefaultRequestFrequency = "one_time"

// BetaSignupRequest is the public beta form. Platforms are stored as sent.
type BetaSignupRequest struct {
	Name          string   `json:"name" validate:"required,max=100"`
	Email         string   `json:"email" validate:"required,max=255,basic_email"`
	BusinessType  string   `json:"businessType" validate:"required,max=100"`
	Platforms     []string `json:"platforms" validate:"required,min=1"`
	VideosPerWeek string   `json:"videosPerWeek" validate:"max=50"`
	PainPoint     string   `json:"painPoint" validate:"max=2000"`
}

type BetaSignupResult struct {
	ID string `json:"id"`
}

// IntakeTokenStatus is what the intake page learns about a token.
type IntakeTokenStatus struct {
	Email           string `json:"email"`
	Name            string `json:"name"`
	IntakeCompleted bool   `json:"intakeCompleted"`
}

// ============================================================================
// Repository Interface
// ============================================================================

type VideoRequestRepository interface {
	// Create inserts the row and fills ID and timestamps.
	Create(ctx context.Context, req *VideoRequest) error
	GetByID(ctx context.Context, id string) (*VideoRequest, error)
	GetByIntakeToken(ctx context.Context, token string) (*VideoRequest, error)

	MarkUploaded(ctx context.Context, id string, fileIDs []string, fileName string) error
	MarkFailed(ctx context.Context, id string) error
	SetArchiveKey(ctx context.Context, id, key string) error

	// LinkUser attaches the request behind token to userID.
	LinkUser(ctx context.Context, token, userID string) error

	ListBetaRequests(ctx context.Context, page, pageSize int) ([]VideoRequest, int64, error)
	ListAllBetaRequests(ctx context.Context) ([]VideoRequest, error)
	UpdateStatus(ctx context.Context, id string, status RequestStatus) (*VideoRequest, error)
}
