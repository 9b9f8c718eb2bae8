package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/gdrive"
	"autopost-backend/pkg/logger"
	"autopost-backend/pkg/security"
	"autopost-backend/pkg/storage"
	"autopost-backend/pkg/validation"

	"github.com/go-playground/validator/v10"
)

const (
	msgSaveFailed   = "Failed to save request"
	msgUploadFailed = "Failed to upload video to Google Drive"
)

// DriveClient is the part of *gdrive.Client the relay uses.
type DriveClient interface {
	EnsureFolder(ctx context.Context, name string) (string, error)
	Upload(ctx context.Context, folderID, name, mimeType string, r io.Reader) (*gdrive.UploadedFile, error)
}

// VideoArchiver keeps an optional copy of every relayed original.
type VideoArchiver interface {
	Put(ctx context.Context, key, contentType string, body io.ReadSeeker, size int64) error
}

type UploadLimiter interface {
	AllowUpload(ctx context.Context, ip, userID string) (bool, int, error)
}

// VideoFetcher downloads the video behind a link. The returned cleanup
// releases any temporary storage.
type VideoFetcher interface {
	Fetch(ctx context.Context, link string) (*domain.UploadVideo, func(), error)
}

type UploadOptions struct {
	MaxBytes int64
	Archive  VideoArchiver
	Limiter  UploadLimiter
	Fetcher  VideoFetcher
	Audit    *security.SecurityLogger
}

type uploadUsecase struct {
	requests domain.VideoRequestRepository
	drive    DriveClient
	opts     UploadOptions
	validate *validator.Validate
	now      func() time.Time
}

func NewUploadUsecase(requests domain.VideoRequestRepository, drive DriveClient, validate *validator.Validate, opts UploadOptions) domain.UploadUsecase {
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = security.MaxVideoBytes
	}
	return &uploadUsecase{
		requests: requests,
		drive:    drive,
		opts:     opts,
		validate: validate,
		now:      time.Now,
	}
}

// ============================================================================
// Entry points
// ============================================================================

func (u *uploadUsecase) RelayUpload(ctx context.Context, in domain.RelayUpload, client domain.ClientInfo) (*domain.RelayResult, error) {
	filename, size := "", int64(0)
	if in.Video != nil {
		filename, size = in.Video.FileName, in.Video.Size
	}
	if err := security.ValidateVideoFile(filename, size, u.opts.MaxBytes); err != nil {
		return nil, u.reject(ctx, client, filename, err)
	}
	platforms, err := parsePlatforms(in.Platforms)
	if err != nil {
		return nil, u.reject(ctx, client, filename, err)
	}
	u.sniff(ctx, client, in.Video)

	if err := u.allow(ctx, client); err != nil {
		return nil, err
	}

	userID := callerID(ctx)
	if userID == "" {
		userID = domain.AnonymousUserID
	}
	req := &domain.VideoRequest{
		UserID:    &userID,
		Name:      domain.RelayUploadName,
		Email:     domain.RelayUploadEmail,
		Platforms: platforms,
		Frequency: domain.RelayUploadFrequency,
		Notes:     optional(in.Caption),
	}
	return u.relay(ctx, req, in.Video)
}

func (u *uploadUsecase) RelayLink(ctx context.Context, in domain.RelayLinkRequest, client domain.ClientInfo) (*domain.RelayResult, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.VideoLink = strings.TrimSpace(in.VideoLink)
	if err := u.validate.Struct(in); err != nil {
		return nil, apperror.Validation("Validation failed", validation.FormatValidationErrors(err))
	}
	if u.opts.Fetcher == nil {
		return nil, apperror.New(http.StatusServiceUnavailable, "Video links are not supported", nil)
	}
	if err := u.allow(ctx, client); err != nil {
		return nil, err
	}

	video, cleanup, err := u.opts.Fetcher.Fetch(ctx, in.VideoLink)
	if err != nil {
		if errors.Is(err, security.ErrVideoTooLarge) {
			return nil, u.reject(ctx, client, in.VideoLink, err)
		}
		logger.Log.Warn("Video download failed", "link", in.VideoLink, "error", err)
		if errors.Is(err, security.ErrNonPublicAddress) && u.opts.Audit != nil {
			u.opts.Audit.LogUploadRejected(ctx, client.IP, client.RequestID, in.VideoLink, security.ErrNonPublicAddress.Error())
		}
		return nil, apperror.New(http.StatusBadRequest, "Could not download video from link", err)
	}
	defer cleanup()

	if in.Frequency == "" {
		in.Frequency = domain.RelayUploadFrequency
	}
	req := &domain.VideoRequest{
		Name:      in.Name,
		Email:     in.Email,
		VideoLink: in.VideoLink,
		Platforms: in.Platforms,
		Frequency: in.Frequency,
		Notes:     optional(in.Notes),
	}
	if userID := callerID(ctx); userID != "" {
		req.UserID = &userID
	}
	return u.relay(ctx, req, video)
}

// ============================================================================
// Relay
// ============================================================================

// relay records the request, then copies the video into each platform
// folder in turn. Any Drive error marks the whole request failed.
func (u *uploadUsecase) relay(ctx context.Context, req *domain.VideoRequest, video *domain.UploadVideo) (*domain.RelayResult, error) {
	req.DriveUploadStatus = domain.DriveStatusPending
	req.Status = domain.RequestPending
	if err := u.requests.Create(ctx, req); err != nil {
		return nil, apperror.New(http.StatusInternalServerError, msgSaveFailed, err)
	}

	contentType := security.ContentTypeFor(video.FileName, video.ContentType)
	fileName := fmt.Sprintf("video_%s_%d%s", req.ID, u.now().UnixMilli(), extensionOf(video.FileName, contentType))

	u.archive(ctx, req.ID, fileName, contentType, video)

	fileIDs, err := u.publish(ctx, req.Platforms, fileName, contentType, video.Body)
	if err != nil {
		logger.Log.Error("Drive upload failed", "request_id", req.ID, "error", err)
		if markErr := u.requests.MarkFailed(ctx, req.ID); markErr != nil {
			logger.Log.Error("Failed to mark request failed", "request_id", req.ID, "error", markErr)
		}
		return nil, apperror.New(http.StatusInternalServerError, msgUploadFailed, err)
	}

	if err := u.requests.MarkUploaded(ctx, req.ID, fileIDs, fileName); err != nil {
		logger.Log.Error("Failed to record Drive upload", "request_id", req.ID, "error", err)
	}
	logger.Log.Info("Video relayed to Drive", "request_id", req.ID, "file_name", fileName, "files", len(fileIDs))

	return &domain.RelayResult{RequestID: req.ID, FileName: fileName, FileIDs: fileIDs}, nil
}

func (u *uploadUsecase) publish(ctx context.Context, platforms []string, fileName, contentType string, body io.ReadSeeker) ([]string, error) {
	if u.drive == nil {
		return nil, gdrive.ErrNotConfigured
	}
	fileIDs := make([]string, 0, len(platforms))
	for _, platform := range platforms {
		folder, ok := domain.DriveFolderFor(platform)
		if !ok {
			logger.Log.Warn("Skipping unknown relay platform", "platform", platform)
			continue
		}
		folderID, err := u.drive.EnsureFolder(ctx, folder)
		if err != nil {
			return nil, err
		}
		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return nil, fmt.Errorf("rewind video: %w", err)
		}
		file, err := u.drive.Upload(ctx, folderID, fileName, contentType, body)
		if err != nil {
			return nil, err
		}
		logger.Log.Debug("Uploaded to Drive folder", "platform", platform, "folder", folder, "file_id", file.ID)
		fileIDs = append(fileIDs, file.ID)
	}
	return fileIDs, nil
}

// archive never fails the relay.
func (u *uploadUsecase) archive(ctx context.Context, requestID, fileName, contentType string, video *domain.UploadVideo) {
	if u.opts.Archive == nil {
		return
	}
	key := storage.Key(requestID, fileName, u.now())
	if _, err := video.Body.Seek(0, io.SeekStart); err != nil {
		logger.Log.Warn("Archive skipped", "request_id", requestID, "error", err)
		return
	}
	if err := u.opts.Archive.Put(ctx, key, contentType, video.Body, video.Size); err != nil {
		logger.Log.Warn("Archive upload failed", "request_id", requestID, "key", key, "error", err)
		return
	}
	if err := u.requests.SetArchiveKey(ctx, requestID, key); err != nil {
		logger.Log.Warn("Failed to record archive key", "request_id", requestID, "error", err)
	}
}

// ============================================================================
// Helpers
// ============================================================================

func (u *uploadUsecase) allow(ctx context.Context, client domain.ClientInfo) error {
	if u.opts.Limiter == nil {
		return nil
	}
	allowed, retryAfter, err := u.opts.Limiter.AllowUpload(ctx, client.IP, callerID(ctx))
	if err != nil {
		// fail open
		logger.Log.Warn("Upload limiter unavailable", "error", err)
		return nil
	}
	if !allowed {
		if u.opts.Audit != nil {
			u.opts.Audit.LogRateLimitTriggered(ctx, client.IP, client.UserAgent, client.RequestID, "upload")
		}
		return apperror.TooManyRequests(fmt.Sprintf("Too many uploads. Please try again in %d seconds.", retryAfter))
	}
	return nil
}

func (u *uploadUsecase) reject(ctx context.Context, client domain.ClientInfo, filename string, err error) error {
	if u.opts.Audit != nil {
		u.opts.Audit.LogUploadRejected(ctx, client.IP, client.RequestID, filename, err.Error())
	}
	return apperror.New(http.StatusBadRequest, err.Error(), err)
}

// sniff logs content that does not look like the declared video type.
func (u *uploadUsecase) sniff(ctx context.Context, client domain.ClientInfo, video *domain.UploadVideo) {
	head := make([]byte, 512)
	n, _ := io.ReadFull(video.Body, head)
	if _, err := video.Body.Seek(0, io.SeekStart); err != nil {
		return
	}
	result := security.SniffVideo(video.FileName, head[:n], video.ContentType)
	if len(result.Warnings) == 0 {
		return
	}
	logger.Log.Warn("Upload MIME mismatch", "file", video.FileName, "detected", result.DetectedMIME, "warnings", result.Warnings)
	if u.opts.Audit != nil {
		u.opts.Audit.Log(ctx, security.SecurityEvent{
			Event:        security.EventUploadMIMEMismatch,
			SubjectType:  "ip",
			SubjectValue: client.IP,
			IP:           client.IP,
			RequestID:    client.RequestID,
			Details: map[string]interface{}{
				"file":     video.FileName,
				"detected": result.DetectedMIME,
				"warnings": result.Warnings,
			},
		})
	}
}

func parsePlatforms(raw string) ([]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, security.ErrPlatformsRequired
	}
	var platforms []string
	if err := json.Unmarshal([]byte(raw), &platforms); err != nil {
		return nil, security.ErrPlatformsFormat
	}
	if len(platforms) == 0 {
		return nil, security.ErrPlatformsEmpty
	}
	return platforms, nil
}

func extensionOf(filename, contentType string) string {
	if err := security.ValidateFileExtension(filename); err == nil {
		return strings.ToLower(filename[strings.LastIndexByte(filename, '.'):])
	}
	if contentType == "video/quicktime" {
		return ".mov"
	}
	return ".mp4"
}

func callerID(ctx context.Context) string {
	id, _ := ctx.Value(domain.KeyUserID).(string)
	return id
}
