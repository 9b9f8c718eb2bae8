package usecase_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"autopost-backend/internal/domain"
	"autopost-backend/internal/usecase"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/gdrive"
	"autopost-backend/pkg/security"
	"autopost-backend/pkg/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func mp4Bytes() []byte {
	head := []byte{0x00, 0x00, 0x00, 0x18}
	head = append(head, []byte("ftypmp42")...)
	return append(head, make([]byte, 256)...)
}

func mp4Upload(name, platforms string) domain.RelayUpload {
	body := mp4Bytes()
	return domain.RelayUpload{
		Video: &domain.UploadVideo{
			FileName:    name,
			ContentType: "video/mp4",
			Size:        int64(len(body)),
			Body:        bytes.NewReader(body),
		},
		Platforms: platforms,
	}
}

var testClient = domain.ClientInfo{IP: "203.0.113.7", UserAgent: "test", RequestID: "rid-1"}

func TestUploadUsecase_RelayUpload_Validation(t *testing.T) {
	tests := []struct {
		name    string
		in      domain.RelayUpload
		maxSize int64
		message string
	}{
		{"missing file", domain.RelayUpload{Platforms: `["tiktok"]`}, 0, "Video file is required"},
		{"too large", mp4Upload("clip.mp4", `["tiktok"]`), 10, "File size exceeds 2GB limit"},
		{"wrong extension", mp4Upload("clip.avi", `["tiktok"]`), 0, "Please upload a .mp4 or .mov file"},
		{"missing platforms", mp4Upload("clip.mp4", ""), 0, "Platforms are required"},
		{"malformed platforms", mp4Upload("clip.mp4", "tiktok"), 0, "Invalid platforms format"},
		{"empty platforms", mp4Upload("clip.mp4", "[]"), 0, "At least one platform is required"},
	}

	for _, tt := range tests {
		t.Run("Should reject "+tt.name, func(t *testing.T) {
			requests := new(MockVideoRequestRepo)
			uc := usecase.NewUploadUsecase(requests, new(MockDrive), validation.New(), usecase.UploadOptions{MaxBytes: tt.maxSize})

			_, err := uc.RelayUpload(context.Background(), tt.in, testClient)
			require.Error(t, err)
			assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
			assert.EqualError(t, err, tt.message)
			requests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestUploadUsecase_RelayUpload(t *testing.T) {
	t.Run("Should copy the video into each known platform folder", func(t *testing.T) {
		requests := new(MockVideoRequestRepo)
		drive := new(MockDrive)
		uc := usecase.NewUploadUsecase(requests, drive, validation.New(), usecase.UploadOptions{})

		requests.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.VideoRequest) bool {
			return r.UserID != nil && *r.UserID == domain.AnonymousUserID &&
				r.Name == domain.RelayUploadName &&
				r.Email == domain.RelayUploadEmail &&
				r.Frequency == domain.RelayUploadFrequency &&
				r.DriveUploadStatus == domain.DriveStatusPending &&
				len(r.Platforms) == 3
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.VideoRequest).ID = "req-1"
		}).Return(nil)
		drive.On("EnsureFolder", mock.Anything, "TikTok").Return("folder-tt", nil)
		drive.On("EnsureFolder", mock.Anything, "Instagram").Return("folder-ig", nil)
		isVideoName := mock.MatchedBy(func(name string) bool {
			return strings.HasPrefix(name, "video_req-1_") && strings.HasSuffix(name, ".mp4")
		})
		drive.On("Upload", mock.Anything, "folder-tt", isVideoName, "video/mp4").Return(&gdrive.UploadedFile{ID: "file-1"}, nil)
		drive.On("Upload", mock.Anything, "folder-ig", isVideoName, "video/mp4").Return(&gdrive.UploadedFile{ID: "file-2"}, nil)
		requests.On("MarkUploaded", mock.Anything, "req-1", []string{"file-1", "file-2"}, isVideoName).Return(nil)

		res, err := uc.RelayUpload(context.Background(), mp4Upload("Clip.MP4", `["tiktok","instagram","snapchat"]`), testClient)
		require.NoError(t, err)
		assert.Equal(t, "req-1", res.RequestID)
		assert.Equal(t, []string{"file-1", "file-2"}, res.FileIDs)
		assert.True(t, strings.HasSuffix(res.FileName, ".mp4"))
		drive.AssertExpectations(t)
		requests.AssertExpectations(t)
	})

	t.Run("Should record the signed in user", func(t *testing.T) {
		requests := new(MockVideoRequestRepo)
		drive := new(MockDrive)
		uc := usecase.NewUploadUsecase(requests, drive, validation.New(), usecase.UploadOptions{})

		requests.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.VideoRequest) bool {
			return r.UserID != nil && *r.UserID == "user-1"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.VideoRequest).ID = "req-2"
		}).Return(nil)
		drive.On("EnsureFolder", mock.Anything, "X").Return("folder-x", nil)
		drive.On("Upload", mock.Anything, "folder-x", mock.Anything, "video/mp4").Return(&gdrive.UploadedFile{ID: "file-x"}, nil)
		requests.On("MarkUploaded", mock.Anything, "req-2", []string{"file-x"}, mock.Anything).Return(nil)

		_, err := uc.RelayUpload(userCtx("user-1"), mp4Upload("clip.mp4", `["x"]`), testClient)
		require.NoError(t, err)
		requests.AssertExpectations(t)
	})

	t.Run("Should mark the request failed when Drive rejects the upload", func(t *testing.T) {
		requests := new(MockVideoRequestRepo)
		drive := new(MockDrive)
		uc := usecase.NewUploadUsecase(requests, drive, validation.New(), usecase.UploadOptions{})

		requests.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.VideoRequest).ID = "req-3"
		}).Return(nil)
		drive.On("EnsureFolder", mock.Anything, "TikTok").Return("folder-tt", nil)
		drive.On("Upload", mock.Anything, "folder-tt", mock.Anything, mock.Anything).Return(nil, assert.AnError)
		requests.On("MarkFailed", mock.Anything, "req-3").Return(nil)

		_, err := uc.RelayUpload(context.Background(), mp4Upload("clip.mp4", `["tiktok"]`), testClient)
		require.Error(t, err)
		assert.Equal(t, http.StatusInternalServerError, apperror.StatusOf(err))
		assert.EqualError(t, err, "Failed to upload video to Google Drive")
		requests.AssertExpectations(t)
		requests.AssertNotCalled(t, "MarkUploaded", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Should fail without a Drive client", func(t *testing.T) {
		requests := new(MockVideoRequestRepo)
		uc := usecase.NewUploadUsecase(requests, nil, validation.New(), usecase.UploadOptions{})

		requests.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.VideoRequest).ID = "req-4"
		}).Return(nil)
		requests.On("MarkFailed", mock.Anything, "req-4").Return(nil)

		_, err := uc.RelayUpload(context.Background(), mp4Upload("clip.mp4", `["tiktok"]`), testClient)
		assert.Equal(t, http.StatusInternalServerError, apperror.StatusOf(err))
	})

	t.Run("Should 500 when the request cannot be saved", func(t *testing.T) {
		requests := new(MockVideoRequestRepo)
		drive := new(MockDrive)
		uc := usecase.NewUploadUsecase(requests, drive, validation.New(), usecase.UploadOptions{})
		requests.On("Create", mock.Anything, mock.Anything).Return(assert.AnError)

		_, err := uc.RelayUpload(context.Background(), mp4Upload("clip.mp4", `["tiktok"]`), testClient)
		assert.EqualError(t, err, "Failed to save request")
		drive.AssertNotCalled(t, "EnsureFolder", mock.Anything, mock.Anything)
	})
}

func TestUploadUsecase_Limiter(t *testing.T) {
	t.Run("Should 429 once the caller is over the limit", func(t *testing.T) {
		requests := new(MockVideoRequestRepo)
		limiter := new(MockLimiter)
		uc := usecase.NewUploadUsecase(requests, new(MockDrive), validation.New(), usecase.UploadOptions{Limiter: limiter})
		limiter.On("AllowUpload", mock.Anything, "203.0.113.7", "").Return(false, 42, nil)

		_, err := uc.RelayUpload(context.Background(), mp4Upload("clip.mp4", `["tiktok"]`), testClient)
		assert.Equal(t, http.StatusTooManyRequests, apperror.StatusOf(err))
		assert.Contains(t, err.Error(), "42 seconds")
		requests.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Should allow the upload when the limiter is unavailable", func(t *testing.T) {
		requests := new(MockVideoRequestRepo)
		drive := new(MockDrive)
		limiter := new(MockLimiter)
		uc := usecase.NewUploadUsecase(requests, drive, validation.New(), usecase.UploadOptions{Limiter: limiter})
		limiter.On("AllowUpload", mock.Anything, mock.Anything, mock.Anything).Return(false, 0, assert.AnError)
		requests.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.VideoRequest).ID = "req-5"
		}).Return(nil)
		drive.On("EnsureFolder", mock.Anything, "TikTok").Return("folder-tt", nil)
		drive.On("Upload", mock.Anything, "folder-tt", mock.Anything, mock.Anything).Return(&gdrive.UploadedFile{ID: "file-1"}, nil)
		requests.On("MarkUploaded", mock.Anything, "req-5", []string{"file-1"}, mock.Anything).Return(nil)

		_, err := uc.RelayUpload(context.Background(), mp4Upload("clip.mp4", `["tiktok"]`), testClient)
		assert.NoError(t, err)
	})
}

func TestUploadUsecase_Archive(t *testing.T) {
	setup := func(archiveErr error) (*MockVideoRequestRepo, domain.UploadUsecase) {
		requests := new(MockVideoRequestRepo)
		drive := new(MockDrive)
		archive := new(MockArchiver)
		uc := usecase.NewUploadUsecase(requests, drive, validation.New(), usecase.UploadOptions{Archive: archive})

		requests.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.VideoRequest).ID = "req-6"
		}).Return(nil)
		archive.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "videos/") && strings.Contains(key, "/req-6/video_req-6_")
		}), "video/mp4", int64(len(mp4Bytes()))).Return(archiveErr)
		drive.On("EnsureFolder", mock.Anything, "TikTok").Return("folder-tt", nil)
		drive.On("Upload", mock.Anything, "folder-tt", mock.Anything, mock.Anything).Return(&gdrive.UploadedFile{ID: "file-1"}, nil)
		requests.On("MarkUploaded", mock.Anything, "req-6", []string{"file-1"}, mock.Anything).Return(nil)
		return requests, uc
	}

	t.Run("Should record the archive key", func(t *testing.T) {
		requests, uc := setup(nil)
		requests.On("SetArchiveKey", mock.Anything, "req-6", mock.Anything).Return(nil)

		_, err := uc.RelayUpload(context.Background(), mp4Upload("clip.mp4", `["tiktok"]`), testClient)
		require.NoError(t, err)
		requests.AssertCalled(t, "SetArchiveKey", mock.Anything, "req-6", mock.Anything)
	})

	t.Run("Should still relay when the archive copy fails", func(t *testing.T) {
		requests, uc := setup(assert.AnError)

		_, err := uc.RelayUpload(context.Background(), mp4Upload("clip.mp4", `["tiktok"]`), testClient)
		require.NoError(t, err)
		requests.AssertNotCalled(t, "SetArchiveKey", mock.Anything, mock.Anything, mock.Anything)
	})
}

type stubFetcher struct {
	video   *domain.UploadVideo
	err     error
	cleaned bool
}

func (f *stubFetcher) Fetch(context.Context, string) (*domain.UploadVideo, func(), error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.video, func() { f.cleaned = true }, nil
}

func TestUploadUsecase_RelayLink(t *testing.T) {
	linkReq := domain.RelayLinkRequest{
		Name:      "Sam",
		Email:     "sam@example.com",
		VideoLink: "https://cdn.example.com/clip.mp4",
		Platforms: []string{"tiktok"},
	}

	t.Run("Should download the link and relay it", func(t *testing.T) {
		body := mp4Bytes()
		fetcher := &stubFetcher{video: &domain.UploadVideo{
			FileName: "clip.mp4", ContentType: "video/mp4", Size: int64(len(body)), Body: bytes.NewReader(body),
		}}
		requests := new(MockVideoRequestRepo)
		drive := new(MockDrive)
		uc := usecase.NewUploadUsecase(requests, drive, validation.New(), usecase.UploadOptions{Fetcher: fetcher})

		requests.On("Create", mock.Anything, mock.MatchedBy(func(r *domain.VideoRequest) bool {
			return r.Email == "sam@example.com" && r.VideoLink == linkReq.VideoLink && r.UserID == nil && r.Frequency == "once"
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.VideoRequest).ID = "req-7"
		}).Return(nil)
		drive.On("EnsureFolder", mock.Anything, "TikTok").Return("folder-tt", nil)
		drive.On("Upload", mock.Anything, "folder-tt", mock.Anything, "video/mp4").Return(&gdrive.UploadedFile{ID: "file-1"}, nil)
		requests.On("MarkUploaded", mock.Anything, "req-7", []string{"file-1"}, mock.Anything).Return(nil)

		res, err := uc.RelayLink(context.Background(), linkReq, testClient)
		require.NoError(t, err)
		assert.Equal(t, "req-7", res.RequestID)
		assert.True(t, fetcher.cleaned)
	})

	t.Run("Should 400 when the link cannot be downloaded", func(t *testing.T) {
		uc := usecase.NewUploadUsecase(new(MockVideoRequestRepo), new(MockDrive), validation.New(),
			usecase.UploadOptions{Fetcher: &stubFetcher{err: assert.AnError}})

		_, err := uc.RelayLink(context.Background(), linkReq, testClient)
		assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
		assert.EqualError(t, err, "Could not download video from link")
	})

	t.Run("Should audit links that point inside the network", func(t *testing.T) {
		core, logs := observer.New(zap.DebugLevel)
		audit := security.NewSecurityLoggerWithZap(zap.New(core), "autopost-backend", "test")
		fetchErr := fmt.Errorf("download video: %w", security.ErrNonPublicAddress)
		uc := usecase.NewUploadUsecase(new(MockVideoRequestRepo), new(MockDrive), validation.New(),
			usecase.UploadOptions{Fetcher: &stubFetcher{err: fetchErr}, Audit: audit})

		internal := linkReq
		internal.VideoLink = "http://169.254.169.254/clip.mp4"
		_, err := uc.RelayLink(context.Background(), internal, testClient)
		assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
		assert.Equal(t, 1, logs.FilterMessage(string(security.EventUploadRejected)).Len())
	})

	t.Run("Should 503 without a fetcher", func(t *testing.T) {
		uc := usecase.NewUploadUsecase(new(MockVideoRequestRepo), new(MockDrive), validation.New(), usecase.UploadOptions{})

		_, err := uc.RelayLink(context.Background(), linkReq, testClient)
		assert.Equal(t, http.StatusServiceUnavailable, apperror.StatusOf(err))
	})

	t.Run("Should reject a request without a valid link", func(t *testing.T) {
		uc := usecase.NewUploadUsecase(new(MockVideoRequestRepo), new(MockDrive), validation.New(), usecase.UploadOptions{})

		bad := linkReq
		bad.VideoLink = "ftp://example.com/clip.mp4"
		_, err := uc.RelayLink(context.Background(), bad, testClient)
		assert.Equal(t, http.StatusBadRequest, apperror.StatusOf(err))
	})
}
