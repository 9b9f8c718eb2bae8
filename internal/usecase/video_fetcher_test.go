package usecase_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"autopost-backend/internal/usecase"
	"autopost-backend/pkg/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoFetcher_Fetch(t *testing.T) {
	body := mp4Bytes()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/media/clip.mov":
			w.Header().Set("Content-Type", "video/quicktime")
			_, _ = w.Write(body)
		case "/stream":
			_, _ = w.Write(body)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	t.Run("Should spool the video to a rewindable file", func(t *testing.T) {
		fetcher := usecase.NewVideoFetcher(5*time.Second, 1024, true)

		video, cleanup, err := fetcher.Fetch(context.Background(), srv.URL+"/media/clip.mov")
		require.NoError(t, err)
		defer cleanup()

		assert.Equal(t, "clip.mov", video.FileName)
		assert.Equal(t, "video/quicktime", video.ContentType)
		assert.Equal(t, int64(len(body)), video.Size)

		first, err := io.ReadAll(video.Body)
		require.NoError(t, err)
		_, err = video.Body.Seek(0, io.SeekStart)
		require.NoError(t, err)
		second, err := io.ReadAll(video.Body)
		require.NoError(t, err)
		assert.Equal(t, body, first)
		assert.Equal(t, first, second)
	})

	t.Run("Should fall back to a default file name", func(t *testing.T) {
		fetcher := usecase.NewVideoFetcher(5*time.Second, 1024, true)

		video, cleanup, err := fetcher.Fetch(context.Background(), srv.URL+"/stream")
		require.NoError(t, err)
		defer cleanup()
		assert.Equal(t, "video.mp4", video.FileName)
	})

	t.Run("Should refuse videos over the size limit", func(t *testing.T) {
		fetcher := usecase.NewVideoFetcher(5*time.Second, 16, true)

		_, _, err := fetcher.Fetch(context.Background(), srv.URL+"/stream")
		assert.ErrorIs(t, err, security.ErrVideoTooLarge)
	})

	t.Run("Should refuse links to internal addresses", func(t *testing.T) {
		fetcher := usecase.NewVideoFetcher(5*time.Second, 1024, false)

		_, _, err := fetcher.Fetch(context.Background(), srv.URL+"/media/clip.mov")
		assert.ErrorIs(t, err, security.ErrNonPublicAddress)

		_, _, err = fetcher.Fetch(context.Background(), "http://169.254.169.254/latest/meta-data/clip.mp4")
		assert.ErrorIs(t, err, security.ErrNonPublicAddress)
	})

	t.Run("Should fail on a non-200 response", func(t *testing.T) {
		fetcher := usecase.NewVideoFetcher(5*time.Second, 1024, true)

		_, _, err := fetcher.Fetch(context.Background(), srv.URL+"/missing.mp4")
		assert.Error(t, err)
	})
}
