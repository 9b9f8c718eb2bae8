package usecase

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/security"
)

type httpVideoFetcher struct {
	client   *http.Client
	maxBytes int64
}

// NewVideoFetcher downloads linked videos into temporary files so each
// Drive folder upload can re-read them. Unless allowPrivate is set, links
// resolving to loopback, private or link-local addresses are refused.
func NewVideoFetcher(timeout time.Duration, maxBytes int64, allowPrivate bool) VideoFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	if maxBytes <= 0 {
		maxBytes = security.MaxVideoBytes
	}

	dialer := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = security.PublicOnlyControl
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
	return &httpVideoFetcher{
		client:   &http.Client{Timeout: timeout, Transport: transport},
		maxBytes: maxBytes,
	}
}

func (f *httpVideoFetcher) Fetch(ctx context.Context, link string) (*domain.UploadVideo, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("download video: unexpected status %d", resp.StatusCode)
	}
	if resp.ContentLength > f.maxBytes {
		return nil, nil, security.ErrVideoTooLarge
	}

	tmp, err := os.CreateTemp("", "relay-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create temp file: %w", err)
	}
	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("download video: %w", err)
	}
	if n > f.maxBytes {
		cleanup()
		return nil, nil, security.ErrVideoTooLarge
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		cleanup()
		return nil, nil, err
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	return &domain.UploadVideo{
		FileName:    fileNameFromLink(link),
		ContentType: contentType,
		Size:        n,
		Body:        tmp,
	}, cleanup, nil
}

func fileNameFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return "video.mp4"
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || security.ValidateFileExtension(base) != nil {
		return "video.mp4"
	}
	return base
}
