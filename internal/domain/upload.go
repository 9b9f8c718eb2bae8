package domain

import (
	"context"
	"io"
)

// Defaults recorded for relay uploads that arrive without a form.
const (
	RelayUploadName      = "File Upload"
	RelayUploadEmail     = "upload@autopost.agent"
	RelayUploadFrequency = "once"
)

// UploadVideo is a video body ready to be relayed. Body is re-read once per
// destination folder.
type UploadVideo struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.ReadSeeker
}

// RelayUpload is the multipart variant: a file, a JSON array of platform
// ids and an optional caption.
type RelayUpload struct {
	Video     *UploadVideo
	Platforms string
	Caption   string
}

// RelayLinkRequest is the JSON variant; the video is fetched from VideoLink.
type RelayLinkRequest struct {
	Name      string   `json:"name" validate:"required,max=100"`
	Email     string   `json:"email" validate:"required,max=255,basic_email"`
	VideoLink string   `json:"videoLink" validate:"required,web_url"`
	Platforms []string `json:"platforms" validate:"required,min=1"`
	Frequency string   `json:"frequency" validate:"max=50"`
	Notes     string   `json:"notes" validate:"max=1000"`
}

// ClientInfo identifies the caller for rate limiting and audit logs.
type ClientInfo struct {
	IP        string
	UserAgent string
	RequestID string
}

type RelayResult struct {
	RequestID string   `json:"requestId"`
	FileName  string   `json:"fileName"`
	FileIDs   []string `json:"fileIds"`
}

type UploadUsecase interface {
	RelayUpload(ctx context.Context, in RelayUpload, client ClientInfo) (*RelayResult, error)
	RelayLink(ctx context.Context, req RelayLinkRequest, client ClientInfo) (*RelayResult, error)
}
