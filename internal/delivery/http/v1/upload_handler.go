package v1

import (
	"errors"
	"net/http"
	"strings"

	"autopost-backend/internal/domain"
	"autopost-backend/pkg/apperror"
	"autopost-backend/pkg/logger"
	"autopost-backend/pkg/security"

	"github.com/gin-gonic/gin"
)

// multipart parts above this size are spooled to disk
const multipartMemory = 32 << 20

// FunctionResponse is the body returned by the upload functions.
type FunctionResponse struct {
	Success bool                `json:"success"`
	Error   string              `json:"error,omitempty"`
	Details []string            `json:"details,omitempty"`
	Data    *domain.RelayResult `json:"data,omitempty"`
}

type UploadHandler struct {
	uploadUC domain.UploadUsecase
	maxBody  int64
}

// NewUploadHandler registers the Drive relay functions. maxBytes bounds
// the request body; zero means the 2 GiB video ceiling.
func NewUploadHandler(r *gin.RouterGroup, uploadUC domain.UploadUsecase, maxBytes int64) {
	if maxBytes <= 0 {
		maxBytes = security.MaxVideoBytes
	}
	handler := &UploadHandler{
		uploadUC: uploadUC,
		// room for the other form fields
		maxBody: maxBytes + 1<<20,
	}

	r.Any("/upload-to-drive", handler.UploadToDrive)
	r.Any("/submit-request", handler.SubmitRequest)
}

// UploadToDrive godoc
// @Summary      Relay a video to Google Drive
// @Description  Accepts a multipart upload (videoFile, platforms, caption) or a JSON body with a videoLink, records the request and copies the video into one Drive folder per platform.
// @Tags         functions
// @Accept       multipart/form-data
// @Accept       json
// @Produce      json
// @Param        videoFile  formData  file    false  "Video (.mp4 or .mov)"
// @Param        platforms  formData  string  false  "JSON array of platform ids"
// @Param        caption    formData  string  false  "Caption"
// @Success      200  {object}  FunctionResponse
// @Failure      400  {object}  FunctionResponse
// @Failure      405  {object}  FunctionResponse
// @Failure      429  {object}  FunctionResponse
// @Failure      500  {object}  FunctionResponse
// @Router       /upload-to-drive [post]
func (h *UploadHandler) UploadToDrive(c *gin.Context) {
	if !h.preflight(c) {
		return
	}
	if isMultipart(c) {
		h.relayMultipart(c)
		return
	}

	var req domain.RelayLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, apperror.BadRequest("Invalid request"))
		return
	}
	result, err := h.uploadUC.RelayLink(c.Request.Context(), req, clientInfo(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, FunctionResponse{Success: true, Data: result})
}

// SubmitRequest godoc
// @Summary      Relay an uploaded video to Google Drive
// @Description  Multipart only variant of upload-to-drive.
// @Tags         functions
// @Accept       multipart/form-data
// @Produce      json
// @Param        videoFile  formData  file    true   "Video (.mp4 or .mov)"
// @Param        platforms  formData  string  true   "JSON array of platform ids"
// @Param        caption    formData  string  false  "Caption"
// @Success      200  {object}  FunctionResponse
// @Failure      400  {object}  FunctionResponse
// @Failure      500  {object}  FunctionResponse
// @Router       /submit-request [post]
func (h *UploadHandler) SubmitRequest(c *gin.Context) {
	if !h.preflight(c) {
		return
	}
	if !isMultipart(c) {
		h.fail(c, apperror.BadRequest("Invalid request"))
		return
	}
	h.relayMultipart(c)
}

// preflight answers OPTIONS and rejects everything but POST. It reports
// whether the request should be processed.
func (h *UploadHandler) preflight(c *gin.Context) bool {
	switch c.Request.Method {
	case http.MethodPost:
		return true
	case http.MethodOptions:
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		c.AbortWithStatus(http.StatusNoContent)
	default:
		c.AbortWithStatusJSON(http.StatusMethodNotAllowed, FunctionResponse{Error: "Method not allowed"})
	}
	return false
}

func (h *UploadHandler) relayMultipart(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBody)
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.fail(c, apperror.New(http.StatusBadRequest, security.ErrVideoTooLarge.Error(), err))
			return
		}
		h.fail(c, apperror.New(http.StatusBadRequest, "Invalid request", err))
		return
	}
	defer c.Request.MultipartForm.RemoveAll()

	in := domain.RelayUpload{
		Platforms: c.PostForm("platforms"),
		Caption:   c.PostForm("caption"),
	}

	fh, err := c.FormFile("videoFile")
	if err == nil {
		file, openErr := fh.Open()
		if openErr != nil {
			h.fail(c, apperror.New(http.StatusBadRequest, "Invalid request", openErr))
			return
		}
		defer file.Close()
		in.Video = &domain.UploadVideo{
			FileName:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        file,
		}
	} else if !errors.Is(err, http.ErrMissingFile) {
		h.fail(c, apperror.New(http.StatusBadRequest, "Invalid request", err))
		return
	}

	result, err := h.uploadUC.RelayUpload(c.Request.Context(), in, clientInfo(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, FunctionResponse{Success: true, Data: result})
}

func (h *UploadHandler) fail(c *gin.Context, err error) {
	body := FunctionResponse{Error: "Internal server error"}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		body.Details = appErr.Fields
	}
	status := apperror.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Log.Error("Upload function failed", "path", c.FullPath(), "status", status, "error", err)
	}
	c.AbortWithStatusJSON(status, body)
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

func clientInfo(c *gin.Context) domain.ClientInfo {
	return domain.ClientInfo{
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		RequestID: c.GetString(string(domain.KeyRequestID)),
	}
}
