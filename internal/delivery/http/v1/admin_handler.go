package v1

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"autopost-backend/internal/delivery/http/response"
	"autopost-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	adminUC domain.AdminUsecase
}

// NewAdminHandler mounts the admin views on an already guarded group.
func NewAdminHandler(admin *gin.RouterGroup, adminUC domain.AdminUsecase) {
	handler := &AdminHandler{adminUC: adminUC}

	// Beta requests
	admin.GET("/beta-requests", handler.ListBetaRequests)
	admin.GET("/beta-requests/export", handler.ExportBetaRequests)
	admin.PATCH("/beta-requests/:id/approve", handler.ApproveBetaRequest)
	admin.PATCH("/beta-requests/:id/reject", handler.RejectBetaRequest)

	admin.GET("/credentials", handler.ListCredentials)
	admin.GET("/users", handler.ListUsers)
	admin.GET("/workflows", handler.ListWorkflows)
}

// ListBetaRequests godoc
// @Summary      List beta requests
// @Description  Returns beta signups, newest first
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page     query     int  false  "Page number"
// @Param        pageSize query     int  false  "Items per page"
// @Success      200      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /admin/beta-requests [get]
func (h *AdminHandler) ListBetaRequests(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "10"))

	result, err := h.adminUC.ListBetaRequests(c.Request.Context(), page, pageSize)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Beta requests retrieved", result)
}

// ApproveBetaRequest godoc
// @Summary      Approve a beta request
// @Description  Marks the request approved and emails the applicant their intake link
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=domain.VideoRequest}
// @Failure      404  {object}  response.Response
// @Router       /admin/beta-requests/{id}/approve [patch]
func (h *AdminHandler) ApproveBetaRequest(c *gin.Context) {
	req, err := h.adminUC.ApproveBetaRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Beta request approved", req)
}

// RejectBetaRequest godoc
// @Summary      Reject a beta request
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                true   "Request ID"
// @Param        request  body      domain.RejectRequest  false  "Send the denial email"
// @Success      200      {object}  response.Response{data=domain.VideoRequest}
// @Failure      404      {object}  response.Response
// @Router       /admin/beta-requests/{id}/reject [patch]
func (h *AdminHandler) RejectBetaRequest(c *gin.Context) {
	var body domain.RejectRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		response.InvalidBody(c)
		return
	}

	req, err := h.adminUC.RejectBetaRequest(c.Request.Context(), c.Param("id"), body.Notify)
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Beta request rejected", req)
}

// ExportBetaRequests godoc
// @Summary      Export beta requests
// @Description  Downloads every beta request as an Excel workbook
// @Tags         admin
// @Produce      application/octet-stream
// @Security     BearerAuth
// @Success      200  {file}    binary
// @Failure      403  {object}  response.Response
// @Router       /admin/beta-requests/export [get]
func (h *AdminHandler) ExportBetaRequests(c *gin.Context) {
	data, filename, err := h.adminUC.ExportBetaRequests(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ListCredentials godoc
// @Summary      List submitted platform credentials
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]domain.AdminCredential}
// @Failure      503  {object}  response.Response
// @Router       /admin/credentials [get]
func (h *AdminHandler) ListCredentials(c *gin.Context) {
	creds, err := h.adminUC.ListCredentials(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Credentials retrieved", creds)
}

// ListUsers godoc
// @Summary      List users with their credentials and workflows
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]domain.UserOverview}
// @Router       /admin/users [get]
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.adminUC.ListUsers(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Users retrieved", users)
}

// ListWorkflows godoc
// @Summary      List workflows
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=[]domain.AdminWorkflow}
// @Router       /admin/workflows [get]
func (h *AdminHandler) ListWorkflows(c *gin.Context) {
	workflows, err := h.adminUC.ListWorkflows(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}
	response.Success(c, http.StatusOK, "Workflows retrieved", workflows)
}
