package v1

import (
	"net/http"

	"autopost-backend/internal/delivery/http/response"
	"autopost-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type CredentialHandler struct {
	credentialUC domain.CredentialUsecase
}

func NewCredentialHandler(r *gin.RouterGroup, credentialUC domain.CredentialUsecase, limit gin.HandlerFunc) {
	handler := &CredentialHandler{credentialUC: credentialUC}

	r.POST("/credentials", limit, handler.Submit)
}

// Submit godoc
// @Summary      Submit platform credentials
// @Description  Stores encrypted login details for one platform. Resubmitting replaces the previous entry.
// @Tags         credentials
// @Accept       json
// @Produce      json
// @Param        request  body      domain.CredentialRequest  true  "Credentials"
// @Success      201      {object}  response.Response{data=domain.CredentialReceipt}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /credentials [post]
// @Security     BearerAuth
func (h *CredentialHandler) Submit(c *gin.Context) {
	var req domain.CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c)
		return
	}

	receipt, err := h.credentialUC.Submit(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Credentials saved securely", receipt)
}
