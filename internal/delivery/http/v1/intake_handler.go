package v1

import (
	"net/http"

	"autopost-backend/internal/delivery/http/response"
	"autopost-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type IntakeHandler struct {
	intakeUC domain.IntakeUsecase
}

// NewIntakeHandler registers the public signup forms on forms and the
// signed-in routes on protected.
func NewIntakeHandler(forms *gin.RouterGroup, protected *gin.RouterGroup, intakeUC domain.IntakeUsecase) {
	handler := &IntakeHandler{intakeUC: intakeUC}

	forms.POST("/beta", handler.SubmitBeta)
	forms.POST("/intake", handler.SubmitIntake)
	forms.GET("/intake/token/:token", handler.CheckToken)

	protected.POST("/requests", handler.SubmitVideoRequest)
	protected.POST("/intake/token/:token/link", handler.LinkToken)
}

// SubmitBeta godoc
// @Summary      Join the beta
// @Description  Records a beta request and emails the team and the applicant.
// @Tags         intake
// @Accept       json
// @Produce      json
// @Param        request  body      domain.BetaSignupRequest  true  "Beta signup"
// @Success      201      {object}  response.Response{data=domain.BetaSignupResult}
// @Failure      400      {object}  response.Response
// @Failure      429      {object}  response.Response
// @Router       /beta [post]
func (h *IntakeHandler) SubmitBeta(c *gin.Context) {
	var req domain.BetaSignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c)
		return
	}

	result, err := h.intakeUC.SubmitBetaSignup(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Beta request submitted", result)
}

// CheckToken godoc
// @Summary      Check an intake token
// @Tags         intake
// @Produce      json
// @Param        token  path      string  true  "Intake token"
// @Success      200    {object}  response.Response{data=domain.IntakeTokenStatus}
// @Failure      403    {object}  response.Response
// @Failure      404    {object}  response.Response
// @Router       /intake/token/{token} [get]
func (h *IntakeHandler) CheckToken(c *gin.Context) {
	status, err := h.intakeUC.CheckToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Token is valid", status)
}

// SubmitIntake godoc
// @Summary      Submit the detailed intake form
// @Tags         intake
// @Accept       json
// @Produce      json
// @Param        request  body      domain.IntakeRequest  true  "Intake answers"
// @Success      201      {object}  response.Response{data=domain.IntakeSubmission}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /intake [post]
func (h *IntakeHandler) SubmitIntake(c *gin.Context) {
	var req domain.IntakeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c)
		return
	}

	sub, err := h.intakeUC.SubmitIntake(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Intake submitted", sub)
}

// SubmitVideoRequest godoc
// @Summary      Request a video repurpose
// @Tags         intake
// @Accept       json
// @Produce      json
// @Param        request  body      domain.VideoRequestInput  true  "Video request"
// @Success      201      {object}  response.Response{data=domain.VideoRequest}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /requests [post]
// @Security     BearerAuth
func (h *IntakeHandler) SubmitVideoRequest(c *gin.Context) {
	var req domain.VideoRequestInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c)
		return
	}

	created, err := h.intakeUC.SubmitVideoRequest(c.Request.Context(), req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusCreated, "Request submitted", created)
}

// LinkToken godoc
// @Summary      Link an intake to the signed-in account
// @Tags         intake
// @Produce      json
// @Param        token  path      string  true  "Intake token"
// @Success      200    {object}  response.Response
// @Failure      404    {object}  response.Response
// @Router       /intake/token/{token}/link [post]
// @Security     BearerAuth
func (h *IntakeHandler) LinkToken(c *gin.Context) {
	if err := h.intakeUC.LinkToken(c.Request.Context(), c.Param("token")); err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Intake linked to your account", nil)
}
