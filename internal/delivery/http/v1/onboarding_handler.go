package v1

import (
	"errors"
	"io"
	"net/http"

	"autopost-backend/internal/delivery/http/response"
	"autopost-backend/internal/domain"

	"github.com/gin-gonic/gin"
)

type OnboardingHandler struct {
	onboardingUC domain.OnboardingUsecase
}

func NewOnboardingHandler(r *gin.RouterGroup, onboardingUC domain.OnboardingUsecase) {
	handler := &OnboardingHandler{onboardingUC: onboardingUC}

	onboarding := r.Group("/onboarding")
	{
		onboarding.GET("", handler.Get)
		onboarding.PATCH("", handler.Patch)
		onboarding.PUT("/step", handler.SetStep)
		onboarding.POST("/save", handler.Save)
		onboarding.POST("/navigate", handler.Navigate)
		onboarding.POST("/complete", handler.Complete)
		onboarding.GET("/summary", handler.Summary)
	}
}

// Get godoc
// @Summary      Get onboarding progress
// @Description  Load the wizard snapshot of the current user. New users start at the welcome step.
// @Tags         onboarding
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.OnboardingView}
// @Failure      401  {object}  response.Response
// @Router       /onboarding [get]
// @Security     BearerAuth
func (h *OnboardingHandler) Get(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	view, err := h.onboardingUC.Get(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding progress retrieved", view)
}

// Patch godoc
// @Summary      Update onboarding answers
// @Description  Merge the provided fields into the wizard data and save. Changing the main source clears destinations.
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      domain.OnboardingPatch  true  "Fields to update"
// @Success      200      {object}  response.Response{data=domain.OnboardingView}
// @Failure      400      {object}  response.Response
// @Failure      401      {object}  response.Response
// @Router       /onboarding [patch]
// @Security     BearerAuth
func (h *OnboardingHandler) Patch(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	var req domain.OnboardingPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c)
		return
	}

	view, err := h.onboardingUC.Patch(c.Request.Context(), userID, req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding progress saved", view)
}

// SetStep godoc
// @Summary      Jump to a wizard step
// @Description  Out of range steps are clamped to the first or last step.
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      domain.SetStepRequest  true  "Target step"
// @Success      200      {object}  response.Response{data=domain.OnboardingView}
// @Failure      400      {object}  response.Response
// @Router       /onboarding/step [put]
// @Security     BearerAuth
func (h *OnboardingHandler) SetStep(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	var req domain.SetStepRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Step == nil {
		response.Error(c, http.StatusBadRequest, "Step is required", nil)
		return
	}

	view, err := h.onboardingUC.SetStep(c.Request.Context(), userID, *req.Step)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding step saved", view)
}

// Save godoc
// @Summary      Save full onboarding snapshot
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      domain.SaveProgressRequest  true  "Snapshot"
// @Success      200      {object}  response.Response{data=domain.OnboardingView}
// @Failure      400      {object}  response.Response
// @Router       /onboarding/save [post]
// @Security     BearerAuth
func (h *OnboardingHandler) Save(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	var req domain.SaveProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c)
		return
	}

	view, err := h.onboardingUC.Save(c.Request.Context(), userID, req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding progress saved", view)
}

// Navigate godoc
// @Summary      Move through the wizard
// @Description  Applies optional data, then continue, back or skip. Continue on the last step completes onboarding.
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      domain.NavigateRequest  true  "Action"
// @Success      200      {object}  response.Response{data=domain.OnboardingView}
// @Failure      400      {object}  response.Response
// @Router       /onboarding/navigate [post]
// @Security     BearerAuth
func (h *OnboardingHandler) Navigate(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	var req domain.NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.InvalidBody(c)
		return
	}

	view, err := h.onboardingUC.Navigate(c.Request.Context(), userID, req)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding progress saved", view)
}

// Complete godoc
// @Summary      Complete onboarding
// @Description  Saves any final answers, marks onboarding complete and notifies the team about the workflow.
// @Tags         onboarding
// @Accept       json
// @Produce      json
// @Param        request  body      domain.OnboardingPatch  false  "Final answers"
// @Success      200      {object}  response.Response{data=domain.OnboardingView}
// @Router       /onboarding/complete [post]
// @Security     BearerAuth
func (h *OnboardingHandler) Complete(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	// The body is optional
	patch := &domain.OnboardingPatch{}
	if err := c.ShouldBindJSON(patch); errors.Is(err, io.EOF) {
		patch = nil
	} else if err != nil {
		response.InvalidBody(c)
		return
	}

	view, err := h.onboardingUC.Complete(c.Request.Context(), userID, patch)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Onboarding completed successfully", view)
}

// Summary godoc
// @Summary      Dashboard summary
// @Tags         onboarding
// @Produce      json
// @Success      200  {object}  response.Response{data=domain.DashboardSummary}
// @Router       /onboarding/summary [get]
// @Security     BearerAuth
func (h *OnboardingHandler) Summary(c *gin.Context) {
	userID := c.GetString(string(domain.KeyUserID))

	summary, err := h.onboardingUC.Summary(c.Request.Context(), userID)
	if err != nil {
		c.Error(err)
		return
	}

	response.Success(c, http.StatusOK, "Dashboard summary retrieved", summary)
}
