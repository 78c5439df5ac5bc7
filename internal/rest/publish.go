package rest

import (
	"net/http"

	"myGreenInsight/business/publish"
	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	PublishHandler struct {
		validate *validator.Validate
	}

	RetryPlanRequest struct {
		Results []domain.PublishResult `json:"results" validate:"dive"`
	}
)

func NewPublishHandler() *PublishHandler {
	return &PublishHandler{validate: validator.New()}
}

func (h *PublishHandler) RetryPlan(c echo.Context) error {
	var req RetryPlanRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	plan := publish.PlanRetry(req.Results)
	logger.Debug("publish_retry_planned", "results", len(req.Results), "platforms", plan.Platforms)

	return c.JSON(http.StatusOK, fres.Response.StatusOK(plan))
}
