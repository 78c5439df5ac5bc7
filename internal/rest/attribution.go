package rest

import (
	"context"
	"net/http"

	"myGreenInsight/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	AttributionHandler struct {
		validate *validator.Validate
		service  AttributionService
	}

	AttributionService interface {
		ResolveAttribution(ctx context.Context, sessionID string) (*domain.CampaignAttribution, error)
		GetAttribution(ctx context.Context, sessionID string) (domain.CampaignAttribution, error)
		ListAttributions(ctx context.Context, params domain.ListParams) (domain.Page[domain.CampaignAttribution], error)
		SetManualAttribution(ctx context.Context, sessionID, campaignID string) (*domain.CampaignAttribution, error)
		DeleteAttribution(ctx context.Context, sessionID string) error
		RefreshCampaigns(ctx context.Context) (bool, error)
	}

	ManualAttributionRequest struct {
		CampaignID string `json:"campaign_id" validate:"required"`
	}
)

func NewAttributionHandler(svc AttributionService) *AttributionHandler {
	return &AttributionHandler{
		validate: validator.New(),
		service:  svc,
	}
}

func (h *AttributionHandler) Resolve(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	attr, err := h.service.ResolveAttribution(ctx, c.Param("session_id"))
	if err != nil {
		return respondError(c, "failed to resolve attribution", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(attr))
}

func (h *AttributionHandler) List(c echo.Context) error {
	params, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.service.ListAttributions(ctx, params)
	if err != nil {
		return respondError(c, "failed to list attributions", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}

func (h *AttributionHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	attr, err := h.service.GetAttribution(ctx, c.Param("session_id"))
	if err != nil {
		return respondError(c, "failed to get attribution", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(attr))
}

func (h *AttributionHandler) SetManual(c echo.Context) error {
	var req ManualAttributionRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	attr, err := h.service.SetManualAttribution(ctx, c.Param("session_id"), req.CampaignID)
	if err != nil {
		return respondError(c, "failed to set manual attribution", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(attr))
}

func (h *AttributionHandler) Delete(c echo.Context) error {
	sessionID := c.Param("session_id")

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.DeleteAttribution(ctx, sessionID); err != nil {
		return respondError(c, "failed to delete attribution", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{"session_id": sessionID}))
}

func (h *AttributionHandler) RefreshCampaigns(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	cleared, err := h.service.RefreshCampaigns(ctx)
	if err != nil {
		return respondError(c, "failed to refresh campaigns", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{"cache_cleared": cleared}))
}
