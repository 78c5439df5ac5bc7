package rest

import (
	"context"
	"net/http"

	"myGreenInsight/business/conversion"
	"myGreenInsight/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	ConversionHandler struct {
		validate *validator.Validate
		service  ConversionService
	}

	ConversionService interface {
		Track(ctx context.Context, in conversion.TrackInput) (*conversion.TrackResult, error)
		GetConversion(ctx context.Context, id uuid.UUID) (domain.Conversion, error)
		ListConversions(ctx context.Context, filter domain.ConversionFilter, params domain.ListParams) (domain.Page[domain.Conversion], error)
		DeleteConversion(ctx context.Context, id uuid.UUID) error
		CreateGoal(ctx context.Context, in conversion.GoalInput) (*domain.ConversionGoal, error)
		ListGoals(ctx context.Context, params domain.ListParams) (domain.Page[domain.ConversionGoal], error)
	}
)

func NewConversionHandler(svc ConversionService) *ConversionHandler {
	return &ConversionHandler{
		validate: validator.New(),
		service:  svc,
	}
}

func (h *ConversionHandler) Track(c echo.Context) error {
	var req conversion.TrackInput
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.service.Track(ctx, req)
	if err != nil {
		return respondError(c, "failed to track conversion", err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(res))
}

func (h *ConversionHandler) List(c echo.Context) error {
	params, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}
	from, err := timeQuery(c, "from")
	if err != nil {
		return badRequest(c, err)
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return badRequest(c, err)
	}
	filter := domain.ConversionFilter{
		PersonID:       c.QueryParam("person_id"),
		WebsiteID:      c.QueryParam("website_id"),
		ConversionType: domain.ConversionType(c.QueryParam("conversion_type")),
		From:           from,
		To:             to,
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.service.ListConversions(ctx, filter, params)
	if err != nil {
		return respondError(c, "failed to list conversions", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}

func (h *ConversionHandler) Get(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	conv, err := h.service.GetConversion(ctx, id)
	if err != nil {
		return respondError(c, "failed to get conversion", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(conv))
}

func (h *ConversionHandler) Delete(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.DeleteConversion(ctx, id); err != nil {
		return respondError(c, "failed to delete conversion", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{"id": id}))
}

func (h *ConversionHandler) CreateGoal(c echo.Context) error {
	var req conversion.GoalInput
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	goal, err := h.service.CreateGoal(ctx, req)
	if err != nil {
		return respondError(c, "failed to create goal", err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(goal))
}

func (h *ConversionHandler) ListGoals(c echo.Context) error {
	params, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.service.ListGoals(ctx, params)
	if err != nil {
		return respondError(c, "failed to list goals", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}
