package rest

import (
	"context"
	"net/http"

	"myGreenInsight/business/forecast"
	"myGreenInsight/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	ForecastHandler struct {
		validate *validator.Validate
		service  ForecastService
	}

	ForecastService interface {
		CreateForecast(ctx context.Context, in forecast.ForecastInput) (*domain.BudgetForecast, error)
		UpdateForecast(ctx context.Context, id uuid.UUID, in forecast.ForecastInput) (*domain.BudgetForecast, error)
		GetForecast(ctx context.Context, id uuid.UUID) (domain.BudgetForecast, error)
		ListForecasts(ctx context.Context, params domain.ListParams) (domain.Page[domain.BudgetForecast], error)
		DeleteForecast(ctx context.Context, id uuid.UUID) error
		ForecastAccuracy(ctx context.Context, id uuid.UUID) (*forecast.AccuracyReport, error)
		AnalyzeAll(ctx context.Context) (domain.BatchSummary, []forecast.AccuracyReport, error)
	}
)

func NewForecastHandler(svc ForecastService) *ForecastHandler {
	return &ForecastHandler{
		validate: validator.New(),
		service:  svc,
	}
}

func (h *ForecastHandler) Create(c echo.Context) error {
	var req forecast.ForecastInput
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	f, err := h.service.CreateForecast(ctx, req)
	if err != nil {
		return respondError(c, "failed to create forecast", err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(f))
}

func (h *ForecastHandler) Update(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req forecast.ForecastInput
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	f, err := h.service.UpdateForecast(ctx, id, req)
	if err != nil {
		return respondError(c, "failed to update forecast", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(f))
}

func (h *ForecastHandler) Get(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	f, err := h.service.GetForecast(ctx, id)
	if err != nil {
		return respondError(c, "failed to get forecast", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(f))
}

func (h *ForecastHandler) List(c echo.Context) error {
	params, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.service.ListForecasts(ctx, params)
	if err != nil {
		return respondError(c, "failed to list forecasts", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}

func (h *ForecastHandler) Delete(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.DeleteForecast(ctx, id); err != nil {
		return respondError(c, "failed to delete forecast", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{"id": id}))
}

func (h *ForecastHandler) Accuracy(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	report, err := h.service.ForecastAccuracy(ctx, id)
	if err != nil {
		return respondError(c, "failed to analyze forecast accuracy", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(report))
}

func (h *ForecastHandler) AccuracyAll(c echo.Context) error {
	ctx, cancel := batchContext(c)
	defer cancel()

	summary, reports, err := h.service.AnalyzeAll(ctx)
	if err != nil {
		return respondError(c, "failed to analyze forecasts", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"summary": summary,
		"reports": reports,
	}))
}
