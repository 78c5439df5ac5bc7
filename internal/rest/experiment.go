package rest

import (
	"context"
	"net/http"

	"myGreenInsight/business/experiment"
	"myGreenInsight/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	ExperimentHandler struct {
		validate *validator.Validate
		service  ExperimentService
	}

	ExperimentService interface {
		CreateExperiment(ctx context.Context, in experiment.ExperimentInput) (*domain.ABExperiment, error)
		GetExperiment(ctx context.Context, id uuid.UUID) (domain.ABExperiment, error)
		ListExperiments(ctx context.Context, params domain.ListParams) (domain.Page[domain.ABExperiment], error)
		UpdateExperiment(ctx context.Context, id uuid.UUID, in experiment.ExperimentUpdate) (*domain.ABExperiment, error)
		DeleteExperiment(ctx context.Context, id uuid.UUID) error
		Results(ctx context.Context, id uuid.UUID) (*experiment.Results, error)
		AssignVariant(ctx context.Context, id uuid.UUID, visitorID string) (domain.ExperimentVariant, error)
		RecordExposure(ctx context.Context, id uuid.UUID, visitorID string) (domain.ExperimentVariant, error)
		RecordConversion(ctx context.Context, id uuid.UUID, visitorID string) (domain.ExperimentVariant, error)
	}

	VisitorRequest struct {
		VisitorID string `json:"visitor_id" validate:"required"`
	}
)

func NewExperimentHandler(svc ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{
		validate: validator.New(),
		service:  svc,
	}
}

func (h *ExperimentHandler) Create(c echo.Context) error {
	var req experiment.ExperimentInput
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	exp, err := h.service.CreateExperiment(ctx, req)
	if err != nil {
		return respondError(c, "failed to create experiment", err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(exp))
}

func (h *ExperimentHandler) Get(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	exp, err := h.service.GetExperiment(ctx, id)
	if err != nil {
		return respondError(c, "failed to get experiment", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(exp))
}

func (h *ExperimentHandler) List(c echo.Context) error {
	params, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.service.ListExperiments(ctx, params)
	if err != nil {
		return respondError(c, "failed to list experiments", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}

func (h *ExperimentHandler) Update(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req experiment.ExperimentUpdate
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	exp, err := h.service.UpdateExperiment(ctx, id, req)
	if err != nil {
		return respondError(c, "failed to update experiment", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(exp))
}

func (h *ExperimentHandler) Delete(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.DeleteExperiment(ctx, id); err != nil {
		return respondError(c, "failed to delete experiment", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{"id": id}))
}

func (h *ExperimentHandler) Results(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.service.Results(ctx, id)
	if err != nil {
		return respondError(c, "failed to compute experiment results", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
}

type visitorAction func(ctx context.Context, id uuid.UUID, visitorID string) (domain.ExperimentVariant, error)

func (h *ExperimentHandler) visitorEndpoint(c echo.Context, action visitorAction, msg string) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req VisitorRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	v, err := action(ctx, id, req.VisitorID)
	if err != nil {
		return respondError(c, msg, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(v))
}

func (h *ExperimentHandler) Assign(c echo.Context) error {
	return h.visitorEndpoint(c, h.service.AssignVariant, "failed to assign variant")
}

func (h *ExperimentHandler) Exposure(c echo.Context) error {
	return h.visitorEndpoint(c, h.service.RecordExposure, "failed to record exposure")
}

func (h *ExperimentHandler) Conversion(c echo.Context) error {
	return h.visitorEndpoint(c, h.service.RecordConversion, "failed to record experiment conversion")
}
