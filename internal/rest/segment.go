package rest

import (
	"context"
	"net/http"

	"myGreenInsight/business/segment"
	"myGreenInsight/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type (
	SegmentHandler struct {
		validate *validator.Validate
		service  SegmentService
	}

	SegmentService interface {
		CreateSegment(ctx context.Context, in segment.SegmentInput) (*domain.CustomerSegment, error)
		UpdateSegment(ctx context.Context, id uuid.UUID, in segment.SegmentInput) (*domain.CustomerSegment, error)
		GetSegment(ctx context.Context, id uuid.UUID) (domain.CustomerSegment, error)
		ListSegments(ctx context.Context, params domain.ListParams) (domain.Page[domain.CustomerSegment], error)
		ListMembers(ctx context.Context, id uuid.UUID, params domain.ListParams) (domain.Page[domain.SegmentMember], error)
		DeleteSegment(ctx context.Context, id uuid.UUID) error
		Build(ctx context.Context, id uuid.UUID) (domain.SegmentBuildResult, error)
		BuildAll(ctx context.Context) (domain.BatchSummary, error)
		EvaluatePerson(ctx context.Context, id uuid.UUID, personID string) (*segment.PersonMatch, error)
	}
)

func NewSegmentHandler(svc SegmentService) *SegmentHandler {
	return &SegmentHandler{
		validate: validator.New(),
		service:  svc,
	}
}

func (h *SegmentHandler) Create(c echo.Context) error {
	var req segment.SegmentInput
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	seg, err := h.service.CreateSegment(ctx, req)
	if err != nil {
		return respondError(c, "failed to create segment", err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(seg))
}

func (h *SegmentHandler) Update(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	var req segment.SegmentInput
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	seg, err := h.service.UpdateSegment(ctx, id, req)
	if err != nil {
		return respondError(c, "failed to update segment", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(seg))
}

func (h *SegmentHandler) Get(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	seg, err := h.service.GetSegment(ctx, id)
	if err != nil {
		return respondError(c, "failed to get segment", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(seg))
}

func (h *SegmentHandler) List(c echo.Context) error {
	params, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.service.ListSegments(ctx, params)
	if err != nil {
		return respondError(c, "failed to list segments", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}

func (h *SegmentHandler) Members(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}
	params, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.service.ListMembers(ctx, id, params)
	if err != nil {
		return respondError(c, "failed to list segment members", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}

func (h *SegmentHandler) Delete(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.DeleteSegment(ctx, id); err != nil {
		return respondError(c, "failed to delete segment", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{"id": id}))
}

func (h *SegmentHandler) Build(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := batchContext(c)
	defer cancel()

	res, err := h.service.Build(ctx, id)
	if err != nil {
		return respondError(c, "failed to build segment", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(res))
}

func (h *SegmentHandler) BuildAll(c echo.Context) error {
	ctx, cancel := batchContext(c)
	defer cancel()

	summary, err := h.service.BuildAll(ctx)
	if err != nil {
		return respondError(c, "failed to rebuild segments", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}

func (h *SegmentHandler) Evaluate(c echo.Context) error {
	id, err := uuidParam(c, "id")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	match, err := h.service.EvaluatePerson(ctx, id, c.Param("person_id"))
	if err != nil {
		return respondError(c, "failed to evaluate segment", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(match))
}
