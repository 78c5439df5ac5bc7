package rest

import (
	"context"
	"net/http"
	"strings"

	"myGreenInsight/business/scoring"
	"myGreenInsight/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	ScoreHandler struct {
		validate *validator.Validate
		service  ScoreService
	}

	ScoreService interface {
		CalculateScore(ctx context.Context, personID string, scoreType domain.ScoreType) (*domain.CustomerScore, error)
		CalculateAll(ctx context.Context, personID string) ([]domain.CustomerScore, error)
		RecalculateAll(ctx context.Context, types []domain.ScoreType) (domain.BatchSummary, error)
		RecordNPSResponse(ctx context.Context, in scoring.NPSInput) (*domain.CustomerScore, error)
		GetScore(ctx context.Context, personID string, scoreType domain.ScoreType) (domain.CustomerScore, error)
		ListScores(ctx context.Context, filter domain.ScoreFilter, params domain.ListParams) (domain.Page[domain.CustomerScore], error)
		DeleteScore(ctx context.Context, personID string, scoreType domain.ScoreType) error
	}

	CalculateScoreRequest struct {
		PersonID  string           `json:"person_id" validate:"required"`
		ScoreType domain.ScoreType `json:"score_type" validate:"omitempty,oneof=nps engagement clv churn_risk"`
	}

	RecalculateRequest struct {
		ScoreTypes []domain.ScoreType `json:"score_types" validate:"dive,oneof=nps engagement clv churn_risk"`
	}
)

func NewScoreHandler(svc ScoreService) *ScoreHandler {
	return &ScoreHandler{
		validate: validator.New(),
		service:  svc,
	}
}

// Calculate recomputes one score type, or all of them when score_type is
// omitted.
func (h *ScoreHandler) Calculate(c echo.Context) error {
	var req CalculateScoreRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if req.ScoreType != "" {
		score, err := h.service.CalculateScore(ctx, req.PersonID, req.ScoreType)
		if err != nil {
			return respondError(c, "failed to calculate score", err)
		}
		return c.JSON(http.StatusOK, fres.Response.StatusOK(score))
	}

	scores, err := h.service.CalculateAll(ctx, req.PersonID)
	if err != nil && len(scores) == 0 {
		return respondError(c, "failed to calculate scores", err)
	}
	body := map[string]interface{}{"scores": scores}
	if err != nil {
		body["errors"] = err.Error()
	}
	return c.JSON(http.StatusOK, fres.Response.StatusOK(body))
}

func (h *ScoreHandler) Recalculate(c echo.Context) error {
	var req RecalculateRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := batchContext(c)
	defer cancel()

	summary, err := h.service.RecalculateAll(ctx, req.ScoreTypes)
	if err != nil {
		return respondError(c, "failed to recalculate scores", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}

func (h *ScoreHandler) RecordNPS(c echo.Context) error {
	var req scoring.NPSInput
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	score, err := h.service.RecordNPSResponse(ctx, req)
	if err != nil {
		return respondError(c, "failed to record nps response", err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(score))
}

func (h *ScoreHandler) List(c echo.Context) error {
	params, err := listParams(c)
	if err != nil {
		return badRequest(c, err)
	}
	filter := domain.ScoreFilter{
		PersonID:  c.QueryParam("person_id"),
		ScoreType: domain.ScoreType(strings.ToLower(c.QueryParam("score_type"))),
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	page, err := h.service.ListScores(ctx, filter, params)
	if err != nil {
		return respondError(c, "failed to list scores", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(page))
}

func (h *ScoreHandler) Get(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	score, err := h.service.GetScore(ctx, c.Param("person_id"), domain.ScoreType(c.Param("type")))
	if err != nil {
		return respondError(c, "failed to get score", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(score))
}

func (h *ScoreHandler) Delete(c echo.Context) error {
	personID, scoreType := c.Param("person_id"), domain.ScoreType(c.Param("type"))

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.DeleteScore(ctx, personID, scoreType); err != nil {
		return respondError(c, "failed to delete score", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"person_id":  personID,
		"score_type": scoreType,
	}))
}
