package rest

import (
	"context"
	"net/http"
	"time"

	"myGreenInsight/business/journey"
	"myGreenInsight/domain"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	JourneyHandler struct {
		validate *validator.Validate
		service  JourneyService
	}

	JourneyService interface {
		RecordEvent(ctx context.Context, ev *domain.CustomerJourneyEvent) error
		Timeline(ctx context.Context, personID string) (*journey.Timeline, error)
		Funnel(ctx context.Context, q journey.FunnelQuery) (*journey.Funnel, error)
	}

	JourneyEventRequest struct {
		PersonID   string                 `json:"person_id" validate:"required"`
		EventType  string                 `json:"event_type" validate:"required"`
		Stage      domain.JourneyStage    `json:"stage"`
		Channel    string                 `json:"channel"`
		WebsiteID  string                 `json:"website_id"`
		EventData  map[string]interface{} `json:"event_data"`
		OccurredAt *time.Time             `json:"occurred_at"`
	}
)

func NewJourneyHandler(svc JourneyService) *JourneyHandler {
	return &JourneyHandler{
		validate: validator.New(),
		service:  svc,
	}
}

func (h *JourneyHandler) RecordEvent(c echo.Context) error {
	var req JourneyEventRequest
	if err := bindAndValidate(c, h.validate, &req); err != nil {
		return badRequest(c, err)
	}

	ev := &domain.CustomerJourneyEvent{
		PersonID:  req.PersonID,
		EventType: req.EventType,
		Stage:     req.Stage,
		Channel:   req.Channel,
		WebsiteID: req.WebsiteID,
		EventData: req.EventData,
	}
	if req.OccurredAt != nil {
		ev.OccurredAt = req.OccurredAt.UTC()
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.service.RecordEvent(ctx, ev); err != nil {
		return respondError(c, "failed to record journey event", err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(ev))
}

func (h *JourneyHandler) Timeline(c echo.Context) error {
	ctx, cancel := requestContext(c)
	defer cancel()

	tl, err := h.service.Timeline(ctx, c.Param("person_id"))
	if err != nil {
		return respondError(c, "failed to build timeline", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(tl))
}

func (h *JourneyHandler) Funnel(c echo.Context) error {
	from, err := timeQuery(c, "from")
	if err != nil {
		return badRequest(c, err)
	}
	to, err := timeQuery(c, "to")
	if err != nil {
		return badRequest(c, err)
	}

	ctx, cancel := requestContext(c)
	defer cancel()

	f, err := h.service.Funnel(ctx, journey.FunnelQuery{
		WebsiteID: c.QueryParam("website_id"),
		From:      from,
		To:        to,
	})
	if err != nil {
		return respondError(c, "failed to build funnel", err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(f))
}
