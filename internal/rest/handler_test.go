package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"myGreenInsight/business/conversion"
	"myGreenInsight/business/journey"
	"myGreenInsight/domain"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type fakeConversionService struct {
	ConversionService
	tracked []conversion.TrackInput
	getErr  error
}

func (f *fakeConversionService) Track(_ context.Context, in conversion.TrackInput) (*conversion.TrackResult, error) {
	f.tracked = append(f.tracked, in)
	return &conversion.TrackResult{Conversion: domain.Conversion{ID: uuid.New(), ConversionType: in.ConversionType}}, nil
}

func (f *fakeConversionService) GetConversion(_ context.Context, id uuid.UUID) (domain.Conversion, error) {
	if f.getErr != nil {
		return domain.Conversion{}, f.getErr
	}
	return domain.Conversion{ID: id}, nil
}

type fakeJourneyService struct {
	JourneyService
	query journey.FunnelQuery
}

func (f *fakeJourneyService) Funnel(_ context.Context, q journey.FunnelQuery) (*journey.Funnel, error) {
	f.query = q
	return &journey.Funnel{}, nil
}

type fakeAttributionService struct {
	AttributionService
	cleared bool
	err     error
	calls   int
}

func (f *fakeAttributionService) RefreshCampaigns(context.Context) (bool, error) {
	f.calls++
	return f.cleared, f.err
}

func doRequest(method, target, body string, pathNames []string, pathValues []string, h echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if len(pathNames) > 0 {
		c.SetParamNames(pathNames...)
		c.SetParamValues(pathValues...)
	}
	_ = h(c)
	return rec
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{domain.NotFoundError("conversion", "x"), http.StatusNotFound},
		{domain.NewValidationError("value", "must be positive"), http.StatusBadRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := StatusFor(tc.err); got != tc.want {
			t.Errorf("StatusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestConversionHandler_Track(t *testing.T) {
	svc := &fakeConversionService{}
	h := NewConversionHandler(svc)

	rec := doRequest(http.MethodPost, "/api/v1/conversions",
		`{"conversion_type":"purchase","visitor_id":"v1","value":80,"currency":"USD"}`, nil, nil, h.Track)
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if len(svc.tracked) != 1 || svc.tracked[0].VisitorID != "v1" {
		t.Fatalf("tracked = %+v", svc.tracked)
	}

	rec = doRequest(http.MethodPost, "/api/v1/conversions", `{"conversion_type":"purchase"}`, nil, nil, h.Track)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing visitor_id: status = %d", rec.Code)
	}
	if len(svc.tracked) != 1 {
		t.Fatal("invalid request must not reach the service")
	}
}

func TestConversionHandler_GetErrors(t *testing.T) {
	id := uuid.New().String()

	svc := &fakeConversionService{getErr: domain.NotFoundError("conversion", id)}
	rec := doRequest(http.MethodGet, "/api/v1/conversions/"+id, "", []string{"id"}, []string{id}, NewConversionHandler(svc).Get)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}

	svc = &fakeConversionService{getErr: errors.New("dial tcp 10.0.0.1:5432: connection refused")}
	rec = doRequest(http.MethodGet, "/api/v1/conversions/"+id, "", []string{"id"}, []string{id}, NewConversionHandler(svc).Get)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.1") {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}

	rec = doRequest(http.MethodGet, "/api/v1/conversions/nope", "", []string{"id"}, []string{"nope"}, NewConversionHandler(svc).Get)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid: status = %d", rec.Code)
	}
}

func TestJourneyHandler_FunnelQuery(t *testing.T) {
	svc := &fakeJourneyService{}
	h := NewJourneyHandler(svc)

	rec := doRequest(http.MethodGet, "/api/v1/journey/funnel?website_id=w1&from=2024-03-01&to=2024-03-31T00:00:00Z", "", nil, nil, h.Funnel)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if svc.query.WebsiteID != "w1" || svc.query.From == nil || svc.query.To == nil {
		t.Fatalf("query = %+v", svc.query)
	}
	if svc.query.From.Day() != 1 || svc.query.To.Day() != 31 {
		t.Fatalf("range parsed wrong: %v - %v", svc.query.From, svc.query.To)
	}

	rec = doRequest(http.MethodGet, "/api/v1/journey/funnel?from=yesterday", "", nil, nil, h.Funnel)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: status = %d", rec.Code)
	}
}

func TestPublishHandler_RetryPlan(t *testing.T) {
	h := NewPublishHandler()

	body := `{"results":[
		{"platform":"meta","success":true,"published_at":"2024-03-01T10:00:00Z"},
		{"platform":"google","success":false,"error":"quota","published_at":"2024-03-01T10:00:01Z"}
	]}`
	rec := doRequest(http.MethodPost, "/api/v1/publish/retry-plan", body, nil, nil, h.RetryPlan)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"google"`) || strings.Contains(rec.Body.String(), `"meta"`) {
		t.Fatalf("expected google-only retry, got %s", rec.Body.String())
	}

	rec = doRequest(http.MethodPost, "/api/v1/publish/retry-plan", `{"results":[{"platform":"tiktok"}]}`, nil, nil, h.RetryPlan)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown platform: status = %d", rec.Code)
	}
}

func TestAttributionHandler_RefreshCampaigns(t *testing.T) {
	cases := []struct {
		name     string
		svc      *fakeAttributionService
		wantCode int
		wantBody string
	}{
		{"cache cleared", &fakeAttributionService{cleared: true}, http.StatusOK, `"cache_cleared":true`},
		{"no cache", &fakeAttributionService{}, http.StatusOK, `"cache_cleared":false`},
		{"cache error", &fakeAttributionService{err: errors.New("redis down")}, http.StatusInternalServerError, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewAttributionHandler(tc.svc)
			rec := doRequest(http.MethodPost, "/api/v1/attributions/campaigns/refresh", "", nil, nil, h.RefreshCampaigns)
			if rec.Code != tc.wantCode {
				t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
			}
			if tc.svc.calls != 1 {
				t.Fatalf("calls = %d, want 1", tc.svc.calls)
			}
			if tc.wantBody != "" && !strings.Contains(rec.Body.String(), tc.wantBody) {
				t.Fatalf("body = %s, want %s", rec.Body.String(), tc.wantBody)
			}
		})
	}
}
