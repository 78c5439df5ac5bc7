package attribution

import (
	"context"
	"errors"
	"testing"

	"myGreenInsight/domain"
)

type fakeSessions map[string]domain.Session

func (f fakeSessions) GetSession(_ context.Context, id string) (domain.Session, error) {
	s, ok := f[id]
	if !ok {
		return domain.Session{}, domain.NotFoundError("session", id)
	}
	return s, nil
}

type fakeDirectory struct {
	campaigns []domain.Campaign
	calls     int
}

func (f *fakeDirectory) ListCampaigns(context.Context) ([]domain.Campaign, error) {
	f.calls++
	return f.campaigns, nil
}

type fakeAttrRepo struct {
	rows map[string]domain.CampaignAttribution
}

func newFakeAttrRepo() *fakeAttrRepo {
	return &fakeAttrRepo{rows: map[string]domain.CampaignAttribution{}}
}

func (f *fakeAttrRepo) Upsert(_ context.Context, a *domain.CampaignAttribution) error {
	if prev, ok := f.rows[a.SessionID]; ok {
		a.ID = prev.ID
	}
	f.rows[a.SessionID] = *a
	return nil
}

func (f *fakeAttrRepo) FindBySession(_ context.Context, sid string) (domain.CampaignAttribution, error) {
	a, ok := f.rows[sid]
	if !ok {
		return domain.CampaignAttribution{}, domain.NotFoundError("attribution", sid)
	}
	return a, nil
}

func (f *fakeAttrRepo) List(_ context.Context, _ domain.ListParams) ([]domain.CampaignAttribution, int64, error) {
	out := make([]domain.CampaignAttribution, 0, len(f.rows))
	for _, a := range f.rows {
		out = append(out, a)
	}
	return out, int64(len(out)), nil
}

func (f *fakeAttrRepo) Delete(_ context.Context, sid string) error {
	if _, ok := f.rows[sid]; !ok {
		return domain.NotFoundError("attribution", sid)
	}
	delete(f.rows, sid)
	return nil
}

func newTestService() (*AttributionService, *fakeAttrRepo, *fakeDirectory) {
	sessions := fakeSessions{
		"s1": {ID: "s1", VisitorID: "v1", UTMSource: "facebook", UTMMedium: "cpc", UTMCampaign: "Summer Sale 2024"},
		"s2": {ID: "s2", VisitorID: "v2", UTMSource: "google", UTMCampaign: "unknown thing"},
		"s3": {ID: "s3", VisitorID: "v3"},
	}
	dir := &fakeDirectory{campaigns: testCampaigns}
	repo := newFakeAttrRepo()
	return NewAttributionService(repo, sessions, dir, NewResolver(0.6)), repo, dir
}

func TestResolveAttribution_Exact(t *testing.T) {
	svc, repo, _ := newTestService()

	attr, err := svc.ResolveAttribution(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !attr.IsResolved || attr.CampaignID != "c-summer" || attr.Platform != domain.PlatformMeta {
		t.Fatalf("unexpected attribution %+v", attr)
	}
	if _, ok := repo.rows["s1"]; !ok {
		t.Fatal("attribution not persisted")
	}

	// re-resolving keeps a single row per session
	first := repo.rows["s1"].ID
	if _, err := svc.ResolveAttribution(context.Background(), "s1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.rows) != 1 || repo.rows["s1"].ID != first {
		t.Fatalf("upsert should keep the original row, rows=%d", len(repo.rows))
	}
}

func TestResolveAttribution_UnresolvedIsNotAnError(t *testing.T) {
	svc, repo, dir := newTestService()

	attr, err := svc.ResolveAttribution(context.Background(), "s2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.IsResolved || attr.ResolutionMethod != domain.ResolutionUnresolved {
		t.Fatalf("expected unresolved, got %+v", attr)
	}

	calls := dir.calls
	attr, err = svc.ResolveAttribution(context.Background(), "s3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.Platform != domain.PlatformDirect || dir.calls != calls {
		t.Fatalf("direct session should skip the directory: %+v calls=%d", attr, dir.calls)
	}
	if len(repo.rows) != 2 {
		t.Fatalf("rows = %d", len(repo.rows))
	}
}

func TestResolveAttribution_Errors(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.ResolveAttribution(context.Background(), "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.ResolveAttribution(context.Background(), "missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := svc.ResolveAttribution(ctx, "s1"); err == nil {
		t.Fatal("expected context error")
	}
}

func TestSetManualAttribution(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.SetManualAttribution(ctx, "s2", "c-spring"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found before resolution, got %v", err)
	}
	if _, err := svc.ResolveAttribution(ctx, "s2"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.SetManualAttribution(ctx, "s2", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	attr, err := svc.SetManualAttribution(ctx, "s2", "c-spring")
	if err != nil {
		t.Fatal(err)
	}
	if attr.ResolutionMethod != domain.ResolutionManual || attr.ResolutionConfidence != 1 || !attr.IsResolved {
		t.Fatalf("unexpected %+v", attr)
	}

	resolved, err := svc.ResolvedForSession(ctx, "s2")
	if err != nil || resolved == nil || resolved.CampaignID != "c-spring" {
		t.Fatalf("ResolvedForSession = %+v, %v", resolved, err)
	}
}

func TestResolvedForSession_MissingOrUnresolved(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	if a, err := svc.ResolvedForSession(ctx, "nope"); a != nil || err != nil {
		t.Fatalf("missing row: %+v %v", a, err)
	}
	if _, err := svc.ResolveAttribution(ctx, "s2"); err != nil {
		t.Fatal(err)
	}
	if a, err := svc.ResolvedForSession(ctx, "s2"); a != nil || err != nil {
		t.Fatalf("unresolved row: %+v %v", a, err)
	}
}

type cachedDirectory struct {
	fakeDirectory
	invalidations int
	err           error
}

func (c *cachedDirectory) Invalidate(context.Context) error {
	if c.err != nil {
		return c.err
	}
	c.invalidations++
	return nil
}

func TestRefreshCampaigns(t *testing.T) {
	boom := errors.New("redis down")
	cases := []struct {
		name      string
		campaigns CampaignDirectory
		want      bool
		wantErr   error
	}{
		{"uncached directory", &fakeDirectory{}, false, nil},
		{"cached directory", &cachedDirectory{}, true, nil},
		{"invalidate fails", &cachedDirectory{err: boom}, false, boom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewAttributionService(newFakeAttrRepo(), fakeSessions{}, tc.campaigns, nil)
			got, err := svc.RefreshCampaigns(context.Background())
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("err = %v, want %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Fatalf("refreshed = %v, want %v", got, tc.want)
			}
			if c, ok := tc.campaigns.(*cachedDirectory); ok && tc.wantErr == nil && c.invalidations != 1 {
				t.Fatalf("invalidations = %d, want 1", c.invalidations)
			}
		})
	}
}
