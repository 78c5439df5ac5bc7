package segment

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"myGreenInsight/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type fakeSegments struct {
	rows map[uuid.UUID]domain.CustomerSegment
}

func (f *fakeSegments) Create(_ context.Context, s *domain.CustomerSegment) error {
	f.rows[s.ID] = *s
	return nil
}

func (f *fakeSegments) FindByID(_ context.Context, id uuid.UUID) (domain.CustomerSegment, error) {
	s, ok := f.rows[id]
	if !ok {
		return domain.CustomerSegment{}, domain.NotFoundError("segment", id.String())
	}
	return s, nil
}

func (f *fakeSegments) List(context.Context, domain.ListParams) ([]domain.CustomerSegment, int64, error) {
	return nil, 0, nil
}

func (f *fakeSegments) ListAutoUpdate(context.Context) ([]domain.CustomerSegment, error) {
	var out []domain.CustomerSegment
	for _, s := range f.rows {
		if s.IsActive && s.AutoUpdate {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSegments) Update(_ context.Context, s *domain.CustomerSegment) error {
	f.rows[s.ID] = *s
	return nil
}

func (f *fakeSegments) UpdateStats(_ context.Context, id uuid.UUID, count int64, at time.Time) error {
	s := f.rows[id]
	s.CustomerCount = count
	s.LastCalculatedAt = &at
	f.rows[id] = s
	return nil
}

func (f *fakeSegments) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.rows, id)
	return nil
}

type fakeMembers struct {
	rows map[uuid.UUID]map[string]time.Time
}

func (f *fakeMembers) ListMemberIDs(_ context.Context, id uuid.UUID) ([]string, error) {
	var out []string
	for pid := range f.rows[id] {
		out = append(out, pid)
	}
	return out, nil
}

func (f *fakeMembers) ListMembers(context.Context, uuid.UUID, domain.ListParams) ([]domain.SegmentMember, int64, error) {
	return nil, 0, nil
}

func (f *fakeMembers) AddMembers(_ context.Context, id uuid.UUID, pids []string, at time.Time) error {
	if f.rows[id] == nil {
		f.rows[id] = map[string]time.Time{}
	}
	for _, p := range pids {
		f.rows[id][p] = at
	}
	return nil
}

func (f *fakeMembers) RemoveMembers(_ context.Context, id uuid.UUID, pids []string) error {
	for _, p := range pids {
		delete(f.rows[id], p)
	}
	return nil
}

func (f *fakeMembers) sorted(id uuid.UUID) []string {
	out, _ := f.ListMemberIDs(context.Background(), id)
	sort.Strings(out)
	return out
}

type fakePeople []domain.Person

func (f fakePeople) ListPersons(context.Context) ([]domain.Person, error) { return f, nil }

func (f fakePeople) GetPerson(_ context.Context, id string) (domain.Person, error) {
	for _, p := range f {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Person{}, domain.NotFoundError("person", id)
}

type fakeScores map[string][]domain.CustomerScore

func (f fakeScores) ListByPerson(_ context.Context, p string) ([]domain.CustomerScore, error) {
	return f[p], nil
}

type fakeConversions struct {
	failFor string
}

func (f fakeConversions) ListByPerson(_ context.Context, p string) ([]domain.Conversion, error) {
	if p == f.failFor {
		return nil, errors.New("timeout")
	}
	return nil, nil
}

func tierScore(person, tier string) domain.CustomerScore {
	return domain.CustomerScore{
		PersonID:   person,
		ScoreType:  domain.ScoreCLV,
		ScoreValue: 1,
		Metadata:   datatypes.NewJSONType(domain.ScoreMetadata{Tier: tier}),
	}
}

type segFixture struct {
	svc      *SegmentService
	segments *fakeSegments
	members  *fakeMembers
	scores   fakeScores
}

func newSegFixture(failFor string) segFixture {
	segs := &fakeSegments{rows: map[uuid.UUID]domain.CustomerSegment{}}
	members := &fakeMembers{rows: map[uuid.UUID]map[string]time.Time{}}
	scores := fakeScores{
		"p1": {tierScore("p1", "gold")},
		"p2": {tierScore("p2", "bronze")},
		"p3": {tierScore("p3", "platinum")},
	}
	people := fakePeople{{ID: "p1"}, {ID: "p2"}, {ID: "p3"}, {ID: "p4"}}
	svc := NewSegmentService(segs, members, people, scores, fakeConversions{failFor: failFor})
	svc.now = func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) }
	return segFixture{svc: svc, segments: segs, members: members, scores: scores}
}

var highValue = domain.SegmentCriteria{
	Logic: domain.LogicOr,
	Rules: []domain.SegmentRule{
		{Field: "clv_tier", Operator: domain.OpEq, Value: "gold"},
		{Field: "clv_tier", Operator: domain.OpEq, Value: "platinum"},
	},
}

func TestBuild_ReconcilesMembership(t *testing.T) {
	f := newSegFixture("")
	ctx := context.Background()

	seg, err := f.svc.CreateSegment(ctx, SegmentInput{Name: "High value", Criteria: highValue})
	if err != nil {
		t.Fatal(err)
	}
	if !seg.IsActive || !seg.AutoUpdate {
		t.Fatal("new segments default to active and auto-updating")
	}
	// p4 is a stale member, p1 already belongs
	_ = f.members.AddMembers(ctx, seg.ID, []string{"p1", "p4"}, time.Now())

	res, err := f.svc.Build(ctx, seg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Evaluated != 4 || res.Matched != 2 || res.Added != 1 || res.Removed != 1 || res.CustomerCount != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := f.members.sorted(seg.ID); len(got) != 2 || got[0] != "p1" || got[1] != "p3" {
		t.Fatalf("members = %v", got)
	}
	stored := f.segments.rows[seg.ID]
	if stored.CustomerCount != 2 || stored.LastCalculatedAt == nil {
		t.Fatalf("stats not updated: %+v", stored)
	}

	// second run is a no-op
	res, err = f.svc.Build(ctx, seg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.Added != 0 || res.Removed != 0 || res.CustomerCount != 2 {
		t.Fatalf("rebuild should be idempotent: %+v", res)
	}
}

func TestBuild_SnapshotFailureKeepsMembership(t *testing.T) {
	f := newSegFixture("p1")
	ctx := context.Background()

	seg, err := f.svc.CreateSegment(ctx, SegmentInput{Name: "High value", Criteria: highValue})
	if err != nil {
		t.Fatal(err)
	}
	_ = f.members.AddMembers(ctx, seg.ID, []string{"p1"}, time.Now())

	res, err := f.svc.Build(ctx, seg.ID)
	if err != nil {
		t.Fatal(err)
	}
	if res.SnapshotErrs != 1 || res.Removed != 0 || res.CustomerCount != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestCreateSegment_Validation(t *testing.T) {
	f := newSegFixture("")
	ctx := context.Background()

	bad := []SegmentInput{
		{Name: "", Criteria: highValue},
		{Name: "x"},
		{Name: "x", Criteria: domain.SegmentCriteria{Logic: "XOR", Rules: highValue.Rules}},
		{Name: "x", Criteria: domain.SegmentCriteria{Rules: []domain.SegmentRule{{Field: "a", Operator: "~"}}}},
		{Name: "x", Criteria: domain.SegmentCriteria{Rules: []domain.SegmentRule{{Field: "a", Operator: domain.OpIn, Value: "gold"}}}},
	}
	for _, in := range bad {
		if _, err := f.svc.CreateSegment(ctx, in); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("CreateSegment(%+v) err = %v, want validation", in, err)
		}
	}
}

func TestBuildAll_OnlyActiveAutoUpdate(t *testing.T) {
	f := newSegFixture("")
	ctx := context.Background()
	no := false

	auto, _ := f.svc.CreateSegment(ctx, SegmentInput{Name: "auto", Criteria: highValue})
	manual, _ := f.svc.CreateSegment(ctx, SegmentInput{Name: "manual", Criteria: highValue, AutoUpdate: &no})
	inactive, _ := f.svc.CreateSegment(ctx, SegmentInput{Name: "off", Criteria: highValue, IsActive: &no})

	summary, err := f.svc.BuildAll(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if summary.Processed != 1 || summary.Errors != 0 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if f.segments.rows[auto.ID].LastCalculatedAt == nil {
		t.Fatal("auto segment not built")
	}
	if f.segments.rows[manual.ID].LastCalculatedAt != nil || f.segments.rows[inactive.ID].LastCalculatedAt != nil {
		t.Fatal("manual or inactive segments must be skipped")
	}
}

func TestBuild_NotFound(t *testing.T) {
	f := newSegFixture("")
	if _, err := f.svc.Build(context.Background(), uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestEvaluatePerson(t *testing.T) {
	f := newSegFixture("")
	ctx := context.Background()

	seg, err := f.svc.CreateSegment(ctx, SegmentInput{Name: "High value", Criteria: highValue})
	if err != nil {
		t.Fatal(err)
	}

	m, err := f.svc.EvaluatePerson(ctx, seg.ID, "p3")
	if err != nil {
		t.Fatal(err)
	}
	if !m.Matched || m.Snapshot["clv_tier"] != "platinum" {
		t.Fatalf("unexpected match %+v", m)
	}
	if got := f.members.sorted(seg.ID); len(got) != 0 {
		t.Fatalf("evaluation must not change membership, got %v", got)
	}

	if _, err := f.svc.EvaluatePerson(ctx, seg.ID, "nobody"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
