package attribution

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"myGreenInsight/domain"
	"myGreenInsight/pkg/logger"
	"myGreenInsight/pkg/metrics"
	"myGreenInsight/pkg/tracing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

type SessionStore interface {
	GetSession(ctx context.Context, sessionID string) (domain.Session, error)
}

type CampaignDirectory interface {
	ListCampaigns(ctx context.Context) ([]domain.Campaign, error)
}

// CampaignInvalidator is implemented by directories that cache campaigns.
type CampaignInvalidator interface {
	Invalidate(ctx context.Context) error
}

type AttributionRepository interface {
	Upsert(ctx context.Context, attr *domain.CampaignAttribution) error
	FindBySession(ctx context.Context, sessionID string) (domain.CampaignAttribution, error)
	List(ctx context.Context, params domain.ListParams) ([]domain.CampaignAttribution, int64, error)
	Delete(ctx context.Context, sessionID string) error
}

type AttributionService struct {
	repo      AttributionRepository
	sessions  SessionStore
	campaigns CampaignDirectory
	resolver  *Resolver
}

func NewAttributionService(repo AttributionRepository, sessions SessionStore, campaigns CampaignDirectory, resolver *Resolver) *AttributionService {
	if resolver == nil {
		resolver = NewResolver(DefaultFuzzyThreshold)
	}
	return &AttributionService{
		repo:      repo,
		sessions:  sessions,
		campaigns: campaigns,
		resolver:  resolver,
	}
}

// ResolveAttribution resolves the campaign behind a session's utm
// parameters and upserts the attribution row for that session.
func (s *AttributionService) ResolveAttribution(ctx context.Context, sessionID string) (*domain.CampaignAttribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, domain.NewValidationError("session_id", "is required")
	}

	ctx, span := tracing.Start(ctx, "attribution.resolve", attribute.String("session_id", sessionID))
	defer span.End()

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		logger.Error("failed to load session for attribution", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("load session: %w", err)
	}

	var candidates []domain.Campaign
	if strings.TrimSpace(session.UTMCampaign) != "" {
		candidates, err = s.campaigns.ListCampaigns(ctx)
		if err != nil {
			logger.Error("failed to list campaigns", "error", err)
			return nil, fmt.Errorf("list campaigns: %w", err)
		}
	}

	res := s.resolver.Resolve(session.UTMSource, session.UTMMedium, session.UTMCampaign, candidates)

	attr := &domain.CampaignAttribution{
		ID:                   uuid.New(),
		SessionID:            session.ID,
		VisitorID:            session.VisitorID,
		UTMSource:            session.UTMSource,
		UTMMedium:            session.UTMMedium,
		UTMCampaign:          session.UTMCampaign,
		UTMTerm:              session.UTMTerm,
		UTMContent:           session.UTMContent,
		IsResolved:           res.Resolved(),
		ResolutionConfidence: res.Confidence,
		ResolutionMethod:     res.Method,
		Platform:             res.Platform,
	}
	if res.CampaignID != nil {
		attr.CampaignID = *res.CampaignID
	}

	if err := s.repo.Upsert(ctx, attr); err != nil {
		logger.Error("failed to upsert attribution", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("upsert attribution: %w", err)
	}

	metrics.AttributionResolutions.WithLabelValues(string(res.Method), string(res.Platform)).Inc()
	logger.Debug("attribution_resolved",
		"session_id", sessionID,
		"method", res.Method,
		"confidence", res.Confidence,
		"campaign_id", attr.CampaignID,
	)

	return attr, nil
}

// ResolvedForSession returns the attribution for a session only when it
// points at a campaign. A missing row is not an error.
func (s *AttributionService) ResolvedForSession(ctx context.Context, sessionID string) (*domain.CampaignAttribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	attr, err := s.repo.FindBySession(ctx, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !attr.IsResolved || attr.CampaignID == "" {
		return nil, nil
	}
	return &attr, nil
}

func (s *AttributionService) GetAttribution(ctx context.Context, sessionID string) (domain.CampaignAttribution, error) {
	if err := ctx.Err(); err != nil {
		return domain.CampaignAttribution{}, fmt.Errorf("context error: %w", err)
	}
	return s.repo.FindBySession(ctx, sessionID)
}

func (s *AttributionService) ListAttributions(ctx context.Context, params domain.ListParams) (domain.Page[domain.CampaignAttribution], error) {
	if err := ctx.Err(); err != nil {
		return domain.Page[domain.CampaignAttribution]{}, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	items, total, err := s.repo.List(ctx, params)
	if err != nil {
		logger.Error("failed to list attributions", err)
		return domain.Page[domain.CampaignAttribution]{}, err
	}
	return domain.Page[domain.CampaignAttribution]{Items: items, Total: total, Offset: params.Offset, Limit: params.Limit}, nil
}

// SetManualAttribution pins a session to a campaign chosen by an operator.
func (s *AttributionService) SetManualAttribution(ctx context.Context, sessionID, campaignID string) (*domain.CampaignAttribution, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	campaignID = strings.TrimSpace(campaignID)
	if campaignID == "" {
		return nil, domain.NewValidationError("campaign_id", "is required")
	}

	attr, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	attr.CampaignID = campaignID
	attr.IsResolved = true
	attr.ResolutionConfidence = 1.0
	attr.ResolutionMethod = domain.ResolutionManual

	if err := s.repo.Upsert(ctx, &attr); err != nil {
		logger.Error("failed to save manual attribution", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("save manual attribution: %w", err)
	}
	metrics.AttributionResolutions.WithLabelValues(string(domain.ResolutionManual), string(attr.Platform)).Inc()
	logger.Info("manual attribution saved", "session_id", sessionID, "campaign_id", campaignID)

	return &attr, nil
}

func (s *AttributionService) DeleteAttribution(ctx context.Context, sessionID string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if err := s.repo.Delete(ctx, sessionID); err != nil {
		logger.Error("failed to delete attribution", "session_id", sessionID, "error", err)
		return err
	}
	return nil
}

// RefreshCampaigns drops any cached campaign directory so the next
// resolution reads fresh campaigns. It reports false when the directory
// is not cached.
func (s *AttributionService) RefreshCampaigns(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}
	inv, ok := s.campaigns.(CampaignInvalidator)
	if !ok {
		return false, nil
	}
	if err := inv.Invalidate(ctx); err != nil {
		logger.Error("failed to invalidate campaign cache", "error", err)
		return false, err
	}
	logger.Info("campaign cache invalidated")
	return true, nil
}
