package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"myGreenInsight/business/segment"
	"myGreenInsight/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SegmentRepository struct {
	DB *gorm.DB
}

var (
	_ segment.SegmentRepository = (*SegmentRepository)(nil)
	_ segment.MemberRepository  = (*SegmentRepository)(nil)
)

func NewSegmentRepository(db *gorm.DB) *SegmentRepository {
	return &SegmentRepository{DB: db}
}

func (r *SegmentRepository) Create(ctx context.Context, seg *domain.CustomerSegment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(seg).Error; err != nil {
		return fmt.Errorf("failed to create segment: %w", err)
	}

	return nil
}

func (r *SegmentRepository) FindByID(ctx context.Context, id uuid.UUID) (domain.CustomerSegment, error) {
	if err := ctx.Err(); err != nil {
		return domain.CustomerSegment{}, fmt.Errorf("context error: %w", err)
	}

	var seg domain.CustomerSegment
	err := r.DB.WithContext(ctx).First(&seg, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.CustomerSegment{}, domain.NotFoundError("segment", id.String())
		}
		return domain.CustomerSegment{}, fmt.Errorf("failed to find segment: %w", err)
	}

	return seg, nil
}

func (r *SegmentRepository) List(ctx context.Context, params domain.ListParams) ([]domain.CustomerSegment, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	var total int64
	if err := r.DB.WithContext(ctx).Model(&domain.CustomerSegment{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count segments: %w", err)
	}

	var items []domain.CustomerSegment
	err := r.DB.WithContext(ctx).
		Order("name ASC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list segments: %w", err)
	}

	return items, total, nil
}

func (r *SegmentRepository) ListAutoUpdate(ctx context.Context) ([]domain.CustomerSegment, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var items []domain.CustomerSegment
	err := r.DB.WithContext(ctx).
		Where("is_active = ? AND auto_update = ?", true, true).
		Order("name ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list auto-update segments: %w", err)
	}

	return items, nil
}

func (r *SegmentRepository) Update(ctx context.Context, seg *domain.CustomerSegment) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	updateData := map[string]interface{}{
		"name":        seg.Name,
		"description": seg.Description,
		"criteria":    seg.Criteria,
		"is_active":   seg.IsActive,
		"auto_update": seg.AutoUpdate,
	}

	result := r.DB.WithContext(ctx).Model(&domain.CustomerSegment{}).Where("id = ?", seg.ID).Updates(updateData)
	if result.Error != nil {
		return fmt.Errorf("failed to update segment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("segment", seg.ID.String())
	}

	return nil
}

func (r *SegmentRepository) UpdateStats(ctx context.Context, id uuid.UUID, count int64, calculatedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Model(&domain.CustomerSegment{}).Where("id = ?", id).Updates(map[string]interface{}{
		"customer_count":     count,
		"last_calculated_at": calculatedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to update segment stats: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFoundError("segment", id.String())
	}

	return nil
}

// Delete removes the segment together with its memberships.
func (r *SegmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("segment_id = ?", id).Delete(&domain.SegmentMember{}).Error; err != nil {
			return fmt.Errorf("failed to delete segment members: %w", err)
		}
		result := tx.Delete(&domain.CustomerSegment{}, "id = ?", id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete segment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NotFoundError("segment", id.String())
		}
		return nil
	})
}

// ---- Members ----

func (r *SegmentRepository) ListMemberIDs(ctx context.Context, segmentID uuid.UUID) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var ids []string
	err := r.DB.WithContext(ctx).
		Model(&domain.SegmentMember{}).
		Where("segment_id = ?", segmentID).
		Pluck("person_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list member ids: %w", err)
	}

	return ids, nil
}

func (r *SegmentRepository) ListMembers(ctx context.Context, segmentID uuid.UUID, params domain.ListParams) ([]domain.SegmentMember, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, fmt.Errorf("context error: %w", err)
	}
	params = params.Normalize()

	q := r.DB.WithContext(ctx).Model(&domain.SegmentMember{}).Where("segment_id = ?", segmentID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count members: %w", err)
	}

	var items []domain.SegmentMember
	err := q.Order("added_at ASC, person_id ASC").
		Offset(params.Offset).
		Limit(params.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list members: %w", err)
	}

	return items, total, nil
}

const memberBatchSize = 500

// AddMembers ignores people who are already members.
func (r *SegmentRepository) AddMembers(ctx context.Context, segmentID uuid.UUID, personIDs []string, addedAt time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(personIDs) == 0 {
		return nil
	}

	rows := make([]domain.SegmentMember, 0, len(personIDs))
	for _, pid := range personIDs {
		rows = append(rows, domain.SegmentMember{SegmentID: segmentID, PersonID: pid, AddedAt: addedAt})
	}

	err := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		CreateInBatches(rows, memberBatchSize).Error
	if err != nil {
		return fmt.Errorf("failed to add segment members: %w", err)
	}

	return nil
}

func (r *SegmentRepository) RemoveMembers(ctx context.Context, segmentID uuid.UUID, personIDs []string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if len(personIDs) == 0 {
		return nil
	}

	err := r.DB.WithContext(ctx).
		Where("segment_id = ? AND person_id IN ?", segmentID, personIDs).
		Delete(&domain.SegmentMember{}).Error
	if err != nil {
		return fmt.Errorf("failed to remove segment members: %w", err)
	}

	return nil
}
