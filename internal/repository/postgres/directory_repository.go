package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"myGreenInsight/business/attribution"
	"myGreenInsight/business/segment"
	"myGreenInsight/domain"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DirectoryRepository reads the session, campaign and person tables owned
// by the commerce platform. Nothing here writes.
type DirectoryRepository struct {
	DB *gorm.DB
}

var (
	_ attribution.SessionStore      = (*DirectoryRepository)(nil)
	_ attribution.CampaignDirectory = (*DirectoryRepository)(nil)
	_ segment.PersonDirectory       = (*DirectoryRepository)(nil)
)

func NewDirectoryRepository(db *gorm.DB) *DirectoryRepository {
	return &DirectoryRepository{DB: db}
}

func (r *DirectoryRepository) GetSession(ctx context.Context, sessionID string) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, fmt.Errorf("context error: %w", err)
	}

	var s domain.Session
	err := r.DB.WithContext(ctx).First(&s, "id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Session{}, domain.NotFoundError("session", sessionID)
		}
		return domain.Session{}, fmt.Errorf("failed to find session: %w", err)
	}

	return s, nil
}

func (r *DirectoryRepository) ListCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var campaigns []domain.Campaign
	if err := r.DB.WithContext(ctx).Order("name ASC").Find(&campaigns).Error; err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}

	return campaigns, nil
}

type personRow struct {
	ID        string                      `gorm:"column:id;primaryKey"`
	Email     sql.NullString              `gorm:"column:email"`
	FirstName sql.NullString              `gorm:"column:first_name"`
	LastName  sql.NullString              `gorm:"column:last_name"`
	CreatedAt sql.NullTime                `gorm:"column:created_at"`
	Tags      datatypes.JSONSlice[string] `gorm:"column:tags"`
	Metadata  datatypes.JSONMap           `gorm:"column:metadata"`
}

func (personRow) TableName() string {
	return "persons"
}

func (row personRow) toDomain() domain.Person {
	p := domain.Person{
		ID:        row.ID,
		Email:     row.Email.String,
		FirstName: row.FirstName.String,
		LastName:  row.LastName.String,
	}
	if row.CreatedAt.Valid {
		p.CreatedAt = row.CreatedAt.Time.UTC()
	}
	if row.Tags != nil {
		p.Tags = []string(row.Tags)
	}
	if row.Metadata != nil {
		p.Metadata = map[string]any(row.Metadata)
	}
	return p
}

func (r *DirectoryRepository) GetPerson(ctx context.Context, personID string) (domain.Person, error) {
	if err := ctx.Err(); err != nil {
		return domain.Person{}, fmt.Errorf("context error: %w", err)
	}

	var row personRow
	err := r.DB.WithContext(ctx).First(&row, "id = ?", personID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Person{}, domain.NotFoundError("person", personID)
		}
		return domain.Person{}, fmt.Errorf("failed to find person: %w", err)
	}

	return row.toDomain(), nil
}

func (r *DirectoryRepository) ListPersons(ctx context.Context) ([]domain.Person, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []personRow
	if err := r.DB.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list persons: %w", err)
	}

	persons := make([]domain.Person, 0, len(rows))
	for _, row := range rows {
		persons = append(persons, row.toDomain())
	}

	return persons, nil
}
