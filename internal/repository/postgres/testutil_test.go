//go:build !integration

package postgres

import (
	"context"
	"testing"
	"time"

	"myGreenInsight/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

func newTestDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormLogger.Default.LogMode(gormLogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		tb.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = sqlDB.Close() })

	if err := AutoMigrate(db); err != nil {
		tb.Fatalf("migrate: %v", err)
	}
	if err := db.AutoMigrate(&domain.Session{}, &domain.Campaign{}, &personRow{}); err != nil {
		tb.Fatalf("migrate directory tables: %v", err)
	}
	return db
}

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func hoursAfter(h int) time.Time {
	return day0.Add(time.Duration(h) * time.Hour)
}

func seedConversion(tb testing.TB, ctx context.Context, db *gorm.DB, personID string, typ domain.ConversionType, value float64, at time.Time) *domain.Conversion {
	tb.Helper()
	c := &domain.Conversion{
		ID:             uuid.New(),
		ConversionType: typ,
		VisitorID:      "v-" + personID,
		PersonID:       personID,
		Value:          &value,
		Currency:       "USD",
		Platform:       domain.PlatformDirect,
		ConvertedAt:    at,
	}
	if err := db.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed conversion: %v", err)
	}
	return c
}

func seedPerson(tb testing.TB, ctx context.Context, db *gorm.DB, id, email string, tags []string) {
	tb.Helper()
	row := personRow{
		ID:       id,
		Tags:     datatypes.JSONSlice[string](tags),
		Metadata: datatypes.JSONMap{"plan": "pro"},
	}
	row.Email.String, row.Email.Valid = email, email != ""
	row.CreatedAt.Time, row.CreatedAt.Valid = day0, true
	if err := db.WithContext(ctx).Create(&row).Error; err != nil {
		tb.Fatalf("seed person: %v", err)
	}
}
