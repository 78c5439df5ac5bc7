package postgres

import (
	"fmt"

	"myGreenInsight/domain"

	"gorm.io/gorm"
)

// OwnedModels are the tables this service writes. Sessions, campaigns and
// persons belong to the commerce platform and are never migrated here.
var OwnedModels = []interface{}{
	&domain.Conversion{},
	&domain.ConversionGoal{},
	&domain.CampaignAttribution{},
	&domain.CustomerJourneyEvent{},
	&domain.SentimentRecord{},
	&domain.CustomerScore{},
	&domain.NPSResponse{},
	&domain.CustomerSegment{},
	&domain.SegmentMember{},
	&domain.ABExperiment{},
	&domain.ExperimentVariant{},
	&domain.BudgetForecast{},
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(OwnedModels...); err != nil {
		return fmt.Errorf("failed to migrate: %w", err)
	}
	return nil
}
