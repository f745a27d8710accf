package database

import (
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"comment-dashboard/internal/domain/comments"
	"comment-dashboard/internal/domain/entitlements"
	"comment-dashboard/internal/domain/plans"
	"comment-dashboard/internal/domain/users"
)

func InitDB(dsn string) *gorm.DB {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := db.AutoMigrate(
		&users.User{},
		&plans.Plan{},
		&entitlements.Entitlement{},
		&entitlements.CustomerLink{},
		&entitlements.WebhookEvent{},
		&comments.YouTubeComment{},
	); err != nil {
		log.Fatal().Err(err).Msg("AutoMigrate error")
	}

	log.Info().Msg("Connected and migrated successfully")
	return db
}

// SeedPlans ensures the catalog's reference rows exist. A plan named "free"
// is a deployment-time invariant: downgrade paths resolve it by name, so its
// absence is fatal here rather than discovered per-request.
func SeedPlans(db *gorm.DB, proPriceID string) {
	seed := []plans.Plan{
		{
			Name:        plans.FreePlanName,
			DisplayName: "Free",
			PriceCents:  0,
			IsPremium:   false,
			Description: "Browse comments and basic charts.",
		},
		{
			Name:          "pro",
			DisplayName:   "Pro",
			PriceCents:    980,
			IsPremium:     true,
			StripePriceID: proPriceID,
			Description:   "Premium reports and data export.",
		},
	}

	for _, p := range seed {
		var existing plans.Plan
		err := db.Where("name = ?", p.Name).First(&existing).Error
		if err == nil {
			continue
		}
		if err := db.Create(&p).Error; err != nil {
			log.Fatal().Err(err).Str("plan", p.Name).Msg("Failed to seed plan")
		}
		log.Info().Str("plan", p.Name).Msg("Seeded plan")
	}

	var free plans.Plan
	if err := db.Where("name = ?", plans.FreePlanName).First(&free).Error; err != nil {
		log.Fatal().Err(err).Msg("Catalog has no free plan after seeding")
	}
}
