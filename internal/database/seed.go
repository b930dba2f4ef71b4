package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/hostwatch/mailsift/pkg/models"
)

type seedPattern struct {
	patternType string
	regex       string
	weight      float64
}

type seedCategory struct {
	name        string
	description string
	threshold   float64
	autoAssign  bool
	patterns    []seedPattern
}

// Default rule set for a car-rental marketplace mailbox. Weights are additive
// per category and capped at 1.0 by the scorer.
var seedCategories = []seedCategory{
	{
		name:        "guest_messages",
		description: "Messages from guests about vehicles",
		threshold:   0.90,
		autoAssign:  true,
		patterns: []seedPattern{
			{models.PatternSubject, `has sent you a message about your`, 1.00},
			{models.PatternBody, `has sent you a message about your`, 0.90},
		},
	},
	{
		name:        "trip_bookings",
		description: "New trip booking confirmations",
		threshold:   0.85,
		autoAssign:  true,
		patterns: []seedPattern{
			{models.PatternSubject, `trip.*is booked`, 0.95},
			{models.PatternBody, `trip is booked`, 0.90},
			{models.PatternBody, `cha-ching`, 0.85},
		},
	},
	{
		name:        "vehicle_returns",
		description: "Vehicle return notifications",
		threshold:   0.85,
		autoAssign:  true,
		patterns: []seedPattern{
			{models.PatternSubject, `has returned`, 0.95},
			{models.PatternBody, `has returned`, 0.90},
		},
	},
	{
		name:        "ratings_reviews",
		description: "Trip rating and review notifications",
		threshold:   0.80,
		autoAssign:  true,
		patterns: []seedPattern{
			{models.PatternSubject, `just rated.*trip`, 0.95},
			{models.PatternBody, `rate.*trip`, 0.50},
			{models.PatternBody, `write a review`, 0.45},
		},
	},
	{
		name:        "trip_modifications",
		description: "Trip change requests and confirmations",
		threshold:   0.85,
		autoAssign:  true,
		patterns: []seedPattern{
			{models.PatternSubject, `change request`, 0.95},
			{models.PatternSubject, `confirmed.*change`, 0.95},
			{models.PatternBody, `requested a change`, 0.90},
		},
	},
	{
		name:        "additional_drivers",
		description: "Additional driver notifications",
		threshold:   0.85,
		autoAssign:  true,
		patterns: []seedPattern{
			{models.PatternSubject, `added.*driver`, 0.95},
			{models.PatternBody, `added.*driver`, 0.90},
		},
	},
	{
		name:        "license_verification",
		description: "License verification reminders",
		threshold:   0.85,
		autoAssign:  true,
		patterns: []seedPattern{
			{models.PatternSubject, `confirm.*license`, 0.95},
			{models.PatternBody, `confirm.*license`, 0.90},
		},
	},
	{
		name:        "payments_payouts",
		description: "Payment and payout notifications",
		threshold:   0.80,
		autoAssign:  true,
		patterns: []seedPattern{
			{models.PatternCombined, `payment.*received`, 0.90},
			{models.PatternCombined, `payout`, 0.45},
			{models.PatternCombined, `earnings`, 0.40},
		},
	},
}

// Seed installs the default categories and patterns. Categories that already
// exist are left untouched, so re-running is safe.
func (db *DB) Seed(ctx context.Context) (int, error) {
	created := 0
	for _, sc := range seedCategories {
		category := &models.Category{
			Name:                sc.name,
			Description:         sc.description,
			ConfidenceThreshold: sc.threshold,
			AutoAssign:          sc.autoAssign,
			IsActive:            true,
		}
		err := db.CreateCategory(ctx, category)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed category %q: %w", sc.name, err)
		}

		for _, sp := range sc.patterns {
			pattern := &models.CategoryPattern{
				CategoryID:   category.ID,
				PatternType:  sp.patternType,
				PatternRegex: sp.regex,
				Weight:       sp.weight,
				IsActive:     true,
			}
			if err := db.CreatePattern(ctx, pattern); err != nil {
				return created, fmt.Errorf("failed to seed pattern for %q: %w", sc.name, err)
			}
		}
		created++
	}
	return created, nil
}
