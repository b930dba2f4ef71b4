package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hostwatch/mailsift/internal/normalizer"
	"github.com/hostwatch/mailsift/pkg/models"
)

// FeedbackStore is what feedback recording needs from storage
type FeedbackStore interface {
	GetEmailByID(ctx context.Context, id int64) (*models.InboundEmail, error)
	ListActiveCategories(ctx context.Context) ([]models.CategoryWithPatterns, error)
	RecordPatternOutcome(ctx context.Context, id int64, confirmed bool) error
}

// Feedback folds human confirmation or rejection of an assignment back into
// the counters of the patterns that produced it. Counters only inform review
// priority; a pattern is never deactivated automatically.
type Feedback struct {
	store  FeedbackStore
	scorer *Scorer
	norm   *normalizer.Normalizer
	logger *slog.Logger
}

// NewFeedback creates a new feedback recorder
func NewFeedback(store FeedbackStore, scorer *Scorer, logger *slog.Logger) *Feedback {
	return &Feedback{
		store:  store,
		scorer: scorer,
		norm:   normalizer.New(),
		logger: logger.With("component", "feedback"),
	}
}

// Record re-scores the email against the category to recover which patterns
// matched, then updates each one's usage count and running success rate.
func (f *Feedback) Record(ctx context.Context, emailID, categoryID int64, confirmed bool) error {
	email, err := f.store.GetEmailByID(ctx, emailID)
	if err != nil {
		return fmt.Errorf("load email: %w", err)
	}

	categories, err := f.store.ListActiveCategories(ctx)
	if err != nil {
		return fmt.Errorf("load categories: %w", err)
	}

	var patterns []models.CategoryPattern
	for _, cwp := range categories {
		if cwp.Category.ID == categoryID {
			patterns = cwp.Patterns
			break
		}
	}
	if patterns == nil {
		return fmt.Errorf("category %d not found or inactive", categoryID)
	}

	result := f.scorer.Score(f.norm.Normalize(email), patterns)
	for _, p := range result.Matched {
		if err := f.store.RecordPatternOutcome(ctx, p.ID, confirmed); err != nil {
			return fmt.Errorf("record outcome for pattern %d: %w", p.ID, err)
		}
	}

	f.logger.Info("feedback recorded",
		"email_id", emailID,
		"category_id", categoryID,
		"confirmed", confirmed,
		"patterns_updated", len(result.Matched),
	)
	return nil
}
