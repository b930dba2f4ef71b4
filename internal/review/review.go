package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hostwatch/mailsift/internal/database"
	"github.com/hostwatch/mailsift/pkg/models"
)

// Reviewer applies human decisions to pending suggestions and assignments.
// Categories only come into existence through an explicit approval here or
// through seeding; the engine itself never creates one.
type Reviewer struct {
	db     *database.DB
	logger *slog.Logger
}

// New creates a new reviewer
func New(db *database.DB, logger *slog.Logger) *Reviewer {
	return &Reviewer{
		db:     db,
		logger: logger.With("component", "review"),
	}
}

// Approve turns a pending suggestion into a real category with the pattern
// the generator synthesized, and manually assigns the sample emails to it.
// The suggestion's confidence becomes the category's threshold; auto-assign
// stays off until a human enables it.
func (r *Reviewer) Approve(ctx context.Context, suggestionID int64) (*models.Category, error) {
	s, err := r.db.GetSuggestionByID(ctx, suggestionID)
	if err != nil {
		return nil, fmt.Errorf("load suggestion: %w", err)
	}
	if s.Status != models.SuggestionPending {
		return nil, fmt.Errorf("suggestion %d is %s, not pending", suggestionID, s.Status)
	}

	var analysis models.SuggestionAnalysis
	if err := json.Unmarshal([]byte(s.PatternAnalysis), &analysis); err != nil {
		return nil, fmt.Errorf("decode pattern analysis: %w", err)
	}

	category := &models.Category{
		Name:                s.SuggestedName,
		Description:         s.Description,
		ConfidenceThreshold: s.SuggestionConfidence,
		AutoAssign:          false,
		IsActive:            true,
	}
	if err := r.db.CreateCategory(ctx, category); err != nil {
		if errors.Is(err, database.ErrAlreadyExists) {
			return nil, fmt.Errorf("category %q already exists", s.SuggestedName)
		}
		return nil, fmt.Errorf("create category: %w", err)
	}

	pattern := &models.CategoryPattern{
		CategoryID:   category.ID,
		PatternType:  analysis.PatternType,
		PatternRegex: analysis.Regex,
		Weight:       1.0,
		IsActive:     true,
	}
	if err := r.db.CreatePattern(ctx, pattern); err != nil {
		return nil, fmt.Errorf("create pattern: %w", err)
	}

	// The samples that motivated the suggestion get assigned up front
	var sampleIDs []int64
	if err := json.Unmarshal([]byte(s.SampleEmailIDs), &sampleIDs); err != nil {
		return nil, fmt.Errorf("decode sample email ids: %w", err)
	}
	assigned := 0
	for _, emailID := range sampleIDs {
		a := &models.CategoryAssignment{
			EmailID:         emailID,
			CategoryID:      category.ID,
			ConfidenceScore: s.SuggestionConfidence,
			Method:          models.MethodManual,
		}
		err := r.db.CreateAssignment(ctx, a)
		if err != nil && !errors.Is(err, database.ErrAlreadyExists) {
			return nil, fmt.Errorf("assign sample email %d: %w", emailID, err)
		}
		if err == nil {
			assigned++
		}
	}

	if err := r.db.UpdateSuggestionStatus(ctx, suggestionID, models.SuggestionApproved); err != nil {
		return nil, fmt.Errorf("update suggestion status: %w", err)
	}

	r.logger.Info("suggestion approved",
		"suggestion_id", suggestionID,
		"category", category.Name,
		"category_id", category.ID,
		"samples_assigned", assigned,
	)
	return category, nil
}

// Reject marks a pending suggestion as rejected
func (r *Reviewer) Reject(ctx context.Context, suggestionID int64) error {
	s, err := r.db.GetSuggestionByID(ctx, suggestionID)
	if err != nil {
		return fmt.Errorf("load suggestion: %w", err)
	}
	if s.Status != models.SuggestionPending {
		return fmt.Errorf("suggestion %d is %s, not pending", suggestionID, s.Status)
	}
	if err := r.db.UpdateSuggestionStatus(ctx, suggestionID, models.SuggestionRejected); err != nil {
		return fmt.Errorf("update suggestion status: %w", err)
	}
	r.logger.Info("suggestion rejected", "suggestion_id", suggestionID)
	return nil
}

// Merge folds a pending suggestion into an existing category instead of
// creating a new one: the sample emails get manual assignments in the target
// and the suggestion is closed as merged.
func (r *Reviewer) Merge(ctx context.Context, suggestionID, targetCategoryID int64) error {
	s, err := r.db.GetSuggestionByID(ctx, suggestionID)
	if err != nil {
		return fmt.Errorf("load suggestion: %w", err)
	}
	if s.Status != models.SuggestionPending {
		return fmt.Errorf("suggestion %d is %s, not pending", suggestionID, s.Status)
	}

	target, err := r.db.GetCategoryByID(ctx, targetCategoryID)
	if err != nil {
		return fmt.Errorf("load target category: %w", err)
	}

	var sampleIDs []int64
	if err := json.Unmarshal([]byte(s.SampleEmailIDs), &sampleIDs); err != nil {
		return fmt.Errorf("decode sample email ids: %w", err)
	}
	for _, emailID := range sampleIDs {
		a := &models.CategoryAssignment{
			EmailID:         emailID,
			CategoryID:      target.ID,
			ConfidenceScore: s.SuggestionConfidence,
			Method:          models.MethodManual,
		}
		err := r.db.CreateAssignment(ctx, a)
		if err != nil && !errors.Is(err, database.ErrAlreadyExists) {
			return fmt.Errorf("assign sample email %d: %w", emailID, err)
		}
	}

	if err := r.db.UpdateSuggestionStatus(ctx, suggestionID, models.SuggestionMerged); err != nil {
		return fmt.Errorf("update suggestion status: %w", err)
	}

	r.logger.Info("suggestion merged",
		"suggestion_id", suggestionID,
		"target_category", target.Name,
	)
	return nil
}

// Reassign overrides an email's categorization with a manual assignment to
// the given category
func (r *Reviewer) Reassign(ctx context.Context, emailID, categoryID int64) error {
	if _, err := r.db.GetEmailByID(ctx, emailID); err != nil {
		return fmt.Errorf("load email: %w", err)
	}
	if _, err := r.db.GetCategoryByID(ctx, categoryID); err != nil {
		return fmt.Errorf("load category: %w", err)
	}
	if err := r.db.ReassignEmail(ctx, emailID, categoryID); err != nil {
		return err
	}
	r.logger.Info("email reassigned", "email_id", emailID, "category_id", categoryID)
	return nil
}

// Unlink reverses a false-positive duplicate verdict: the link is removed
// and the email returns to processed status so it can be categorized again
func (r *Reviewer) Unlink(ctx context.Context, duplicateEmailID int64) error {
	if err := r.db.UnlinkDuplicate(ctx, duplicateEmailID); err != nil {
		return err
	}
	r.logger.Info("duplicate link removed", "email_id", duplicateEmailID)
	return nil
}
