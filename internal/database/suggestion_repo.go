package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hostwatch/mailsift/pkg/models"
)

// CreateSuggestion stores a new category suggestion for human review
func (db *DB) CreateSuggestion(ctx context.Context, s *models.CategorySuggestion) error {
	query := `
		INSERT INTO category_suggestions (suggested_name, description, sample_email_ids, pattern_analysis, suggestion_confidence, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	if s.Status == "" {
		s.Status = models.SuggestionPending
	}
	result, err := db.ExecContext(ctx, query,
		s.SuggestedName,
		s.Description,
		s.SampleEmailIDs,
		s.PatternAnalysis,
		s.SuggestionConfidence,
		s.Status,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create suggestion: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	s.ID = id
	s.CreatedAt = now
	return nil
}

// GetSuggestionByID returns a suggestion by ID
func (db *DB) GetSuggestionByID(ctx context.Context, id int64) (*models.CategorySuggestion, error) {
	var s models.CategorySuggestion
	query := `SELECT * FROM category_suggestions WHERE id = ?`
	err := db.GetContext(ctx, &s, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get suggestion: %w", err)
	}
	return &s, nil
}

// ListPendingSuggestions returns pending suggestions, most confident first
func (db *DB) ListPendingSuggestions(ctx context.Context) ([]models.CategorySuggestion, error) {
	var suggestions []models.CategorySuggestion
	query := `
		SELECT * FROM category_suggestions
		WHERE status = ?
		ORDER BY suggestion_confidence DESC, created_at DESC
	`
	err := db.SelectContext(ctx, &suggestions, query, models.SuggestionPending)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	return suggestions, nil
}

// HasPendingSuggestionFor reports whether a pending suggestion with the same
// synthesized analysis already exists, to avoid re-proposing on every batch
func (db *DB) HasPendingSuggestionFor(ctx context.Context, analysis string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM category_suggestions WHERE status = ? AND pattern_analysis = ?`
	err := db.GetContext(ctx, &count, query, models.SuggestionPending, analysis)
	if err != nil {
		return false, fmt.Errorf("failed to check suggestion: %w", err)
	}
	return count > 0, nil
}

// UpdateSuggestionStatus moves a suggestion to a terminal review state
func (db *DB) UpdateSuggestionStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE category_suggestions SET status = ?, reviewed_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}
	return nil
}
