package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hostwatch/mailsift/pkg/models"
)

// CreateCategory creates a new category
func (db *DB) CreateCategory(ctx context.Context, c *models.Category) error {
	query := `
		INSERT OR IGNORE INTO categories (name, description, confidence_threshold, auto_assign, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		c.Name,
		c.Description,
		c.ConfidenceThreshold,
		c.AutoAssign,
		c.IsActive,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create category: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyExists
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

// GetCategoryByID returns a category by ID
func (db *DB) GetCategoryByID(ctx context.Context, id int64) (*models.Category, error) {
	var c models.Category
	query := `SELECT * FROM categories WHERE id = ?`
	err := db.GetContext(ctx, &c, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// GetCategoryByName returns a category by name
func (db *DB) GetCategoryByName(ctx context.Context, name string) (*models.Category, error) {
	var c models.Category
	query := `SELECT * FROM categories WHERE name = ?`
	err := db.GetContext(ctx, &c, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	return &c, nil
}

// ListActiveCategories returns all active categories with their active
// patterns, ordered by category id
func (db *DB) ListActiveCategories(ctx context.Context) ([]models.CategoryWithPatterns, error) {
	var categories []models.Category
	query := `SELECT * FROM categories WHERE is_active = true ORDER BY id`
	if err := db.SelectContext(ctx, &categories, query); err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}

	var patterns []models.CategoryPattern
	query = `
		SELECT cp.* FROM category_patterns cp
		JOIN categories c ON cp.category_id = c.id
		WHERE cp.is_active = true AND c.is_active = true
		ORDER BY cp.pattern_weight DESC, cp.success_rate DESC
	`
	if err := db.SelectContext(ctx, &patterns, query); err != nil {
		return nil, fmt.Errorf("failed to list patterns: %w", err)
	}

	byCategory := make(map[int64][]models.CategoryPattern)
	for _, p := range patterns {
		byCategory[p.CategoryID] = append(byCategory[p.CategoryID], p)
	}

	result := make([]models.CategoryWithPatterns, 0, len(categories))
	for _, c := range categories {
		result = append(result, models.CategoryWithPatterns{
			Category: c,
			Patterns: byCategory[c.ID],
		})
	}
	return result, nil
}

// CreatePattern adds a pattern to a category
func (db *DB) CreatePattern(ctx context.Context, p *models.CategoryPattern) error {
	query := `
		INSERT INTO category_patterns (category_id, pattern_type, pattern_regex, pattern_weight, success_rate, usage_count, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		p.CategoryID,
		p.PatternType,
		p.PatternRegex,
		p.Weight,
		p.SuccessRate,
		p.UsageCount,
		p.IsActive,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create pattern: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	p.ID = id
	p.CreatedAt = now
	return nil
}

// GetPatternByID returns a pattern by ID
func (db *DB) GetPatternByID(ctx context.Context, id int64) (*models.CategoryPattern, error) {
	var p models.CategoryPattern
	query := `SELECT * FROM category_patterns WHERE id = ?`
	err := db.GetContext(ctx, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern: %w", err)
	}
	return &p, nil
}

// SetPatternActive sets the active flag of a pattern
func (db *DB) SetPatternActive(ctx context.Context, id int64, active bool) error {
	query := `UPDATE category_patterns SET is_active = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, active, id)
	if err != nil {
		return fmt.Errorf("failed to set pattern active: %w", err)
	}
	return nil
}

// RecordPatternOutcome folds one confirmation or rejection into a pattern's
// counters. The running success rate and the usage count are recomputed in a
// single statement so concurrent passes cannot lose updates.
func (db *DB) RecordPatternOutcome(ctx context.Context, id int64, confirmed bool) error {
	outcome := 0.0
	if confirmed {
		outcome = 1.0
	}
	query := `
		UPDATE category_patterns
		SET success_rate = (success_rate * usage_count + ?) / (usage_count + 1),
		    usage_count = usage_count + 1
		WHERE id = ?
	`
	_, err := db.ExecContext(ctx, query, outcome, id)
	if err != nil {
		return fmt.Errorf("failed to record pattern outcome: %w", err)
	}
	return nil
}
