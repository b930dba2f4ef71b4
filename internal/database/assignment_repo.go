package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hostwatch/mailsift/pkg/models"
)

// CreateAssignment links an email to a category. A conflicting insert on the
// (email, category) pair means an earlier pass already applied it and is
// reported as ErrAlreadyExists, which callers treat as success.
func (db *DB) CreateAssignment(ctx context.Context, a *models.CategoryAssignment) error {
	query := `
		INSERT OR IGNORE INTO category_assignments (email_id, category_id, confidence_score, method, assigned_at)
		VALUES (?, ?, ?, ?, ?)
	`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		a.EmailID,
		a.CategoryID,
		a.ConfidenceScore,
		a.Method,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create assignment: %w", err)
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

	a.ID = id
	a.AssignedAt = now
	return nil
}

// GetAssignment returns the assignment for an (email, category) pair
func (db *DB) GetAssignment(ctx context.Context, emailID, categoryID int64) (*models.CategoryAssignment, error) {
	var a models.CategoryAssignment
	query := `SELECT * FROM category_assignments WHERE email_id = ? AND category_id = ?`
	err := db.GetContext(ctx, &a, query, emailID, categoryID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return &a, nil
}

// ListAssignmentsByEmail returns all assignments for an email
func (db *DB) ListAssignmentsByEmail(ctx context.Context, emailID int64) ([]models.CategoryAssignment, error) {
	var assignments []models.CategoryAssignment
	query := `SELECT * FROM category_assignments WHERE email_id = ? ORDER BY confidence_score DESC, category_id`
	err := db.SelectContext(ctx, &assignments, query, emailID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// ReassignEmail moves an email's assignments to another category as a manual
// override. Existing assignments for the target category are left in place.
func (db *DB) ReassignEmail(ctx context.Context, emailID, targetCategoryID int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Drop old assignments, then insert the manual one. INSERT OR IGNORE
	// keeps this idempotent when the target assignment already exists.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM category_assignments WHERE email_id = ? AND category_id != ?`,
		emailID, targetCategoryID); err != nil {
		return fmt.Errorf("failed to clear assignments: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO category_assignments (email_id, category_id, confidence_score, method, assigned_at)
		VALUES (?, ?, 1.0, ?, ?)`,
		emailID, targetCategoryID, models.MethodManual, time.Now()); err != nil {
		return fmt.Errorf("failed to reassign email: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE category_assignments SET method = ? WHERE email_id = ? AND category_id = ?`,
		models.MethodManual, emailID, targetCategoryID); err != nil {
		return fmt.Errorf("failed to mark assignment manual: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reassignment: %w", err)
	}
	return nil
}
