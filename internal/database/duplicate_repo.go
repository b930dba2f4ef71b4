package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hostwatch/mailsift/pkg/models"
)

// CreateDuplicateLink records that an email duplicates an earlier primary and
// marks the duplicate's status. A conflicting insert means an earlier pass
// already linked this email and is reported as ErrAlreadyExists.
func (db *DB) CreateDuplicateLink(ctx context.Context, l *models.DuplicateLink) error {
	if l.PrimaryEmailID == l.DuplicateEmailID {
		return fmt.Errorf("duplicate link must not be reflexive (email %d)", l.PrimaryEmailID)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	result, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO duplicate_links (primary_email_id, duplicate_email_id, similarity_score, duplicate_type, detection_method, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		l.PrimaryEmailID,
		l.DuplicateEmailID,
		l.SimilarityScore,
		l.DuplicateType,
		l.DetectionMethod,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create duplicate link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrAlreadyExists
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE emails SET status = ? WHERE id = ?`,
		models.StatusDuplicate, l.DuplicateEmailID); err != nil {
		return fmt.Errorf("failed to mark email duplicate: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit duplicate link: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	l.ID = id
	l.CreatedAt = now
	return nil
}

// GetDuplicateLink returns the link where the given email is the duplicate
func (db *DB) GetDuplicateLink(ctx context.Context, duplicateEmailID int64) (*models.DuplicateLink, error) {
	var l models.DuplicateLink
	query := `SELECT * FROM duplicate_links WHERE duplicate_email_id = ?`
	err := db.GetContext(ctx, &l, query, duplicateEmailID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get duplicate link: %w", err)
	}
	return &l, nil
}

// UnlinkDuplicate removes a duplicate link by manual override and restores
// the email to processed status
func (db *DB) UnlinkDuplicate(ctx context.Context, duplicateEmailID int64) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM duplicate_links WHERE duplicate_email_id = ?`, duplicateEmailID)
	if err != nil {
		return fmt.Errorf("failed to delete duplicate link: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE emails SET status = ? WHERE id = ?`,
		models.StatusProcessed, duplicateEmailID); err != nil {
		return fmt.Errorf("failed to restore email status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit unlink: %w", err)
	}
	return nil
}
