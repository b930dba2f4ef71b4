package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hostwatch/mailsift/pkg/models"
)

// CreateEmail inserts a new inbound email (ignores if the Message-ID is
// already stored)
func (db *DB) CreateEmail(ctx context.Context, e *models.InboundEmail) error {
	query := `
		INSERT OR IGNORE INTO emails (message_id, sender, subject, body_text, body_html, received_at, status, content_hash, message_signature, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	if e.Status == "" {
		e.Status = models.StatusPending
	}
	result, err := db.ExecContext(ctx, query,
		e.MessageID,
		e.Sender,
		e.Subject,
		e.BodyText,
		e.BodyHTML,
		e.ReceivedAt,
		e.Status,
		e.ContentHash,
		e.MessageSignature,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create email: %w", err)
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

	e.ID = id
	e.CreatedAt = now
	return nil
}

// GetEmailByID returns an email by ID
func (db *DB) GetEmailByID(ctx context.Context, id int64) (*models.InboundEmail, error) {
	var e models.InboundEmail
	query := `SELECT * FROM emails WHERE id = ?`
	err := db.GetContext(ctx, &e, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get email: %w", err)
	}
	return &e, nil
}

// ListPendingEmails returns unevaluated emails, oldest received first
func (db *DB) ListPendingEmails(ctx context.Context, limit int) ([]models.InboundEmail, error) {
	var emails []models.InboundEmail
	query := `SELECT * FROM emails WHERE status = ? ORDER BY received_at, id LIMIT ?`
	err := db.SelectContext(ctx, &emails, query, models.StatusPending, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending emails: %w", err)
	}
	return emails, nil
}

// ListUncategorizedEmails returns processed, non-duplicate emails without any
// category assignment. Input population for the suggestion generator.
func (db *DB) ListUncategorizedEmails(ctx context.Context, limit int) ([]models.InboundEmail, error) {
	var emails []models.InboundEmail
	query := `
		SELECT e.* FROM emails e
		LEFT JOIN category_assignments ca ON e.id = ca.email_id
		WHERE e.status = ? AND ca.id IS NULL
		ORDER BY e.received_at, e.id
		LIMIT ?
	`
	err := db.SelectContext(ctx, &emails, query, models.StatusProcessed, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list uncategorized emails: %w", err)
	}
	return emails, nil
}

// UpdateEmailStatus sets the processing status of an email
func (db *DB) UpdateEmailStatus(ctx context.Context, id int64, status string) error {
	query := `UPDATE emails SET status = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update email status: %w", err)
	}
	return nil
}

// SetEmailFingerprint stores the normalized content hash and message
// signature so later passes can match against them via the indexes
func (db *DB) SetEmailFingerprint(ctx context.Context, id int64, contentHash, signature string) error {
	query := `UPDATE emails SET content_hash = ?, message_signature = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query, contentHash, signature, id)
	if err != nil {
		return fmt.Errorf("failed to set email fingerprint: %w", err)
	}
	return nil
}

// FindEmailsByContentHash returns earlier-processed emails with the same
// content hash, earliest received first
func (db *DB) FindEmailsByContentHash(ctx context.Context, hash string, excludeID int64) ([]models.InboundEmail, error) {
	if hash == "" {
		return nil, nil
	}
	var emails []models.InboundEmail
	query := `
		SELECT * FROM emails
		WHERE content_hash = ? AND id != ? AND status != ?
		ORDER BY received_at, id
	`
	err := db.SelectContext(ctx, &emails, query, hash, excludeID, models.StatusDuplicate)
	if err != nil {
		return nil, fmt.Errorf("failed to find emails by content hash: %w", err)
	}
	return emails, nil
}

// FindEmailsBySignature returns earlier-processed emails with the same
// non-empty message signature, earliest received first
func (db *DB) FindEmailsBySignature(ctx context.Context, signature string, excludeID int64) ([]models.InboundEmail, error) {
	if signature == "" {
		return nil, nil
	}
	var emails []models.InboundEmail
	query := `
		SELECT * FROM emails
		WHERE message_signature = ? AND id != ? AND status != ?
		ORDER BY received_at, id
	`
	err := db.SelectContext(ctx, &emails, query, signature, excludeID, models.StatusDuplicate)
	if err != nil {
		return nil, fmt.Errorf("failed to find emails by signature: %w", err)
	}
	return emails, nil
}

// RecentEmailsBySender returns non-duplicate emails from the same sender
// received since the given time. Candidate set for similarity scoring.
func (db *DB) RecentEmailsBySender(ctx context.Context, sender string, since time.Time, excludeID int64, limit int) ([]models.InboundEmail, error) {
	var emails []models.InboundEmail
	query := `
		SELECT * FROM emails
		WHERE sender = ? AND received_at >= ? AND id != ? AND status != ?
		ORDER BY received_at DESC, id DESC
		LIMIT ?
	`
	err := db.SelectContext(ctx, &emails, query, sender, since, excludeID, models.StatusDuplicate, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to find recent emails by sender: %w", err)
	}
	return emails, nil
}
