package database

import (
	"context"
	"fmt"

	"github.com/hostwatch/mailsift/pkg/models"
)

// CategoryCount is a per-category rollup of assignments
type CategoryCount struct {
	Name          string  `db:"name"`
	EmailCount    int64   `db:"email_count"`
	AvgConfidence float64 `db:"avg_confidence"`
}

// Summary aggregates processing state across the mailbox
type Summary struct {
	TotalEmails   int64
	Pending       int64
	Categorized   int64
	Uncategorized int64
	Duplicates    int64
	Categories    []CategoryCount
}

// GetSummary returns counts per status and per category
func (db *DB) GetSummary(ctx context.Context) (*Summary, error) {
	s := &Summary{}

	query := `
		SELECT
			COUNT(*) AS total,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS pending,
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS duplicates
		FROM emails
	`
	row := db.QueryRowxContext(ctx, query, models.StatusPending, models.StatusDuplicate)
	var pending, duplicates *int64
	if err := row.Scan(&s.TotalEmails, &pending, &duplicates); err != nil {
		return nil, fmt.Errorf("failed to count emails: %w", err)
	}
	if pending != nil {
		s.Pending = *pending
	}
	if duplicates != nil {
		s.Duplicates = *duplicates
	}

	query = `SELECT COUNT(DISTINCT email_id) FROM category_assignments`
	if err := db.GetContext(ctx, &s.Categorized, query); err != nil {
		return nil, fmt.Errorf("failed to count categorized emails: %w", err)
	}
	s.Uncategorized = s.TotalEmails - s.Pending - s.Duplicates - s.Categorized
	if s.Uncategorized < 0 {
		s.Uncategorized = 0
	}

	query = `
		SELECT c.name, COUNT(ca.id) AS email_count, COALESCE(AVG(ca.confidence_score), 0) AS avg_confidence
		FROM categories c
		LEFT JOIN category_assignments ca ON c.id = ca.category_id
		GROUP BY c.id, c.name
		ORDER BY email_count DESC, c.name
	`
	if err := db.SelectContext(ctx, &s.Categories, query); err != nil {
		return nil, fmt.Errorf("failed to count per-category: %w", err)
	}

	return s, nil
}
