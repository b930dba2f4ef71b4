package models

import "time"

// Email processing statuses
const (
	StatusPending   = "pending"   // stored, not yet evaluated
	StatusProcessed = "processed" // evaluated, not a duplicate
	StatusDuplicate = "duplicate" // linked to an earlier primary email
)

// InboundEmail represents a stored inbound email
type InboundEmail struct {
	ID               int64     `db:"id"`
	MessageID        string    `db:"message_id"`        // RFC 5322 Message-ID header
	Sender           string    `db:"sender"`            // Sender email address
	Subject          string    `db:"subject"`           // Raw subject
	BodyText         string    `db:"body_text"`         // Plain text body
	BodyHTML         string    `db:"body_html"`         // Original HTML body
	ReceivedAt       time.Time `db:"received_at"`       // When email was received
	Status           string    `db:"status"`            // pending / processed / duplicate
	ContentHash      string    `db:"content_hash"`      // Subject-agnostic content digest
	MessageSignature string    `db:"message_signature"` // Core-message fingerprint, may be empty
	CreatedAt        time.Time `db:"created_at"`
}

// NormalizedEmail is the canonical form of an email used for pattern
// matching and duplicate detection. Derived once per email, never persisted
// beyond its hash and signature.
type NormalizedEmail struct {
	EmailID           int64
	Sender            string
	Subject           string
	Body              string
	NormalizedSender  string
	NormalizedSubject string
	NormalizedBody    string // volatile tokens stripped
	ContentHash       string
	MessageSignature  string
	ReceivedAt        time.Time
}
