package database

const schema = `
CREATE TABLE IF NOT EXISTS emails (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    message_id TEXT NOT NULL DEFAULT '',
    sender TEXT NOT NULL,
    subject TEXT,
    body_text TEXT,
    body_html TEXT,
    received_at DATETIME NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    content_hash TEXT NOT NULL DEFAULT '',
    message_signature TEXT NOT NULL DEFAULT '',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_emails_message_id
    ON emails(message_id) WHERE message_id != '';

CREATE TABLE IF NOT EXISTS categories (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT,
    confidence_threshold REAL NOT NULL DEFAULT 0.85,
    auto_assign BOOLEAN NOT NULL DEFAULT true,
    is_active BOOLEAN NOT NULL DEFAULT true,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(name)
);

CREATE TABLE IF NOT EXISTS category_patterns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    pattern_type TEXT NOT NULL,
    pattern_regex TEXT NOT NULL,
    pattern_weight REAL NOT NULL,
    success_rate REAL NOT NULL DEFAULT 0,
    usage_count INTEGER NOT NULL DEFAULT 0,
    is_active BOOLEAN NOT NULL DEFAULT true,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS category_assignments (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
    category_id INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
    confidence_score REAL NOT NULL,
    method TEXT NOT NULL,
    assigned_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(email_id, category_id)
);

CREATE TABLE IF NOT EXISTS duplicate_links (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    primary_email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
    duplicate_email_id INTEGER NOT NULL REFERENCES emails(id) ON DELETE CASCADE,
    similarity_score REAL NOT NULL,
    duplicate_type TEXT NOT NULL,
    detection_method TEXT NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(primary_email_id, duplicate_email_id),
    UNIQUE(duplicate_email_id)
);

CREATE TABLE IF NOT EXISTS category_suggestions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    suggested_name TEXT NOT NULL,
    description TEXT,
    sample_email_ids TEXT NOT NULL,
    pattern_analysis TEXT NOT NULL,
    suggestion_confidence REAL NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    reviewed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_emails_status ON emails(status);
CREATE INDEX IF NOT EXISTS idx_emails_hash ON emails(content_hash);
CREATE INDEX IF NOT EXISTS idx_emails_signature ON emails(message_signature);
CREATE INDEX IF NOT EXISTS idx_emails_sender_received ON emails(sender, received_at);
CREATE INDEX IF NOT EXISTS idx_patterns_category ON category_patterns(category_id);
CREATE INDEX IF NOT EXISTS idx_assignments_email ON category_assignments(email_id);
CREATE INDEX IF NOT EXISTS idx_assignments_category ON category_assignments(category_id);
CREATE INDEX IF NOT EXISTS idx_suggestions_status ON category_suggestions(status);
`
