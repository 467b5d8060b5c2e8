package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/go-sql-driver/mysql"
	"github.com/mikey/phishing-scanner/internal/core"
	"go.uber.org/zap"
)

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS recipients (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		email_hash VARCHAR(64) NOT NULL UNIQUE,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS email_events (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		recipient_id BIGINT NOT NULL,
		sender_domain VARCHAR(255) NOT NULL,
		is_forwarded BOOLEAN NOT NULL DEFAULT FALSE,
		received_at DATETIME NOT NULL,
		message_id_hash VARCHAR(64) UNIQUE,
		INDEX idx_email_events_recipient (recipient_id, received_at)
	)`,
	`CREATE TABLE IF NOT EXISTS predictions (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		email_event_id BIGINT NOT NULL UNIQUE,
		model_version VARCHAR(255) NOT NULL,
		phishing_probability DOUBLE NOT NULL,
		predicted_label VARCHAR(32) NOT NULL,
		risk_level VARCHAR(16) NOT NULL,
		source VARCHAR(32) NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS trusted_domains (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		recipient_id BIGINT NOT NULL,
		domain VARCHAR(255) NOT NULL,
		reason VARCHAR(255) NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE KEY uq_trusted_domains (recipient_id, domain)
	)`,
}

// MySQLRepository is a MySQL implementation of the ScanRepository interface
type MySQLRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLRepository connects to MySQL and creates the schema
func NewMySQLRepository(dsn string, logger *zap.Logger) (*MySQLRepository, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	for _, stmt := range mysqlSchema {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create schema: %w", err)
		}
	}

	return &MySQLRepository{db: db, logger: logger}, nil
}

// FindRecipientByEmailHash looks up a registration by address hash
func (r *MySQLRepository) FindRecipientByEmailHash(ctx context.Context, emailHash string) (*core.Recipient, error) {
	var recipient core.Recipient
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email_hash, created_at
		FROM recipients
		WHERE email_hash = ?
	`, emailHash).Scan(&recipient.ID, &recipient.EmailHash, &recipient.CreatedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.ErrRecipientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query recipient: %w", err)
	}
	return &recipient, nil
}

// CreateRecipient registers a new recipient identity
func (r *MySQLRepository) CreateRecipient(ctx context.Context, emailHash string) (*core.Recipient, error) {
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO recipients (email_hash) VALUES (?)
	`, emailHash); err != nil {
		return nil, fmt.Errorf("failed to insert recipient: %w", err)
	}
	return r.FindRecipientByEmailHash(ctx, emailHash)
}

// RecordScan writes the event and its prediction in one transaction
func (r *MySQLRepository) RecordScan(ctx context.Context, event *core.EmailEvent, prediction *core.Prediction) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	messageIDHash := sql.NullString{String: event.MessageIDHash, Valid: event.MessageIDHash != ""}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO email_events (recipient_id, sender_domain, is_forwarded, received_at, message_id_hash)
		VALUES (?, ?, ?, ?, ?)
	`, event.RecipientID, event.SenderDomain, event.IsForwarded, event.ReceivedAt, messageIDHash)
	if err != nil {
		return fmt.Errorf("failed to insert email event: %w", err)
	}
	eventID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read email event id: %w", err)
	}

	result, err = tx.ExecContext(ctx, `
		INSERT INTO predictions (email_event_id, model_version, phishing_probability, predicted_label, risk_level, source, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, eventID, prediction.ModelVersion, prediction.PhishingProbability, prediction.PredictedLabel, string(prediction.RiskLevel), prediction.Source, prediction.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert prediction: %w", err)
	}
	predictionID, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read prediction id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit scan: %w", err)
	}

	event.ID = eventID
	prediction.ID = predictionID
	prediction.EmailEventID = eventID
	return nil
}

// IsTrustedDomain reads the per-recipient trust set live
func (r *MySQLRepository) IsTrustedDomain(ctx context.Context, recipientID int64, domain string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, `
		SELECT 1 FROM trusted_domains
		WHERE recipient_id = ? AND domain = ?
	`, recipientID, domain).Scan(&one)

	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query trusted domain: %w", err)
	}
	return true, nil
}

// AddTrustedDomain inserts a trust entry; the unique (recipient, domain)
// pair makes concurrent adds converge to one row
func (r *MySQLRepository) AddTrustedDomain(ctx context.Context, recipientID int64, domain string, reason string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT IGNORE INTO trusted_domains (recipient_id, domain, reason)
		VALUES (?, ?, ?)
	`, recipientID, domain, reason)
	if err != nil {
		return fmt.Errorf("failed to insert trusted domain: %w", err)
	}
	return nil
}

// ListEvents returns the recipient's scan history, newest first. A limit
// of zero or less means the full history; MySQL reads LIMIT 0 as an empty
// set, so the clause is only added for positive limits.
func (r *MySQLRepository) ListEvents(ctx context.Context, recipientID int64, limit int) ([]core.ScannedEvent, error) {
	query := `
		SELECT e.id, e.recipient_id, e.sender_domain, e.is_forwarded, e.received_at, e.message_id_hash,
		       p.id, p.model_version, p.phishing_probability, p.predicted_label, p.risk_level, p.source, p.created_at
		FROM email_events e
		LEFT JOIN predictions p ON p.email_event_id = e.id
		WHERE e.recipient_id = ?
		ORDER BY e.received_at DESC, e.id DESC
	`
	args := []interface{}{recipientID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var result []core.ScannedEvent
	for rows.Next() {
		var (
			event         core.EmailEvent
			messageIDHash sql.NullString
			predictionID  sql.NullInt64
			modelVersion  sql.NullString
			probability   sql.NullFloat64
			label         sql.NullString
			riskLevel     sql.NullString
			source        sql.NullString
			createdAt     sql.NullTime
		)

		if err := rows.Scan(
			&event.ID, &event.RecipientID, &event.SenderDomain, &event.IsForwarded, &event.ReceivedAt, &messageIDHash,
			&predictionID, &modelVersion, &probability, &label, &riskLevel, &source, &createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		event.MessageIDHash = messageIDHash.String

		scanned := core.ScannedEvent{Event: event}
		if predictionID.Valid {
			scanned.Prediction = &core.Prediction{
				ID:                  predictionID.Int64,
				EmailEventID:        event.ID,
				ModelVersion:        modelVersion.String,
				PhishingProbability: probability.Float64,
				PredictedLabel:      label.String,
				RiskLevel:           core.RiskLevel(riskLevel.String),
				Source:              source.String,
				CreatedAt:           createdAt.Time,
			}
		}
		result = append(result, scanned)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate event rows: %w", err)
	}
	return result, nil
}

// Close closes the database handle
func (r *MySQLRepository) Close() error {
	return r.db.Close()
}
