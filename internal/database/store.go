package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// Store defines the interface for database operations.
// Methods accept context.Context for cancellation and timeouts.
type Store interface {
	// Ping checks the database connection.
	Ping(ctx context.Context) error

	// SaveTurn appends a conversation turn.
	SaveTurn(ctx context.Context, turn *Turn) error

	// GetRecentTurns retrieves the most recent 'limit' turns for a sender,
	// ordered chronologically.
	GetRecentTurns(ctx context.Context, sender string, limit int) ([]Turn, error)

	// SaveAlert appends a crisis alert.
	SaveAlert(ctx context.Context, alert *Alert) error

	// ListAlerts retrieves alerts filtered by status; an empty status
	// returns all alerts.
	ListAlerts(ctx context.Context, status string) ([]Alert, error)

	// MarkAlertHandled sets an alert's status to HANDLED by identifier.
	MarkAlertHandled(ctx context.Context, alertID string) error

	// SaveEngagementRecord appends an engagement analysis record.
	SaveEngagementRecord(ctx context.Context, rec *EngagementRecord) error

	// SaveDocument persists a published document.
	SaveDocument(ctx context.Context, doc *Document) error

	// SearchDocuments returns documents whose content matches any of the
	// given terms, most recent first.
	SearchDocuments(ctx context.Context, terms []string, limit int) ([]Document, error)

	// RecordUsage appends one usage-statistics entry.
	RecordUsage(ctx context.Context, stat *UsageStat) error

	// CountSenderUsage returns the number of usage entries for a sender.
	CountSenderUsage(ctx context.Context, sender string) (int, error)

	// RunSQLMaintenance performs database maintenance tasks like VACUUM.
	RunSQLMaintenance(ctx context.Context) error
}

// ErrAlertNotFound is returned by MarkAlertHandled for an unknown identifier.
var ErrAlertNotFound = errors.New("alert not found")

// sqlxStore provides an implementation of the Store interface using sqlx.
type sqlxStore struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStore creates a new Store implementation backed by sqlx.
// It requires a connected sqlx.DB instance and a logger.
func NewStore(db *sqlx.DB, logger *slog.Logger) Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sqlxStore{
		db:     db,
		logger: logger.With("component", "store"),
	}
}

// Ping checks the database connection.
func (s *sqlxStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveTurn appends a conversation turn.
func (s *sqlxStore) SaveTurn(ctx context.Context, turn *Turn) error {
	if turn == nil {
		return fmt.Errorf("cannot save nil turn")
	}
	if turn.Sender == "" {
		return fmt.Errorf("turn must have a non-empty sender")
	}
	if turn.Role != RoleUser && turn.Role != RoleAssistant {
		return fmt.Errorf("turn has invalid role %q", turn.Role)
	}
	if turn.Content == "" {
		return fmt.Errorf("turn must have non-empty content")
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	turn.CreatedAt = time.Now().UTC()

	query := `
        INSERT INTO turns (sender, role, content, timestamp, created_at)
        VALUES (:sender, :role, :content, :timestamp, :created_at);
    `

	result, err := s.db.NamedExecContext(ctx, query, turn)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving turn", "sender", turn.Sender, "role", turn.Role, "error", err)
		return fmt.Errorf("failed to save turn for sender %s: %w", turn.Sender, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		turn.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Turn saved successfully", "sender", turn.Sender, "role", turn.Role, "turn_id", turn.ID)
	return nil
}

// GetRecentTurns retrieves the most recent 'limit' turns for a sender.
// Rows are fetched newest-first and reversed so callers receive them in
// chronological order.
func (s *sqlxStore) GetRecentTurns(ctx context.Context, sender string, limit int) ([]Turn, error) {
	if sender == "" {
		return nil, fmt.Errorf("sender cannot be empty")
	}
	if limit <= 0 {
		limit = 20
		s.logger.DebugContext(ctx, "Invalid limit provided, using default", "sender", sender, "default_limit", limit)
	}

	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var turns []Turn
	query := `
        SELECT id, sender, role, content, timestamp, created_at
        FROM turns
        WHERE sender = ?
        ORDER BY id DESC
        LIMIT ?;
    `

	err := s.db.SelectContext(ctx, &turns, query, sender, limit)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error getting recent turns", "sender", sender, "limit", limit, "error", err)
		return nil, fmt.Errorf("failed to get recent turns for sender %s: %w", sender, err)
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	s.logger.DebugContext(ctx, "Fetched recent turns successfully", "sender", sender, "count", len(turns))
	return turns, nil
}

// SaveAlert appends a crisis alert.
func (s *sqlxStore) SaveAlert(ctx context.Context, alert *Alert) error {
	if alert == nil {
		return fmt.Errorf("cannot save nil alert")
	}
	if alert.AlertID == "" {
		return fmt.Errorf("alert must have a non-empty alert_id")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}
	if alert.Status == "" {
		alert.Status = AlertStatusNew
	}

	query := `
        INSERT INTO alerts (alert_id, created_at, sender, severity, category, message,
                            matched_rule, status, requires_immediate_action, handled_at)
        VALUES (:alert_id, :created_at, :sender, :severity, :category, :message,
                :matched_rule, :status, :requires_immediate_action, :handled_at);
    `

	if _, err := s.db.NamedExecContext(ctx, query, alert); err != nil {
		s.logger.ErrorContext(ctx, "Error saving alert", "alert_id", alert.AlertID, "sender", alert.Sender, "error", err)
		return fmt.Errorf("failed to save alert %s: %w", alert.AlertID, err)
	}

	s.logger.InfoContext(ctx, "Alert saved successfully",
		"alert_id", alert.AlertID, "category", alert.Category, "severity", alert.Severity)
	return nil
}

// ListAlerts retrieves alerts filtered by status.
func (s *sqlxStore) ListAlerts(ctx context.Context, status string) ([]Alert, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var alerts []Alert
	var err error

	if status == "" {
		query := `SELECT alert_id, created_at, sender, severity, category, message,
		                 matched_rule, status, requires_immediate_action, handled_at
		          FROM alerts ORDER BY created_at DESC`
		err = s.db.SelectContext(ctx, &alerts, query)
	} else {
		query := `SELECT alert_id, created_at, sender, severity, category, message,
		                 matched_rule, status, requires_immediate_action, handled_at
		          FROM alerts WHERE status = ? ORDER BY created_at DESC`
		err = s.db.SelectContext(ctx, &alerts, query, status)
	}

	if err != nil {
		s.logger.ErrorContext(ctx, "Error listing alerts", "status", status, "error", err)
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	s.logger.DebugContext(ctx, "Listed alerts successfully", "status", status, "count", len(alerts))
	return alerts, nil
}

// MarkAlertHandled sets an alert's status to HANDLED and records when.
func (s *sqlxStore) MarkAlertHandled(ctx context.Context, alertID string) error {
	if alertID == "" {
		return fmt.Errorf("alert_id cannot be empty")
	}

	now := time.Now().UTC()
	query := `UPDATE alerts SET status = ?, handled_at = ? WHERE alert_id = ?`

	result, err := s.db.ExecContext(ctx, query, AlertStatusHandled, now, alertID)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error marking alert as handled", "alert_id", alertID, "error", err)
		return fmt.Errorf("failed to mark alert %s as handled: %w", alertID, err)
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
	}

	s.logger.InfoContext(ctx, "Alert marked as handled", "alert_id", alertID)
	return nil
}

// SaveEngagementRecord appends an engagement analysis record.
func (s *sqlxStore) SaveEngagementRecord(ctx context.Context, rec *EngagementRecord) error {
	if rec == nil {
		return fmt.Errorf("cannot save nil engagement record")
	}
	if rec.Sender == "" {
		return fmt.Errorf("engagement record must have a non-empty sender")
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO engagement_records (sender, created_at, behavioral, emotional, cognitive,
                                        risk_score, evidence, school, city, lat, lon)
        VALUES (:sender, :created_at, :behavioral, :emotional, :cognitive,
                :risk_score, :evidence, :school, :city, :lat, :lon);
    `

	result, err := s.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "Error saving engagement record", "sender", rec.Sender, "error", err)
		return fmt.Errorf("failed to save engagement record for sender %s: %w", rec.Sender, err)
	}

	if id, err := result.LastInsertId(); err == nil {
		rec.ID = uint(id)
	}

	s.logger.DebugContext(ctx, "Engagement record saved successfully",
		"sender", rec.Sender, "risk_score", rec.RiskScore)
	return nil
}

// SaveDocument persists a published document.
func (s *sqlxStore) SaveDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("cannot save nil document")
	}
	if doc.ID == "" {
		return fmt.Errorf("document must have a non-empty id")
	}
	if doc.Content == "" {
		return fmt.Errorf("document must have non-empty content")
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO documents (id, sender, content, created_at)
        VALUES (:id, :sender, :content, :created_at);
    `

	if _, err := s.db.NamedExecContext(ctx, query, doc); err != nil {
		s.logger.ErrorContext(ctx, "Error saving document", "document_id", doc.ID, "sender", doc.Sender, "error", err)
		return fmt.Errorf("failed to save document %s: %w", doc.ID, err)
	}

	s.logger.InfoContext(ctx, "Document saved successfully", "document_id", doc.ID, "sender", doc.Sender)
	return nil
}

// SearchDocuments returns documents whose content matches any of the given
// terms, most recent first. Matching is case-insensitive substring search;
// SQLite's LIKE is case-insensitive for ASCII by default.
func (s *sqlxStore) SearchDocuments(ctx context.Context, terms []string, limit int) ([]Document, error) {
	if len(terms) == 0 {
		return nil, nil
	}
	if limit <= 0 {
		limit = 3
	}

	conditions := make([]string, 0, len(terms))
	args := make([]interface{}, 0, len(terms)+1)
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		conditions = append(conditions, "content LIKE ?")
		args = append(args, "%"+term+"%")
	}
	if len(conditions) == 0 {
		return nil, nil
	}
	args = append(args, limit)

	query := `SELECT id, sender, content, created_at FROM documents WHERE ` +
		strings.Join(conditions, " OR ") +
		` ORDER BY created_at DESC LIMIT ?`

	var docs []Document
	if err := s.db.SelectContext(ctx, &docs, query, args...); err != nil {
		s.logger.ErrorContext(ctx, "Error searching documents", "terms", terms, "error", err)
		return nil, fmt.Errorf("failed to search documents: %w", err)
	}

	s.logger.DebugContext(ctx, "Document search completed", "terms", terms, "count", len(docs))
	return docs, nil
}

// RecordUsage appends one usage-statistics entry.
func (s *sqlxStore) RecordUsage(ctx context.Context, stat *UsageStat) error {
	if stat == nil {
		return fmt.Errorf("cannot save nil usage stat")
	}
	if stat.Sender == "" {
		return fmt.Errorf("usage stat must have a non-empty sender")
	}
	if stat.CreatedAt.IsZero() {
		stat.CreatedAt = time.Now().UTC()
	}

	query := `
        INSERT INTO usage_stats (sender, model, tokens, created_at)
        VALUES (:sender, :model, :tokens, :created_at);
    `

	if _, err := s.db.NamedExecContext(ctx, query, stat); err != nil {
		s.logger.ErrorContext(ctx, "Error recording usage", "sender", stat.Sender, "error", err)
		return fmt.Errorf("failed to record usage for sender %s: %w", stat.Sender, err)
	}

	return nil
}

// CountSenderUsage returns the number of usage entries for a sender.
func (s *sqlxStore) CountSenderUsage(ctx context.Context, sender string) (int, error) {
	if sender == "" {
		return 0, fmt.Errorf("sender cannot be empty")
	}

	var count int
	query := `SELECT COUNT(*) FROM usage_stats WHERE sender = ?`

	err := s.db.GetContext(ctx, &count, query, sender)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		s.logger.ErrorContext(ctx, "Error counting sender usage", "sender", sender, "error", err)
		return 0, fmt.Errorf("failed to count usage for sender %s: %w", sender, err)
	}

	return count, nil
}

// RunSQLMaintenance executes a VACUUM command on the SQLite database.
func (s *sqlxStore) RunSQLMaintenance(ctx context.Context) error {
	if ctx.Err() != nil {
		s.logger.WarnContext(ctx, "Context cancelled or timed out before starting VACUUM", "error", ctx.Err())
		return ctx.Err()
	}

	s.logger.InfoContext(ctx, "Starting database maintenance (VACUUM)...")

	// VACUUM must run outside a transaction in SQLite.
	_, err := s.db.ExecContext(ctx, "VACUUM;")

	switch {
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled):
		s.logger.WarnContext(ctx, "VACUUM operation timed out or was cancelled", "error", err)
		return fmt.Errorf("database maintenance (VACUUM) timed out: %w", err)

	case err != nil:
		s.logger.ErrorContext(ctx, "Database maintenance (VACUUM) failed", "error", err)
		return fmt.Errorf("failed to execute VACUUM: %w", err)

	default:
		s.logger.InfoContext(ctx, "Database maintenance (VACUUM) completed successfully")
	}

	return nil
}
