package database

import (
	"database/sql"
	"time"
)

// Turn roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Alert statuses. The alerts collection is append-only; the status field is
// the only in-place mutation, performed by the dashboard review action.
const (
	AlertStatusNew     = "NEW"
	AlertStatusHandled = "HANDLED"
)

// Turn is a single message in a sender's conversation, persisted append-only
// for reporting. The in-process conversation memory is the operational copy.
type Turn struct {
	ID        uint      `db:"id"`
	Sender    string    `db:"sender"`
	Role      string    `db:"role"`
	Content   string    `db:"content"`
	Timestamp time.Time `db:"timestamp"`
	CreatedAt time.Time `db:"created_at"`
}

// Alert is a persisted crisis alert created by the crisis detector and
// reviewed through the dashboard endpoints.
type Alert struct {
	AlertID                 string       `db:"alert_id"`
	CreatedAt               time.Time    `db:"created_at"`
	Sender                  string       `db:"sender"`
	Severity                string       `db:"severity"`
	Category                string       `db:"category"`
	Message                 string       `db:"message"`
	MatchedRule             string       `db:"matched_rule"`
	Status                  string       `db:"status"`
	RequiresImmediateAction bool         `db:"requires_immediate_action"`
	HandledAt               sql.NullTime `db:"handled_at"`
}

// EngagementRecord is the output of a background engagement analysis for one
// sender, scored on the three Fredricks pillars plus a derived risk score.
type EngagementRecord struct {
	ID         uint      `db:"id"`
	Sender     string    `db:"sender"`
	CreatedAt  time.Time `db:"created_at"`
	Behavioral float64   `db:"behavioral"`
	Emotional  float64   `db:"emotional"`
	Cognitive  float64   `db:"cognitive"`
	RiskScore  float64   `db:"risk_score"`
	Evidence   string    `db:"evidence"`
	School     string    `db:"school"`
	City       string    `db:"city"`
	Lat        float64   `db:"lat"`
	Lon        float64   `db:"lon"`
}

// Document is a published school announcement created through an authoring
// session, consulted by the retriever.
type Document struct {
	ID        string    `db:"id"`
	Sender    string    `db:"sender"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`
}

// UsageStat records one LLM request for usage accounting.
type UsageStat struct {
	ID        uint      `db:"id"`
	Sender    string    `db:"sender"`
	Model     string    `db:"model"`
	Tokens    int       `db:"tokens"`
	CreatedAt time.Time `db:"created_at"`
}
