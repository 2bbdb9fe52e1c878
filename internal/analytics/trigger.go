// Package analytics runs the background engagement analysis after a
// reply has been delivered.
package analytics

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/llm"
)

// Eligibility thresholds. Greeting-only exchanges never qualify.
const (
	minSenderTurns   = 3
	minContentLength = 20
)

// Scorer produces engagement scores from a conversation transcript.
type Scorer interface {
	ScoreEngagement(ctx context.Context, turns []database.Turn) (*llm.Engagement, error)
}

// RecordStore persists engagement records.
type RecordStore interface {
	SaveEngagementRecord(ctx context.Context, record *database.EngagementRecord) error
}

// Trigger decides when a conversation warrants analysis and runs it.
// It runs off the reply path and never surfaces errors to the sender.
type Trigger struct {
	scorer Scorer
	store  RecordStore
	logger *slog.Logger
	now    func() time.Time
}

// NewTrigger creates an analytics trigger. A nil logger disables
// logging.
func NewTrigger(scorer Scorer, store RecordStore, logger *slog.Logger) *Trigger {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Trigger{
		scorer: scorer,
		store:  store,
		logger: logger.With("component", "analytics"),
		now:    time.Now,
	}
}

// Eligible reports whether the conversation has enough sender-authored
// substance to analyze.
func Eligible(turns []database.Turn) bool {
	senderTurns := 0
	contentLen := 0

	for _, t := range turns {
		if t.Role != database.RoleUser {
			continue
		}

		senderTurns++
		contentLen += len([]rune(strings.TrimSpace(t.Content)))
	}

	return senderTurns >= minSenderTurns && contentLen >= minContentLength
}

// Run scores the conversation and persists the result. When scoring
// fails a neutral record is persisted instead, so every analyzed
// sender shows up in aggregate reporting. Ineligible conversations are
// skipped silently.
func (t *Trigger) Run(ctx context.Context, sender string, turns []database.Turn) {
	if !Eligible(turns) {
		t.logger.DebugContext(ctx, "conversation not eligible for analysis", "sender", sender)

		return
	}

	engagement, err := t.scorer.ScoreEngagement(ctx, turns)
	if err != nil {
		t.logger.ErrorContext(ctx, "engagement scoring failed, recording neutral result", "error", err, "sender", sender)

		engagement = llm.NeutralEngagement()
	}

	record := &database.EngagementRecord{
		Sender:     sender,
		CreatedAt:  t.now(),
		Behavioral: engagement.Behavioral,
		Emotional:  engagement.Emotional,
		Cognitive:  engagement.Cognitive,
		RiskScore:  engagement.RiskScore,
		Evidence:   strings.Join(engagement.Evidence, "\n"),
		School:     engagement.School,
		City:       engagement.City,
		Lat:        engagement.Lat,
		Lon:        engagement.Lon,
	}

	if err := t.store.SaveEngagementRecord(ctx, record); err != nil {
		t.logger.ErrorContext(ctx, "failed to persist engagement record", "error", err, "sender", sender)

		return
	}

	t.logger.InfoContext(ctx, "engagement analysis complete", "sender", sender, "risk_score", record.RiskScore)
}
