package webhook

import (
	"context"
	"io"
	"log/slog"

	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/metrics"
	"github.com/leoedu/leobot/internal/router"
)

// MessageRouter handles one inbound message and decides the reply.
type MessageRouter interface {
	Handle(ctx context.Context, sender, text string) router.Result
}

// Sender delivers outbound messages.
type Sender interface {
	Send(ctx context.Context, number, text string) error
}

// AnalyticsRunner performs the post-reply engagement analysis.
type AnalyticsRunner interface {
	Run(ctx context.Context, sender string, turns []database.Turn)
}

// TurnLog exposes the full conversation for the analytics run.
type TurnLog interface {
	All(sender string) []database.Turn
}

// Processor glues the router to the outbound send and spawns the
// analytics task after a successful delivery.
type Processor struct {
	router    MessageRouter
	sender    Sender
	analytics AnalyticsRunner
	turns     TurnLog
	metrics   *metrics.Metrics
	apology   string
	logger    *slog.Logger
}

// NewProcessor creates a message processor. A nil logger disables
// logging; metrics may be nil.
func NewProcessor(r MessageRouter, sender Sender, analytics AnalyticsRunner, turns TurnLog, m *metrics.Metrics, apology string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Processor{
		router:    r,
		sender:    sender,
		analytics: analytics,
		turns:     turns,
		metrics:   m,
		apology:   apology,
		logger:    logger.With("component", "processor"),
	}
}

// Process handles one inbound message end to end. A send failure is
// logged and answered with a single best-effort apology whose own
// failure is swallowed; the analytics task runs only after the real
// reply was delivered.
func (p *Processor) Process(ctx context.Context, number, text string) {
	res := p.router.Handle(ctx, number, text)
	if res.Reply == "" {
		p.logger.DebugContext(ctx, "no reply for message", "number", number)

		return
	}

	if err := p.sender.Send(ctx, number, res.Reply); err != nil {
		p.logger.ErrorContext(ctx, "failed to send reply", "error", err, "number", number)

		if p.metrics != nil {
			p.metrics.SendFailures.Inc()
			p.metrics.RepliesSent.WithLabelValues("error").Inc()
		}

		if apologyErr := p.sender.Send(ctx, number, p.apology); apologyErr != nil {
			p.logger.ErrorContext(ctx, "failed to send apology", "error", apologyErr, "number", number)
		}

		return
	}

	if p.metrics != nil {
		p.metrics.RepliesSent.WithLabelValues("ok").Inc()
	}

	if !res.TriggerAnalytics {
		return
	}

	// The analysis runs detached from the request so a slow model
	// call never delays the webhook response. It carries its own
	// error boundary.
	turns := p.turns.All(number)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("analytics task panicked", "panic", r, "number", number)
			}
		}()

		p.analytics.Run(context.Background(), number, turns)
	}()
}
