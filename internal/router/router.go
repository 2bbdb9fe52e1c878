// Package router orchestrates the handling of one inbound message:
// authoring sessions, administrative commands, security screening,
// crisis detection, throttling and finally the model reply.
package router

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/leoedu/leobot/internal/config"
	"github.com/leoedu/leobot/internal/crisis"
	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/metrics"
	"github.com/leoedu/leobot/internal/ratelimit"
	"github.com/leoedu/leobot/internal/security"
	"github.com/leoedu/leobot/internal/session"
)

// ReindexCommand is the administrative token that triggers an index
// rebuild. Matched case-insensitively anywhere in the message.
const ReindexCommand = "REINDEXAR"

// charsPerToken approximates model token usage from text length.
const charsPerToken = 4

// Result is the outcome of handling one inbound message.
type Result struct {
	// Reply is the text to send back. Empty means no reply is sent.
	Reply string

	// TriggerAnalytics is set when the turn completed the full model
	// path; the caller runs the engagement analysis after a
	// successful send.
	TriggerAnalytics bool
}

// SecurityFilter screens and sanitizes inbound text.
type SecurityFilter interface {
	Check(message string) (bool, security.Reason)
	Sanitize(message string) string
}

// CrisisDetector checks a message against the crisis taxonomy.
type CrisisDetector interface {
	Detect(ctx context.Context, sender, message string) *crisis.Match
}

// RateLimiter throttles per-sender traffic.
type RateLimiter interface {
	Allow(sender string) ratelimit.Decision
	Record(sender string)
}

// Conversation is the per-sender turn history.
type Conversation interface {
	IsNew(sender string) bool
	Append(ctx context.Context, sender, role, content string)
	Recent(sender string) []database.Turn
	All(sender string) []database.Turn
}

// SessionManager drives the teacher drafting workflow.
type SessionManager interface {
	InSession(sender string) bool
	Start(ctx context.Context, sender string) string
	Handle(ctx context.Context, sender, message string) string
}

// ModelClient is the subset of model operations the router invokes.
type ModelClient interface {
	GenerateReply(ctx context.Context, turns []database.Turn, newUser bool, ragContext string) (string, error)
	ClassifyAuthorIntent(ctx context.Context, message string) (bool, float64, error)
}

// ContextRetriever supplies document context for eligible questions.
type ContextRetriever interface {
	Retrieve(ctx context.Context, message string) string
}

// Reindexer rebuilds the document index.
type Reindexer interface {
	Reindex(ctx context.Context) error
}

// UsageStore tracks per-sender model usage.
type UsageStore interface {
	RecordUsage(ctx context.Context, stat *database.UsageStat) error
	CountSenderUsage(ctx context.Context, sender string) (int, error)
}

// Deps collects the router's collaborators.
type Deps struct {
	Security  SecurityFilter
	Crisis    CrisisDetector
	Limiter   RateLimiter
	Memory    Conversation
	Sessions  SessionManager
	Model     ModelClient
	Retriever ContextRetriever
	Reindexer Reindexer
	Usage     UsageStore
	Metrics   *metrics.Metrics
}

// Router serializes and dispatches inbound messages per sender.
type Router struct {
	deps   Deps
	cfg    *config.Config
	logger *slog.Logger

	mu          sync.Mutex
	senderLocks map[string]*sync.Mutex

	privileged map[string]struct{}
}

// New creates a router. A nil logger disables logging.
func New(deps Deps, cfg *config.Config, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	privileged := make(map[string]struct{}, len(cfg.Author.PrivilegedSenders))
	for _, s := range cfg.Author.PrivilegedSenders {
		privileged[s] = struct{}{}
	}

	return &Router{
		deps:        deps,
		cfg:         cfg,
		logger:      logger.With("component", "router"),
		senderLocks: make(map[string]*sync.Mutex),
		privileged:  privileged,
	}
}

// lockSender returns the mutex serializing turns for one sender.
// Locks are created lazily and never removed; the sender population is
// one school class, not an unbounded set.
func (r *Router) lockSender(sender string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, found := r.senderLocks[sender]
	if !found {
		l = &sync.Mutex{}
		r.senderLocks[sender] = l
	}

	return l
}

// Handle processes one inbound message. Stages run in a fixed order
// and the first stage that produces a reply wins; later stages see no
// side effects from a short-circuited turn. Concurrent turns from the
// same sender are serialized.
func (r *Router) Handle(ctx context.Context, sender, text string) Result {
	l := r.lockSender(sender)
	l.Lock()
	defer l.Unlock()

	if r.deps.Metrics != nil {
		r.deps.Metrics.MessagesReceived.Inc()

		start := time.Now()
		defer func() {
			r.deps.Metrics.TurnDuration.Observe(time.Since(start).Seconds())
		}()
	}

	if r.deps.Sessions.InSession(sender) {
		return Result{Reply: r.deps.Sessions.Handle(ctx, sender, text)}
	}

	if strings.Contains(strings.ToUpper(text), ReindexCommand) {
		return Result{Reply: r.handleReindex(ctx)}
	}

	if r.isAuthor(ctx, sender, text) {
		return Result{Reply: r.deps.Sessions.Start(ctx, sender)}
	}

	if reply, blocked := r.screen(ctx, sender, &text); blocked {
		return Result{Reply: reply}
	}

	if match := r.deps.Crisis.Detect(ctx, sender, text); match != nil {
		if r.deps.Metrics != nil {
			r.deps.Metrics.CrisisAlerts.WithLabelValues(string(match.Category)).Inc()
		}

		return Result{Reply: match.Response}
	}

	if reply, throttled := r.throttle(ctx, sender); throttled {
		return Result{Reply: reply}
	}

	return r.converse(ctx, sender, text)
}

// handleReindex runs the administrative index rebuild. The command is
// not gated by security or rate limiting.
func (r *Router) handleReindex(ctx context.Context) string {
	r.logger.InfoContext(ctx, "reindex command received")

	if err := r.deps.Reindexer.Reindex(ctx); err != nil {
		r.logger.ErrorContext(ctx, "reindex failed", "error", err)

		if r.deps.Metrics != nil {
			r.deps.Metrics.ReindexInvocations.WithLabelValues("error").Inc()
		}

		return r.cfg.Messages.ReindexFail
	}

	if r.deps.Metrics != nil {
		r.deps.Metrics.ReindexInvocations.WithLabelValues("ok").Inc()
	}

	return r.cfg.Messages.ReindexOK
}

// isAuthor decides whether to open a drafting session. Known
// privileged senders qualify on any message; others need an authoring
// keyword plus a confident model classification. Classification
// failures count as "not an author" and fall through to the student
// path.
func (r *Router) isAuthor(ctx context.Context, sender, text string) bool {
	if _, found := r.privileged[sender]; found {
		r.logger.InfoContext(ctx, "privileged sender detected", "sender", sender)

		return true
	}

	if !session.HasAuthorKeywords(text) {
		return false
	}

	isAuthor, confidence, err := r.deps.Model.ClassifyAuthorIntent(ctx, text)
	if err != nil {
		r.logger.ErrorContext(ctx, "author classification failed", "error", err, "sender", sender)

		return false
	}

	if isAuthor && confidence > r.cfg.Author.ConfidenceThreshold {
		r.logger.InfoContext(ctx, "author detected via classification", "sender", sender, "confidence", confidence)

		return true
	}

	return false
}

// screen applies the security filter and basic input validation. The
// sanitized text replaces the original for the rest of the turn.
func (r *Router) screen(ctx context.Context, sender string, text *string) (string, bool) {
	ok, reason := r.deps.Security.Check(*text)
	if !ok {
		r.logger.WarnContext(ctx, "message blocked by security filter", "sender", sender, "reason", reason)

		if r.deps.Metrics != nil {
			r.deps.Metrics.SecurityBlocks.WithLabelValues(string(reason)).Inc()
		}

		switch reason {
		case security.ReasonRepetition:
			return r.cfg.Messages.SecurityRepeat, true
		case security.ReasonChars:
			return r.cfg.Messages.SecurityChars, true
		default:
			return r.cfg.Messages.SecurityInjection, true
		}
	}

	*text = r.deps.Security.Sanitize(*text)

	if *text == "" {
		return r.cfg.Messages.EmptyMessage, true
	}

	if len([]rune(*text)) > r.cfg.Memory.MaxMessageLen {
		return r.cfg.Messages.TooLong, true
	}

	return "", false
}

// throttle applies the rate limiter and the per-sender usage cap.
func (r *Router) throttle(ctx context.Context, sender string) (string, bool) {
	switch r.deps.Limiter.Allow(sender) {
	case ratelimit.WaitInterval:
		r.logger.WarnContext(ctx, "sender writing too fast", "sender", sender)

		if r.deps.Metrics != nil {
			r.deps.Metrics.RateLimited.Inc()
		}

		return r.cfg.Messages.RateWait, true
	case ratelimit.CapReached:
		r.logger.WarnContext(ctx, "sender reached message cap", "sender", sender)

		if r.deps.Metrics != nil {
			r.deps.Metrics.RateLimited.Inc()
		}

		return r.cfg.Messages.RateLimit, true
	case ratelimit.Allowed:
	}

	count, err := r.deps.Usage.CountSenderUsage(ctx, sender)
	if err != nil {
		// Fail open: an unreadable usage counter must not block
		// students.
		r.logger.ErrorContext(ctx, "failed to read usage counter", "error", err, "sender", sender)

		return "", false
	}

	if count >= r.cfg.Rate.UsageCap {
		r.logger.WarnContext(ctx, "sender reached usage cap", "sender", sender, "count", count)

		return r.cfg.Messages.UsageCap, true
	}

	return "", false
}

// converse runs the full model path: record the turn, generate the
// reply with the history window and optional document context, record
// the reply and consume a rate slot. The new-user flag is read before
// the turn is appended.
func (r *Router) converse(ctx context.Context, sender, text string) Result {
	newUser := r.deps.Memory.IsNew(sender)

	r.deps.Memory.Append(ctx, sender, database.RoleUser, text)

	ragContext := r.deps.Retriever.Retrieve(ctx, text)

	reply, err := r.deps.Model.GenerateReply(ctx, r.deps.Memory.Recent(sender), newUser, ragContext)
	if err != nil {
		r.logger.ErrorContext(ctx, "reply generation failed", "error", err, "sender", sender)

		if r.deps.Metrics != nil {
			r.deps.Metrics.LLMFailures.Inc()
		}

		return Result{Reply: r.cfg.Messages.GeneralError}
	}

	r.deps.Memory.Append(ctx, sender, database.RoleAssistant, reply)
	r.deps.Limiter.Record(sender)

	stat := &database.UsageStat{
		Sender:    sender,
		Model:     r.cfg.LLM.Model,
		Tokens:    (len(text) + len(reply)) / charsPerToken,
		CreatedAt: time.Now(),
	}
	if err := r.deps.Usage.RecordUsage(ctx, stat); err != nil {
		r.logger.ErrorContext(ctx, "failed to record usage", "error", err, "sender", sender)
	}

	r.logger.InfoContext(ctx, "reply generated", "sender", sender, "new_user", newUser)

	return Result{Reply: reply, TriggerAnalytics: true}
}

