// Package rag retrieves school documents relevant to a student's
// question and drives the external index rebuild.
package rag

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/leoedu/leobot/internal/database"
)

// retrievalKeywords gate document lookup. Only messages that plausibly
// ask about school logistics hit the document store.
var retrievalKeywords = []string{
	"tarefa",
	"calendario",
	"calendário",
	"prova",
	"trabalho",
	"professor",
	"quando",
}

const maxPassages = 3

// DocumentSearcher looks up stored documents by free-text terms.
type DocumentSearcher interface {
	SearchDocuments(ctx context.Context, terms []string, limit int) ([]database.Document, error)
}

// Retriever returns document context for eligible questions.
type Retriever struct {
	store  DocumentSearcher
	logger *slog.Logger
}

// NewRetriever creates a retriever over the given document store. A
// nil logger disables logging.
func NewRetriever(store DocumentSearcher, logger *slog.Logger) *Retriever {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Retriever{store: store, logger: logger.With("component", "rag")}
}

// Retrieve returns relevant document passages joined as one context
// block, or an empty string when the message does not ask about school
// logistics, nothing matches, or the store is unavailable. Retrieval
// failures degrade to no context; they never fail the turn.
func (r *Retriever) Retrieve(ctx context.Context, message string) string {
	lower := strings.ToLower(message)

	eligible := false
	for _, kw := range retrievalKeywords {
		if strings.Contains(lower, kw) {
			eligible = true
			break
		}
	}

	if !eligible {
		return ""
	}

	terms := searchTerms(lower)
	if len(terms) == 0 {
		return ""
	}

	docs, err := r.store.SearchDocuments(ctx, terms, maxPassages)
	if err != nil {
		r.logger.ErrorContext(ctx, "document search failed", "error", err)

		return ""
	}

	if len(docs) == 0 {
		return ""
	}

	parts := make([]string, 0, len(docs))
	for _, d := range docs {
		parts = append(parts, d.Content)
	}

	r.logger.InfoContext(ctx, "document context found", "passages", len(docs))

	return strings.Join(parts, "\n\n")
}

// searchTerms extracts lookup terms from the lowercased message,
// skipping words too short to be selective.
func searchTerms(lower string) []string {
	fields := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == ',' || r == '.' || r == '?' || r == '!' || r == ':' || r == ';'
	})

	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 4 {
			continue
		}

		terms = append(terms, f)
	}

	return terms
}
