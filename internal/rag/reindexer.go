package rag

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Reindexer invokes the external indexing service to rebuild the
// document index after new material is published.
type Reindexer struct {
	indexerURL string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewReindexer creates a reindexer for the given indexer base URL. An
// empty URL disables reindexing; Reindex then always fails.
func NewReindexer(indexerURL string, timeout time.Duration, logger *slog.Logger) *Reindexer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Reindexer{
		indexerURL: indexerURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.With("component", "reindexer"),
	}
}

// Reindex triggers a synchronous index rebuild. The call is bounded by
// the client timeout; the indexer is expected to answer only after the
// rebuild completed.
func (r *Reindexer) Reindex(ctx context.Context) error {
	if r.indexerURL == "" {
		return fmt.Errorf("indexer URL is not configured")
	}

	r.logger.InfoContext(ctx, "starting index rebuild")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.indexerURL+"/reindex", nil)
	if err != nil {
		return fmt.Errorf("failed to create reindex request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		r.logger.ErrorContext(ctx, "index rebuild request failed", "error", err)

		return fmt.Errorf("reindex request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		r.logger.ErrorContext(ctx, "index rebuild failed", "status", resp.StatusCode, "body", string(body))

		return fmt.Errorf("reindex returned status %d", resp.StatusCode)
	}

	r.logger.InfoContext(ctx, "index rebuild completed")

	return nil
}
