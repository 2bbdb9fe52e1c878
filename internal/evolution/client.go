// Package evolution implements the outbound WhatsApp send via the
// Evolution API gateway.
package evolution

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/leoedu/leobot/internal/config"
)

// Client sends text messages through an Evolution API instance.
type Client struct {
	apiURL     string
	apiKey     string
	instance   string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an Evolution API client.
func NewClient(cfg config.EvolutionConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Client{
		apiURL:     cfg.APIURL,
		apiKey:     cfg.APIKey,
		instance:   cfg.Instance,
		httpClient: &http.Client{Timeout: cfg.SendTimeout},
		logger:     logger.With("component", "evolution"),
	}
}

type sendTextRequest struct {
	Number string `json:"number"`
	Text   string `json:"text"`
}

// Send delivers one text message to the given number. It is a single
// best-effort attempt bounded by the client timeout; callers decide
// whether a failure warrants an apology message.
func (c *Client) Send(ctx context.Context, number, text string) error {
	body, err := json.Marshal(sendTextRequest{Number: number, Text: text})
	if err != nil {
		return fmt.Errorf("failed to marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/message/sendText/%s", c.apiURL, c.instance)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create send request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "send request failed", "error", err, "number", number)

		return fmt.Errorf("send request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.ErrorContext(ctx, "send rejected by gateway", "status", resp.StatusCode, "body", string(respBody), "number", number)

		return fmt.Errorf("send returned status %d", resp.StatusCode)
	}

	c.logger.DebugContext(ctx, "message sent", "number", number)

	return nil
}
