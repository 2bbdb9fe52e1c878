// Package webhook exposes the HTTP surface of the gateway: the
// Evolution API webhook, the alert dashboard endpoints, health and
// metrics.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/logger"
)

// AlertStore is the storage surface the HTTP handlers need.
type AlertStore interface {
	Ping(ctx context.Context) error
	ListAlerts(ctx context.Context, status string) ([]database.Alert, error)
	MarkAlertHandled(ctx context.Context, alertID string) error
}

// Server is the gateway HTTP server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer builds the HTTP server with all routes registered.
func NewServer(port int, processor *Processor, store AlertStore, log *slog.Logger) *Server {
	s := &Server{logger: log.With("component", "http")}

	r := mux.NewRouter()
	r.Use(logger.Middleware(log))

	r.HandleFunc("/webhook", s.handleWebhook(processor)).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth(store)).Methods(http.MethodGet)
	r.HandleFunc("/alerts", s.handleListAlerts(store)).Methods(http.MethodGet)
	r.HandleFunc("/alerts/{id}/handled", s.handleMarkHandled(store)).Methods(http.MethodPost)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Start serves HTTP until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server starting", "addr", s.httpServer.Addr)

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server failed: %w", err)
	}

	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("HTTP server shutting down")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}

	return nil
}

func (s *Server) handleWebhook(processor *Processor) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload Payload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			s.logger.WarnContext(r.Context(), "invalid webhook payload", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "reason": "invalid_payload"})

			return
		}

		if payload.IsEcho() {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "fromMe"})

			return
		}

		number, err := ExtractPhoneNumber(payload.Key.RemoteJID)
		if err != nil {
			s.logger.WarnContext(r.Context(), "invalid remoteJid", "error", err)
			writeJSON(w, http.StatusBadRequest, map[string]string{"status": "error", "reason": "invalid_remote_jid"})

			return
		}

		text := payload.Text()
		if text == "" {
			s.logger.DebugContext(r.Context(), "webhook event carries no text", "number", number, "message_type", payload.MessageType)
			writeJSON(w, http.StatusOK, map[string]string{"status": "ignored", "reason": "no_text"})

			return
		}

		processor.Process(r.Context(), number, text)

		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

func (s *Server) handleHealth(store AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Ping(r.Context()); err != nil {
			s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})

			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

func (s *Server) handleListAlerts(store AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := r.URL.Query().Get("status")

		alerts, err := store.ListAlerts(r.Context(), status)
		if err != nil {
			s.logger.ErrorContext(r.Context(), "failed to list alerts", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})

			return
		}

		writeJSON(w, http.StatusOK, map[string]any{"alerts": alerts, "count": len(alerts)})
	}
}

func (s *Server) handleMarkHandled(store AlertStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		alertID := mux.Vars(r)["id"]

		if err := store.MarkAlertHandled(r.Context(), alertID); err != nil {
			if errors.Is(err, database.ErrAlertNotFound) {
				writeJSON(w, http.StatusNotFound, map[string]string{"status": "error", "reason": "alert_not_found"})

				return
			}

			s.logger.ErrorContext(r.Context(), "failed to mark alert handled", "error", err, "alert_id", alertID)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})

			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "handled", "alert_id": alertID})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
