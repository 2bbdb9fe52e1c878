package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/router"
)

type stubRouter struct {
	handled []string
}

func (s *stubRouter) Handle(_ context.Context, sender, text string) router.Result {
	s.handled = append(s.handled, sender+":"+text)

	return router.Result{Reply: "ok"}
}

type stubSender struct{}

func (stubSender) Send(_ context.Context, _, _ string) error { return nil }

type stubAnalytics struct{}

func (stubAnalytics) Run(_ context.Context, _ string, _ []database.Turn) {}

type stubTurnLog struct{}

func (stubTurnLog) All(_ string) []database.Turn { return nil }

type stubAlertStore struct {
	pingErr   error
	alerts    []database.Alert
	markedID  string
	markErr   error
	gotStatus string
}

func (s *stubAlertStore) Ping(_ context.Context) error { return s.pingErr }

func (s *stubAlertStore) ListAlerts(_ context.Context, status string) ([]database.Alert, error) {
	s.gotStatus = status

	return s.alerts, nil
}

func (s *stubAlertStore) MarkAlertHandled(_ context.Context, alertID string) error {
	if s.markErr != nil {
		return s.markErr
	}

	s.markedID = alertID

	return nil
}

func newTestServer(store *stubAlertStore, r *stubRouter) *Server {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	processor := NewProcessor(r, stubSender{}, stubAnalytics{}, stubTurnLog{}, nil, "desculpa", log)

	return NewServer(0, processor, store, log)
}

func TestServerWebhookRoute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantInBody string
		wantRouted int
	}{
		{
			name:       "valid message is processed",
			body:       `{"key":{"remoteJid":"5583999990000@s.whatsapp.net","fromMe":false},"message":{"conversation":"oi"}}`,
			wantStatus: http.StatusOK,
			wantInBody: "success",
			wantRouted: 1,
		},
		{
			name:       "echo is ignored",
			body:       `{"key":{"remoteJid":"5583999990000@s.whatsapp.net","fromMe":true},"message":{"conversation":"oi"}}`,
			wantStatus: http.StatusOK,
			wantInBody: "fromMe",
			wantRouted: 0,
		},
		{
			name:       "missing text is ignored",
			body:       `{"key":{"remoteJid":"5583999990000@s.whatsapp.net","fromMe":false},"message":{},"messageType":"imageMessage"}`,
			wantStatus: http.StatusOK,
			wantInBody: "no_text",
			wantRouted: 0,
		},
		{
			name:       "malformed remoteJid rejected",
			body:       `{"key":{"remoteJid":"garbage","fromMe":false},"message":{"conversation":"oi"}}`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "invalid_remote_jid",
			wantRouted: 0,
		},
		{
			name:       "invalid json rejected",
			body:       `{not json`,
			wantStatus: http.StatusBadRequest,
			wantInBody: "invalid_payload",
			wantRouted: 0,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			r := &stubRouter{}
			srv := newTestServer(&stubAlertStore{}, r)

			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()

			srv.httpServer.Handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tc.wantStatus)
			}

			if !strings.Contains(rec.Body.String(), tc.wantInBody) {
				t.Errorf("body = %q, want it to contain %q", rec.Body.String(), tc.wantInBody)
			}

			if len(r.handled) != tc.wantRouted {
				t.Errorf("routed %d messages, want %d", len(r.handled), tc.wantRouted)
			}
		})
	}
}

func TestServerHealthRoute(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&stubAlertStore{}, &stubRouter{})

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("healthy status = %d, want 200", rec.Code)
	}

	srv = newTestServer(&stubAlertStore{pingErr: errors.New("db gone")}, &stubRouter{})

	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("unhealthy status = %d, want 503", rec.Code)
	}
}

func TestServerAlertsRoutes(t *testing.T) {
	t.Parallel()

	store := &stubAlertStore{alerts: []database.Alert{
		{AlertID: "S1_20250301100000", Category: "dropout_risk", Severity: "HIGH", Status: database.AlertStatusNew},
	}}
	srv := newTestServer(store, &stubRouter{})

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/alerts?status=NEW", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d, want 200", rec.Code)
	}

	if store.gotStatus != "NEW" {
		t.Errorf("status filter = %q, want NEW", store.gotStatus)
	}

	if !strings.Contains(rec.Body.String(), "S1_20250301100000") {
		t.Errorf("body = %q, want the alert id", rec.Body.String())
	}

	rec = httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alerts/S1_20250301100000/handled", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("mark handled status = %d, want 200", rec.Code)
	}

	if store.markedID != "S1_20250301100000" {
		t.Errorf("marked id = %q, want S1_20250301100000", store.markedID)
	}
}

func TestServerMarkHandledNotFound(t *testing.T) {
	t.Parallel()

	store := &stubAlertStore{markErr: database.ErrAlertNotFound}
	srv := newTestServer(store, &stubRouter{})

	rec := httptest.NewRecorder()
	srv.httpServer.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/alerts/missing/handled", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}
