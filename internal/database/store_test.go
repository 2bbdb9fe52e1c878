package database_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/leoedu/leobot/internal/database"
)

func newTestStore(t *testing.T) database.Store {
	t.Helper()

	db, err := database.NewDB(":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	t.Cleanup(func() { database.CloseDB(db) })

	return database.NewStore(db, nil)
}

func TestStoreTurns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	for i := 1; i <= 5; i++ {
		turn := &database.Turn{
			Sender:  "S1",
			Role:    database.RoleUser,
			Content: fmt.Sprintf("mensagem %d", i),
		}
		if err := store.SaveTurn(ctx, turn); err != nil {
			t.Fatalf("SaveTurn(%d) error = %v", i, err)
		}
	}

	turns, err := store.GetRecentTurns(ctx, "S1", 3)
	if err != nil {
		t.Fatalf("GetRecentTurns() error = %v", err)
	}

	if len(turns) != 3 {
		t.Fatalf("got %d turns, want 3", len(turns))
	}

	// Chronological order: oldest of the window first.
	if turns[0].Content != "mensagem 3" || turns[2].Content != "mensagem 5" {
		t.Errorf("window = [%q .. %q], want [mensagem 3 .. mensagem 5]",
			turns[0].Content, turns[2].Content)
	}

	if _, err := store.GetRecentTurns(ctx, "", 3); err == nil {
		t.Error("GetRecentTurns with empty sender should fail")
	}
}

func TestStoreSaveTurnValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	tests := []struct {
		name string
		turn *database.Turn
	}{
		{name: "nil turn", turn: nil},
		{name: "empty sender", turn: &database.Turn{Role: database.RoleUser, Content: "oi"}},
		{name: "invalid role", turn: &database.Turn{Sender: "S1", Role: "system", Content: "oi"}},
		{name: "empty content", turn: &database.Turn{Sender: "S1", Role: database.RoleUser}},
	}

	for _, tc := range tests {
		if err := store.SaveTurn(ctx, tc.turn); err == nil {
			t.Errorf("%s: SaveTurn() error = nil, want validation error", tc.name)
		}
	}
}

func TestStoreAlerts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	alert := &database.Alert{
		AlertID:                 "S1_20250301100000",
		Sender:                  "S1",
		Severity:                "HIGH",
		Category:                "dropout_risk",
		Message:                 "vou desistir da escola",
		MatchedRule:             `vou\s+desistir`,
		Status:                  database.AlertStatusNew,
		RequiresImmediateAction: true,
	}

	if err := store.SaveAlert(ctx, alert); err != nil {
		t.Fatalf("SaveAlert() error = %v", err)
	}

	alerts, err := store.ListAlerts(ctx, database.AlertStatusNew)
	if err != nil {
		t.Fatalf("ListAlerts() error = %v", err)
	}

	if len(alerts) != 1 || alerts[0].AlertID != alert.AlertID {
		t.Fatalf("ListAlerts() = %+v, want the saved alert", alerts)
	}

	if err := store.MarkAlertHandled(ctx, alert.AlertID); err != nil {
		t.Fatalf("MarkAlertHandled() error = %v", err)
	}

	alerts, err = store.ListAlerts(ctx, database.AlertStatusHandled)
	if err != nil {
		t.Fatalf("ListAlerts(HANDLED) error = %v", err)
	}

	if len(alerts) != 1 {
		t.Fatalf("got %d handled alerts, want 1", len(alerts))
	}

	if !alerts[0].HandledAt.Valid {
		t.Error("handled alert should carry a handled_at timestamp")
	}

	// The NEW view is now empty.
	alerts, err = store.ListAlerts(ctx, database.AlertStatusNew)
	if err != nil {
		t.Fatalf("ListAlerts(NEW) error = %v", err)
	}

	if len(alerts) != 0 {
		t.Errorf("got %d new alerts after handling, want 0", len(alerts))
	}
}

func TestStoreMarkAlertHandledUnknown(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	err := store.MarkAlertHandled(context.Background(), "missing")
	if !errors.Is(err, database.ErrAlertNotFound) {
		t.Errorf("MarkAlertHandled(missing) error = %v, want ErrAlertNotFound", err)
	}
}

func TestStoreDocumentsSearch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	docs := []*database.Document{
		{ID: "d1", Sender: "P1", Content: "Prova de matemática na sexta-feira", CreatedAt: time.Now().Add(-2 * time.Hour)},
		{ID: "d2", Sender: "P1", Content: "Tarefa de ciências: página 30", CreatedAt: time.Now().Add(-time.Hour)},
		{ID: "d3", Sender: "P1", Content: "Reunião de pais no sábado", CreatedAt: time.Now()},
	}

	for _, d := range docs {
		if err := store.SaveDocument(ctx, d); err != nil {
			t.Fatalf("SaveDocument(%s) error = %v", d.ID, err)
		}
	}

	found, err := store.SearchDocuments(ctx, []string{"matemática", "tarefa"}, 5)
	if err != nil {
		t.Fatalf("SearchDocuments() error = %v", err)
	}

	if len(found) != 2 {
		t.Fatalf("got %d documents, want 2", len(found))
	}

	// Most recent first.
	if found[0].ID != "d2" || found[1].ID != "d1" {
		t.Errorf("order = [%s %s], want [d2 d1]", found[0].ID, found[1].ID)
	}

	none, err := store.SearchDocuments(ctx, nil, 5)
	if err != nil {
		t.Fatalf("SearchDocuments(nil) error = %v", err)
	}

	if len(none) != 0 {
		t.Errorf("empty terms returned %d documents, want 0", len(none))
	}
}

func TestStoreUsage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	count, err := store.CountSenderUsage(ctx, "S1")
	if err != nil {
		t.Fatalf("CountSenderUsage() error = %v", err)
	}

	if count != 0 {
		t.Errorf("initial count = %d, want 0", count)
	}

	for i := 0; i < 3; i++ {
		stat := &database.UsageStat{Sender: "S1", Model: "gemini-2.0-flash", Tokens: 100}
		if err := store.RecordUsage(ctx, stat); err != nil {
			t.Fatalf("RecordUsage() error = %v", err)
		}
	}

	count, err = store.CountSenderUsage(ctx, "S1")
	if err != nil {
		t.Fatalf("CountSenderUsage() error = %v", err)
	}

	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestStoreEngagementRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := newTestStore(t)

	rec := &database.EngagementRecord{
		Sender:     "S1",
		Behavioral: 0.8,
		Emotional:  0.7,
		Cognitive:  0.6,
		RiskScore:  0.3,
		Evidence:   "Como somo frações?",
		School:     "Vista Alegre Park, Haras e Hípica",
		City:       "João Pessoa",
		Lat:        -7.1195,
		Lon:        -34.845,
	}

	if err := store.SaveEngagementRecord(ctx, rec); err != nil {
		t.Fatalf("SaveEngagementRecord() error = %v", err)
	}

	if rec.ID == 0 {
		t.Error("record should receive a generated id")
	}
}

func TestStoreMaintenance(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	if err := store.RunSQLMaintenance(context.Background()); err != nil {
		t.Errorf("RunSQLMaintenance() error = %v", err)
	}
}
