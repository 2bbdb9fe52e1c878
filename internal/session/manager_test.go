package session_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/session"
)

type fakeDocStore struct {
	saved []*database.Document
	err   error
}

func (f *fakeDocStore) SaveDocument(_ context.Context, doc *database.Document) error {
	if f.err != nil {
		return f.err
	}

	f.saved = append(f.saved, doc)

	return nil
}

func TestHasAuthorKeywords(t *testing.T) {
	t.Parallel()

	tests := []struct {
		message string
		want    bool
	}{
		{"Sou o professor de matemática", true},
		{"ATENÇÃO TURMA: prova na sexta", true},
		{"Comunicado importante para os pais", true},
		{"oi, tudo bem?", false},
		{"quando é a prova de história?", false},
	}

	for _, tc := range tests {
		if got := session.HasAuthorKeywords(tc.message); got != tc.want {
			t.Errorf("HasAuthorKeywords(%q) = %v, want %v", tc.message, got, tc.want)
		}
	}
}

func TestSessionLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &fakeDocStore{}
	m := session.NewManager(store, nil)

	if m.InSession("P1") {
		t.Fatal("no session expected before Start")
	}

	onboarding := m.Start(ctx, "P1")
	if !strings.Contains(onboarding, "PUBLICAR") || !strings.Contains(onboarding, "CANCELAR") {
		t.Errorf("onboarding should mention both commands, got %q", onboarding)
	}

	if !m.InSession("P1") {
		t.Fatal("session expected after Start")
	}

	reply := m.Handle(ctx, "P1", "Tarefa de matemática: página 42")
	if !strings.Contains(reply, "Tarefa de matemática: página 42") {
		t.Errorf("preview should echo the draft, got %q", reply)
	}

	m.Handle(ctx, "P1", "Entrega na sexta-feira")

	confirmation := m.Handle(ctx, "P1", "publicar")
	if !strings.Contains(confirmation, "publicada com sucesso") {
		t.Fatalf("expected publish confirmation, got %q", confirmation)
	}

	if m.InSession("P1") {
		t.Error("session should be cleared after publish")
	}

	if len(store.saved) != 1 {
		t.Fatalf("saved %d documents, want 1", len(store.saved))
	}

	doc := store.saved[0]
	if !strings.Contains(doc.Content, "Tarefa de matemática: página 42\n\nEntrega na sexta-feira") {
		t.Errorf("document should join fragments with blank lines, got %q", doc.Content)
	}

	if doc.ID == "" {
		t.Error("document should carry a generated identifier")
	}

	if !strings.Contains(confirmation, doc.ID) {
		t.Error("confirmation should include the document identifier")
	}
}

func TestPublishEmptyBufferKeepsSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &fakeDocStore{}
	m := session.NewManager(store, nil)

	m.Start(ctx, "P1")

	reply := m.Handle(ctx, "P1", "PUBLICAR")
	if !strings.Contains(reply, "Nenhuma mensagem para publicar") {
		t.Errorf("expected empty buffer error, got %q", reply)
	}

	if !m.InSession("P1") {
		t.Error("session should stay open after rejected publish")
	}

	if len(store.saved) != 0 {
		t.Error("no document should be written for an empty buffer")
	}
}

func TestCancelDiscardsBuffer(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &fakeDocStore{}
	m := session.NewManager(store, nil)

	m.Start(ctx, "P1")
	m.Handle(ctx, "P1", "rascunho que não será publicado")

	reply := m.Handle(ctx, "P1", "CANCELAR")
	if !strings.Contains(reply, "cancelada") {
		t.Errorf("expected cancellation message, got %q", reply)
	}

	if m.InSession("P1") {
		t.Error("session should be cleared after cancel")
	}

	if len(store.saved) != 0 {
		t.Error("cancel must not write a document")
	}
}

func TestPublishStoreFailureKeepsSession(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := &fakeDocStore{err: errors.New("disk full")}
	m := session.NewManager(store, nil)

	m.Start(ctx, "P1")
	m.Handle(ctx, "P1", "conteúdo")

	reply := m.Handle(ctx, "P1", "PUBLICAR")
	if !strings.Contains(reply, "Erro ao publicar") {
		t.Errorf("expected publish error, got %q", reply)
	}

	if !m.InSession("P1") {
		t.Error("session should survive a store failure so the teacher can retry")
	}
}
