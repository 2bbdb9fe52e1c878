// Package session implements the teacher publishing workflow. A
// detected teacher enters a drafting session where messages accumulate
// until an explicit publish or cancel command.
package session

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leoedu/leobot/internal/database"
)

// Commands accepted while drafting. Matched case-insensitively against
// the whole message.
const (
	CommandPublish = "PUBLICAR"
	CommandCancel  = "CANCELAR"
)

// authorKeywords mark messages that likely come from a teacher. A
// keyword hit alone is not enough; the router confirms with the model
// before starting a session.
var authorKeywords = []string{
	"sou professor",
	"sou o professor",
	"aqui é o professor",
	"professor carlos",
	"professora",
	"tarefa para",
	"aviso aos alunos",
	"comunicado",
	"atenção turma",
	"atenção 6º ano",
}

// HasAuthorKeywords reports whether the message contains any of the
// teacher identity markers.
func HasAuthorKeywords(message string) bool {
	lower := strings.ToLower(message)
	for _, kw := range authorKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}

	return false
}

// DocumentStore persists published teacher documents.
type DocumentStore interface {
	SaveDocument(ctx context.Context, doc *database.Document) error
}

type draft struct {
	buffer    []string
	startedAt time.Time
}

// Manager tracks per-sender drafting sessions. A sender is either not
// in a session or awaiting content; there are no other states.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*draft
	store    DocumentStore
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewManager creates a session manager backed by the given document
// store. A nil logger disables logging.
func NewManager(store DocumentStore, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Manager{
		sessions: make(map[string]*draft),
		store:    store,
		logger:   logger.With("component", "session"),
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
}

// InSession reports whether the sender has an active drafting session.
func (m *Manager) InSession(sender string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, found := m.sessions[sender]

	return found
}

// Start opens a drafting session for the sender and returns the
// onboarding instructions. Starting twice resets the buffer.
func (m *Manager) Start(ctx context.Context, sender string) string {
	m.mu.Lock()
	m.sessions[sender] = &draft{startedAt: m.now()}
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "drafting session started", "sender", sender)

	return `👨‍🏫 Olá, Professor(a)!

Detectei que você quer criar um novo comunicado para os alunos.

Por favor, envie a mensagem completa que deseja compartilhar com a turma. Pode incluir:
- Tarefas de casa
- Avisos importantes
- Datas de provas
- Conteúdo de estudo

Quando terminar, envie: "PUBLICAR"
Para cancelar, envie: "CANCELAR"

Aguardando sua mensagem... 📝`
}

// Handle processes one message from a sender with an active session.
// It returns the reply to send. Calling Handle for a sender without a
// session is a programming error and returns an empty string.
func (m *Manager) Handle(ctx context.Context, sender, message string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, found := m.sessions[sender]
	if !found {
		return ""
	}

	switch strings.ToUpper(strings.TrimSpace(message)) {
	case CommandPublish:
		return m.publishLocked(ctx, sender, d)
	case CommandCancel:
		delete(m.sessions, sender)
		m.logger.InfoContext(ctx, "drafting session cancelled", "sender", sender)

		return "❌ Operação cancelada. Nenhuma mensagem foi publicada."
	default:
		d.buffer = append(d.buffer, message)

		preview := strings.Join(d.buffer, "\n\n")

		return fmt.Sprintf(`📝 Mensagem adicionada ao rascunho:

---
%s
---

Continue enviando mais conteúdo ou:
- Digite "PUBLICAR" para salvar e compartilhar com os alunos
- Digite "CANCELAR" para descartar`, preview)
	}
}

// publishLocked persists the joined draft. An empty buffer is rejected
// and the session stays open; a store failure also keeps the session
// so the teacher can retry.
func (m *Manager) publishLocked(ctx context.Context, sender string, d *draft) string {
	if len(d.buffer) == 0 {
		return "❌ Nenhuma mensagem para publicar. Envie o conteúdo primeiro."
	}

	now := m.now()
	doc := &database.Document{
		ID:     m.newID(),
		Sender: sender,
		Content: fmt.Sprintf("[Mensagem do Professor - %s]\n[Enviado por: %s]\n\n%s",
			now.Format("02/01/2006 15:04"), sender, strings.Join(d.buffer, "\n\n")),
		CreatedAt: now,
	}

	if err := m.store.SaveDocument(ctx, doc); err != nil {
		m.logger.ErrorContext(ctx, "failed to persist document", "error", err, "sender", sender)

		return "❌ Erro ao publicar a mensagem. Tente enviar \"PUBLICAR\" novamente."
	}

	delete(m.sessions, sender)
	m.logger.InfoContext(ctx, "document published", "sender", sender, "document_id", doc.ID)

	return fmt.Sprintf(`✅ Mensagem publicada com sucesso, Professor(a)!

Sua mensagem foi adicionada aos documentos da escola e os alunos poderão consultá-la através do Leo.

📁 Documento: %s
⏰ Publicado em: %s

⚠️ IMPORTANTE: Para que os alunos vejam a atualização imediatamente, digite:
"REINDEXAR"

Ou aguarde a reindexação automática (ocorre a cada hora).

Obrigado por usar o sistema! 📚`, doc.ID, now.Format("02/01/2006 às 15:04"))
}
