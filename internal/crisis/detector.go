// Package crisis detects messages that indicate a student in distress
// and produces the canned empathetic responses for each situation.
package crisis

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/leoedu/leobot/internal/database"
)

// Category identifies a class of critical situation.
type Category string

const (
	CategorySelfHarm      Category = "self_harm"
	CategoryDropoutRisk   Category = "dropout_risk"
	CategoryBullying      Category = "bullying"
	CategoryFamilyIssues  Category = "family_issues"
	CategorySevereAnxiety Category = "severe_anxiety"
)

// Severity levels attached to alert records.
const (
	SeverityCritical = "CRITICAL"
	SeverityHigh     = "HIGH"
	SeverityMedium   = "MEDIUM"
)

// rule binds a category to its severity, patterns and canned response.
type rule struct {
	category Category
	severity string
	patterns []*regexp.Regexp
	response string
}

// rules are evaluated in declaration order and the first matching
// pattern wins. Later categories are never consulted after a match,
// even if they carry a higher severity.
var rules = []rule{
	{
		category: CategorySelfHarm,
		severity: SeverityCritical,
		patterns: compile(
			`vou\s+embora\s+para\s+sempre`,
			`quero\s+sumir`,
			`quero\s+desaparecer`,
			`não\s+aguento\s+mais`,
			`preferia\s+não\s+existir`,
			`ninguém\s+vai\s+sentir\s+minha\s+falta`,
		),
		response: `Ei, percebi que você está passando por um momento muito difícil. 😔

Quero que saiba que você é importante e que existem pessoas que se importam com você.

🆘 Por favor, converse com:
- Seus pais ou responsável
- Um professor de confiança
- CVV (Centro de Valorização da Vida): 188 (24h, gratuito)

Você não está sozinho. Vamos conversar mais sobre isso?`,
	},
	{
		category: CategoryDropoutRisk,
		severity: SeverityHigh,
		patterns: compile(
			`vou\s+sair\s+da\s+escola`,
			`vou\s+desistir`,
			`não\s+quero\s+mais\s+estudar`,
			`vou\s+parar\s+de\s+estudar`,
			`vou\s+abandonar`,
			`se\s+tirar\s+nota\s+baixa.*vou\s+sair`,
		),
		response: `Ei, entendo que você está pensando em sair da escola. 😔

Antes de tomar essa decisão, vamos conversar sobre o que está acontecendo?

Às vezes as coisas parecem impossíveis, mas existem pessoas que podem ajudar:
- Converse com seus pais
- Fale com a coordenação da escola
- Me conte mais sobre o que está te fazendo pensar nisso

O que está te deixando assim?`,
	},
	{
		category: CategoryBullying,
		severity: SeverityHigh,
		patterns: compile(
			`todo\s+mundo\s+me\s+odeia`,
			`ninguém\s+gosta\s+de\s+mim`,
			`sofro\s+bullying`,
			`me\s+xingam\s+todo\s+dia`,
			`tenho\s+medo\s+dos?\s+colegas`,
			`me\s+batem`,
		),
		response: `Sinto muito que você esteja passando por isso. 😔 Ninguém merece ser tratado assim.

🛡️ Isso é sério e precisa ser resolvido:
- Conte para seus pais HOJE
- Fale com um professor ou coordenador
- Isso não é culpa sua

Você quer me contar mais sobre o que está acontecendo? Estou aqui para te ouvir.`,
	},
	{
		category: CategoryFamilyIssues,
		severity: SeverityHigh,
		patterns: compile(
			`meus\s+pais\s+brigam\s+muito`,
			`apanho\s+em\s+casa`,
			`meu\s+pai.*bate`,
			`minha\s+mãe.*bate`,
			`não\s+tenho\s+comida`,
			`passo\s+fome`,
		),
		response: `Percebi que as coisas em casa não estão fáceis. 😔

Isso é muito sério e você precisa de ajuda de um adulto de confiança:
- Fale com um professor
- Converse com a coordenação da escola
- Disque 100 (Direitos Humanos) se precisar

Você está seguro agora? Quer conversar sobre isso?`,
	},
	{
		category: CategorySevereAnxiety,
		severity: SeverityMedium,
		patterns: compile(
			`tenho\s+muito\s+medo\s+da\s+prova`,
			`não\s+consigo\s+dormir.*prova`,
			`fico\s+tremendo.*escola`,
			`tenho\s+pavor\s+de`,
			`entro\s+em\s+pânico`,
		),
		response: `Entendo que você está com muito medo. 😔 Ansiedade antes de provas é normal, mas quando é muito forte, precisa de atenção.

💙 Algumas coisas que podem ajudar:
- Respire fundo algumas vezes
- Converse com seus pais sobre como está se sentindo
- Fale com um professor sobre sua ansiedade

Quer conversar sobre o que te deixa tão nervoso?`,
	},
}

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		out = append(out, regexp.MustCompile(`(?i)`+p))
	}

	return out
}

// AlertStore persists detected alerts.
type AlertStore interface {
	SaveAlert(ctx context.Context, alert *database.Alert) error
}

// Match describes a detected critical situation.
type Match struct {
	Alert    *database.Alert
	Category Category
	Response string
}

// Detector screens student messages for critical situations.
type Detector struct {
	store  AlertStore
	logger *slog.Logger
	now    func() time.Time
}

// NewDetector creates a detector backed by the given alert store. A
// nil logger disables logging.
func NewDetector(store AlertStore, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Detector{
		store:  store,
		logger: logger.With("component", "crisis"),
		now:    time.Now,
	}
}

// Detect checks the message against the crisis taxonomy. On a match it
// persists an alert and returns the canned response for that category.
// Persistence failures are logged but never suppress the response; the
// student must receive the supportive reply regardless.
func (d *Detector) Detect(ctx context.Context, sender, message string) *Match {
	lower := strings.ToLower(message)

	for _, r := range rules {
		for _, p := range r.patterns {
			if !p.MatchString(lower) {
				continue
			}

			now := d.now()
			alert := &database.Alert{
				AlertID:                 sender + "_" + now.Format("20060102150405"),
				CreatedAt:               now,
				Sender:                  sender,
				Severity:                r.severity,
				Category:                string(r.category),
				Message:                 message,
				MatchedRule:             p.String(),
				Status:                  database.AlertStatusNew,
				RequiresImmediateAction: r.severity == SeverityCritical || r.severity == SeverityHigh,
			}

			d.logger.ErrorContext(ctx, "critical situation detected",
				"category", r.category,
				"severity", r.severity,
				"sender", sender,
				"alert_id", alert.AlertID)

			if err := d.store.SaveAlert(ctx, alert); err != nil {
				d.logger.ErrorContext(ctx, "failed to persist alert", "error", err, "alert_id", alert.AlertID)
			}

			return &Match{Alert: alert, Category: r.category, Response: r.response}
		}
	}

	return nil
}

// Response returns the canned text for a category, falling back to a
// generic supportive message for unknown categories.
func Response(category Category) string {
	for _, r := range rules {
		if r.category == category {
			return r.response
		}
	}

	return "Percebi que você está passando por um momento difícil. Quer conversar sobre isso? 💙"
}
