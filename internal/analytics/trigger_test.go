package analytics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/leoedu/leobot/internal/analytics"
	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/llm"
)

type fakeScorer struct {
	result *llm.Engagement
	err    error
	calls  int
}

func (f *fakeScorer) ScoreEngagement(_ context.Context, _ []database.Turn) (*llm.Engagement, error) {
	f.calls++

	return f.result, f.err
}

type fakeRecordStore struct {
	saved []*database.EngagementRecord
	err   error
}

func (f *fakeRecordStore) SaveEngagementRecord(_ context.Context, record *database.EngagementRecord) error {
	if f.err != nil {
		return f.err
	}

	f.saved = append(f.saved, record)

	return nil
}

func userTurn(content string) database.Turn {
	return database.Turn{Sender: "S1", Role: database.RoleUser, Content: content}
}

func assistantTurn(content string) database.Turn {
	return database.Turn{Sender: "S1", Role: database.RoleAssistant, Content: content}
}

func TestEligible(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		turns []database.Turn
		want  bool
	}{
		{
			name:  "greeting only exchange",
			turns: []database.Turn{userTurn("Oi"), assistantTurn("Olá! Qual é o seu nome?")},
			want:  false,
		},
		{
			name: "three turns but minimal content",
			turns: []database.Turn{
				userTurn("Oi"), assistantTurn("Olá!"),
				userTurn("blz"), assistantTurn("E aí!"),
				userTurn("vc ae"),
			},
			want: false,
		},
		{
			name: "substantial conversation",
			turns: []database.Turn{
				userTurn("Oi, tudo bem?"), assistantTurn("Olá!"),
				userTurn("Estou com dúvida em frações"), assistantTurn("Vamos lá!"),
				userTurn("Como somo frações com denominadores diferentes?"),
			},
			want: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := analytics.Eligible(tc.turns); got != tc.want {
				t.Errorf("Eligible() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTriggerSkipsIneligible(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{result: llm.NeutralEngagement()}
	store := &fakeRecordStore{}
	trig := analytics.NewTrigger(scorer, store, nil)

	trig.Run(context.Background(), "S1", []database.Turn{userTurn("Oi")})

	if scorer.calls != 0 {
		t.Error("scorer should not run for ineligible conversations")
	}

	if len(store.saved) != 0 {
		t.Error("no record should be saved for ineligible conversations")
	}
}

func TestTriggerPersistsScores(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{result: &llm.Engagement{
		Behavioral: 0.9,
		Emotional:  0.8,
		Cognitive:  0.7,
		RiskScore:  0.2,
		Evidence:   []string{"Como somo frações?"},
		School:     llm.DefaultSchool,
		City:       llm.DefaultCity,
		Lat:        llm.DefaultLat,
		Lon:        llm.DefaultLon,
	}}
	store := &fakeRecordStore{}
	trig := analytics.NewTrigger(scorer, store, nil)

	turns := []database.Turn{
		userTurn("Oi, tudo bem?"), assistantTurn("Olá!"),
		userTurn("Estou com dúvida em frações"), assistantTurn("Vamos lá!"),
		userTurn("Como somo frações com denominadores diferentes?"),
	}

	trig.Run(context.Background(), "S1", turns)

	if len(store.saved) != 1 {
		t.Fatalf("saved %d records, want 1", len(store.saved))
	}

	rec := store.saved[0]
	if rec.Sender != "S1" || rec.RiskScore != 0.2 {
		t.Errorf("record = %+v, want sender S1 with risk 0.2", rec)
	}

	if rec.City != llm.DefaultCity {
		t.Errorf("city = %q, want %q", rec.City, llm.DefaultCity)
	}
}

func TestTriggerFailOpenNeutralRecord(t *testing.T) {
	t.Parallel()

	scorer := &fakeScorer{err: errors.New("model unavailable")}
	store := &fakeRecordStore{}
	trig := analytics.NewTrigger(scorer, store, nil)

	turns := []database.Turn{
		userTurn("Oi, tudo bem?"), assistantTurn("Olá!"),
		userTurn("Estou com dúvida em frações"), assistantTurn("Vamos lá!"),
		userTurn("Como somo frações com denominadores diferentes?"),
	}

	trig.Run(context.Background(), "S1", turns)

	if len(store.saved) != 1 {
		t.Fatalf("saved %d records, want 1 neutral record on scoring failure", len(store.saved))
	}

	rec := store.saved[0]
	if rec.RiskScore != 0.5 || rec.Behavioral != 0.5 {
		t.Errorf("record = %+v, want neutral 0.5 scores", rec)
	}
}
