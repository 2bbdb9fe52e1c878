package webhook_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/leoedu/leobot/internal/database"
	"github.com/leoedu/leobot/internal/router"
	"github.com/leoedu/leobot/internal/webhook"
)

type fakeRouter struct {
	result router.Result
}

func (f *fakeRouter) Handle(_ context.Context, _, _ string) router.Result {
	return f.result
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []string
	errors []error
}

func (f *fakeSender) Send(_ context.Context, _, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.sent = append(f.sent, text)

	if len(f.errors) > 0 {
		err := f.errors[0]
		f.errors = f.errors[1:]

		return err
	}

	return nil
}

func (f *fakeSender) sentMessages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]string, len(f.sent))
	copy(out, f.sent)

	return out
}

type fakeAnalytics struct {
	mu    sync.Mutex
	runs  int
	done  chan struct{}
	panic bool
}

func (f *fakeAnalytics) Run(_ context.Context, _ string, _ []database.Turn) {
	if f.panic {
		close(f.done)
		panic("boom")
	}

	f.mu.Lock()
	f.runs++
	f.mu.Unlock()

	close(f.done)
}

func (f *fakeAnalytics) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.runs
}

type fakeTurnLog struct{}

func (fakeTurnLog) All(_ string) []database.Turn {
	return []database.Turn{{Sender: "S1", Role: database.RoleUser, Content: "oi"}}
}

func TestProcessorSendsReplyAndRunsAnalytics(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	analytics := &fakeAnalytics{done: make(chan struct{})}
	p := webhook.NewProcessor(
		&fakeRouter{result: router.Result{Reply: "olá!", TriggerAnalytics: true}},
		sender, analytics, fakeTurnLog{}, nil, "desculpa", nil)

	p.Process(context.Background(), "S1", "oi")

	if got := sender.sentMessages(); len(got) != 1 || got[0] != "olá!" {
		t.Fatalf("sent = %v, want [olá!]", got)
	}

	select {
	case <-analytics.done:
	case <-time.After(time.Second):
		t.Fatal("analytics task did not run")
	}

	if analytics.runCount() != 1 {
		t.Errorf("analytics runs = %d, want 1", analytics.runCount())
	}
}

func TestProcessorEmptyReplySendsNothing(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{}
	p := webhook.NewProcessor(&fakeRouter{}, sender,
		&fakeAnalytics{done: make(chan struct{})}, fakeTurnLog{}, nil, "desculpa", nil)

	p.Process(context.Background(), "S1", "oi")

	if got := sender.sentMessages(); len(got) != 0 {
		t.Errorf("sent = %v, want nothing for an empty reply", got)
	}
}

func TestProcessorSendFailureTriggersApology(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{errors: []error{errors.New("gateway down")}}
	analytics := &fakeAnalytics{done: make(chan struct{})}
	p := webhook.NewProcessor(
		&fakeRouter{result: router.Result{Reply: "olá!", TriggerAnalytics: true}},
		sender, analytics, fakeTurnLog{}, nil, "desculpa", nil)

	p.Process(context.Background(), "S1", "oi")

	got := sender.sentMessages()
	if len(got) != 2 || got[1] != "desculpa" {
		t.Fatalf("sent = %v, want the reply attempt followed by the apology", got)
	}

	// No analytics after a failed delivery.
	select {
	case <-analytics.done:
		t.Fatal("analytics must not run after a failed send")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestProcessorApologyFailureIsSwallowed(t *testing.T) {
	t.Parallel()

	sender := &fakeSender{errors: []error{errors.New("down"), errors.New("still down")}}
	p := webhook.NewProcessor(
		&fakeRouter{result: router.Result{Reply: "olá!"}},
		sender, &fakeAnalytics{done: make(chan struct{})}, fakeTurnLog{}, nil, "desculpa", nil)

	// Must not panic or propagate anything.
	p.Process(context.Background(), "S1", "oi")

	if got := sender.sentMessages(); len(got) != 2 {
		t.Errorf("sent %d messages, want 2 attempts", len(got))
	}
}

func TestProcessorAnalyticsPanicIsContained(t *testing.T) {
	t.Parallel()

	analytics := &fakeAnalytics{done: make(chan struct{}), panic: true}
	p := webhook.NewProcessor(
		&fakeRouter{result: router.Result{Reply: "olá!", TriggerAnalytics: true}},
		&fakeSender{}, analytics, fakeTurnLog{}, nil, "desculpa", nil)

	p.Process(context.Background(), "S1", "oi")

	select {
	case <-analytics.done:
	case <-time.After(time.Second):
		t.Fatal("analytics task did not start")
	}

	// Give the recover a moment; the test passes if nothing crashed.
	time.Sleep(20 * time.Millisecond)
}
