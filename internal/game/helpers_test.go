package game

import (
	"math/rand"
	"sync"
	"testing"
	"time"
)

// manualTicks is a TickSource whose ticks are fired by the test.
type manualTicks struct {
	mu   sync.Mutex
	next int
	fns  map[int]func()
}

func newManualTicks() *manualTicks {
	return &manualTicks{fns: make(map[int]func())}
}

func (m *manualTicks) Every(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	id := m.next
	m.next++
	m.fns[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.fns, id)
		m.mu.Unlock()
	}
}

func (m *manualTicks) snapshot() []func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]func(), 0, len(m.fns))
	for _, fn := range m.fns {
		out = append(out, fn)
	}
	return out
}

func (m *manualTicks) Fire() {
	for _, fn := range m.snapshot() {
		fn()
	}
}

func (m *manualTicks) FireN(n int) {
	for i := 0; i < n; i++ {
		m.Fire()
	}
}

func (m *manualTicks) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fns)
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) sink(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) all() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

func (r *recorder) ofType(t EventType) []Event {
	var out []Event
	for _, ev := range r.all() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recorder) messages() []string {
	var out []string
	for _, ev := range r.ofType(EventTypeFeedback) {
		out = append(out, ev.Payload.(FeedbackPayload).Message)
	}
	return out
}

func (r *recorder) sounds() []SoundKind {
	var out []SoundKind
	for _, ev := range r.ofType(EventTypeSound) {
		out = append(out, ev.Payload.(SoundPayload).Kind)
	}
	return out
}

func fastSettings() Settings {
	settings := DefaultSettings()
	settings.StepDelay = time.Millisecond
	return settings
}

func newTestSession(t *testing.T, settings Settings) (*Session, *manualTicks, *recorder) {
	t.Helper()
	ticks := newManualTicks()
	rec := &recorder{}
	s := NewSession(settings,
		WithID("test-session"),
		WithRand(rand.New(rand.NewSource(42))),
		WithTickSource(ticks),
		WithSink(rec.sink),
	)
	t.Cleanup(s.Close)
	return s, ticks, rec
}

func plantSecret(s *Session, digits ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.secret.set(digits)
}

func fill(t *testing.T, s *Session, values ...int) {
	t.Helper()
	for i, v := range values {
		if _, err := s.Insert(i, v); err != nil {
			t.Fatalf("insert %d at %d: %v", v, i, err)
		}
	}
}
