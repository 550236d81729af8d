package game

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"code-vault-go/internal/game/ranking"
)

const (
	recordTimeout = 5 * time.Second

	DefaultIdleTTL       = 10 * time.Minute
	DefaultEndedTTL      = 5 * time.Minute
	DefaultSweepInterval = time.Minute
)

type GameService interface {
	CreateSession(ctx context.Context) (State, error)
	GetState(ctx context.Context, sessionID string) (State, error)
	Insert(ctx context.Context, sessionID string, index, value int) (Mutation, error)
	Delete(ctx context.Context, sessionID string, index int) (Mutation, error)
	Search(ctx context.Context, sessionID string, pattern string) (SearchOutcome, error)
	Reset(ctx context.Context, sessionID string) (State, error)
	EndSession(ctx context.Context, sessionID string) error
	Subscribe(sessionID string) (<-chan Event, func(), error)
	FastestOutcomes(ctx context.Context, limit int) ([]Outcome, error)
	Close()
}

type ServiceOption func(*gameService)

// WithSessionOptions appends opts to every session the service creates.
func WithSessionOptions(opts ...Option) ServiceOption {
	return func(s *gameService) { s.sessionOpts = append(s.sessionOpts, opts...) }
}

// WithEviction sets how long an untouched session is kept. Inactive sessions
// are dropped after idleTTL, ended ones after endedTTL. Active sessions are
// never evicted since their clock ends them. A non-positive interval disables
// the background sweep.
func WithEviction(idleTTL, endedTTL, interval time.Duration) ServiceOption {
	return func(s *gameService) {
		s.idleTTL = idleTTL
		s.endedTTL = endedTTL
		s.sweepInterval = interval
	}
}

type sessionEntry struct {
	session *Session
	touched atomic.Int64
}

func (e *sessionEntry) touch(now time.Time) {
	e.touched.Store(now.UnixNano())
}

func (e *sessionEntry) idle(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, e.touched.Load()))
}

type gameService struct {
	settings    Settings
	store       OutcomeStore
	hub         *Hub
	logger      *slog.Logger
	sessionOpts []Option
	now         func() time.Time

	idleTTL       time.Duration
	endedTTL      time.Duration
	sweepInterval time.Duration

	mu       sync.RWMutex
	sessions map[string]*sessionEntry
	pending  sync.WaitGroup

	stop      chan struct{}
	closeOnce sync.Once
	janitor   sync.WaitGroup
}

func NewGameService(settings Settings, store OutcomeStore, logger *slog.Logger, opts ...ServiceOption) GameService {
	if logger == nil {
		logger = slog.Default()
	}
	if store == nil {
		store = NewMemoryStore()
	}
	s := &gameService{
		settings:      settings.withDefaults(),
		store:         store,
		hub:           NewHub(logger),
		logger:        logger,
		now:           time.Now,
		idleTTL:       DefaultIdleTTL,
		endedTTL:      DefaultEndedTTL,
		sweepInterval: DefaultSweepInterval,
		sessions:      make(map[string]*sessionEntry),
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepInterval > 0 {
		s.janitor.Add(1)
		go s.runJanitor()
	}
	return s
}

func (s *gameService) runJanitor() {
	defer s.janitor.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.sweep(s.now())
		case <-s.stop:
			return
		}
	}
}

// sweep evicts sessions that have gone untouched past their TTL and returns
// how many were dropped.
func (s *gameService) sweep(now time.Time) int {
	s.mu.RLock()
	var stale []string
	for id, entry := range s.sessions {
		if s.expired(entry, now) {
			stale = append(stale, id)
		}
	}
	s.mu.RUnlock()

	evicted := 0
	for _, id := range stale {
		s.mu.Lock()
		entry, ok := s.sessions[id]
		if !ok || !s.expired(entry, now) {
			s.mu.Unlock()
			continue
		}
		delete(s.sessions, id)
		s.mu.Unlock()

		entry.session.Close()
		s.hub.CloseSession(id)
		evicted++
		s.logger.Info("session evicted",
			"session_id", id,
			"idle", entry.idle(now).Round(time.Second),
		)
	}
	return evicted
}

func (s *gameService) expired(entry *sessionEntry, now time.Time) bool {
	idle := entry.idle(now)
	switch entry.session.Status() {
	case StatusEnded:
		return s.endedTTL > 0 && idle > s.endedTTL
	case StatusInactive:
		return s.idleTTL > 0 && idle > s.idleTTL
	default:
		return false
	}
}

func (s *gameService) CreateSession(ctx context.Context) (State, error) {
	if err := ctx.Err(); err != nil {
		return State{}, err
	}
	id := uuid.New().String()

	opts := append([]Option{}, s.sessionOpts...)
	opts = append(opts,
		WithID(id),
		WithSink(s.hub.Publish),
		WithEndHook(s.recordOutcome),
	)
	session := NewSession(s.settings, opts...)
	entry := &sessionEntry{session: session}
	entry.touch(s.now())

	s.mu.Lock()
	s.sessions[id] = entry
	s.mu.Unlock()

	s.logger.Info("session created", "session_id", id)
	return session.State(), nil
}

func (s *gameService) session(sessionID string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	entry.touch(s.now())
	return entry.session, nil
}

func (s *gameService) GetState(ctx context.Context, sessionID string) (State, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}
	return session.State(), nil
}

func (s *gameService) Insert(ctx context.Context, sessionID string, index, value int) (Mutation, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return Mutation{}, err
	}
	return session.Insert(index, value)
}

func (s *gameService) Delete(ctx context.Context, sessionID string, index int) (Mutation, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return Mutation{}, err
	}
	return session.Delete(index)
}

func (s *gameService) Search(ctx context.Context, sessionID string, pattern string) (SearchOutcome, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return SearchOutcome{Index: -1}, err
	}
	return session.Search(ctx, pattern)
}

func (s *gameService) Reset(ctx context.Context, sessionID string) (State, error) {
	session, err := s.session(sessionID)
	if err != nil {
		return State{}, err
	}
	session.Reset()
	return session.State(), nil
}

// EndSession stops the session and disconnects its subscribers.
func (s *gameService) EndSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	entry.session.Close()
	s.hub.CloseSession(sessionID)
	s.logger.Info("session ended", "session_id", sessionID)
	return nil
}

// Subscribe registers with the hub while holding the read lock, so a
// concurrent EndSession either sees the subscriber and closes it or runs
// first and the lookup fails.
func (s *gameService) Subscribe(sessionID string) (<-chan Event, func(), error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.sessions[sessionID]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	entry.touch(s.now())
	events, cancel := s.hub.Subscribe(sessionID)
	return events, cancel, nil
}

func (s *gameService) FastestOutcomes(ctx context.Context, limit int) ([]Outcome, error) {
	outcomes, err := s.store.Fastest(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list outcomes: %w", err)
	}
	return outcomes, nil
}

// Close stops the janitor and every session, then waits for pending outcome
// writes.
func (s *gameService) Close() {
	s.closeOnce.Do(func() { close(s.stop) })
	s.janitor.Wait()

	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*sessionEntry)
	s.mu.Unlock()

	for id, entry := range sessions {
		entry.session.Close()
		s.hub.CloseSession(id)
	}
	s.pending.Wait()
}

// recordOutcome runs as the session end hook, under the session lock, so the
// write happens on its own goroutine.
func (s *gameService) recordOutcome(outcome Outcome) {
	outcome.ID = uuid.New().String()
	outcome.Points = ranking.CalculatePoints(outcome.Won, outcome.Elapsed, s.settings.Duration)
	outcome.RankColor = ranking.GetRankByPoints(outcome.Points).Color

	s.logger.Info("game finished",
		"session_id", outcome.SessionID,
		"won", outcome.Won,
		"elapsed", outcome.Elapsed,
		"points", outcome.Points,
	)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.store.Record(ctx, outcome); err != nil {
			s.logger.Error("failed to record outcome",
				"session_id", outcome.SessionID,
				"error", err,
			)
		}
	}()
}
