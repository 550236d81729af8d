package game

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"
)

// Settings holds the tunables of a single game
type Settings struct {
	MaxSize          int           `json:"max_size"`
	SecretLength     int           `json:"secret_length"`
	Duration         int           `json:"duration"`
	TickInterval     time.Duration `json:"tick_interval"`
	StepDelay        time.Duration `json:"step_delay"`
	LowTimeThreshold int           `json:"low_time_threshold"`
}

// DefaultSettings returns the classic 10 cell, 3 digit, 60 second game
func DefaultSettings() Settings {
	return Settings{
		MaxSize:          DefaultMaxSize,
		SecretLength:     DefaultSecretLength,
		Duration:         DefaultDuration,
		TickInterval:     DefaultTickInterval,
		StepDelay:        DefaultStepDelay,
		LowTimeThreshold: DefaultLowTime,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()
	if s.MaxSize <= 0 {
		s.MaxSize = def.MaxSize
	}
	if s.SecretLength <= 0 {
		s.SecretLength = def.SecretLength
	}
	if s.Duration <= 0 {
		s.Duration = def.Duration
	}
	if s.TickInterval <= 0 {
		s.TickInterval = def.TickInterval
	}
	if s.StepDelay <= 0 {
		s.StepDelay = def.StepDelay
	}
	if s.LowTimeThreshold == 0 {
		s.LowTimeThreshold = def.LowTimeThreshold
	}
	return s
}

type Option func(*Session)

func WithID(id string) Option {
	return func(s *Session) { s.ID = id }
}

// WithSink routes events to sink. See EventSink for its constraints.
func WithSink(sink EventSink) Option {
	return func(s *Session) {
		if sink != nil {
			s.sink = sink
		}
	}
}

func WithRand(rng *rand.Rand) Option {
	return func(s *Session) { s.rng = rng }
}

func WithTickSource(src TickSource) Option {
	return func(s *Session) { s.ticks = src }
}

// WithEndHook registers fn to receive the outcome when a game ends. fn runs
// with the session lock held and must not block.
func WithEndHook(fn func(Outcome)) Option {
	return func(s *Session) { s.onEnd = fn }
}

// Session orchestrates one game: sequence, secret, clock and search.
type Session struct {
	ID       string
	settings Settings

	mu        sync.Mutex
	seq       *Sequence
	secret    *SecretPattern
	clock     *Clock
	engine    *SearchEngine
	status    Status
	searching bool
	lowWarned bool

	// epoch is bumped on reset and on time-up; a search started in an older
	// epoch applies no effects when it resumes.
	epoch       uint64
	epochCtx    context.Context
	epochCancel context.CancelFunc

	sink  EventSink
	onEnd func(Outcome)
	rng   *rand.Rand
	ticks TickSource
	now   func() time.Time
}

// NewSession builds a session and resets it, so the first events are the
// fresh-game render, feedback and pattern display.
func NewSession(settings Settings, opts ...Option) *Session {
	s := &Session{
		settings: settings.withDefaults(),
		sink:     func(Event) {},
		ticks:    RealTicks,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s.seq = NewSequence(s.settings.MaxSize)
	s.secret = NewSecretPattern(s.rng)
	s.clock = NewClock(s.settings.Duration, s.settings.TickInterval, s.ticks, s.handleTick, s.handleExpire)
	s.engine = NewSearchEngine(s.settings.StepDelay)

	s.Reset()
	return s
}

func (s *Session) Settings() Settings { return s.settings }

// Reset starts a new game from any state. It always succeeds.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clock.Reset(s.settings.Duration)
	s.seq.Clear()
	s.secret.Generate(s.settings.SecretLength)
	s.status = StatusInactive
	s.lowWarned = false
	s.bumpEpochLocked()

	s.emitLocked(EventTypeTimerTick, TimerPayload{Remaining: s.settings.Duration})
	s.emitLocked(EventTypeTimerLowWarning, LowTimePayload{Low: false})
	s.feedbackLocked("New game started. Make your first move to begin.", LevelInfo)
	secret := s.secret.Values()
	s.emitLocked(EventTypePatternDisplay, PatternPayload{Secret: secret, Text: FormatPattern(secret)})
	s.emitLocked(EventTypeRender, RenderPayload{
		Snapshot:  s.seq.Values(),
		Animation: AnimationHint{Type: AnimationNone},
	})
}

// Close stops the clock and cancels any in-flight search.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock.Stop()
	s.bumpEpochLocked()
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{
		ID:        s.ID,
		Status:    s.status,
		Sequence:  s.seq.Values(),
		Secret:    s.secret.Values(),
		Remaining: s.clock.Remaining(),
		Duration:  s.settings.Duration,
		Searching: s.searching,
		MaxSize:   s.seq.Cap(),
	}
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Insert(index, value int) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginIntentLocked(); err != nil {
		return Mutation{}, err
	}
	if err := s.seq.Insert(index, value); err != nil {
		return Mutation{}, s.failLocked(err)
	}

	snapshot := s.seq.Values()
	s.emitLocked(EventTypeRender, RenderPayload{
		Snapshot:  snapshot,
		Animation: AnimationHint{Type: AnimationInsert, Index: index},
	})
	s.feedbackLocked(fmt.Sprintf("Inserted %d at index %d.", value, index), LevelInfo)
	s.soundLocked(SoundInsert)
	return Mutation{Type: AnimationInsert, Index: index, Value: value, Snapshot: snapshot}, nil
}

// Delete removes the element at index. The render event already carries the
// shrunk sequence; the presentation may play the exit animation first.
func (s *Session) Delete(index int) (Mutation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.beginIntentLocked(); err != nil {
		return Mutation{}, err
	}
	removed, err := s.seq.Delete(index)
	if err != nil {
		return Mutation{}, s.failLocked(err)
	}

	snapshot := s.seq.Values()
	s.emitLocked(EventTypeRender, RenderPayload{
		Snapshot:  snapshot,
		Animation: AnimationHint{Type: AnimationDelete, Index: index},
	})
	s.feedbackLocked(fmt.Sprintf("Deleted element at index %d.", index), LevelInfo)
	s.soundLocked(SoundError)
	return Mutation{Type: AnimationDelete, Index: index, Value: removed, Snapshot: snapshot}, nil
}

// Search parses patternText and scans the sequence for it. It blocks until
// the scan ends or ctx is done; ctx only bounds the wait, the scan itself
// stops on reset or time-up.
func (s *Session) Search(ctx context.Context, patternText string) (SearchOutcome, error) {
	pattern, parseErr := ParsePattern(patternText)

	s.mu.Lock()
	if parseErr != nil {
		err := s.failLocked(parseErr)
		s.mu.Unlock()
		return SearchOutcome{Index: -1}, err
	}
	if err := s.beginIntentLocked(); err != nil {
		s.mu.Unlock()
		return SearchOutcome{Index: -1, Pattern: pattern}, err
	}
	if s.searching {
		err := s.failLocked(ErrSearchInProgress)
		s.mu.Unlock()
		return SearchOutcome{Index: -1, Pattern: pattern}, err
	}
	s.searching = true
	epoch, searchCtx := s.epoch, s.epochCtx
	s.feedbackLocked("Searching for pattern...", LevelInfo)
	s.mu.Unlock()

	done := make(chan SearchOutcome, 1)
	go func() {
		done <- s.runSearch(searchCtx, epoch, pattern)
	}()

	select {
	case out := <-done:
		return out, nil
	case <-ctx.Done():
		return SearchOutcome{Index: -1, Pattern: pattern}, ctx.Err()
	}
}

func (s *Session) runSearch(ctx context.Context, epoch uint64, pattern []int) SearchOutcome {
	out := SearchOutcome{Index: -1, Pattern: pattern}

	res, err := s.engine.Run(ctx, sessionSource{s}, pattern, func(st Step) bool {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.epoch != epoch {
			return false
		}
		if s.expirePendingLocked() {
			return false
		}
		s.applyStepLocked(st, pattern, &out)
		return true
	})

	s.mu.Lock()
	if s.epoch == epoch {
		s.searching = false
	}
	s.mu.Unlock()

	out.Offsets = res.Offsets
	if err != nil {
		out.Cancelled = true
		out.Won = false
		return out
	}
	out.Found, out.Index = res.Found, res.Index
	return out
}

func (s *Session) applyStepLocked(st Step, pattern []int, out *SearchOutcome) {
	switch st.Kind {
	case StepHighlightStart:
		s.emitLocked(EventTypeSearchHighlight, HighlightPayload{Indices: st.Indices(), On: true})
	case StepHighlightEnd:
		s.emitLocked(EventTypeSearchHighlight, HighlightPayload{Indices: st.Indices(), On: false})
	case StepFound:
		s.emitLocked(EventTypeSearchFound, HighlightPayload{Indices: st.Indices(), On: true})
		s.feedbackLocked(fmt.Sprintf("Pattern found at index %d!", st.Index), LevelSuccess)
		if s.status == StatusActive && s.secret.Equals(pattern) {
			s.winLocked(out)
		}
	case StepNotFound:
		s.feedbackLocked("Pattern not found.", LevelError)
	}
}

func (s *Session) winLocked(out *SearchOutcome) {
	s.clock.Stop()
	elapsed := s.settings.Duration - s.clock.Remaining()
	s.status = StatusEnded
	out.Won, out.Elapsed = true, elapsed

	s.feedbackLocked(fmt.Sprintf("CODE CRACKED in %d seconds!", elapsed), LevelSuccess)
	s.soundLocked(SoundWin)
	s.endLocked(true, elapsed)
}

func (s *Session) handleTick(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// the expiring tick is reported by expireLocked
	if t.Expired || s.status != StatusActive || !s.clock.Current(t.Run) {
		return
	}
	s.emitLocked(EventTypeTimerTick, TimerPayload{Remaining: t.Remaining})
	s.lowWarningLocked(t.Remaining)
}

func (s *Session) handleExpire(t Tick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.clock.Current(t.Run) {
		return
	}
	s.expireLocked()
}

// expirePendingLocked ends the game when the clock has run out but its expiry
// callback has not been delivered yet, so time-up wins every race.
func (s *Session) expirePendingLocked() bool {
	if s.status == StatusActive && s.clock.Remaining() <= 0 {
		s.expireLocked()
		return true
	}
	return false
}

func (s *Session) expireLocked() {
	if s.status != StatusActive {
		return
	}
	s.clock.Stop()
	s.status = StatusEnded
	s.bumpEpochLocked()

	s.emitLocked(EventTypeTimerTick, TimerPayload{Remaining: 0})
	s.lowWarningLocked(0)
	s.emitLocked(EventTypeTimerExpired, nil)
	s.feedbackLocked("Time's up! The vault is locked!", LevelError)
	s.endLocked(false, s.settings.Duration)
}

func (s *Session) lowWarningLocked(remaining int) {
	if s.lowWarned || remaining > s.settings.LowTimeThreshold {
		return
	}
	s.lowWarned = true
	s.emitLocked(EventTypeTimerLowWarning, LowTimePayload{Low: true})
}

// beginIntentLocked activates an inactive game and rejects intents on an
// ended one.
func (s *Session) beginIntentLocked() error {
	s.expirePendingLocked()
	if s.status == StatusInactive {
		s.status = StatusActive
		s.clock.Start()
		s.feedbackLocked("Timer started! Find the secret code.", LevelInfo)
	}
	if s.status != StatusActive {
		return s.failLocked(ErrGameOver)
	}
	return nil
}

func (s *Session) bumpEpochLocked() {
	s.epoch++
	if s.epochCancel != nil {
		s.epochCancel()
	}
	s.epochCtx, s.epochCancel = context.WithCancel(context.Background())
	s.searching = false
}

func (s *Session) endLocked(won bool, elapsed int) {
	if s.onEnd == nil {
		return
	}
	s.onEnd(Outcome{
		SessionID:  s.ID,
		Won:        won,
		Elapsed:    elapsed,
		Secret:     s.secret.Values(),
		Sequence:   s.seq.Values(),
		FinishedAt: s.now().UTC(),
	})
}

func (s *Session) failLocked(err error) error {
	s.feedbackLocked(feedbackText(err), LevelError)
	s.soundLocked(SoundError)
	return err
}

func (s *Session) feedbackLocked(msg string, level FeedbackLevel) {
	s.emitLocked(EventTypeFeedback, FeedbackPayload{Message: msg, Level: level})
}

func (s *Session) soundLocked(kind SoundKind) {
	s.emitLocked(EventTypeSound, SoundPayload{Kind: kind})
}

func (s *Session) emitLocked(t EventType, payload any) {
	s.sink(Event{
		Type:      t,
		SessionID: s.ID,
		Timestamp: s.now(),
		Payload:   payload,
	})
}

// feedbackText turns an error into a player-facing sentence.
func feedbackText(err error) string {
	msg := err.Error()
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	msg = string(unicode.ToUpper(r)) + msg[size:]
	if !strings.HasSuffix(msg, ".") && !strings.HasSuffix(msg, ")") {
		msg += "."
	}
	return msg
}

// sessionSource gives the search engine locked, live reads of the sequence.
type sessionSource struct{ s *Session }

func (src sessionSource) Slice(start, n int) ([]int, error) {
	src.s.mu.Lock()
	defer src.s.mu.Unlock()
	return src.s.seq.Slice(start, n)
}
