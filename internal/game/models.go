package game

import (
	"time"
)

// EventType represents the kinds of events a session emits to the presentation layer
type EventType string

const (
	EventTypeRender          EventType = "render"
	EventTypeFeedback        EventType = "feedback"
	EventTypePatternDisplay  EventType = "pattern_display"
	EventTypeTimerTick       EventType = "timer_tick"
	EventTypeTimerLowWarning EventType = "timer_low_warning"
	EventTypeTimerExpired    EventType = "timer_expired"
	EventTypeSearchHighlight EventType = "search_highlight"
	EventTypeSearchFound     EventType = "search_found"
	EventTypeSound           EventType = "sound"
)

// Status represents the activity state of a session
type Status string

const (
	StatusInactive Status = "inactive"
	StatusActive   Status = "active"
	StatusEnded    Status = "ended"
)

// AnimationType tells the renderer how the last mutation should be animated
type AnimationType string

const (
	AnimationNone   AnimationType = "none"
	AnimationInsert AnimationType = "insert"
	AnimationDelete AnimationType = "delete"
)

// FeedbackLevel represents the severity of a feedback message
type FeedbackLevel string

const (
	LevelInfo    FeedbackLevel = "info"
	LevelError   FeedbackLevel = "error"
	LevelSuccess FeedbackLevel = "success"
)

// SoundKind represents the audio cue the presentation layer should play
type SoundKind string

const (
	SoundInsert SoundKind = "insert"
	SoundError  SoundKind = "error"
	SoundWin    SoundKind = "win"
)

// Event is a single outbound notification from a session
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// AnimationHint describes which cell a render should animate
type AnimationHint struct {
	Type  AnimationType `json:"type"`
	Index int           `json:"index"`
}

type RenderPayload struct {
	Snapshot  []int         `json:"snapshot"`
	Animation AnimationHint `json:"animation"`
}

type FeedbackPayload struct {
	Message string        `json:"message"`
	Level   FeedbackLevel `json:"level"`
}

type PatternPayload struct {
	Secret []int  `json:"secret"`
	Text   string `json:"text"`
}

type TimerPayload struct {
	Remaining int `json:"remaining"`
}

type LowTimePayload struct {
	Low bool `json:"low"`
}

// HighlightPayload carries the cell indices a search step covers
type HighlightPayload struct {
	Indices []int `json:"indices"`
	On      bool  `json:"on"`
}

type SoundPayload struct {
	Kind SoundKind `json:"kind"`
}

// EventSink receives session events. It is called with the session lock held
// and must not call back into the session.
type EventSink func(Event)

// Mutation reports a successful insert or delete
type Mutation struct {
	Type     AnimationType `json:"type"`
	Index    int           `json:"index"`
	Value    int           `json:"value"`
	Snapshot []int         `json:"snapshot"`
}

// SearchOutcome reports how a search ended
type SearchOutcome struct {
	Found     bool  `json:"found"`
	Index     int   `json:"index"`
	Offsets   int   `json:"offsets"`
	Won       bool  `json:"won"`
	Elapsed   int   `json:"elapsed,omitempty"`
	Cancelled bool  `json:"cancelled,omitempty"`
	Pattern   []int `json:"pattern"`
}

// State is a read-only snapshot of a session
type State struct {
	ID        string `json:"id"`
	Status    Status `json:"status"`
	Sequence  []int  `json:"sequence"`
	Secret    []int  `json:"secret"`
	Remaining int    `json:"remaining"`
	Duration  int    `json:"duration"`
	Searching bool   `json:"searching"`
	MaxSize   int    `json:"max_size"`
}

// Outcome represents a finished game as written to the outcome log
type Outcome struct {
	ID         string    `json:"id" db:"id"`
	SessionID  string    `json:"session_id" db:"session_id"`
	Won        bool      `json:"won" db:"won"`
	Elapsed    int       `json:"elapsed" db:"elapsed_seconds"`
	Secret     []int     `json:"secret" db:"-"`
	Sequence   []int     `json:"sequence" db:"-"`
	Points     int       `json:"points" db:"points"`
	RankColor  string    `json:"rank_color" db:"rank_color"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}
