package telegram

import (
	"errors"
	"fmt"
	"sync"

	"medinsight/api/internal/report"
)

type State string

const (
	StateIdle           State = "idle"
	StateUploading      State = "uploading"
	StateAnalyzing      State = "analyzing"
	StateShowingResults State = "showingResults"
	StatePlayingAudio   State = "playingAudio"
)

type Event string

const (
	EventPhoto          Event = "photo"
	EventModalityChosen Event = "modality_chosen"
	EventAnalysisDone   Event = "analysis_done"
	EventAnalysisFailed Event = "analysis_failed"
	EventListen         Event = "listen"
	EventAudioDone      Event = "audio_done"
	EventReset          Event = "reset"
)

var transitions = map[State]map[Event]State{
	StateIdle: {
		EventPhoto: StateUploading,
	},
	StateUploading: {
		EventPhoto:          StateUploading,
		EventModalityChosen: StateAnalyzing,
	},
	StateAnalyzing: {
		EventAnalysisDone:   StateShowingResults,
		EventAnalysisFailed: StateIdle,
	},
	StateShowingResults: {
		EventPhoto:  StateUploading,
		EventListen: StatePlayingAudio,
	},
	StatePlayingAudio: {
		EventAudioDone: StateShowingResults,
	},
}

// TransitionError is returned when an event is not allowed in the current state.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("event %s not allowed in state %s", e.Event, e.From)
}

// Next returns the state reached from s on ev. Reset is accepted everywhere.
func Next(s State, ev Event) (State, error) {
	if ev == EventReset {
		return StateIdle, nil
	}
	if to, ok := transitions[s][ev]; ok {
		return to, nil
	}
	return s, &TransitionError{From: s, Event: ev}
}

// ErrStale is returned by FireIf when the chat was reset or got a newer
// photo after the caller captured its generation.
var ErrStale = errors.New("session changed")

// Session is the per-chat conversation state. Gen grows on every reset and
// every accepted photo; background jobs carry it so late results are dropped.
type Session struct {
	State    State
	Gen      uint64
	Image    string
	MIMEType string
	Modality report.Modality
	Report   *report.ClinicalReport
}

// Sessions holds every chat's Session.
type Sessions struct {
	mu sync.Mutex
	m  map[int64]*Session
}

func NewSessions() *Sessions {
	return &Sessions{m: make(map[int64]*Session)}
}

// Get returns a copy of the chat's session; unknown chats are idle.
func (s *Sessions) Get(chatID int64) Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.m[chatID]; ok {
		return *cur
	}
	return Session{State: StateIdle}
}

// Claim reserves a new generation for a photo that is still downloading.
// It fails when the chat cannot take a photo now. The state is unchanged;
// the photo lands later with FireIf and the returned generation.
func (s *Sessions) Claim(chatID int64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.lookup(chatID)
	if _, err := Next(cur.State, EventPhoto); err != nil {
		return cur.Gen, err
	}
	cur.Gen++
	return cur.Gen, nil
}

// Fire applies ev and, when the transition is allowed, lets mutate update the
// session under the same lock. A rejected event leaves the session unchanged.
func (s *Sessions) Fire(chatID int64, ev Event, mutate func(*Session)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.apply(s.lookup(chatID), ev, mutate)
}

// FireIf is Fire for background jobs: it returns ErrStale unless the
// session is still at generation gen.
func (s *Sessions) FireIf(chatID int64, gen uint64, ev Event, mutate func(*Session)) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.lookup(chatID)
	if cur.Gen != gen {
		return *cur, ErrStale
	}
	return s.apply(cur, ev, mutate)
}

// lookup returns the stored session, creating an idle one. Callers hold mu.
func (s *Sessions) lookup(chatID int64) *Session {
	cur, ok := s.m[chatID]
	if !ok {
		cur = &Session{State: StateIdle}
		s.m[chatID] = cur
	}
	return cur
}

func (s *Sessions) apply(cur *Session, ev Event, mutate func(*Session)) (Session, error) {
	to, err := Next(cur.State, ev)
	if err != nil {
		return *cur, err
	}
	if ev == EventReset {
		*cur = Session{Gen: cur.Gen + 1}
	}
	cur.State = to
	if mutate != nil {
		mutate(cur)
	}
	return *cur, nil
}
