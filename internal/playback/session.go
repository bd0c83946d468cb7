package playback

import (
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/citabot/internal/clips"
	"github.com/MrWong99/citabot/pkg/audio"
)

// State is the lifecycle phase of a [Session]. States only move forward.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StatePlaying
	StateDraining
	StateClosed
)

// String returns the lower-case state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StatePlaying:
		return "playing"
	case StateDraining:
		return "draining"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session is one clip playback in one guild. It is created by
// [Manager.Play] and closes itself when the clip finishes or fails.
//
// Session is safe for concurrent use.
type Session struct {
	id        string
	guildID   string
	channelID string
	userID    string
	clip      clips.Clip

	mu    sync.Mutex
	state State
	err   error

	conn    audio.Connection
	src     audio.Source
	span    trace.Span
	started time.Time
	playing time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string { return s.id }

// GuildID returns the guild the session plays in.
func (s *Session) GuildID() string { return s.guildID }

// ChannelID returns the voice channel the session joined.
func (s *Session) ChannelID() string { return s.channelID }

// UserID returns the requesting user.
func (s *Session) UserID() string { return s.userID }

// Clip returns the clip being played.
func (s *Session) Clip() clips.Clip { return s.clip }

// State returns the current lifecycle phase.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the error that ended the session, or nil after a natural
// completion or while the session is still running.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Done is closed once the session reaches [StateClosed].
func (s *Session) Done() <-chan struct{} { return s.done }

// advance moves the session to next. Backward moves are ignored and
// reported as false.
func (s *Session) advance(next State) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if next <= s.state {
		return false
	}
	s.state = next
	return true
}
