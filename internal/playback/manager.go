// Package playback runs voice-channel clip playback. A [Manager] turns a
// user's request into a [Session] that joins the user's voice channel,
// streams one clip and disconnects, with at most one session per guild.
//
// Session lifecycle:
//
//	Idle → Connecting → Playing → Draining → Closed
//
// Every path out of Connecting or Playing, successful or not, goes through
// a single teardown that disconnects the voice connection exactly once.
package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/citabot/internal/clips"
	"github.com/MrWong99/citabot/internal/observe"
	"github.com/MrWong99/citabot/pkg/audio"
)

// DefaultConnectTimeout bounds the voice join and ready wait.
const DefaultConnectTimeout = 30 * time.Second

// Sentinel errors. Callers map them to user-facing replies with [errors.Is].
var (
	// ErrNotInVoice means the requesting user is not in a voice channel.
	ErrNotInVoice = errors.New("playback: user is not in a voice channel")

	// ErrClipNotFound means the clip does not resolve to a local file.
	ErrClipNotFound = clips.ErrClipNotFound

	// ErrSessionActive means another session already owns the guild's
	// voice connection.
	ErrSessionActive = errors.New("playback: a session is already active in this guild")

	// ErrConnectTimeout means the voice connection was not ready in time.
	ErrConnectTimeout = errors.New("playback: voice connection not ready in time")

	// ErrSessionClosed means the manager shut down.
	ErrSessionClosed = errors.New("playback: manager closed")

	// ErrEmptyClip means the decoder produced no audio.
	ErrEmptyClip = errors.New("playback: clip produced no audio")
)

// Outcome attribute values for [observe.Metrics.RecordPlayback].
const (
	outcomeCompleted      = "completed"
	outcomeFailed         = "failed"
	outcomeConnectTimeout = "connect_timeout"
	outcomeNotInVoice     = "not_in_voice"
	outcomeClipNotFound   = "clip_not_found"
	outcomeBusy           = "busy"
	outcomeShutdown       = "shutdown"
)

// VoiceLocator reports the voice channel a user currently occupies.
// Implementations return [ErrNotInVoice] (or an empty channel ID) when the
// user is not connected.
type VoiceLocator interface {
	VoiceChannel(ctx context.Context, guildID, userID string) (string, error)
}

// VoiceLocatorFunc adapts a function to [VoiceLocator].
type VoiceLocatorFunc func(ctx context.Context, guildID, userID string) (string, error)

// VoiceChannel calls f.
func (f VoiceLocatorFunc) VoiceChannel(ctx context.Context, guildID, userID string) (string, error) {
	return f(ctx, guildID, userID)
}

// ClipResolver maps a clip name to a local file. *clips.Inventory
// implements it.
type ClipResolver interface {
	Resolve(name string) (clips.Clip, error)
}

// ClipResolverFunc adapts a function to [ClipResolver].
type ClipResolverFunc func(name string) (clips.Clip, error)

// Resolve calls f.
func (f ClipResolverFunc) Resolve(name string) (clips.Clip, error) { return f(name) }

// Config holds the collaborators of a [Manager]. Platform, Voice, Clips and
// Opener are required.
type Config struct {
	Platform audio.Platform
	Voice    VoiceLocator
	Clips    ClipResolver
	Opener   audio.Opener

	// ConnectTimeout defaults to [DefaultConnectTimeout].
	ConnectTimeout time.Duration

	// Metrics defaults to [observe.DefaultMetrics].
	Metrics *observe.Metrics
}

// Request asks for one clip to be played to the user's voice channel.
type Request struct {
	GuildID string
	UserID  string
	Clip    string
}

// Manager owns the per-guild session registry.
//
// Manager is safe for concurrent use.
type Manager struct {
	cfg Config

	// base scopes streaming; it outlives individual requests and is
	// cancelled by Shutdown.
	base   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	active map[string]*Session
	closed bool
	wg     sync.WaitGroup
}

// NewManager creates a Manager. It panics if a required collaborator is nil.
func NewManager(cfg Config) *Manager {
	if cfg.Platform == nil || cfg.Voice == nil || cfg.Clips == nil || cfg.Opener == nil {
		panic("playback: Platform, Voice, Clips and Opener are required")
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observe.DefaultMetrics()
	}
	base, cancel := context.WithCancel(context.Background())
	return &Manager{
		cfg:    cfg,
		base:   base,
		cancel: cancel,
		active: make(map[string]*Session),
	}
}

// Play validates req, joins the user's voice channel and starts streaming.
// It returns once the first frame has been sent; the rest of the clip
// streams in the background and the session disconnects on its own.
//
// Play fails without touching the voice connection when the user is not in
// voice ([ErrNotInVoice]), the clip is unknown ([ErrClipNotFound]) or the
// guild already has a session ([ErrSessionActive]). A connection that is
// not ready within the connect timeout fails with [ErrConnectTimeout].
func (m *Manager) Play(ctx context.Context, req Request) (*Session, error) {
	ctx = observe.WithGuild(ctx, req.GuildID)
	channelID, err := m.cfg.Voice.VoiceChannel(ctx, req.GuildID, req.UserID)
	if errors.Is(err, ErrNotInVoice) || (err == nil && channelID == "") {
		m.cfg.Metrics.RecordPlayback(ctx, outcomeNotInVoice)
		return nil, ErrNotInVoice
	}
	if err != nil {
		m.cfg.Metrics.RecordPlayback(ctx, outcomeFailed)
		return nil, fmt.Errorf("playback: locate voice channel: %w", err)
	}

	clip, err := m.cfg.Clips.Resolve(req.Clip)
	if err != nil {
		m.cfg.Metrics.RecordPlayback(ctx, outcomeClipNotFound)
		if errors.Is(err, clips.ErrClipNotFound) {
			return nil, fmt.Errorf("playback: %w", err)
		}
		return nil, fmt.Errorf("playback: %w: %w", ErrClipNotFound, err)
	}

	s, err := m.register(req, channelID, clip)
	if err != nil {
		outcome := outcomeBusy
		if errors.Is(err, ErrSessionClosed) {
			outcome = outcomeShutdown
		}
		m.cfg.Metrics.RecordPlayback(ctx, outcome)
		return nil, err
	}

	if err := m.start(ctx, s); err != nil {
		m.teardown(s, err)
		m.wg.Done()
		return nil, err
	}

	go func() {
		defer m.wg.Done()
		m.stream(s)
	}()
	return s, nil
}

// register claims the guild for a new session. The session counts
// against m.wg until its goroutine finishes.
func (m *Manager) register(req Request, channelID string, clip clips.Clip) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrSessionClosed
	}
	if _, busy := m.active[req.GuildID]; busy {
		return nil, ErrSessionActive
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("playback: session id: %w", err)
	}
	s := &Session{
		id:        id,
		guildID:   req.GuildID,
		channelID: channelID,
		userID:    req.UserID,
		clip:      clip,
		state:     StateIdle,
		started:   time.Now(),
		done:      make(chan struct{}),
	}
	m.active[req.GuildID] = s
	m.wg.Add(1)
	m.cfg.Metrics.ActivePlayback.Add(context.Background(), 1)
	return s, nil
}

// start runs the Connecting phase and sends the first frame.
func (m *Manager) start(ctx context.Context, s *Session) error {
	_, span := observe.StartSpan(ctx, "playback.session")
	span.SetAttributes(
		attribute.String("session.id", s.id),
		attribute.String("clip", s.clip.Name),
	)
	s.span = span

	s.advance(StateConnecting)

	cctx, cancel := context.WithTimeout(ctx, m.cfg.ConnectTimeout)
	defer cancel()

	conn, err := m.cfg.Platform.Connect(cctx, s.guildID, s.channelID)
	if err != nil {
		return connectErr(cctx, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()

	if err := conn.WaitReady(cctx); err != nil {
		return connectErr(cctx, err)
	}

	src, err := m.cfg.Opener.Open(m.base, s.clip.Path)
	if err != nil {
		return fmt.Errorf("playback: open clip %q: %w", s.clip.Name, err)
	}
	s.mu.Lock()
	s.src = src
	s.mu.Unlock()

	if err := conn.Speaking(true); err != nil {
		observe.Logger(ctx).Warn("playback: failed to set speaking", "session_id", s.id, "err", err)
	}

	frame, err := src.ReadFrame(m.base)
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("playback: clip %q: %w", s.clip.Name, ErrEmptyClip)
	}
	if err != nil {
		return fmt.Errorf("playback: decode clip %q: %w", s.clip.Name, err)
	}
	if err := conn.Send(cctx, frame); err != nil {
		return connectErr(cctx, err)
	}

	s.mu.Lock()
	s.playing = time.Now()
	s.mu.Unlock()
	s.advance(StatePlaying)
	m.cfg.Metrics.PlaybackConnectDuration.Record(ctx, time.Since(s.started).Seconds())
	observe.Logger(ctx).Info("playback started",
		"session_id", s.id,
		"channel_id", s.channelID,
		"clip", s.clip.Name,
	)
	return nil
}

// connectErr maps an expired connect deadline to ErrConnectTimeout.
func connectErr(cctx context.Context, err error) error {
	if errors.Is(cctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrConnectTimeout, err)
	}
	return fmt.Errorf("playback: connect: %w", err)
}

// stream sends the remaining frames until the source is exhausted.
func (m *Manager) stream(s *Session) {
	s.mu.Lock()
	conn, src := s.conn, s.src
	s.mu.Unlock()

	for {
		frame, err := src.ReadFrame(m.base)
		if errors.Is(err, io.EOF) {
			s.advance(StateDraining)
			m.teardown(s, nil)
			return
		}
		if err == nil {
			err = conn.Send(m.base, frame)
		}
		if err != nil {
			if m.base.Err() != nil {
				err = fmt.Errorf("%w: %w", ErrSessionClosed, err)
			}
			observe.Logger(m.base).Error("playback: streaming failed",
				"session_id", s.id, "clip", s.clip.Name, "err", err)
			m.teardown(s, err)
			return
		}
	}
}

// teardown closes s exactly once: it stops the decoder, disconnects the
// voice connection and releases the guild.
func (m *Manager) teardown(s *Session, cause error) {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		conn, src, playing := s.conn, s.src, s.playing
		s.mu.Unlock()

		if src != nil {
			if err := src.Close(); err != nil {
				observe.Logger(m.base).Warn("playback: failed to close source", "session_id", s.id, "err", err)
			}
		}
		if conn != nil {
			if err := conn.Speaking(false); err != nil {
				observe.Logger(m.base).Debug("playback: failed to clear speaking", "session_id", s.id, "err", err)
			}
			if err := conn.Disconnect(); err != nil {
				observe.Logger(m.base).Warn("playback: failed to disconnect", "session_id", s.id, "err", err)
			}
		}

		s.mu.Lock()
		s.state = StateClosed
		s.err = cause
		s.mu.Unlock()

		m.mu.Lock()
		if m.active[s.guildID] == s {
			delete(m.active, s.guildID)
		}
		m.mu.Unlock()

		ctx := context.Background()
		m.cfg.Metrics.ActivePlayback.Add(ctx, -1)
		m.cfg.Metrics.RecordPlayback(ctx, outcome(cause))
		if !playing.IsZero() {
			m.cfg.Metrics.PlaybackDuration.Record(ctx, time.Since(playing).Seconds())
		}
		if s.span != nil {
			s.span.SetAttributes(attribute.String("outcome", outcome(cause)))
			observe.EndSpan(s.span, cause)
		}
		close(s.done)
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return outcomeCompleted
	case errors.Is(err, ErrConnectTimeout):
		return outcomeConnectTimeout
	case errors.Is(err, ErrSessionClosed):
		return outcomeShutdown
	default:
		return outcomeFailed
	}
}

// Active returns the session currently owning guildID, if any.
func (m *Manager) Active(guildID string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.active[guildID]
	return s, ok
}

// Shutdown rejects new requests, stops every running session and waits for
// their teardown, or until ctx is done.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.cancel()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("playback: shutdown: %w", ctx.Err())
	}
}
