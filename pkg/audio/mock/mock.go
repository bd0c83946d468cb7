// Package mock provides in-memory mock implementations of the
// [audio.Platform], [audio.Connection], [audio.Opener] and [audio.Source]
// interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and arguments, and they expose
// exported fields that the test can set to control return values.
//
// Typical usage:
//
//	conn := &mock.Connection{}
//	platform := &mock.Platform{ConnectResult: conn}
//	opener := &mock.Opener{OpenResult: mock.NewSource(3)}
package mock

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/MrWong99/citabot/pkg/audio"
)

// ─── Connection ───────────────────────────────────────────────────────────────

// Connection is a mock implementation of [audio.Connection].
// Set the exported fields before use; inspect the CallCount* fields after.
type Connection struct {
	mu sync.Mutex

	// WaitReadyError is returned by WaitReady.
	WaitReadyError error

	// WaitReadyBlocks makes WaitReady block until its context is done and
	// return ctx.Err(), simulating a connection that never becomes ready.
	WaitReadyBlocks bool

	// SendError is returned by Send once FailAfter frames were accepted.
	SendError error

	// FailAfter is the number of frames Send accepts before returning
	// SendError. Ignored when SendError is nil.
	FailAfter int

	// DisconnectError is returned by the first Disconnect call.
	DisconnectError error

	// SpeakingError is returned by every Speaking call.
	SpeakingError error

	CallCountWaitReady  int
	CallCountSend       int
	CallCountDisconnect int

	// SpeakingCalls records the arguments of every Speaking call.
	SpeakingCalls []bool

	// SentAfterDisconnect counts Send calls made after Disconnect.
	SentAfterDisconnect int

	disconnected bool
}

// WaitReady implements [audio.Connection].
func (c *Connection) WaitReady(ctx context.Context) error {
	c.mu.Lock()
	c.CallCountWaitReady++
	blocks, err := c.WaitReadyBlocks, c.WaitReadyError
	c.mu.Unlock()

	if blocks {
		<-ctx.Done()
		return ctx.Err()
	}
	return err
}

// Speaking implements [audio.Connection].
func (c *Connection) Speaking(speaking bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.SpeakingCalls = append(c.SpeakingCalls, speaking)
	return c.SpeakingError
}

// Send implements [audio.Connection].
func (c *Connection) Send(ctx context.Context, _ audio.AudioFrame) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.disconnected {
		c.SentAfterDisconnect++
	}
	if c.SendError != nil && c.CallCountSend >= c.FailAfter {
		c.CallCountSend++
		return c.SendError
	}
	c.CallCountSend++
	return nil
}

// Disconnect implements [audio.Connection].
func (c *Connection) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountDisconnect++
	if c.disconnected {
		return nil
	}
	c.disconnected = true
	return c.DisconnectError
}

// Disconnects returns CallCountDisconnect under the lock.
func (c *Connection) Disconnects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCountDisconnect
}

// Speakings returns a copy of SpeakingCalls under the lock.
func (c *Connection) Speakings() []bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]bool(nil), c.SpeakingCalls...)
}

// Sends returns CallCountSend under the lock.
func (c *Connection) Sends() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CallCountSend
}

// ─── Platform ─────────────────────────────────────────────────────────────────

// ConnectCall records the arguments of a single [Platform.Connect] invocation.
type ConnectCall struct {
	GuildID   string
	ChannelID string
}

// Platform is a mock implementation of [audio.Platform].
type Platform struct {
	mu sync.Mutex

	// ConnectResult is the [audio.Connection] returned by Connect.
	ConnectResult audio.Connection

	// ConnectError is the error returned by Connect.
	ConnectError error

	// ConnectCalls records all Connect invocations.
	ConnectCalls []ConnectCall
}

// Connect implements [audio.Platform].
func (p *Platform) Connect(_ context.Context, guildID, channelID string) (audio.Connection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ConnectCalls = append(p.ConnectCalls, ConnectCall{GuildID: guildID, ChannelID: channelID})
	if p.ConnectError != nil {
		return nil, p.ConnectError
	}
	return p.ConnectResult, nil
}

// Calls returns a copy of ConnectCalls under the lock.
func (p *Platform) Calls() []ConnectCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]ConnectCall, len(p.ConnectCalls))
	copy(out, p.ConnectCalls)
	return out
}

// ─── Source / Opener ─────────────────────────────────────────────────────────

// Source is a mock implementation of [audio.Source] that yields Frames
// silent frames and then returns Err (io.EOF when nil).
type Source struct {
	mu sync.Mutex

	// Frames is the number of frames produced before Err.
	Frames int

	// Err is returned after Frames frames. Defaults to io.EOF.
	Err error

	// HoldAt, when Release is non-nil, makes the HoldAt-th ReadFrame call
	// (zero-based) block until Release is closed or ctx is done.
	HoldAt  int
	Release chan struct{}

	CallCountRead  int
	CallCountClose int
}

// NewSource returns a Source that yields n frames and then io.EOF.
func NewSource(n int) *Source {
	return &Source{Frames: n}
}

// ReadFrame implements [audio.Source].
func (s *Source) ReadFrame(ctx context.Context) (audio.AudioFrame, error) {
	s.mu.Lock()
	idx := s.CallCountRead
	s.CallCountRead++
	release := s.Release
	s.mu.Unlock()

	if release != nil && idx == s.HoldAt {
		select {
		case <-release:
		case <-ctx.Done():
			return audio.AudioFrame{}, ctx.Err()
		}
	}

	if idx >= s.Frames {
		if s.Err != nil {
			return audio.AudioFrame{}, s.Err
		}
		return audio.AudioFrame{}, io.EOF
	}
	return audio.AudioFrame{
		Data:       make([]byte, audio.FrameBytes),
		SampleRate: audio.PlaybackFormat.SampleRate,
		Channels:   audio.PlaybackFormat.Channels,
		Timestamp:  time.Duration(idx) * audio.FrameDuration,
	}, nil
}

// Close implements [audio.Source].
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountClose++
	return nil
}

// Closes returns CallCountClose under the lock.
func (s *Source) Closes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.CallCountClose
}

// Opener is a mock implementation of [audio.Opener].
type Opener struct {
	mu sync.Mutex

	// OpenResult is returned by Open.
	OpenResult audio.Source

	// OpenError is returned by Open when non-nil.
	OpenError error

	// OpenCalls records the path argument of every Open call.
	OpenCalls []string
}

// Open implements [audio.Opener].
func (o *Opener) Open(_ context.Context, path string) (audio.Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.OpenCalls = append(o.OpenCalls, path)
	if o.OpenError != nil {
		return nil, o.OpenError
	}
	return o.OpenResult, nil
}
