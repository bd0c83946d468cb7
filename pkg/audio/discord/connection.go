package discord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Connection = (*Connection)(nil)

// readyPollInterval is how often WaitReady re-checks the voice handshake.
const readyPollInterval = 50 * time.Millisecond

// errDisconnected is returned by Send after Disconnect.
var errDisconnected = errors.New("discord: voice connection closed")

// Connection wraps a discordgo.VoiceConnection and adapts it to the
// [audio.Connection] interface. Outgoing PCM frames are accumulated into
// exact Opus frame sizes, encoded and pushed onto the OpusSend channel.
//
// Connection is safe for concurrent use.
type Connection struct {
	vc *discordgo.VoiceConnection

	encMu sync.Mutex
	enc   *opusEncoder
	buf   []byte

	done      chan struct{}
	closeOnce sync.Once

	// Defaults to the VoiceConnection's methods; overridden in tests.
	isReady      func() bool
	speak        func(bool) error
	disconnectVC func() error
	opusSend     chan<- []byte
}

func newConnection(vc *discordgo.VoiceConnection) *Connection {
	return &Connection{
		vc:   vc,
		done: make(chan struct{}),
		isReady: func() bool {
			vc.RLock()
			defer vc.RUnlock()
			return vc.Ready
		},
		speak:        vc.Speaking,
		disconnectVC: vc.Disconnect,
		opusSend:     vc.OpusSend,
	}
}

// WaitReady polls the voice handshake until it completes or ctx is done.
func (c *Connection) WaitReady(ctx context.Context) error {
	if c.isReady() {
		return nil
	}
	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("discord: wait for voice ready: %w", ctx.Err())
		case <-c.done:
			return errDisconnected
		case <-ticker.C:
			if c.isReady() {
				return nil
			}
		}
	}
}

// Speaking sends a speaking notification to Discord.
func (c *Connection) Speaking(speaking bool) error {
	if err := c.speak(speaking); err != nil {
		return fmt.Errorf("discord: set speaking %v: %w", speaking, err)
	}
	return nil
}

// Send encodes frame to Opus and queues it for transmission. Frames must be
// 48 kHz stereo; partial frames are buffered until a full Opus frame is
// available.
func (c *Connection) Send(ctx context.Context, frame audio.AudioFrame) error {
	if frame.Format() != audio.PlaybackFormat {
		return fmt.Errorf("discord: unsupported frame format %dHz/%dch", frame.SampleRate, frame.Channels)
	}

	c.encMu.Lock()
	defer c.encMu.Unlock()

	if c.enc == nil {
		enc, err := newOpusEncoder()
		if err != nil {
			return err
		}
		c.enc = enc
	}

	c.buf = append(c.buf, frame.Data...)
	for len(c.buf) >= audio.FrameBytes {
		packet, err := c.enc.encode(c.buf[:audio.FrameBytes])
		c.buf = c.buf[audio.FrameBytes:]
		if err != nil {
			return err
		}
		select {
		case c.opusSend <- packet:
		case <-c.done:
			return errDisconnected
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Disconnect leaves the voice channel. It is safe to call more than once;
// subsequent calls return nil.
func (c *Connection) Disconnect() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.disconnectVC != nil {
			err = c.disconnectVC()
		}
	})
	return err
}
