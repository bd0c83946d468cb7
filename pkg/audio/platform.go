// Package audio defines the interfaces and types for voice-channel playback
// within citabot.
//
// The primary abstractions are:
//
//   - [Platform] joins a voice channel and returns a [Connection].
//   - [Connection] is one established voice connection that accepts PCM
//     frames for transmission until it is disconnected.
//   - [Opener] and [Source] decode a local audio file into PCM frames.
//
// Implementations are provided by adapter packages (audio/discord,
// audio/ffmpeg). Test doubles live in audio/mock.
package audio

import (
	"context"
)

// Connection is an established voice connection.
//
// A Connection is obtained from [Platform.Connect] and stays valid until
// [Connection.Disconnect] is called. Implementations must be safe for
// concurrent use.
type Connection interface {
	// WaitReady blocks until the connection can carry audio or ctx is done.
	WaitReady(ctx context.Context) error

	// Speaking toggles the speaking indicator shown to channel members.
	Speaking(speaking bool) error

	// Send transmits one PCM frame. It blocks while the transport is
	// saturated and returns ctx.Err() if ctx is done first. Frames are
	// expected in [PlaybackFormat].
	Send(ctx context.Context, frame AudioFrame) error

	// Disconnect tears the connection down. It is safe to call more than
	// once; subsequent calls are no-ops and return nil.
	Disconnect() error
}

// Platform is the entry point for a voice provider.
//
// Implementations must be safe for concurrent use.
type Platform interface {
	// Connect joins channelID on guildID. An existing connection for the
	// guild may be reused. ctx bounds the join attempt only; if it expires
	// any partially established connection is torn down.
	Connect(ctx context.Context, guildID, channelID string) (Connection, error)
}

// Source yields consecutive PCM frames of one clip.
type Source interface {
	// ReadFrame returns the next frame, or io.EOF once the clip has been
	// fully decoded.
	ReadFrame(ctx context.Context) (AudioFrame, error)

	// Close releases decoder resources. It is safe to call more than once.
	Close() error
}

// Opener opens a [Source] for the audio file at path.
type Opener interface {
	Open(ctx context.Context, path string) (Source, error)
}
