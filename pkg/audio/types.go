package audio

import "time"

// Format describes the PCM layout of an [AudioFrame].
type Format struct {
	SampleRate int
	Channels   int
}

// Playback frame geometry. Discord voice carries 48 kHz stereo Opus in
// 20 ms frames; decoders produce exactly this layout so frames can be
// encoded one-to-one.
const (
	FrameDuration = 20 * time.Millisecond

	// FrameSamples is the number of samples per channel in one frame.
	FrameSamples = 960

	// FrameBytes is the size of one interleaved s16le frame.
	FrameBytes = FrameSamples * 2 * 2
)

// PlaybackFormat is the PCM format expected by [Connection.Send].
var PlaybackFormat = Format{SampleRate: 48000, Channels: 2}

// AudioFrame is one chunk of interleaved little-endian int16 PCM.
type AudioFrame struct {
	Data []byte

	// SampleRate in Hz.
	SampleRate int

	// Channels: 1 for mono, 2 for stereo.
	Channels int

	// Timestamp is the offset of this frame from the start of the clip.
	Timestamp time.Duration
}

// Format returns the PCM layout of f.
func (f AudioFrame) Format() Format {
	return Format{SampleRate: f.SampleRate, Channels: f.Channels}
}
