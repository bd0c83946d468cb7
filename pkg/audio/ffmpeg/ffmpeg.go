// Package ffmpeg decodes audio files into playback PCM by running an ffmpeg
// subprocess. The child process writes raw 48 kHz stereo s16le to stdout,
// which [Source] slices into [audio.FrameBytes]-sized frames.
package ffmpeg

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/citabot/pkg/audio"
)

// DefaultBinary is the executable looked up on PATH when none is configured.
const DefaultBinary = "ffmpeg"

// Compile-time interface assertions.
var (
	_ audio.Opener = (*Opener)(nil)
	_ audio.Source = (*Source)(nil)
)

// Opener starts one ffmpeg process per clip.
type Opener struct {
	// Binary is the ffmpeg executable. Empty means [DefaultBinary].
	Binary string
}

// Args returns the ffmpeg argument list used to decode path.
func Args(path string) []string {
	f := audio.PlaybackFormat
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-i", path,
		"-f", "s16le",
		"-ar", strconv.Itoa(f.SampleRate),
		"-ac", strconv.Itoa(f.Channels),
		"pipe:1",
	}
}

// Open starts decoding path. The process is bound to ctx: cancelling ctx
// kills ffmpeg, after which ReadFrame reports an error.
func (o *Opener) Open(ctx context.Context, path string) (audio.Source, error) {
	bin := o.Binary
	if bin == "" {
		bin = DefaultBinary
	}

	cmd := exec.CommandContext(ctx, bin, Args(path)...)
	stderr := &limitedBuffer{limit: 4096}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg: stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("ffmpeg: start %q: %w", bin, err)
	}

	wait := func() error {
		if err := cmd.Wait(); err != nil {
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("ffmpeg: %w: %s", err, msg)
			}
			return fmt.Errorf("ffmpeg: %w", err)
		}
		return nil
	}
	kill := func() {
		if cmd.Process != nil {
			_ = cmd.Process.Kill()
		}
	}
	return newSource(stdout, wait, kill), nil
}

// Source reads PCM frames from a decoder's output stream.
type Source struct {
	r    io.Reader
	wait func() error
	kill func()

	mu     sync.Mutex
	offset time.Duration
	eof    atomic.Bool

	closeOnce sync.Once
	closeErr  error
}

func newSource(r io.Reader, wait func() error, kill func()) *Source {
	return &Source{r: r, wait: wait, kill: kill}
}

// ReadFrame returns the next frame. A trailing partial frame is padded
// with silence. After the last frame, ReadFrame returns io.EOF if the
// decoder exited cleanly and the decoder's error otherwise.
func (s *Source) ReadFrame(ctx context.Context) (audio.AudioFrame, error) {
	if err := ctx.Err(); err != nil {
		return audio.AudioFrame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.eof.Load() {
		return audio.AudioFrame{}, io.EOF
	}

	buf := make([]byte, audio.FrameBytes)
	_, err := io.ReadFull(s.r, buf)
	switch {
	case err == nil:
	case errors.Is(err, io.ErrUnexpectedEOF):
		// Remaining bytes of buf are already zero.
	case errors.Is(err, io.EOF):
		s.eof.Store(true)
		if werr := s.finish(); werr != nil {
			return audio.AudioFrame{}, werr
		}
		return audio.AudioFrame{}, io.EOF
	default:
		return audio.AudioFrame{}, fmt.Errorf("ffmpeg: read pcm: %w", err)
	}

	f := audio.AudioFrame{
		Data:       buf,
		SampleRate: audio.PlaybackFormat.SampleRate,
		Channels:   audio.PlaybackFormat.Channels,
		Timestamp:  s.offset,
	}
	s.offset += audio.FrameDuration
	return f, nil
}

// finish reaps the decoder exactly once.
func (s *Source) finish() error {
	s.closeOnce.Do(func() {
		if s.wait != nil {
			s.closeErr = s.wait()
		}
	})
	return s.closeErr
}

// Close stops the decoder and releases its resources. It may be called
// while a ReadFrame is blocked; errors caused by the kill are not reported.
func (s *Source) Close() error {
	if s.eof.Load() {
		return nil
	}
	if s.kill != nil {
		s.kill()
	}
	_ = s.finish()
	return nil
}

// limitedBuffer keeps the first limit bytes written to it.
type limitedBuffer struct {
	mu    sync.Mutex
	limit int
	buf   bytes.Buffer
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
