package discord

import (
	"fmt"

	"layeh.com/gopus"

	"github.com/MrWong99/citabot/pkg/audio"
)

// opusBitrate is the target bitrate for clip playback.
const opusBitrate = 96000

// opusEncoder wraps a gopus Opus encoder for one outgoing stream.
type opusEncoder struct {
	enc *gopus.Encoder
}

// newOpusEncoder creates an Opus encoder configured for Discord playback.
func newOpusEncoder() (*opusEncoder, error) {
	f := audio.PlaybackFormat
	enc, err := gopus.NewEncoder(f.SampleRate, f.Channels, gopus.Audio)
	if err != nil {
		return nil, fmt.Errorf("discord: create opus encoder: %w", err)
	}
	enc.SetBitrate(opusBitrate)
	return &opusEncoder{enc: enc}, nil
}

// encode encodes one frame of interleaved s16le PCM into an Opus packet.
func (e *opusEncoder) encode(pcmBytes []byte) ([]byte, error) {
	pcm := bytesToInt16s(pcmBytes)
	packet, err := e.enc.Encode(pcm, audio.FrameSamples, len(pcmBytes))
	if err != nil {
		return nil, fmt.Errorf("discord: opus encode: %w", err)
	}
	return packet, nil
}

// bytesToInt16s converts little-endian bytes to a slice of int16 PCM samples.
func bytesToInt16s(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}
