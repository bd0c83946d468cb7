// Package discord provides an [audio.Platform] implementation backed by
// Discord voice channels via the bwmarrin/discordgo library. It bridges
// citabot's PCM [audio.AudioFrame] playback path with Discord's Opus-based
// voice transport.
//
// The platform requires an active *discordgo.Session owned by the bot
// layer. Each call to [Platform.Connect] joins (or re-targets) the guild's
// voice connection and returns a [Connection] that encodes outgoing PCM to
// Opus.
package discord

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/pkg/audio"
)

// Compile-time interface assertion.
var _ audio.Platform = (*Platform)(nil)

// voiceJoiner is the subset of *discordgo.Session used to join channels.
type voiceJoiner interface {
	ChannelVoiceJoin(guildID, channelID string, mute, deaf bool) (*discordgo.VoiceConnection, error)
}

// Platform implements [audio.Platform] using discordgo voice connections.
//
// Platform is safe for concurrent use.
type Platform struct {
	session voiceJoiner
}

// New creates a Platform for session.
func New(session *discordgo.Session) *Platform {
	return &Platform{session: session}
}

type joinResult struct {
	vc  *discordgo.VoiceConnection
	err error
}

// Connect joins channelID on guildID. discordgo reuses the guild's existing
// voice connection when there is one. The join does not observe ctx on its
// own, so it runs in the background; if ctx expires first the late
// connection is disconnected as soon as it arrives.
func (p *Platform) Connect(ctx context.Context, guildID, channelID string) (audio.Connection, error) {
	res := make(chan joinResult, 1)
	go func() {
		// mute=false (we send audio), deaf=true (we never receive).
		vc, err := p.session.ChannelVoiceJoin(guildID, channelID, false, true)
		res <- joinResult{vc: vc, err: err}
	}()

	select {
	case r := <-res:
		if r.err != nil {
			if r.vc != nil {
				_ = r.vc.Disconnect()
			}
			return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, r.err)
		}
		return newConnection(r.vc), nil
	case <-ctx.Done():
		go func() {
			r := <-res
			if r.vc != nil {
				if err := r.vc.Disconnect(); err != nil {
					slog.Warn("discord: failed to drop late voice connection", "guild_id", guildID, "err", err)
				}
			}
		}()
		return nil, fmt.Errorf("discord: join voice channel %q: %w", channelID, ctx.Err())
	}
}
