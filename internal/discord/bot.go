// Package discord provides the Discord bot layer for citabot. It owns the
// discordgo.Session lifecycle, routes prefix commands and component
// interactions to registered handlers, and adapts the Discord API to the
// quote source, member resolver and voice locator interfaces.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/pkg/audio"
	discordaudio "github.com/MrWong99/citabot/pkg/audio/discord"
)

// Intents requested from the gateway: message content for prefix commands,
// members for mention resolution and role lookups, voice states for
// playback.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildVoiceStates

// Config holds Discord bot configuration.
type Config struct {
	// Token is the bot token without the "Bot " prefix.
	Token string

	// GuildID pins the bot to one guild. Empty selects the first guild
	// reported by the gateway.
	GuildID string

	// Prefix starts every text command.
	Prefix string
}

// ReadyFunc runs once the gateway reports the bot's guilds.
type ReadyFunc func(ctx context.Context, guildID string)

// Bot owns the Discord gateway connection and routes events to its router.
type Bot struct {
	session  *discordgo.Session
	router   *Router
	platform *discordaudio.Platform

	mu      sync.RWMutex
	guildID string
	onReady []ReadyFunc

	// ctx scopes event handlers; cancelled by Close.
	ctx    context.Context
	cancel context.CancelFunc

	connected atomic.Bool
	readyOnce sync.Once
	closeOnce sync.Once
}

// New creates a Bot and registers its gateway handlers. It does not
// connect; call [Bot.Open].
func New(cfg Config, router *Router) (*Bot, error) {
	session, err := discordgo.New("Bot " + cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	session.Identify.Intents = Intents
	session.StateEnabled = true

	ctx, cancel := context.WithCancel(context.Background())
	b := &Bot{
		session:  session,
		router:   router,
		platform: discordaudio.New(session),
		guildID:  cfg.GuildID,
		ctx:      ctx,
		cancel:   cancel,
	}

	session.AddHandler(b.handleReady)
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) {
		b.connected.Store(false)
		slog.Warn("discord: gateway disconnected")
	})
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) {
		b.connected.Store(true)
		slog.Info("discord gateway resumed")
	})
	session.AddHandler(func(s *discordgo.Session, m *discordgo.MessageCreate) {
		b.router.HandleMessage(b.ctx, s, m.Message)
	})
	session.AddHandler(func(s *discordgo.Session, i *discordgo.InteractionCreate) {
		b.router.Handle(b.ctx, s, i)
	})
	return b, nil
}

// OnReady registers fn to run after the first Ready event. Register hooks
// before calling Open.
func (b *Bot) OnReady(fn ReadyFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onReady = append(b.onReady, fn)
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	b.connected.Store(true)

	b.mu.Lock()
	if b.guildID == "" && len(r.Guilds) > 0 {
		b.guildID = r.Guilds[0].ID
	}
	guildID := b.guildID
	hooks := append([]ReadyFunc(nil), b.onReady...)
	b.mu.Unlock()

	if r.User != nil {
		slog.Info("discord gateway ready", "user", r.User.String(), "guild_id", guildID)
	}
	if guildID == "" {
		slog.Error("discord: bot is not a member of any guild")
		return
	}
	b.readyOnce.Do(func() {
		for _, fn := range hooks {
			fn(b.ctx, guildID)
		}
	})
}

// Open connects to the gateway.
func (b *Bot) Open() error {
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("discord: open session: %w", err)
	}
	return nil
}

// Connected reports whether the gateway session is currently up.
func (b *Bot) Connected() bool { return b.connected.Load() }

// GuildID returns the active guild, or "" before Ready.
func (b *Bot) GuildID() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.guildID
}

// API returns the REST client.
func (b *Bot) API() API { return b.session }

// VoiceStates returns the gateway state cache.
func (b *Bot) VoiceStates() VoiceStates { return b.session.State }

// Platform returns the voice platform backed by this session.
func (b *Bot) Platform() audio.Platform { return b.platform }

// Close disconnects from Discord. It is safe to call more than once.
func (b *Bot) Close() error {
	var closeErr error
	b.closeOnce.Do(func() {
		b.cancel()
		b.connected.Store(false)
		if err := b.session.Close(); err != nil {
			closeErr = fmt.Errorf("discord: close session: %w", err)
		}
		slog.Info("discord bot closed")
	})
	return closeErr
}
