package discord

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/observe"
)

// MessageHandler handles a prefix command. args is the text after the
// command name, trimmed.
type MessageHandler func(ctx context.Context, api API, m *discordgo.Message, args string) error

// ComponentHandler handles a message component interaction (select menu or
// button).
type ComponentHandler func(ctx context.Context, api API, i *discordgo.InteractionCreate) error

// Router dispatches prefix commands and component interactions to
// registered handlers.
type Router struct {
	prefix  string
	metrics *observe.Metrics

	mu              sync.RWMutex
	commands        map[string]MessageHandler   // lower-case name → handler
	menu            MessageHandler              // bare prefix
	components      map[string]ComponentHandler // custom_id → handler
	componentPrefix map[string]ComponentHandler // custom_id prefix → handler
}

// NewRouter creates an empty router for commands starting with prefix.
func NewRouter(prefix string, metrics *observe.Metrics) *Router {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	return &Router{
		prefix:          prefix,
		metrics:         metrics,
		commands:        make(map[string]MessageHandler),
		components:      make(map[string]ComponentHandler),
		componentPrefix: make(map[string]ComponentHandler),
	}
}

// Prefix returns the command prefix.
func (r *Router) Prefix() string { return r.prefix }

// RegisterCommand registers handler for "<prefix><name>". Names are matched
// case-insensitively.
func (r *Router) RegisterCommand(name string, handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(name)] = handler
}

// RegisterMenu registers the handler for a message that is exactly the prefix.
func (r *Router) RegisterMenu(handler MessageHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.menu = handler
}

// RegisterComponent registers a handler for a component custom_id.
func (r *Router) RegisterComponent(customID string, handler ComponentHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.components[customID] = handler
}

// RegisterComponentPrefix registers a handler for every custom_id starting
// with prefix (e.g. "quote_page:" matches "quote_page:3").
func (r *Router) RegisterComponentPrefix(prefix string, handler ComponentHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.componentPrefix[prefix] = handler
}

// splitCommand parses content into a command name and its arguments.
// ok is false when content does not start with prefix.
func splitCommand(prefix, content string) (name, args string, ok bool) {
	content = strings.TrimSpace(content)
	rest, found := strings.CutPrefix(content, prefix)
	if !found {
		return "", "", false
	}
	if rest == "" {
		return "", "", true
	}
	// "! citation" is not a command.
	if rest[0] == ' ' {
		return "", "", false
	}
	name, args, _ = strings.Cut(rest, " ")
	return strings.ToLower(name), strings.TrimSpace(args), true
}

// HandleMessage dispatches a prefix command. Messages from bots, messages
// without the prefix and unknown commands are ignored.
func (r *Router) HandleMessage(ctx context.Context, api API, m *discordgo.Message) {
	if m.Author == nil || m.Author.Bot {
		return
	}
	name, args, ok := splitCommand(r.prefix, m.Content)
	if !ok {
		return
	}

	r.mu.RLock()
	handler := r.menu
	if name != "" {
		handler = r.commands[name]
	}
	r.mu.RUnlock()

	if handler == nil {
		slog.Debug("discord: unknown command", "name", name)
		return
	}
	if name == "" {
		name = "menu"
	}
	r.run(ctx, m.GuildID, name, func(ctx context.Context) error {
		return handler(ctx, api, m, args)
	}, "channel_id", m.ChannelID, "user_id", m.Author.ID)
}

// Handle dispatches a component interaction. Other interaction types are
// ignored.
func (r *Router) Handle(ctx context.Context, api API, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionMessageComponent {
		slog.Debug("discord: unhandled interaction type", "type", i.Type)
		return
	}
	customID := i.MessageComponentData().CustomID

	r.mu.RLock()
	handler, ok := r.components[customID]
	key := customID
	if !ok {
		for prefix, h := range r.componentPrefix {
			if strings.HasPrefix(customID, prefix) {
				handler, key, ok = h, prefix, true
				break
			}
		}
	}
	r.mu.RUnlock()

	if !ok {
		slog.Warn("discord: unknown component", "custom_id", customID)
		RespondEphemeral(api, i, "Interaction inconnue.")
		return
	}
	r.run(ctx, i.GuildID, key, func(ctx context.Context) error {
		return handler(ctx, api, i)
	}, "custom_id", customID, "user_id", InteractionUserID(i))
}

// run executes one handler inside a span and records the outcome.
func (r *Router) run(ctx context.Context, guildID, name string, fn func(context.Context) error, attrs ...any) {
	ctx, span := observe.StartSpan(observe.WithGuild(ctx, guildID), "discord.command "+name)
	start := time.Now()
	err := fn(ctx)
	observe.EndSpan(span, err)
	r.metrics.RecordCommand(ctx, name, err)

	log := observe.Logger(ctx).With(attrs...)
	if err != nil {
		log.Error("discord: command failed", "command", name, "err", err)
		return
	}
	log.Debug("command handled", "command", name, "duration", time.Since(start))
}

// InteractionUserID returns the ID of the user who triggered i, in a guild
// or in DMs.
func InteractionUserID(i *discordgo.InteractionCreate) string {
	if u := InteractionUser(i); u != nil {
		return u.ID
	}
	return ""
}

// InteractionUser returns the user who triggered i.
func InteractionUser(i *discordgo.InteractionCreate) *discordgo.User {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User
	}
	return i.User
}
