package discord

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/quote"
)

// historyPageSize is the maximum batch size of the channel messages endpoint.
const historyPageSize = 100

// Compile-time interface assertion.
var _ quote.Source = (*History)(nil)

// History reads the quote channel. It implements [quote.Source].
type History struct {
	api      API
	guildID  func() string
	category string
	channel  string
	limit    int
}

// NewHistory creates a History reading at most limit messages from the
// text channel named channel inside the category named category. guildID
// is evaluated on every load since the guild is only known once the
// gateway is ready.
func NewHistory(api API, guildID func() string, category, channel string, limit int) *History {
	return &History{api: api, guildID: guildID, category: category, channel: channel, limit: limit}
}

// FindChannel returns the ID of the text channel named channel under the
// category named category. Names are matched case-insensitively.
func FindChannel(api API, guildID, category, channel string) (string, error) {
	channels, err := api.GuildChannels(guildID)
	if err != nil {
		return "", fmt.Errorf("discord: list channels: %w", err)
	}

	var parentID string
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && strings.EqualFold(ch.Name, category) {
			parentID = ch.ID
			break
		}
	}
	if parentID == "" {
		return "", fmt.Errorf("%w: category %q", quote.ErrSourceNotFound, category)
	}

	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildText && ch.ParentID == parentID && strings.EqualFold(ch.Name, channel) {
			return ch.ID, nil
		}
	}
	return "", fmt.Errorf("%w: channel %q in category %q", quote.ErrSourceNotFound, channel, category)
}

// History returns up to limit messages of the quote channel, oldest first.
func (h *History) History(ctx context.Context) ([]quote.Message, error) {
	guildID := h.guildID()
	if guildID == "" {
		return nil, fmt.Errorf("%w: no guild available", quote.ErrSourceNotFound)
	}
	channelID, err := FindChannel(h.api, guildID, h.category, h.channel)
	if err != nil {
		return nil, err
	}

	var (
		out    []quote.Message
		before string
	)
	for len(out) < h.limit {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n := min(historyPageSize, h.limit-len(out))
		// Newest first.
		page, err := h.api.ChannelMessages(channelID, n, before, "", "")
		if err != nil {
			return nil, fmt.Errorf("discord: fetch history of %s: %w", channelID, err)
		}
		for _, m := range page {
			out = append(out, convertMessage(m))
		}
		if len(page) < n {
			break
		}
		before = page[len(page)-1].ID
	}

	slices.Reverse(out)
	return out, nil
}

func convertMessage(m *discordgo.Message) quote.Message {
	msg := quote.Message{
		ID:        m.ID,
		Content:   m.Content,
		CreatedAt: m.Timestamp,
	}
	if m.Author != nil {
		msg.AuthorID = m.Author.ID
		msg.AuthorName = m.Author.Username
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, quote.Attachment{ID: a.ID, Filename: a.Filename})
	}
	return msg
}
