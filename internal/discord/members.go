package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/bwmarrin/discordgo"
	gocache "github.com/patrickmn/go-cache"

	"github.com/MrWong99/citabot/internal/playback"
	"github.com/MrWong99/citabot/internal/quote"
)

// memberPageSize is the maximum batch size of the guild members endpoint.
const memberPageSize = 1000

// unknownMember is cached for users that are no longer in the guild.
const unknownMember = ""

// Compile-time interface assertions.
var (
	_ quote.MemberResolver  = (*Members)(nil)
	_ playback.VoiceLocator = (*Members)(nil)
)

// Members resolves guild members for the quote parser, the voice locator
// and the member pickers. Usernames are cached for a configurable TTL.
//
// Members is safe for concurrent use.
type Members struct {
	api     API
	voice   VoiceStates
	guildID func() string
	cache   *gocache.Cache
}

// NewMembers creates a Members. ttl <= 0 caches usernames forever.
func NewMembers(api API, voice VoiceStates, guildID func() string, ttl time.Duration) *Members {
	exp, cleanup := ttl, 2*ttl
	if ttl <= 0 {
		exp, cleanup = gocache.NoExpiration, 0
	}
	return &Members{
		api:     api,
		voice:   voice,
		guildID: guildID,
		cache:   gocache.New(exp, cleanup),
	}
}

// Username returns the username of userID in the current guild. It returns
// [quote.ErrUnknownMember] when the user is not a member.
func (m *Members) Username(_ context.Context, userID string) (string, error) {
	if v, ok := m.cache.Get(userID); ok {
		if name := v.(string); name != unknownMember {
			return name, nil
		}
		return "", quote.ErrUnknownMember
	}

	member, err := m.api.GuildMember(m.guildID(), userID)
	if isNotFound(err) {
		m.cache.SetDefault(userID, unknownMember)
		return "", quote.ErrUnknownMember
	}
	if err != nil {
		return "", fmt.Errorf("discord: fetch member %s: %w", userID, err)
	}
	if member.User == nil {
		return "", quote.ErrUnknownMember
	}
	m.cache.SetDefault(userID, member.User.Username)
	return member.User.Username, nil
}

// Member fetches one guild member.
func (m *Members) Member(_ context.Context, guildID, userID string) (*discordgo.Member, error) {
	member, err := m.api.GuildMember(guildID, userID)
	if err != nil {
		return nil, fmt.Errorf("discord: fetch member %s: %w", userID, err)
	}
	if member.User != nil {
		m.cache.SetDefault(userID, member.User.Username)
	}
	return member, nil
}

// VoiceChannel returns the voice channel userID occupies in guildID, or
// [playback.ErrNotInVoice].
func (m *Members) VoiceChannel(_ context.Context, guildID, userID string) (string, error) {
	vs, err := m.voice.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) || errors.Is(err, discordgo.ErrNilState) {
		return "", playback.ErrNotInVoice
	}
	if err != nil {
		return "", fmt.Errorf("discord: voice state of %s: %w", userID, err)
	}
	if vs.ChannelID == "" {
		return "", playback.ErrNotInVoice
	}
	return vs.ChannelID, nil
}

// RoleMembers returns up to limit non-bot members of guildID holding the
// role named roleName, ordered by username. A missing role yields an empty
// list.
func (m *Members) RoleMembers(ctx context.Context, guildID, roleName string, limit int) ([]*discordgo.Member, error) {
	roles, err := m.api.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("discord: list roles: %w", err)
	}
	var roleID string
	for _, r := range roles {
		if r.Name == roleName {
			roleID = r.ID
			break
		}
	}
	if roleID == "" {
		return nil, nil
	}

	var (
		out   []*discordgo.Member
		after string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := m.api.GuildMembers(guildID, after, memberPageSize)
		if err != nil {
			return nil, fmt.Errorf("discord: list members: %w", err)
		}
		for _, mem := range page {
			if mem.User == nil {
				continue
			}
			m.cache.SetDefault(mem.User.ID, mem.User.Username)
			if !mem.User.Bot && slices.Contains(mem.Roles, roleID) {
				out = append(out, mem)
			}
		}
		if len(page) < memberPageSize {
			break
		}
		after = page[len(page)-1].User.ID
	}

	slices.SortFunc(out, func(a, b *discordgo.Member) int {
		switch {
		case a.User.Username < b.User.Username:
			return -1
		case a.User.Username > b.User.Username:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// isNotFound reports whether err is a Discord 404 or unknown-member error.
func isNotFound(err error) bool {
	var rest *discordgo.RESTError
	if !errors.As(err, &rest) {
		return false
	}
	if rest.Response != nil && rest.Response.StatusCode == http.StatusNotFound {
		return true
	}
	return rest.Message != nil && (rest.Message.Code == discordgo.ErrCodeUnknownMember || rest.Message.Code == discordgo.ErrCodeUnknownUser)
}
