// Package mock provides an in-memory implementation of the discord.API
// interface for command and adapter tests.
//
// Session records every outgoing message and interaction response and
// serves channels, history, members and roles from exported fields set by
// the test. It is safe for concurrent use.
package mock

import (
	"net/http"
	"sync"

	"github.com/bwmarrin/discordgo"
)

// Session is a mock implementation of discord.API.
type Session struct {
	mu sync.Mutex

	// ─── Fixtures ─────────────────────────────────────────────────────

	// Channels is returned by GuildChannels.
	Channels []*discordgo.Channel

	// History maps a channel ID to its messages, newest first, as the
	// Discord API returns them.
	History map[string][]*discordgo.Message

	// Members is served by GuildMembers (in order) and GuildMember (by
	// user ID). A missing user yields a 404 RESTError.
	Members []*discordgo.Member

	// Roles is returned by GuildRoles.
	Roles []*discordgo.Role

	// ─── Error injection ──────────────────────────────────────────────

	ChannelsError error
	HistoryError  error
	MemberError   error
	RespondError  error

	// ─── Recorded calls ───────────────────────────────────────────────

	// Sent records ChannelMessageSendComplex calls.
	Sent []SentMessage

	// Responses records InteractionRespond calls.
	Responses []*discordgo.InteractionResponse

	// FollowUps records FollowupMessageCreate calls.
	FollowUps []*discordgo.WebhookParams

	// HistoryCalls records the (channel, limit, before) of each
	// ChannelMessages call.
	HistoryCalls []HistoryCall

	CallCountGuildMember  int
	CallCountGuildMembers int
}

// SentMessage is one message posted to a channel.
type SentMessage struct {
	ChannelID string
	Data      *discordgo.MessageSend
}

// HistoryCall records one ChannelMessages invocation.
type HistoryCall struct {
	ChannelID string
	Limit     int
	BeforeID  string
}

// ─── Messages ────────────────────────────────────────────────────────────────

// ChannelMessageSendComplex records a message.
func (s *Session) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sent = append(s.Sent, SentMessage{ChannelID: channelID, Data: data})
	return &discordgo.Message{ID: "mock-message", ChannelID: channelID, Content: data.Content}, nil
}

// ChannelMessages serves History with Discord's paging semantics: up to
// limit messages older than beforeID, newest first.
func (s *Session) ChannelMessages(channelID string, limit int, beforeID, _, _ string, _ ...discordgo.RequestOption) ([]*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.HistoryCalls = append(s.HistoryCalls, HistoryCall{ChannelID: channelID, Limit: limit, BeforeID: beforeID})
	if s.HistoryError != nil {
		return nil, s.HistoryError
	}

	all := s.History[channelID]
	start := 0
	if beforeID != "" {
		start = len(all)
		for i, m := range all {
			if m.ID == beforeID {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(all))
	out := make([]*discordgo.Message, end-start)
	copy(out, all[start:end])
	return out, nil
}

// ─── Guild ───────────────────────────────────────────────────────────────────

// GuildChannels returns Channels.
func (s *Session) GuildChannels(_ string, _ ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ChannelsError != nil {
		return nil, s.ChannelsError
	}
	return s.Channels, nil
}

// GuildMember looks up userID in Members.
func (s *Session) GuildMember(_, userID string, _ ...discordgo.RequestOption) (*discordgo.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountGuildMember++
	if s.MemberError != nil {
		return nil, s.MemberError
	}
	for _, m := range s.Members {
		if m.User != nil && m.User.ID == userID {
			return m, nil
		}
	}
	return nil, NotFound()
}

// GuildMembers pages through Members by user ID.
func (s *Session) GuildMembers(_, after string, limit int, _ ...discordgo.RequestOption) ([]*discordgo.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountGuildMembers++
	if s.MemberError != nil {
		return nil, s.MemberError
	}
	start := 0
	if after != "" {
		start = len(s.Members)
		for i, m := range s.Members {
			if m.User != nil && m.User.ID == after {
				start = i + 1
				break
			}
		}
	}
	end := min(start+limit, len(s.Members))
	return append([]*discordgo.Member(nil), s.Members[start:end]...), nil
}

// GuildRoles returns Roles.
func (s *Session) GuildRoles(_ string, _ ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Roles, nil
}

// ─── Interactions ────────────────────────────────────────────────────────────

// InteractionRespond records resp and returns RespondError.
func (s *Session) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Responses = append(s.Responses, resp)
	return s.RespondError
}

// FollowupMessageCreate records params.
func (s *Session) FollowupMessageCreate(_ *discordgo.Interaction, _ bool, params *discordgo.WebhookParams, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FollowUps = append(s.FollowUps, params)
	return &discordgo.Message{ID: "mock-followup"}, nil
}

// ─── Accessors ───────────────────────────────────────────────────────────────

// LastResponse returns the most recent interaction response, or nil.
func (s *Session) LastResponse() *discordgo.InteractionResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Responses) == 0 {
		return nil
	}
	return s.Responses[len(s.Responses)-1]
}

// LastFollowUp returns the most recent follow-up, or nil.
func (s *Session) LastFollowUp() *discordgo.WebhookParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.FollowUps) == 0 {
		return nil
	}
	return s.FollowUps[len(s.FollowUps)-1]
}

// LastSent returns the most recent channel message, or nil.
func (s *Session) LastSent() *discordgo.MessageSend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Sent) == 0 {
		return nil
	}
	return s.Sent[len(s.Sent)-1].Data
}

// NotFound returns the error discordgo reports for an unknown resource.
func NotFound() error {
	return &discordgo.RESTError{
		Response: &http.Response{StatusCode: http.StatusNotFound},
		Message:  &discordgo.APIErrorMessage{Code: discordgo.ErrCodeUnknownMember, Message: "Unknown Member"},
	}
}

// VoiceStates is a mock of the gateway voice state cache.
type VoiceStates struct {
	mu sync.Mutex

	// Channels maps "guildID/userID" to a voice channel ID.
	Channels map[string]string
}

// VoiceState returns the configured state or discordgo.ErrStateNotFound.
func (v *VoiceStates) VoiceState(guildID, userID string) (*discordgo.VoiceState, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	ch, ok := v.Channels[guildID+"/"+userID]
	if !ok {
		return nil, discordgo.ErrStateNotFound
	}
	return &discordgo.VoiceState{GuildID: guildID, UserID: userID, ChannelID: ch}, nil
}
