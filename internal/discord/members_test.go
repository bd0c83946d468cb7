package discord_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/discord"
	"github.com/MrWong99/citabot/internal/discord/mock"
	"github.com/MrWong99/citabot/internal/playback"
	"github.com/MrWong99/citabot/internal/quote"
)

func member(id, name string, bot bool, roles ...string) *discordgo.Member {
	return &discordgo.Member{User: &discordgo.User{ID: id, Username: name, Bot: bot}, Roles: roles}
}

func TestMembers_UsernameCaches(t *testing.T) {
	t.Parallel()

	api := &mock.Session{Members: []*discordgo.Member{member("42", "bob", false)}}
	m := discord.NewMembers(api, &mock.VoiceStates{}, guild, time.Minute)

	for range 3 {
		name, err := m.Username(context.Background(), "42")
		if err != nil {
			t.Fatalf("Username: %v", err)
		}
		if name != "bob" {
			t.Errorf("Username = %q, want bob", name)
		}
	}
	if api.CallCountGuildMember != 1 {
		t.Errorf("GuildMember calls = %d, want 1", api.CallCountGuildMember)
	}
}

func TestMembers_UnknownMember(t *testing.T) {
	t.Parallel()

	api := &mock.Session{}
	m := discord.NewMembers(api, &mock.VoiceStates{}, guild, time.Minute)

	for range 2 {
		if _, err := m.Username(context.Background(), "404"); !errors.Is(err, quote.ErrUnknownMember) {
			t.Fatalf("Username err = %v, want ErrUnknownMember", err)
		}
	}
	if api.CallCountGuildMember != 1 {
		t.Errorf("GuildMember calls = %d, want 1 (negative result cached)", api.CallCountGuildMember)
	}
}

func TestMembers_TransientErrorPropagates(t *testing.T) {
	t.Parallel()

	boom := errors.New("gateway timeout")
	m := discord.NewMembers(&mock.Session{MemberError: boom}, &mock.VoiceStates{}, guild, time.Minute)
	_, err := m.Username(context.Background(), "42")
	if !errors.Is(err, boom) || errors.Is(err, quote.ErrUnknownMember) {
		t.Errorf("Username err = %v, want wrapped %v", err, boom)
	}
}

func TestMembers_VoiceChannel(t *testing.T) {
	t.Parallel()

	voice := &mock.VoiceStates{Channels: map[string]string{
		"g1/in":   "vc1",
		"g1/left": "",
	}}
	m := discord.NewMembers(&mock.Session{}, voice, guild, 0)

	ch, err := m.VoiceChannel(context.Background(), "g1", "in")
	if err != nil || ch != "vc1" {
		t.Errorf("VoiceChannel(in) = (%q, %v), want (vc1, nil)", ch, err)
	}
	for _, user := range []string{"left", "never"} {
		if _, err := m.VoiceChannel(context.Background(), "g1", user); !errors.Is(err, playback.ErrNotInVoice) {
			t.Errorf("VoiceChannel(%s) err = %v, want ErrNotInVoice", user, err)
		}
	}
}

func TestMembers_RoleMembers(t *testing.T) {
	t.Parallel()

	api := &mock.Session{
		Roles: []*discordgo.Role{{ID: "r-other", Name: "Autre"}, {ID: "r-zen", Name: "Zen"}},
		Members: []*discordgo.Member{
			member("1", "zoe", false, "r-zen"),
			member("2", "bot", true, "r-zen"),
			member("3", "adam", false, "r-other"),
			member("4", "bea", false, "r-other", "r-zen"),
		},
	}
	m := discord.NewMembers(api, &mock.VoiceStates{}, guild, time.Minute)

	got, err := m.RoleMembers(context.Background(), "g1", "Zen", 25)
	if err != nil {
		t.Fatalf("RoleMembers: %v", err)
	}
	var names []string
	for _, g := range got {
		names = append(names, g.User.Username)
	}
	if fmt.Sprint(names) != "[bea zoe]" {
		t.Errorf("RoleMembers = %v, want [bea zoe]", names)
	}

	// Listing warms the username cache.
	if _, err := m.Username(context.Background(), "3"); err != nil {
		t.Fatalf("Username: %v", err)
	}
	if api.CallCountGuildMember != 0 {
		t.Errorf("GuildMember calls = %d, want 0", api.CallCountGuildMember)
	}
}

func TestMembers_RoleMembersPagingAndLimit(t *testing.T) {
	t.Parallel()

	var all []*discordgo.Member
	for i := range 1500 {
		all = append(all, member(fmt.Sprintf("%04d", i), fmt.Sprintf("user%04d", i), false, "r-zen"))
	}
	api := &mock.Session{Roles: []*discordgo.Role{{ID: "r-zen", Name: "Zen"}}, Members: all}
	m := discord.NewMembers(api, &mock.VoiceStates{}, guild, time.Minute)

	got, err := m.RoleMembers(context.Background(), "g1", "Zen", 25)
	if err != nil {
		t.Fatalf("RoleMembers: %v", err)
	}
	if len(got) != 25 {
		t.Errorf("len = %d, want 25", len(got))
	}
	if api.CallCountGuildMembers != 2 {
		t.Errorf("GuildMembers calls = %d, want 2", api.CallCountGuildMembers)
	}
}

func TestMembers_RoleMissing(t *testing.T) {
	t.Parallel()

	m := discord.NewMembers(&mock.Session{}, &mock.VoiceStates{}, guild, time.Minute)
	got, err := m.RoleMembers(context.Background(), "g1", "Zen", 25)
	if err != nil || len(got) != 0 {
		t.Errorf("RoleMembers = (%v, %v), want empty", got, err)
	}
}
