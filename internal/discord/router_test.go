package discord_test

import (
	"context"
	"errors"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/discord"
	"github.com/MrWong99/citabot/internal/discord/mock"
)

func message(content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		ChannelID: "c1",
		Content:   content,
		Author:    &discordgo.User{ID: "u1", Username: "alice"},
	}
}

func component(customID string, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
		Type:    discordgo.InteractionMessageComponent,
		GuildID: "g1",
		Member:  &discordgo.Member{User: &discordgo.User{ID: "u1", Username: "alice"}},
		Data:    discordgo.MessageComponentInteractionData{CustomID: customID, Values: values},
	}}
}

func TestRouter_HandleMessage(t *testing.T) {
	t.Parallel()

	type call struct{ name, args string }

	tests := []struct {
		name    string
		content string
		bot     bool
		want    *call
	}{
		{name: "bare prefix opens menu", content: "!", want: &call{"menu", ""}},
		{name: "command without args", content: "!citation", want: &call{"citation", ""}},
		{name: "command with args", content: "!citation  Jean Paul ", want: &call{"citation", "Jean Paul"}},
		{name: "case insensitive", content: "!CITATION bob", want: &call{"citation", "bob"}},
		{name: "surrounding whitespace", content: "  !  ", want: &call{"menu", ""}},
		{name: "space after prefix", content: "! citation"},
		{name: "no prefix", content: "citation"},
		{name: "unknown command", content: "!unknown"},
		{name: "bots ignored", content: "!citation", bot: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got *call
			r := discord.NewRouter("!", nil)
			r.RegisterMenu(func(_ context.Context, _ discord.API, _ *discordgo.Message, args string) error {
				got = &call{"menu", args}
				return nil
			})
			r.RegisterCommand("citation", func(_ context.Context, _ discord.API, _ *discordgo.Message, args string) error {
				got = &call{"citation", args}
				return nil
			})

			m := message(tt.content)
			m.Author.Bot = tt.bot
			r.HandleMessage(context.Background(), &mock.Session{}, m)

			switch {
			case tt.want == nil && got != nil:
				t.Errorf("handler called with %+v, want no call", *got)
			case tt.want != nil && got == nil:
				t.Errorf("no handler called, want %+v", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Errorf("handler call = %+v, want %+v", *got, *tt.want)
			}
		})
	}
}

func TestRouter_HandleComponent(t *testing.T) {
	t.Parallel()

	r := discord.NewRouter("!", nil)
	var hits []string
	r.RegisterComponent("menu_citations", func(_ context.Context, _ discord.API, i *discordgo.InteractionCreate) error {
		hits = append(hits, "exact:"+i.MessageComponentData().Values[0])
		return nil
	})
	r.RegisterComponentPrefix("quote_page:", func(_ context.Context, _ discord.API, i *discordgo.InteractionCreate) error {
		hits = append(hits, "prefix:"+i.MessageComponentData().CustomID)
		return errors.New("handler failure is logged, not returned")
	})

	api := &mock.Session{}
	r.Handle(context.Background(), api, component("menu_citations", "123"))
	r.Handle(context.Background(), api, component("quote_page:2"))
	r.Handle(context.Background(), api, component("nope"))

	want := []string{"exact:123", "prefix:quote_page:2"}
	if len(hits) != len(want) || hits[0] != want[0] || hits[1] != want[1] {
		t.Errorf("hits = %v, want %v", hits, want)
	}
	if len(api.Responses) != 1 {
		t.Fatalf("responses = %d, want 1 for the unknown component", len(api.Responses))
	}
	if api.Responses[0].Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Error("unknown component reply is not ephemeral")
	}
}

func TestRouter_IgnoresOtherInteractionTypes(t *testing.T) {
	t.Parallel()

	r := discord.NewRouter("!", nil)
	api := &mock.Session{}
	i := component("x")
	i.Type = discordgo.InteractionApplicationCommand
	r.Handle(context.Background(), api, i)
	if len(api.Responses) != 0 {
		t.Errorf("responses = %d, want 0", len(api.Responses))
	}
}

func TestInteractionUser(t *testing.T) {
	t.Parallel()

	guild := component("x")
	if got := discord.InteractionUserID(guild); got != "u1" {
		t.Errorf("guild InteractionUserID = %q, want u1", got)
	}
	dm := &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{User: &discordgo.User{ID: "u2"}}}
	if got := discord.InteractionUserID(dm); got != "u2" {
		t.Errorf("DM InteractionUserID = %q, want u2", got)
	}
}
