package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/clips"
	"github.com/MrWong99/citabot/internal/discord/mock"
	"github.com/MrWong99/citabot/internal/playback"
	playbackmock "github.com/MrWong99/citabot/internal/playback/mock"
	"github.com/MrWong99/citabot/internal/resilience"
)

func newInventory(t *testing.T, names ...string) *clips.Inventory {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n+".ogg"), []byte("OggS"), 0o644); err != nil {
			t.Fatalf("write %s: %v", n, err)
		}
	}
	inv := clips.NewInventory(dir, ".ogg")
	if _, err := inv.Reload(); err != nil {
		t.Fatalf("Reload: unexpected error: %v", err)
	}
	return inv
}

func TestReloadSounds(t *testing.T) {
	t.Parallel()

	sc := NewSoundCommands(newInventory(t, "airhorn", "tada"), &playbackmock.Player{})
	api := &mock.Session{}
	if err := sc.handleReload(context.Background(), api, message("!reload_sounds"), ""); err != nil {
		t.Fatalf("handleReload: unexpected error: %v", err)
	}
	if got := api.LastSent().Content; got != "2 son(s) rechargé(s)." {
		t.Errorf("Content = %q, want %q", got, "2 son(s) rechargé(s).")
	}
}

func TestReloadSounds_MissingDir(t *testing.T) {
	t.Parallel()

	inv := clips.NewInventory(filepath.Join(t.TempDir(), "absent"), ".ogg")
	sc := NewSoundCommands(inv, &playbackmock.Player{})
	api := &mock.Session{}

	err := sc.handleReload(context.Background(), api, message("!reload_sounds"), "")
	if !errors.Is(err, clips.ErrInventoryMissing) {
		t.Errorf("handleReload error = %v, want %v", err, clips.ErrInventoryMissing)
	}
	if got := api.LastSent().Content; got != "Le dossier des sons est introuvable." {
		t.Errorf("Content = %q, want missing-directory notice", got)
	}
}

func TestSoundBrowser(t *testing.T) {
	t.Parallel()

	sc := NewSoundCommands(newInventory(t, "tada", "airhorn"), &playbackmock.Player{})
	api := &mock.Session{}
	if err := sc.ShowBrowser(context.Background(), api, component(CommandMenuID, "sounds")); err != nil {
		t.Fatalf("ShowBrowser: unexpected error: %v", err)
	}

	resp := api.LastResponse()
	if resp.Data.Content != "🎵 Sélectionne un son :" {
		t.Errorf("Content = %q, want browser prompt", resp.Data.Content)
	}
	if resp.Data.Flags != 0 {
		t.Errorf("Flags = %v, want public", resp.Data.Flags)
	}
	menu := selectMenu(t, resp.Data.Components)
	if menu.CustomID != SoundMenuID || menu.Placeholder != "Choisis un son à jouer" {
		t.Errorf("menu = (%q, %q), want (%q, %q)", menu.CustomID, menu.Placeholder, SoundMenuID, "Choisis un son à jouer")
	}
	var values []string
	for _, o := range menu.Options {
		values = append(values, o.Value)
	}
	if fmt.Sprint(values) != "[airhorn tada]" {
		t.Errorf("values = %v, want [airhorn tada]", values)
	}
}

func TestSoundBrowser_PicksUpNewFiles(t *testing.T) {
	t.Parallel()

	inv := newInventory(t)
	sc := NewSoundCommands(inv, &playbackmock.Player{})
	if err := os.WriteFile(filepath.Join(inv.Dir(), "late.ogg"), []byte("OggS"), 0o644); err != nil {
		t.Fatal(err)
	}

	api := &mock.Session{}
	if err := sc.handleSounds(context.Background(), api, message("!sounds"), ""); err != nil {
		t.Fatalf("handleSounds: unexpected error: %v", err)
	}
	sent := api.LastSent()
	menu := selectMenu(t, sent.Components)
	if len(menu.Options) != 1 || menu.Options[0].Value != "late" {
		t.Errorf("options = %+v, want [late]", menu.Options)
	}
}

func TestSoundBrowser_Empty(t *testing.T) {
	t.Parallel()

	sc := NewSoundCommands(newInventory(t), &playbackmock.Player{})
	api := &mock.Session{}
	if err := sc.ShowBrowser(context.Background(), api, component(CommandMenuID, "sounds")); err != nil {
		t.Fatalf("ShowBrowser: unexpected error: %v", err)
	}
	resp := api.LastResponse()
	if resp.Data.Content != "Aucun son disponible." || resp.Data.Flags != discordgo.MessageFlagsEphemeral {
		t.Errorf("response = %+v, want ephemeral empty notice", resp.Data)
	}
}

func TestSoundSelect(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		clip       string
		playErr    error
		want       string
		ephemeral  bool
		wantReturn bool
	}{
		{name: "playback starts", clip: "tada", want: "▶️ Lecture de **tada**"},
		{
			name:      "not in voice",
			clip:      "tada",
			playErr:   playback.ErrNotInVoice,
			want:      "Tu dois être dans un salon vocal.",
			ephemeral: true,
		},
		{
			name:      "missing clip with suggestion",
			clip:      "tadaa",
			playErr:   fmt.Errorf("%w: %q", playback.ErrClipNotFound, "tadaa"),
			want:      "Son introuvable. Tu voulais dire **tada** ?",
			ephemeral: true,
		},
		{
			name:      "missing clip without suggestion",
			clip:      "xylophone",
			playErr:   playback.ErrClipNotFound,
			want:      "Son introuvable.",
			ephemeral: true,
		},
		{
			name:      "guild busy",
			clip:      "tada",
			playErr:   playback.ErrSessionActive,
			want:      "Une lecture est déjà en cours.",
			ephemeral: true,
		},
		{
			name:      "voice joins failing fast",
			clip:      "tada",
			playErr:   fmt.Errorf("playback: connect: %w", resilience.ErrCircuitOpen),
			want:      "La connexion vocale est indisponible, réessaie dans un instant.",
			ephemeral: true,
		},
		{
			name:       "playback failure",
			clip:       "tada",
			playErr:    fmt.Errorf("playback: connect: %w", playback.ErrConnectTimeout),
			want:       "Erreur lors de la lecture.",
			ephemeral:  true,
			wantReturn: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			player := &playbackmock.Player{PlayError: tt.playErr}
			sc := NewSoundCommands(newInventory(t, "airhorn", "tada"), player)
			api := &mock.Session{}

			err := sc.handleSelect(context.Background(), api, component(SoundMenuID, tt.clip))
			if (err != nil) != tt.wantReturn {
				t.Errorf("handleSelect error = %v, want error %v", err, tt.wantReturn)
			}

			if len(api.Responses) != 1 || api.Responses[0].Type != discordgo.InteractionResponseDeferredMessageUpdate {
				t.Fatalf("responses = %+v, want one acknowledgement", api.Responses)
			}
			if len(api.FollowUps) != 1 {
				t.Fatalf("follow-ups = %d, want exactly 1", len(api.FollowUps))
			}
			fu := api.LastFollowUp()
			if fu.Content != tt.want {
				t.Errorf("Content = %q, want %q", fu.Content, tt.want)
			}
			if got := fu.Flags == discordgo.MessageFlagsEphemeral; got != tt.ephemeral {
				t.Errorf("ephemeral = %v, want %v", got, tt.ephemeral)
			}

			calls := player.Calls()
			if len(calls) != 1 {
				t.Fatalf("Play calls = %d, want 1", len(calls))
			}
			want := playback.Request{GuildID: "g1", UserID: "u1", Clip: tt.clip}
			if calls[0] != want {
				t.Errorf("request = %+v, want %+v", calls[0], want)
			}
		})
	}
}

func TestSoundSelect_NoValue(t *testing.T) {
	t.Parallel()

	player := &playbackmock.Player{}
	sc := NewSoundCommands(newInventory(t, "tada"), player)
	api := &mock.Session{}
	if err := sc.handleSelect(context.Background(), api, component(SoundMenuID)); err != nil {
		t.Fatalf("handleSelect: unexpected error: %v", err)
	}
	if len(player.Calls()) != 0 {
		t.Error("Play should not be called without a selection")
	}
	if got := api.LastResponse().Data.Content; got != "Son introuvable." {
		t.Errorf("Content = %q, want %q", got, "Son introuvable.")
	}
}
