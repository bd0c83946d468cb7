package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/catalog"
	"github.com/MrWong99/citabot/internal/clips"
	"github.com/MrWong99/citabot/internal/discord"
	"github.com/MrWong99/citabot/internal/playback"
	"github.com/MrWong99/citabot/internal/resilience"
)

const (
	// SoundMenuID is the custom_id of the clip browser select menu.
	SoundMenuID = "select-sound"

	// SoundPagePrefix prefixes the custom_id of the clip browser page buttons.
	SoundPagePrefix = "sound_page:"
)

// Inventory is the clip listing used by the sound commands.
// *clips.Inventory satisfies it.
type Inventory interface {
	Reload() (int, error)
	List() []clips.Clip
	Suggest(name string) (string, bool)
}

// Player starts a playback session. *playback.Manager satisfies it.
type Player interface {
	Play(ctx context.Context, req playback.Request) (*playback.Session, error)
}

// SoundCommands implements the clip browser and the playback trigger.
type SoundCommands struct {
	inventory Inventory
	player    Player
}

// NewSoundCommands creates the sound command group.
func NewSoundCommands(inventory Inventory, player Player) *SoundCommands {
	return &SoundCommands{inventory: inventory, player: player}
}

// Register wires the sound commands and components into r.
func (sc *SoundCommands) Register(r *discord.Router) {
	r.RegisterCommand("reload_sounds", sc.handleReload)
	r.RegisterCommand("sounds", sc.handleSounds)
	r.RegisterComponent(SoundMenuID, sc.handleSelect)
	r.RegisterComponentPrefix(SoundPagePrefix, sc.handlePage)
}

func (sc *SoundCommands) handleReload(_ context.Context, api discord.API, m *discordgo.Message, _ string) error {
	n, err := sc.inventory.Reload()
	if err != nil {
		discord.Reply(api, m, &discordgo.MessageSend{Content: reloadFailure(err)})
		return err
	}
	discord.Reply(api, m, &discordgo.MessageSend{Content: fmt.Sprintf("%d son(s) rechargé(s).", n)})
	return nil
}

// ShowBrowser reloads the inventory and answers i with the first page of
// the clip browser.
func (sc *SoundCommands) ShowBrowser(_ context.Context, api discord.API, i *discordgo.InteractionCreate) error {
	content, components, err := sc.browser()
	if components == nil {
		discord.RespondEphemeral(api, i, content)
		return err
	}
	discord.RespondComponents(api, i, content, components, false)
	return nil
}

func (sc *SoundCommands) handleSounds(_ context.Context, api discord.API, m *discordgo.Message, _ string) error {
	content, components, err := sc.browser()
	discord.Reply(api, m, &discordgo.MessageSend{Content: content, Components: components})
	return err
}

// browser reloads the inventory and renders its first page. components is
// nil when content is a notice instead of a prompt.
func (sc *SoundCommands) browser() (content string, components []discordgo.MessageComponent, err error) {
	if _, err := sc.inventory.Reload(); err != nil {
		return reloadFailure(err), nil, err
	}
	list := sc.inventory.List()
	if len(list) == 0 {
		return "Aucun son disponible.", nil, nil
	}
	return "🎵 Sélectionne un son :", soundBrowser(list, 0), nil
}

func (sc *SoundCommands) handlePage(_ context.Context, api discord.API, i *discordgo.InteractionCreate) error {
	raw := strings.TrimPrefix(i.MessageComponentData().CustomID, SoundPagePrefix)
	page, err := strconv.Atoi(raw)
	if err != nil {
		discord.RespondEphemeral(api, i, "Interaction inconnue.")
		return fmt.Errorf("commands: parse sound page %q: %w", raw, err)
	}
	list := sc.inventory.List()
	if len(list) == 0 {
		discord.UpdateComponents(api, i, "Aucun son disponible.", []discordgo.MessageComponent{})
		return nil
	}
	discord.UpdateComponents(api, i, "🎵 Sélectionne un son :", soundBrowser(list, page))
	return nil
}

// handleSelect starts playback of the selected clip. Joining a voice
// channel outlasts the interaction deadline, so the interaction is
// acknowledged first and the outcome sent as a follow-up.
func (sc *SoundCommands) handleSelect(ctx context.Context, api discord.API, i *discordgo.InteractionCreate) error {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		discord.RespondEphemeral(api, i, "Son introuvable.")
		return nil
	}
	name := values[0]
	discord.Acknowledge(api, i)

	_, err := sc.player.Play(ctx, playback.Request{
		GuildID: i.GuildID,
		UserID:  discord.InteractionUserID(i),
		Clip:    name,
	})
	if err == nil {
		discord.FollowUp(api, i, &discordgo.WebhookParams{Content: fmt.Sprintf("▶️ Lecture de **%s**", name)})
		return nil
	}

	content, unexpected := sc.playFailure(name, err)
	discord.FollowUp(api, i, &discordgo.WebhookParams{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	if unexpected {
		return err
	}
	return nil
}

// playFailure maps a playback error to its user message. unexpected is
// true for errors that are not a plain refusal.
func (sc *SoundCommands) playFailure(name string, err error) (content string, unexpected bool) {
	switch {
	case errors.Is(err, playback.ErrNotInVoice):
		return "Tu dois être dans un salon vocal.", false
	case errors.Is(err, playback.ErrClipNotFound):
		content = "Son introuvable."
		if best, ok := sc.inventory.Suggest(name); ok {
			content += fmt.Sprintf(" Tu voulais dire **%s** ?", best)
		}
		return content, false
	case errors.Is(err, playback.ErrSessionActive):
		return "Une lecture est déjà en cours.", false
	case errors.Is(err, resilience.ErrCircuitOpen):
		return "La connexion vocale est indisponible, réessaie dans un instant.", false
	default:
		return "Erreur lors de la lecture.", true
	}
}

func reloadFailure(err error) string {
	if errors.Is(err, clips.ErrInventoryMissing) {
		return "Le dossier des sons est introuvable."
	}
	return "Erreur lors du rechargement des sons."
}

var soundProjection = catalog.Projection[clips.Clip]{
	Label: func(c clips.Clip) string { return c.Name },
	Value: func(_ int, c clips.Clip) string { return c.Name },
}

func soundBrowser(list []clips.Clip, page int) []discordgo.MessageComponent {
	p := catalog.BuildPage(list, soundProjection, page, catalog.MaxChoices)
	components := []discordgo.MessageComponent{
		discord.SelectMenu(SoundMenuID, "Choisis un son à jouer", selectOptions(p.Choices)),
	}
	if nav := pageButtons(SoundPagePrefix, p); nav != nil {
		components = append(components, nav)
	}
	return components
}
