// Package commands implements the bot's command surface: the bare-prefix
// command menu, the quote commands and browser, the clip browser that
// triggers playback, and the member pickers.
//
// Each group has a constructor and a Register method wiring its text
// commands and component handlers into a [discord.Router].
package commands

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/discord"
)

// CommandMenuID is the custom_id of the command menu select.
const CommandMenuID = "command_menu"

const (
	greetingText = "Bonjour ! Je suis ton bot."
	helpText     = "Commandes : !bonjour, !aide, !citation [auteur], !Météo, !Zen, !Messi, !Sounds"
	messiText    = "Shreuuu est LE Messi, Notre Messi"
)

// menuEntries are the command menu options, in display order.
var menuEntries = []discordgo.SelectMenuOption{
	{Label: "Bonjour", Value: "bonjour", Description: "Dire bonjour au bot"},
	{Label: "Aide", Value: "aide", Description: "Liste des commandes"},
	{Label: "Citation", Value: "citation", Description: "Parcourir les citations"},
	{Label: "Météo", Value: "meteo", Description: "Le fameux Météo"},
	{Label: "Zen", Value: "zen", Description: "Choisir un membre Zen"},
	{Label: "Messi", Value: "messi", Description: "Qui est le Messi ?"},
	{Label: "Sounds", Value: "sounds", Description: "Jouer un son dans ton salon vocal"},
}

// Menu is the bare-prefix command menu. It opens the browsers and pickers
// of the other command groups.
type Menu struct {
	quotes  *QuoteCommands
	sounds  *SoundCommands
	members *MemberCommands
}

// NewMenu creates the command menu dispatching to the given groups.
func NewMenu(quotes *QuoteCommands, sounds *SoundCommands, members *MemberCommands) *Menu {
	return &Menu{quotes: quotes, sounds: sounds, members: members}
}

// Register wires the menu, the static text commands and every group into r.
func (mn *Menu) Register(r *discord.Router) {
	r.RegisterMenu(mn.handleMenu)
	r.RegisterCommand("bonjour", staticReply(greetingText))
	r.RegisterCommand("aide", staticReply(helpText))
	r.RegisterCommand("messi", staticReply(messiText))
	r.RegisterComponent(CommandMenuID, mn.handleSelect)

	mn.quotes.Register(r)
	mn.sounds.Register(r)
	mn.members.Register(r)
}

func (mn *Menu) handleMenu(_ context.Context, api discord.API, m *discordgo.Message, _ string) error {
	discord.Reply(api, m, &discordgo.MessageSend{
		Content: "Voici les commandes disponibles :",
		Components: []discordgo.MessageComponent{
			discord.SelectMenu(CommandMenuID, "Choisissez une commande", menuEntries),
		},
	})
	return nil
}

func (mn *Menu) handleSelect(ctx context.Context, api discord.API, i *discordgo.InteractionCreate) error {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		discord.RespondEphemeral(api, i, "Interaction inconnue.")
		return nil
	}
	switch values[0] {
	case "bonjour":
		discord.Respond(api, i, greetingText)
	case "aide":
		discord.Respond(api, i, helpText)
	case "messi":
		discord.Respond(api, i, messiText)
	case "citation":
		return mn.quotes.ShowBrowser(ctx, api, i)
	case "sounds":
		return mn.sounds.ShowBrowser(ctx, api, i)
	case "zen":
		return mn.members.ShowPicker(ctx, api, i, PickerZen)
	case "meteo":
		return mn.members.ShowPicker(ctx, api, i, PickerMeteo)
	default:
		discord.RespondEphemeral(api, i, "Interaction inconnue.")
	}
	return nil
}

func staticReply(text string) discord.MessageHandler {
	return func(_ context.Context, api discord.API, m *discordgo.Message, _ string) error {
		discord.Reply(api, m, &discordgo.MessageSend{Content: text})
		return nil
	}
}
