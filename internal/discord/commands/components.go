package commands

import (
	"strconv"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/catalog"
)

func selectOptions(choices []catalog.Choice) []discordgo.SelectMenuOption {
	opts := make([]discordgo.SelectMenuOption, len(choices))
	for n, c := range choices {
		opts[n] = discordgo.SelectMenuOption{
			Label:       c.Label,
			Value:       c.Value,
			Description: c.Description,
		}
	}
	return opts
}

// pageButtons returns the previous/next row for p, or nil when p is the
// only page. Button custom_ids are prefix followed by the target page.
func pageButtons(prefix string, p catalog.Page) discordgo.MessageComponent {
	if p.Count <= 1 {
		return nil
	}
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "◀️ Précédent",
			Style:    discordgo.SecondaryButton,
			CustomID: prefix + strconv.Itoa(p.Number-1),
			Disabled: !p.HasPrev(),
		},
		discordgo.Button{
			Label:    "Suivant ▶️",
			Style:    discordgo.SecondaryButton,
			CustomID: prefix + strconv.Itoa(p.Number+1),
			Disabled: !p.HasNext(),
		},
	}}
}
