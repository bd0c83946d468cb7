package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/catalog"
	"github.com/MrWong99/citabot/internal/discord"
)

// Member picker kinds. The kind is the suffix of the picker custom_id.
const (
	PickerZen   = "zen"
	PickerMeteo = "meteo"
)

// MemberPickerPrefix prefixes the custom_id of the member pickers.
const MemberPickerPrefix = "select_pseudo_"

// MemberDirectory lists and resolves guild members. *discord.Members
// satisfies it.
type MemberDirectory interface {
	RoleMembers(ctx context.Context, guildID, roleName string, limit int) ([]*discordgo.Member, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
}

// MemberCommands implements the zen and meteo member pickers.
type MemberCommands struct {
	directory MemberDirectory
	role      string
}

// NewMemberCommands creates the member picker group listing holders of
// role.
func NewMemberCommands(directory MemberDirectory, role string) *MemberCommands {
	return &MemberCommands{directory: directory, role: role}
}

// Register wires the picker commands and components into r.
func (mc *MemberCommands) Register(r *discord.Router) {
	r.RegisterCommand("zen", mc.pickerCommand(PickerZen))
	r.RegisterCommand("meteo", mc.pickerCommand(PickerMeteo))
	r.RegisterCommand("météo", mc.pickerCommand(PickerMeteo))
	r.RegisterComponentPrefix(MemberPickerPrefix, mc.handleSelect)
}

// ShowPicker answers i with a select menu of the role holders for kind.
func (mc *MemberCommands) ShowPicker(ctx context.Context, api discord.API, i *discordgo.InteractionCreate, kind string) error {
	content, components, err := mc.picker(ctx, i.GuildID, kind)
	if components == nil {
		discord.RespondEphemeral(api, i, content)
		return err
	}
	discord.RespondComponents(api, i, content, components, true)
	return nil
}

// pickerCommand answers the text command for kind with the picker.
func (mc *MemberCommands) pickerCommand(kind string) discord.MessageHandler {
	return func(ctx context.Context, api discord.API, m *discordgo.Message, _ string) error {
		content, components, err := mc.picker(ctx, m.GuildID, kind)
		discord.Reply(api, m, &discordgo.MessageSend{Content: content, Components: components})
		return err
	}
}

// picker renders the member select menu for kind. components is nil when
// content is a notice instead of a prompt.
func (mc *MemberCommands) picker(ctx context.Context, guildID, kind string) (content string, components []discordgo.MessageComponent, err error) {
	members, err := mc.directory.RoleMembers(ctx, guildID, mc.role, catalog.MaxChoices)
	if err != nil {
		return "❌ Impossible de récupérer les membres.", nil, err
	}
	if len(members) == 0 {
		return fmt.Sprintf("Aucun membre %s trouvé.", mc.role), nil, nil
	}

	opts := make([]discordgo.SelectMenuOption, len(members))
	for n, mem := range members {
		opts[n] = discordgo.SelectMenuOption{
			Label:       catalog.Truncate(mem.User.Username, catalog.MaxLabelLen),
			Value:       mem.User.ID,
			Description: catalog.Truncate("Utilisateur : "+tag(mem.User), catalog.MaxDescriptionLen),
			Emoji:       &discordgo.ComponentEmoji{Name: "🧘‍♂️"},
		}
	}

	content = fmt.Sprintf("Veuillez sélectionner un membre pour %s :", mc.role)
	if kind == PickerMeteo {
		content = "Le fameux Météo !"
	}
	return content, []discordgo.MessageComponent{
		discord.SelectMenu(MemberPickerPrefix+kind, "Choisis un membre", opts),
	}, nil
}

func (mc *MemberCommands) handleSelect(ctx context.Context, api discord.API, i *discordgo.InteractionCreate) error {
	data := i.MessageComponentData()
	kind := strings.TrimPrefix(data.CustomID, MemberPickerPrefix)
	if len(data.Values) == 0 {
		discord.RespondEphemeral(api, i, "❌ Membre introuvable.")
		return nil
	}
	mem, err := mc.directory.Member(ctx, i.GuildID, data.Values[0])
	if err != nil || mem == nil || mem.User == nil {
		discord.RespondEphemeral(api, i, "❌ Membre introuvable.")
		return err
	}

	switch kind {
	case PickerMeteo:
		name := tag(mem.User)
		discord.RespondEphemeral(api, i, fmt.Sprintf("Météo : %s ?\n%s : Oui Météo ?\nMétéo : Non rien 😉", name, name))
	default:
		discord.RespondEphemeral(api, i, fmt.Sprintf("Membre %s sélectionné : %s", mc.role, tag(mem.User)))
	}
	return nil
}

// tag renders u as username#discriminator, or the bare username for
// accounts without a legacy discriminator.
func tag(u *discordgo.User) string {
	if u.Discriminator == "" || u.Discriminator == "0" {
		return u.Username
	}
	return u.Username + "#" + u.Discriminator
}
