package discord

import (
	"log/slog"

	"github.com/bwmarrin/discordgo"
)

// Respond sends a public text response to an interaction.
func Respond(api API, i *discordgo.InteractionCreate, content string) {
	respond(api, i, &discordgo.InteractionResponseData{Content: content}, "text")
}

// RespondEphemeral sends an ephemeral text response to an interaction.
func RespondEphemeral(api API, i *discordgo.InteractionCreate, content string) {
	respond(api, i, &discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	}, "ephemeral")
}

// RespondEmbed sends an embed response to an interaction.
func RespondEmbed(api API, i *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	respond(api, i, data, "embed")
}

// RespondComponents sends content with message components (select menus,
// buttons) as a new interaction response.
func RespondComponents(api API, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent, ephemeral bool) {
	data := &discordgo.InteractionResponseData{Content: content, Components: components}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	respond(api, i, data, "components")
}

// UpdateComponents edits the message the interaction originated from.
func UpdateComponents(api API, i *discordgo.InteractionCreate, content string, components []discordgo.MessageComponent) {
	err := api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{Content: content, Components: components},
	})
	if err != nil {
		slog.Warn("discord: failed to update message", "err", err)
	}
}

func respond(api API, i *discordgo.InteractionCreate, data *discordgo.InteractionResponseData, kind string) {
	err := api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		slog.Warn("discord: failed to send response", "kind", kind, "err", err)
	}
}

// Acknowledge accepts a component interaction without replying. Follow-up
// messages sent afterwards are independent messages, each free to choose its
// own visibility.
func Acknowledge(api API, i *discordgo.InteractionCreate) {
	err := api.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})
	if err != nil {
		slog.Warn("discord: failed to acknowledge interaction", "err", err)
	}
}

// FollowUp sends a follow-up message after a deferred response.
func FollowUp(api API, i *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	if _, err := api.FollowupMessageCreate(i.Interaction, true, params); err != nil {
		slog.Warn("discord: failed to send follow-up", "err", err)
	}
}

// Reply answers a text command in its channel, referencing the command
// message.
func Reply(api API, m *discordgo.Message, data *discordgo.MessageSend) {
	if data.Reference == nil {
		data.Reference = m.Reference()
	}
	if _, err := api.ChannelMessageSendComplex(m.ChannelID, data); err != nil {
		slog.Warn("discord: failed to reply", "channel_id", m.ChannelID, "err", err)
	}
}

// SelectMenu builds a single-row string select component.
func SelectMenu(customID, placeholder string, options []discordgo.SelectMenuOption) discordgo.MessageComponent {
	return discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.SelectMenu{
			MenuType:    discordgo.StringSelectMenu,
			CustomID:    customID,
			Placeholder: placeholder,
			Options:     options,
		},
	}}
}
