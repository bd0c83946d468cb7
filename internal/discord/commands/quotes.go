package commands

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/MrWong99/citabot/internal/catalog"
	"github.com/MrWong99/citabot/internal/discord"
	"github.com/MrWong99/citabot/internal/quote"
)

const (
	// QuoteMenuID is the custom_id of the quote browser select menu.
	QuoteMenuID = "menu_citations"

	// QuotePagePrefix prefixes the custom_id of the browser page buttons.
	QuotePagePrefix = "quote_page:"

	// QuoteColor is the embed colour of a displayed quote.
	QuoteColor = 0xf5c518
)

// QuoteCommands implements the quote read path: a random quote by author,
// the paged quote browser and the explicit reload.
type QuoteCommands struct {
	store  *quote.Store
	source quote.Source

	// pick returns a random index in [0, n).
	pick func(n int) int
}

// NewQuoteCommands creates the quote command group. source is what
// !reload_citations reloads from.
func NewQuoteCommands(store *quote.Store, source quote.Source) *QuoteCommands {
	return &QuoteCommands{store: store, source: source, pick: rand.IntN}
}

// Register wires the quote commands and components into r.
func (qc *QuoteCommands) Register(r *discord.Router) {
	r.RegisterCommand("citation", qc.handleCitation)
	r.RegisterCommand("reload_citations", qc.handleReload)
	r.RegisterComponent(QuoteMenuID, qc.handleSelect)
	r.RegisterComponentPrefix(QuotePagePrefix, qc.handlePage)
}

// handleCitation replies with a random quote whose author matches args.
func (qc *QuoteCommands) handleCitation(_ context.Context, api discord.API, m *discordgo.Message, args string) error {
	records := qc.store.Query(args)
	if len(records) == 0 {
		content := "⚠️ Aucune citation trouvée."
		if best, ok := catalog.Closest(args, qc.store.Authors(), catalog.DefaultSimilarity); ok {
			content += fmt.Sprintf(" Tu voulais dire **%s** ?", best)
		}
		discord.Reply(api, m, &discordgo.MessageSend{Content: content})
		return nil
	}
	rec := records[qc.pick(len(records))]
	discord.Reply(api, m, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{QuoteEmbed(rec)}})
	return nil
}

func (qc *QuoteCommands) handleReload(ctx context.Context, api discord.API, m *discordgo.Message, _ string) error {
	n, err := qc.store.Reload(ctx, qc.source)
	if err != nil {
		content := "❌ Échec du rechargement des citations."
		if errors.Is(err, quote.ErrSourceNotFound) {
			content = "❌ Salon des citations introuvable."
		}
		discord.Reply(api, m, &discordgo.MessageSend{Content: content})
		return err
	}
	discord.Reply(api, m, &discordgo.MessageSend{Content: fmt.Sprintf("✅ %d citation(s) chargée(s).", n)})
	return nil
}

// ShowBrowser answers i with the first page of the quote browser.
func (qc *QuoteCommands) ShowBrowser(_ context.Context, api discord.API, i *discordgo.InteractionCreate) error {
	records := qc.store.Query("")
	if len(records) == 0 {
		discord.RespondEphemeral(api, i, "⚠️ Aucune citation trouvée.")
		return nil
	}
	discord.RespondComponents(api, i, "📖 Sélectionne une citation :", quoteBrowser(records, 0), false)
	return nil
}

func (qc *QuoteCommands) handlePage(_ context.Context, api discord.API, i *discordgo.InteractionCreate) error {
	raw := strings.TrimPrefix(i.MessageComponentData().CustomID, QuotePagePrefix)
	page, err := strconv.Atoi(raw)
	if err != nil {
		discord.RespondEphemeral(api, i, "Interaction inconnue.")
		return fmt.Errorf("commands: parse quote page %q: %w", raw, err)
	}
	records := qc.store.Query("")
	if len(records) == 0 {
		discord.UpdateComponents(api, i, "⚠️ Aucune citation trouvée.", []discordgo.MessageComponent{})
		return nil
	}
	discord.UpdateComponents(api, i, "📖 Sélectionne une citation :", quoteBrowser(records, page))
	return nil
}

func (qc *QuoteCommands) handleSelect(_ context.Context, api discord.API, i *discordgo.InteractionCreate) error {
	values := i.MessageComponentData().Values
	if len(values) == 0 {
		discord.RespondEphemeral(api, i, "❌ Citation introuvable.")
		return nil
	}
	rec, err := qc.store.GetByMessageID(values[0])
	if err != nil {
		discord.RespondEphemeral(api, i, "❌ Citation introuvable.")
		return nil
	}
	embed := QuoteEmbed(rec)
	if u := discord.InteractionUser(i); u != nil {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: "Demandé par " + u.Username}
	}
	discord.RespondEmbed(api, i, embed, true)
	return nil
}

// QuoteEmbed renders rec as a message embed.
func QuoteEmbed(rec quote.Record) *discordgo.MessageEmbed {
	lines := make([]string, len(rec.Lines))
	for n, l := range rec.Lines {
		lines[n] = fmt.Sprintf("**%s**: %s", l.Speaker, l.Text)
	}
	return &discordgo.MessageEmbed{
		Title:       "💬 Citation de " + rec.AuthorName,
		Description: strings.Join(lines, "\n"),
		Color:       QuoteColor,
	}
}

var quoteProjection = catalog.Projection[quote.Record]{
	Label:       func(r quote.Record) string { return "Citation de " + r.AuthorName },
	Description: quote.Record.Summary,
	Value:       func(_ int, r quote.Record) string { return r.MessageID },
}

// quoteBrowser builds the select menu for one page of records plus the
// page navigation buttons when there is more than one page.
func quoteBrowser(records []quote.Record, page int) []discordgo.MessageComponent {
	p := catalog.BuildPage(records, quoteProjection, page, catalog.MaxChoices)
	placeholder := "Choisis une citation"
	if p.Count > 1 {
		placeholder = fmt.Sprintf("Choisis une citation (page %d/%d)", p.Number+1, p.Count)
	}
	components := []discordgo.MessageComponent{
		discord.SelectMenu(QuoteMenuID, placeholder, selectOptions(p.Choices)),
	}
	if nav := pageButtons(QuotePagePrefix, p); nav != nil {
		components = append(components, nav)
	}
	return components
}
