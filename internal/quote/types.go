// Package quote turns the history of a designated chat channel into a
// structured knowledge base of multi-speaker quotations and serves it from
// an in-memory, atomically replaceable snapshot.
package quote

import (
	"errors"
	"strings"
	"time"
)

// NarrativeLabel is the speaker label given to a line that opens a quote
// without an explicit "Speaker: text" attribution.
const NarrativeLabel = "📜"

// UnknownMember is substituted for a user mention whose member cannot be
// resolved.
const UnknownMember = "@inconnu"

var (
	// ErrNotFound is returned by positional and handle lookups that do not
	// resolve against the current snapshot.
	ErrNotFound = errors.New("quote: not found")

	// ErrSourceNotFound is returned when the designated category or channel
	// cannot be located on the guild.
	ErrSourceNotFound = errors.New("quote: source channel not found")

	// ErrUnknownMember is returned by a [MemberResolver] when the referenced
	// user is not a member of the guild. The parser falls back to
	// [UnknownMember] for it; any other resolver error aborts the parse.
	ErrUnknownMember = errors.New("quote: unknown member")
)

// DialogueLine is one attributed (or narrative) utterance within a [Record].
type DialogueLine struct {
	// Speaker is the explicit attribution parsed from the line, or
	// [NarrativeLabel].
	Speaker string `yaml:"speaker" json:"speaker"`

	// Text is the utterance, with wrapped continuation lines joined by a
	// single space.
	Text string `yaml:"text" json:"text"`
}

// Record is one parsed knowledge-base entry derived from a single source
// message. Lines always holds at least one element.
type Record struct {
	// AuthorID is the platform ID of the user who posted the source message.
	AuthorID string `yaml:"author_id" json:"author_id"`

	// AuthorName is the display name of that user.
	AuthorName string `yaml:"author_name" json:"author_name"`

	Lines []DialogueLine `yaml:"lines" json:"lines"`

	// MessageID identifies the source message and doubles as the stable
	// handle used by selection prompts.
	MessageID string `yaml:"message_id" json:"message_id"`

	CreatedAt time.Time `yaml:"created_at" json:"created_at"`
}

// Summary renders the dialogue on a single line, "speaker: text" pairs
// separated by " | ".
func (r Record) Summary() string {
	parts := make([]string, len(r.Lines))
	for i, l := range r.Lines {
		parts[i] = l.Speaker + ": " + l.Text
	}
	return strings.Join(parts, " | ")
}

// Attachment describes a file attached to a raw message. Only its presence
// matters to the parser.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// Message is a raw historical message as fetched from the source channel.
type Message struct {
	ID          string       `json:"id"`
	AuthorID    string       `json:"author_id"`
	AuthorName  string       `json:"author_name"`
	Content     string       `json:"content"`
	Attachments []Attachment `json:"attachments,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}
