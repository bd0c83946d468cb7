package quote

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	customEmojiRe    = regexp.MustCompile(`<a?:\w+:\d+>`)
	userMentionRe    = regexp.MustCompile(`<@!?(\d+)>`)
	channelMentionRe = regexp.MustCompile(`<#\d+>`)
	roleMentionRe    = regexp.MustCompile(`<@&\d+>`)
	urlRe            = regexp.MustCompile(`https?://`)

	// attributionRe matches "[-] label : text". The label is everything up
	// to the first colon.
	attributionRe = regexp.MustCompile(`^-?\s*([^:]+)\s*:\s*(.+)$`)
)

// MemberResolver maps a user ID found in a mention token to the member's
// username. Implementations return [ErrUnknownMember] when the user is not
// part of the guild.
type MemberResolver interface {
	Username(ctx context.Context, userID string) (string, error)
}

// MemberResolverFunc adapts a plain function to [MemberResolver].
type MemberResolverFunc func(ctx context.Context, userID string) (string, error)

// Username implements [MemberResolver].
func (f MemberResolverFunc) Username(ctx context.Context, userID string) (string, error) {
	return f(ctx, userID)
}

// Parser converts raw channel history into [Record] values.
//
// Parser is safe for concurrent use if its [MemberResolver] is.
type Parser struct {
	members MemberResolver
}

// NewParser returns a Parser that resolves user mentions through members.
// A nil resolver renders every mention as [UnknownMember].
func NewParser(members MemberResolver) *Parser {
	return &Parser{members: members}
}

// Parse converts msgs, ordered oldest to newest, into records in the same
// order. Rejected messages and messages without any dialogue are skipped.
//
// Parse fails as a whole: on a cancelled context or a resolver error it
// returns no records at all.
func (p *Parser) Parse(ctx context.Context, msgs []Message) ([]Record, error) {
	records := make([]Record, 0, len(msgs))
	for _, msg := range msgs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("quote: parse: %w", err)
		}
		rec, ok, err := p.ParseMessage(ctx, msg)
		if err != nil {
			return nil, err
		}
		if ok {
			records = append(records, rec)
		}
	}
	return records, nil
}

// ParseMessage converts a single message. The boolean result is false when
// the message is rejected by [Accept] or yields no dialogue.
func (p *Parser) ParseMessage(ctx context.Context, msg Message) (Record, bool, error) {
	if !Accept(msg) {
		return Record{}, false, nil
	}
	body, err := p.Normalize(ctx, msg.Content)
	if err != nil {
		return Record{}, false, fmt.Errorf("quote: parse message %s: %w", msg.ID, err)
	}
	lines := SplitDialogue(body)
	if len(lines) == 0 {
		return Record{}, false, nil
	}
	return Record{
		AuthorID:   msg.AuthorID,
		AuthorName: msg.AuthorName,
		Lines:      lines,
		MessageID:  msg.ID,
		CreatedAt:  msg.CreatedAt,
	}, true, nil
}

// Accept reports whether msg is eligible for the knowledge base. Empty
// bodies, messages with attachments and messages that contain a link are
// rejected.
func Accept(msg Message) bool {
	if msg.Content == "" || len(msg.Attachments) > 0 {
		return false
	}
	return !urlRe.MatchString(msg.Content)
}

// Normalize strips custom emoji, channel and role mentions from content,
// rewrites user mentions to "@username" and trims surrounding whitespace.
func (p *Parser) Normalize(ctx context.Context, content string) (string, error) {
	content = customEmojiRe.ReplaceAllString(content, "")

	var resolveErr error
	content = userMentionRe.ReplaceAllStringFunc(content, func(token string) string {
		if resolveErr != nil {
			return token
		}
		id := userMentionRe.FindStringSubmatch(token)[1]
		name, err := p.username(ctx, id)
		if err != nil {
			resolveErr = err
			return token
		}
		return name
	})
	if resolveErr != nil {
		return "", resolveErr
	}

	content = channelMentionRe.ReplaceAllString(content, "")
	content = roleMentionRe.ReplaceAllString(content, "")
	return strings.TrimSpace(content), nil
}

func (p *Parser) username(ctx context.Context, userID string) (string, error) {
	if p.members == nil {
		return UnknownMember, nil
	}
	name, err := p.members.Username(ctx, userID)
	switch {
	case errors.Is(err, ErrUnknownMember):
		return UnknownMember, nil
	case err != nil:
		return "", fmt.Errorf("resolve member %s: %w", userID, err)
	case name == "":
		return UnknownMember, nil
	}
	return "@" + name, nil
}

// SplitDialogue segments a normalized body into dialogue lines.
//
// A physical line of the form "[-] label: text" opens a new line for label.
// Any other line opens a narrative line when nothing is open yet, and is
// otherwise appended to the most recent line with a separating space.
func SplitDialogue(body string) []DialogueLine {
	var lines []DialogueLine
	for _, raw := range strings.Split(body, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if m := attributionRe.FindStringSubmatch(raw); m != nil {
			lines = append(lines, DialogueLine{
				Speaker: strings.TrimSpace(m[1]),
				Text:    strings.TrimSpace(m[2]),
			})
			continue
		}
		if len(lines) == 0 {
			lines = append(lines, DialogueLine{Speaker: NarrativeLabel, Text: raw})
			continue
		}
		lines[len(lines)-1].Text += " " + raw
	}
	return lines
}
