package resilience

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrWong99/citabot/internal/quote"
	"github.com/MrWong99/citabot/pkg/audio"
)

// Platform guards voice joins of an [audio.Platform] with a [Breaker].
type Platform struct {
	next    audio.Platform
	breaker *Breaker
}

var _ audio.Platform = (*Platform)(nil)

// NewPlatform wraps next.
func NewPlatform(next audio.Platform, breaker *Breaker) *Platform {
	return &Platform{next: next, breaker: breaker}
}

// Connect implements [audio.Platform].
func (p *Platform) Connect(ctx context.Context, guildID, channelID string) (audio.Connection, error) {
	var conn audio.Connection
	err := p.breaker.Do(func() error {
		var err error
		conn, err = p.next.Connect(ctx, guildID, channelID)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("voice join in guild %s: %w", guildID, err)
	}
	return conn, err
}

// Source guards history fetches of a [quote.Source] with a [Breaker].
type Source struct {
	next    quote.Source
	breaker *Breaker
}

var _ quote.Source = (*Source)(nil)

// NewSource wraps next.
func NewSource(next quote.Source, breaker *Breaker) *Source {
	return &Source{next: next, breaker: breaker}
}

// History implements [quote.Source].
func (s *Source) History(ctx context.Context) ([]quote.Message, error) {
	var msgs []quote.Message
	err := s.breaker.Do(func() error {
		var err error
		msgs, err = s.next.History(ctx)
		return err
	})
	if errors.Is(err, ErrCircuitOpen) {
		return nil, fmt.Errorf("quote history: %w", err)
	}
	return msgs, err
}
