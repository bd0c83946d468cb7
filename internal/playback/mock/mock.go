// Package mock provides a test double for the playback manager as seen by
// the command layer.
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/citabot/internal/playback"
)

// Player records Play requests and returns PlayError.
//
// Player never creates real sessions: Play returns a nil *playback.Session
// alongside PlayError.
type Player struct {
	mu sync.Mutex

	// PlayError is returned by every Play call.
	PlayError error

	// PlayCalls records every request.
	PlayCalls []playback.Request
}

// Play records req.
func (p *Player) Play(_ context.Context, req playback.Request) (*playback.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.PlayCalls = append(p.PlayCalls, req)
	return nil, p.PlayError
}

// Calls returns a copy of PlayCalls under the lock.
func (p *Player) Calls() []playback.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]playback.Request, len(p.PlayCalls))
	copy(out, p.PlayCalls)
	return out
}
