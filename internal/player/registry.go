package player

import (
	"sync"

	"github.com/rs/zerolog"
)

// Registry is the process-lifetime map of every player ever seen, keyed by
// username. Entries are never removed while the server runs; ratings
// persist across logins.
type Registry struct {
	log zerolog.Logger

	mu      sync.Mutex
	players map[string]*Player
}

// NewRegistry creates an empty player registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		log:     logger.With().Str("component", "player_registry").Logger(),
		players: make(map[string]*Player),
	}
}

// Register finds the player registered under name, creating one with the
// initial rating if none exists.
func (r *Registry) Register(name string) *Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.players[name]; ok {
		return p
	}
	p := New(name)
	r.players[name] = p
	r.log.Debug().Str("user", name).Msg("registered new player")
	return p
}

// Len returns the number of registered players.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// Finalize logs the final standings. Called once during shutdown, after
// all clients are gone.
func (r *Registry) Finalize() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.players {
		r.log.Info().Str("user", p.Name()).Int("rating", p.Rating()).Msg("final rating")
	}
	r.players = nil
}
