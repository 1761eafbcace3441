package core

import (
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/DanielLaszczych/TicTacToe/internal/player"
)

// DefaultMaxClients bounds the registry when no capacity is configured.
const DefaultMaxClients = 64

// Registry is the set of currently connected clients. It owns registration
// and teardown, username lookup across logged-in clients, the shutdown
// fan-out, and the quiesce wait used by graceful shutdown.
//
// The registry lock is ordered strictly before any client lock: registry
// methods may touch client state, but no client operation ever re-enters
// the registry.
type Registry struct {
	log      zerolog.Logger
	capacity int

	mu      sync.Mutex
	empty   *sync.Cond
	clients map[*Client]struct{}
	nextSeq uint64
	down    bool
}

// NewRegistry creates a registry bounded to capacity clients.
func NewRegistry(logger *zerolog.Logger, capacity int) *Registry {
	if capacity <= 0 {
		capacity = DefaultMaxClients
	}
	r := &Registry{
		log:      logger.With().Str("component", "client_registry").Logger(),
		capacity: capacity,
		clients:  make(map[*Client]struct{}),
	}
	r.empty = sync.NewCond(&r.mu)
	return r
}

// Register creates a client for an accepted connection. It fails with
// ErrFull when the registry is at capacity, or ErrShuttingDown once
// ShutdownAll has run; the caller then closes the connection immediately.
// A client registered after the shutdown fan-out would never be
// half-closed, so WaitForEmpty would stall on it.
func (r *Registry) Register(conn net.Conn) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.down {
		return nil, ErrShuttingDown
	}
	if len(r.clients) >= r.capacity {
		return nil, ErrFull
	}
	r.nextSeq++
	logger := r.log.With().
		Str("conn_id", uuid.NewString()).
		Str("remote", conn.RemoteAddr().String()).
		Logger()
	c := NewClient(r.nextSeq, conn, logger)
	r.clients[c] = struct{}{}
	r.log.Debug().Int("connected", len(r.clients)).Msg("client registered")
	return c, nil
}

// Unregister removes the client from the registry. When the registry
// becomes empty, goroutines blocked in WaitForEmpty are released.
func (r *Registry) Unregister(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}
	delete(r.clients, c)
	r.log.Debug().Int("connected", len(r.clients)).Msg("client unregistered")
	if len(r.clients) == 0 {
		r.empty.Broadcast()
	}
}

// Login logs c in as p, enforcing that at most one live client holds any
// username. The name scan and the login happen under the registry lock, so
// two clients racing to claim the same name cannot both win.
func (r *Registry) Login(c *Client, p *player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for other := range r.clients {
		if other == c {
			continue
		}
		if op := other.Player(); op != nil && op.Name() == p.Name() {
			return ErrDuplicate
		}
	}
	return c.Login(p)
}

// Lookup returns the client logged in under the exact username, or nil.
func (r *Registry) Lookup(name string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	for c := range r.clients {
		if p := c.Player(); p != nil && p.Name() == name {
			return c
		}
	}
	return nil
}

// Players snapshots the players of all logged-in clients.
func (r *Registry) Players() []*player.Player {
	r.mu.Lock()
	defer r.mu.Unlock()

	players := make([]*player.Player, 0, len(r.clients))
	for c := range r.clients {
		if p := c.Player(); p != nil {
			players = append(players, p)
		}
	}
	return players
}

// Len returns the number of connected clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// ShutdownAll half-closes every registered client's socket so each session
// loop sees EOF on its next read, and marks the registry so no further
// clients can register. Clients are not unregistered here; their session
// loops do that as they drain and exit.
func (r *Registry) ShutdownAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.down = true
	r.log.Info().Int("connected", len(r.clients)).Msg("shutting down all client connections")
	for c := range r.clients {
		c.Shutdown()
	}
}

// WaitForEmpty blocks until no clients remain registered. Safe for any
// number of concurrent callers.
func (r *Registry) WaitForEmpty() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.clients) > 0 {
		r.empty.Wait()
	}
}
