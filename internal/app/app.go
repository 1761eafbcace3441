// Package app wires configuration, logging, the registries, and the TCP
// server into a runnable unit.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/DanielLaszczych/TicTacToe/internal/config"
	"github.com/DanielLaszczych/TicTacToe/internal/core"
	"github.com/DanielLaszczych/TicTacToe/internal/player"
	"github.com/DanielLaszczych/TicTacToe/internal/transport/tcp"
)

// App owns the registries and the transport.
type App struct {
	log     *zerolog.Logger
	clients *core.Registry
	players *player.Registry
	server  *tcp.Server
}

// New constructs the application with the provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	clients := core.NewRegistry(logger, cfg.MaxClients)
	players := player.NewRegistry(logger)
	server := tcp.NewServer(cfg, logger, clients, players)

	return &App{
		log:     logger,
		clients: clients,
		players: players,
		server:  server,
	}
}

// Run serves until ctx is cancelled, then drains all sessions and
// finalizes the registries before returning.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}
