package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DanielLaszczych/TicTacToe/internal/app"
	"github.com/DanielLaszczych/TicTacToe/internal/config"
	"github.com/DanielLaszczych/TicTacToe/internal/log"
)

func usage() {
	fmt.Fprintf(os.Stdout, "Usage: %s -p <port>\n", os.Args[0])
}

func main() {
	fs := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	fs.Usage = usage

	port := fs.Int("p", 0, "TCP port to listen on (required)")
	configPath := fs.String("config", "", "path to a yaml config file")

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(0)
	}
	if *port <= 0 || *port > 65535 {
		usage()
		os.Exit(0)
	}

	logger := log.New("info")
	cfg, err := config.Load(logger, *configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	cfg.Port = *port
	logger = log.New(cfg.LogLevel)

	// SIGHUP is the documented shutdown signal; SIGINT and SIGTERM are
	// honored as well for operational convenience. SIGPIPE needs no
	// handling in Go: writes to closed sockets surface as errors.
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, logger)

	logger.Info().Int("port", cfg.Port).Msg("starting game server")
	if err := application.Run(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server exited with error")
	}
	logger.Info().Msg("server stopped")
}
