// Package app wires configuration, logging, the chat hub, and the TCP server
// into one runnable unit.
package app

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/dkrasnov/linechat/internal/config"
	"github.com/dkrasnov/linechat/internal/core"
	"github.com/dkrasnov/linechat/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	server *tcp.Server
	log    *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg config.Config, logger *zerolog.Logger) *App {
	hub := core.NewHub(cfg.ServerName, cfg.MOTD, logger)
	server := tcp.NewServer(cfg, hub, logger)

	return &App{
		server: server,
		log:    logger,
	}
}

// Run starts the TCP server and blocks until context cancellation or the
// server stops on its own.
func (a *App) Run(ctx context.Context) error {
	return a.server.Run(ctx)
}
