// Package main is the entry point for the bulletin board server.
//
// main() stays minimal — its job is to:
//  1. Read configuration (environment, optional .env)
//  2. Create dependencies (logger, snapshot store, board, access gate)
//  3. Start the server
//
// All actual logic lives in the internal packages; this is just assembly.
package main

import (
	"log/slog"
	"os"

	"github.com/xfsay/xmg-hall/internal/admin"
	"github.com/xfsay/xmg-hall/internal/board"
	"github.com/xfsay/xmg-hall/internal/config"
	"github.com/xfsay/xmg-hall/internal/server"
	"github.com/xfsay/xmg-hall/internal/store"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// The store self-heals on load (missing file, corrupt snapshot), so a
	// failure here is a genuine I/O problem worth dying for.
	snap := store.New(cfg.DataDir, logger)
	b, err := board.New(snap, logger)
	if err != nil {
		logger.Error("failed to load board", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("board loaded", slog.String("snapshot", snap.Path()))

	// Admin sessions are opt-in: no secret, no login routes. The gate itself
	// works either way.
	var tokens *admin.TokenService
	if cfg.SessionSecret != "" {
		tokens, err = admin.NewTokenService(cfg.SessionSecret)
		if err != nil {
			logger.Error("invalid ADMIN_SESSION_SECRET", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	gate := admin.NewGate(cfg.AdminUser, cfg.AdminPass, cfg.AdminKey, tokens)
	if !gate.Enabled() {
		logger.Warn("no admin credentials configured — privileged routes will reject every request")
	}

	srv := server.New(server.Config{
		Port:       cfg.Port,
		PublicDir:  cfg.PublicDir,
		PrivateDir: cfg.PrivateDir,
	}, logger, b, gate, tokens)

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM).
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
