package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/logging"
	"github.com/rameshbaboov/docmerger/internal/mcptools"
	"github.com/rameshbaboov/docmerger/internal/supervise"
)

// runMCP serves the merge tools over stdio until the client disconnects.
// Stdout carries the protocol; logs go to stderr and the log file only.
func runMCP(cfg config.Settings) error {
	log, closeLog, err := logging.New(cfg.LogPath(), cfg.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	driver, _, err := buildStack(cfg, log)
	if err != nil {
		return err
	}
	sup := supervise.New(driver, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcptools.NewMergeMCPServer(sup, cfg)
	return mcptools.RunMCPServerStdio(ctx, server)
}
