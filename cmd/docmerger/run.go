package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/logging"
	"github.com/rameshbaboov/docmerger/internal/merge"
	"github.com/rameshbaboov/docmerger/internal/supervise"
)

// stopGrace bounds how long shutdown waits for an in-flight pass.
const stopGrace = 30 * time.Second

// runOnce executes a single merge pass and prints its summary. Per-document
// failures are recorded in the ledger and do not fail the command; only a
// pass-level error (unreadable ledger or artifact) does.
func runOnce(cfg config.Settings) error {
	log, closeLog, err := logging.New(cfg.LogPath(), cfg.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	driver, hub, err := buildStack(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drain := printProgress(hub, cfg.Verbose)
	res, err := driver.RunPass(ctx)
	drain()
	if err != nil {
		return err
	}

	fmt.Printf("Pass complete: %d merged, %d failed, %d skipped (%d candidate(s))\n",
		res.Succeeded, res.Failed, res.Skipped, res.Candidates)
	return nil
}

// runLoop runs merge passes forever at the configured interval, until
// interrupted.
func runLoop(cfg config.Settings) error {
	log, closeLog, err := logging.New(cfg.LogPath(), cfg.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	driver, hub, err := buildStack(cfg, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drain := printProgress(hub, cfg.Verbose)
	defer drain()

	sup := supervise.New(driver, log)
	if err := sup.Start(cfg.Interval()); err != nil {
		return err
	}

	<-ctx.Done()
	stop() // a second interrupt kills the process the usual way

	shctx, cancel := context.WithTimeout(context.Background(), stopGrace)
	defer cancel()
	return sup.Stop(shctx)
}

// printProgress echoes merge events to stdout while verbose mode is on.
// The returned function unsubscribes and waits for the printer to drain.
func printProgress(hub *merge.Hub, verbose bool) func() {
	if !verbose {
		return func() {}
	}
	ch, cancel := hub.Subscribe()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range ch {
			fmt.Println(merge.FormatEvent(ev))
		}
	}()
	return func() {
		cancel()
		wg.Wait()
	}
}
