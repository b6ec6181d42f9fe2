package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rameshbaboov/docmerger/internal/config"
	"github.com/rameshbaboov/docmerger/internal/logging"
	"github.com/rameshbaboov/docmerger/internal/supervise"
	"github.com/rameshbaboov/docmerger/internal/web"
)

// runServe hosts the dashboard with an in-process merge supervisor. The
// merge loop is not started automatically; the dashboard's job controls
// own it.
func runServe(cfg config.Settings) error {
	log, closeLog, err := logging.New(cfg.LogPath(), cfg.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	driver, hub, err := buildStack(cfg, log)
	if err != nil {
		return err
	}
	sup := supervise.New(driver, log)
	srv, err := web.NewServer(cfg, driver, sup, hub, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := srv.Start(cfg.Addr)

	// The first failure cancels the derived context, so a dying HTTP
	// server tears the supervisor down and vice versa.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case err, ok := <-errc:
			if ok && err != nil {
				return fmt.Errorf("dashboard: %w", err)
			}
			return nil
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		shctx, cancel := context.WithTimeout(context.Background(), stopGrace)
		defer cancel()
		if err := sup.Stop(shctx); err != nil {
			log.Warn("merge loop did not stop cleanly", zap.Error(err))
		}
		return srv.Stop(shctx)
	})
	return g.Wait()
}
