package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"rssreceptor/app"
	"rssreceptor/cli/control"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Ingest every configured feed and serve status until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.run(cmd.Context())
		},
	}
}

func (c *commandContext) run(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	listener, err := control.TryListen(c.cfg.ControlAddr)
	if err != nil {
		if errors.Is(err, control.ErrAlreadyRunning) {
			return fmt.Errorf("an instance is already serving %s: %w", c.cfg.ControlAddr, err)
		}
		return err
	}
	defer listener.Close()

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	repo, db, err := c.openRepository(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	p, err := c.startPipeline(repo)
	if err != nil {
		return err
	}
	defer p.close()

	sup := app.NewSupervisor(p.bus, p.fetcher, c.cfg.Workers, c.cfg.ResolveTimeout.Duration(), c.log)
	defer sup.Close()

	srv := &http.Server{
		Handler:           control.NewServer(sup, c.log),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		// Feed failures are reported through /status and do not stop the server.
		if err := c.ingest(gctx, p, sup, c.cfg.Sources()); err != nil && gctx.Err() == nil {
			c.log.Warn("some feeds failed", zap.Error(err))
		}
		return nil
	})

	c.log.Info("started",
		zap.String("control_addr", listener.Addr().String()),
		zap.Int("feeds", len(c.cfg.Feeds)),
		zap.Int("workers", c.cfg.Workers))

	err = g.Wait()
	c.log.Info("graceful shutdown")
	return err
}
