package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"rssreceptor/adapter/bus"
	"rssreceptor/adapter/rss"
	"rssreceptor/adapter/storage"
	"rssreceptor/app"
	"rssreceptor/domain"
	"rssreceptor/internal/config"
	"rssreceptor/internal/logging"
)

type commandContext struct {
	configFlag *string

	cfg config.Config
	log *zap.Logger
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag, log: zap.NewNop()}
}

func (c *commandContext) init() error {
	var path string
	if c.configFlag != nil {
		path = strings.TrimSpace(*c.configFlag)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.cfg = cfg
	c.log = log
	return nil
}

func (c *commandContext) sync() {
	if c.log != nil {
		_ = c.log.Sync()
	}
}

// openRepository connects to the configured store and makes sure both
// tables exist so read commands work against a fresh database.
func (c *commandContext) openRepository(ctx context.Context) (*storage.Repository, *sql.DB, error) {
	db, dialect, err := storage.Open(ctx, c.cfg.Storage.Driver, c.cfg.Storage.DSN())
	if err != nil {
		return nil, nil, err
	}
	repo := storage.New(db, dialect)
	for _, table := range []string{domain.TableFeed, domain.TableFeedItem} {
		if err := repo.RequireTable(ctx, table, table); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return repo, db, nil
}

// pipeline is one bus with the storage receptor attached.
type pipeline struct {
	bus      *bus.Bus
	receptor *storage.Receptor
	fetcher  *rss.HTTPFetcher
}

func (c *commandContext) startPipeline(repo *storage.Repository) (*pipeline, error) {
	b := bus.New(c.log)
	receptor := storage.NewReceptor(repo, b, c.log)
	if err := receptor.Start(); err != nil {
		b.Close()
		return nil, err
	}
	return &pipeline{
		bus:      b,
		receptor: receptor,
		fetcher:  rss.NewHTTPFetcher(c.cfg.FetchTimeout.Duration()),
	}, nil
}

func (p *pipeline) close() {
	p.receptor.Stop()
	p.bus.Close()
}

// ingest runs every source once and waits until storage has processed
// everything the controllers emitted.
func (c *commandContext) ingest(ctx context.Context, p *pipeline, sup *app.Supervisor, sources []domain.FeedSource) error {
	start := time.Now()
	runErr := sup.Run(ctx, sources)
	if err := p.bus.WaitIdle(ctx); err != nil {
		return err
	}
	report := sup.Status()
	ready := 0
	for _, st := range report.Feeds {
		if st.State == domain.StateReady {
			ready++
		}
	}
	c.log.Info("ingestion finished",
		zap.Int("feeds", len(report.Feeds)),
		zap.Int("ready", ready),
		zap.Int("storage_faults", len(report.StorageFaults)),
		zap.Duration("took", time.Since(start)))
	return runErr
}
