package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"rssreceptor/domain"
)

// DefaultResolveTimeout bounds the wait for the feed identifier.
const DefaultResolveTimeout = 30 * time.Second

// Controller ingests one feed: fetch, provision tables, upsert the feed
// record, resolve its identifier, then upsert its items.
type Controller struct {
	source         domain.FeedSource
	fetcher        domain.FeedFetcher
	schema         *SchemaProvisioner
	upserts        *UpsertClient
	resolver       *Resolver
	items          *ItemProcessor
	resolveTimeout time.Duration
	log            *zap.Logger
	now            func() time.Time

	mu      sync.Mutex
	started bool
	status  domain.FeedStatus
}

type ControllerOption func(*Controller)

// WithResolveTimeout overrides DefaultResolveTimeout.
func WithResolveTimeout(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d > 0 {
			c.resolveTimeout = d
		}
	}
}

func WithLogger(log *zap.Logger) ControllerOption {
	return func(c *Controller) {
		if log != nil {
			c.log = log
		}
	}
}

// NewController wires a controller for source onto bus. Close releases its
// reply subscription.
func NewController(source domain.FeedSource, fetcher domain.FeedFetcher, bus domain.Bus, opts ...ControllerOption) (*Controller, error) {
	c := &Controller{
		source:         source,
		fetcher:        fetcher,
		resolveTimeout: DefaultResolveTimeout,
		log:            zap.NewNop(),
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(zap.String("feed", source.Name), zap.String("url", source.URL))

	resolver, err := NewResolver(bus, "feed-reader:"+source.Name, c.log)
	if err != nil {
		return nil, err
	}
	c.resolver = resolver
	c.schema = NewSchemaProvisioner(bus, c.log)
	c.upserts = NewUpsertClient(bus)
	c.items = NewItemProcessor(c.upserts, c.log)
	c.status = domain.FeedStatus{Name: source.Name, URL: source.URL, State: domain.StateUninitialized, UpdatedAt: c.now()}
	return c, nil
}

func (c *Controller) Close() {
	c.resolver.Close()
}

// State reports the controller's current state.
func (c *Controller) State() domain.FeedState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.State
}

// Status returns a snapshot of the controller's progress.
func (c *Controller) Status() domain.FeedStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Run drives the feed through the state machine once. It returns when the
// controller reaches Ready or Failed.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.started = true
	c.mu.Unlock()

	if err := c.run(ctx); err != nil {
		c.fail(err)
		return fmt.Errorf("feed %s: %w", c.source.Name, err)
	}
	return nil
}

func (c *Controller) run(ctx context.Context) error {
	// Fetch first: title and description come from the feed, and nothing is
	// emitted for a feed that cannot be read.
	feed, err := c.fetcher.Fetch(ctx, c.source.URL)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	if err := c.schema.EnsureTables(ctx, domain.TableFeed, domain.TableFeedItem); err != nil {
		return err
	}
	c.transition(domain.StateSchemaProvisioned)

	row := domain.FeedRow{
		FeedName:    c.source.Name,
		URL:         c.source.URL,
		Title:       feed.Title,
		Description: feed.Description,
	}
	if err := c.upserts.UpsertIfMissing(ctx, row, "URL"); err != nil {
		return err
	}
	c.transition(domain.StateFeedRecordUpserted)

	pending, err := c.resolver.ResolveID(ctx, domain.TableFeed, domain.Equals("FeedName", c.source.Name))
	if err != nil {
		return err
	}
	c.transition(domain.StateAwaitingIdentifier)

	waitCtx, cancel := context.WithTimeout(ctx, c.resolveTimeout)
	feedID, err := pending.Wait(waitCtx)
	cancel()
	if err != nil {
		return err
	}

	report := c.items.ProcessItems(ctx, feedID, feed.Items)
	c.mu.Lock()
	c.status.FeedID = feedID
	c.status.ItemsEmitted = report.Emitted
	c.status.ItemsSkipped = report.Skipped + report.Failed
	c.mu.Unlock()
	c.transition(domain.StateReady)

	c.log.Info("feed ingested",
		zap.Int64("feed_id", int64(feedID)),
		zap.Int("items", len(feed.Items)),
		zap.Int("emitted", report.Emitted),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed))
	// TODO: schedule a re-fetch once the feed's TTL is honoured.
	return nil
}

func (c *Controller) transition(state domain.FeedState) {
	c.mu.Lock()
	c.status.State = state
	c.status.UpdatedAt = c.now()
	c.mu.Unlock()
	c.log.Debug("state changed", zap.String("state", string(state)))
}

func (c *Controller) fail(err error) {
	c.mu.Lock()
	c.status.State = domain.StateFailed
	c.status.Error = err.Error()
	c.status.UpdatedAt = c.now()
	c.mu.Unlock()
	c.log.Error("feed ingestion failed", zap.Error(err))
}
