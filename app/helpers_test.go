package app

import (
	"context"
	"errors"
	"sync"

	"rssreceptor/domain"
)

// recordingBus delivers synchronously and keeps every carrier in publish
// order. When respond is set it answers selects the way storage would.
type recordingBus struct {
	mu       sync.Mutex
	carriers []domain.Carrier
	subs     []*recordingSub
	respond  func(domain.DatabaseRecord) (domain.Recordset, bool)
}

type recordingSub struct {
	bus       *recordingBus
	protocols map[domain.Protocol]bool
	handler   domain.Handler
	once      sync.Once
}

func (s *recordingSub) Unsubscribe() {
	s.once.Do(func() {
		s.bus.mu.Lock()
		defer s.bus.mu.Unlock()
		for i, sub := range s.bus.subs {
			if sub == s {
				s.bus.subs = append(s.bus.subs[:i], s.bus.subs[i+1:]...)
				return
			}
		}
	})
}

func (b *recordingBus) Publish(ctx context.Context, protocol domain.Protocol, signal any) error {
	c := domain.Carrier{Protocol: protocol, Signal: signal}
	b.mu.Lock()
	b.carriers = append(b.carriers, c)
	var targets []*recordingSub
	for _, s := range b.subs {
		if s.protocols[protocol] {
			targets = append(targets, s)
		}
	}
	respond := b.respond
	b.mu.Unlock()

	for _, s := range targets {
		s.handler(ctx, c)
	}
	if rec, ok := signal.(domain.DatabaseRecord); ok && rec.Action == domain.ActionSelect && respond != nil {
		if rs, ok := respond(rec); ok {
			rs.CorrelationID = rec.CorrelationID
			rs.TableName = rec.TableName
			return b.Publish(ctx, rec.ResponseProtocol, rs)
		}
	}
	return nil
}

func (b *recordingBus) Subscribe(_ string, protocols []domain.Protocol, h domain.Handler) (domain.Subscription, error) {
	set := make(map[domain.Protocol]bool, len(protocols))
	for _, p := range protocols {
		set[p] = true
	}
	s := &recordingSub{bus: b, protocols: set, handler: h}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s, nil
}

func (b *recordingBus) all() []domain.Carrier {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.Carrier(nil), b.carriers...)
}

// itemRows returns the rows of every RSSFeedItem upsert, in emission order.
func (b *recordingBus) itemRows() []domain.FeedItemRow {
	var rows []domain.FeedItemRow
	for _, c := range b.all() {
		rec, ok := c.Signal.(domain.DatabaseRecord)
		if !ok || rec.TableName != domain.TableFeedItem || rec.Action != domain.ActionInsertIfMissing {
			continue
		}
		rows = append(rows, rec.Row.(domain.FeedItemRow))
	}
	return rows
}

func respondWithIDs(ids ...domain.ID) func(domain.DatabaseRecord) (domain.Recordset, bool) {
	return func(domain.DatabaseRecord) (domain.Recordset, bool) {
		rs := domain.Recordset{}
		for _, id := range ids {
			rs.Records = append(rs.Records, domain.Record{ID: id})
		}
		return rs, true
	}
}

type stubFetcher struct {
	feed domain.FetchedFeed
	err  error
}

func (f stubFetcher) Fetch(context.Context, string) (domain.FetchedFeed, error) {
	return f.feed, f.err
}

var errUnreachable = errors.New("feed unreachable")
