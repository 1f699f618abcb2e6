// Package bus is an in-process publish/subscribe transport for carriers.
//
// Each receptor owns one FIFO mailbox drained by one goroutine, so a receptor
// sees its carriers one at a time and in publish order, across every protocol
// it subscribed to. Publish enqueues into all interested mailboxes under a
// single lock, which gives every receptor the same relative order.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rssreceptor/domain"
)

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("bus closed")

type Bus struct {
	log *zap.Logger
	now func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	mailboxes []*mailbox
	inFlight  int
	closed    bool
	wg        sync.WaitGroup
}

func New(log *zap.Logger) *Bus {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Bus{log: log, now: time.Now, ctx: ctx, cancel: cancel}
}

var _ domain.Bus = (*Bus)(nil)

// Publish stamps signal into a carrier and queues it for every receptor
// subscribed to protocol. Carriers nobody listens for are dropped.
func (b *Bus) Publish(ctx context.Context, protocol domain.Protocol, signal any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c := domain.Carrier{
		ID:        uuid.NewString(),
		Protocol:  protocol,
		Signal:    signal,
		EmittedAt: b.now(),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrClosed
	}
	delivered := 0
	for _, mb := range b.mailboxes {
		if !mb.accepts(protocol) {
			continue
		}
		b.inFlight++
		mb.enqueue(c)
		delivered++
	}
	if delivered == 0 {
		b.log.Debug("dropped carrier without receptor",
			zap.String("protocol", string(protocol)),
			zap.String("carrier_id", c.ID))
	}
	return nil
}

// Subscribe registers a receptor. The handler runs on the receptor's own
// goroutine until the subscription is cancelled or the bus closes.
func (b *Bus) Subscribe(receptor string, protocols []domain.Protocol, h domain.Handler) (domain.Subscription, error) {
	if h == nil {
		return nil, fmt.Errorf("subscribe %s: nil handler", receptor)
	}
	if len(protocols) == 0 {
		return nil, fmt.Errorf("subscribe %s: no protocols", receptor)
	}
	mb := newMailbox(receptor, protocols)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	b.mailboxes = append(b.mailboxes, mb)
	b.wg.Add(1)
	go b.drain(mb, h)
	return &subscription{bus: b, mb: mb}, nil
}

// WaitIdle blocks until no carrier is queued or being handled.
func (b *Bus) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(5 * time.Millisecond)
	defer ticker.Stop()
	for {
		b.mu.Lock()
		idle := b.inFlight == 0
		b.mu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close stops every mailbox and waits for running handlers to return.
// Carriers still queued are discarded.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	boxes := append([]*mailbox(nil), b.mailboxes...)
	b.mailboxes = nil
	b.mu.Unlock()

	b.cancel()
	for _, mb := range boxes {
		b.discard(mb.stop())
	}
	b.wg.Wait()
}

func (b *Bus) remove(mb *mailbox) {
	b.mu.Lock()
	for i, m := range b.mailboxes {
		if m == mb {
			b.mailboxes = append(b.mailboxes[:i], b.mailboxes[i+1:]...)
			break
		}
	}
	b.mu.Unlock()
	b.discard(mb.stop())
}

func (b *Bus) discard(n int) {
	if n == 0 {
		return
	}
	b.mu.Lock()
	b.inFlight -= n
	b.mu.Unlock()
}

func (b *Bus) drain(mb *mailbox, h domain.Handler) {
	defer b.wg.Done()
	for {
		c, ok := mb.next()
		if !ok {
			return
		}
		b.deliver(mb, h, c)
		b.discard(1)
	}
}

func (b *Bus) deliver(mb *mailbox, h domain.Handler, c domain.Carrier) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("receptor panicked",
				zap.String("receptor", mb.name),
				zap.String("protocol", string(c.Protocol)),
				zap.String("carrier_id", c.ID),
				zap.Any("panic", r))
		}
	}()
	h(b.ctx, c)
}

type subscription struct {
	bus  *Bus
	mb   *mailbox
	once sync.Once
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() { s.bus.remove(s.mb) })
}
