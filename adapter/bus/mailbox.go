package bus

import (
	"sync"

	"rssreceptor/domain"
)

// mailbox is an unbounded FIFO of carriers for one receptor.
//
// Unbounded so a handler that publishes (storage answering a select) never
// blocks on its own or another receptor's backlog.
type mailbox struct {
	name      string
	protocols map[domain.Protocol]struct{}

	mu      sync.Mutex
	queue   []domain.Carrier
	stopped bool
	signal  chan struct{} // buffered, size 1
	done    chan struct{}
}

func newMailbox(name string, protocols []domain.Protocol) *mailbox {
	set := make(map[domain.Protocol]struct{}, len(protocols))
	for _, p := range protocols {
		set[p] = struct{}{}
	}
	return &mailbox{
		name:      name,
		protocols: set,
		queue:     make([]domain.Carrier, 0, 16),
		signal:    make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
}

func (m *mailbox) accepts(p domain.Protocol) bool {
	_, ok := m.protocols[p]
	return ok
}

func (m *mailbox) enqueue(c domain.Carrier) {
	m.mu.Lock()
	m.queue = append(m.queue, c)
	m.mu.Unlock()

	select {
	case m.signal <- struct{}{}:
	default:
	}
}

// next blocks until a carrier is available or the mailbox is stopped.
func (m *mailbox) next() (domain.Carrier, bool) {
	for {
		m.mu.Lock()
		if m.stopped {
			m.mu.Unlock()
			return domain.Carrier{}, false
		}
		if len(m.queue) > 0 {
			c := m.queue[0]
			m.queue[0] = domain.Carrier{}
			m.queue = m.queue[1:]
			m.mu.Unlock()
			return c, true
		}
		m.mu.Unlock()

		select {
		case <-m.signal:
		case <-m.done:
		}
	}
}

// stop ends delivery and returns how many queued carriers were discarded.
func (m *mailbox) stop() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return 0
	}
	m.stopped = true
	n := len(m.queue)
	m.queue = nil
	close(m.done)
	return n
}
