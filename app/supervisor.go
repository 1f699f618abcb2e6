package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"rssreceptor/domain"
)

// maxFaults bounds the storage faults kept for the status report.
const maxFaults = 50

// Supervisor runs one Controller per feed on a bounded worker pool and
// collects their status and any storage faults seen on the bus.
type Supervisor struct {
	bus            domain.Bus
	fetcher        domain.FeedFetcher
	log            *zap.Logger
	workers        int
	resolveTimeout time.Duration
	now            func() time.Time

	mu          sync.Mutex
	started     bool
	faultSub    domain.Subscription
	controllers []*Controller
	faults      []domain.FaultRecord
}

func NewSupervisor(bus domain.Bus, fetcher domain.FeedFetcher, workers int, resolveTimeout time.Duration, log *zap.Logger) *Supervisor {
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Supervisor{
		bus:            bus,
		fetcher:        fetcher,
		log:            log,
		workers:        workers,
		resolveTimeout: resolveTimeout,
		now:            time.Now,
	}
}

var _ domain.StatusReporter = (*Supervisor)(nil)

// Run ingests every source and returns once all of them are Ready or Failed.
// Failures are joined into the returned error. Storage faults keep being
// recorded after Run returns, until Close.
func (s *Supervisor) Run(ctx context.Context, sources []domain.FeedSource) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return errors.New("supervisor already started")
	}
	s.started = true
	s.mu.Unlock()

	faultSub, err := s.bus.Subscribe("supervisor", []domain.Protocol{domain.ProtocolStorageFault}, s.recordFault)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.faultSub = faultSub
	s.mu.Unlock()

	controllers := make([]*Controller, 0, len(sources))
	for _, src := range sources {
		c, err := NewController(src, s.fetcher, s.bus,
			WithResolveTimeout(s.resolveTimeout),
			WithLogger(s.log))
		if err != nil {
			for _, built := range controllers {
				built.Close()
			}
			return err
		}
		controllers = append(controllers, c)
	}
	s.mu.Lock()
	s.controllers = controllers
	s.mu.Unlock()

	var (
		errMu sync.Mutex
		errs  []error
		wg    sync.WaitGroup
	)
	jobs := make(chan *Controller)
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, jobs, func(err error) {
				errMu.Lock()
				errs = append(errs, err)
				errMu.Unlock()
			})
		}()
	}

dispatch:
	for _, c := range controllers {
		select {
		case jobs <- c:
		case <-ctx.Done():
			break dispatch
		}
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Close stops fault recording and releases every controller.
func (s *Supervisor) Close() {
	s.mu.Lock()
	sub := s.faultSub
	s.faultSub = nil
	controllers := s.controllers
	s.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
	for _, c := range controllers {
		c.Close()
	}
}

func worker(ctx context.Context, jobs <-chan *Controller, report func(error)) {
	for c := range jobs {
		if err := c.Run(ctx); err != nil {
			report(err)
		}
		c.Close()
	}
}

// Status reports every feed's progress and the most recent storage faults.
func (s *Supervisor) Status() domain.StatusReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	report := domain.StatusReport{
		Feeds:         make([]domain.FeedStatus, 0, len(s.controllers)),
		StorageFaults: append([]domain.FaultRecord(nil), s.faults...),
	}
	for _, c := range s.controllers {
		report.Feeds = append(report.Feeds, c.Status())
	}
	return report
}

func (s *Supervisor) recordFault(_ context.Context, c domain.Carrier) {
	fault, ok := c.Signal.(domain.StorageFault)
	if !ok {
		return
	}
	s.log.Warn("storage fault",
		zap.String("protocol", string(fault.Protocol)),
		zap.String("table", fault.TableName),
		zap.String("action", string(fault.Action)),
		zap.String("error", fault.Err))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = append(s.faults, domain.FaultRecord{
		Protocol: fault.Protocol,
		Table:    fault.TableName,
		Action:   fault.Action,
		Error:    fault.Err,
		Observed: s.now(),
	})
	if len(s.faults) > maxFaults {
		s.faults = s.faults[len(s.faults)-maxFaults:]
	}
}
