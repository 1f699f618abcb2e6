package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"rssreceptor/domain"
)

// Resolver maps a lookup criteria to a storage-assigned identifier through a
// select request and its GetIDRecordset reply. One resolution may be pending
// at a time.
type Resolver struct {
	bus domain.Bus
	log *zap.Logger

	mu      sync.Mutex
	pending *PendingID
	sub     domain.Subscription
}

// NewResolver subscribes a resolver to identifier replies under the given
// receptor name.
func NewResolver(bus domain.Bus, receptor string, log *zap.Logger) (*Resolver, error) {
	r := &Resolver{bus: bus, log: log}
	sub, err := bus.Subscribe(receptor, []domain.Protocol{domain.ProtocolGetIDRecordset}, r.handle)
	if err != nil {
		return nil, fmt.Errorf("subscribe resolver: %w", err)
	}
	r.sub = sub
	return r, nil
}

// Close drops the reply subscription. A pending resolution never completes.
func (r *Resolver) Close() {
	r.sub.Unsubscribe()
}

// ResolveID emits a select for table filtered by where. The returned
// PendingID completes when the matching reply arrives.
func (r *Resolver) ResolveID(ctx context.Context, table string, where domain.Criteria) (*PendingID, error) {
	p := &PendingID{
		CorrelationID: uuid.NewString(),
		Table:         table,
		Where:         where,
		done:          make(chan domain.Recordset, 1),
		owner:         r,
	}

	r.mu.Lock()
	if r.pending != nil {
		r.mu.Unlock()
		return nil, ErrResolutionPending
	}
	r.pending = p
	r.mu.Unlock()

	err := r.bus.Publish(ctx, domain.ProtocolDatabaseRecord, domain.DatabaseRecord{
		TableName:        table,
		Action:           domain.ActionSelect,
		Where:            where,
		ResponseProtocol: domain.ProtocolGetIDRecordset,
		CorrelationID:    p.CorrelationID,
	})
	if err != nil {
		r.abandon(p)
		return nil, fmt.Errorf("request identifier: %w", err)
	}
	r.log.Debug("identifier requested",
		zap.String("table", table),
		zap.Stringer("where", where),
		zap.String("correlation_id", p.CorrelationID))
	return p, nil
}

func (r *Resolver) handle(_ context.Context, c domain.Carrier) {
	rs, ok := c.Signal.(domain.Recordset)
	if !ok {
		return
	}
	r.mu.Lock()
	p := r.pending
	if p == nil || p.CorrelationID != rs.CorrelationID {
		r.mu.Unlock()
		return
	}
	r.pending = nil
	r.mu.Unlock()

	p.done <- rs
}

func (r *Resolver) abandon(p *PendingID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.pending == p {
		r.pending = nil
	}
}

// PendingID is an identifier that has been requested but not yet received.
type PendingID struct {
	CorrelationID string
	Table         string
	Where         domain.Criteria

	done  chan domain.Recordset
	owner *Resolver
}

// Wait blocks until the reply arrives or ctx ends. A reply with no rows or
// with more than one row is an error; the identifier is never guessed.
func (p *PendingID) Wait(ctx context.Context) (domain.ID, error) {
	select {
	case rs := <-p.done:
		return identifierFrom(rs, p.Where)
	case <-ctx.Done():
		p.owner.abandon(p)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return 0, fmt.Errorf("%w: %s", ErrResolveTimeout, p.Where)
		}
		return 0, ctx.Err()
	}
}

func identifierFrom(rs domain.Recordset, where domain.Criteria) (domain.ID, error) {
	if rs.Err != "" {
		return 0, fmt.Errorf("identifier query %s failed: %s", where, rs.Err)
	}
	switch len(rs.Records) {
	case 0:
		return 0, fmt.Errorf("%w: %s where %s", ErrIdentifierNotFound, rs.TableName, where)
	case 1:
		return rs.Records[0].ID, nil
	default:
		return 0, fmt.Errorf("%w: %d rows in %s where %s", ErrAmbiguousIdentifier, len(rs.Records), rs.TableName, where)
	}
}
