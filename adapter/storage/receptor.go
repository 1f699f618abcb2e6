package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"rssreceptor/domain"
)

var ErrTableNotRequired = errors.New("table was not required before use")

// Receptor serves RequireTable and DatabaseRecord carriers from the bus.
type Receptor struct {
	repo *Repository
	bus  domain.Bus
	log  *zap.Logger

	mu       sync.Mutex
	required map[string]struct{}
	sub      domain.Subscription
}

func NewReceptor(repo *Repository, bus domain.Bus, log *zap.Logger) *Receptor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Receptor{
		repo:     repo,
		bus:      bus,
		log:      log.Named("storage"),
		required: make(map[string]struct{}),
	}
}

func (r *Receptor) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sub != nil {
		return errors.New("storage receptor already started")
	}
	sub, err := r.bus.Subscribe("storage",
		[]domain.Protocol{domain.ProtocolRequireTable, domain.ProtocolDatabaseRecord}, r.handle)
	if err != nil {
		return err
	}
	r.sub = sub
	return nil
}

func (r *Receptor) Stop() {
	r.mu.Lock()
	sub := r.sub
	r.sub = nil
	r.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (r *Receptor) handle(ctx context.Context, c domain.Carrier) {
	switch sig := c.Signal.(type) {
	case domain.RequireTable:
		r.requireTable(ctx, sig)
	case domain.DatabaseRecord:
		switch sig.Action {
		case domain.ActionInsertIfMissing:
			r.insertIfMissing(ctx, sig)
		case domain.ActionSelect:
			r.selectRecords(ctx, sig)
		default:
			r.fault(ctx, domain.ProtocolDatabaseRecord, sig.TableName, sig.Action, fmt.Errorf("unknown action %q", sig.Action))
		}
	default:
		r.log.Warn("ignoring carrier with unexpected signal",
			zap.String("protocol", string(c.Protocol)),
			zap.String("signal_type", fmt.Sprintf("%T", c.Signal)))
	}
}

func (r *Receptor) requireTable(ctx context.Context, sig domain.RequireTable) {
	if err := r.repo.RequireTable(ctx, sig.TableName, sig.Schema); err != nil {
		r.fault(ctx, domain.ProtocolRequireTable, sig.TableName, "", err)
		return
	}
	r.mu.Lock()
	r.required[sig.TableName] = struct{}{}
	r.mu.Unlock()
	r.log.Debug("table ready", zap.String("table", sig.TableName), zap.String("schema", sig.Schema))
}

func (r *Receptor) isRequired(table string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.required[table]
	return ok
}

func (r *Receptor) insertIfMissing(ctx context.Context, sig domain.DatabaseRecord) {
	if !r.isRequired(sig.TableName) {
		r.fault(ctx, domain.ProtocolDatabaseRecord, sig.TableName, sig.Action, fmt.Errorf("%w: %s", ErrTableNotRequired, sig.TableName))
		return
	}
	inserted, err := r.repo.InsertIfMissing(ctx, sig.TableName, sig.Row, sig.UniqueKey)
	if err != nil {
		r.fault(ctx, domain.ProtocolDatabaseRecord, sig.TableName, sig.Action, err)
		return
	}
	r.log.Debug("insert if missing",
		zap.String("table", sig.TableName),
		zap.String("unique_key", sig.UniqueKey),
		zap.Bool("inserted", inserted))
}

func (r *Receptor) selectRecords(ctx context.Context, sig domain.DatabaseRecord) {
	reply := domain.Recordset{CorrelationID: sig.CorrelationID, TableName: sig.TableName}
	var err error
	if !r.isRequired(sig.TableName) {
		err = fmt.Errorf("%w: %s", ErrTableNotRequired, sig.TableName)
	} else {
		reply.Records, err = r.repo.Select(ctx, sig.TableName, sig.Where)
	}
	if err != nil {
		reply.Err = err.Error()
		r.fault(ctx, domain.ProtocolDatabaseRecord, sig.TableName, sig.Action, err)
	}
	if sig.ResponseProtocol == "" {
		r.log.Warn("select without response protocol", zap.String("table", sig.TableName))
		return
	}
	if err := r.bus.Publish(ctx, sig.ResponseProtocol, reply); err != nil {
		r.log.Error("publish recordset failed",
			zap.String("protocol", string(sig.ResponseProtocol)),
			zap.String("correlation_id", sig.CorrelationID),
			zap.Error(err))
	}
}

func (r *Receptor) fault(ctx context.Context, protocol domain.Protocol, table string, action domain.Action, err error) {
	r.log.Error("storage request failed",
		zap.String("protocol", string(protocol)),
		zap.String("table", table),
		zap.String("action", string(action)),
		zap.Error(err))
	fault := domain.StorageFault{Protocol: protocol, TableName: table, Action: action, Err: err.Error()}
	if perr := r.bus.Publish(ctx, domain.ProtocolStorageFault, fault); perr != nil {
		r.log.Warn("publish storage fault failed", zap.Error(perr))
	}
}
