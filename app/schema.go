package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"rssreceptor/domain"
)

// SchemaProvisioner declares the tables the pipeline writes to. Storage
// creates them if absent; no reply is expected.
type SchemaProvisioner struct {
	bus domain.Bus
	log *zap.Logger
}

func NewSchemaProvisioner(bus domain.Bus, log *zap.Logger) *SchemaProvisioner {
	return &SchemaProvisioner{bus: bus, log: log}
}

// EnsureTable emits a RequireTable carrier for the named table and schema.
func (p *SchemaProvisioner) EnsureTable(ctx context.Context, name, schema string) error {
	if _, ok := domain.LookupSchema(schema); !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}
	if err := p.bus.Publish(ctx, domain.ProtocolRequireTable, domain.RequireTable{TableName: name, Schema: schema}); err != nil {
		return fmt.Errorf("require table %s: %w", name, err)
	}
	p.log.Debug("required table", zap.String("table", name))
	return nil
}

// EnsureTables requires each table using the schema of the same name.
func (p *SchemaProvisioner) EnsureTables(ctx context.Context, names ...string) error {
	for _, name := range names {
		if err := p.EnsureTable(ctx, name, name); err != nil {
			return err
		}
	}
	return nil
}
