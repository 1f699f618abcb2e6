package app

import (
	"context"
	"fmt"

	"rssreceptor/domain"
)

// UpsertClient builds insert-if-missing requests. It never waits for storage:
// duplicates are absorbed there and write errors surface as StorageFault
// carriers, not here.
type UpsertClient struct {
	bus domain.Bus
}

func NewUpsertClient(bus domain.Bus) *UpsertClient {
	return &UpsertClient{bus: bus}
}

// UpsertIfMissing emits a DatabaseRecord asking storage to insert row into
// its table unless a row with the same uniqueKey value exists.
func (u *UpsertClient) UpsertIfMissing(ctx context.Context, row domain.Row, uniqueKey string) error {
	table := row.TableName()
	schema, ok := domain.LookupSchema(table)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, table)
	}
	if col, ok := schema.Column(uniqueKey); !ok || !col.Unique {
		return fmt.Errorf("%w: %s.%s", ErrInvalidUniqueKey, table, uniqueKey)
	}
	err := u.bus.Publish(ctx, domain.ProtocolDatabaseRecord, domain.DatabaseRecord{
		TableName: table,
		Action:    domain.ActionInsertIfMissing,
		Row:       row,
		UniqueKey: uniqueKey,
	})
	if err != nil {
		return fmt.Errorf("upsert %s: %w", table, err)
	}
	return nil
}
