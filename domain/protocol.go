package domain

import (
	"fmt"
	"time"
)

// Protocol names the contract a carrier's signal conforms to.
type Protocol string

const (
	ProtocolRequireTable   Protocol = "RequireTable"
	ProtocolDatabaseRecord Protocol = "DatabaseRecord"
	ProtocolGetIDRecordset Protocol = "GetIDRecordset"
	ProtocolStorageFault   Protocol = "StorageFault"
)

// Carrier is a single typed message flowing through the bus.
type Carrier struct {
	ID        string
	Protocol  Protocol
	Signal    any
	EmittedAt time.Time
}

// RequireTable asks storage to create a table if it is absent.
type RequireTable struct {
	TableName string
	Schema    string
}

// Action selects what a DatabaseRecord request does.
type Action string

const (
	ActionInsertIfMissing Action = "InsertIfMissing"
	ActionSelect          Action = "select"
)

// Criteria is an equality condition on one column.
type Criteria struct {
	Field string
	Value any
}

// Equals builds a Criteria matching rows whose field equals value.
func Equals(field string, value any) Criteria {
	return Criteria{Field: field, Value: value}
}

func (c Criteria) String() string {
	if s, ok := c.Value.(string); ok {
		return fmt.Sprintf("%s = '%s'", c.Field, s)
	}
	return fmt.Sprintf("%s = %v", c.Field, c.Value)
}

// DatabaseRecord is a write or query request addressed to storage.
//
// For ActionInsertIfMissing, Row and UniqueKey are set. For ActionSelect,
// Where, ResponseProtocol and CorrelationID are set and storage answers with
// a Recordset published under ResponseProtocol.
type DatabaseRecord struct {
	TableName        string
	Action           Action
	Row              Row
	UniqueKey        string
	Where            Criteria
	ResponseProtocol Protocol
	CorrelationID    string
}

// Record is one result row of a select.
type Record struct {
	ID     ID
	Fields map[string]any
}

// Recordset answers a select request.
type Recordset struct {
	CorrelationID string
	TableName     string
	Records       []Record
	Err           string
}

// StorageFault reports a failed storage request.
type StorageFault struct {
	Protocol  Protocol
	TableName string
	Action    Action
	Err       string
}
