package domain

import "time"

// Table and schema names used by the feed pipeline.
const (
	TableFeed     = "RSSFeed"
	TableFeedItem = "RSSFeedItem"
)

// IDColumn is the surrogate key column storage adds to every table.
const IDColumn = "ID"

// ColumnType is the logical type of a column; storage maps it to SQL.
type ColumnType int

const (
	ColumnText ColumnType = iota + 1
	ColumnInteger
	ColumnTimestamp
)

// Column describes one column of a table schema.
type Column struct {
	Name   string
	Type   ColumnType
	Unique bool
}

// TableSchema describes a table's columns, excluding IDColumn.
type TableSchema struct {
	Name    string
	Columns []Column
}

// Column returns the named column.
func (s TableSchema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// Field is one named value of a row, in schema column order.
type Field struct {
	Name  string
	Value any
}

// Row is a statically typed row destined for a registered table.
type Row interface {
	TableName() string
	Fields() []Field
}

// Schemas maps schema name to its definition.
var Schemas = map[string]TableSchema{
	TableFeed: {
		Name: TableFeed,
		Columns: []Column{
			{Name: "FeedName", Type: ColumnText},
			{Name: "URL", Type: ColumnText, Unique: true},
			{Name: "Title", Type: ColumnText},
			{Name: "Description", Type: ColumnText},
		},
	},
	TableFeedItem: {
		Name: TableFeedItem,
		Columns: []Column{
			{Name: "RSSFeedID", Type: ColumnInteger},
			{Name: "FeedItemID", Type: ColumnText, Unique: true},
			{Name: "Title", Type: ColumnText},
			{Name: "URL", Type: ColumnText},
			{Name: "Description", Type: ColumnText},
			{Name: "Authors", Type: ColumnText},
			{Name: "Categories", Type: ColumnText},
			{Name: "PubDate", Type: ColumnTimestamp},
		},
	},
}

// LookupSchema returns the registered schema with the given name.
func LookupSchema(name string) (TableSchema, bool) {
	s, ok := Schemas[name]
	return s, ok
}

// FeedRow is a row of the RSSFeed table.
type FeedRow struct {
	FeedName    string
	URL         string
	Title       string
	Description string
}

func (FeedRow) TableName() string { return TableFeed }

func (r FeedRow) Fields() []Field {
	return []Field{
		{Name: "FeedName", Value: r.FeedName},
		{Name: "URL", Value: r.URL},
		{Name: "Title", Value: r.Title},
		{Name: "Description", Value: r.Description},
	}
}

// FeedItemRow is a row of the RSSFeedItem table.
type FeedItemRow struct {
	RSSFeedID   ID
	FeedItemID  string
	Title       string
	URL         string
	Description string
	Authors     string
	Categories  string
	PubDate     time.Time
}

func (FeedItemRow) TableName() string { return TableFeedItem }

func (r FeedItemRow) Fields() []Field {
	return []Field{
		{Name: "RSSFeedID", Value: int64(r.RSSFeedID)},
		{Name: "FeedItemID", Value: r.FeedItemID},
		{Name: "Title", Value: r.Title},
		{Name: "URL", Value: r.URL},
		{Name: "Description", Value: r.Description},
		{Name: "Authors", Value: r.Authors},
		{Name: "Categories", Value: r.Categories},
		{Name: "PubDate", Value: r.PubDate},
	}
}
