package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowsMatchRegisteredSchemas(t *testing.T) {
	rows := []Row{FeedRow{}, FeedItemRow{}}
	for _, row := range rows {
		schema, ok := LookupSchema(row.TableName())
		require.True(t, ok, "no schema registered for %s", row.TableName())

		fields := row.Fields()
		require.Len(t, fields, len(schema.Columns), row.TableName())
		for i, f := range fields {
			assert.Equal(t, schema.Columns[i].Name, f.Name, "%s column %d", row.TableName(), i)
		}
	}
}

func TestSchemasDeclareUniqueKeys(t *testing.T) {
	feed, ok := LookupSchema(TableFeed)
	require.True(t, ok)
	url, ok := feed.Column("URL")
	require.True(t, ok)
	assert.True(t, url.Unique)

	item, ok := LookupSchema(TableFeedItem)
	require.True(t, ok)
	id, ok := item.Column("FeedItemID")
	require.True(t, ok)
	assert.True(t, id.Unique)

	_, ok = item.Column(IDColumn)
	assert.False(t, ok, "ID is added by storage, not declared")
}

func TestFeedItemRowFields(t *testing.T) {
	pub := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := FeedItemRow{RSSFeedID: 7, FeedItemID: "A1", PubDate: pub}

	fields := row.Fields()
	assert.Equal(t, int64(7), fields[0].Value)
	assert.Equal(t, "A1", fields[1].Value)
	assert.Equal(t, pub, fields[7].Value)
}

func TestCriteriaString(t *testing.T) {
	assert.Equal(t, "FeedName = 'Ars Technica'", Equals("FeedName", "Ars Technica").String())
	assert.Equal(t, "ID = 3", Equals("ID", 3).String())
}
