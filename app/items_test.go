package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rssreceptor/domain"
)

func TestItemProcessor_PreservesFeedOrder(t *testing.T) {
	bus := &recordingBus{}
	p := NewItemProcessor(NewUpsertClient(bus), zap.NewNop())

	items := []domain.FetchedItem{
		{ID: "z", Links: []string{"http://z"}, PublishedAt: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "a", Links: []string{"http://a"}, PublishedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "m", Links: []string{"http://m"}},
	}
	report := p.ProcessItems(context.Background(), 1, items)
	assert.Equal(t, ItemReport{Emitted: 3}, report)

	rows := bus.itemRows()
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"z", "a", "m"}, []string{rows[0].FeedItemID, rows[1].FeedItemID, rows[2].FeedItemID})
}

func TestItemProcessor_EachItemIsOneUpsertKeyedByItemID(t *testing.T) {
	bus := &recordingBus{}
	p := NewItemProcessor(NewUpsertClient(bus), zap.NewNop())

	p.ProcessItems(context.Background(), 1, []domain.FetchedItem{
		{ID: "a", Links: []string{"http://a"}},
		{ID: "b", Links: []string{"http://b"}},
	})

	carriers := bus.all()
	require.Len(t, carriers, 2)
	for _, c := range carriers {
		rec := c.Signal.(domain.DatabaseRecord)
		assert.Equal(t, domain.ActionInsertIfMissing, rec.Action)
		assert.Equal(t, "FeedItemID", rec.UniqueKey)
		assert.Equal(t, domain.TableFeedItem, rec.TableName)
	}
}

func TestItemProcessor_FallsBackToLinkForMissingID(t *testing.T) {
	bus := &recordingBus{}
	p := NewItemProcessor(NewUpsertClient(bus), zap.NewNop())

	report := p.ProcessItems(context.Background(), 1, []domain.FetchedItem{
		{Title: "no guid", Links: []string{"http://x/7"}},
		{Title: "no link"},
	})
	assert.Equal(t, ItemReport{Emitted: 1, Skipped: 1}, report)

	rows := bus.itemRows()
	require.Len(t, rows, 1)
	assert.Equal(t, "http://x/7", rows[0].FeedItemID)
	assert.Empty(t, rows[0].Authors)
	assert.Empty(t, rows[0].Categories)
}

func TestItemProcessor_ContinuesAfterPublishFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := NewItemProcessor(NewUpsertClient(failingBus{}), zap.NewNop())

	report := p.ProcessItems(ctx, 1, []domain.FetchedItem{
		{ID: "a", Links: []string{"http://a"}},
		{ID: "b", Links: []string{"http://b"}},
	})
	assert.Equal(t, ItemReport{Failed: 2}, report)
}

type failingBus struct{}

func (failingBus) Publish(ctx context.Context, _ domain.Protocol, _ any) error {
	return context.Canceled
}

func (failingBus) Subscribe(string, []domain.Protocol, domain.Handler) (domain.Subscription, error) {
	return nil, context.Canceled
}
