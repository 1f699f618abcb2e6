package app_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"rssreceptor/adapter/bus"
	"rssreceptor/adapter/storage"
	"rssreceptor/app"
	"rssreceptor/domain"
)

type staticFetcher map[string]domain.FetchedFeed

func (f staticFetcher) Fetch(_ context.Context, url string) (domain.FetchedFeed, error) {
	return f[url], nil
}

func TestPipeline_RerunIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db, dialect, err := storage.Open(ctx, storage.DriverSQLite, filepath.Join(t.TempDir(), "pipeline.db"))
	require.NoError(t, err)
	defer db.Close()
	repo := storage.New(db, dialect)

	b := bus.New(zap.NewNop())
	defer b.Close()
	receptor := storage.NewReceptor(repo, b, zap.NewNop())
	require.NoError(t, receptor.Start())
	defer receptor.Stop()

	sources := []domain.FeedSource{
		{Name: "Ars Technica", URL: "http://ars/rss"},
		{Name: "Other", URL: "http://other/rss"},
	}
	fetcher := staticFetcher{
		"http://ars/rss": {
			Title: "Ars Technica",
			Items: []domain.FetchedItem{
				{ID: "ars-1", Title: "one", Links: []string{"http://ars/1"}, Authors: []string{"Alice", "Bob"}},
				{ID: "ars-2", Title: "two", Links: []string{"http://ars/2"}},
			},
		},
		"http://other/rss": {
			Title: "Other",
			Items: []domain.FetchedItem{
				{ID: "other-1", Title: "uno", Links: []string{"http://other/1"}},
			},
		},
	}

	var last domain.StatusReport
	for run := 0; run < 2; run++ {
		sup := app.NewSupervisor(b, fetcher, 2, 5*time.Second, zap.NewNop())
		require.NoError(t, sup.Run(ctx, sources), "run %d", run)

		idleCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		require.NoError(t, b.WaitIdle(idleCtx))
		cancel()

		last = sup.Status()
		sup.Close()
	}

	assert.Empty(t, last.StorageFaults)
	require.Len(t, last.Feeds, 2)
	for _, st := range last.Feeds {
		assert.Equal(t, domain.StateReady, st.State, st.Name)
	}

	feeds, err := repo.ListFeeds(ctx, 0)
	require.NoError(t, err)
	require.Len(t, feeds, 2)

	ars, err := repo.GetFeedByName(ctx, "Ars Technica")
	require.NoError(t, err)
	items, err := repo.ListItemsByFeed(ctx, ars.ID, 0)
	require.NoError(t, err)
	require.Len(t, items, 2)
	for _, it := range items {
		assert.Equal(t, ars.ID, it.FeedID)
	}

	other, err := repo.GetFeedByName(ctx, "Other")
	require.NoError(t, err)
	items, err = repo.ListItemsByFeed(ctx, other.ID, 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "other-1", items[0].ItemID)
}
