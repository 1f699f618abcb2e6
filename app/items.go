package app

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"rssreceptor/domain"
)

// ItemReport counts what ProcessItems did with a feed's items.
type ItemReport struct {
	Emitted int
	Skipped int
	Failed  int
}

// ItemProcessor turns fetched items into RSSFeedItem upserts.
type ItemProcessor struct {
	upserts *UpsertClient
	log     *zap.Logger
}

func NewItemProcessor(upserts *UpsertClient, log *zap.Logger) *ItemProcessor {
	return &ItemProcessor{upserts: upserts, log: log}
}

// ProcessItems emits one upsert per item, in feed order, linked to
// parentFeedID. Items that cannot form a row are skipped and logged; a
// failing item never stops the rest.
func (p *ItemProcessor) ProcessItems(ctx context.Context, parentFeedID domain.ID, items []domain.FetchedItem) ItemReport {
	var report ItemReport
	for i, item := range items {
		row, ok := p.itemRow(parentFeedID, i, item)
		if !ok {
			report.Skipped++
			continue
		}
		if err := p.upserts.UpsertIfMissing(ctx, row, "FeedItemID"); err != nil {
			p.log.Error("item upsert failed",
				zap.String("item_id", row.FeedItemID),
				zap.Error(err))
			report.Failed++
			continue
		}
		report.Emitted++
	}
	return report
}

func (p *ItemProcessor) itemRow(parentFeedID domain.ID, index int, item domain.FetchedItem) (domain.FeedItemRow, bool) {
	if len(item.Links) == 0 {
		p.log.Warn("skipping item without link",
			zap.Int("index", index),
			zap.String("item_id", item.ID),
			zap.String("title", item.Title))
		return domain.FeedItemRow{}, false
	}
	id := item.ID
	if id == "" {
		id = item.Links[0]
	}
	return domain.FeedItemRow{
		RSSFeedID:   parentFeedID,
		FeedItemID:  id,
		Title:       item.Title,
		URL:         item.Links[0],
		Description: item.Summary,
		Authors:     strings.Join(item.Authors, ", "),
		Categories:  strings.Join(item.Categories, ", "),
		PubDate:     item.PublishedAt,
	}, true
}
