package storage

import (
	"context"
	"database/sql"

	"rssreceptor/domain"
)

func (r *Repository) ListFeeds(ctx context.Context, limit int) ([]domain.Feed, error) {
	q := `SELECT "ID", "FeedName", "URL", "Title", "Description" FROM "RSSFeed" ORDER BY "ID" DESC`
	if limit > 0 {
		q += ` LIMIT ` + r.dialect.Placeholder(1)
		return scanFeeds(r.db.QueryContext(ctx, q, limit))
	}
	return scanFeeds(r.db.QueryContext(ctx, q))
}

func (r *Repository) GetFeedByName(ctx context.Context, name string) (domain.Feed, error) {
	var f domain.Feed
	row := r.db.QueryRowContext(ctx,
		`SELECT "ID", "FeedName", "URL", "Title", "Description" FROM "RSSFeed" WHERE "FeedName" = `+r.dialect.Placeholder(1)+` ORDER BY "ID" LIMIT 1`, name)
	if err := row.Scan(&f.ID, &f.Name, &f.URL, &f.Title, &f.Description); err != nil {
		return domain.Feed{}, err
	}
	return f, nil
}

func (r *Repository) ListItemsByFeed(ctx context.Context, feedID domain.ID, limit int) ([]domain.Article, error) {
	q := `SELECT "ID", "RSSFeedID", "FeedItemID", "Title", "URL", "Description", "Authors", "Categories", "PubDate" FROM "RSSFeedItem" WHERE "RSSFeedID" = ` +
		r.dialect.Placeholder(1) + ` ORDER BY "PubDate" DESC, "ID" DESC`
	if limit > 0 {
		q += ` LIMIT ` + r.dialect.Placeholder(2)
		return scanArticles(r.db.QueryContext(ctx, q, int64(feedID), limit))
	}
	return scanArticles(r.db.QueryContext(ctx, q, int64(feedID)))
}

// DeleteFeed removes feeds by name. Items keep their own lifetime.
func (r *Repository) DeleteFeed(ctx context.Context, name string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM "RSSFeed" WHERE "FeedName" = `+r.dialect.Placeholder(1), name)
	if err != nil {
		return 0, err
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}

	return rows, nil
}

func scanFeeds(rows *sql.Rows, err error) ([]domain.Feed, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Feed
	for rows.Next() {
		var f domain.Feed
		if err := rows.Scan(&f.ID, &f.Name, &f.URL, &f.Title, &f.Description); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanArticles(rows *sql.Rows, err error) ([]domain.Article, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []domain.Article
	for rows.Next() {
		var a domain.Article
		if err := rows.Scan(&a.ID, &a.FeedID, &a.ItemID, &a.Title, &a.Link, &a.Description, &a.Authors, &a.Categories, &a.PublishedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
