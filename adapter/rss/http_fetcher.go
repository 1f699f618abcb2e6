package rss

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"rssreceptor/domain"
)

var ErrUnexpectedStatus = errors.New("unexpected response status")

// maxFeedBytes bounds how much of a response body is read.
const maxFeedBytes = 16 << 20

type HTTPFetcher struct{ client *http.Client }

func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPFetcher{client: &http.Client{Timeout: timeout}}
}

var _ domain.FeedFetcher = (*HTTPFetcher)(nil)

// Fetch retrieves and parses the feed at feedURL. http, https and file URLs
// are supported.
func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) (domain.FetchedFeed, error) {
	u, err := url.Parse(feedURL)
	if err != nil {
		return domain.FetchedFeed{}, fmt.Errorf("parse feed url: %w", err)
	}
	var data []byte
	switch u.Scheme {
	case "file":
		data, err = os.ReadFile(u.Path)
		if err != nil {
			return domain.FetchedFeed{}, fmt.Errorf("read feed file: %w", err)
		}
	case "http", "https":
		data, err = f.get(ctx, feedURL)
		if err != nil {
			return domain.FetchedFeed{}, err
		}
	default:
		return domain.FetchedFeed{}, fmt.Errorf("unsupported feed url scheme %q", u.Scheme)
	}

	feed, err := Parse(bytes.NewReader(data))
	if err != nil {
		return domain.FetchedFeed{}, fmt.Errorf("parse feed %s: %w", feedURL, err)
	}
	return feed, nil
}

func (f *HTTPFetcher) get(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml;q=0.9, text/xml;q=0.8")
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrUnexpectedStatus, resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
	if err != nil {
		return nil, fmt.Errorf("read feed body: %w", err)
	}
	return data, nil
}
