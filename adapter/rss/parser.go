package rss

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"rssreceptor/domain"
)

var ErrUnsupportedFormat = errors.New("unsupported feed format")

// Parse decodes an RSS 2.0, RSS 1.0 (RDF) or Atom 1.0 document.
func Parse(r io.Reader) (domain.FetchedFeed, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return domain.FetchedFeed{}, fmt.Errorf("%w: empty document", ErrUnsupportedFormat)
			}
			return domain.FetchedFeed{}, err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "rss":
			var doc rssDocument
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return domain.FetchedFeed{}, err
			}
			return doc.Channel.toFeed(doc.Channel.Items), nil
		case "RDF":
			var doc rdfDocument
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return domain.FetchedFeed{}, err
			}
			return doc.Channel.toFeed(doc.Items), nil
		case "feed":
			var doc atomFeed
			if err := dec.DecodeElement(&doc, &start); err != nil {
				return domain.FetchedFeed{}, err
			}
			return doc.toFeed(), nil
		default:
			return domain.FetchedFeed{}, fmt.Errorf("%w: root element <%s>", ErrUnsupportedFormat, start.Name.Local)
		}
	}
}

type rssDocument struct {
	Channel rssChannel `xml:"channel"`
}

type rdfDocument struct {
	Channel rssChannel `xml:"channel"`
	Items   []rssItem  `xml:"item"`
}

type rssChannel struct {
	Title       string    `xml:"title"`
	Description string    `xml:"description"`
	Items       []rssItem `xml:"item"`
}

type rssItem struct {
	GUID        string   `xml:"guid"`
	Title       string   `xml:"title"`
	Links       []string `xml:"link"`
	Description string   `xml:"description"`
	Author      []string `xml:"author"`
	Creators    []string `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Categories  []string `xml:"category"`
	PubDate     string   `xml:"pubDate"`
	Date        string   `xml:"http://purl.org/dc/elements/1.1/ date"`
}

func (c rssChannel) toFeed(items []rssItem) domain.FetchedFeed {
	feed := domain.FetchedFeed{
		Title:       strings.TrimSpace(c.Title),
		Description: strings.TrimSpace(c.Description),
		Items:       make([]domain.FetchedItem, 0, len(items)),
	}
	for _, it := range items {
		published := it.PubDate
		if strings.TrimSpace(published) == "" {
			published = it.Date
		}
		feed.Items = append(feed.Items, domain.FetchedItem{
			ID:          strings.TrimSpace(it.GUID),
			Title:       strings.TrimSpace(it.Title),
			Links:       nonEmpty(it.Links),
			Summary:     strings.TrimSpace(it.Description),
			Authors:     nonEmpty(append(append([]string(nil), it.Author...), it.Creators...)),
			Categories:  nonEmpty(it.Categories),
			PublishedAt: parseDate(published),
		})
	}
	return feed
}

type atomFeed struct {
	Title    string      `xml:"title"`
	Subtitle string      `xml:"subtitle"`
	Entries  []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID         string         `xml:"id"`
	Title      string         `xml:"title"`
	Links      []atomLink     `xml:"link"`
	Summary    string         `xml:"summary"`
	Content    string         `xml:"content"`
	Authors    []atomPerson   `xml:"author"`
	Categories []atomCategory `xml:"category"`
	Published  string         `xml:"published"`
	Updated    string         `xml:"updated"`
}

type atomLink struct {
	Href string `xml:"href,attr"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term  string `xml:"term,attr"`
	Label string `xml:"label,attr"`
}

func (f atomFeed) toFeed() domain.FetchedFeed {
	feed := domain.FetchedFeed{
		Title:       strings.TrimSpace(f.Title),
		Description: strings.TrimSpace(f.Subtitle),
		Items:       make([]domain.FetchedItem, 0, len(f.Entries)),
	}
	for _, e := range f.Entries {
		links := make([]string, 0, len(e.Links))
		for _, l := range e.Links {
			links = append(links, l.Href)
		}
		authors := make([]string, 0, len(e.Authors))
		for _, a := range e.Authors {
			authors = append(authors, a.Name)
		}
		categories := make([]string, 0, len(e.Categories))
		for _, c := range e.Categories {
			if c.Term != "" {
				categories = append(categories, c.Term)
			} else {
				categories = append(categories, c.Label)
			}
		}
		summary := e.Summary
		if strings.TrimSpace(summary) == "" {
			summary = e.Content
		}
		published := e.Published
		if strings.TrimSpace(published) == "" {
			published = e.Updated
		}
		feed.Items = append(feed.Items, domain.FetchedItem{
			ID:          strings.TrimSpace(e.ID),
			Title:       strings.TrimSpace(e.Title),
			Links:       nonEmpty(links),
			Summary:     strings.TrimSpace(summary),
			Authors:     nonEmpty(authors),
			Categories:  nonEmpty(categories),
			PublishedAt: parseDate(published),
		})
	}
	return feed
}

var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
	time.RFC3339Nano,
	time.RFC822Z,
	time.RFC822,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseDate returns the zero time when s matches no known layout.
func parseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func nonEmpty(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
