package domain

import "time"

// ID is the storage-assigned identifier of a row.
type ID int64

// FeedSource names a feed the pipeline ingests.
type FeedSource struct {
	Name string
	URL  string
}

// FetchedFeed is the parsed representation returned by feed fetchers.
type FetchedFeed struct {
	Title       string
	Description string
	Items       []FetchedItem
}

// FetchedItem is a single entry of a fetched feed.
type FetchedItem struct {
	ID          string
	Title       string
	Links       []string
	Summary     string
	Authors     []string
	Categories  []string
	PublishedAt time.Time
}

// Feed is a stored RSSFeed row.
type Feed struct {
	ID          ID
	Name        string
	URL         string
	Title       string
	Description string
}

// Article is a stored RSSFeedItem row.
type Article struct {
	ID          ID
	FeedID      ID
	ItemID      string
	Title       string
	Link        string
	Description string
	Authors     string
	Categories  string
	PublishedAt time.Time
}

// FeedState is the ingestion controller's position in its state machine.
type FeedState string

const (
	StateUninitialized      FeedState = "Uninitialized"
	StateSchemaProvisioned  FeedState = "SchemaProvisioned"
	StateFeedRecordUpserted FeedState = "FeedRecordUpserted"
	StateAwaitingIdentifier FeedState = "AwaitingIdentifier"
	StateReady              FeedState = "Ready"
	StateFailed             FeedState = "Failed"
)

// FeedStatus is the operator-facing view of one feed's ingestion.
type FeedStatus struct {
	Name         string    `json:"name"`
	URL          string    `json:"url"`
	State        FeedState `json:"state"`
	FeedID       ID        `json:"feed_id,omitempty"`
	ItemsEmitted int       `json:"items_emitted"`
	ItemsSkipped int       `json:"items_skipped"`
	Error        string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FaultRecord is a storage failure observed on the bus.
type FaultRecord struct {
	Protocol Protocol  `json:"protocol"`
	Table    string    `json:"table"`
	Action   Action    `json:"action,omitempty"`
	Error    string    `json:"error"`
	Observed time.Time `json:"observed"`
}

// StatusReport is the control plane's view of the running pipeline.
type StatusReport struct {
	Feeds         []FeedStatus  `json:"feeds"`
	StorageFaults []FaultRecord `json:"storage_faults,omitempty"`
}
