package domain

import (
	"context"
)

// Handler consumes carriers delivered by a Bus.
type Handler func(ctx context.Context, c Carrier)

// Subscription is a receptor's registration on a Bus.
type Subscription interface {
	Unsubscribe()
}

// Bus is the publish/subscribe transport connecting receptors.
type Bus interface {
	// Publish emits signal under protocol. It does not wait for delivery.
	Publish(ctx context.Context, protocol Protocol, signal any) error
	// Subscribe registers a receptor for the given protocols. Carriers for one
	// receptor are delivered one at a time, in publish order.
	Subscribe(receptor string, protocols []Protocol, h Handler) (Subscription, error)
}

// FeedFetcher fetches and parses syndicated feeds.
type FeedFetcher interface {
	Fetch(ctx context.Context, feedURL string) (FetchedFeed, error)
}

// StatusReporter exposes ingestion status to the control plane.
type StatusReporter interface {
	Status() StatusReport
}
