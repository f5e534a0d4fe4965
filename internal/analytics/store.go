package analytics

import "context"

// Store defines the interface for persisting analytics events.
type Store interface {
	SaveLinkCreated(ctx context.Context, event *LinkCreatedEvent) error
	SaveLinkVisited(ctx context.Context, event *LinkVisitedEvent) error
}

// NoopStore discards all events.
type NoopStore struct{}

// NewNoopStore creates a store that drops everything.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (*NoopStore) SaveLinkCreated(_ context.Context, _ *LinkCreatedEvent) error {
	return nil
}

func (*NoopStore) SaveLinkVisited(_ context.Context, _ *LinkVisitedEvent) error {
	return nil
}
