package shared

import "context"

// EventHandler reacts to committed domain events. EventTypes lists the
// types it wants when subscribed without explicit types; nil means all.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher delivers events after the transaction that produced them commits
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

// Publish implements EventPublisher
func (NoopPublisher) Publish(context.Context, ...DomainEvent) error { return nil }
