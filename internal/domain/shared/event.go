package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate. Events are published only
// after the transaction that produced them commits.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() int64
	AggregateType() string
}

// BaseDomainEvent carries the envelope every concrete event embeds
type BaseDomainEvent struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	At         time.Time `json:"occurred_at"`
	SourceID   int64     `json:"aggregate_id"`
	SourceType string    `json:"aggregate_type"`
}

func (e *BaseDomainEvent) EventID() uuid.UUID    { return e.ID }
func (e *BaseDomainEvent) EventType() string     { return e.Type }
func (e *BaseDomainEvent) OccurredAt() time.Time { return e.At }
func (e *BaseDomainEvent) AggregateID() int64    { return e.SourceID }
func (e *BaseDomainEvent) AggregateType() string { return e.SourceType }

// NewBaseDomainEvent stamps a new envelope for aggregate aggType/aggID in UTC
func NewBaseDomainEvent(eventType, aggType string, aggID int64) BaseDomainEvent {
	return BaseDomainEvent{
		ID:         uuid.New(),
		Type:       eventType,
		At:         time.Now().UTC(),
		SourceID:   aggID,
		SourceType: aggType,
	}
}
