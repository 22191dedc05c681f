package inventory

import (
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
)

const (
	AggregateTypeMovement     = "InventoryMovement"
	AggregateTypeCountSession = "CountSession"

	EventTypeStockReserved      = "StockReserved"
	EventTypeStockReleased      = "StockReleased"
	EventTypeMovementCompleted  = "MovementCompleted"
	EventTypeStockAdjusted      = "StockAdjusted"
	EventTypeCountSessionClosed = "CountSessionClosed"
)

// StockReservedEvent is published when a reservation decrements on-hand
type StockReservedEvent struct {
	shared.BaseDomainEvent
	MovementID     int64  `json:"movement_id"`
	TrackingNumber string `json:"tracking_number"`
	ProductID      int64  `json:"product_id"`
	WarehouseID    int64  `json:"warehouse_id"`
	Quantity       int64  `json:"quantity"`
	Reference      string `json:"reference"`
}

// NewStockReservedEvent creates a new StockReservedEvent
func NewStockReservedEvent(m *Movement) *StockReservedEvent {
	return &StockReservedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockReserved, AggregateTypeMovement, m.ID),
		MovementID:      m.ID,
		TrackingNumber:  m.TrackingNumber,
		ProductID:       m.ProductID,
		WarehouseID:     m.WarehouseID(),
		Quantity:        m.Quantity,
		Reference:       m.Reference,
	}
}

// EventType returns the event type name
func (e *StockReservedEvent) EventType() string {
	return EventTypeStockReserved
}

// StockReleasedEvent is published when a reservation is rolled back
type StockReleasedEvent struct {
	shared.BaseDomainEvent
	MovementID             int64  `json:"movement_id"`
	CompensatingMovementID int64  `json:"compensating_movement_id"`
	ProductID              int64  `json:"product_id"`
	WarehouseID            int64  `json:"warehouse_id"`
	Quantity               int64  `json:"quantity"`
	Reference              string `json:"reference"`
}

// NewStockReleasedEvent creates a new StockReleasedEvent
func NewStockReleasedEvent(original, compensation *Movement) *StockReleasedEvent {
	return &StockReleasedEvent{
		BaseDomainEvent:        shared.NewBaseDomainEvent(EventTypeStockReleased, AggregateTypeMovement, original.ID),
		MovementID:             original.ID,
		CompensatingMovementID: compensation.ID,
		ProductID:              original.ProductID,
		WarehouseID:            original.WarehouseID(),
		Quantity:               original.Quantity,
		Reference:              original.Reference,
	}
}

// EventType returns the event type name
func (e *StockReleasedEvent) EventType() string {
	return EventTypeStockReleased
}

// MovementCompletedEvent is published when a movement reaches completed
type MovementCompletedEvent struct {
	shared.BaseDomainEvent
	MovementID             int64        `json:"movement_id"`
	TrackingNumber         string       `json:"tracking_number"`
	Kind                   MovementKind `json:"kind"`
	ProductID              int64        `json:"product_id"`
	Quantity               int64        `json:"quantity"`
	SourceWarehouseID      *int64       `json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID *int64       `json:"destination_warehouse_id,omitempty"`
	Reference              string       `json:"reference,omitempty"`
	ProcessedBy            int64        `json:"processed_by"`
}

// NewMovementCompletedEvent creates a new MovementCompletedEvent
func NewMovementCompletedEvent(m *Movement) *MovementCompletedEvent {
	var processedBy int64
	if m.ProcessedBy != nil {
		processedBy = *m.ProcessedBy
	}
	return &MovementCompletedEvent{
		BaseDomainEvent:        shared.NewBaseDomainEvent(EventTypeMovementCompleted, AggregateTypeMovement, m.ID),
		MovementID:             m.ID,
		TrackingNumber:         m.TrackingNumber,
		Kind:                   m.Kind,
		ProductID:              m.ProductID,
		Quantity:               m.Quantity,
		SourceWarehouseID:      m.SourceWarehouseID,
		DestinationWarehouseID: m.DestinationWarehouseID,
		Reference:              m.Reference,
		ProcessedBy:            processedBy,
	}
}

// EventType returns the event type name
func (e *MovementCompletedEvent) EventType() string {
	return EventTypeMovementCompleted
}

// StockAdjustedEvent is published for every adjustment movement
type StockAdjustedEvent struct {
	shared.BaseDomainEvent
	MovementID  int64  `json:"movement_id"`
	ProductID   int64  `json:"product_id"`
	WarehouseID int64  `json:"warehouse_id"`
	Bin         string `json:"bin,omitempty"`
	Delta       int64  `json:"delta"`
	Reason      string `json:"reason"`
}

// NewStockAdjustedEvent creates a new StockAdjustedEvent
func NewStockAdjustedEvent(m *Movement) *StockAdjustedEvent {
	bin := m.DestinationBin
	if m.SourceWarehouseID != nil {
		bin = m.SourceBin
	}
	wh := m.WarehouseID()
	return &StockAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeStockAdjusted, AggregateTypeMovement, m.ID),
		MovementID:      m.ID,
		ProductID:       m.ProductID,
		WarehouseID:     wh,
		Bin:             bin,
		Delta:           m.SignedQuantityFor(wh),
		Reason:          m.Reason,
	}
}

// EventType returns the event type name
func (e *StockAdjustedEvent) EventType() string {
	return EventTypeStockAdjusted
}

// CountSessionClosedEvent is published when a cycle-count session closes
type CountSessionClosedEvent struct {
	shared.BaseDomainEvent
	SessionID     int64     `json:"session_id"`
	WarehouseID   int64     `json:"warehouse_id"`
	ClosedBy      int64     `json:"closed_by"`
	ClosedAt      time.Time `json:"closed_at"`
	RecordCount   int       `json:"record_count"`
	AppliedCount  int       `json:"applied_count"`
	RejectedCount int       `json:"rejected_count"`
	SkippedCount  int       `json:"skipped_count"`
}

// NewCountSessionClosedEvent creates a new CountSessionClosedEvent
func NewCountSessionClosedEvent(s *CountSession) *CountSessionClosedEvent {
	e := &CountSessionClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCountSessionClosed, AggregateTypeCountSession, s.ID),
		SessionID:       s.ID,
		WarehouseID:     s.WarehouseID,
		RecordCount:     len(s.Records),
	}
	if s.ClosedBy != nil {
		e.ClosedBy = *s.ClosedBy
	}
	if s.ClosedAt != nil {
		e.ClosedAt = *s.ClosedAt
	}
	for _, r := range s.Records {
		switch {
		case r.Skipped:
			e.SkippedCount++
		case r.Resolution == ResolutionAccepted:
			e.AppliedCount++
		case r.Resolution == ResolutionRejected:
			e.RejectedCount++
		}
	}
	return e
}

// EventType returns the event type name
func (e *CountSessionClosedEvent) EventType() string {
	return EventTypeCountSessionClosed
}
