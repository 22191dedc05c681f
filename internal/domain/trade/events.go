package trade

import (
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderSubmitted     = "OrderSubmitted"
	EventTypeOrderAssigned      = "OrderAssigned"
	EventTypeOrderEscalated     = "OrderEscalated"
	EventTypeOrderPostponed     = "OrderPostponed"
	EventTypeOrderStatusChanged = "OrderStatusChanged"
	EventTypeOrderCancelled     = "OrderCancelled"
	EventTypeOrderDelivered     = "OrderDelivered"
	EventTypeOrderReturned      = "OrderReturned"
	EventTypeTransitionRejected = "TransitionRejected"
)

// OrderSubmittedEvent is raised once a new order has been stored
type OrderSubmittedEvent struct {
	shared.BaseDomainEvent
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	SellerID  int64  `json:"seller_id"`
	ProductID int64  `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// NewOrderSubmittedEvent creates a new OrderSubmittedEvent
func NewOrderSubmittedEvent(o *Order) *OrderSubmittedEvent {
	return &OrderSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderSubmitted, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderCode:       o.Code,
		SellerID:        o.SellerID,
		ProductID:       o.ProductID,
		Quantity:        o.Quantity,
	}
}

// EventType returns the event type name
func (e *OrderSubmittedEvent) EventType() string {
	return EventTypeOrderSubmitted
}

// OrderAssignedEvent is raised when an agent takes or is given an order
type OrderAssignedEvent struct {
	shared.BaseDomainEvent
	OrderID         int64  `json:"order_id"`
	AgentID         int64  `json:"agent_id"`
	PreviousAgentID *int64 `json:"previous_agent_id,omitempty"`
	AssignedBy      int64  `json:"assigned_by"`
}

// NewOrderAssignedEvent creates a new OrderAssignedEvent
func NewOrderAssignedEvent(o *Order, previous *int64, actorID int64) *OrderAssignedEvent {
	return &OrderAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderAssigned, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		AgentID:         *o.AgentID,
		PreviousAgentID: previous,
		AssignedBy:      actorID,
	}
}

// EventType returns the event type name
func (e *OrderAssignedEvent) EventType() string {
	return EventTypeOrderAssigned
}

// OrderEscalatedEvent is raised when an agent hands an order to the managers
type OrderEscalatedEvent struct {
	shared.BaseDomainEvent
	OrderID     int64  `json:"order_id"`
	EscalatedBy int64  `json:"escalated_by"`
	Reason      string `json:"reason"`
}

// NewOrderEscalatedEvent creates a new OrderEscalatedEvent
func NewOrderEscalatedEvent(o *Order) *OrderEscalatedEvent {
	return &OrderEscalatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderEscalated, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		EscalatedBy:     *o.EscalatedBy,
		Reason:          o.EscalationReason,
	}
}

// EventType returns the event type name
func (e *OrderEscalatedEvent) EventType() string {
	return EventTypeOrderEscalated
}

// OrderPostponedEvent is raised when follow-up on an order is deferred
type OrderPostponedEvent struct {
	shared.BaseDomainEvent
	OrderID int64     `json:"order_id"`
	Until   time.Time `json:"until"`
	Reason  string    `json:"reason"`
	ActorID int64     `json:"actor_id"`
}

// NewOrderPostponedEvent creates a new OrderPostponedEvent
func NewOrderPostponedEvent(o *Order, actorID int64) *OrderPostponedEvent {
	return &OrderPostponedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPostponed, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		Until:           *o.PostponedUntil,
		Reason:          o.PostponeReason,
		ActorID:         actorID,
	}
}

// EventType returns the event type name
func (e *OrderPostponedEvent) EventType() string {
	return EventTypeOrderPostponed
}

// OrderStatusChangedEvent is raised on every successful transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID    int64          `json:"order_id"`
	OrderCode  string         `json:"order_code"`
	From       WorkflowStatus `json:"from"`
	To         WorkflowStatus `json:"to"`
	FromStatus OrderStatus    `json:"from_status"`
	ToStatus   OrderStatus    `json:"to_status"`
	ActorID    int64          `json:"actor_id"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, from WorkflowStatus, fromStatus OrderStatus, actorID int64) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderCode:       o.Code,
		From:            from,
		To:              o.WorkflowStatus,
		FromStatus:      fromStatus,
		ToStatus:        o.Status,
		ActorID:         actorID,
	}
}

// EventType returns the event type name
func (e *OrderStatusChangedEvent) EventType() string {
	return EventTypeOrderStatusChanged
}

// OrderCancelledEvent is raised when an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID   int64          `json:"order_id"`
	OrderCode string         `json:"order_code"`
	From      WorkflowStatus `json:"from"`
	ActorID   int64          `json:"actor_id"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order, from WorkflowStatus, actorID int64) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderCode:       o.Code,
		From:            from,
		ActorID:         actorID,
	}
}

// EventType returns the event type name
func (e *OrderCancelledEvent) EventType() string {
	return EventTypeOrderCancelled
}

// OrderDeliveredEvent is raised when delivery completes
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	ActorID   int64  `json:"actor_id"`
}

// NewOrderDeliveredEvent creates a new OrderDeliveredEvent
func NewOrderDeliveredEvent(o *Order, actorID int64) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderCode:       o.Code,
		ActorID:         actorID,
	}
}

// EventType returns the event type name
func (e *OrderDeliveredEvent) EventType() string {
	return EventTypeOrderDelivered
}

// OrderReturnedEvent is raised when a delivered order comes back
type OrderReturnedEvent struct {
	shared.BaseDomainEvent
	OrderID   int64  `json:"order_id"`
	OrderCode string `json:"order_code"`
	ActorID   int64  `json:"actor_id"`
}

// NewOrderReturnedEvent creates a new OrderReturnedEvent
func NewOrderReturnedEvent(o *Order, actorID int64) *OrderReturnedEvent {
	return &OrderReturnedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderReturned, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderCode:       o.Code,
		ActorID:         actorID,
	}
}

// EventType returns the event type name
func (e *OrderReturnedEvent) EventType() string {
	return EventTypeOrderReturned
}

// TransitionRejectedEvent is the audit record of a failed transition
type TransitionRejectedEvent struct {
	shared.BaseDomainEvent
	OrderID   int64          `json:"order_id"`
	ActorID   int64          `json:"actor_id"`
	Target    WorkflowStatus `json:"target"`
	ErrorKind string         `json:"error_kind"`
	Message   string         `json:"message"`
}

// NewTransitionRejectedEvent creates a new TransitionRejectedEvent
func NewTransitionRejectedEvent(orderID, actorID int64, target WorkflowStatus, err error) *TransitionRejectedEvent {
	return &TransitionRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeTransitionRejected, AggregateTypeOrder, orderID),
		OrderID:         orderID,
		ActorID:         actorID,
		Target:          target,
		ErrorKind:       shared.ErrorCode(err),
		Message:         err.Error(),
	}
}

// EventType returns the event type name
func (e *TransitionRejectedEvent) EventType() string {
	return EventTypeTransitionRejected
}
