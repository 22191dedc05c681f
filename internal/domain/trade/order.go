package trade

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Order is the aggregate root of the fulfillment lifecycle.
// Status is always the projection of WorkflowStatus and is stored only for querying.
type Order struct {
	shared.BaseAggregateRoot
	Code          string              `gorm:"type:varchar(50);not null;uniqueIndex" json:"code"`
	SellerID      int64               `gorm:"not null;index" json:"seller_id"`
	CustomerName  string              `gorm:"type:varchar(200);not null" json:"customer_name"`
	CustomerPhone string              `gorm:"type:varchar(32);not null" json:"customer_phone"`
	Address       valueobject.Address `gorm:"embedded;embeddedPrefix:shipping_" json:"address"`
	ProductID     int64               `gorm:"not null;index" json:"product_id"`
	Quantity      int64               `gorm:"not null" json:"quantity"`
	UnitPrice     decimal.Decimal     `gorm:"type:decimal(18,4);not null" json:"unit_price"`

	Status         OrderStatus    `gorm:"type:varchar(20);not null;index" json:"status"`
	WorkflowStatus WorkflowStatus `gorm:"type:varchar(32);not null;index" json:"workflow_status"`

	AgentID          *int64     `gorm:"index" json:"agent_id,omitempty"`
	ManagerID        *int64     `json:"manager_id,omitempty"`
	Escalated        bool       `gorm:"not null;default:false;index" json:"escalated"`
	EscalatedAt      *time.Time `json:"escalated_at,omitempty"`
	EscalatedBy      *int64     `json:"escalated_by,omitempty"`
	EscalationReason string     `gorm:"type:text" json:"escalation_reason,omitempty"`
	InternalNotes    string     `gorm:"type:text" json:"internal_notes,omitempty"`

	WarehouseID           *int64 `json:"warehouse_id,omitempty"`
	ReservationMovementID *int64 `json:"reservation_movement_id,omitempty"`

	PostponedUntil *time.Time `json:"postponed_until,omitempty"`
	PostponeReason string     `gorm:"type:text" json:"postpone_reason,omitempty"`

	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
}

// TableName returns the table name for GORM
func (Order) TableName() string {
	return "orders"
}

// OrderInput carries the caller-supplied fields of a new order
type OrderInput struct {
	Code          string
	SellerID      int64
	CustomerName  string
	CustomerPhone string
	Address       valueobject.Address
	ProductID     int64
	Quantity      int64
	UnitPrice     decimal.Decimal
	InternalNotes string
}

// NewOrder creates an order in seller_submitted
func NewOrder(in OrderInput) (*Order, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" || utf8.RuneCountInString(code) > 50 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order code must be 1-50 characters")
	}
	if in.SellerID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order must belong to a seller")
	}
	if in.ProductID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Order must reference a product")
	}
	if strings.TrimSpace(in.CustomerName) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Customer name cannot be empty")
	}
	if strings.TrimSpace(in.CustomerPhone) == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Customer phone cannot be empty")
	}
	if in.Quantity < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Quantity must be at least 1")
	}
	if in.UnitPrice.IsNegative() {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Unit price cannot be negative")
	}
	if err := in.Address.Validate(); err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		SellerID:          in.SellerID,
		CustomerName:      strings.TrimSpace(in.CustomerName),
		CustomerPhone:     strings.TrimSpace(in.CustomerPhone),
		Address:           in.Address,
		ProductID:         in.ProductID,
		Quantity:          in.Quantity,
		UnitPrice:         in.UnitPrice,
		Status:            StatusFor(WorkflowSellerSubmitted),
		WorkflowStatus:    WorkflowSellerSubmitted,
		InternalNotes:     in.InternalNotes,
	}, nil
}

// BasePrice returns unit_price * quantity rounded to money scale
func (o *Order) BasePrice() decimal.Decimal {
	return valueobject.LineTotal(o.UnitPrice, o.Quantity)
}

// IsAssignedTo reports whether agentID is the assigned agent
func (o *Order) IsAssignedTo(agentID int64) bool {
	return o.AgentID != nil && *o.AgentID == agentID
}

// Assign hands the order to an agent. Only a manager may take an order
// from another agent; a manager assignment also clears any escalation.
func (o *Order) Assign(agentID, actorID int64, byManager bool, now time.Time) error {
	if agentID <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Agent ID must be positive")
	}
	if o.WorkflowStatus.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot assign an order in %s", o.WorkflowStatus))
	}
	if o.AgentID != nil && !byManager {
		return shared.NewDomainError(shared.CodeNotAuthorized, "Order is already assigned; only a manager can reassign it")
	}

	previous := o.AgentID
	o.AgentID = &agentID
	if byManager {
		o.ManagerID = &actorID
		o.clearEscalation()
	}
	o.Touch(now)
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderAssignedEvent(o, previous, actorID))
	return nil
}

// Escalate flags the order for a manager. The workflow status is unchanged.
func (o *Order) Escalate(reason string, actorID int64, now time.Time) error {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Escalation reason is required")
	}
	if o.WorkflowStatus.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot escalate an order in %s", o.WorkflowStatus))
	}
	if o.Escalated {
		return shared.NewDomainError(shared.CodeInvalidState, "Order is already escalated")
	}

	at := now.UTC()
	o.Escalated = true
	o.EscalatedAt = &at
	o.EscalatedBy = &actorID
	o.EscalationReason = reason
	o.Touch(now)
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderEscalatedEvent(o))
	return nil
}

func (o *Order) clearEscalation() {
	o.Escalated = false
	o.EscalatedAt = nil
	o.EscalatedBy = nil
	o.EscalationReason = ""
}

// Postpone defers follow-up on the order until a later time
func (o *Order) Postpone(until time.Time, reason string, actorID int64, now time.Time) error {
	if !until.After(now) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Postpone time must be in the future")
	}
	if o.WorkflowStatus.IsTerminal() {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Cannot postpone an order in %s", o.WorkflowStatus))
	}
	u := until.UTC()
	o.PostponedUntil = &u
	o.PostponeReason = strings.TrimSpace(reason)
	o.Touch(now)
	o.IncrementVersion()
	o.AddDomainEvent(NewOrderPostponedEvent(o, actorID))
	return nil
}

// IsPostponed reports whether follow-up is deferred at now
func (o *Order) IsPostponed(now time.Time) bool {
	return o.PostponedUntil != nil && o.PostponedUntil.After(now)
}

// MarkReserved records the warehouse and reservation movement of the order
func (o *Order) MarkReserved(warehouseID, movementID int64) {
	o.WarehouseID = &warehouseID
	o.ReservationMovementID = &movementID
}

// TransitionTo moves the workflow one step. It does not authorize; callers
// check TransitionPolicy first. Status follows from the projection.
func (o *Order) TransitionTo(target WorkflowStatus, actorID int64, now time.Time) error {
	if !target.IsValid() {
		return shared.NewDomainError(shared.CodeIllegalTransition,
			fmt.Sprintf("Unknown workflow status %q", target))
	}
	if !o.WorkflowStatus.CanTransitionTo(target) {
		return shared.NewDomainError(shared.CodeIllegalTransition,
			fmt.Sprintf("Cannot move order %s from %s to %s", o.Code, o.WorkflowStatus, target))
	}

	from := o.WorkflowStatus
	fromStatus := o.Status
	o.WorkflowStatus = target
	o.Status = StatusFor(target)

	at := now.UTC()
	switch target {
	case WorkflowDeliveryCompleted:
		o.DeliveredAt = &at
	case WorkflowCancelled:
		o.CancelledAt = &at
	case WorkflowReturned:
		o.ReturnedAt = &at
	}
	if target.IsTerminal() {
		o.PostponedUntil = nil
	}
	o.Touch(now)
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, from, fromStatus, actorID))
	switch target {
	case WorkflowCancelled:
		o.AddDomainEvent(NewOrderCancelledEvent(o, from, actorID))
	case WorkflowDeliveryCompleted:
		o.AddDomainEvent(NewOrderDeliveredEvent(o, actorID))
	case WorkflowReturned:
		o.AddDomainEvent(NewOrderReturnedEvent(o, actorID))
	}
	return nil
}

// HasLegalStatus reports whether the stored status pairing is consistent
func (o *Order) HasLegalStatus() bool {
	return IsLegalPairing(o.Status, o.WorkflowStatus)
}
