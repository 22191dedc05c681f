package trade

import (
	"fmt"
	"strings"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// ReturnEvent records one processed customer return
type ReturnEvent struct {
	shared.BaseEntity
	OrderID          int64     `gorm:"not null;index" json:"order_id"`
	WarehouseID      int64     `gorm:"not null" json:"warehouse_id"`
	GoodQuantity     int64     `gorm:"not null;default:0" json:"good_quantity"`
	DamagedQuantity  int64     `gorm:"not null;default:0" json:"damaged_quantity"`
	DamageReason     string    `gorm:"type:text" json:"damage_reason,omitempty"`
	GoodMovementID   *int64    `json:"good_movement_id,omitempty"`
	DamageMovementID *int64    `json:"damage_movement_id,omitempty"`
	ProcessedBy      int64     `gorm:"not null" json:"processed_by"`
	ProcessedAt      time.Time `gorm:"not null" json:"processed_at"`
}

// TableName returns the table name for GORM
func (ReturnEvent) TableName() string {
	return "return_events"
}

// EnsureReturnable fails with ILLEGAL_TRANSITION unless the order was delivered
func EnsureReturnable(o *Order) error {
	if o.Status != OrderStatusDelivered {
		return shared.NewDomainError(shared.CodeIllegalTransition,
			fmt.Sprintf("Order %s is %s; only delivered orders can be returned", o.Code, o.Status))
	}
	return nil
}

// NewReturnEvent validates a return against the order it belongs to.
// The order must be delivered and the returned units cannot exceed what was shipped.
func NewReturnEvent(o *Order, warehouseID, good, damaged int64, reason string, actorID int64, now time.Time) (*ReturnEvent, error) {
	if err := EnsureReturnable(o); err != nil {
		return nil, err
	}
	if good < 0 || damaged < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Returned quantities cannot be negative")
	}
	if good+damaged < 1 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "A return must contain at least one unit")
	}
	if good+damaged > o.Quantity {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity,
			fmt.Sprintf("Returned %d units but only %d were shipped", good+damaged, o.Quantity))
	}
	reason = strings.TrimSpace(reason)
	if damaged > 0 && reason == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Damage reason is required when units are damaged")
	}

	return &ReturnEvent{
		BaseEntity:      shared.NewBaseEntity(),
		OrderID:         o.ID,
		WarehouseID:     warehouseID,
		GoodQuantity:    good,
		DamagedQuantity: damaged,
		DamageReason:    reason,
		ProcessedBy:     actorID,
		ProcessedAt:     now.UTC(),
	}, nil
}

// TotalQuantity returns good plus damaged units
func (r *ReturnEvent) TotalQuantity() int64 {
	return r.GoodQuantity + r.DamagedQuantity
}
