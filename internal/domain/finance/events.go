package finance

import (
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

const (
	AggregateTypeOrderFee = "OrderFee"

	EventTypeFeeRecalculated = "FeeRecalculated"
)

// FeeRecalculatedEvent is raised when a lifecycle event changes an order's fees
type FeeRecalculatedEvent struct {
	shared.BaseDomainEvent
	OrderID    int64           `json:"order_id"`
	TaxAmount  decimal.Decimal `json:"tax_amount"`
	FinalTotal decimal.Decimal `json:"final_total"`
	Reason     string          `json:"reason"`
}

// NewFeeRecalculatedEvent creates a new FeeRecalculatedEvent
func NewFeeRecalculatedEvent(fee *OrderFee, reason string) *FeeRecalculatedEvent {
	return &FeeRecalculatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeFeeRecalculated, AggregateTypeOrderFee, fee.OrderID),
		OrderID:         fee.OrderID,
		TaxAmount:       fee.TaxAmount,
		FinalTotal:      fee.FinalTotal,
		Reason:          reason,
	}
}

// EventType returns the event type name
func (e *FeeRecalculatedEvent) EventType() string {
	return EventTypeFeeRecalculated
}
