package trade

import (
	"time"

	financeapp "github.com/fulfillcrm/backend/internal/application/finance"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/shared/valueobject"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// AddressInput is the shipping address of a new order
type AddressInput struct {
	Line1      string `json:"line1" validate:"required,max=255"`
	Line2      string `json:"line2" validate:"max=255"`
	City       string `json:"city" validate:"required,max=100"`
	Region     string `json:"region" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"max=20"`
	Country    string `json:"country" validate:"max=100"`
}

func (a AddressInput) toValueObject() (valueobject.Address, error) {
	return valueobject.NewAddress(a.Line1, a.City,
		valueobject.WithLine2(a.Line2),
		valueobject.WithRegion(a.Region),
		valueobject.WithPostalCode(a.PostalCode),
		valueobject.WithCountry(a.Country),
	)
}

// SubmitOrderRequest is the input of SubmitOrder. UnitPrice defaults to
// the product's selling price.
type SubmitOrderRequest struct {
	Code           string           `json:"code" validate:"required,max=50"`
	SellerID       int64            `json:"seller_id" validate:"required,gt=0"`
	CustomerName   string           `json:"customer_name" validate:"required,max=200"`
	CustomerPhone  string           `json:"customer_phone" validate:"required,max=32"`
	Address        AddressInput     `json:"address"`
	ProductID      int64            `json:"product_id" validate:"required,gt=0"`
	Quantity       int64            `json:"quantity"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty"`
	InternalNotes  string           `json:"internal_notes" validate:"max=2000"`
	IdempotencyKey string           `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor   `json:"-" validate:"-"`
}

// AssignOrderRequest is the input of AssignOrder
type AssignOrderRequest struct {
	OrderID        int64          `json:"order_id" validate:"required,gt=0"`
	AgentID        int64          `json:"agent_id" validate:"required,gt=0"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// BulkReassignRequest is the input of BulkReassign
type BulkReassignRequest struct {
	OrderIDs       []int64        `json:"order_ids" validate:"required,min=1,max=500,dive,gt=0"`
	AgentID        int64          `json:"agent_id" validate:"required,gt=0"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// EscalateOrderRequest is the input of EscalateOrder
type EscalateOrderRequest struct {
	OrderID        int64          `json:"order_id" validate:"required,gt=0"`
	Reason         string         `json:"reason" validate:"required,max=1000"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// PostponeOrderRequest is the input of PostponeOrder
type PostponeOrderRequest struct {
	OrderID        int64          `json:"order_id" validate:"required,gt=0"`
	Until          time.Time      `json:"until" validate:"required"`
	Reason         string         `json:"reason" validate:"max=1000"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// TransitionRequest is the input of TransitionOrder. WarehouseID pins the
// reservation warehouse on stockkeeper_approved.
type TransitionRequest struct {
	OrderID        int64          `json:"order_id" validate:"required,gt=0"`
	Target         string         `json:"target" validate:"required,max=32"`
	WarehouseID    *int64         `json:"warehouse_id,omitempty" validate:"omitempty,gt=0"`
	Reason         string         `json:"reason" validate:"max=255"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// MovementRef is a short reference to a movement written by a transition
type MovementRef struct {
	ID             int64  `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	Kind           string `json:"kind"`
	Status         string `json:"status"`
	Quantity       int64  `json:"quantity"`
}

// TransitionResult is the outcome of a transition. Replayed is true when
// the result was served from the idempotency store.
type TransitionResult struct {
	Order     OrderResponse                `json:"order"`
	From      trade.WorkflowStatus         `json:"from"`
	To        trade.WorkflowStatus         `json:"to"`
	Movements []MovementRef                `json:"movements,omitempty"`
	Fee       *financeapp.OrderFeeResponse `json:"fee,omitempty"`
	Replayed  bool                         `json:"-"`
}

// ReturnRequest is the input of ProcessReturn. WarehouseID overrides the
// warehouse the order shipped from.
type ReturnRequest struct {
	OrderID         int64          `json:"order_id" validate:"required,gt=0"`
	GoodQuantity    int64          `json:"good_quantity"`
	DamagedQuantity int64          `json:"damaged_quantity"`
	DamageReason    string         `json:"damage_reason" validate:"max=1000"`
	WarehouseID     *int64         `json:"warehouse_id,omitempty" validate:"omitempty,gt=0"`
	IdempotencyKey  string         `json:"idempotency_key" validate:"max=128"`
	Actor           identity.Actor `json:"-" validate:"-"`
}

// ReturnResult is the outcome of ProcessReturn
type ReturnResult struct {
	ReturnID         int64                       `json:"return_id"`
	Order            OrderResponse               `json:"order"`
	WarehouseID      int64                       `json:"warehouse_id"`
	GoodQuantity     int64                       `json:"good_quantity"`
	DamagedQuantity  int64                       `json:"damaged_quantity"`
	GoodMovementID   *int64                      `json:"good_movement_id,omitempty"`
	DamageMovementID *int64                      `json:"damage_movement_id,omitempty"`
	Fee              financeapp.OrderFeeResponse `json:"fee"`
	Replayed         bool                        `json:"-"`
}

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID                    int64                `json:"id"`
	Code                  string               `json:"code"`
	SellerID              int64                `json:"seller_id"`
	CustomerName          string               `json:"customer_name"`
	CustomerPhone         string               `json:"customer_phone"`
	Address               valueobject.Address  `json:"address"`
	ProductID             int64                `json:"product_id"`
	Quantity              int64                `json:"quantity"`
	UnitPrice             decimal.Decimal      `json:"unit_price"`
	BasePrice             decimal.Decimal      `json:"base_price"`
	Status                trade.OrderStatus    `json:"status"`
	WorkflowStatus        trade.WorkflowStatus `json:"workflow_status"`
	AgentID               *int64               `json:"agent_id,omitempty"`
	ManagerID             *int64               `json:"manager_id,omitempty"`
	Escalated             bool                 `json:"escalated"`
	EscalatedAt           *time.Time           `json:"escalated_at,omitempty"`
	EscalationReason      string               `json:"escalation_reason,omitempty"`
	InternalNotes         string               `json:"internal_notes,omitempty"`
	WarehouseID           *int64               `json:"warehouse_id,omitempty"`
	ReservationMovementID *int64               `json:"reservation_movement_id,omitempty"`
	PostponedUntil        *time.Time           `json:"postponed_until,omitempty"`
	PostponeReason        string               `json:"postpone_reason,omitempty"`
	DeliveredAt           *time.Time           `json:"delivered_at,omitempty"`
	CancelledAt           *time.Time           `json:"cancelled_at,omitempty"`
	ReturnedAt            *time.Time           `json:"returned_at,omitempty"`
	Version               int                  `json:"version"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *trade.Order) OrderResponse {
	return OrderResponse{
		ID:                    o.ID,
		Code:                  o.Code,
		SellerID:              o.SellerID,
		CustomerName:          o.CustomerName,
		CustomerPhone:         o.CustomerPhone,
		Address:               o.Address,
		ProductID:             o.ProductID,
		Quantity:              o.Quantity,
		UnitPrice:             o.UnitPrice,
		BasePrice:             o.BasePrice(),
		Status:                o.Status,
		WorkflowStatus:        o.WorkflowStatus,
		AgentID:               o.AgentID,
		ManagerID:             o.ManagerID,
		Escalated:             o.Escalated,
		EscalatedAt:           o.EscalatedAt,
		EscalationReason:      o.EscalationReason,
		InternalNotes:         o.InternalNotes,
		WarehouseID:           o.WarehouseID,
		ReservationMovementID: o.ReservationMovementID,
		PostponedUntil:        o.PostponedUntil,
		PostponeReason:        o.PostponeReason,
		DeliveredAt:           o.DeliveredAt,
		CancelledAt:           o.CancelledAt,
		ReturnedAt:            o.ReturnedAt,
		Version:               o.Version,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

// ToOrderResponses converts a slice of orders
func ToOrderResponses(orders []trade.Order) []OrderResponse {
	out := make([]OrderResponse, len(orders))
	for i := range orders {
		out[i] = ToOrderResponse(&orders[i])
	}
	return out
}

// SubmitOrderResponse carries the created order and its fee record
type SubmitOrderResponse struct {
	Order OrderResponse               `json:"order"`
	Fee   financeapp.OrderFeeResponse `json:"fee"`
}
