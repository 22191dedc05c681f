package catalog

import "github.com/fulfillcrm/backend/internal/domain/shared"

const (
	AggregateTypeProduct = "Product"

	EventTypeProductRegistered = "ProductRegistered"
)

// ProductRegisteredEvent is published when a seller registers a product
type ProductRegisteredEvent struct {
	shared.BaseDomainEvent
	ProductID int64  `json:"product_id"`
	SellerID  int64  `json:"seller_id"`
	SKU       string `json:"sku"`
	Barcode   string `json:"barcode"`
}

// NewProductRegisteredEvent creates a new ProductRegisteredEvent
func NewProductRegisteredEvent(p *Product) *ProductRegisteredEvent {
	return &ProductRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductRegistered, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		SellerID:        p.SellerID,
		SKU:             p.SKU,
		Barcode:         p.Barcode,
	}
}

// EventType returns the event type name
func (e *ProductRegisteredEvent) EventType() string {
	return EventTypeProductRegistered
}
