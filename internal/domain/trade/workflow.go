package trade

import "slices"

// WorkflowStatus is the fine-grained lifecycle position of an order.
// It is the only writable status; OrderStatus is projected from it.
type WorkflowStatus string

const (
	WorkflowSellerSubmitted      WorkflowStatus = "seller_submitted"
	WorkflowCallCenterReview     WorkflowStatus = "callcenter_review"
	WorkflowCallCenterApproved   WorkflowStatus = "callcenter_approved"
	WorkflowStockKeeperApproved  WorkflowStatus = "stockkeeper_approved"
	WorkflowPickAndPack          WorkflowStatus = "pick_and_pack"
	WorkflowPackagingInProgress  WorkflowStatus = "packaging_in_progress"
	WorkflowPackagingCompleted   WorkflowStatus = "packaging_completed"
	WorkflowReadyForDelivery     WorkflowStatus = "ready_for_delivery"
	WorkflowDeliveryInProgress   WorkflowStatus = "delivery_in_progress"
	WorkflowDeliveryCompleted    WorkflowStatus = "delivery_completed"
	WorkflowReturned             WorkflowStatus = "returned"
	WorkflowCancelled            WorkflowStatus = "cancelled"
)

// OrderStatus is the coarse status shown to sellers and customers
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusPackaged   OrderStatus = "packaged"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
	OrderStatusCompleted  OrderStatus = "completed"
)

// forward is the main line of the workflow, in order
var forward = []WorkflowStatus{
	WorkflowSellerSubmitted,
	WorkflowCallCenterReview,
	WorkflowCallCenterApproved,
	WorkflowStockKeeperApproved,
	WorkflowPickAndPack,
	WorkflowPackagingInProgress,
	WorkflowPackagingCompleted,
	WorkflowReadyForDelivery,
	WorkflowDeliveryInProgress,
	WorkflowDeliveryCompleted,
}

var statusProjection = map[WorkflowStatus]OrderStatus{
	WorkflowSellerSubmitted:     OrderStatusPending,
	WorkflowCallCenterReview:    OrderStatusPending,
	WorkflowCallCenterApproved:  OrderStatusConfirmed,
	WorkflowStockKeeperApproved: OrderStatusProcessing,
	WorkflowPickAndPack:         OrderStatusProcessing,
	WorkflowPackagingInProgress: OrderStatusProcessing,
	WorkflowPackagingCompleted:  OrderStatusProcessing,
	WorkflowReadyForDelivery:    OrderStatusShipped,
	WorkflowDeliveryInProgress:  OrderStatusShipped,
	WorkflowDeliveryCompleted:   OrderStatusDelivered,
	WorkflowReturned:            OrderStatusReturned,
	WorkflowCancelled:           OrderStatusCancelled,
}

// AllWorkflowStatuses returns every workflow status
func AllWorkflowStatuses() []WorkflowStatus {
	return append(slices.Clone(forward), WorkflowReturned, WorkflowCancelled)
}

// IsValid checks if the workflow status is known
func (s WorkflowStatus) IsValid() bool {
	_, ok := statusProjection[s]
	return ok
}

// String returns the string representation
func (s WorkflowStatus) String() string {
	return string(s)
}

// StatusFor returns the OrderStatus projected from a workflow status
func StatusFor(s WorkflowStatus) OrderStatus {
	return statusProjection[s]
}

// IsTerminal reports whether no forward transition leaves the status.
// delivery_completed is terminal for forward moves; returned is reached
// from it only through the return processor.
func (s WorkflowStatus) IsTerminal() bool {
	return s == WorkflowDeliveryCompleted || s == WorkflowReturned || s == WorkflowCancelled
}

// CanTransitionTo reports whether target is reachable from s in one step
func (s WorkflowStatus) CanTransitionTo(target WorkflowStatus) bool {
	if !s.IsValid() || !target.IsValid() {
		return false
	}
	switch target {
	case WorkflowCancelled:
		return !s.IsTerminal()
	case WorkflowReturned:
		return s == WorkflowDeliveryCompleted
	}
	i := slices.Index(forward, s)
	return i >= 0 && i+1 < len(forward) && forward[i+1] == target
}

// HoldsStock reports whether an order in this status has stock taken out of
// on-hand for it, either reserved or committed.
func (s WorkflowStatus) HoldsStock() bool {
	i := slices.Index(forward, s)
	return i >= slices.Index(forward, WorkflowStockKeeperApproved) && i < slices.Index(forward, WorkflowDeliveryCompleted)
}

// IsCallCenterStage reports whether the order is still with the call center
func (s WorkflowStatus) IsCallCenterStage() bool {
	return s == WorkflowSellerSubmitted || s == WorkflowCallCenterReview
}

// IsLegalPairing reports whether (status, workflow) is a pairing the projection produces
func IsLegalPairing(status OrderStatus, workflow WorkflowStatus) bool {
	projected, ok := statusProjection[workflow]
	return ok && projected == status
}
