package finance

import "context"

// OrderFeeRepository persists fee records, one per order
type OrderFeeRepository interface {
	// FindByOrder returns shared.ErrNotFound when the order has no fee record
	FindByOrder(ctx context.Context, orderID int64) (*OrderFee, error)
	// LockByOrder loads the fee record under a row lock
	LockByOrder(ctx context.Context, orderID int64) (*OrderFee, error)
	Create(ctx context.Context, fee *OrderFee) error
	Save(ctx context.Context, fee *OrderFee) error
}

// SellerFeePolicyRepository persists seller fee policies
type SellerFeePolicyRepository interface {
	// FindActiveBySeller returns the active policy, or nil and no error when there is none
	FindActiveBySeller(ctx context.Context, sellerID int64) (*SellerFeePolicy, error)
	// FindBySeller returns every policy of a seller, newest first
	FindBySeller(ctx context.Context, sellerID int64) ([]SellerFeePolicy, error)
	Create(ctx context.Context, policy *SellerFeePolicy) error
	Save(ctx context.Context, policy *SellerFeePolicy) error
}
