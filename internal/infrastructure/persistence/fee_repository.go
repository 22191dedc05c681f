package persistence

import (
	"context"
	"errors"

	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderFeeRepository implements OrderFeeRepository using GORM
type GormOrderFeeRepository struct {
	db *gorm.DB
}

// NewGormOrderFeeRepository creates a new GormOrderFeeRepository
func NewGormOrderFeeRepository(db *gorm.DB) *GormOrderFeeRepository {
	return &GormOrderFeeRepository{db: db}
}

// FindByOrder returns the fee record of an order
func (r *GormOrderFeeRepository) FindByOrder(ctx context.Context, orderID int64) (*finance.OrderFee, error) {
	var fee finance.OrderFee
	if err := r.db.WithContext(ctx).First(&fee, "order_id = ?", orderID).Error; err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return &fee, nil
}

// LockByOrder loads the fee record under SELECT ... FOR UPDATE
func (r *GormOrderFeeRepository) LockByOrder(ctx context.Context, orderID int64) (*finance.OrderFee, error) {
	var fee finance.OrderFee
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&fee, "order_id = ?", orderID).Error
	if err != nil {
		return nil, notFound(err, shared.ErrNotFound)
	}
	return &fee, nil
}

// Create inserts a fee record
func (r *GormOrderFeeRepository) Create(ctx context.Context, fee *finance.OrderFee) error {
	return translateError(r.db.WithContext(ctx).Create(fee).Error)
}

// Save updates a fee record
func (r *GormOrderFeeRepository) Save(ctx context.Context, fee *finance.OrderFee) error {
	return translateError(r.db.WithContext(ctx).Save(fee).Error)
}

// GormSellerFeePolicyRepository implements SellerFeePolicyRepository using GORM
type GormSellerFeePolicyRepository struct {
	db *gorm.DB
}

// NewGormSellerFeePolicyRepository creates a new GormSellerFeePolicyRepository
func NewGormSellerFeePolicyRepository(db *gorm.DB) *GormSellerFeePolicyRepository {
	return &GormSellerFeePolicyRepository{db: db}
}

// FindActiveBySeller returns the seller's active policy, or nil when there is none
func (r *GormSellerFeePolicyRepository) FindActiveBySeller(ctx context.Context, sellerID int64) (*finance.SellerFeePolicy, error) {
	var policy finance.SellerFeePolicy
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND active = ?", sellerID, true).
		First(&policy).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}

// FindBySeller returns every policy of a seller, newest first
func (r *GormSellerFeePolicyRepository) FindBySeller(ctx context.Context, sellerID int64) ([]finance.SellerFeePolicy, error) {
	var policies []finance.SellerFeePolicy
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("id DESC").Find(&policies).Error
	return policies, err
}

// Create inserts a policy
func (r *GormSellerFeePolicyRepository) Create(ctx context.Context, policy *finance.SellerFeePolicy) error {
	return translateError(r.db.WithContext(ctx).Create(policy).Error)
}

// Save updates a policy
func (r *GormSellerFeePolicyRepository) Save(ctx context.Context, policy *finance.SellerFeePolicy) error {
	return translateError(r.db.WithContext(ctx).Save(policy).Error)
}

var (
	_ finance.OrderFeeRepository        = (*GormOrderFeeRepository)(nil)
	_ finance.SellerFeePolicyRepository = (*GormSellerFeePolicyRepository)(nil)
)
