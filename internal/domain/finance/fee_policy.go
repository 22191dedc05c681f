package finance

import (
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

var maxFeePercentage = decimal.NewFromInt(100)

// SellerFeePolicy is the percentage a seller pays on the base price.
// At most one policy per seller is active.
type SellerFeePolicy struct {
	shared.BaseEntity
	SellerID      int64           `gorm:"not null;index" json:"seller_id"`
	FeePercentage decimal.Decimal `gorm:"type:decimal(7,4);not null" json:"fee_percentage"`
	Active        bool            `gorm:"not null" json:"active"`
	CreatedBy     int64           `gorm:"not null" json:"created_by"`
}

// TableName returns the table name for GORM
func (SellerFeePolicy) TableName() string {
	return "seller_fee_policies"
}

// NewSellerFeePolicy creates an active policy
func NewSellerFeePolicy(sellerID int64, pct decimal.Decimal, actorID int64) (*SellerFeePolicy, error) {
	if sellerID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Seller ID must be positive")
	}
	if pct.IsNegative() || pct.GreaterThan(maxFeePercentage) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Fee percentage must be between 0 and 100")
	}
	return &SellerFeePolicy{
		BaseEntity:    shared.NewBaseEntity(),
		SellerID:      sellerID,
		FeePercentage: pct,
		Active:        true,
		CreatedBy:     actorID,
	}, nil
}

// Deactivate retires the policy
func (p *SellerFeePolicy) Deactivate(now time.Time) {
	p.Active = false
	p.Touch(now)
}
