package catalog

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Product is a sellable item owned by one seller.
// SellerID is fixed at creation; there is no setter for it.
type Product struct {
	shared.BaseAggregateRoot
	SellerID      int64           `gorm:"not null;uniqueIndex:idx_product_seller_sku,priority:1" json:"seller_id"`
	Name          string          `gorm:"type:varchar(200);not null" json:"name"`
	LocalizedName string          `gorm:"type:varchar(200)" json:"localized_name,omitempty"`
	SKU           string          `gorm:"type:varchar(64);not null;uniqueIndex:idx_product_seller_sku,priority:2" json:"sku"`
	Barcode       string          `gorm:"type:varchar(32);not null;uniqueIndex" json:"barcode"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"selling_price"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0" json:"purchase_price"`
	Approved      bool            `gorm:"not null;default:false" json:"approved"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

var skuCaser = cases.Upper(language.Und)

// NormalizeSKU trims and upper-cases a SKU
func NormalizeSKU(sku string) string {
	return skuCaser.String(strings.TrimSpace(sku))
}

// NormalizeName trims a name and puts it in Unicode NFC form so that
// visually identical localized names compare equal.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

// NewProduct creates an unapproved product. An empty barcode is replaced by a generated one.
func NewProduct(sellerID int64, sku, name, localizedName, barcode string, sellingPrice, purchasePrice decimal.Decimal) (*Product, error) {
	if sellerID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product must have an owning seller")
	}
	sku = NormalizeSKU(sku)
	if sku == "" || utf8.RuneCountInString(sku) > 64 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "SKU must be 1-64 characters")
	}
	name = NormalizeName(name)
	if name == "" || utf8.RuneCountInString(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Product name must be 1-200 characters")
	}
	localizedName = NormalizeName(localizedName)
	if utf8.RuneCountInString(localizedName) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Localized name cannot exceed 200 characters")
	}
	if err := validatePrices(sellingPrice, purchasePrice); err != nil {
		return nil, err
	}
	if barcode == "" {
		generated, err := NewBarcode()
		if err != nil {
			return nil, err
		}
		barcode = generated
	} else if !IsBarcode(barcode) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Barcode must match BAR-<12 digits>")
	}

	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SellerID:          sellerID,
		Name:              name,
		LocalizedName:     localizedName,
		SKU:               sku,
		Barcode:           barcode,
		SellingPrice:      sellingPrice,
		PurchasePrice:     purchasePrice,
	}, nil
}

func validatePrices(selling, purchase decimal.Decimal) error {
	if selling.IsNegative() || purchase.IsNegative() {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Prices cannot be negative")
	}
	return nil
}

// Approve marks the product as sellable
func (p *Product) Approve() error {
	if p.Approved {
		return shared.NewDomainError(shared.CodeInvalidState, "Product is already approved")
	}
	p.Approved = true
	p.UpdatedAt = time.Now().UTC()
	p.IncrementVersion()
	return nil
}

// UpdatePrices replaces both prices
func (p *Product) UpdatePrices(selling, purchase decimal.Decimal) error {
	if err := validatePrices(selling, purchase); err != nil {
		return err
	}
	p.SellingPrice = selling
	p.PurchasePrice = purchase
	p.UpdatedAt = time.Now().UTC()
	p.IncrementVersion()
	return nil
}

// Rename updates both names
func (p *Product) Rename(name, localizedName string) error {
	name = NormalizeName(name)
	if name == "" {
		return shared.NewDomainError(shared.CodeInvalidInput, "Product name cannot be empty")
	}
	p.Name = name
	p.LocalizedName = NormalizeName(localizedName)
	p.UpdatedAt = time.Now().UTC()
	p.IncrementVersion()
	return nil
}

// IsOwnedBy reports whether the seller owns the product
func (p *Product) IsOwnedBy(sellerID int64) bool {
	return p.SellerID == sellerID
}
