package persistence

import (
	"context"

	"github.com/fulfillcrm/backend/internal/domain/catalog"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id int64) (*catalog.Product, error) {
	var product catalog.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.ErrProductNotFound)
	}
	return &product, nil
}

// FindBySellerAndSKU finds a seller's product by SKU
func (r *GormProductRepository) FindBySellerAndSKU(ctx context.Context, sellerID int64, sku string) (*catalog.Product, error) {
	var product catalog.Product
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND sku = ?", sellerID, catalog.NormalizeSKU(sku)).
		First(&product).Error
	if err != nil {
		return nil, notFound(err, shared.ErrProductNotFound)
	}
	return &product, nil
}

// ExistsBySellerAndSKU checks whether the seller already uses the SKU
func (r *GormProductRepository) ExistsBySellerAndSKU(ctx context.Context, sellerID int64, sku string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&catalog.Product{}).
		Where("seller_id = ? AND sku = ?", sellerID, catalog.NormalizeSKU(sku)).
		Count(&count).Error
	return count > 0, err
}

// FindBySeller lists a seller's products ordered by id
func (r *GormProductRepository) FindBySeller(ctx context.Context, sellerID int64) ([]catalog.Product, error) {
	var products []catalog.Product
	err := r.db.WithContext(ctx).Where("seller_id = ?", sellerID).Order("id").Find(&products).Error
	return products, err
}

// Create inserts a product
func (r *GormProductRepository) Create(ctx context.Context, product *catalog.Product) error {
	return translateError(r.db.WithContext(ctx).Create(product).Error)
}

// Save updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return translateError(r.db.WithContext(ctx).Save(product).Error)
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
