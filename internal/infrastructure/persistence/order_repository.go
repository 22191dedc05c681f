package persistence

import (
	"context"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultOrderLimit = 200

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order by its ID
func (r *GormOrderRepository) FindByID(ctx context.Context, id int64) (*trade.Order, error) {
	var order trade.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, notFound(err, shared.ErrOrderNotFound)
	}
	return &order, nil
}

// LockByID loads an order with SELECT ... FOR UPDATE NOWAIT. A competing
// transition holding the row fails this call with ORDER_LOCKED instead of queueing.
func (r *GormOrderRepository) LockByID(ctx context.Context, id int64) (*trade.Order, error) {
	var order trade.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "NOWAIT"}).
		First(&order, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, shared.ErrOrderNotFound)
	}
	return &order, nil
}

// FindByCode finds an order by its human code
func (r *GormOrderRepository) FindByCode(ctx context.Context, code string) (*trade.Order, error) {
	var order trade.Order
	if err := r.db.WithContext(ctx).First(&order, "code = ?", code).Error; err != nil {
		return nil, notFound(err, shared.ErrOrderNotFound)
	}
	return &order, nil
}

// ExistsByCode checks if an order code is taken
func (r *GormOrderRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&trade.Order{}).Where("code = ?", code).Count(&count).Error
	return count > 0, err
}

// List returns orders matching the filter ordered by id
func (r *GormOrderRepository) List(ctx context.Context, filter trade.OrderFilter) ([]trade.Order, error) {
	query := r.db.WithContext(ctx).Model(&trade.Order{})
	if filter.SellerID != nil {
		query = query.Where("seller_id = ?", *filter.SellerID)
	}
	if filter.AgentID != nil {
		query = query.Where("agent_id = ?", *filter.AgentID)
	}
	if len(filter.WorkflowStatus) > 0 {
		query = query.Where("workflow_status IN ?", filter.WorkflowStatus)
	}
	if filter.Escalated != nil {
		query = query.Where("escalated = ?", *filter.Escalated)
	}
	limit := filter.Limit
	if limit <= 0 || limit > defaultOrderLimit {
		limit = defaultOrderLimit
	}

	var orders []trade.Order
	err := query.Order("id").Limit(limit).Find(&orders).Error
	return orders, err
}

// AgentQueue returns the agent's call-center orders that are not escalated, oldest first
func (r *GormOrderRepository) AgentQueue(ctx context.Context, agentID int64) ([]trade.Order, error) {
	var orders []trade.Order
	err := r.db.WithContext(ctx).
		Where("agent_id = ? AND escalated = ? AND workflow_status IN ?", agentID, false,
			[]trade.WorkflowStatus{trade.WorkflowSellerSubmitted, trade.WorkflowCallCenterReview}).
		Order("created_at, id").
		Find(&orders).Error
	return orders, err
}

// EscalatedQueue returns non-terminal escalated orders, oldest escalation first
func (r *GormOrderRepository) EscalatedQueue(ctx context.Context) ([]trade.Order, error) {
	var orders []trade.Order
	err := r.db.WithContext(ctx).
		Where("escalated = ? AND workflow_status NOT IN ?", true,
			[]trade.WorkflowStatus{trade.WorkflowDeliveryCompleted, trade.WorkflowReturned, trade.WorkflowCancelled}).
		Order("escalated_at, id").
		Find(&orders).Error
	return orders, err
}

// Create inserts an order
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	return translateError(r.db.WithContext(ctx).Create(order).Error)
}

// Save updates an order
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	return translateError(r.db.WithContext(ctx).Save(order).Error)
}

var _ trade.OrderRepository = (*GormOrderRepository)(nil)
