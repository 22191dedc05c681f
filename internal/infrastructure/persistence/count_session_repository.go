package persistence

import (
	"context"

	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormCountSessionRepository implements CountSessionRepository using GORM
type GormCountSessionRepository struct {
	db *gorm.DB
}

// NewGormCountSessionRepository creates a new GormCountSessionRepository
func NewGormCountSessionRepository(db *gorm.DB) *GormCountSessionRepository {
	return &GormCountSessionRepository{db: db}
}

func preloadRecords(db *gorm.DB) *gorm.DB {
	return db.Order("product_id, bin")
}

// FindByID loads a session with its records
func (r *GormCountSessionRepository) FindByID(ctx context.Context, id int64) (*inventory.CountSession, error) {
	var session inventory.CountSession
	err := r.db.WithContext(ctx).
		Preload("Records", preloadRecords).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, shared.ErrSessionNotFound)
	}
	return &session, nil
}

// LockByID loads a session under SELECT ... FOR UPDATE, with its records
func (r *GormCountSessionRepository) LockByID(ctx context.Context, id int64) (*inventory.CountSession, error) {
	var session inventory.CountSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Records", preloadRecords).
		First(&session, "id = ?", id).Error
	if err != nil {
		return nil, notFound(err, shared.ErrSessionNotFound)
	}
	return &session, nil
}

// FindSessionIDByRecord returns the session owning a count record
func (r *GormCountSessionRepository) FindSessionIDByRecord(ctx context.Context, recordID int64) (int64, error) {
	var record inventory.PhysicalCountRecord
	err := r.db.WithContext(ctx).Select("id", "session_id").First(&record, "id = ?", recordID).Error
	if err != nil {
		return 0, notFound(err, shared.ErrRecordNotFound)
	}
	return record.SessionID, nil
}

// FindOpenByWarehouse returns the open sessions of a warehouse, oldest first
func (r *GormCountSessionRepository) FindOpenByWarehouse(ctx context.Context, warehouseID int64) ([]inventory.CountSession, error) {
	var sessions []inventory.CountSession
	err := r.db.WithContext(ctx).
		Where("warehouse_id = ? AND status = ?", warehouseID, inventory.CountSessionOpen).
		Order("id").
		Find(&sessions).Error
	return sessions, err
}

// Create inserts a session together with its expected lines
func (r *GormCountSessionRepository) Create(ctx context.Context, session *inventory.CountSession) error {
	return translateError(r.db.WithContext(ctx).Create(session).Error)
}

// Save updates the session row and upserts its records
func (r *GormCountSessionRepository) Save(ctx context.Context, session *inventory.CountSession) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(session).Error; err != nil {
		return translateError(err)
	}
	for i := range session.Records {
		rec := &session.Records[i]
		rec.SessionID = session.ID
		if err := db.Save(rec).Error; err != nil {
			return translateError(err)
		}
	}
	return nil
}

var _ inventory.CountSessionRepository = (*GormCountSessionRepository)(nil)
