package catalog

import (
	"strings"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// Warehouse hosts inventory records. Only active warehouses accept new stock movements.
type Warehouse struct {
	shared.BaseAggregateRoot
	Name     string `gorm:"type:varchar(200);not null;uniqueIndex" json:"name"`
	Location string `gorm:"type:varchar(255)" json:"location,omitempty"`
	Active   bool   `gorm:"not null" json:"active"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates an active warehouse
func NewWarehouse(name, location string) (*Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Warehouse name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Warehouse name cannot exceed 200 characters")
	}
	return &Warehouse{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Location:          strings.TrimSpace(location),
		Active:            true,
	}, nil
}

// Activate enables the warehouse
func (w *Warehouse) Activate() error {
	if w.Active {
		return shared.NewDomainError(shared.CodeInvalidState, "Warehouse is already active")
	}
	w.Active = true
	w.UpdatedAt = time.Now().UTC()
	w.IncrementVersion()
	return nil
}

// Deactivate disables the warehouse
func (w *Warehouse) Deactivate() error {
	if !w.Active {
		return shared.NewDomainError(shared.CodeInvalidState, "Warehouse is already inactive")
	}
	w.Active = false
	w.UpdatedAt = time.Now().UTC()
	w.IncrementVersion()
	return nil
}

// EnsureActive returns ErrWarehouseInactive for an inactive warehouse
func (w *Warehouse) EnsureActive() error {
	if !w.Active {
		return shared.NewDomainError(shared.CodeWarehouseInactive, "Warehouse "+w.Name+" is not active")
	}
	return nil
}
