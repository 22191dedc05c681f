package inventory

import (
	"fmt"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// MovementKind is the kind of stock movement
type MovementKind string

const (
	MovementStockIn    MovementKind = "stock_in"
	MovementStockOut   MovementKind = "stock_out"
	MovementTransfer   MovementKind = "transfer"
	MovementAdjustment MovementKind = "adjustment"
	MovementReturn     MovementKind = "return"
	MovementDamage     MovementKind = "damage"
	MovementExpiry     MovementKind = "expiry"
)

// IsValid checks if the movement kind is valid
func (k MovementKind) IsValid() bool {
	switch k {
	case MovementStockIn, MovementStockOut, MovementTransfer, MovementAdjustment,
		MovementReturn, MovementDamage, MovementExpiry:
		return true
	}
	return false
}

// String returns the string representation
func (k MovementKind) String() string {
	return string(k)
}

// MovementStatus is the processing status of a movement
type MovementStatus string

const (
	MovementPending    MovementStatus = "pending"
	MovementInProgress MovementStatus = "in_progress"
	MovementCompleted  MovementStatus = "completed"
	MovementCancelled  MovementStatus = "cancelled"
)

// IsValid checks if the movement status is valid
func (s MovementStatus) IsValid() bool {
	switch s {
	case MovementPending, MovementInProgress, MovementCompleted, MovementCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a status change is allowed.
// Completed and cancelled movements are frozen.
func (s MovementStatus) CanTransitionTo(target MovementStatus) bool {
	switch s {
	case MovementPending:
		return target == MovementInProgress || target == MovementCompleted || target == MovementCancelled
	case MovementInProgress:
		return target == MovementCompleted || target == MovementCancelled
	}
	return false
}

// ReferenceKind says what a movement's reference points at
type ReferenceKind string

const (
	ReferenceOrder        ReferenceKind = "order"
	ReferenceSourcing     ReferenceKind = "sourcing"
	ReferenceCountSession ReferenceKind = "count_session"
	ReferenceManual       ReferenceKind = "manual"
)

// Condition tags the physical state of the units moved or counted
type Condition string

const (
	ConditionGood      Condition = "good"
	ConditionDamaged   Condition = "damaged"
	ConditionDefective Condition = "defective"
	ConditionMissing   Condition = "missing"
)

// IsValid checks if the condition is valid
func (c Condition) IsValid() bool {
	switch c {
	case ConditionGood, ConditionDamaged, ConditionDefective, ConditionMissing:
		return true
	}
	return false
}

// DamagedBin is the quarantine bin that damaged units are moved into.
// It never counts towards sellable on-hand.
const DamagedBin = "DAMAGED"

// BalanceKey identifies one InventoryRecord. An empty Bin is the
// warehouse-level sellable balance.
type BalanceKey struct {
	ProductID   int64
	WarehouseID int64
	Bin         string
}

// String formats the key for messages
func (k BalanceKey) String() string {
	if k.Bin == "" {
		return fmt.Sprintf("product %d @ warehouse %d", k.ProductID, k.WarehouseID)
	}
	return fmt.Sprintf("product %d @ warehouse %d bin %s", k.ProductID, k.WarehouseID, k.Bin)
}

// Less orders keys by warehouse, then product, then bin
func (k BalanceKey) Less(other BalanceKey) bool {
	if k.WarehouseID != other.WarehouseID {
		return k.WarehouseID < other.WarehouseID
	}
	if k.ProductID != other.ProductID {
		return k.ProductID < other.ProductID
	}
	return k.Bin < other.Bin
}

// Effect is the signed change a movement makes to one balance
type Effect struct {
	Key   BalanceKey
	Delta int64
}

// Movement is one append-only entry of the stock ledger
type Movement struct {
	shared.BaseEntity
	Kind                   MovementKind   `gorm:"type:varchar(20);not null;index" json:"kind"`
	Status                 MovementStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	ProductID              int64          `gorm:"not null;index" json:"product_id"`
	Quantity               int64          `gorm:"not null" json:"quantity"`
	SourceWarehouseID      *int64         `gorm:"index" json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID *int64         `gorm:"index" json:"destination_warehouse_id,omitempty"`
	SourceBin              string         `gorm:"type:varchar(64);not null;default:''" json:"source_bin,omitempty"`
	DestinationBin         string         `gorm:"type:varchar(64);not null;default:''" json:"destination_bin,omitempty"`
	Reference              string         `gorm:"type:varchar(100);index" json:"reference,omitempty"`
	ReferenceKind          ReferenceKind  `gorm:"type:varchar(20)" json:"reference_kind,omitempty"`
	RelatedMovementID      *int64         `gorm:"index" json:"related_movement_id,omitempty"`
	CreatedBy              int64          `gorm:"not null" json:"created_by"`
	ProcessedBy            *int64         `json:"processed_by,omitempty"`
	ProcessedAt            *time.Time     `json:"processed_at,omitempty"`
	Reason                 string         `gorm:"type:varchar(255)" json:"reason,omitempty"`
	Condition              Condition      `gorm:"type:varchar(20)" json:"condition,omitempty"`
	TrackingNumber         string         `gorm:"type:varchar(20);not null;uniqueIndex" json:"tracking_number"`
}

// TableName returns the table name for GORM
func (Movement) TableName() string {
	return "inventory_movements"
}

// MovementSpec describes a movement to create
type MovementSpec struct {
	Kind                   MovementKind
	Status                 MovementStatus
	ProductID              int64
	Quantity               int64
	SourceWarehouseID      *int64
	DestinationWarehouseID *int64
	SourceBin              string
	DestinationBin         string
	Reference              string
	ReferenceKind          ReferenceKind
	RelatedMovementID      *int64
	ActorID                int64
	Reason                 string
	Condition              Condition
}

// NewMovement validates spec and builds a movement with a fresh tracking number.
// A movement created as completed is processed by its creator at creation time.
func NewMovement(spec MovementSpec, now time.Time) (*Movement, error) {
	if spec.Status == "" {
		spec.Status = MovementCompleted
	}
	tracking, err := NewTrackingNumber()
	if err != nil {
		return nil, err
	}
	now = now.UTC()
	m := &Movement{
		BaseEntity:             shared.BaseEntity{CreatedAt: now, UpdatedAt: now},
		Kind:                   spec.Kind,
		Status:                 spec.Status,
		ProductID:              spec.ProductID,
		Quantity:               spec.Quantity,
		SourceWarehouseID:      spec.SourceWarehouseID,
		DestinationWarehouseID: spec.DestinationWarehouseID,
		SourceBin:              spec.SourceBin,
		DestinationBin:         spec.DestinationBin,
		Reference:              spec.Reference,
		ReferenceKind:          spec.ReferenceKind,
		RelatedMovementID:      spec.RelatedMovementID,
		CreatedBy:              spec.ActorID,
		Reason:                 spec.Reason,
		Condition:              spec.Condition,
		TrackingNumber:         tracking,
	}
	if m.Status == MovementCompleted {
		actor := spec.ActorID
		m.ProcessedBy = &actor
		m.ProcessedAt = &now
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the structural invariants of the movement
func (m *Movement) Validate() error {
	if !m.Kind.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown movement kind: "+string(m.Kind))
	}
	if !m.Status.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown movement status: "+string(m.Status))
	}
	if m.ProductID <= 0 {
		return shared.NewDomainError(shared.CodeInvalidInput, "Movement must reference a product")
	}
	if m.Quantity < 1 {
		return shared.NewDomainError(shared.CodeInvalidQuantity, "Movement quantity must be at least 1")
	}
	if m.Condition != "" && !m.Condition.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidInput, "Unknown condition: "+string(m.Condition))
	}
	if !IsTrackingNumber(m.TrackingNumber) {
		return shared.NewDomainError(shared.CodeInvalidInput, "Malformed tracking number")
	}
	src, dst := m.SourceWarehouseID != nil, m.DestinationWarehouseID != nil
	switch m.Kind {
	case MovementStockIn, MovementReturn:
		if !dst || src {
			return shared.NewDomainError(shared.CodeInvalidInput, string(m.Kind)+" requires a destination warehouse only")
		}
	case MovementStockOut, MovementExpiry:
		if !src || dst {
			return shared.NewDomainError(shared.CodeInvalidInput, string(m.Kind)+" requires a source warehouse only")
		}
	case MovementTransfer:
		if !src || !dst {
			return shared.NewDomainError(shared.CodeInvalidInput, "transfer requires source and destination warehouses")
		}
		if *m.SourceWarehouseID == *m.DestinationWarehouseID {
			return shared.NewDomainError(shared.CodeInvalidInput, "transfer source and destination must differ")
		}
	case MovementAdjustment:
		if src == dst {
			return shared.NewDomainError(shared.CodeInvalidInput, "adjustment requires exactly one warehouse")
		}
	case MovementDamage:
		if !dst || m.DestinationBin != DamagedBin {
			return shared.NewDomainError(shared.CodeInvalidInput, "damage must go to the damaged bin of a warehouse")
		}
		if src && *m.SourceWarehouseID != *m.DestinationWarehouseID {
			return shared.NewDomainError(shared.CodeInvalidInput, "damage cannot cross warehouses")
		}
	}
	if m.Status == MovementCompleted && (m.ProcessedBy == nil || m.ProcessedAt == nil) {
		return shared.NewDomainError(shared.CodeInvalidState, "Completed movement must have a processing actor and time")
	}
	return nil
}

// IsApplied reports whether the movement's effects are reflected in balances.
// Every status except pending is applied; a cancelled reservation stays
// applied and its compensating stock_in restores the balance.
func (m *Movement) IsApplied() bool {
	return m.Status != MovementPending
}

// IsReservation reports whether the movement is an open reservation
func (m *Movement) IsReservation() bool {
	return m.Kind == MovementStockOut && m.Status == MovementInProgress
}

// OwnedByOrder reports whether an order's workflow owns the movement
func (m *Movement) OwnedByOrder() bool {
	return m.ReferenceKind == ReferenceOrder
}

// Effects returns the signed balance changes this movement makes
func (m *Movement) Effects() []Effect {
	var effects []Effect
	out := func(wh int64, bin string) {
		effects = append(effects, Effect{Key: BalanceKey{ProductID: m.ProductID, WarehouseID: wh}, Delta: -m.Quantity})
		if bin != "" {
			effects = append(effects, Effect{Key: BalanceKey{ProductID: m.ProductID, WarehouseID: wh, Bin: bin}, Delta: -m.Quantity})
		}
	}
	in := func(wh int64, bin string) {
		effects = append(effects, Effect{Key: BalanceKey{ProductID: m.ProductID, WarehouseID: wh}, Delta: m.Quantity})
		if bin != "" {
			effects = append(effects, Effect{Key: BalanceKey{ProductID: m.ProductID, WarehouseID: wh, Bin: bin}, Delta: m.Quantity})
		}
	}

	switch m.Kind {
	case MovementStockIn, MovementReturn:
		in(*m.DestinationWarehouseID, m.DestinationBin)
	case MovementStockOut, MovementExpiry:
		out(*m.SourceWarehouseID, m.SourceBin)
	case MovementTransfer:
		out(*m.SourceWarehouseID, m.SourceBin)
		in(*m.DestinationWarehouseID, m.DestinationBin)
	case MovementAdjustment:
		if m.DestinationWarehouseID != nil {
			in(*m.DestinationWarehouseID, m.DestinationBin)
		} else {
			out(*m.SourceWarehouseID, m.SourceBin)
		}
	case MovementDamage:
		if m.SourceWarehouseID != nil {
			out(*m.SourceWarehouseID, m.SourceBin)
		}
		effects = append(effects, Effect{
			Key:   BalanceKey{ProductID: m.ProductID, WarehouseID: *m.DestinationWarehouseID, Bin: DamagedBin},
			Delta: m.Quantity,
		})
	}
	return effects
}

// SignedQuantityFor returns the net change to the warehouse-level balance of wh
func (m *Movement) SignedQuantityFor(wh int64) int64 {
	var net int64
	for _, e := range m.Effects() {
		if e.Key.WarehouseID == wh && e.Key.Bin == "" {
			net += e.Delta
		}
	}
	return net
}

// Complete marks the movement processed by actorID
func (m *Movement) Complete(actorID int64, now time.Time) error {
	if !m.Status.CanTransitionTo(MovementCompleted) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Movement %s cannot be completed from %s", m.TrackingNumber, m.Status))
	}
	now = now.UTC()
	m.Status = MovementCompleted
	m.ProcessedBy = &actorID
	m.ProcessedAt = &now
	m.UpdatedAt = now
	return nil
}

// Cancel marks the movement cancelled. Balances are not touched here; the
// caller records a compensating movement.
func (m *Movement) Cancel(actorID int64, now time.Time) error {
	if !m.Status.CanTransitionTo(MovementCancelled) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Movement %s cannot be cancelled from %s", m.TrackingNumber, m.Status))
	}
	now = now.UTC()
	m.Status = MovementCancelled
	m.ProcessedBy = &actorID
	m.ProcessedAt = &now
	m.UpdatedAt = now
	return nil
}

// WarehouseID returns the warehouse the movement primarily acts on:
// the source for outbound kinds, otherwise the destination.
func (m *Movement) WarehouseID() int64 {
	if m.SourceWarehouseID != nil {
		return *m.SourceWarehouseID
	}
	if m.DestinationWarehouseID != nil {
		return *m.DestinationWarehouseID
	}
	return 0
}
