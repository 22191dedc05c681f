package inventory

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// CountSessionStatus is the status of a cycle-count session
type CountSessionStatus string

const (
	CountSessionOpen   CountSessionStatus = "open"
	CountSessionClosed CountSessionStatus = "closed"
)

// Resolution is the outcome of a count record's variance
type Resolution string

const (
	ResolutionPending  Resolution = "pending"
	ResolutionAccepted Resolution = "accepted"
	ResolutionRejected Resolution = "rejected"
)

// CountSession is a batch of physical counts at one warehouse. It locks no stock.
type CountSession struct {
	shared.BaseAggregateRoot
	WarehouseID int64                 `gorm:"not null;index" json:"warehouse_id"`
	Status      CountSessionStatus    `gorm:"type:varchar(20);not null;default:'open'" json:"status"`
	OpenedBy    int64                 `gorm:"not null" json:"opened_by"`
	OpenedAt    time.Time             `gorm:"not null" json:"opened_at"`
	ClosedBy    *int64                `json:"closed_by,omitempty"`
	ClosedAt    *time.Time            `json:"closed_at,omitempty"`
	Records     []PhysicalCountRecord `gorm:"foreignKey:SessionID;references:ID" json:"records"`
}

// TableName returns the table name for GORM
func (CountSession) TableName() string {
	return "count_sessions"
}

// PhysicalCountRecord is one counted (or expected) line of a session.
// CountedQuantity and Variance stay nil until the line is counted.
type PhysicalCountRecord struct {
	shared.BaseEntity
	SessionID            int64      `gorm:"not null;uniqueIndex:idx_count_record_line,priority:1" json:"session_id"`
	ProductID            int64      `gorm:"not null;uniqueIndex:idx_count_record_line,priority:2" json:"product_id"`
	Bin                  string     `gorm:"type:varchar(64);not null;default:'';uniqueIndex:idx_count_record_line,priority:3" json:"bin,omitempty"`
	SystemQuantity       int64      `gorm:"not null;default:0" json:"system_quantity"`
	CountedQuantity      *int64     `json:"counted_quantity,omitempty"`
	Variance             *int64     `json:"variance,omitempty"`
	Condition            Condition  `gorm:"type:varchar(20)" json:"condition,omitempty"`
	Notes                string     `gorm:"type:text" json:"notes,omitempty"`
	Skipped              bool       `gorm:"not null;default:false" json:"skipped"`
	Resolution           Resolution `gorm:"type:varchar(20);not null;default:'pending'" json:"resolution"`
	AdjustmentApplied    bool       `gorm:"not null;default:false" json:"adjustment_applied"`
	AdjustmentMovementID *int64     `json:"adjustment_movement_id,omitempty"`
	RejectReason         string     `gorm:"type:varchar(255)" json:"reject_reason,omitempty"`
	RecordedBy           *int64     `json:"recorded_by,omitempty"`
	RecordedAt           *time.Time `json:"recorded_at,omitempty"`
	ResolvedBy           *int64     `json:"resolved_by,omitempty"`
	ResolvedAt           *time.Time `json:"resolved_at,omitempty"`
}

// TableName returns the table name for GORM
func (PhysicalCountRecord) TableName() string {
	return "physical_count_records"
}

// CountLine identifies an expected line of a session
type CountLine struct {
	ProductID int64
	Bin       string
}

// binTotals sums the records of one warehouse per product: the
// warehouse-level quantity and the quantity held in sellable bins
type binTotals struct {
	total, binned int64
	hasBins       bool
}

func totalsByProduct(records []InventoryRecord) map[int64]*binTotals {
	out := make(map[int64]*binTotals)
	for _, r := range records {
		t, ok := out[r.ProductID]
		if !ok {
			t = &binTotals{}
			out[r.ProductID] = t
		}
		switch r.Bin {
		case "":
			t.total = r.Quantity
		case DamagedBin:
		default:
			t.binned += r.Quantity
			t.hasBins = true
		}
	}
	return out
}

// unbinned is the warehouse-level quantity not held in any sellable bin
func (t *binTotals) unbinned() int64 {
	return t.total - t.binned
}

// CountLines derives the expected lines of a count from the records of one
// warehouse. Every sellable bin is its own line. The warehouse-level row
// already includes binned units, so its line stands for the unbinned
// remainder and is expected only when the product has no bins or some of
// its units sit outside them. The DAMAGED quarantine is never counted.
func CountLines(records []InventoryRecord) []CountLine {
	totals := totalsByProduct(records)
	var lines []CountLine
	for _, r := range records {
		switch r.Bin {
		case DamagedBin:
			continue
		case "":
			t := totals[r.ProductID]
			if t.hasBins && t.unbinned() == 0 {
				continue
			}
		}
		lines = append(lines, CountLine{ProductID: r.ProductID, Bin: r.Bin})
	}
	return lines
}

// NewCountSession opens a session with one uncounted record per expected line
func NewCountSession(warehouseID, openedBy int64, lines []CountLine, now time.Time) (*CountSession, error) {
	if warehouseID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Count session requires a warehouse")
	}
	now = now.UTC()
	s := &CountSession{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		Status:            CountSessionOpen,
		OpenedBy:          openedBy,
		OpenedAt:          now,
	}
	seen := make(map[CountLine]bool, len(lines))
	for _, l := range lines {
		l.Bin = normalizeBin(l.Bin)
		if seen[l] {
			continue
		}
		seen[l] = true
		s.Records = append(s.Records, PhysicalCountRecord{
			BaseEntity: shared.BaseEntity{CreatedAt: now, UpdatedAt: now},
			ProductID:  l.ProductID,
			Bin:        l.Bin,
			Resolution: ResolutionPending,
		})
	}
	return s, nil
}

func normalizeBin(bin string) string {
	return strings.ToUpper(strings.TrimSpace(bin))
}

// IsOpen reports whether the session accepts counts
func (s *CountSession) IsOpen() bool {
	return s.Status == CountSessionOpen
}

// EnsureOpen returns INVALID_STATE for a closed session
func (s *CountSession) EnsureOpen() error {
	if !s.IsOpen() {
		return shared.NewDomainError(shared.CodeInvalidState, fmt.Sprintf("Count session %d is closed", s.ID))
	}
	return nil
}

func (s *CountSession) line(productID int64, bin string) *PhysicalCountRecord {
	for i := range s.Records {
		if s.Records[i].ProductID == productID && s.Records[i].Bin == bin {
			return &s.Records[i]
		}
	}
	return nil
}

// FindRecord returns the record with the given id
func (s *CountSession) FindRecord(recordID int64) (*PhysicalCountRecord, error) {
	for i := range s.Records {
		if s.Records[i].ID == recordID {
			return &s.Records[i], nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeRecordNotFound, fmt.Sprintf("Count record %d not found in session %d", recordID, s.ID))
}

// Record stores a count for (product, bin). Re-recording the same line
// overwrites the count, condition and notes and takes a fresh system snapshot.
func (s *CountSession) Record(productID int64, bin string, systemQty, counted int64, condition Condition, notes string, actorID int64, now time.Time) (*PhysicalCountRecord, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	if productID <= 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Count requires a product")
	}
	if counted < 0 {
		return nil, shared.NewDomainError(shared.CodeInvalidQuantity, "Counted quantity cannot be negative")
	}
	if condition == "" {
		condition = ConditionGood
	}
	if !condition.IsValid() {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Unknown condition: "+string(condition))
	}

	now = now.UTC()
	bin = normalizeBin(bin)
	rec := s.line(productID, bin)
	if rec == nil {
		s.Records = append(s.Records, PhysicalCountRecord{
			BaseEntity: shared.BaseEntity{CreatedAt: now},
			SessionID:  s.ID,
			ProductID:  productID,
			Bin:        bin,
		})
		rec = &s.Records[len(s.Records)-1]
	}
	if rec.Resolution == ResolutionAccepted {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Variance for this line was already applied")
	}

	variance := counted - systemQty
	rec.SystemQuantity = systemQty
	rec.CountedQuantity = &counted
	rec.Variance = &variance
	rec.Condition = condition
	rec.Notes = strings.TrimSpace(notes)
	rec.Skipped = false
	rec.Resolution = ResolutionPending
	rec.RejectReason = ""
	rec.ResolvedBy = nil
	rec.ResolvedAt = nil
	rec.RecordedBy = &actorID
	rec.RecordedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

// Skip marks an uncounted line as deliberately not counted
func (s *CountSession) Skip(productID int64, bin, reason string, actorID int64, now time.Time) (*PhysicalCountRecord, error) {
	if err := s.EnsureOpen(); err != nil {
		return nil, err
	}
	bin = normalizeBin(bin)
	rec := s.line(productID, bin)
	if rec == nil {
		return nil, shared.NewDomainError(shared.CodeRecordNotFound, "Line is not part of this session")
	}
	if rec.IsCounted() {
		return nil, shared.NewDomainError(shared.CodeInvalidState, "Counted lines cannot be skipped")
	}
	now = now.UTC()
	rec.Skipped = true
	rec.Resolution = ResolutionRejected
	rec.RejectReason = strings.TrimSpace(reason)
	rec.ResolvedBy = &actorID
	rec.ResolvedAt = &now
	rec.UpdatedAt = now
	return rec, nil
}

// PendingVariances returns counted, unresolved records ordered by product then bin.
// Every record of a session shares the warehouse, so this is the global lock order.
func (s *CountSession) PendingVariances() []*PhysicalCountRecord {
	var out []*PhysicalCountRecord
	for i := range s.Records {
		r := &s.Records[i]
		if r.IsCounted() && r.Resolution == ResolutionPending {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a := BalanceKey{ProductID: out[i].ProductID, WarehouseID: s.WarehouseID, Bin: out[i].Bin}
		b := BalanceKey{ProductID: out[j].ProductID, WarehouseID: s.WarehouseID, Bin: out[j].Bin}
		return a.Less(b)
	})
	return out
}

// Close closes the session. Every line must be counted or skipped, and
// every non-zero variance must be accepted or rejected first. Pending
// zero-variance records are accepted without a movement.
func (s *CountSession) Close(actorID int64, now time.Time) error {
	if err := s.EnsureOpen(); err != nil {
		return err
	}
	var uncounted, unresolved int
	for i := range s.Records {
		r := &s.Records[i]
		if !r.IsCounted() && !r.Skipped {
			uncounted++
			continue
		}
		if r.Resolution == ResolutionPending && r.VarianceValue() != 0 {
			unresolved++
		}
	}
	if uncounted > 0 {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Count session has %d line(s) neither counted nor skipped", uncounted))
	}
	if unresolved > 0 {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Count session has %d unresolved variance(s)", unresolved))
	}

	now = now.UTC()
	for i := range s.Records {
		r := &s.Records[i]
		if r.Resolution == ResolutionPending {
			if err := r.Accept(nil, actorID, now); err != nil {
				return err
			}
		}
	}
	s.Status = CountSessionClosed
	s.ClosedBy = &actorID
	s.ClosedAt = &now
	s.UpdatedAt = now
	s.IncrementVersion()
	s.AddDomainEvent(NewCountSessionClosedEvent(s))
	return nil
}

// IsCounted reports whether a count was recorded
func (r *PhysicalCountRecord) IsCounted() bool {
	return r.CountedQuantity != nil
}

// VarianceValue returns the variance, or 0 when uncounted
func (r *PhysicalCountRecord) VarianceValue() int64 {
	if r.Variance == nil {
		return 0
	}
	return *r.Variance
}

func (r *PhysicalCountRecord) ensureResolvable() error {
	if !r.IsCounted() {
		return shared.NewDomainError(shared.CodeInvalidState, "Line has not been counted")
	}
	if r.Resolution != ResolutionPending {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Count record %d is already %s", r.ID, r.Resolution))
	}
	return nil
}

// Accept marks the variance applied. movementID is nil for zero variance.
func (r *PhysicalCountRecord) Accept(movementID *int64, actorID int64, now time.Time) error {
	if err := r.ensureResolvable(); err != nil {
		return err
	}
	if r.VarianceValue() != 0 && movementID == nil {
		return shared.NewDomainError(shared.CodeInvalidState, "Non-zero variance requires an adjustment movement")
	}
	now = now.UTC()
	r.Resolution = ResolutionAccepted
	r.AdjustmentApplied = true
	r.AdjustmentMovementID = movementID
	r.ResolvedBy = &actorID
	r.ResolvedAt = &now
	r.UpdatedAt = now
	return nil
}

// Reject leaves the balance untouched and records why
func (r *PhysicalCountRecord) Reject(reason string, actorID int64, now time.Time) error {
	if err := r.ensureResolvable(); err != nil {
		return err
	}
	now = now.UTC()
	r.Resolution = ResolutionRejected
	r.AdjustmentApplied = false
	r.RejectReason = strings.TrimSpace(reason)
	r.ResolvedBy = &actorID
	r.ResolvedAt = &now
	r.UpdatedAt = now
	return nil
}

// AdjustmentReason is the ledger reason used when accepting a variance
func AdjustmentReason(sessionID int64) string {
	return fmt.Sprintf("cycle count %d", sessionID)
}
