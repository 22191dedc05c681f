package inventory

import (
	"time"

	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
)

// StockRequest is the input of Receive, Ship, Reserve and WriteOff
type StockRequest struct {
	ProductID      int64                   `json:"product_id" validate:"required,gt=0"`
	WarehouseID    int64                   `json:"warehouse_id" validate:"required,gt=0"`
	Quantity       int64                   `json:"quantity"`
	Bin            string                  `json:"bin" validate:"max=64"`
	Reference      string                  `json:"reference" validate:"max=100"`
	ReferenceKind  inventory.ReferenceKind `json:"reference_kind" validate:"omitempty,oneof=sourcing count_session manual"`
	Condition      inventory.Condition     `json:"condition" validate:"omitempty,oneof=good damaged defective missing"`
	Reason         string                  `json:"reason" validate:"max=255"`
	IdempotencyKey string                  `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor          `json:"-" validate:"-"`
}

func (r StockRequest) toDomain() inventory.StockRequest {
	kind := r.ReferenceKind
	if kind == "" {
		kind = inventory.ReferenceManual
	}
	return inventory.StockRequest{
		ProductID:     r.ProductID,
		WarehouseID:   r.WarehouseID,
		Quantity:      r.Quantity,
		Reference:     r.Reference,
		ReferenceKind: kind,
		Actor:         r.Actor,
		Condition:     r.Condition,
		Bin:           r.Bin,
		Reason:        r.Reason,
	}
}

// MovementRequest is the input of Release and Commit
type MovementRequest struct {
	MovementID     int64          `json:"movement_id" validate:"required,gt=0"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// TransferRequest is the input of Transfer
type TransferRequest struct {
	ProductID       int64          `json:"product_id" validate:"required,gt=0"`
	FromWarehouseID int64          `json:"from_warehouse_id" validate:"required,gt=0"`
	ToWarehouseID   int64          `json:"to_warehouse_id" validate:"required,gt=0"`
	Quantity        int64          `json:"quantity"`
	FromBin         string         `json:"from_bin" validate:"max=64"`
	ToBin           string         `json:"to_bin" validate:"max=64"`
	Reference       string         `json:"reference" validate:"max=100"`
	Reason          string         `json:"reason" validate:"max=255"`
	IdempotencyKey  string         `json:"idempotency_key" validate:"max=128"`
	Actor           identity.Actor `json:"-" validate:"-"`
}

// AdjustRequest is the input of Adjust. Delta is signed.
type AdjustRequest struct {
	ProductID      int64          `json:"product_id" validate:"required,gt=0"`
	WarehouseID    int64          `json:"warehouse_id" validate:"required,gt=0"`
	Bin            string         `json:"bin" validate:"max=64"`
	Delta          int64          `json:"delta"`
	Reason         string         `json:"reason" validate:"required,max=255"`
	Reference      string         `json:"reference" validate:"max=100"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// DamageRequest is the input of RecordDamage
type DamageRequest struct {
	ProductID      int64          `json:"product_id" validate:"required,gt=0"`
	WarehouseID    int64          `json:"warehouse_id" validate:"required,gt=0"`
	Quantity       int64          `json:"quantity"`
	FromStock      bool           `json:"from_stock"`
	Reason         string         `json:"reason" validate:"required,max=255"`
	Reference      string         `json:"reference" validate:"max=100"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// MovementResponse represents a ledger movement
type MovementResponse struct {
	ID                     int64                    `json:"id"`
	TrackingNumber         string                   `json:"tracking_number"`
	Kind                   inventory.MovementKind   `json:"kind"`
	Status                 inventory.MovementStatus `json:"status"`
	ProductID              int64                    `json:"product_id"`
	Quantity               int64                    `json:"quantity"`
	SourceWarehouseID      *int64                   `json:"source_warehouse_id,omitempty"`
	DestinationWarehouseID *int64                   `json:"destination_warehouse_id,omitempty"`
	SourceBin              string                   `json:"source_bin,omitempty"`
	DestinationBin         string                   `json:"destination_bin,omitempty"`
	Reference              string                   `json:"reference,omitempty"`
	ReferenceKind          inventory.ReferenceKind  `json:"reference_kind,omitempty"`
	RelatedMovementID      *int64                   `json:"related_movement_id,omitempty"`
	Reason                 string                   `json:"reason,omitempty"`
	Condition              inventory.Condition      `json:"condition,omitempty"`
	CreatedBy              int64                    `json:"created_by"`
	ProcessedBy            *int64                   `json:"processed_by,omitempty"`
	ProcessedAt            *time.Time               `json:"processed_at,omitempty"`
	CreatedAt              time.Time                `json:"created_at"`
}

// ToMovementResponse converts a domain Movement to MovementResponse
func ToMovementResponse(m *inventory.Movement) MovementResponse {
	return MovementResponse{
		ID:                     m.ID,
		TrackingNumber:         m.TrackingNumber,
		Kind:                   m.Kind,
		Status:                 m.Status,
		ProductID:              m.ProductID,
		Quantity:               m.Quantity,
		SourceWarehouseID:      m.SourceWarehouseID,
		DestinationWarehouseID: m.DestinationWarehouseID,
		SourceBin:              m.SourceBin,
		DestinationBin:         m.DestinationBin,
		Reference:              m.Reference,
		ReferenceKind:          m.ReferenceKind,
		RelatedMovementID:      m.RelatedMovementID,
		Reason:                 m.Reason,
		Condition:              m.Condition,
		CreatedBy:              m.CreatedBy,
		ProcessedBy:            m.ProcessedBy,
		ProcessedAt:            m.ProcessedAt,
		CreatedAt:              m.CreatedAt,
	}
}

// RecordResponse represents one balance row
type RecordResponse struct {
	ProductID   int64     `json:"product_id"`
	WarehouseID int64     `json:"warehouse_id"`
	Bin         string    `json:"bin,omitempty"`
	Quantity    int64     `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// OpenSessionRequest is the input of OpenSession
type OpenSessionRequest struct {
	WarehouseID    int64          `json:"warehouse_id" validate:"required,gt=0"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// RecordCountRequest is the input of RecordCount
type RecordCountRequest struct {
	SessionID      int64               `json:"session_id" validate:"required,gt=0"`
	ProductID      int64               `json:"product_id" validate:"required,gt=0"`
	Bin            string              `json:"bin" validate:"max=64"`
	Counted        int64               `json:"counted"`
	Condition      inventory.Condition `json:"condition" validate:"omitempty,oneof=good damaged defective missing"`
	Notes          string              `json:"notes" validate:"max=1000"`
	IdempotencyKey string              `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor      `json:"-" validate:"-"`
}

// SkipLineRequest is the input of SkipLine
type SkipLineRequest struct {
	SessionID      int64          `json:"session_id" validate:"required,gt=0"`
	ProductID      int64          `json:"product_id" validate:"required,gt=0"`
	Bin            string         `json:"bin" validate:"max=64"`
	Reason         string         `json:"reason" validate:"required,max=255"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// CloseSessionRequest is the input of CloseSession
type CloseSessionRequest struct {
	SessionID      int64          `json:"session_id" validate:"required,gt=0"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

// CountRecordResponse represents one line of a count session
type CountRecordResponse struct {
	ID                   int64                `json:"id"`
	SessionID            int64                `json:"session_id"`
	ProductID            int64                `json:"product_id"`
	Bin                  string               `json:"bin,omitempty"`
	SystemQuantity       int64                `json:"system_quantity"`
	CountedQuantity      *int64               `json:"counted_quantity,omitempty"`
	Variance             *int64               `json:"variance,omitempty"`
	Condition            inventory.Condition  `json:"condition,omitempty"`
	Notes                string               `json:"notes,omitempty"`
	Skipped              bool                 `json:"skipped"`
	Resolution           inventory.Resolution `json:"resolution"`
	AdjustmentApplied    bool                 `json:"adjustment_applied"`
	AdjustmentMovementID *int64               `json:"adjustment_movement_id,omitempty"`
	RejectReason         string               `json:"reject_reason,omitempty"`
}

// ToCountRecordResponse converts a domain PhysicalCountRecord
func ToCountRecordResponse(r *inventory.PhysicalCountRecord) CountRecordResponse {
	return CountRecordResponse{
		ID:                   r.ID,
		SessionID:            r.SessionID,
		ProductID:            r.ProductID,
		Bin:                  r.Bin,
		SystemQuantity:       r.SystemQuantity,
		CountedQuantity:      r.CountedQuantity,
		Variance:             r.Variance,
		Condition:            r.Condition,
		Notes:                r.Notes,
		Skipped:              r.Skipped,
		Resolution:           r.Resolution,
		AdjustmentApplied:    r.AdjustmentApplied,
		AdjustmentMovementID: r.AdjustmentMovementID,
		RejectReason:         r.RejectReason,
	}
}

// SessionResponse represents a count session with its lines
type SessionResponse struct {
	ID          int64                        `json:"id"`
	WarehouseID int64                        `json:"warehouse_id"`
	Status      inventory.CountSessionStatus `json:"status"`
	OpenedBy    int64                        `json:"opened_by"`
	OpenedAt    time.Time                    `json:"opened_at"`
	ClosedBy    *int64                       `json:"closed_by,omitempty"`
	ClosedAt    *time.Time                   `json:"closed_at,omitempty"`
	Records     []CountRecordResponse        `json:"records"`
}

// ToSessionResponse converts a domain CountSession
func ToSessionResponse(s *inventory.CountSession) SessionResponse {
	records := make([]CountRecordResponse, len(s.Records))
	for i := range s.Records {
		records[i] = ToCountRecordResponse(&s.Records[i])
	}
	return SessionResponse{
		ID:          s.ID,
		WarehouseID: s.WarehouseID,
		Status:      s.Status,
		OpenedBy:    s.OpenedBy,
		OpenedAt:    s.OpenedAt,
		ClosedBy:    s.ClosedBy,
		ClosedAt:    s.ClosedAt,
		Records:     records,
	}
}

// ResolveVarianceRequest is the input of AcceptVariance and RejectVariance
type ResolveVarianceRequest struct {
	RecordID       int64          `json:"record_id" validate:"required,gt=0"`
	Reason         string         `json:"reason" validate:"max=255"`
	IdempotencyKey string         `json:"idempotency_key" validate:"max=128"`
	Actor          identity.Actor `json:"-" validate:"-"`
}

func (r CountRecordResponse) varianceOrZero() int64 {
	if r.Variance == nil {
		return 0
	}
	return *r.Variance
}
