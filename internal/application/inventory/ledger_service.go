package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/application/validation"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const serviceName = "inventory"

// StockMetrics receives insufficient-stock rejections
type StockMetrics interface {
	InsufficientStock(ctx context.Context, operation string)
}

// LedgerService exposes the inventory ledger to callers. Every write runs
// in its own transaction and publishes the ledger's events after commit.
type LedgerService struct {
	runner  *txn.Runner
	logger  *zap.Logger
	metrics StockMetrics
	clock   func() time.Time
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(runner *txn.Runner, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LedgerService{runner: runner, logger: logger, clock: time.Now}
}

// SetMetrics enables insufficient-stock counting
func (s *LedgerService) SetMetrics(m StockMetrics) {
	s.metrics = m
}

// SetClock overrides the time source of the ledger
func (s *LedgerService) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

func (s *LedgerService) ledger(repos txn.Repositories) *inventory.Ledger {
	return inventory.NewLedger(txn.LedgerStore(repos), inventory.WithClock(s.clock))
}

type ledgerWrite func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error)

// write runs one ledger operation under a span and an idempotency key
func (s *LedgerService) write(ctx context.Context, method string, actor identity.Actor, key string, fn ledgerWrite) (*MovementResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, serviceName, method,
		telemetry.WithAttribute(telemetry.SpanAttrActorID, actor.ID()))
	defer span.End()

	if !actor.Can(identity.RoleStockKeeper) {
		err := shared.NewDomainError(shared.CodeNotAuthorized, "Only a stock keeper can change inventory")
		telemetry.RecordError(span, err)
		return nil, err
	}

	op := txn.Operation{Name: serviceName + "." + method, ActorID: actor.ID(), Key: key}
	resp, replayed, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (MovementResponse, error) {
		l := s.ledger(tx)
		m, err := fn(ctx, l)
		if err != nil {
			return MovementResponse{}, err
		}
		tx.Collect(l.Events()...)
		return ToMovementResponse(m), nil
	})
	if err != nil {
		s.fail(ctx, span, method, err)
		return nil, err
	}

	telemetry.SetAttributes(span,
		telemetry.SpanAttrProductID, resp.ProductID,
		telemetry.SpanAttrQuantity, resp.Quantity,
		telemetry.SpanAttrReplayed, replayed,
	)
	telemetry.SetOK(span)
	s.logger.Info("Inventory movement recorded",
		zap.String("operation", method),
		zap.Int64("movement_id", resp.ID),
		zap.String("kind", string(resp.Kind)),
		zap.String("status", string(resp.Status)),
		zap.Int64("product_id", resp.ProductID),
		zap.Int64("quantity", resp.Quantity),
		zap.Bool("replayed", replayed),
	)
	return &resp, nil
}

func (s *LedgerService) fail(ctx context.Context, span trace.Span, method string, err error) {
	telemetry.RecordError(span, err)
	if errors.Is(err, shared.ErrInsufficientStock) && s.metrics != nil {
		s.metrics.InsufficientStock(ctx, method)
	}
	s.logger.Warn("Inventory operation rejected",
		zap.String("operation", method),
		zap.String("code", shared.ErrorCode(err)),
		zap.Error(err),
	)
}

// Receive records units arriving at a warehouse
func (s *LedgerService) Receive(ctx context.Context, req StockRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "receive", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		return l.Receive(ctx, req.toDomain())
	})
}

// Ship records units leaving a warehouse immediately
func (s *LedgerService) Ship(ctx context.Context, req StockRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "ship", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		return l.Ship(ctx, req.toDomain())
	})
}

// Reserve takes units out of on-hand behind an in-progress movement
func (s *LedgerService) Reserve(ctx context.Context, req StockRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "reserve", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		return l.Reserve(ctx, req.toDomain())
	})
}

// WriteOff removes expired units. A reason is required.
func (s *LedgerService) WriteOff(ctx context.Context, req StockRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "write_off", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		return l.WriteOff(ctx, req.toDomain())
	})
}

// Release cancels a reservation and returns its units to on-hand.
// Reservations of orders are refused; cancelling the order releases them.
func (s *LedgerService) Release(ctx context.Context, req MovementRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "release", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		if err := l.EnsureUnowned(ctx, req.MovementID); err != nil {
			return nil, err
		}
		return l.Release(ctx, req.MovementID, req.Actor)
	})
}

// Commit finalizes a reservation. Reservations of orders are refused;
// packaging the order commits them.
func (s *LedgerService) Commit(ctx context.Context, req MovementRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "commit", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		if err := l.EnsureUnowned(ctx, req.MovementID); err != nil {
			return nil, err
		}
		return l.Commit(ctx, req.MovementID, req.Actor)
	})
}

// Transfer moves units between warehouses or bins in one movement
func (s *LedgerService) Transfer(ctx context.Context, req TransferRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "transfer", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		return l.Transfer(ctx, inventory.TransferRequest{
			ProductID:       req.ProductID,
			FromWarehouseID: req.FromWarehouseID,
			ToWarehouseID:   req.ToWarehouseID,
			Quantity:        req.Quantity,
			Reference:       req.Reference,
			ReferenceKind:   inventory.ReferenceManual,
			Actor:           req.Actor,
			FromBin:         req.FromBin,
			ToBin:           req.ToBin,
			Reason:          req.Reason,
		})
	})
}

// Adjust corrects a balance by a signed delta
func (s *LedgerService) Adjust(ctx context.Context, req AdjustRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "adjust", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		return l.Adjust(ctx, inventory.AdjustRequest{
			ProductID:     req.ProductID,
			WarehouseID:   req.WarehouseID,
			Bin:           req.Bin,
			Delta:         req.Delta,
			Reason:        req.Reason,
			Reference:     req.Reference,
			ReferenceKind: inventory.ReferenceManual,
			Actor:         req.Actor,
		})
	})
}

// RecordDamage quarantines damaged units in the DAMAGED bin
func (s *LedgerService) RecordDamage(ctx context.Context, req DamageRequest) (*MovementResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return s.write(ctx, "record_damage", req.Actor, req.IdempotencyKey, func(ctx context.Context, l *inventory.Ledger) (*inventory.Movement, error) {
		return l.RecordDamage(ctx, inventory.DamageRequest{
			ProductID:     req.ProductID,
			WarehouseID:   req.WarehouseID,
			Quantity:      req.Quantity,
			Reference:     req.Reference,
			ReferenceKind: inventory.ReferenceManual,
			Reason:        req.Reason,
			Actor:         req.Actor,
			FromStock:     req.FromStock,
		})
	})
}

// Balance returns the quantity held under a key; missing records read as zero
func (s *LedgerService) Balance(ctx context.Context, productID, warehouseID int64, bin string) (int64, error) {
	var qty int64
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		var err error
		qty, err = s.ledger(repos).Balance(ctx, inventory.BalanceKey{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Bin:         bin,
		})
		return err
	})
	return qty, err
}

// WarehouseStock lists every balance row of a warehouse
func (s *LedgerService) WarehouseStock(ctx context.Context, warehouseID int64) ([]RecordResponse, error) {
	var out []RecordResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		if _, err := repos.Warehouses().FindByID(ctx, warehouseID); err != nil {
			return err
		}
		records, err := repos.Records().FindByWarehouse(ctx, warehouseID)
		if err != nil {
			return err
		}
		out = make([]RecordResponse, len(records))
		for i, r := range records {
			out[i] = RecordResponse{
				ProductID:   r.ProductID,
				WarehouseID: r.WarehouseID,
				Bin:         r.Bin,
				Quantity:    r.Quantity,
				UpdatedAt:   r.UpdatedAt,
			}
		}
		return nil
	})
	return out, err
}

// GetMovement retrieves a movement by ID
func (s *LedgerService) GetMovement(ctx context.Context, movementID int64) (*MovementResponse, error) {
	var resp MovementResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		m, err := repos.Movements().FindByID(ctx, movementID)
		if err != nil {
			return err
		}
		resp = ToMovementResponse(m)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListMovements returns movements matching filter, newest first
func (s *LedgerService) ListMovements(ctx context.Context, filter inventory.MovementFilter) ([]MovementResponse, error) {
	if filter.From != nil && filter.To != nil && filter.To.Before(*filter.From) {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, "Movement filter range ends before it starts")
	}
	var out []MovementResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		movements, err := repos.Movements().List(ctx, filter)
		if err != nil {
			return err
		}
		out = make([]MovementResponse, len(movements))
		for i := range movements {
			out[i] = ToMovementResponse(&movements[i])
		}
		return nil
	})
	return out, err
}
