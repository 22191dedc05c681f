package trade

import (
	"context"
	"time"

	financeapp "github.com/fulfillcrm/backend/internal/application/finance"
	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/application/validation"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"github.com/fulfillcrm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ReturnService processes customer returns of delivered orders
type ReturnService struct {
	runner *txn.Runner
	fees   *finance.FeeCalculator
	policy trade.TransitionPolicy
	logger *zap.Logger
	clock  func() time.Time
}

// NewReturnService creates a new ReturnService
func NewReturnService(runner *txn.Runner, fees *finance.FeeCalculator, logger *zap.Logger) *ReturnService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReturnService{
		runner: runner,
		fees:   fees,
		policy: trade.DefaultTransitionPolicy(),
		logger: logger,
		clock:  time.Now,
	}
}

// SetClock overrides the time source
func (s *ReturnService) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

// ProcessReturn restocks the good units of a delivered order, quarantines
// the damaged ones in the DAMAGED bin, moves the order to returned and
// charges the return fee, all in one transaction.
func (s *ReturnService) ProcessReturn(ctx context.Context, req ReturnRequest) (*ReturnResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "returns.process",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, req.OrderID),
		telemetry.WithAttribute(telemetry.SpanAttrActorID, req.Actor.ID()),
	)
	defer span.End()

	res, err := s.process(ctx, req)
	if err != nil {
		telemetry.RecordError(span, err)
		s.runner.Publish(ctx, trade.NewTransitionRejectedEvent(req.OrderID, req.Actor.ID(), trade.WorkflowReturned, err))
		s.logger.Warn("Return rejected",
			zap.Int64("order_id", req.OrderID),
			zap.Int64("actor_id", req.Actor.ID()),
			zap.String("error_kind", shared.ErrorCode(err)),
			zap.Error(err),
		)
		return nil, err
	}
	telemetry.SetAttributes(span,
		telemetry.SpanAttrWarehouseID, res.WarehouseID,
		telemetry.SpanAttrReplayed, res.Replayed,
	)
	telemetry.SetOK(span)
	s.logger.Info("Return processed",
		zap.Int64("order_id", res.Order.ID),
		zap.Int64("good", res.GoodQuantity),
		zap.Int64("damaged", res.DamagedQuantity),
		zap.Int64("warehouse_id", res.WarehouseID),
		zap.Bool("replayed", res.Replayed),
	)
	return res, nil
}

func (s *ReturnService) process(ctx context.Context, req ReturnRequest) (*ReturnResult, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	op := txn.Operation{Name: "returns.process", ActorID: req.Actor.ID(), Key: req.IdempotencyKey}
	res, replayed, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (ReturnResult, error) {
		order, err := tx.Orders().LockByID(ctx, req.OrderID)
		if err != nil {
			return ReturnResult{}, err
		}
		if err := s.policy.Authorize(req.Actor, order, trade.WorkflowReturned); err != nil {
			return ReturnResult{}, err
		}
		if err := trade.EnsureReturnable(order); err != nil {
			return ReturnResult{}, err
		}
		whID, err := returnWarehouse(ctx, tx, order.WarehouseID, req.WarehouseID)
		if err != nil {
			return ReturnResult{}, err
		}
		now := s.clock().UTC()
		event, err := trade.NewReturnEvent(order, whID, req.GoodQuantity, req.DamagedQuantity,
			req.DamageReason, req.Actor.ID(), now)
		if err != nil {
			return ReturnResult{}, err
		}

		ledger := inventory.NewLedger(txn.LedgerStore(tx), inventory.WithClock(s.clock))
		if event.GoodQuantity > 0 {
			m, err := ledger.ReceiveReturn(ctx, inventory.StockRequest{
				ProductID:     order.ProductID,
				WarehouseID:   whID,
				Quantity:      event.GoodQuantity,
				Reference:     order.Code,
				ReferenceKind: inventory.ReferenceOrder,
				Actor:         req.Actor,
				Condition:     inventory.ConditionGood,
				Reason:        "customer return",
			})
			if err != nil {
				return ReturnResult{}, err
			}
			id := m.ID
			event.GoodMovementID = &id
		}
		if event.DamagedQuantity > 0 {
			m, err := ledger.RecordDamage(ctx, inventory.DamageRequest{
				ProductID:     order.ProductID,
				WarehouseID:   whID,
				Quantity:      event.DamagedQuantity,
				Reference:     order.Code,
				ReferenceKind: inventory.ReferenceOrder,
				Reason:        event.DamageReason,
				Actor:         req.Actor,
			})
			if err != nil {
				return ReturnResult{}, err
			}
			id := m.ID
			event.DamageMovementID = &id
		}
		if err := tx.Returns().Create(ctx, event); err != nil {
			return ReturnResult{}, err
		}

		if err := order.TransitionTo(trade.WorkflowReturned, req.Actor.ID(), now); err != nil {
			return ReturnResult{}, err
		}
		if err := tx.Orders().Save(ctx, order); err != nil {
			return ReturnResult{}, err
		}
		fee, err := applyOrderFee(ctx, tx, s.fees, order, finance.FeeEventReturned, req.Actor)
		if err != nil {
			return ReturnResult{}, err
		}

		tx.CollectFrom(order)
		tx.Collect(ledger.Events()...)
		tx.CollectFrom(fee)
		return ReturnResult{
			ReturnID:         event.ID,
			Order:            ToOrderResponse(order),
			WarehouseID:      whID,
			GoodQuantity:     event.GoodQuantity,
			DamagedQuantity:  event.DamagedQuantity,
			GoodMovementID:   event.GoodMovementID,
			DamageMovementID: event.DamageMovementID,
			Fee:              financeapp.ToOrderFeeResponse(fee),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	res.Replayed = replayed
	return &res, nil
}

// ListReturns returns the processed returns of an order
func (s *ReturnService) ListReturns(ctx context.Context, orderID int64) ([]trade.ReturnEvent, error) {
	var out []trade.ReturnEvent
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		if _, err := repos.Orders().FindByID(ctx, orderID); err != nil {
			return err
		}
		events, err := repos.Returns().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		out = events
		return nil
	})
	return out, err
}
