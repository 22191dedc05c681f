package trade

import (
	"context"
	"errors"
	"fmt"
	"time"

	financeapp "github.com/fulfillcrm/backend/internal/application/finance"
	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/application/validation"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"github.com/fulfillcrm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// TransitionMetrics receives the outcome of every transition attempt
type TransitionMetrics interface {
	ObserveTransition(ctx context.Context, from, to, result string, elapsed time.Duration)
}

// WorkflowEngine moves orders through their lifecycle. Each transition
// locks the order, checks legality and authorization, runs its inventory
// and fee side effects and saves the order in one transaction.
type WorkflowEngine struct {
	runner  *txn.Runner
	fees    *finance.FeeCalculator
	policy  trade.TransitionPolicy
	logger  *zap.Logger
	metrics TransitionMetrics
	clock   func() time.Time
}

// NewWorkflowEngine creates a new WorkflowEngine
func NewWorkflowEngine(runner *txn.Runner, fees *finance.FeeCalculator, logger *zap.Logger) *WorkflowEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkflowEngine{
		runner: runner,
		fees:   fees,
		policy: trade.DefaultTransitionPolicy(),
		logger: logger,
		clock:  time.Now,
	}
}

// SetMetrics enables transition metrics
func (e *WorkflowEngine) SetMetrics(m TransitionMetrics) {
	e.metrics = m
}

// SetClock overrides the time source
func (e *WorkflowEngine) SetClock(clock func() time.Time) {
	if clock != nil {
		e.clock = clock
	}
}

func (e *WorkflowEngine) now() time.Time {
	return e.clock().UTC()
}

// TransitionOrder moves an order one step to req.Target. The order is
// untouched when any step fails, and a TransitionRejected audit event is
// published with the error kind.
func (e *WorkflowEngine) TransitionOrder(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	started := time.Now()
	target := trade.WorkflowStatus(req.Target)
	ctx, span := telemetry.StartSpan(ctx, "workflow.transition",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, req.OrderID),
		telemetry.WithAttribute(telemetry.SpanAttrTarget, req.Target),
		telemetry.WithAttribute(telemetry.SpanAttrActorID, req.Actor.ID()),
	)
	defer span.End()

	var from trade.WorkflowStatus
	fail := func(err error) (*TransitionResult, error) {
		telemetry.RecordError(span, err)
		e.observe(ctx, from, target, shared.ErrorCode(err), started)
		e.runner.Publish(ctx, trade.NewTransitionRejectedEvent(req.OrderID, req.Actor.ID(), target, err))
		e.logger.Warn("Order transition rejected",
			zap.Int64("order_id", req.OrderID),
			zap.String("from", string(from)),
			zap.String("target", req.Target),
			zap.Int64("actor_id", req.Actor.ID()),
			zap.String("error_kind", shared.ErrorCode(err)),
			zap.Error(err),
		)
		return nil, err
	}

	if err := validation.Struct(req); err != nil {
		return fail(err)
	}
	if !target.IsValid() {
		return fail(shared.NewDomainError(shared.CodeIllegalTransition,
			fmt.Sprintf("Unknown workflow status %q", req.Target)))
	}

	op := txn.Operation{Name: "workflow.transition", ActorID: req.Actor.ID(), Key: req.IdempotencyKey}
	res, replayed, err := txn.Run(ctx, e.runner, op, func(tx *txn.Tx) (TransitionResult, error) {
		order, err := tx.Orders().LockByID(ctx, req.OrderID)
		if err != nil {
			return TransitionResult{}, err
		}
		from = order.WorkflowStatus
		return e.transition(ctx, tx, order, target, req)
	})
	if err != nil {
		return fail(err)
	}
	res.Replayed = replayed

	telemetry.SetAttributes(span, telemetry.SpanAttrReplayed, replayed)
	telemetry.SetOK(span)
	if !replayed {
		e.observe(ctx, res.From, res.To, telemetry.ResultOK, started)
	}
	e.logger.Info("Order transitioned",
		zap.Int64("order_id", res.Order.ID),
		zap.String("code", res.Order.Code),
		zap.String("from", string(res.From)),
		zap.String("to", string(res.To)),
		zap.Int64("actor_id", req.Actor.ID()),
		zap.Bool("replayed", replayed),
	)
	return &res, nil
}

func (e *WorkflowEngine) transition(ctx context.Context, tx *txn.Tx, order *trade.Order, target trade.WorkflowStatus, req TransitionRequest) (TransitionResult, error) {
	from := order.WorkflowStatus
	if target == trade.WorkflowReturned {
		return TransitionResult{}, shared.NewDomainError(shared.CodeIllegalTransition,
			"Orders reach returned only through return processing")
	}
	if !from.CanTransitionTo(target) {
		return TransitionResult{}, shared.NewDomainError(shared.CodeIllegalTransition,
			fmt.Sprintf("Cannot move order %s from %s to %s", order.Code, from, target))
	}
	if err := e.policy.Authorize(req.Actor, order, target); err != nil {
		return TransitionResult{}, err
	}

	ledger := inventory.NewLedger(txn.LedgerStore(tx), inventory.WithClock(e.clock))
	var (
		movements []*inventory.Movement
		fee       *finance.OrderFee
	)
	switch target {
	case trade.WorkflowStockKeeperApproved:
		m, err := e.reserve(ctx, tx, ledger, order, req)
		if err != nil {
			return TransitionResult{}, err
		}
		movements = append(movements, m)

	case trade.WorkflowPackagingCompleted:
		if order.ReservationMovementID == nil {
			return TransitionResult{}, shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Order %s has no reservation to commit", order.Code))
		}
		m, err := ledger.Commit(ctx, *order.ReservationMovementID, req.Actor)
		if err != nil {
			return TransitionResult{}, err
		}
		movements = append(movements, m)

	case trade.WorkflowDeliveryCompleted:
		f, err := applyOrderFee(ctx, tx, e.fees, order, finance.FeeEventDelivered, req.Actor)
		if err != nil {
			return TransitionResult{}, err
		}
		fee = f

	case trade.WorkflowCancelled:
		if from.HoldsStock() && order.ReservationMovementID != nil {
			reason := req.Reason
			if reason == "" {
				reason = "cancellation of order " + order.Code
			}
			m, err := ledger.Compensate(ctx, *order.ReservationMovementID, req.Actor, reason)
			if err != nil {
				return TransitionResult{}, err
			}
			movements = append(movements, m)
		}
		f, err := applyOrderFee(ctx, tx, e.fees, order, finance.FeeEventCancelled, req.Actor)
		if err != nil {
			return TransitionResult{}, err
		}
		fee = f
	}

	if err := order.TransitionTo(target, req.Actor.ID(), e.now()); err != nil {
		return TransitionResult{}, err
	}
	if err := tx.Orders().Save(ctx, order); err != nil {
		return TransitionResult{}, err
	}
	tx.CollectFrom(order)
	tx.Collect(ledger.Events()...)

	res := TransitionResult{
		Order: ToOrderResponse(order),
		From:  from,
		To:    target,
	}
	for _, m := range movements {
		res.Movements = append(res.Movements, movementRef(m))
	}
	if fee != nil {
		tx.CollectFrom(fee)
		resp := financeapp.ToOrderFeeResponse(fee)
		res.Fee = &resp
	}
	return res, nil
}

func (e *WorkflowEngine) reserve(ctx context.Context, tx *txn.Tx, ledger *inventory.Ledger, order *trade.Order, req TransitionRequest) (*inventory.Movement, error) {
	whID, err := selectWarehouse(ctx, tx, order.ProductID, order.Quantity, req.WarehouseID)
	if err != nil {
		return nil, err
	}
	m, err := ledger.Reserve(ctx, inventory.StockRequest{
		ProductID:     order.ProductID,
		WarehouseID:   whID,
		Quantity:      order.Quantity,
		Reference:     order.Code,
		ReferenceKind: inventory.ReferenceOrder,
		Actor:         req.Actor,
	})
	if err != nil {
		return nil, err
	}
	order.MarkReserved(whID, m.ID)
	return m, nil
}

// applyOrderFee locks the order's fee record and applies a lifecycle fee event to it
func applyOrderFee(ctx context.Context, tx *txn.Tx, calc *finance.FeeCalculator, order *trade.Order, kind finance.FeeEventKind, actor identity.Actor) (*finance.OrderFee, error) {
	fee, err := tx.Fees().LockByOrder(ctx, order.ID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Order %s has no fee record", order.Code))
	}
	if err != nil {
		return nil, err
	}
	changed, err := calc.Apply(fee, finance.FeeEvent{Kind: kind, ActorID: actor.ID()})
	if err != nil {
		return nil, err
	}
	if changed {
		if err := tx.Fees().Save(ctx, fee); err != nil {
			return nil, err
		}
	}
	return fee, nil
}

func (e *WorkflowEngine) observe(ctx context.Context, from, to trade.WorkflowStatus, result string, started time.Time) {
	if e.metrics == nil {
		return
	}
	fromLabel := string(from)
	if fromLabel == "" {
		fromLabel = "unknown"
	}
	e.metrics.ObserveTransition(ctx, fromLabel, string(to), result, time.Since(started))
}

func movementRef(m *inventory.Movement) MovementRef {
	return MovementRef{
		ID:             m.ID,
		TrackingNumber: m.TrackingNumber,
		Kind:           string(m.Kind),
		Status:         string(m.Status),
		Quantity:       m.Quantity,
	}
}
