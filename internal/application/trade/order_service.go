package trade

import (
	"context"
	"fmt"
	"slices"
	"time"

	financeapp "github.com/fulfillcrm/backend/internal/application/finance"
	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/application/validation"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"github.com/fulfillcrm/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

const orderServiceName = "orders"

// OrderService handles order intake and call-center assignment
type OrderService struct {
	runner *txn.Runner
	fees   *finance.FeeCalculator
	policy trade.TransitionPolicy
	logger *zap.Logger
	clock  func() time.Time
}

// NewOrderService creates a new OrderService
func NewOrderService(runner *txn.Runner, fees *finance.FeeCalculator, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		runner: runner,
		fees:   fees,
		policy: trade.DefaultTransitionPolicy(),
		logger: logger,
		clock:  time.Now,
	}
}

// SetClock overrides the time source
func (s *OrderService) SetClock(clock func() time.Time) {
	if clock != nil {
		s.clock = clock
	}
}

func (s *OrderService) now() time.Time {
	return s.clock().UTC()
}

// runOrder wraps an order operation in a span and a transaction
func runOrder[T any](ctx context.Context, s *OrderService, method string, actor identity.Actor, key string, fn func(ctx context.Context, tx *txn.Tx) (T, error)) (*T, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, orderServiceName, method,
		telemetry.WithAttribute(telemetry.SpanAttrActorID, actor.ID()))
	defer span.End()

	op := txn.Operation{Name: orderServiceName + "." + method, ActorID: actor.ID(), Key: key}
	resp, replayed, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (T, error) {
		return fn(ctx, tx)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("Order operation rejected",
			zap.String("operation", method),
			zap.Int64("actor_id", actor.ID()),
			zap.String("code", shared.ErrorCode(err)),
			zap.Error(err),
		)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrReplayed, replayed)
	telemetry.SetOK(span)
	return &resp, nil
}

// SubmitOrder creates an order in seller_submitted together with its fee
// record. The seller must own the product and the product must be approved.
func (s *OrderService) SubmitOrder(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Actor.IsSuperAdmin() && !(req.Actor.HasRole(identity.RoleSeller) && req.Actor.ID() == req.SellerID) {
		return nil, shared.NewDomainError(shared.CodeNotAuthorized, "Sellers can only submit their own orders")
	}
	addr, err := req.Address.toValueObject()
	if err != nil {
		return nil, shared.NewDomainError(shared.CodeInvalidInput, err.Error())
	}

	resp, err := runOrder(ctx, s, "submit", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (SubmitOrderResponse, error) {
		exists, err := tx.Orders().ExistsByCode(ctx, req.Code)
		if err != nil {
			return SubmitOrderResponse{}, err
		}
		if exists {
			return SubmitOrderResponse{}, shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Order code %s is already taken", req.Code))
		}

		product, err := tx.Products().FindByID(ctx, req.ProductID)
		if err != nil {
			return SubmitOrderResponse{}, err
		}
		if !product.IsOwnedBy(req.SellerID) {
			return SubmitOrderResponse{}, shared.NewDomainError(shared.CodeNotAuthorized,
				fmt.Sprintf("Product %d does not belong to seller %d", product.ID, req.SellerID))
		}
		if !product.Approved {
			return SubmitOrderResponse{}, shared.NewDomainError(shared.CodeInvalidState,
				fmt.Sprintf("Product %s is not approved", product.SKU))
		}
		unitPrice := product.SellingPrice
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}

		order, err := trade.NewOrder(trade.OrderInput{
			Code:          req.Code,
			SellerID:      req.SellerID,
			CustomerName:  req.CustomerName,
			CustomerPhone: req.CustomerPhone,
			Address:       addr,
			ProductID:     product.ID,
			Quantity:      req.Quantity,
			UnitPrice:     unitPrice,
			InternalNotes: req.InternalNotes,
		})
		if err != nil {
			return SubmitOrderResponse{}, err
		}
		if err := tx.Orders().Create(ctx, order); err != nil {
			return SubmitOrderResponse{}, err
		}

		policy, err := tx.FeePolicies().FindActiveBySeller(ctx, req.SellerID)
		if err != nil {
			return SubmitOrderResponse{}, err
		}
		fee := s.fees.Initial(order.ID, order.BasePrice(), policy, req.Actor.ID())
		if err := tx.Fees().Create(ctx, fee); err != nil {
			return SubmitOrderResponse{}, err
		}

		order.AddDomainEvent(trade.NewOrderSubmittedEvent(order))
		tx.CollectFrom(order)
		return SubmitOrderResponse{
			Order: ToOrderResponse(order),
			Fee:   financeapp.ToOrderFeeResponse(fee),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Order submitted",
		zap.Int64("order_id", resp.Order.ID),
		zap.String("code", resp.Order.Code),
		zap.Int64("seller_id", resp.Order.SellerID),
		zap.String("final_total", resp.Fee.FinalTotal.StringFixed(2)),
	)
	return resp, nil
}

// AssignOrder hands an order to an agent. Agents may only take unassigned
// orders for themselves; managers may assign any order, which also clears
// its escalation.
func (s *OrderService) AssignOrder(ctx context.Context, req AssignOrderRequest) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return runOrder(ctx, s, "assign", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (OrderResponse, error) {
		order, err := tx.Orders().LockByID(ctx, req.OrderID)
		if err != nil {
			return OrderResponse{}, err
		}
		if err := s.policy.AuthorizeAssign(req.Actor, order, req.AgentID); err != nil {
			return OrderResponse{}, err
		}
		byManager := req.Actor.IsManager() || req.Actor.IsSuperAdmin()
		if err := order.Assign(req.AgentID, req.Actor.ID(), byManager, s.now()); err != nil {
			return OrderResponse{}, err
		}
		if err := tx.Orders().Save(ctx, order); err != nil {
			return OrderResponse{}, err
		}
		tx.CollectFrom(order)
		return ToOrderResponse(order), nil
	})
}

// BulkReassign moves several orders to one agent. Orders are locked in
// ascending id order; any failure aborts the whole batch.
func (s *OrderService) BulkReassign(ctx context.Context, req BulkReassignRequest) ([]OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Actor.IsManager() && !req.Actor.IsSuperAdmin() {
		return nil, shared.NewDomainError(shared.CodeNotAuthorized, "Only a manager can reassign orders in bulk")
	}
	ids := slices.Clone(req.OrderIDs)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	resp, err := runOrder(ctx, s, "bulk_reassign", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) ([]OrderResponse, error) {
		out := make([]OrderResponse, 0, len(ids))
		now := s.now()
		for _, id := range ids {
			order, err := tx.Orders().LockByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if err := order.Assign(req.AgentID, req.Actor.ID(), true, now); err != nil {
				return nil, fmt.Errorf("reassign order %d: %w", id, err)
			}
			if err := tx.Orders().Save(ctx, order); err != nil {
				return nil, err
			}
			tx.CollectFrom(order)
			out = append(out, ToOrderResponse(order))
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Orders reassigned", zap.Int("count", len(*resp)), zap.Int64("agent_id", req.AgentID))
	return *resp, nil
}

// EscalateOrder flags an order for a manager without changing its workflow status
func (s *OrderService) EscalateOrder(ctx context.Context, req EscalateOrderRequest) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return runOrder(ctx, s, "escalate", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (OrderResponse, error) {
		order, err := tx.Orders().LockByID(ctx, req.OrderID)
		if err != nil {
			return OrderResponse{}, err
		}
		if err := s.policy.AuthorizeEscalate(req.Actor, order); err != nil {
			return OrderResponse{}, err
		}
		if err := order.Escalate(req.Reason, req.Actor.ID(), s.now()); err != nil {
			return OrderResponse{}, err
		}
		if err := tx.Orders().Save(ctx, order); err != nil {
			return OrderResponse{}, err
		}
		tx.CollectFrom(order)
		return ToOrderResponse(order), nil
	})
}

// PostponeOrder defers call-center follow-up. The assigned agent or a manager may postpone.
func (s *OrderService) PostponeOrder(ctx context.Context, req PostponeOrderRequest) (*OrderResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	return runOrder(ctx, s, "postpone", req.Actor, req.IdempotencyKey, func(ctx context.Context, tx *txn.Tx) (OrderResponse, error) {
		order, err := tx.Orders().LockByID(ctx, req.OrderID)
		if err != nil {
			return OrderResponse{}, err
		}
		if !req.Actor.IsSuperAdmin() && !req.Actor.IsManager() && !order.IsAssignedTo(req.Actor.ID()) {
			return OrderResponse{}, shared.NewDomainError(shared.CodeNotAuthorized,
				"Only the assigned agent or a manager can postpone the order")
		}
		if err := order.Postpone(req.Until, req.Reason, req.Actor.ID(), s.now()); err != nil {
			return OrderResponse{}, err
		}
		if err := tx.Orders().Save(ctx, order); err != nil {
			return OrderResponse{}, err
		}
		tx.CollectFrom(order)
		return ToOrderResponse(order), nil
	})
}

// GetOrder retrieves an order by ID
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*OrderResponse, error) {
	var resp OrderResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		order, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		resp = ToOrderResponse(order)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListOrders returns orders matching filter ordered by id
func (s *OrderService) ListOrders(ctx context.Context, filter trade.OrderFilter) ([]OrderResponse, error) {
	return s.list(ctx, func(repos txn.Repositories) ([]trade.Order, error) {
		return repos.Orders().List(ctx, filter)
	})
}

// AgentQueue returns the pending call-center work of an agent, oldest first.
// Escalated orders are left to managers.
func (s *OrderService) AgentQueue(ctx context.Context, agentID int64) ([]OrderResponse, error) {
	return s.list(ctx, func(repos txn.Repositories) ([]trade.Order, error) {
		return repos.Orders().AgentQueue(ctx, agentID)
	})
}

// EscalatedQueue returns open escalated orders, oldest escalation first
func (s *OrderService) EscalatedQueue(ctx context.Context) ([]OrderResponse, error) {
	return s.list(ctx, func(repos txn.Repositories) ([]trade.Order, error) {
		return repos.Orders().EscalatedQueue(ctx)
	})
}

func (s *OrderService) list(ctx context.Context, load func(repos txn.Repositories) ([]trade.Order, error)) ([]OrderResponse, error) {
	var out []OrderResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		orders, err := load(repos)
		if err != nil {
			return err
		}
		out = ToOrderResponses(orders)
		return nil
	})
	return out, err
}
