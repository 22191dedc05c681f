package finance

import (
	"context"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"github.com/fulfillcrm/backend/internal/application/validation"
	"github.com/fulfillcrm/backend/internal/domain/finance"
	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// FeePolicyService manages seller fee policies and exposes order fee records
type FeePolicyService struct {
	runner *txn.Runner
	logger *zap.Logger
}

// NewFeePolicyService creates a new FeePolicyService
func NewFeePolicyService(runner *txn.Runner, logger *zap.Logger) *FeePolicyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeePolicyService{runner: runner, logger: logger}
}

// SetPolicy replaces the active policy of a seller. The previous policy is
// deactivated in the same transaction, so at most one stays active.
// Existing order fees keep the seller fee they were created with.
func (s *FeePolicyService) SetPolicy(ctx context.Context, req SetPolicyRequest) (*PolicyResponse, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !req.Actor.IsSuperAdmin() {
		return nil, shared.NewDomainError(shared.CodeNotAuthorized, "Only a super admin can set seller fee policies")
	}

	op := txn.Operation{Name: "set_fee_policy", ActorID: req.Actor.ID(), Key: req.IdempotencyKey}
	resp, replayed, err := txn.Run(ctx, s.runner, op, func(tx *txn.Tx) (PolicyResponse, error) {
		policy, err := finance.NewSellerFeePolicy(req.SellerID, req.FeePercentage, req.Actor.ID())
		if err != nil {
			return PolicyResponse{}, err
		}

		current, err := tx.FeePolicies().FindActiveBySeller(ctx, req.SellerID)
		if err != nil {
			return PolicyResponse{}, err
		}
		if current != nil {
			current.Deactivate(policy.CreatedAt)
			if err := tx.FeePolicies().Save(ctx, current); err != nil {
				return PolicyResponse{}, err
			}
		}
		if err := tx.FeePolicies().Create(ctx, policy); err != nil {
			return PolicyResponse{}, err
		}
		return ToPolicyResponse(policy), nil
	})
	if err != nil {
		return nil, err
	}
	if !replayed {
		s.logger.Info("Seller fee policy set",
			zap.Int64("seller_id", resp.SellerID),
			zap.String("fee_percentage", resp.FeePercentage.String()),
			zap.Int64("actor_id", req.Actor.ID()),
		)
	}
	return &resp, nil
}

// ActivePolicy returns the active policy of a seller, or NOT_FOUND
func (s *FeePolicyService) ActivePolicy(ctx context.Context, sellerID int64) (*PolicyResponse, error) {
	var resp *PolicyResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		policy, err := repos.FeePolicies().FindActiveBySeller(ctx, sellerID)
		if err != nil {
			return err
		}
		if policy == nil {
			return shared.NewDomainError(shared.CodeNotFound, "Seller has no active fee policy")
		}
		r := ToPolicyResponse(policy)
		resp = &r
		return nil
	})
	return resp, err
}

// PolicyHistory returns every policy of a seller, newest first
func (s *FeePolicyService) PolicyHistory(ctx context.Context, sellerID int64) ([]PolicyResponse, error) {
	var out []PolicyResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		policies, err := repos.FeePolicies().FindBySeller(ctx, sellerID)
		if err != nil {
			return err
		}
		out = make([]PolicyResponse, len(policies))
		for i := range policies {
			out[i] = ToPolicyResponse(&policies[i])
		}
		return nil
	})
	return out, err
}

// GetOrderFee returns the fee record of an order. Sellers see only their own orders.
func (s *FeePolicyService) GetOrderFee(ctx context.Context, orderID int64, actor identity.Actor) (*OrderFeeResponse, error) {
	var resp OrderFeeResponse
	err := s.runner.Scope().Execute(ctx, func(repos txn.Repositories) error {
		order, err := repos.Orders().FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if actor.HasRole(identity.RoleSeller) && !actor.IsSuperAdmin() && order.SellerID != actor.ID() {
			return shared.NewDomainError(shared.CodeNotAuthorized, "Sellers can only view fees of their own orders")
		}
		fee, err := repos.Fees().FindByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		resp = ToOrderFeeResponse(fee)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
