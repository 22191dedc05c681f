package trade

import (
	"fmt"

	"github.com/fulfillcrm/backend/internal/domain/identity"
	"github.com/fulfillcrm/backend/internal/domain/shared"
)

// TransitionPolicy decides which actors may move an order to a target status.
// Role logic lives here rather than on Order.
type TransitionPolicy struct {
	allowed map[WorkflowStatus][]identity.Role
}

// DefaultTransitionPolicy returns the standard role table
func DefaultTransitionPolicy() TransitionPolicy {
	packing := []identity.Role{identity.RoleStockKeeper, identity.RolePackagingAgent}
	delivery := []identity.Role{identity.RoleDeliveryAgent, identity.RoleCallCenterManager}
	return TransitionPolicy{allowed: map[WorkflowStatus][]identity.Role{
		WorkflowCallCenterReview:    {identity.RoleCallCenterAgent, identity.RoleCallCenterManager},
		WorkflowCallCenterApproved:  {identity.RoleCallCenterAgent, identity.RoleCallCenterManager},
		WorkflowStockKeeperApproved: {identity.RoleStockKeeper, identity.RoleCallCenterManager},
		WorkflowPickAndPack:         packing,
		WorkflowPackagingInProgress: packing,
		WorkflowPackagingCompleted:  packing,
		WorkflowReadyForDelivery:    delivery,
		WorkflowDeliveryInProgress:  delivery,
		WorkflowDeliveryCompleted:   delivery,
		WorkflowCancelled:           {identity.RoleCallCenterManager},
		WorkflowReturned:            {identity.RoleStockKeeper},
	}}
}

// AllowedRoles returns the roles that may move an order to target
func (p TransitionPolicy) AllowedRoles(target WorkflowStatus) []identity.Role {
	return p.allowed[target]
}

// Authorize returns NOT_AUTHORIZED unless actor may move order to target.
// Super admins pass every check. An agent may approve only an order
// assigned to them; a manager may approve any order.
func (p TransitionPolicy) Authorize(actor identity.Actor, order *Order, target WorkflowStatus) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	roles, ok := p.allowed[target]
	if !ok || !actor.HasAnyRole(roles...) {
		return notAuthorized(actor, target)
	}
	if target == WorkflowCallCenterApproved && !actor.IsManager() {
		if !order.IsAssignedTo(actor.ID()) {
			return shared.NewDomainError(shared.CodeNotAuthorized,
				fmt.Sprintf("Agent %d can only approve orders assigned to them", actor.ID()))
		}
	}
	return nil
}

// AuthorizeAssign checks assign_order: an agent may take an unassigned
// order for themselves; managers may assign any order to anyone.
func (p TransitionPolicy) AuthorizeAssign(actor identity.Actor, order *Order, agentID int64) error {
	if actor.IsSuperAdmin() || actor.IsManager() {
		return nil
	}
	if !actor.HasRole(identity.RoleCallCenterAgent) {
		return shared.NewDomainError(shared.CodeNotAuthorized, "Only call center staff can assign orders")
	}
	if order.AgentID != nil {
		return shared.NewDomainError(shared.CodeNotAuthorized, "Order is already assigned; only a manager can reassign it")
	}
	if agentID != actor.ID() {
		return shared.NewDomainError(shared.CodeNotAuthorized, "Agents can only assign orders to themselves")
	}
	return nil
}

// AuthorizeEscalate checks escalate_order: only the assigned agent may escalate
func (p TransitionPolicy) AuthorizeEscalate(actor identity.Actor, order *Order) error {
	if actor.IsSuperAdmin() {
		return nil
	}
	if !order.IsAssignedTo(actor.ID()) {
		return shared.NewDomainError(shared.CodeNotAuthorized, "Only the assigned agent can escalate the order")
	}
	return nil
}

func notAuthorized(actor identity.Actor, target WorkflowStatus) error {
	return shared.NewDomainError(shared.CodeNotAuthorized,
		fmt.Sprintf("Actor %d with roles %v cannot move an order to %s", actor.ID(), actor.RoleNames(), target))
}
