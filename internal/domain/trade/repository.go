package trade

import "context"

// OrderFilter narrows an order listing
type OrderFilter struct {
	SellerID       *int64
	AgentID        *int64
	WorkflowStatus []WorkflowStatus
	Escalated      *bool
	Limit          int
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	// FindByID returns shared.ErrOrderNotFound when missing
	FindByID(ctx context.Context, id int64) (*Order, error)

	// LockByID loads the order under a row lock that does not wait.
	// A held lock surfaces as shared.ErrOrderLocked.
	LockByID(ctx context.Context, id int64) (*Order, error)

	// FindByCode finds an order by its human code
	FindByCode(ctx context.Context, code string) (*Order, error)

	// ExistsByCode checks if an order code is taken
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// List returns orders matching the filter ordered by id
	List(ctx context.Context, filter OrderFilter) ([]Order, error)

	// AgentQueue returns the agent's pending call-center work, oldest first.
	// Escalated orders are excluded.
	AgentQueue(ctx context.Context, agentID int64) ([]Order, error)

	// EscalatedQueue returns non-terminal escalated orders, oldest escalation first
	EscalatedQueue(ctx context.Context) ([]Order, error)

	Create(ctx context.Context, order *Order) error
	Save(ctx context.Context, order *Order) error
}

// ReturnEventRepository persists processed returns
type ReturnEventRepository interface {
	Create(ctx context.Context, event *ReturnEvent) error
	FindByOrder(ctx context.Context, orderID int64) ([]ReturnEvent, error)
}
