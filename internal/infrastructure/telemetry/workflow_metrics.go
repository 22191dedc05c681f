package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/inventory"
	"github.com/fulfillcrm/backend/internal/domain/shared"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics set is built without a meter
var ErrMeterNil = errors.New("meter cannot be nil")

// ResultOK is the result label of a successful transition
const ResultOK = "ok"

var attrOperation = attribute.Key("operation")

const (
	metricTransitions        = "workflow_transitions_total"
	metricTransitionDuration = "workflow_transition_duration_seconds"
	metricMovements          = "inventory_movements_total"
	metricInsufficientStock  = "inventory_insufficient_stock_total"
)

// WorkflowMetrics tracks order transitions and inventory movements.
//
// Metrics:
//   - workflow_transitions_total{from,to,result}
//   - workflow_transition_duration_seconds{to,result}
//   - inventory_movements_total{kind,status}
//   - inventory_insufficient_stock_total{operation}
//
// It also implements shared.EventHandler so it can be subscribed to the
// event bus and count movements from their events.
type WorkflowMetrics struct {
	transitions        *Counter
	transitionDuration *DurationHistogram
	movements          *Counter
	insufficientStock  *Counter
	logger             *zap.Logger
}

// NewWorkflowMetrics registers the workflow instruments on meter
func NewWorkflowMetrics(meter metric.Meter, logger *zap.Logger) (*WorkflowMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	transitions, err := NewCounter(meter, metricTransitions,
		"Total number of order workflow transition attempts", "{transition}")
	if err != nil {
		return nil, err
	}
	duration, err := NewDurationHistogram(meter, metricTransitionDuration, "Order workflow transition latency")
	if err != nil {
		return nil, err
	}
	movements, err := NewCounter(meter, metricMovements,
		"Total number of inventory movements by kind and status", "{movement}")
	if err != nil {
		return nil, err
	}
	insufficient, err := NewCounter(meter, metricInsufficientStock,
		"Total number of operations rejected for insufficient stock", "{operation}")
	if err != nil {
		return nil, err
	}

	return &WorkflowMetrics{
		transitions:        transitions,
		transitionDuration: duration,
		movements:          movements,
		insufficientStock:  insufficient,
		logger:             logger,
	}, nil
}

// ObserveTransition records one transition attempt. result is ResultOK or
// the domain error code of the failure.
func (m *WorkflowMetrics) ObserveTransition(ctx context.Context, from, to, result string, elapsed time.Duration) {
	m.transitions.Inc(ctx, AttrFrom.String(from), AttrTo.String(to), AttrResult.String(result))
	m.transitionDuration.Record(ctx, elapsed, AttrTo.String(to), AttrResult.String(result))
	if result == shared.CodeInsufficientStock {
		m.insufficientStock.Inc(ctx, attrOperation.String("transition"))
	}
}

// InsufficientStock counts a ledger operation rejected for lack of stock
func (m *WorkflowMetrics) InsufficientStock(ctx context.Context, operation string) {
	m.insufficientStock.Inc(ctx, attrOperation.String(operation))
}

// Handle implements shared.EventHandler
func (m *WorkflowMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *inventory.MovementCompletedEvent:
		m.movements.Inc(ctx,
			AttrKind.String(string(e.Kind)),
			AttrStatus.String(string(inventory.MovementCompleted)))
	case *inventory.StockReservedEvent:
		m.movements.Inc(ctx,
			AttrKind.String(string(inventory.MovementStockOut)),
			AttrStatus.String(string(inventory.MovementInProgress)))
	case *inventory.StockReleasedEvent:
		m.movements.Inc(ctx,
			AttrKind.String(string(inventory.MovementStockOut)),
			AttrStatus.String(string(inventory.MovementCancelled)))
	default:
		m.logger.Debug("Ignoring event in workflow metrics", zap.String("event_type", event.EventType()))
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (m *WorkflowMetrics) EventTypes() []string {
	return []string{
		inventory.EventTypeMovementCompleted,
		inventory.EventTypeStockReserved,
		inventory.EventTypeStockReleased,
	}
}
