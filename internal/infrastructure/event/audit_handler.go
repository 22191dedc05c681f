package event

import (
	"context"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/domain/trade"
	"github.com/fulfillcrm/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// AuditLogHandler writes every domain event to the structured log.
// Rejected transitions are logged at warn level with their error kind.
type AuditLogHandler struct {
	logger *zap.Logger
}

// NewAuditLogHandler creates an audit handler
func NewAuditLogHandler(log *zap.Logger) *AuditLogHandler {
	return &AuditLogHandler{logger: log.Named("audit")}
}

// EventTypes subscribes to every event
func (h *AuditLogHandler) EventTypes() []string {
	return nil
}

// Handle logs the event
func (h *AuditLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event_type", event.EventType()),
		zap.String("event_id", event.EventID().String()),
		zap.String("aggregate_type", event.AggregateType()),
		zap.Int64("aggregate_id", event.AggregateID()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	log := logger.WithTraceContext(ctx, h.logger)

	switch e := event.(type) {
	case *trade.TransitionRejectedEvent:
		log.Warn("Order transition rejected", append(fields,
			zap.Int64("actor_id", e.ActorID),
			zap.String("target", string(e.Target)),
			zap.String("error_kind", e.ErrorKind),
			zap.String("message", e.Message),
		)...)
	case *trade.OrderStatusChangedEvent:
		log.Info("Order status changed", append(fields,
			zap.Int64("actor_id", e.ActorID),
			zap.String("from", string(e.From)),
			zap.String("to", string(e.To)),
		)...)
	default:
		log.Info("Domain event", fields...)
	}
	return nil
}

var _ shared.EventHandler = (*AuditLogHandler)(nil)
