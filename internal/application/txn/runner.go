package txn

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultRetention is how long idempotency results are kept when no retention is configured
const DefaultRetention = 24 * time.Hour

const maxKeyLength = 128

// ReplayCache is an optional fast path in front of the idempotency table.
// A miss returns nil and no error. Cache failures never fail an operation.
type ReplayCache interface {
	Get(ctx context.Context, key string) (*shared.IdempotencyRecord, error)
	Set(ctx context.Context, record *shared.IdempotencyRecord) error
}

// Operation identifies one state-changing call
type Operation struct {
	Name    string
	ActorID int64
	// Key is the caller's idempotency key; empty disables replay
	Key string
}

// Tx is handed to the body of a Runner call. Events collected on it are
// published only after the transaction commits.
type Tx struct {
	Repositories
	events []shared.DomainEvent
}

// Collect queues events for publication after commit
func (t *Tx) Collect(events ...shared.DomainEvent) {
	t.events = append(t.events, events...)
}

// CollectFrom queues and clears the pending events of aggregates
func (t *Tx) CollectFrom(aggregates ...shared.AggregateRoot) {
	for _, a := range aggregates {
		t.events = append(t.events, a.GetDomainEvents()...)
		a.ClearDomainEvents()
	}
}

// Events returns the events collected so far
func (t *Tx) Events() []shared.DomainEvent {
	return t.events
}

// Runner executes operations in one transaction each, stores their result
// under the caller's idempotency key, and publishes their events after commit.
type Runner struct {
	scope     Scope
	publisher shared.EventPublisher
	cache     ReplayCache
	retention time.Duration
	clock     func() time.Time
	logger    *zap.Logger
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithReplayCache puts a cache in front of the idempotency table
func WithReplayCache(cache ReplayCache) RunnerOption {
	return func(r *Runner) {
		r.cache = cache
	}
}

// WithRetention sets how long idempotency results are replayable
func WithRetention(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.retention = d
		}
	}
}

// WithClock overrides the time source
func WithClock(clock func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.clock = clock
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner. A nil publisher drops events.
func NewRunner(scope Scope, publisher shared.EventPublisher, opts ...RunnerOption) *Runner {
	if publisher == nil {
		publisher = shared.NoopPublisher{}
	}
	r := &Runner{
		scope:     scope,
		publisher: publisher,
		retention: DefaultRetention,
		clock:     time.Now,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Retention returns the replay window
func (r *Runner) Retention() time.Duration {
	return r.retention
}

// Scope returns the transaction scope, for read paths that need no idempotency
func (r *Runner) Scope() Scope {
	return r.scope
}

// Run executes fn in one transaction. When op.Key is set and a result for it
// exists, that result is returned instead with replayed = true, and nothing
// is executed or published. A key reused by another actor or operation fails
// with IDEMPOTENCY_KEY_REUSED. Failed calls store nothing.
func Run[T any](ctx context.Context, r *Runner, op Operation, fn func(tx *Tx) (T, error)) (result T, replayed bool, err error) {
	ctx, log := logger.WithRequestID(ctx, r.logger, uuid.NewString())
	ctx, log = logger.WithActor(ctx, log, op.ActorID)

	key := strings.TrimSpace(op.Key)
	if len(key) > maxKeyLength {
		return result, false, shared.NewDomainError(shared.CodeInvalidInput,
			fmt.Sprintf("Idempotency key cannot exceed %d characters", maxKeyLength))
	}

	if key != "" {
		if rec := r.cachedRecord(ctx, key); rec != nil {
			replayed, err = r.replay(rec, op, &result)
			if err != nil || replayed {
				return result, replayed, err
			}
		}
	}

	var (
		tx    *Tx
		saved *shared.IdempotencyRecord
	)
	err = r.scope.Execute(ctx, func(repos Repositories) error {
		tx = &Tx{Repositories: repos}
		if key != "" {
			rec, findErr := repos.Idempotency().FindActive(ctx, key, r.clock())
			switch {
			case findErr == nil:
				ok, replayErr := r.replay(rec, op, &result)
				if replayErr != nil {
					return replayErr
				}
				replayed = ok
				if ok {
					return nil
				}
			case !errors.Is(findErr, shared.ErrNotFound):
				return findErr
			}
		}

		out, fnErr := fn(tx)
		if fnErr != nil {
			return fnErr
		}
		result = out
		if key == "" {
			return nil
		}

		payload, marshalErr := json.Marshal(out)
		if marshalErr != nil {
			return fmt.Errorf("encode result of %s: %w", op.Name, marshalErr)
		}
		now := r.clock().UTC()
		saved = &shared.IdempotencyRecord{
			Key:       key,
			ActorID:   op.ActorID,
			Operation: op.Name,
			Result:    payload,
			CreatedAt: now,
			ExpiresAt: now.Add(r.retention),
		}
		if saveErr := repos.Idempotency().Save(ctx, saved); saveErr != nil {
			if errors.Is(saveErr, shared.ErrAlreadyExists) {
				return shared.NewRetryableError(shared.CodeSerializationFailure,
					"A concurrent call with the same idempotency key committed first")
			}
			return saveErr
		}
		return nil
	})
	if err != nil {
		var zero T
		return zero, false, err
	}
	if replayed {
		log.Debug("Replayed idempotent operation",
			zap.String("operation", op.Name),
			zap.String("idempotency_key", key),
			zap.Int64("actor_id", op.ActorID),
		)
		return result, true, nil
	}

	if saved != nil && r.cache != nil {
		if cacheErr := r.cache.Set(ctx, saved); cacheErr != nil {
			log.Warn("Failed to warm idempotency cache", zap.String("idempotency_key", key), zap.Error(cacheErr))
		}
	}
	r.publish(ctx, tx.events)
	return result, false, nil
}

func (r *Runner) cachedRecord(ctx context.Context, key string) *shared.IdempotencyRecord {
	if r.cache == nil {
		return nil
	}
	rec, err := r.cache.Get(ctx, key)
	if err != nil {
		r.logger.Warn("Idempotency cache lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return nil
	}
	if rec == nil || rec.IsExpired(r.clock()) {
		return nil
	}
	return rec
}

// replay decodes rec into out when it belongs to the same actor and operation
func (r *Runner) replay(rec *shared.IdempotencyRecord, op Operation, out any) (bool, error) {
	if !rec.Matches(op.ActorID, op.Name) {
		return false, shared.NewDomainError(shared.CodeIdempotencyKeyReused,
			fmt.Sprintf("Idempotency key %q belongs to another actor or operation", rec.Key))
	}
	if err := json.Unmarshal(rec.Result, out); err != nil {
		return false, fmt.Errorf("decode stored result of %s: %w", op.Name, err)
	}
	return true, nil
}

func (r *Runner) publish(ctx context.Context, events []shared.DomainEvent) {
	if len(events) == 0 {
		return
	}
	if err := r.publisher.Publish(ctx, events...); err != nil {
		r.logger.Error("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

// Publish sends events outside of a Run call, for audit events of rejected operations
func (r *Runner) Publish(ctx context.Context, events ...shared.DomainEvent) {
	r.publish(ctx, events)
}
