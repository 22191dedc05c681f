package scheduler

import (
	"context"
	"time"

	"github.com/fulfillcrm/backend/internal/application/txn"
	"go.uber.org/zap"
)

// IdempotencyPurgeJobName is the registered name of the purge job
const IdempotencyPurgeJobName = "idempotency_purge"

// IdempotencyPurgeJob deletes idempotency records whose replay window has passed
type IdempotencyPurgeJob struct {
	scope  txn.Scope
	clock  func() time.Time
	logger *zap.Logger
}

// NewIdempotencyPurgeJob creates the purge job. A nil clock uses time.Now.
func NewIdempotencyPurgeJob(scope txn.Scope, clock func() time.Time, logger *zap.Logger) *IdempotencyPurgeJob {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdempotencyPurgeJob{scope: scope, clock: clock, logger: logger}
}

// Run deletes every expired record in one transaction
func (j *IdempotencyPurgeJob) Run(ctx context.Context) error {
	var purged int64
	err := j.scope.Execute(ctx, func(repos txn.Repositories) error {
		n, err := repos.Idempotency().PurgeExpired(ctx, j.clock().UTC())
		purged = n
		return err
	})
	if err != nil {
		return err
	}
	if purged > 0 {
		j.logger.Info("Purged expired idempotency records", zap.Int64("count", purged))
	}
	return nil
}

// Job wraps the purge as a scheduler Job running every interval
func (j *IdempotencyPurgeJob) Job(interval time.Duration) Job {
	return Job{Name: IdempotencyPurgeJobName, Interval: interval, Run: j.Run}
}
