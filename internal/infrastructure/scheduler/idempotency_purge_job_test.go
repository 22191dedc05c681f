package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/fulfillcrm/backend/internal/domain/shared"
	"github.com/fulfillcrm/backend/internal/infrastructure/persistence"
	"github.com/fulfillcrm/backend/tests/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdempotencyPurgeJob(t *testing.T) {
	env := testutil.NewEnv(t)
	repo := persistence.NewGormIdempotencyRepository(env.DB)
	ctx := context.Background()

	save := func(key string, ttl time.Duration) {
		require.NoError(t, repo.Save(ctx, &shared.IdempotencyRecord{
			Key:       key,
			ActorID:   1,
			Operation: "inventory.receive",
			Result:    []byte(`{}`),
			CreatedAt: env.Now,
			ExpiresAt: env.Now.Add(ttl),
		}))
	}
	save("short", time.Minute)
	save("long", 48*time.Hour)

	job := NewIdempotencyPurgeJob(env.Scope, env.Clock, nil)
	env.Advance(time.Hour)

	s := New(Config{}, nil)
	require.NoError(t, s.Register(job.Job(15*time.Minute)))
	require.NoError(t, s.Trigger(ctx, IdempotencyPurgeJobName))

	_, err := repo.FindActive(ctx, "short", time.Time{})
	assert.ErrorIs(t, err, shared.ErrNotFound, "expired record is deleted")
	rec, err := repo.FindActive(ctx, "long", env.Now)
	require.NoError(t, err)
	assert.Equal(t, "long", rec.Key)
}
