package shared

import (
	"context"
	"time"
)

// IdempotencyRecord stores the outcome of a state-changing call under its
// caller-supplied key. It is written in the same transaction as the call,
// so a committed operation always has its record and a rolled-back one never does.
type IdempotencyRecord struct {
	Key       string    `gorm:"type:varchar(128);primaryKey" json:"key"`
	ActorID   int64     `gorm:"not null;index" json:"actor_id"`
	Operation string    `gorm:"type:varchar(64);not null" json:"operation"`
	Result    []byte    `gorm:"not null" json:"result"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
}

// TableName returns the table name for GORM
func (IdempotencyRecord) TableName() string {
	return "idempotency_records"
}

// IsExpired reports whether the record is past its retention window
func (r *IdempotencyRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Matches reports whether a replay request comes from the same actor and operation
func (r *IdempotencyRecord) Matches(actorID int64, operation string) bool {
	return r.ActorID == actorID && r.Operation == operation
}

// IdempotencyRepository persists idempotency records
type IdempotencyRepository interface {
	// FindActive returns the unexpired record for key, or ErrNotFound
	FindActive(ctx context.Context, key string, now time.Time) (*IdempotencyRecord, error)
	// Save inserts the record, replacing an expired one with the same key
	Save(ctx context.Context, record *IdempotencyRecord) error
	// PurgeExpired deletes records that expired before now and returns how many were removed
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
