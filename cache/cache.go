// Package cache holds the byte-oriented key/value stores used for catalog
// responses and idempotent request replay. Redis is used when configured;
// the in-memory store serves single-instance deployments and tests.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	Delete(ctx context.Context, key string) error
	// DeleteIfValue removes key only while it still holds value and reports
	// whether it did.
	DeleteIfValue(ctx context.Context, key string, value []byte) (bool, error)
}
