//go:build !integration

package postgres

import (
	"context"
	"time"

	"messmate/internal/domain/model"
	"messmate/internal/domain/ports/repository"
	red "messmate/internal/infra/redis"
)

// --- Mocks for Cache Decorator Tests ---

// mockInnerMenuRepo mocks the database repository that the menu decorator wraps.
type mockInnerMenuRepo struct {
	UpsertFunc             func(ctx context.Context, tx repository.Tx, e *model.MenuEntry) error
	ListByMessAndRangeFunc func(ctx context.Context, tx repository.Tx, messID string, from, to time.Time) ([]*model.MenuEntry, error)
}

func (m *mockInnerMenuRepo) Upsert(ctx context.Context, tx repository.Tx, e *model.MenuEntry) error {
	return m.UpsertFunc(ctx, tx, e)
}
func (m *mockInnerMenuRepo) ListByMessAndRange(ctx context.Context, tx repository.Tx, messID string, from, to time.Time) ([]*model.MenuEntry, error) {
	return m.ListByMessAndRangeFunc(ctx, tx, messID, from, to)
}

// mockRedisClient mocks our Redis client wrapper.
type mockRedisClient struct {
	GetFunc         func(ctx context.Context, key string) (string, error)
	SetFunc         func(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	DelFunc         func(ctx context.Context, keys ...string) error
	PingFunc        func(ctx context.Context) error
	IncrFunc        func(ctx context.Context, key string) (int64, error)
	ExpireFunc      func(ctx context.Context, key string, expiration time.Duration) error
	SetNXFunc       func(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	DelIfEqualsFunc func(ctx context.Context, key, value string) (bool, error)
	CloseFunc       func() error
}

var _ red.RedisClient = &mockRedisClient{}

func (m *mockRedisClient) Get(ctx context.Context, key string) (string, error) {
	if m.GetFunc == nil {
		return "", red.Nil
	}
	return m.GetFunc(ctx, key)
}
func (m *mockRedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if m.SetFunc == nil {
		return nil
	}
	return m.SetFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) Del(ctx context.Context, keys ...string) error {
	return m.DelFunc(ctx, keys...)
}
func (m *mockRedisClient) Ping(ctx context.Context) error { return m.PingFunc(ctx) }
func (m *mockRedisClient) Incr(ctx context.Context, key string) (int64, error) {
	return m.IncrFunc(ctx, key)
}
func (m *mockRedisClient) Expire(ctx context.Context, key string, expiration time.Duration) error {
	return m.ExpireFunc(ctx, key, expiration)
}
func (m *mockRedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return m.SetNXFunc(ctx, key, value, expiration)
}
func (m *mockRedisClient) DelIfEquals(ctx context.Context, key, value string) (bool, error) {
	return m.DelIfEqualsFunc(ctx, key, value)
}
func (m *mockRedisClient) Close() error { return m.CloseFunc() }
