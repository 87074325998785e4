package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/eitan-ker/photo-selector-poc/internal/db"
)

// Get retrieves a value by key. A missing key maps to db.ErrKeyNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpGet, Err: err}
	}
	return data, nil
}

// Set stores a value at key. A zero ttl stores it without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b := s.client.B().Set().Key(key).Value(rueidis.BinaryString(value))
	var cmd rueidis.Completed
	if ttl > 0 {
		cmd = b.Ex(ttl).Build()
	} else {
		cmd = b.Build()
	}
	return s.exec(ctx, db.OpSet, cmd)
}

// IncrBy atomically increments a key by val, creating it at val if absent.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	return s.exec(ctx, db.OpIncrBy, s.client.B().Incrby().Key(key).Increment(val).Build())
}

// ExpireOnce sets ttl on key only when it has no expiry yet (EXPIRE NX).
func (s *Store) ExpireOnce(ctx context.Context, key string, ttl time.Duration) error {
	cmd := s.client.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Nx().Build()
	return s.exec(ctx, db.OpExpire, cmd)
}

// exec runs cmd and wraps any failure with the command name.
func (s *Store) exec(ctx context.Context, op string, cmd rueidis.Completed) error {
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: op, Err: err}
	}
	return nil
}
