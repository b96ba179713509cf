package store

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrRefreshInvalid = errors.New("refresh invalid")

// RefreshStore tracks live refresh token ids; a refresh token is accepted once.
type RefreshStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRefreshStore(rdb *redis.Client, ttl time.Duration) *RefreshStore {
	return &RefreshStore{rdb: rdb, ttl: ttl}
}

func refreshKey(driverID, jti string) string { return "refresh:" + driverID + ":" + jti }
func refreshSetKey(driverID string) string   { return "refresh:set:" + driverID }

func (s *RefreshStore) Put(ctx context.Context, driverID, jti string) error {
	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, refreshKey(driverID, jti), "1", s.ttl)
	pipe.SAdd(ctx, refreshSetKey(driverID), jti)
	pipe.Expire(ctx, refreshSetKey(driverID), s.ttl)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *RefreshStore) Consume(ctx context.Context, driverID, jti string) error {
	n, err := s.rdb.Del(ctx, refreshKey(driverID, jti)).Result()
	if err != nil {
		return err
	}
	_ = s.rdb.SRem(ctx, refreshSetKey(driverID), jti).Err()
	if n == 0 {
		return ErrRefreshInvalid
	}
	return nil
}

// RevokeAll drops every outstanding refresh token of the driver.
func (s *RefreshStore) RevokeAll(ctx context.Context, driverID string) error {
	jtis, err := s.rdb.SMembers(ctx, refreshSetKey(driverID)).Result()
	if err != nil {
		return err
	}
	keys := make([]string, 0, len(jtis)+1)
	for _, j := range jtis {
		keys = append(keys, refreshKey(driverID, j))
	}
	keys = append(keys, refreshSetKey(driverID))
	return s.rdb.Del(ctx, keys...).Err()
}
