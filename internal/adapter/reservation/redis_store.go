// Package reservation stores capacity holds in redis. Each hold is one key
// with a native TTL, so redis evicts on its own; ListActive still filters on
// ExpiresAt because SCAN can surface keys a hair past expiry.
package reservation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	resDomain "p2p-funding-core/internal/domain/reservation"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rsv:"

type RedisStore struct{ rdb *redis.Client }

func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

var _ resDomain.Store = (*RedisStore)(nil)

func key(loanID, investorID string) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, loanID, investorID)
}

func (s *RedisStore) Put(ctx context.Context, r *resDomain.Reservation) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	ttl := time.Until(r.ExpiresAt)
	if ttl <= 0 {
		// Already expired; storing it would only feed ListActive garbage.
		return s.rdb.Del(ctx, key(r.LoanID, r.InvestorID)).Err()
	}
	return s.rdb.Set(ctx, key(r.LoanID, r.InvestorID), b, ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, loanID, investorID string) (*resDomain.Reservation, error) {
	b, err := s.rdb.Get(ctx, key(loanID, investorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, resDomain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var r resDomain.Reservation
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *RedisStore) ListActive(ctx context.Context, loanID string, now time.Time) ([]resDomain.Reservation, error) {
	var out []resDomain.Reservation
	iter := s.rdb.Scan(ctx, 0, keyPrefix+loanID+":*", 100).Iterator()
	for iter.Next(ctx) {
		b, err := s.rdb.Get(ctx, iter.Val()).Bytes()
		if errors.Is(err, redis.Nil) {
			continue // evicted between SCAN and GET
		}
		if err != nil {
			return nil, err
		}
		var r resDomain.Reservation
		if err := json.Unmarshal(b, &r); err != nil {
			return nil, err
		}
		if !r.Active(now) {
			_ = s.rdb.Del(ctx, iter.Val()).Err()
			continue
		}
		out = append(out, r)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *RedisStore) Delete(ctx context.Context, loanID, investorID string) error {
	return s.rdb.Del(ctx, key(loanID, investorID)).Err()
}
