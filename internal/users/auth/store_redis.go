// Copyright (c) 2026 Folio. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/folio/internal/platform/constants"
)

// RedisLoginThrottle implements [LoginThrottle] with one expiring counter per key.
type RedisLoginThrottle struct {
	client redis.Cmdable
}

// NewLoginThrottle creates a new Redis-backed LoginThrottle.
func NewLoginThrottle(client redis.Cmdable) *RedisLoginThrottle {
	return &RedisLoginThrottle{client: client}
}

func loginFailureKey(key string) string {
	return constants.RedisPrefixLoginFailures + key
}

/*
Failures reads the counter and its remaining TTL in one round trip.

Parameters:
  - context: context.Context
  - key: string (normalized username)

Returns:
  - int: Failures in the open window
  - time.Duration: Time until the window closes
  - error: Connectivity errors
*/
func (throttle *RedisLoginThrottle) Failures(context context.Context, key string) (int, time.Duration, error) {
	redisKey := loginFailureKey(key)

	pipe := throttle.client.Pipeline()
	countCmd := pipe.Get(context, redisKey)
	ttlCmd := pipe.PTTL(context, redisKey)

	if _, err := pipe.Exec(context); err != nil && !errors.Is(err, redis.Nil) {
		return 0, 0, fmt.Errorf("redis_login_throttle_get_failed: %w", err)
	}

	count, err := countCmd.Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, 0, nil
		}
		return 0, 0, fmt.Errorf("redis_login_throttle_get_failed: %w", err)
	}

	ttl := ttlCmd.Val()
	if ttl < 0 {
		ttl = 0
	}

	return count, ttl, nil
}

/*
RecordFailure increments the counter. The first failure of a window sets its expiry.

Description: A counter found without an expiry (left behind by an interrupted
call) is given one too, so a key can never lock a username forever.

Parameters:
  - context: context.Context
  - key: string
  - window: time.Duration

Returns:
  - int: The new failure count
  - error: Connectivity errors
*/
func (throttle *RedisLoginThrottle) RecordFailure(context context.Context, key string, window time.Duration) (int, error) {
	redisKey := loginFailureKey(key)

	pipe := throttle.client.Pipeline()
	incrCmd := pipe.Incr(context, redisKey)
	ttlCmd := pipe.PTTL(context, redisKey)

	if _, err := pipe.Exec(context); err != nil {
		return 0, fmt.Errorf("redis_login_throttle_incr_failed: %w", err)
	}

	count := incrCmd.Val()
	if count == 1 || ttlCmd.Val() < 0 {
		if err := throttle.client.PExpire(context, redisKey, window).Err(); err != nil {
			return 0, fmt.Errorf("redis_login_throttle_expire_failed: %w", err)
		}
	}

	return int(count), nil
}

// Reset clears the counter for key.
func (throttle *RedisLoginThrottle) Reset(context context.Context, key string) error {
	if err := throttle.client.Del(context, loginFailureKey(key)).Err(); err != nil {
		return fmt.Errorf("redis_login_throttle_reset_failed: %w", err)
	}
	return nil
}
