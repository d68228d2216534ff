// Package cache provides the Redis client, cache-aside helpers and the key
// inventory shared by every Redis user.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"safeguard/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// errorHook counts failed commands. redis.Nil is a cache miss, not a failure.
type errorHook struct{}

func (errorHook) DialHook(next redis.DialHook) redis.DialHook {
	return next
}

func (errorHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countError(cmd.Name(), err)
		return err
	}
}

func (errorHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countError("pipeline", err)
		return err
	}
}

func countError(op string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		middleware.RedisErrors.WithLabelValues(op).Inc()
	}
}

// ParseAddr accepts a redis:// or rediss:// URL or a bare host:port.
func ParseAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if strings.Contains(addr, "://") {
		return redis.ParseURL(addr)
	}
	return &redis.Options{Addr: addr}, nil
}

// InitRedis connects to addr and returns nil when Redis is not configured,
// malformed or unreachable; callers then run single-process.
func InitRedis(addr string) *redis.Client {
	log := middleware.Logger
	if strings.TrimSpace(addr) == "" {
		log.Info("redis not configured, continuing without it")
		return nil
	}
	opts, err := ParseAddr(addr)
	if err != nil {
		log.Warn("invalid REDIS_URL, continuing without redis", slog.String("error", err.Error()))
		return nil
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(errorHook{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, continuing without it",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = rdb.Close()
		return nil
	}
	log.Info("redis connected", slog.String("addr", opts.Addr))
	return rdb
}
