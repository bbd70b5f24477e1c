// Package ratelimit guards the per-company daily request quota with a
// redis counter in front of the database usage row.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/Ethronics/ecosnap-sub001/internal/config"
	"github.com/Ethronics/ecosnap-sub001/internal/usage/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// counterTTL keeps stale day buckets from accumulating. Two days covers
// every timezone skew around the UTC day boundary.
const counterTTL = 48 * time.Hour

type Limiter struct {
	rdb *redis.Client
	log *zap.Logger
	now func() time.Time
}

type LimiterParam struct {
	fx.In

	Redis *redis.Client `optional:"true"`
	Log   *zap.Logger
}

func NewLimiter(p LimiterParam) *Limiter {
	return &Limiter{
		rdb: p.Redis,
		log: p.Log.Named("ratelimit"),
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Allow increments the company's counter for the current UTC day and
// reports whether it is still within limit. Without redis, or when redis
// is unreachable, the request passes; the database counter remains the
// authority.
func (l *Limiter) Allow(ctx context.Context, companyID snowflake.ID, limit int64) (bool, error) {
	if l == nil || l.rdb == nil || limit <= 0 {
		return true, nil
	}

	key := fmt.Sprintf("requests:%s:%s", companyID.String(), l.now().Format(domain.DayFormat))
	count, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		l.log.Warn("redis increment failed", zap.String("key", key), zap.Error(err))
		return true, nil
	}
	if count == 1 {
		if err := l.rdb.Expire(ctx, key, counterTTL).Err(); err != nil {
			l.log.Warn("redis expire failed", zap.String("key", key), zap.Error(err))
		}
	}
	return count <= limit, nil
}

// NewRedis builds the shared redis client, or nil when no address is
// configured.
func NewRedis(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if cfg.RedisAddr == "" {
		log.Named("ratelimit").Info("redis not configured, quota precheck disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return rdb.Close()
		},
	})
	return rdb
}
