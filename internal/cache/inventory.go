package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	PrincipalKeyPrefix = "principal:%d"
	TokenBlacklistKey  = "jwt:blacklist:%s"
)

const PrincipalTTL = 5 * time.Minute

func PrincipalKey(userID uint) string {
	return fmt.Sprintf(PrincipalKeyPrefix, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(TokenBlacklistKey, jti)
}

// Invalidate deletes keys, ignoring a nil client.
func Invalidate(ctx context.Context, rdb *redis.Client, keys ...string) {
	if rdb == nil || len(keys) == 0 {
		return
	}
	rdb.Del(ctx, keys...)
}

// InvalidatePrincipals drops cached principals for every listed user.
func InvalidatePrincipals(ctx context.Context, rdb *redis.Client, userIDs ...uint) {
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, PrincipalKey(id))
	}
	Invalidate(ctx, rdb, keys...)
}
