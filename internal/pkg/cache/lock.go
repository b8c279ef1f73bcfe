package cache

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only while it still carries our token, so
// an expired holder cannot release somebody else's lock.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short-lived exclusive locks stored in Redis.
type Locker struct {
	rdb *redis.Client
}

// NewLocker creates a Locker on rdb. A nil rdb uses the shared client.
func NewLocker(rdb *redis.Client) *Locker {
	if rdb == nil {
		rdb = GetClient()
	}
	return &Locker{rdb: rdb}
}

// Lock tries to take key for ttl. acquired is false when the key is held
// elsewhere. release is safe to call more than once.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	token := uuid.NewString()
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}

	released := false
	release := func() {
		if released {
			return
		}
		released = true
		// the caller's ctx may already be cancelled
		if err := releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err(); err != nil {
			log.Warnf("[Cache] release lock %s: %v", key, err)
		}
	}
	return release, true, nil
}
