package redis

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the claim only if it still belongs to the caller.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// AttemptGuard marks live quiz connections in Redis so that every instance
// behind the load balancer sees the same claim. Claims expire after ttl in
// case an instance dies without releasing.
type AttemptGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewAttemptGuard(client *redis.Client, ttl time.Duration) *AttemptGuard {
	return &AttemptGuard{client: client, ttl: ttl}
}

func (g *AttemptGuard) Claim(ctx context.Context, quizID int64, holder string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(quizID), holder, g.ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		return true, nil
	}
	// Re-claiming by the same holder refreshes the expiry.
	current, err := g.client.Get(ctx, g.key(quizID)).Result()
	if err == redis.Nil {
		return g.Claim(ctx, quizID, holder)
	}
	if err != nil || current != holder {
		return false, err
	}
	return true, g.client.Expire(ctx, g.key(quizID), g.ttl).Err()
}

func (g *AttemptGuard) Release(ctx context.Context, quizID int64, holder string) error {
	return releaseScript.Run(ctx, g.client, []string{g.key(quizID)}, holder).Err()
}

func (g *AttemptGuard) key(quizID int64) string {
	return "quiz:live:" + strconv.FormatInt(quizID, 10)
}
