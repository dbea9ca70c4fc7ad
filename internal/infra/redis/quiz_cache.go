package redis

import (
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/domain"
)

// storeScript writes a cached quiz unless the copy already in Redis has more
// answers. A reader that loaded the row before a concurrent update committed
// can therefore never overwrite the newer copy.
var storeScript = redis.NewScript(`
local v = redis.call("HGET", KEYS[1], "v")
if v and tonumber(v) > tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "v", ARGV[1], "quiz", ARGV[2])
if tonumber(ARGV[3]) > 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[3])
else
	redis.call("PERSIST", KEYS[1])
end
return 1
`)

// QuizCache is a read-through cache in front of a durable app.QuizStore.
// Quizzes are cached under quiz:{id} as a hash of the JSON body and its answer
// count, with a jittered TTL. Every write goes to the backing store first and
// then refreshes the cached copy.
type QuizCache struct {
	client  *redis.Client
	backing app.QuizStore
	ttl     time.Duration
	sf      singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCache(client *redis.Client, backing app.QuizStore, ttl time.Duration) *QuizCache {
	return &QuizCache{
		client:  client,
		backing: backing,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCache) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	if err := c.backing.CreateQuiz(ctx, quiz); err != nil {
		return err
	}
	c.store(ctx, *quiz)
	return nil
}

func (c *QuizCache) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, id); ok {
		return quiz, nil
	}

	key := strconv.FormatInt(id, 10)
	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cached(ctx, id); ok {
			return quiz, nil
		}
		quiz, err := c.backing.GetQuiz(ctx, id)
		if err != nil {
			return domain.Quiz{}, err
		}
		c.store(ctx, quiz)
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// UpdateQuiz delegates serialization to the backing store. The cached copy is
// dropped before the write so a failed refresh can never serve stale answers.
func (c *QuizCache) UpdateQuiz(ctx context.Context, id int64, mutate func(*domain.Quiz) error) (domain.Quiz, error) {
	if err := c.client.Del(ctx, c.key(id)).Err(); err != nil {
		log.Printf("quiz cache: evict %d: %v", id, err)
	}
	quiz, err := c.backing.UpdateQuiz(ctx, id, mutate)
	if err != nil {
		return domain.Quiz{}, err
	}
	c.store(ctx, quiz)
	return quiz, nil
}

func (c *QuizCache) cached(ctx context.Context, id int64) (domain.Quiz, bool) {
	raw, err := c.client.HGet(ctx, c.key(id), "quiz").Bytes()
	if err != nil {
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

// store is best-effort: the backing store stays the source of truth.
func (c *QuizCache) store(ctx context.Context, quiz domain.Quiz) {
	raw, err := json.Marshal(quiz)
	if err != nil {
		return
	}
	version := len(quiz.Answers)
	ttl := c.ttlWithJitter().Milliseconds()
	if err := storeScript.Run(ctx, c.client, []string{c.key(quiz.ID)}, version, raw, ttl).Err(); err != nil {
		log.Printf("quiz cache: store %d: %v", quiz.ID, err)
	}
}

func (c *QuizCache) key(id int64) string {
	return "quiz:" + strconv.FormatInt(id, 10)
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
