package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"reading-quiz-service/internal/domain"
)

// offerScript raises a user's score and records when it was reached in one step.
var offerScript = redis.NewScript(`
local changed = redis.call("ZADD", KEYS[1], "GT", "CH", ARGV[1], ARGV[2])
if changed == 1 then
	redis.call("HSET", KEYS[2], ARGV[2], ARGV[3])
end
return changed
`)

// ScoreIndex keeps every user's best score per leaderboard in Redis sorted sets.
//
//	ZADD ranking:{board} GT CH {score} {userID}
//	HSET ranking:{board}:at {userID} {createdAt unix nanos}
//
// GT means a score only ever moves up, so an equal later result never
// displaces the earlier one and its timestamp.
type ScoreIndex struct {
	client *redis.Client
	prefix string
}

func NewScoreIndex(client *redis.Client) *ScoreIndex {
	return &ScoreIndex{client: client, prefix: "ranking:"}
}

func (s *ScoreIndex) Offer(ctx context.Context, board domain.Board, entry domain.RankingEntry) error {
	member := strconv.FormatInt(entry.UserID, 10)
	keys := []string{s.scoresKey(board), s.timesKey(board)}
	score := strconv.FormatFloat(entry.Score, 'g', -1, 64)
	if err := offerScript.Run(ctx, s.client, keys, score, member, entry.CreatedAt.UnixNano()).Err(); err != nil {
		return fmt.Errorf("offer %s: %w", board.Key(), err)
	}
	return nil
}

// Leaders returns up to limit best entries (unranked) and the board size.
func (s *ScoreIndex) Leaders(ctx context.Context, board domain.Board, limit int) ([]domain.RankingEntry, int, error) {
	key := s.scoresKey(board)
	pipe := s.client.Pipeline()
	top := pipe.ZRevRangeWithScores(ctx, key, 0, int64(limit-1))
	card := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, 0, fmt.Errorf("read %s: %w", board.Key(), err)
	}

	zs := top.Val()
	if len(zs) == 0 {
		return []domain.RankingEntry{}, int(card.Val()), nil
	}
	members := make([]string, len(zs))
	for i, z := range zs {
		members[i] = z.Member.(string)
	}
	times, err := s.client.HMGet(ctx, s.timesKey(board), members...).Result()
	if err != nil {
		return nil, 0, fmt.Errorf("read %s timestamps: %w", board.Key(), err)
	}

	entries := make([]domain.RankingEntry, 0, len(zs))
	for i, z := range zs {
		id, err := strconv.ParseInt(members[i], 10, 64)
		if err != nil {
			continue
		}
		entries = append(entries, domain.RankingEntry{
			UserID:    id,
			Score:     z.Score,
			CreatedAt: parseNanos(times[i]),
		})
	}
	return entries, int(card.Val()), nil
}

// Standing returns the user's ranked entry; ok is false if the user is not on the board.
func (s *ScoreIndex) Standing(ctx context.Context, board domain.Board, userID int64) (domain.RankingEntry, bool, error) {
	key := s.scoresKey(board)
	member := strconv.FormatInt(userID, 10)
	score, err := s.client.ZScore(ctx, key, member).Result()
	if errors.Is(err, redis.Nil) {
		return domain.RankingEntry{}, false, nil
	}
	if err != nil {
		return domain.RankingEntry{}, false, fmt.Errorf("zscore %s: %w", board.Key(), err)
	}

	// Dense rank: one plus the number of strictly higher scores.
	higher, err := s.client.ZCount(ctx, key, "("+strconv.FormatFloat(score, 'g', -1, 64), "+inf").Result()
	if err != nil {
		return domain.RankingEntry{}, false, fmt.Errorf("zcount %s: %w", board.Key(), err)
	}
	at, err := s.client.HGet(ctx, s.timesKey(board), member).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.RankingEntry{}, false, err
	}
	rank := int(higher) + 1
	return domain.RankingEntry{
		UserID:    userID,
		Score:     score,
		Rank:      &rank,
		CreatedAt: parseNanos(at),
	}, true, nil
}

// Reset drops every leaderboard key.
func (s *ScoreIndex) Reset(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

func (s *ScoreIndex) scoresKey(board domain.Board) string {
	return s.prefix + board.Key()
}

func (s *ScoreIndex) timesKey(board domain.Board) string {
	return s.prefix + board.Key() + ":at"
}

func parseNanos(v interface{}) time.Time {
	str, ok := v.(string)
	if !ok {
		return time.Time{}
	}
	n, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
