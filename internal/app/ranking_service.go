package app

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/singleflight"
	"reading-quiz-service/internal/domain"
)

// DefaultRankingLimit caps the number of rows returned per leaderboard.
const DefaultRankingLimit = 100

// RankingSource scans every stored result joined with its owner's nickname.
type RankingSource interface {
	ScanResults(ctx context.Context) ([]domain.ScoredResult, error)
}

// NicknameLookup resolves display names for index-backed rankings.
type NicknameLookup interface {
	Nicknames(ctx context.Context, ids []int64) (map[int64]string, error)
}

// ScoreIndex keeps each user's best score per board, incrementally.
// Offer keeps the existing entry unless the new score is strictly higher.
type ScoreIndex interface {
	Offer(ctx context.Context, board domain.Board, entry domain.RankingEntry) error
	Leaders(ctx context.Context, board domain.Board, limit int) ([]domain.RankingEntry, int, error)
	Standing(ctx context.Context, board domain.Board, userID int64) (domain.RankingEntry, bool, error)
	Reset(ctx context.Context) error
}

// RankingService computes category and overall leaderboards.
type RankingService struct {
	source RankingSource
	names  NicknameLookup
	index  ScoreIndex
	limit  int
	now    func() time.Time
	sf     singleflight.Group
}

// RankingOption customizes a RankingService.
type RankingOption func(*RankingService)

// WithScoreIndex serves rankings from an incrementally maintained index instead
// of rescanning all results.
func WithScoreIndex(index ScoreIndex) RankingOption {
	return func(s *RankingService) { s.index = index }
}

// WithRankingLimit overrides DefaultRankingLimit.
func WithRankingLimit(limit int) RankingOption {
	return func(s *RankingService) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// WithRankingClock is used by tests for deterministic placeholder timestamps.
func WithRankingClock(now func() time.Time) RankingOption {
	return func(s *RankingService) { s.now = now }
}

func NewRankingService(source RankingSource, names NicknameLookup, opts ...RankingOption) *RankingService {
	s := &RankingService{
		source: source,
		names:  names,
		limit:  DefaultRankingLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CategoryRanking ranks users by their best score in a category.
func (s *RankingService) CategoryRanking(ctx context.Context, category string, userID int64) (domain.Ranking, error) {
	cat, err := domain.ParseCategory(category)
	if err != nil {
		return domain.Ranking{}, err
	}
	return s.ranking(ctx, domain.CategoryBoard(cat), userID)
}

// OverallRanking ranks users by their best overall score.
func (s *RankingService) OverallRanking(ctx context.Context, userID int64) (domain.Ranking, error) {
	return s.ranking(ctx, domain.OverallBoard(), userID)
}

// Record offers a new result to the index, if one is configured.
func (s *RankingService) Record(ctx context.Context, result domain.QuizResult) error {
	if s.index == nil {
		return nil
	}
	for _, board := range domain.Boards() {
		score, ok := board.Score(result.CategoryAnalysis, result.OverallScore)
		if !ok {
			continue
		}
		entry := domain.RankingEntry{UserID: result.UserID, Score: score, CreatedAt: result.CreatedAt}
		if err := s.index.Offer(ctx, board, entry); err != nil {
			return err
		}
	}
	return nil
}

// Rebuild repopulates the index from the result store and returns the number
// of results replayed.
func (s *RankingService) Rebuild(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	results, err := s.source.ScanResults(ctx)
	if err != nil {
		return 0, err
	}
	if err := s.index.Reset(ctx); err != nil {
		return 0, err
	}
	// Oldest first, so an equal later score never displaces the earlier one.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].CreatedAt.Before(results[j].CreatedAt)
	})
	for _, r := range results {
		if err := s.Record(ctx, domain.QuizResult{
			UserID:           r.UserID,
			CategoryAnalysis: r.CategoryAnalysis,
			OverallScore:     r.OverallScore,
			CreatedAt:        r.CreatedAt,
		}); err != nil {
			return 0, err
		}
	}
	return len(results), nil
}

func (s *RankingService) ranking(ctx context.Context, board domain.Board, userID int64) (domain.Ranking, error) {
	if s.index != nil {
		return s.indexedRanking(ctx, board, userID)
	}

	// Shared by all waiting callers; detached from the starter's cancellation.
	scanCtx := context.WithoutCancel(ctx)
	v, err, _ := s.sf.Do(board.Key(), func() (interface{}, error) {
		results, err := s.source.ScanResults(scanCtx)
		if err != nil {
			return nil, err
		}
		return rankBoard(board, results), nil
	})
	if err != nil {
		return domain.Ranking{}, err
	}
	ranked := v.([]domain.RankingEntry)

	current := s.placeholder(userID)
	for _, e := range ranked {
		if e.UserID == userID {
			current = e
			break
		}
	}
	top := ranked
	if len(top) > s.limit {
		top = top[:s.limit]
	}
	rows := make([]domain.RankingEntry, len(top))
	copy(rows, top)
	return domain.Ranking{CurrentUser: current, Rankings: rows, TotalParticipants: len(ranked)}, nil
}

func (s *RankingService) indexedRanking(ctx context.Context, board domain.Board, userID int64) (domain.Ranking, error) {
	top, total, err := s.index.Leaders(ctx, board, s.limit)
	if err != nil {
		return domain.Ranking{}, err
	}
	sortEntries(top)
	assignDenseRanks(top)

	current, ok, err := s.index.Standing(ctx, board, userID)
	if err != nil {
		return domain.Ranking{}, err
	}
	if !ok {
		current = s.placeholder(userID)
	}

	ids := make([]int64, 0, len(top)+1)
	for _, e := range top {
		ids = append(ids, e.UserID)
	}
	if ok {
		ids = append(ids, userID)
	}
	names, err := s.names.Nicknames(ctx, ids)
	if err != nil {
		return domain.Ranking{}, err
	}
	for i := range top {
		top[i].Nickname = names[top[i].UserID]
	}
	if ok {
		current.Nickname = names[userID]
	}
	if top == nil {
		top = []domain.RankingEntry{}
	}
	return domain.Ranking{CurrentUser: current, Rankings: top, TotalParticipants: total}, nil
}

func (s *RankingService) placeholder(userID int64) domain.RankingEntry {
	return domain.RankingEntry{UserID: userID, CreatedAt: s.now()}
}

// rankBoard keeps each user's best entry on the board, sorts and ranks them.
func rankBoard(board domain.Board, results []domain.ScoredResult) []domain.RankingEntry {
	entries := bestPerUser(board, results)
	sortEntries(entries)
	assignDenseRanks(entries)
	return entries
}

// bestPerUser keeps the highest score per user; ties keep the earliest result.
func bestPerUser(board domain.Board, results []domain.ScoredResult) []domain.RankingEntry {
	index := make(map[int64]int)
	var out []domain.RankingEntry
	for _, r := range results {
		score, ok := board.Score(r.CategoryAnalysis, r.OverallScore)
		if !ok {
			continue
		}
		entry := domain.RankingEntry{
			UserID:    r.UserID,
			Nickname:  r.Nickname,
			Score:     score,
			CreatedAt: r.CreatedAt,
		}
		i, seen := index[r.UserID]
		if !seen {
			index[r.UserID] = len(out)
			out = append(out, entry)
			continue
		}
		cur := out[i]
		if score > cur.Score || (score == cur.Score && r.CreatedAt.Before(cur.CreatedAt)) {
			out[i] = entry
		}
	}
	return out
}

// sortEntries orders by score desc, then earlier result, then user id.
func sortEntries(entries []domain.RankingEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		if !entries[i].CreatedAt.Equal(entries[j].CreatedAt) {
			return entries[i].CreatedAt.Before(entries[j].CreatedAt)
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// assignDenseRanks gives equal scores the same rank and otherwise the 1-based
// position, so [90 80 80 70] ranks as [1 2 2 4].
func assignDenseRanks(entries []domain.RankingEntry) {
	for i := range entries {
		rank := i + 1
		if i > 0 && entries[i].Score == entries[i-1].Score {
			rank = *entries[i-1].Rank
		}
		r := rank
		entries[i].Rank = &r
	}
}
