package memory

import (
	"context"
	"sort"
	"sync"

	"reading-quiz-service/internal/domain"
)

// ResultStore is an in-memory implementation of app.ResultStore and
// app.RankingSource. Nicknames are joined from the user store on scan.
type ResultStore struct {
	users *UserStore

	mu      sync.RWMutex
	nextID  int64
	results []domain.QuizResult
}

func NewResultStore(users *UserStore) *ResultStore {
	return &ResultStore{users: users}
}

func (s *ResultStore) CreateResult(_ context.Context, result *domain.QuizResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.results {
		if r.QuizID == result.QuizID {
			return domain.ErrResultExists
		}
	}
	s.nextID++
	result.ID = s.nextID
	s.results = append(s.results, *result)
	return nil
}

func (s *ResultStore) GetResultByQuiz(_ context.Context, quizID int64) (domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.results {
		if r.QuizID == quizID {
			return r, nil
		}
	}
	return domain.QuizResult{}, domain.ErrResultNotFound
}

func (s *ResultStore) ListResultsByUser(_ context.Context, userID int64) ([]domain.QuizResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []domain.QuizResult{}
	for _, r := range s.results {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// ScanResults returns every result ordered by overall score desc, then oldest first.
func (s *ResultStore) ScanResults(ctx context.Context) ([]domain.ScoredResult, error) {
	s.mu.RLock()
	out := make([]domain.ScoredResult, 0, len(s.results))
	ids := make([]int64, 0, len(s.results))
	for _, r := range s.results {
		out = append(out, domain.ScoredResult{
			UserID:           r.UserID,
			CategoryAnalysis: r.CategoryAnalysis,
			OverallScore:     r.OverallScore,
			CreatedAt:        r.CreatedAt,
		})
		ids = append(ids, r.UserID)
	}
	s.mu.RUnlock()

	if s.users != nil {
		names, err := s.users.Nicknames(ctx, ids)
		if err != nil {
			return nil, err
		}
		for i := range out {
			out[i].Nickname = names[out[i].UserID]
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].OverallScore != out[j].OverallScore {
			return out[i].OverallScore > out[j].OverallScore
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}
