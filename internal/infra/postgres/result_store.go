package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"reading-quiz-service/internal/domain"
)

// ResultStore persists quiz results. The UNIQUE(quiz_id) constraint makes
// result creation idempotent per quiz.
type ResultStore struct {
	db *bun.DB
}

func NewResultStore(db *bun.DB) *ResultStore {
	return &ResultStore{db: db}
}

func (s *ResultStore) CreateResult(ctx context.Context, result *domain.QuizResult) error {
	row := newResultRow(*result)
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrResultExists
		}
		return fmt.Errorf("insert quiz result: %w", err)
	}
	result.ID = row.ID
	return nil
}

func (s *ResultStore) GetResultByQuiz(ctx context.Context, quizID int64) (domain.QuizResult, error) {
	row := new(resultRow)
	if err := s.db.NewSelect().Model(row).Where("quiz_id = ?", quizID).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.QuizResult{}, domain.ErrResultNotFound
		}
		return domain.QuizResult{}, fmt.Errorf("load quiz result: %w", err)
	}
	return row.toDomain(), nil
}

func (s *ResultStore) ListResultsByUser(ctx context.Context, userID int64) ([]domain.QuizResult, error) {
	var rows []resultRow
	err := s.db.NewSelect().Model(&rows).Where("user_id = ?", userID).Order("created_at ASC", "id ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list quiz results: %w", err)
	}
	out := make([]domain.QuizResult, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}
