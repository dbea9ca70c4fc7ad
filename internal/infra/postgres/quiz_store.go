package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"reading-quiz-service/internal/domain"
)

// QuizStore persists quizzes with bun. UpdateQuiz holds a row lock for the
// duration of the mutation, so concurrent submissions on one quiz serialize.
type QuizStore struct {
	db *bun.DB
}

func NewQuizStore(db *bun.DB) *QuizStore {
	return &QuizStore{db: db}
}

func (s *QuizStore) CreateQuiz(ctx context.Context, quiz *domain.Quiz) error {
	row := newQuizRow(*quiz)
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("insert quiz: %w", err)
	}
	quiz.ID = row.ID
	return nil
}

func (s *QuizStore) GetQuiz(ctx context.Context, id int64) (domain.Quiz, error) {
	row := new(quizRow)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quiz{}, domain.ErrQuizNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	return row.toDomain(), nil
}

func (s *QuizStore) UpdateQuiz(ctx context.Context, id int64, mutate func(*domain.Quiz) error) (domain.Quiz, error) {
	var updated domain.Quiz
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row := new(quizRow)
		if err := tx.NewSelect().Model(row).Where("id = ?", id).For("UPDATE").Scan(ctx); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrQuizNotFound
			}
			return fmt.Errorf("lock quiz: %w", err)
		}

		quiz := row.toDomain()
		if err := mutate(&quiz); err != nil {
			return err
		}
		_, err := tx.NewUpdate().
			Model(newQuizRow(quiz)).
			Column("answers", "current_question", "status").
			WherePK().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("update quiz: %w", err)
		}
		updated = quiz
		return nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return updated, nil
}
