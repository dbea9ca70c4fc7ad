package memory

import (
	"context"
	"sync"

	"reading-quiz-service/internal/domain"
)

// QuizStore is an in-memory implementation of app.QuizStore. A single mutex
// serializes UpdateQuiz, which is enough for one process.
type QuizStore struct {
	mu      sync.Mutex
	nextID  int64
	quizzes map[int64]domain.Quiz
}

func NewQuizStore() *QuizStore {
	return &QuizStore{quizzes: make(map[int64]domain.Quiz)}
}

func (s *QuizStore) CreateQuiz(_ context.Context, quiz *domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	quiz.ID = s.nextID
	s.quizzes[quiz.ID] = cloneQuiz(*quiz)
	return nil
}

func (s *QuizStore) GetQuiz(_ context.Context, id int64) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return cloneQuiz(quiz), nil
}

func (s *QuizStore) UpdateQuiz(_ context.Context, id int64, mutate func(*domain.Quiz) error) (domain.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	quiz := cloneQuiz(stored)
	if err := mutate(&quiz); err != nil {
		return domain.Quiz{}, err
	}
	s.quizzes[id] = cloneQuiz(quiz)
	return quiz, nil
}

func cloneQuiz(q domain.Quiz) domain.Quiz {
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.Options = append([]string(nil), question.Options...)
		questions[i] = question
	}
	q.Questions = questions
	q.Answers = append([]domain.Answer{}, q.Answers...)
	return q
}
