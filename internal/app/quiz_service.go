package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"reading-quiz-service/internal/domain"
)

// UserDirectory resolves quiz owners and students.
type UserDirectory interface {
	GetUser(ctx context.Context, id int64) (domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// QuizStore persists quiz attempts. UpdateQuiz must serialize mutations of the
// same quiz (row lock or mutex) and persist the quiz only if mutate succeeds.
type QuizStore interface {
	CreateQuiz(ctx context.Context, quiz *domain.Quiz) error
	GetQuiz(ctx context.Context, id int64) (domain.Quiz, error)
	UpdateQuiz(ctx context.Context, id int64, mutate func(*domain.Quiz) error) (domain.Quiz, error)
}

// ResultStore persists quiz results, at most one per quiz (ErrResultExists otherwise).
type ResultStore interface {
	CreateResult(ctx context.Context, result *domain.QuizResult) error
	GetResultByQuiz(ctx context.Context, quizID int64) (domain.QuizResult, error)
	ListResultsByUser(ctx context.Context, userID int64) ([]domain.QuizResult, error)
}

// QuestionGenerator produces a passage and the question set for a new quiz.
type QuestionGenerator interface {
	Generate(ctx context.Context, age int, category domain.Category) (string, []domain.Question, error)
}

// ScoreRecorder is notified of every new result (e.g. to maintain a ranking index).
type ScoreRecorder interface {
	Record(ctx context.Context, result domain.QuizResult) error
}

// QuizService contains the quiz lifecycle use cases.
type QuizService struct {
	quizzes   QuizStore
	results   ResultStore
	users     UserDirectory
	generator QuestionGenerator
	scores    ScoreRecorder
	now       func() time.Time
}

// QuizOption customizes a QuizService.
type QuizOption func(*QuizService)

// WithScoreRecorder forwards new results to r.
func WithScoreRecorder(r ScoreRecorder) QuizOption {
	return func(s *QuizService) { s.scores = r }
}

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) QuizOption {
	return func(s *QuizService) { s.now = now }
}

func NewQuizService(quizzes QuizStore, results ResultStore, users UserDirectory, generator QuestionGenerator, opts ...QuizOption) *QuizService {
	s := &QuizService{
		quizzes:   quizzes,
		results:   results,
		users:     users,
		generator: generator,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateQuiz generates a new quiz for the user in the given category.
func (s *QuizService) CreateQuiz(ctx context.Context, userID int64, category string) (domain.Quiz, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.Quiz{}, err
	}
	cat, err := domain.ParseCategory(category)
	if err != nil {
		return domain.Quiz{}, err
	}

	passage, questions, err := s.generator.Generate(ctx, user.Age, cat)
	if err != nil {
		if errors.Is(err, domain.ErrGenerationFailure) {
			return domain.Quiz{}, err
		}
		return domain.Quiz{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailure, err)
	}
	if len(questions) != domain.TotalQuestions {
		return domain.Quiz{}, fmt.Errorf("%w: expected %d questions, got %d", domain.ErrGenerationFailure, domain.TotalQuestions, len(questions))
	}

	quiz := domain.Quiz{
		UserID:          user.ID,
		Passage:         passage,
		Questions:       questions,
		Answers:         []domain.Answer{},
		TotalQuestions:  domain.TotalQuestions,
		CurrentQuestion: 0,
		Status:          domain.StatusInProgress,
		CreatedAt:       s.now(),
	}
	if err := s.quizzes.CreateQuiz(ctx, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	log.Printf("quiz %d created for user %d (category=%s)", quiz.ID, user.ID, cat)
	return quiz, nil
}

// SubmitAnswer records one answer and, on the last one, produces the quiz result.
func (s *QuizService) SubmitAnswer(ctx context.Context, quizID int64, questionID int, answer string) (domain.AnswerOutcome, error) {
	var outcome domain.AnswerOutcome
	quiz, err := s.quizzes.UpdateQuiz(ctx, quizID, func(q *domain.Quiz) error {
		var err error
		outcome, err = recordAnswer(q, questionID, answer)
		return err
	})
	if err != nil {
		return domain.AnswerOutcome{}, err
	}
	if !outcome.Completed {
		return outcome, nil
	}

	user, err := s.users.GetUser(ctx, quiz.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		// The quiz stays completed; there is nobody to attribute a result to.
		log.Printf("quiz %d completed but user %d is gone; skipping result", quiz.ID, quiz.UserID)
		return outcome, nil
	}
	if err != nil {
		return outcome, fmt.Errorf("load quiz owner: %w", err)
	}
	if err := s.generateResult(ctx, quiz, user); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// GetQuiz returns a quiz by id.
func (s *QuizService) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	return s.quizzes.GetQuiz(ctx, quizID)
}

// GetResult returns the result of a completed quiz.
func (s *QuizService) GetResult(ctx context.Context, quizID int64) (domain.QuizResult, error) {
	return s.results.GetResultByQuiz(ctx, quizID)
}

// StudentProgress lists every result of the student with the given email.
func (s *QuizService) StudentProgress(ctx context.Context, studentEmail string) ([]domain.QuizResult, error) {
	student, err := s.student(ctx, studentEmail)
	if err != nil {
		return nil, err
	}
	return s.results.ListResultsByUser(ctx, student.ID)
}

// StudentBestScores returns, per answered category, the best score across all
// results. Any account may be looked up; one without results gets an empty map.
func (s *QuizService) StudentBestScores(ctx context.Context, studentEmail string) (map[domain.Category]float64, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(studentEmail))
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListResultsByUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return bestScores(results), nil
}

func (s *QuizService) student(ctx context.Context, email string) (domain.User, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) || (err == nil && user.Role != domain.RoleStudent) {
		return domain.User{}, domain.ErrStudentNotFound
	}
	return user, err
}

func (s *QuizService) generateResult(ctx context.Context, quiz domain.Quiz, user domain.User) error {
	result := buildResult(quiz, user.ID, s.now())
	err := s.results.CreateResult(ctx, &result)
	if errors.Is(err, domain.ErrResultExists) {
		log.Printf("result for quiz %d already exists", quiz.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("save quiz result: %w", err)
	}
	if s.scores != nil {
		if err := s.scores.Record(ctx, result); err != nil {
			// The store stays the source of truth; the index is rebuilt on reindex.
			log.Printf("ranking index update for quiz %d failed: %v", quiz.ID, err)
		}
	}
	return nil
}

// recordAnswer validates a submission against the quiz and applies it.
func recordAnswer(q *domain.Quiz, questionID int, answer string) (domain.AnswerOutcome, error) {
	if q.Status == domain.StatusCompleted {
		return domain.AnswerOutcome{}, domain.ErrQuizCompleted
	}
	question, ok := q.Question(questionID)
	if !ok {
		return domain.AnswerOutcome{}, domain.ErrQuestionNotFound
	}
	if q.Answered(questionID) {
		return domain.AnswerOutcome{}, domain.ErrAlreadyAnswered
	}

	// Exact match: the generator's canonical answer format is the contract.
	isCorrect := question.CorrectAnswer == answer
	q.Answers = append(q.Answers, domain.Answer{
		QuestionID: questionID,
		UserAnswer: answer,
		IsCorrect:  isCorrect,
		Category:   question.Category,
	})
	q.CurrentQuestion++

	completed := q.CurrentQuestion >= q.TotalQuestions
	if completed {
		q.Status = domain.StatusCompleted
	}
	return domain.AnswerOutcome{
		IsCorrect: isCorrect,
		Progress:  float64(q.CurrentQuestion) / float64(domain.TotalQuestions) * 100,
		Completed: completed,
	}, nil
}

func buildResult(quiz domain.Quiz, userID int64, now time.Time) domain.QuizResult {
	var analysis domain.CategoryAnalysis
	correct := 0
	for _, a := range quiz.Answers {
		if a.IsCorrect {
			correct++
		}
		analysis.Record(a.Category, a.IsCorrect)
	}
	return domain.QuizResult{
		QuizID:           quiz.ID,
		UserID:           userID,
		TotalQuestions:   quiz.TotalQuestions,
		CorrectAnswers:   correct,
		CategoryAnalysis: analysis,
		OverallScore:     float64(correct) / float64(quiz.TotalQuestions) * 100,
		CreatedAt:        now,
	}
}

func bestScores(results []domain.QuizResult) map[domain.Category]float64 {
	best := make(map[domain.Category]float64)
	for _, r := range results {
		for _, c := range r.CategoryAnalysis.Present() {
			st, _ := r.CategoryAnalysis.Get(c)
			if cur, ok := best[c]; !ok || cur < st.Score {
				best[c] = st.Score
			}
		}
	}
	return best
}
