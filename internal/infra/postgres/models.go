package postgres

import (
	"time"

	"github.com/uptrace/bun"
	"reading-quiz-service/internal/domain"
)

type userRow struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID               int64     `bun:"id,pk,autoincrement"`
	Email            string    `bun:"email,notnull"`
	PasswordHash     string    `bun:"password_hash,notnull"`
	Nickname         string    `bun:"nickname,notnull"`
	Age              int       `bun:"age,notnull"`
	ImageURI         string    `bun:"image_uri,notnull"`
	Role             string    `bun:"role,notnull"`
	ParentID         *int64    `bun:"parent_id"`
	RefreshTokenHash string    `bun:"refresh_token_hash,notnull"`
	CreatedAt        time.Time `bun:"created_at,notnull"`
}

func newUserRow(u domain.User) *userRow {
	return &userRow{
		ID:               u.ID,
		Email:            u.Email,
		PasswordHash:     u.PasswordHash,
		Nickname:         u.Nickname,
		Age:              u.Age,
		ImageURI:         u.ImageURI,
		Role:             string(u.Role),
		ParentID:         u.ParentID,
		RefreshTokenHash: u.RefreshTokenHash,
		CreatedAt:        u.CreatedAt,
	}
}

func (r *userRow) toDomain() domain.User {
	return domain.User{
		ID:               r.ID,
		Email:            r.Email,
		PasswordHash:     r.PasswordHash,
		Nickname:         r.Nickname,
		Age:              r.Age,
		ImageURI:         r.ImageURI,
		Role:             domain.Role(r.Role),
		ParentID:         r.ParentID,
		RefreshTokenHash: r.RefreshTokenHash,
		CreatedAt:        r.CreatedAt,
	}
}

// quizRow stores questions and answers as JSONB; they are only ever read and
// written together with the quiz.
type quizRow struct {
	bun.BaseModel `bun:"table:quizzes,alias:q"`

	ID              int64             `bun:"id,pk,autoincrement"`
	UserID          int64             `bun:"user_id,notnull"`
	Passage         string            `bun:"passage,notnull"`
	Questions       []domain.Question `bun:"questions,type:jsonb,notnull"`
	Answers         []domain.Answer   `bun:"answers,type:jsonb,notnull"`
	TotalQuestions  int               `bun:"total_questions,notnull"`
	CurrentQuestion int               `bun:"current_question,notnull"`
	Status          string            `bun:"status,notnull"`
	CreatedAt       time.Time         `bun:"created_at,notnull"`
}

func newQuizRow(q domain.Quiz) *quizRow {
	answers := q.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}
	return &quizRow{
		ID:              q.ID,
		UserID:          q.UserID,
		Passage:         q.Passage,
		Questions:       q.Questions,
		Answers:         answers,
		TotalQuestions:  q.TotalQuestions,
		CurrentQuestion: q.CurrentQuestion,
		Status:          string(q.Status),
		CreatedAt:       q.CreatedAt,
	}
}

func (r *quizRow) toDomain() domain.Quiz {
	answers := r.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}
	return domain.Quiz{
		ID:              r.ID,
		UserID:          r.UserID,
		Passage:         r.Passage,
		Questions:       r.Questions,
		Answers:         answers,
		TotalQuestions:  r.TotalQuestions,
		CurrentQuestion: r.CurrentQuestion,
		Status:          domain.QuizStatus(r.Status),
		CreatedAt:       r.CreatedAt,
	}
}

type resultRow struct {
	bun.BaseModel `bun:"table:quiz_results,alias:r"`

	ID               int64                   `bun:"id,pk,autoincrement"`
	QuizID           int64                   `bun:"quiz_id,notnull"`
	UserID           int64                   `bun:"user_id,notnull"`
	TotalQuestions   int                     `bun:"total_questions,notnull"`
	CorrectAnswers   int                     `bun:"correct_answers,notnull"`
	CategoryAnalysis domain.CategoryAnalysis `bun:"category_analysis,type:jsonb,notnull"`
	OverallScore     float64                 `bun:"overall_score,notnull"`
	CreatedAt        time.Time               `bun:"created_at,notnull"`
}

func newResultRow(r domain.QuizResult) *resultRow {
	return &resultRow{
		ID:               r.ID,
		QuizID:           r.QuizID,
		UserID:           r.UserID,
		TotalQuestions:   r.TotalQuestions,
		CorrectAnswers:   r.CorrectAnswers,
		CategoryAnalysis: r.CategoryAnalysis,
		OverallScore:     r.OverallScore,
		CreatedAt:        r.CreatedAt,
	}
}

func (r *resultRow) toDomain() domain.QuizResult {
	return domain.QuizResult{
		ID:               r.ID,
		QuizID:           r.QuizID,
		UserID:           r.UserID,
		TotalQuestions:   r.TotalQuestions,
		CorrectAnswers:   r.CorrectAnswers,
		CategoryAnalysis: r.CategoryAnalysis,
		OverallScore:     r.OverallScore,
		CreatedAt:        r.CreatedAt,
	}
}
