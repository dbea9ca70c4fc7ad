package domain

import "time"

// TotalQuestions is the fixed size of every generated quiz.
const TotalQuestions = 10

// QuizStatus tracks the one-way lifecycle of a quiz attempt.
type QuizStatus string

const (
	StatusInProgress QuizStatus = "in_progress"
	StatusCompleted  QuizStatus = "completed"
)

// QuestionType distinguishes four-option questions from O/X questions.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
)

// Question is embedded in a quiz and never changes after creation.
type Question struct {
	ID            int          `json:"id"`
	Type          QuestionType `json:"type"`
	Prompt        string       `json:"question"`
	Options       []string     `json:"options"`
	CorrectAnswer string       `json:"correctAnswer,omitempty"`
	Category      Category     `json:"category"`
}

// Answer is appended once per question; IsCorrect and Category are snapshots.
type Answer struct {
	QuestionID int      `json:"questionId"`
	UserAnswer string   `json:"userAnswer"`
	IsCorrect  bool     `json:"isCorrect"`
	Category   Category `json:"category"`
}

// Quiz is a single reading-comprehension attempt owned by one user.
type Quiz struct {
	ID              int64      `json:"id"`
	UserID          int64      `json:"userId"`
	Passage         string     `json:"passage"`
	Questions       []Question `json:"questions"`
	Answers         []Answer   `json:"answers"`
	TotalQuestions  int        `json:"totalQuestions"`
	CurrentQuestion int        `json:"currentQuestion"`
	Status          QuizStatus `json:"status"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// Question looks up an embedded question by id.
func (q *Quiz) Question(id int) (*Question, bool) {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i], true
		}
	}
	return nil, false
}

// Answered reports whether the question already has a recorded answer.
func (q *Quiz) Answered(questionID int) bool {
	for _, a := range q.Answers {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// AnswerOutcome is what the caller learns from a single submission.
type AnswerOutcome struct {
	IsCorrect bool    `json:"isCorrect"`
	Progress  float64 `json:"progress"`
	Completed bool    `json:"quizCompleted"`
}

// QuizResult is the immutable scoring summary of a completed quiz.
type QuizResult struct {
	ID               int64            `json:"id"`
	QuizID           int64            `json:"quizId"`
	UserID           int64            `json:"userId"`
	TotalQuestions   int              `json:"totalQuestions"`
	CorrectAnswers   int              `json:"correctAnswers"`
	CategoryAnalysis CategoryAnalysis `json:"categoryAnalysis"`
	OverallScore     float64          `json:"overallScore"`
	CreatedAt        time.Time        `json:"createdAt"`
}

// ScoredResult is a result joined with the owner's nickname, as read by rankings.
type ScoredResult struct {
	UserID           int64
	Nickname         string
	CategoryAnalysis CategoryAnalysis
	OverallScore     float64
	CreatedAt        time.Time
}

// RankingEntry is one row of a leaderboard. Rank is nil for a user who is not ranked.
type RankingEntry struct {
	UserID    int64     `json:"userId"`
	Nickname  string    `json:"nickName"`
	Score     float64   `json:"score"`
	Rank      *int      `json:"rank"`
	CreatedAt time.Time `json:"createdAt"`
}

// Ranking is the bundle returned by the ranking queries.
type Ranking struct {
	CurrentUser       RankingEntry   `json:"currentUser"`
	Rankings          []RankingEntry `json:"rankings"`
	TotalParticipants int            `json:"totalParticipants"`
}

// Role separates students, who take quizzes, from parents, who follow them.
type Role string

const (
	RoleStudent Role = "student"
	RoleParent  Role = "parent"
)

// ParseRole defaults an empty role to student.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case "":
		return RoleStudent, nil
	case RoleStudent, RoleParent:
		return Role(raw), nil
	}
	return "", ErrInvalidRole
}

// User is an account. Credentials never leave the service in JSON.
type User struct {
	ID               int64     `json:"id"`
	Email            string    `json:"email"`
	PasswordHash     string    `json:"-"`
	Nickname         string    `json:"nickName"`
	Age              int       `json:"age"`
	ImageURI         string    `json:"imageUri,omitempty"`
	Role             Role      `json:"role"`
	ParentID         *int64    `json:"parentId,omitempty"`
	RefreshTokenHash string    `json:"-"`
	CreatedAt        time.Time `json:"createdAt"`
}
