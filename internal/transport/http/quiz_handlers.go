package http

import (
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/auth"
	"reading-quiz-service/internal/domain"
)

// QuizHandler serves quiz lifecycle and student progress routes.
type QuizHandler struct {
	quizzes  *app.QuizService
	accounts *app.AccountService
}

func NewQuizHandler(quizzes *app.QuizService, accounts *app.AccountService) *QuizHandler {
	return &QuizHandler{quizzes: quizzes, accounts: accounts}
}

type startRequest struct {
	Category string `json:"category"`
}

type submitRequest struct {
	QuestionID int    `json:"questionId"`
	Answer     string `json:"answer"`
}

func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	var req startRequest
	if err := decodeJSON(r, &req); err != nil || req.Category == "" {
		writeErr(w, http.StatusBadRequest, "category is required")
		return
	}
	quiz, err := h.quizzes.CreateQuiz(r.Context(), claims.UserID, req.Category)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, quizView(quiz))
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.ownedQuiz(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, quizView(quiz))
}

func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.ownedQuiz(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid answer payload")
		return
	}
	outcome, err := h.quizzes.SubmitAnswer(r.Context(), quiz.ID, req.QuestionID, req.Answer)
	if err != nil && !outcome.Completed {
		writeServiceError(w, r, err)
		return
	}
	if err != nil {
		// The final answer is saved; only the result is missing.
		log.Printf("quiz %d completed without result: %v", quiz.ID, err)
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (h *QuizHandler) Result(w http.ResponseWriter, r *http.Request) {
	quiz, ok := h.ownedQuiz(w, r)
	if !ok {
		return
	}
	result, err := h.quizzes.GetResult(r.Context(), quiz.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *QuizHandler) Progress(w http.ResponseWriter, r *http.Request) {
	email, ok := h.studentView(w, r)
	if !ok {
		return
	}
	results, err := h.quizzes.StudentProgress(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *QuizHandler) BestScores(w http.ResponseWriter, r *http.Request) {
	email, ok := h.studentView(w, r)
	if !ok {
		return
	}
	best, err := h.quizzes.StudentBestScores(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, best)
}

// ownedQuiz loads the {id} quiz and checks it belongs to the caller.
func (h *QuizHandler) ownedQuiz(w http.ResponseWriter, r *http.Request) (domain.Quiz, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid quiz id")
		return domain.Quiz{}, false
	}
	quiz, err := h.quizzes.GetQuiz(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return domain.Quiz{}, false
	}
	claims, _ := auth.FromContext(r.Context())
	if quiz.UserID != claims.UserID {
		writeServiceError(w, r, domain.ErrForbidden)
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (h *QuizHandler) studentView(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, err := url.PathUnescape(chi.URLParam(r, "email"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid email")
		return "", false
	}
	claims, _ := auth.FromContext(r.Context())
	if err := h.accounts.AuthorizeStudentView(r.Context(), claims.UserID, email); err != nil {
		writeServiceError(w, r, err)
		return "", false
	}
	return email, true
}

// quizView hides correct answers until the quiz is completed.
func quizView(q domain.Quiz) domain.Quiz {
	if q.Status == domain.StatusCompleted {
		return q
	}
	questions := make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectAnswer = ""
		questions[i] = question
	}
	q.Questions = questions
	return q
}
