package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/domain"
	"reading-quiz-service/internal/infra/memory"
)

type fixture struct {
	service *app.QuizService
	users   *memory.UserStore
	quizzes *memory.QuizStore
	results *memory.ResultStore
	student domain.User
}

func newFixture(t *testing.T, opts ...app.QuizOption) *fixture {
	t.Helper()
	users := memory.NewUserStore()
	student := domain.User{Email: "kid@example.com", Nickname: "kid", Age: 10, Role: domain.RoleStudent}
	if err := users.CreateUser(context.Background(), &student); err != nil {
		t.Fatalf("create user: %v", err)
	}
	quizzes := memory.NewQuizStore()
	results := memory.NewResultStore(users)
	return &fixture{
		service: app.NewQuizService(quizzes, results, users, memory.NewSampleGenerator(), opts...),
		users:   users,
		quizzes: quizzes,
		results: results,
		student: student,
	}
}

func correctAnswer(t *testing.T, quiz domain.Quiz, questionID int) string {
	t.Helper()
	q, ok := quiz.Question(questionID)
	if !ok {
		t.Fatalf("question %d missing", questionID)
	}
	return q.CorrectAnswer
}

func TestCreateQuiz(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	quiz, err := f.service.CreateQuiz(ctx, f.student.ID, "어휘")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}
	if quiz.ID == 0 || quiz.UserID != f.student.ID {
		t.Fatalf("unexpected quiz identity %+v", quiz)
	}
	if len(quiz.Questions) != domain.TotalQuestions || quiz.TotalQuestions != domain.TotalQuestions {
		t.Fatalf("expected %d questions, got %d", domain.TotalQuestions, len(quiz.Questions))
	}
	if quiz.Status != domain.StatusInProgress || quiz.CurrentQuestion != 0 || len(quiz.Answers) != 0 {
		t.Fatalf("expected fresh quiz, got status=%s current=%d answers=%d", quiz.Status, quiz.CurrentQuestion, len(quiz.Answers))
	}
	for _, q := range quiz.Questions {
		if q.Category != domain.CategoryVocabulary {
			t.Fatalf("question %d tagged %s", q.ID, q.Category)
		}
	}

	if _, err := f.service.CreateQuiz(ctx, 999, "어휘"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found for unknown user, got %v", err)
	}
	if _, err := f.service.CreateQuiz(ctx, f.student.ID, "수학"); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

type brokenGenerator struct {
	questions []domain.Question
	err       error
}

func (g brokenGenerator) Generate(context.Context, int, domain.Category) (string, []domain.Question, error) {
	return "passage", g.questions, g.err
}

func TestCreateQuizGenerationFailure(t *testing.T) {
	ctx := context.Background()
	users := memory.NewUserStore()
	user := domain.User{Email: "a@example.com", Age: 9, Role: domain.RoleStudent}
	_ = users.CreateUser(ctx, &user)
	quizzes := memory.NewQuizStore()

	for name, gen := range map[string]brokenGenerator{
		"error":     {err: errors.New("model unavailable")},
		"too few":   {questions: []domain.Question{{ID: 1}}},
		"unwrapped": {err: domain.ErrGenerationFailure},
	} {
		service := app.NewQuizService(quizzes, memory.NewResultStore(users), users, gen)
		if _, err := service.CreateQuiz(ctx, user.ID, "문법"); !errors.Is(err, domain.ErrGenerationFailure) {
			t.Fatalf("%s: expected generation failure, got %v", name, err)
		}
	}
	if _, err := quizzes.GetQuiz(ctx, 1); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("no quiz should be persisted, got %v", err)
	}
}

func TestSubmitAnswerLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz, err := f.service.CreateQuiz(ctx, f.student.ID, "어휘")
	if err != nil {
		t.Fatalf("create quiz: %v", err)
	}

	for i, q := range quiz.Questions {
		answer := correctAnswer(t, quiz, q.ID)
		if i >= 7 {
			answer = "wrong"
		}
		outcome, err := f.service.SubmitAnswer(ctx, quiz.ID, q.ID, answer)
		if err != nil {
			t.Fatalf("submit %d: %v", q.ID, err)
		}
		if outcome.IsCorrect != (i < 7) {
			t.Fatalf("question %d: expected correct=%v", q.ID, i < 7)
		}
		if want := float64(i+1) * 10; outcome.Progress != want {
			t.Fatalf("expected progress %v, got %v", want, outcome.Progress)
		}

		stored, _ := f.service.GetQuiz(ctx, quiz.ID)
		if len(stored.Answers) != stored.CurrentQuestion {
			t.Fatalf("answers=%d current=%d", len(stored.Answers), stored.CurrentQuestion)
		}
		completed := stored.CurrentQuestion == stored.TotalQuestions
		if completed != (stored.Status == domain.StatusCompleted) || completed != outcome.Completed {
			t.Fatalf("status %s inconsistent at %d answers", stored.Status, stored.CurrentQuestion)
		}
	}

	result, err := f.service.GetResult(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get result: %v", err)
	}
	if result.CorrectAnswers != 7 || result.OverallScore != 70.0 || result.UserID != f.student.ID {
		t.Fatalf("unexpected result %+v", result)
	}
	stat, ok := result.CategoryAnalysis.Get(domain.CategoryVocabulary)
	if !ok || stat != (domain.CategoryStat{Correct: 7, Total: 10, Score: 70.0}) {
		t.Fatalf("unexpected vocabulary stat %+v", stat)
	}
	if len(result.CategoryAnalysis.Present()) != 1 {
		t.Fatalf("expected a single category, got %v", result.CategoryAnalysis.Present())
	}

	if _, err := f.service.SubmitAnswer(ctx, quiz.ID, 999, "O"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state after completion, got %v", err)
	}
}

func TestSubmitAnswerErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz, _ := f.service.CreateQuiz(ctx, f.student.ID, "문법")

	if _, err := f.service.SubmitAnswer(ctx, 404, 1, "O"); !errors.Is(err, domain.ErrQuizNotFound) {
		t.Fatalf("expected quiz not found, got %v", err)
	}
	if _, err := f.service.SubmitAnswer(ctx, quiz.ID, 404, "O"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}

	first, err := f.service.SubmitAnswer(ctx, quiz.ID, 1, correctAnswer(t, quiz, 1))
	if err != nil || !first.IsCorrect {
		t.Fatalf("first answer: %+v %v", first, err)
	}
	if _, err := f.service.SubmitAnswer(ctx, quiz.ID, 1, "wrong"); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	stored, _ := f.service.GetQuiz(ctx, quiz.ID)
	if len(stored.Answers) != 1 || !stored.Answers[0].IsCorrect || stored.CurrentQuestion != 1 {
		t.Fatalf("duplicate submission changed the quiz: %+v", stored.Answers)
	}
}

func TestAnswerIsCaseAndWhitespaceSensitive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz, _ := f.service.CreateQuiz(ctx, f.student.ID, "독해")

	outcome, err := f.service.SubmitAnswer(ctx, quiz.ID, 6, " "+correctAnswer(t, quiz, 6))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if outcome.IsCorrect {
		t.Fatalf("padded answer must not match")
	}
}

func TestConcurrentDuplicateSubmissions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz, _ := f.service.CreateQuiz(ctx, f.student.ID, "사자성어")

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.SubmitAnswer(ctx, quiz.ID, 2, "anything")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	ok, conflicts := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error %v", err)
		}
	}
	if ok != 1 || conflicts != workers-1 {
		t.Fatalf("expected 1 success and %d conflicts, got %d/%d", workers-1, ok, conflicts)
	}
}

func TestCompletionWithoutOwnerSkipsResult(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	quiz, _ := f.service.CreateQuiz(ctx, f.student.ID, "고사성어")

	for _, q := range quiz.Questions[:9] {
		if _, err := f.service.SubmitAnswer(ctx, quiz.ID, q.ID, "x"); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if err := f.users.DeleteUser(ctx, f.student.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	outcome, err := f.service.SubmitAnswer(ctx, quiz.ID, quiz.Questions[9].ID, "x")
	if err != nil {
		t.Fatalf("last submit should soft-fail, got %v", err)
	}
	if !outcome.Completed {
		t.Fatalf("expected completion")
	}
	stored, _ := f.service.GetQuiz(ctx, quiz.ID)
	if stored.Status != domain.StatusCompleted {
		t.Fatalf("quiz should be saved as completed")
	}
	if _, err := f.service.GetResult(ctx, quiz.ID); !errors.Is(err, domain.ErrResultNotFound) {
		t.Fatalf("expected no result, got %v", err)
	}
}

type recorder struct {
	results []domain.QuizResult
}

func (r *recorder) Record(_ context.Context, result domain.QuizResult) error {
	r.results = append(r.results, result)
	return nil
}

func TestCompletionNotifiesScoreRecorder(t *testing.T) {
	ctx := context.Background()
	rec := &recorder{}
	at := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	f := newFixture(t, app.WithScoreRecorder(rec), app.WithClock(func() time.Time { return at }))
	quiz, _ := f.service.CreateQuiz(ctx, f.student.ID, "문법")

	for _, q := range quiz.Questions {
		if _, err := f.service.SubmitAnswer(ctx, quiz.ID, q.ID, correctAnswer(t, quiz, q.ID)); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if len(rec.results) != 1 {
		t.Fatalf("expected one recorded result, got %d", len(rec.results))
	}
	if got := rec.results[0]; got.OverallScore != 100 || !got.CreatedAt.Equal(at) || got.QuizID != quiz.ID {
		t.Fatalf("unexpected recorded result %+v", got)
	}
}

func TestStudentProgressAndBestScores(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	grammar := func(score float64, correct int) domain.CategoryAnalysis {
		var a domain.CategoryAnalysis
		a.Set(domain.CategoryGrammar, domain.CategoryStat{Correct: correct, Total: 10, Score: score})
		return a
	}
	for i, r := range []domain.QuizResult{
		{QuizID: 1, UserID: f.student.ID, CategoryAnalysis: grammar(60, 6), OverallScore: 60},
		{QuizID: 2, UserID: f.student.ID, CategoryAnalysis: grammar(85, 8), OverallScore: 85},
	} {
		r := r
		if err := f.results.CreateResult(ctx, &r); err != nil {
			t.Fatalf("seed %d: %v", i, err)
		}
	}

	progress, err := f.service.StudentProgress(ctx, "KID@example.com")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if len(progress) != 2 {
		t.Fatalf("expected 2 results, got %d", len(progress))
	}

	best, err := f.service.StudentBestScores(ctx, f.student.Email)
	if err != nil {
		t.Fatalf("best scores: %v", err)
	}
	if best[domain.CategoryGrammar] != 85 || len(best) != 1 {
		t.Fatalf("expected grammar best 85, got %v", best)
	}

	parent := domain.User{Email: "mom@example.com", Role: domain.RoleParent}
	_ = f.users.CreateUser(ctx, &parent)
	if _, err := f.service.StudentProgress(ctx, parent.Email); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("parents have no progress, got %v", err)
	}
	parentBest, err := f.service.StudentBestScores(ctx, parent.Email)
	if err != nil || len(parentBest) != 0 {
		t.Fatalf("expected empty best scores for a parent, got %v %v", parentBest, err)
	}
	if _, err := f.service.StudentBestScores(ctx, "nobody@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
