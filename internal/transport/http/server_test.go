package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/auth"
	"reading-quiz-service/internal/infra/memory"
)

type testServer struct {
	*httptest.Server
	accounts *app.AccountService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	users := memory.NewUserStore()
	results := memory.NewResultStore(users)
	issuer := auth.NewIssuer("test-secret", time.Hour, 24*time.Hour)

	rankings := app.NewRankingService(results, users)
	quizzes := app.NewQuizService(memory.NewQuizStore(), results, users, memory.NewSampleGenerator(),
		app.WithScoreRecorder(rankings))
	accounts := app.NewAccountService(users, issuer, bcrypt.MinCost)

	router := NewRouter(RouterConfig{
		Issuer:   issuer,
		Accounts: NewAccountHandler(accounts),
		Quizzes:  NewQuizHandler(quizzes, accounts),
		Rankings: NewRankingHandler(rankings),
		WS:       NewWSHandler(quizzes, memory.NewAttemptGuard()),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, accounts: accounts}
}

// signup creates an account and returns its access token.
func (s *testServer) signup(t *testing.T, email, role string) string {
	t.Helper()
	status, _ := s.do(t, http.MethodPost, "/auth/signup", "", map[string]any{
		"email": email, "password": "secret", "nickName": email[:3], "age": 10, "role": role,
	}, nil)
	if status != http.StatusCreated {
		t.Fatalf("signup %s: status %d", email, status)
	}
	var pair auth.TokenPair
	status, _ = s.do(t, http.MethodPost, "/auth/signin", "", map[string]any{"email": email, "password": "secret"}, &pair)
	if status != http.StatusOK || pair.AccessToken == "" {
		t.Fatalf("signin %s: status %d", email, status)
	}
	return pair.AccessToken
}

func (s *testServer) do(t *testing.T, method, path, token string, body, out any) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequestWithContext(context.Background(), method, s.URL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var raw bytes.Buffer
	_, _ = raw.ReadFrom(resp.Body)
	if out != nil && raw.Len() > 0 {
		if err := json.Unmarshal(raw.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v (%s)", method, path, err, raw.String())
		}
	}
	return resp.StatusCode, raw.Bytes()
}
