package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"reading-quiz-service/internal/auth"
)

// RouterConfig carries everything the HTTP surface needs.
type RouterConfig struct {
	Issuer      *auth.Issuer
	Accounts    *AccountHandler
	Quizzes     *QuizHandler
	Rankings    *RankingHandler
	WS          *WSHandler
	CORSOrigins []string
}

// NewRouter mounts every route on a chi router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)

	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	access := auth.Middleware(cfg.Issuer, auth.KindAccess)

	// Websocket upgrades must not run under the request timeout.
	r.With(access).Get("/ws", cfg.WS.ServeWS)

	r.Group(func(r chi.Router) {
		// Quiz generation calls the model twice.
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", cfg.Accounts.Signup)
			r.Post("/signin", cfg.Accounts.Signin)
			r.With(auth.Middleware(cfg.Issuer, auth.KindRefresh)).Post("/refresh", cfg.Accounts.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(access)
				r.Post("/logout", cfg.Accounts.Logout)
				r.Get("/me", cfg.Accounts.Me)
				r.Patch("/me", cfg.Accounts.EditMe)
				r.Delete("/me", cfg.Accounts.DeleteMe)
				r.Post("/parent/child", cfg.Accounts.LinkChild)
				r.Delete("/parent/child", cfg.Accounts.UnlinkChild)
				r.Get("/parent/children", cfg.Accounts.Children)
			})
		})

		r.Route("/quiz", func(r chi.Router) {
			r.Use(access)
			r.Post("/start", cfg.Quizzes.Start)
			r.Get("/rankings/category/{category}", cfg.Rankings.Category)
			r.Get("/rankings/overall", cfg.Rankings.Overall)
			r.Get("/students/{email}/progress", cfg.Quizzes.Progress)
			r.Get("/students/{email}/best-scores", cfg.Quizzes.BestScores)
			r.Get("/{id}", cfg.Quizzes.Get)
			r.Post("/{id}/submit", cfg.Quizzes.Submit)
			r.Get("/{id}/result", cfg.Quizzes.Result)
		})
	})
	return r
}
