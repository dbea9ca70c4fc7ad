package cli

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/auth"
	"reading-quiz-service/internal/config"
	"reading-quiz-service/internal/infra/llm"
	"reading-quiz-service/internal/infra/memory"
	"reading-quiz-service/internal/infra/postgres"
	redisinfra "reading-quiz-service/internal/infra/redis"
)

// services is the wired application graph shared by start and reindex.
type services struct {
	issuer   *auth.Issuer
	quizzes  *app.QuizService
	rankings *app.RankingService
	accounts *app.AccountService
	guard    app.AttemptGuard
	indexed  bool

	closers []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices picks Postgres or in-memory stores, Redis or local guards and
// ranking scans, and Gemini or the sample generator, from cfg.
func buildServices(ctx context.Context, cfg config.Config) (*services, error) {
	svc := &services{}

	var (
		users   app.UserStore
		quizzes app.QuizStore
		results app.ResultStore
		source  app.RankingSource
	)
	if cfg.Postgres.URL != "" {
		db := openDB(cfg.Postgres.URL)
		svc.closers = append(svc.closers, func() { _ = db.Close() })
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			svc.Close()
			return nil, err
		}
		svc.closers = append(svc.closers, pool.Close)

		users = postgres.NewUserStore(db)
		quizzes = postgres.NewQuizStore(db)
		results = postgres.NewResultStore(db)
		source = postgres.NewRankingSource(pool)
		log.Printf("using postgres stores")
	} else {
		memUsers := memory.NewUserStore()
		memResults := memory.NewResultStore(memUsers)
		users, quizzes, results, source = memUsers, memory.NewQuizStore(), memResults, memResults
		log.Printf("using in-memory stores")
	}

	var rankingOpts []app.RankingOption
	if cfg.Ranking.Limit > 0 {
		rankingOpts = append(rankingOpts, app.WithRankingLimit(cfg.Ranking.Limit))
	}
	svc.guard = memory.NewAttemptGuard()
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		svc.closers = append(svc.closers, func() { _ = client.Close() })
		if err := client.Ping(ctx).Err(); err != nil {
			svc.Close()
			return nil, err
		}
		quizzes = redisinfra.NewQuizCache(client, quizzes, config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute))
		svc.guard = redisinfra.NewAttemptGuard(client, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
		rankingOpts = append(rankingOpts, app.WithScoreIndex(redisinfra.NewScoreIndex(client)))
		svc.indexed = true
		log.Printf("using redis at %s", cfg.Redis.Addr)
	}

	var generator app.QuestionGenerator = memory.NewSampleGenerator()
	if cfg.Generator.APIKey != "" {
		gen, err := llm.NewGenerator(ctx, cfg.Generator.APIKey, cfg.Generator.Model)
		if err != nil {
			svc.Close()
			return nil, err
		}
		generator = gen
	} else {
		log.Printf("no generator api key; using sample questions")
	}

	svc.issuer = auth.NewIssuer(cfg.Auth.JWTSecret,
		config.TTLDuration(cfg.Auth.AccessTTL, time.Hour),
		config.TTLDuration(cfg.Auth.RefreshTTL, 7*24*time.Hour))
	svc.rankings = app.NewRankingService(source, users, rankingOpts...)
	svc.quizzes = app.NewQuizService(quizzes, results, users, generator, app.WithScoreRecorder(svc.rankings))
	svc.accounts = app.NewAccountService(users, svc.issuer, cfg.Auth.BcryptCost)
	return svc, nil
}
