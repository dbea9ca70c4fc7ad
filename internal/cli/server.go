package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"reading-quiz-service/internal/config"
	transport "reading-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret (or JWT_SECRET) must be set")
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	if svc.indexed {
		n, err := svc.rankings.Rebuild(ctx)
		if err != nil {
			return fmt.Errorf("rebuild ranking index: %w", err)
		}
		log.Printf("ranking index rebuilt from %d results", n)
	}

	router := transport.NewRouter(transport.RouterConfig{
		Issuer:      svc.issuer,
		Accounts:    transport.NewAccountHandler(svc.accounts),
		Quizzes:     transport.NewQuizHandler(svc.quizzes, svc.accounts),
		Rankings:    transport.NewRankingHandler(svc.rankings),
		WS:          transport.NewWSHandler(svc.quizzes, svc.guard),
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	// No WriteTimeout: websocket connections outlive any fixed deadline and
	// plain routes are bounded by the router's timeout middleware.
	server := &http.Server{
		Addr:              ":" + finalPort,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
