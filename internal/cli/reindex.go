package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"reading-quiz-service/internal/config"
)

// NewReindexCmd rebuilds the Redis ranking index from stored results.
func NewReindexCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the ranking index from stored quiz results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReindex(cmd.Context(), *configPath)
		},
	}
}

func runReindex(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Redis.Addr == "" || cfg.Postgres.URL == "" {
		return fmt.Errorf("reindex needs both postgres.url and redis.addr")
	}
	svc, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	n, err := svc.rankings.Rebuild(ctx)
	if err != nil {
		return err
	}
	log.Printf("ranking index rebuilt from %d results", n)
	return nil
}
