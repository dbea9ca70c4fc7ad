package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"reading-quiz-service/internal/domain"
)

const scanResultsSQL = `
SELECT r.user_id, COALESCE(u.nickname, ''), r.category_analysis, r.overall_score, r.created_at
FROM quiz_results r
LEFT JOIN users u ON u.id = r.user_id
ORDER BY r.overall_score DESC, r.created_at ASC`

// RankingSource streams every result with its owner's nickname straight from
// a pgx pool; the ranking scan is the one hot read path that skips bun.
type RankingSource struct {
	pool *pgxpool.Pool
}

func NewRankingSource(pool *pgxpool.Pool) *RankingSource {
	return &RankingSource{pool: pool}
}

func (s *RankingSource) ScanResults(ctx context.Context) ([]domain.ScoredResult, error) {
	rows, err := s.pool.Query(ctx, scanResultsSQL)
	if err != nil {
		return nil, fmt.Errorf("scan results: %w", err)
	}
	defer rows.Close()

	var out []domain.ScoredResult
	for rows.Next() {
		var (
			r   domain.ScoredResult
			raw []byte
		)
		if err := rows.Scan(&r.UserID, &r.Nickname, &raw, &r.OverallScore, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan result row: %w", err)
		}
		if err := json.Unmarshal(raw, &r.CategoryAnalysis); err != nil {
			return nil, fmt.Errorf("unmarshal category analysis: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
