package app

import "context"

// AttemptGuard allows a single live connection per quiz. Claim reports false
// when another holder already owns the quiz; Release is a no-op for non-holders.
type AttemptGuard interface {
	Claim(ctx context.Context, quizID int64, holder string) (bool, error)
	Release(ctx context.Context, quizID int64, holder string) error
}
