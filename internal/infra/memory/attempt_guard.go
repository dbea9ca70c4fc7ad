package memory

import (
	"context"
	"sync"
)

// AttemptGuard is an in-process implementation of app.AttemptGuard.
type AttemptGuard struct {
	mu      sync.Mutex
	holders map[int64]string
}

func NewAttemptGuard() *AttemptGuard {
	return &AttemptGuard{holders: make(map[int64]string)}
}

func (g *AttemptGuard) Claim(_ context.Context, quizID int64, holder string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if current, ok := g.holders[quizID]; ok && current != holder {
		return false, nil
	}
	g.holders[quizID] = holder
	return true, nil
}

func (g *AttemptGuard) Release(_ context.Context, quizID int64, holder string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.holders[quizID] == holder {
		delete(g.holders, quizID)
	}
	return nil
}
