package memory

import (
	"context"
	"sort"
	"sync"

	"reading-quiz-service/internal/domain"
)

// UserStore is an in-memory implementation of app.UserStore.
type UserStore struct {
	mu     sync.RWMutex
	nextID int64
	users  map[int64]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]domain.User)}
}

func (s *UserStore) CreateUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emailTakenLocked(user.Email, 0) {
		return domain.ErrEmailTaken
	}
	s.nextID++
	user.ID = s.nextID
	s.users[user.ID] = *user
	return nil
}

func (s *UserStore) GetUser(_ context.Context, id int64) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return domain.User{}, domain.ErrUserNotFound
	}
	return user, nil
}

func (s *UserStore) GetUserByEmail(_ context.Context, email string) (domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			return user, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

func (s *UserStore) UpdateUser(_ context.Context, user domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	if s.emailTakenLocked(user.Email, user.ID) {
		return domain.ErrEmailTaken
	}
	s.users[user.ID] = user
	return nil
}

func (s *UserStore) DeleteUser(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(s.users, id)
	for childID, user := range s.users {
		if user.ParentID != nil && *user.ParentID == id {
			user.ParentID = nil
			s.users[childID] = user
		}
	}
	return nil
}

func (s *UserStore) ListChildren(_ context.Context, parentID int64) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var children []domain.User
	for _, user := range s.users {
		if user.ParentID != nil && *user.ParentID == parentID {
			children = append(children, user)
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (s *UserStore) Nicknames(_ context.Context, ids []int64) (map[int64]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]string, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			out[id] = user.Nickname
		}
	}
	return out, nil
}

func (s *UserStore) emailTakenLocked(email string, except int64) bool {
	for id, user := range s.users {
		if id != except && user.Email == email {
			return true
		}
	}
	return false
}
