package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"reading-quiz-service/internal/domain"
)

// UserStore persists accounts with bun.
type UserStore struct {
	db *bun.DB
}

func NewUserStore(db *bun.DB) *UserStore {
	return &UserStore{db: db}
}

func (s *UserStore) CreateUser(ctx context.Context, user *domain.User) error {
	row := newUserRow(*user)
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	user.ID = row.ID
	return nil
}

func (s *UserStore) GetUser(ctx context.Context, id int64) (domain.User, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx)
	return userOrNotFound(row, err)
}

func (s *UserStore) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	row := new(userRow)
	err := s.db.NewSelect().Model(row).Where("email = ?", email).Scan(ctx)
	return userOrNotFound(row, err)
}

func (s *UserStore) UpdateUser(ctx context.Context, user domain.User) error {
	res, err := s.db.NewUpdate().Model(newUserRow(user)).ExcludeColumn("id", "created_at").WherePK().Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrEmailTaken
		}
		return fmt.Errorf("update user: %w", err)
	}
	return requireRow(res, domain.ErrUserNotFound)
}

// DeleteUser removes the account; children are unlinked by ON DELETE SET NULL
// and quizzes/results go with it by ON DELETE CASCADE.
func (s *UserStore) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.NewDelete().Model((*userRow)(nil)).Where("id = ?", id).Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res, domain.ErrUserNotFound)
}

func (s *UserStore) ListChildren(ctx context.Context, parentID int64) ([]domain.User, error) {
	var rows []userRow
	if err := s.db.NewSelect().Model(&rows).Where("parent_id = ?", parentID).Order("id ASC").Scan(ctx); err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *UserStore) Nicknames(ctx context.Context, ids []int64) (map[int64]string, error) {
	out := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []userRow
	err := s.db.NewSelect().Model(&rows).Column("id", "nickname").Where("id IN (?)", bun.In(ids)).Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("load nicknames: %w", err)
	}
	for _, r := range rows {
		out[r.ID] = r.Nickname
	}
	return out, nil
}

func userOrNotFound(row *userRow, err error) (domain.User, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.User{}, domain.ErrUserNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("load user: %w", err)
	}
	return row.toDomain(), nil
}

func requireRow(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
