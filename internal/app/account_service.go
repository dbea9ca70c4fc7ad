package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"reading-quiz-service/internal/auth"
	"reading-quiz-service/internal/domain"
)

// UserStore persists accounts and the parent/child relation.
type UserStore interface {
	UserDirectory
	NicknameLookup
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, user domain.User) error
	DeleteUser(ctx context.Context, id int64) error
	ListChildren(ctx context.Context, parentID int64) ([]domain.User, error)
}

// TokenIssuer signs access/refresh token pairs.
type TokenIssuer interface {
	Issue(userID int64, email string) (auth.TokenPair, error)
}

// SignupRequest carries the fields of a new account.
type SignupRequest struct {
	Email    string
	Password string
	Nickname string
	Age      int
	Role     string
}

// ProfileUpdate changes only the non-nil fields.
type ProfileUpdate struct {
	Nickname *string
	Email    *string
	ImageURI *string
}

// AccountService covers signup, sign-in, profiles and parent/child links.
type AccountService struct {
	users    UserStore
	tokens   TokenIssuer
	hashCost int
	now      func() time.Time
}

func NewAccountService(users UserStore, tokens TokenIssuer, hashCost int) *AccountService {
	if hashCost == 0 {
		hashCost = bcrypt.DefaultCost
	}
	return &AccountService{users: users, tokens: tokens, hashCost: hashCost, now: time.Now}
}

// Signup creates an account; the role defaults to student.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (domain.User, error) {
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return domain.User{}, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.hashCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hash),
		Nickname:     req.Nickname,
		Age:          req.Age,
		Role:         role,
		CreatedAt:    s.now(),
	}
	if err := s.users.CreateUser(ctx, &user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Signin verifies credentials and issues a token pair.
func (s *AccountService) Signin(ctx context.Context, email, password string) (auth.TokenPair, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, domain.ErrNotFound) {
		return auth.TokenPair{}, domain.ErrInvalidCredentials
	}
	if err != nil {
		return auth.TokenPair{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return auth.TokenPair{}, domain.ErrInvalidCredentials
	}
	return s.rotate(ctx, user)
}

// Refresh exchanges a refresh token (identified by its jti) for a new pair.
func (s *AccountService) Refresh(ctx context.Context, userID int64, refreshID string) (auth.TokenPair, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return auth.TokenPair{}, err
	}
	if user.RefreshTokenHash == "" {
		return auth.TokenPair{}, domain.ErrRefreshRevoked
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.RefreshTokenHash), []byte(refreshID)); err != nil {
		return auth.TokenPair{}, domain.ErrRefreshRevoked
	}
	return s.rotate(ctx, user)
}

func (s *AccountService) rotate(ctx context.Context, user domain.User) (auth.TokenPair, error) {
	pair, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("issue tokens: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pair.RefreshID), s.hashCost)
	if err != nil {
		return auth.TokenPair{}, fmt.Errorf("hash refresh token: %w", err)
	}
	user.RefreshTokenHash = string(hash)
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return auth.TokenPair{}, err
	}
	return pair, nil
}

// Logout revokes the stored refresh token.
func (s *AccountService) Logout(ctx context.Context, userID int64) error {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	user.RefreshTokenHash = ""
	return s.users.UpdateUser(ctx, user)
}

// Profile returns the user's own account.
func (s *AccountService) Profile(ctx context.Context, userID int64) (domain.User, error) {
	return s.users.GetUser(ctx, userID)
}

// EditProfile applies a partial profile update.
func (s *AccountService) EditProfile(ctx context.Context, userID int64, upd ProfileUpdate) (domain.User, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if upd.Nickname != nil {
		user.Nickname = *upd.Nickname
	}
	if upd.Email != nil {
		user.Email = normalizeEmail(*upd.Email)
	}
	if upd.ImageURI != nil {
		user.ImageURI = *upd.ImageURI
	}
	if err := s.users.UpdateUser(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// DeleteAccount removes the user; children are unlinked by the store.
func (s *AccountService) DeleteAccount(ctx context.Context, userID int64) error {
	return s.users.DeleteUser(ctx, userID)
}

// LinkChild makes the student with the given email a child of the parent.
func (s *AccountService) LinkChild(ctx context.Context, parentID int64, studentEmail string) error {
	parent, err := s.parent(ctx, parentID)
	if err != nil {
		return err
	}
	student, err := s.users.GetUserByEmail(ctx, normalizeEmail(studentEmail))
	if errors.Is(err, domain.ErrNotFound) || (err == nil && student.Role != domain.RoleStudent) {
		return domain.ErrStudentNotFound
	}
	if err != nil {
		return err
	}
	student.ParentID = &parent.ID
	return s.users.UpdateUser(ctx, student)
}

// UnlinkChild removes the link between the parent and one of their children.
func (s *AccountService) UnlinkChild(ctx context.Context, parentID int64, studentEmail string) error {
	parent, err := s.parent(ctx, parentID)
	if err != nil {
		return err
	}
	child, err := s.users.GetUserByEmail(ctx, normalizeEmail(studentEmail))
	if errors.Is(err, domain.ErrNotFound) || (err == nil && !isChildOf(child, parent.ID)) {
		return domain.ErrStudentNotFound
	}
	if err != nil {
		return err
	}
	child.ParentID = nil
	return s.users.UpdateUser(ctx, child)
}

// Children lists the parent's linked students.
func (s *AccountService) Children(ctx context.Context, parentID int64) ([]domain.User, error) {
	if _, err := s.parent(ctx, parentID); err != nil {
		return nil, err
	}
	return s.users.ListChildren(ctx, parentID)
}

// AuthorizeStudentView allows a student to see their own progress and a parent
// to see their children's.
func (s *AccountService) AuthorizeStudentView(ctx context.Context, viewerID int64, studentEmail string) error {
	student, err := s.users.GetUserByEmail(ctx, normalizeEmail(studentEmail))
	if errors.Is(err, domain.ErrNotFound) {
		return domain.ErrStudentNotFound
	}
	if err != nil {
		return err
	}
	if student.ID == viewerID || isChildOf(student, viewerID) {
		return nil
	}
	return domain.ErrForbidden
}

func (s *AccountService) parent(ctx context.Context, id int64) (domain.User, error) {
	user, err := s.users.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && user.Role != domain.RoleParent) {
		return domain.User{}, domain.ErrParentNotFound
	}
	return user, err
}

func isChildOf(u domain.User, parentID int64) bool {
	return u.ParentID != nil && *u.ParentID == parentID
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
