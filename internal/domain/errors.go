package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every concrete error below wraps exactly one of them so callers
// can branch with errors.Is without knowing the concrete error.
var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidState      = errors.New("invalid state")
	ErrConflict          = errors.New("conflict")
	ErrGenerationFailure = errors.New("quiz generation failed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

var (
	// ErrUserNotFound is returned when a user id or email does not resolve.
	ErrUserNotFound = fmt.Errorf("user %w", ErrNotFound)
	// ErrStudentNotFound is returned when the email does not belong to a student.
	ErrStudentNotFound = fmt.Errorf("student %w", ErrNotFound)
	// ErrParentNotFound is returned when the caller is not a parent account.
	ErrParentNotFound = fmt.Errorf("parent %w", ErrNotFound)
	// ErrQuizNotFound indicates the quiz does not exist.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrQuestionNotFound indicates a submitted question ID is not part of the quiz.
	ErrQuestionNotFound = fmt.Errorf("question %w", ErrNotFound)
	// ErrResultNotFound indicates no result was produced for the quiz.
	ErrResultNotFound = fmt.Errorf("quiz result %w", ErrNotFound)

	ErrInvalidCategory = fmt.Errorf("%w: unknown category", ErrInvalidArgument)
	ErrInvalidRole     = fmt.Errorf("%w: unknown role", ErrInvalidArgument)

	// ErrQuizCompleted is returned when answering a quiz that already finished.
	ErrQuizCompleted = fmt.Errorf("%w: quiz already completed", ErrInvalidState)

	// ErrAlreadyAnswered enforces at most one answer per question per quiz.
	ErrAlreadyAnswered = fmt.Errorf("%w: question already answered", ErrConflict)
	// ErrResultExists is returned by result stores when a quiz already has a result.
	ErrResultExists = fmt.Errorf("%w: quiz result already exists", ErrConflict)
	// ErrEmailTaken is returned when signing up or editing with a used email.
	ErrEmailTaken = fmt.Errorf("%w: email already registered", ErrConflict)

	ErrInvalidCredentials = fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
	ErrRefreshRevoked     = fmt.Errorf("%w: refresh token revoked", ErrForbidden)
)
