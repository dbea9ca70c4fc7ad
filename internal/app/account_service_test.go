package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/auth"
	"reading-quiz-service/internal/domain"
	"reading-quiz-service/internal/infra/memory"
)

func newAccounts(t *testing.T) (*app.AccountService, *auth.Issuer, *memory.UserStore) {
	t.Helper()
	users := memory.NewUserStore()
	issuer := auth.NewIssuer("test-secret", time.Hour, 24*time.Hour)
	return app.NewAccountService(users, issuer, bcrypt.MinCost), issuer, users
}

func TestSignupSigninRefreshLogout(t *testing.T) {
	ctx := context.Background()
	accounts, issuer, users := newAccounts(t)

	user, err := accounts.Signup(ctx, app.SignupRequest{Email: " Kid@Example.com ", Password: "pw1234", Nickname: "kid", Age: 11})
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	if user.Email != "kid@example.com" || user.Role != domain.RoleStudent {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.PasswordHash == "pw1234" || user.PasswordHash == "" {
		t.Fatalf("password must be stored hashed")
	}
	if _, err := accounts.Signup(ctx, app.SignupRequest{Email: "kid@example.com", Password: "x"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected email conflict, got %v", err)
	}
	if _, err := accounts.Signup(ctx, app.SignupRequest{Email: "t@example.com", Password: "x", Role: "admin"}); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("expected invalid role, got %v", err)
	}

	if _, err := accounts.Signin(ctx, "kid@example.com", "nope"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected bad credentials, got %v", err)
	}
	if _, err := accounts.Signin(ctx, "ghost@example.com", "pw1234"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("unknown email should look like bad credentials, got %v", err)
	}

	pair, err := accounts.Signin(ctx, "KID@example.com", "pw1234")
	if err != nil {
		t.Fatalf("signin: %v", err)
	}
	claims, err := issuer.Parse(pair.AccessToken, auth.KindAccess)
	if err != nil || claims.UserID != user.ID {
		t.Fatalf("access token: %+v %v", claims, err)
	}
	stored, _ := users.GetUser(ctx, user.ID)
	if stored.RefreshTokenHash == "" || stored.RefreshTokenHash == pair.RefreshID {
		t.Fatalf("refresh token must be stored hashed")
	}

	rotated, err := accounts.Refresh(ctx, user.ID, pair.RefreshID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if _, err := accounts.Refresh(ctx, user.ID, pair.RefreshID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("rotated refresh token should be revoked, got %v", err)
	}

	if err := accounts.Logout(ctx, user.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if _, err := accounts.Refresh(ctx, user.ID, rotated.RefreshID); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("refresh after logout should fail, got %v", err)
	}
}

func TestEditAndDeleteProfile(t *testing.T) {
	ctx := context.Background()
	accounts, _, _ := newAccounts(t)
	a, _ := accounts.Signup(ctx, app.SignupRequest{Email: "a@example.com", Password: "pw", Nickname: "a"})
	_, _ = accounts.Signup(ctx, app.SignupRequest{Email: "b@example.com", Password: "pw", Nickname: "b"})

	nick := "ace"
	updated, err := accounts.EditProfile(ctx, a.ID, app.ProfileUpdate{Nickname: &nick})
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if updated.Nickname != "ace" || updated.Email != "a@example.com" {
		t.Fatalf("only nickname should change, got %+v", updated)
	}

	taken := "B@example.com"
	if _, err := accounts.EditProfile(ctx, a.ID, app.ProfileUpdate{Email: &taken}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected email conflict, got %v", err)
	}

	if err := accounts.DeleteAccount(ctx, a.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := accounts.Profile(ctx, a.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
}

func TestParentChildLinks(t *testing.T) {
	ctx := context.Background()
	accounts, _, _ := newAccounts(t)
	parent, _ := accounts.Signup(ctx, app.SignupRequest{Email: "mom@example.com", Password: "pw", Role: "parent"})
	kid, _ := accounts.Signup(ctx, app.SignupRequest{Email: "kid@example.com", Password: "pw"})
	other, _ := accounts.Signup(ctx, app.SignupRequest{Email: "other@example.com", Password: "pw"})

	if err := accounts.LinkChild(ctx, kid.ID, "other@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("students cannot link children, got %v", err)
	}
	if err := accounts.LinkChild(ctx, parent.ID, "mom@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("only students can be linked, got %v", err)
	}
	if err := accounts.LinkChild(ctx, parent.ID, "Kid@example.com"); err != nil {
		t.Fatalf("link: %v", err)
	}

	children, err := accounts.Children(ctx, parent.ID)
	if err != nil || len(children) != 1 || children[0].ID != kid.ID {
		t.Fatalf("children: %+v %v", children, err)
	}

	if err := accounts.AuthorizeStudentView(ctx, parent.ID, "kid@example.com"); err != nil {
		t.Fatalf("parent should see child: %v", err)
	}
	if err := accounts.AuthorizeStudentView(ctx, kid.ID, "kid@example.com"); err != nil {
		t.Fatalf("student should see self: %v", err)
	}
	if err := accounts.AuthorizeStudentView(ctx, other.ID, "kid@example.com"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if err := accounts.AuthorizeStudentView(ctx, parent.ID, "other@example.com"); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("parent cannot see unlinked student, got %v", err)
	}

	if err := accounts.UnlinkChild(ctx, parent.ID, "other@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unlinking a stranger should fail, got %v", err)
	}
	if err := accounts.UnlinkChild(ctx, parent.ID, "kid@example.com"); err != nil {
		t.Fatalf("unlink: %v", err)
	}
	children, _ = accounts.Children(ctx, parent.ID)
	if len(children) != 0 {
		t.Fatalf("expected no children, got %d", len(children))
	}
}
