package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute, time.Hour)

	pair, err := issuer.Issue(7, "kid@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.RefreshID == "" {
		t.Fatalf("expected refresh id")
	}

	claims, err := issuer.Parse(pair.AccessToken, KindAccess)
	if err != nil {
		t.Fatalf("parse access: %v", err)
	}
	if claims.UserID != 7 || claims.Email != "kid@example.com" {
		t.Fatalf("unexpected claims %+v", claims)
	}

	refresh, err := issuer.Parse(pair.RefreshToken, KindRefresh)
	if err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
	if refresh.ID != pair.RefreshID {
		t.Fatalf("expected jti %s, got %s", pair.RefreshID, refresh.ID)
	}

	if _, err := issuer.Parse(pair.RefreshToken, KindAccess); err == nil {
		t.Fatalf("refresh token must not pass as access token")
	}
}

func TestParseRejectsExpiredAndForeignTokens(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute, time.Hour)
	pair, err := issuer.Issue(1, "a@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	if _, err := issuer.Parse(pair.AccessToken, KindAccess); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	other := NewIssuer("other-secret", time.Minute, time.Hour)
	if _, err := other.Parse(pair.RefreshToken, KindRefresh); err == nil {
		t.Fatalf("expected signature mismatch")
	}
}

func TestMiddleware(t *testing.T) {
	issuer := NewIssuer("secret", time.Minute, time.Hour)
	pair, _ := issuer.Issue(3, "c@example.com")

	var seen int64
	h := Middleware(issuer, KindAccess)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, ok := FromContext(r.Context())
		if !ok {
			t.Fatalf("claims missing from context")
		}
		seen = c.UserID
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/?access_token="+pair.AccessToken, nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || seen != 3 {
		t.Fatalf("expected pass-through for user 3, got code=%d user=%d", rec.Code, seen)
	}
}
