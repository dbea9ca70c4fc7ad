package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Token kinds carried in the "typ" claim.
const (
	KindAccess  = "access"
	KindRefresh = "refresh"
)

const issuer = "reading-quiz-service"

var ErrInvalidToken = errors.New("invalid token")

// Claims identify the user a token was issued for.
type Claims struct {
	UserID int64  `json:"uid"`
	Email  string `json:"email"`
	Kind   string `json:"typ"`
	jwt.RegisteredClaims
}

// TokenPair is returned on sign-in and refresh. RefreshID is the refresh
// token's jti; only its hash is stored server side.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	RefreshID    string `json:"-"`
}

// Issuer signs and verifies HS256 tokens.
type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

// Issue signs a fresh access/refresh pair for the user.
func (i *Issuer) Issue(userID int64, email string) (TokenPair, error) {
	access, err := i.sign(userID, email, KindAccess, uuid.NewString(), i.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refreshID := uuid.NewString()
	refresh, err := i.sign(userID, email, KindRefresh, refreshID, i.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, RefreshID: refreshID}, nil
}

func (i *Issuer) sign(userID int64, email, kind, id string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := &Claims{
		UserID: userID,
		Email:  email,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

// Parse verifies a token and checks it is of the expected kind.
func (i *Issuer) Parse(tokenStr, kind string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(i.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type ctxKey struct{}

// WithClaims stores verified claims on the context.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the claims placed by Middleware.
func FromContext(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(ctxKey{}).(*Claims)
	return c, ok
}

// Middleware requires a bearer token of the given kind. Browsers cannot set
// headers on websocket upgrades, so an access_token query parameter is accepted too.
func Middleware(i *Issuer, kind string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearer(r)
			if raw == "" {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			claims, err := i.Parse(raw, kind)
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return r.URL.Query().Get("access_token")
}
