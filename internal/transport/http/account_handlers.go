package http

import (
	"context"
	"net/http"
	"strings"

	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/auth"
	"reading-quiz-service/internal/domain"
)

// AccountHandler serves the /auth routes.
type AccountHandler struct {
	accounts *app.AccountService
}

func NewAccountHandler(accounts *app.AccountService) *AccountHandler {
	return &AccountHandler{accounts: accounts}
}

type signupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Nickname string `json:"nickName"`
	Age      int    `json:"age"`
	Role     string `json:"role"`
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileRequest struct {
	Nickname *string `json:"nickName"`
	Email    *string `json:"email"`
	ImageURI *string `json:"imageUri"`
}

type childRequest struct {
	Email string `json:"email"`
}

func (h *AccountHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid signup payload")
		return
	}
	if !validEmail(req.Email) || len(req.Password) < 4 || req.Age < 0 {
		writeErr(w, http.StatusBadRequest, "email, password (min 4 chars) and a non-negative age are required")
		return
	}
	user, err := h.accounts.Signup(r.Context(), app.SignupRequest{
		Email:    req.Email,
		Password: req.Password,
		Nickname: strings.TrimSpace(req.Nickname),
		Age:      req.Age,
		Role:     req.Role,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AccountHandler) Signin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeErr(w, http.StatusBadRequest, "email and password are required")
		return
	}
	pair, err := h.accounts.Signin(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// Refresh expects the refresh token in the Authorization header.
func (h *AccountHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	pair, err := h.accounts.Refresh(r.Context(), claims.UserID, claims.ID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	if err := h.accounts.Logout(r.Context(), claims.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	user, err := h.accounts.Profile(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AccountHandler) EditMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, "invalid profile payload")
		return
	}
	if req.Email != nil && !validEmail(*req.Email) {
		writeErr(w, http.StatusBadRequest, "invalid email")
		return
	}
	user, err := h.accounts.EditProfile(r.Context(), claims.UserID, app.ProfileUpdate{
		Nickname: req.Nickname,
		Email:    req.Email,
		ImageURI: req.ImageURI,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *AccountHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	if err := h.accounts.DeleteAccount(r.Context(), claims.UserID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) LinkChild(w http.ResponseWriter, r *http.Request) {
	h.childAction(w, r, h.accounts.LinkChild)
}

func (h *AccountHandler) UnlinkChild(w http.ResponseWriter, r *http.Request) {
	h.childAction(w, r, h.accounts.UnlinkChild)
}

func (h *AccountHandler) Children(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	children, err := h.accounts.Children(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if children == nil {
		children = []domain.User{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *AccountHandler) childAction(w http.ResponseWriter, r *http.Request, action func(ctx context.Context, parentID int64, email string) error) {
	claims, _ := auth.FromContext(r.Context())
	var req childRequest
	if err := decodeJSON(r, &req); err != nil || !validEmail(req.Email) {
		writeErr(w, http.StatusBadRequest, "student email is required")
		return
	}
	if err := action(r.Context(), claims.UserID, req.Email); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func validEmail(email string) bool {
	email = strings.TrimSpace(email)
	at := strings.IndexByte(email, '@')
	return at > 0 && at < len(email)-1
}
