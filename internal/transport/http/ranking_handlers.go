package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"reading-quiz-service/internal/app"
	"reading-quiz-service/internal/auth"
)

type RankingHandler struct {
	rankings *app.RankingService
}

func NewRankingHandler(rankings *app.RankingService) *RankingHandler {
	return &RankingHandler{rankings: rankings}
}

func (h *RankingHandler) Category(w http.ResponseWriter, r *http.Request) {
	category, err := url.PathUnescape(chi.URLParam(r, "category"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, "invalid category")
		return
	}
	claims, _ := auth.FromContext(r.Context())
	ranking, err := h.rankings.CategoryRanking(r.Context(), category, claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}

func (h *RankingHandler) Overall(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.FromContext(r.Context())
	ranking, err := h.rankings.OverallRanking(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ranking)
}
