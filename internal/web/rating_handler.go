package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hitoshi/recipeman/internal/model"
)

// RatingService は評価ハンドラーが必要とするAPI操作のインターフェース。
type RatingService interface {
	RateRecipe(ctx context.Context, recipeID int64, rating float64) (*model.Rating, error)
}

// RatingHandler はレシピ評価のHTTPハンドラー。
type RatingHandler struct {
	api    RatingService
	logger *slog.Logger
}

// NewRatingHandler はRatingHandlerを生成する。
func NewRatingHandler(api RatingService, logger *slog.Logger) *RatingHandler {
	return &RatingHandler{
		api:    api,
		logger: logger,
	}
}

// Rate はレシピへの評価投稿を処理する。
// POST /recipes/{id}/rate
// valueは1〜5の整数。同じユーザーの再評価は上書きされる（API側の仕様）。
func (h *RatingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	recipeID, err := parseRecipeID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	redirect := fmt.Sprintf("/recipes/%d", recipeID)

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	value, err := strconv.Atoi(r.PostFormValue("value"))
	if err != nil || value < 1 || value > 5 {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if _, err := h.api.RateRecipe(r.Context(), recipeID, float64(value)); err != nil {
		h.logger.Error("レシピの評価に失敗しました",
			slog.Int64("recipe_id", recipeID),
			slog.Int("value", value),
			slog.String("error", err.Error()),
		)
	}

	http.Redirect(w, r, redirect, http.StatusSeeOther)
}
