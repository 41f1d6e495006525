package recipeapi

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/hitoshi/recipeman/internal/model"
)

// ratingInput はレシピ評価リクエストのボディ。
type ratingInput struct {
	Rating float64 `json:"rating"`
}

// RateRecipe はレシピを1〜5で評価する。同一ユーザーの再評価は上書きされる。認証が必要。
func (c *Client) RateRecipe(ctx context.Context, recipeID int64, rating float64) (*model.Rating, error) {
	if rating < 1 || rating > 5 {
		return nil, model.NewValidationError(fmt.Sprintf("評価は1〜5で指定してください: %g", rating))
	}

	var out model.Rating
	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/recipes/%d/ratings", recipeID), nil, ratingInput{Rating: rating}, &out)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, model.NewRecipeNotFoundError(strconv.FormatInt(recipeID, 10))
		}
		return nil, wrapTransportError(err)
	}
	return &out, nil
}

// ListRecipeRatings は指定レシピの評価一覧を取得する。
func (c *Client) ListRecipeRatings(ctx context.Context, recipeID int64) ([]model.Rating, error) {
	var out []model.Rating
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/recipes/%d/ratings", recipeID), nil, nil, &out)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, model.NewRecipeNotFoundError(strconv.FormatInt(recipeID, 10))
		}
		return nil, wrapTransportError(err)
	}
	return out, nil
}
