package recipeapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/recipeman/internal/model"
)

// ListRecipes はレシピ一覧をページネーション付きで取得する。
// searchが空でない場合はタイトル・説明の部分一致検索になる。
func (c *Client) ListRecipes(ctx context.Context, page, limit int, search string) (*model.RecipeList, error) {
	query := url.Values{}
	query.Set("page", strconv.Itoa(page))
	query.Set("limit", strconv.Itoa(limit))
	if search != "" {
		query.Set("search", search)
	}

	var out model.RecipeList
	if err := c.do(ctx, http.MethodGet, "/api/recipes", query, nil, &out); err != nil {
		return nil, wrapTransportError(err)
	}
	return &out, nil
}

// GetRecipe は指定IDのレシピを取得する。
func (c *Client) GetRecipe(ctx context.Context, id int64) (*model.Recipe, error) {
	var out model.Recipe
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/recipes/%d", id), nil, nil, &out)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, model.NewRecipeNotFoundError(strconv.FormatInt(id, 10))
		}
		return nil, wrapTransportError(err)
	}
	return &out, nil
}

// CreateRecipe は新規レシピを作成する。認証が必要。
func (c *Client) CreateRecipe(ctx context.Context, input model.RecipeInput) (*model.Recipe, error) {
	var out model.Recipe
	if err := c.do(ctx, http.MethodPost, "/api/recipes", nil, input, &out); err != nil {
		return nil, wrapTransportError(err)
	}
	return &out, nil
}

// UpdateRecipe は既存レシピを更新する。認証と所有権が必要。
func (c *Client) UpdateRecipe(ctx context.Context, id int64, input model.RecipeInput) (*model.Recipe, error) {
	var out model.Recipe
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/recipes/%d", id), nil, input, &out)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, model.NewRecipeNotFoundError(strconv.FormatInt(id, 10))
		}
		return nil, wrapTransportError(err)
	}
	return &out, nil
}

// DeleteRecipe は指定IDのレシピを削除する。認証と所有権が必要。
func (c *Client) DeleteRecipe(ctx context.Context, id int64) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/recipes/%d", id), nil, nil, nil)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return model.NewRecipeNotFoundError(strconv.FormatInt(id, 10))
		}
		return wrapTransportError(err)
	}
	return nil
}

// wrapTransportError は送信自体の失敗をAPIUnreachableへ変換し、
// APIからのステータスエラーはそのまま返す。
func wrapTransportError(err error) error {
	if _, ok := err.(*statusError); !ok {
		return model.NewAPIUnreachableError(err.Error())
	}
	return err
}
