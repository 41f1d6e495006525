package recipeapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/hitoshi/recipeman/internal/model"
)

// commentInput はコメント作成リクエストのボディ。
type commentInput struct {
	RecipeID int64  `json:"recipe_id"`
	Content  string `json:"content"`
	ParentID *int64 `json:"parent_id,omitempty"`
}

// voteInput はコメント投票リクエストのボディ。
type voteInput struct {
	VoteType string `json:"vote_type"`
}

// ListRecipeComments は指定レシピの全コメントを取得する。
func (c *Client) ListRecipeComments(ctx context.Context, recipeID int64) ([]model.Comment, error) {
	var out []model.Comment
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/comments/recipe/%d", recipeID), nil, nil, &out)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, model.NewRecipeNotFoundError(strconv.FormatInt(recipeID, 10))
		}
		return nil, wrapTransportError(err)
	}
	return out, nil
}

// CreateComment はコメントを投稿する。parentIDを指定すると返信になる。認証が必要。
func (c *Client) CreateComment(ctx context.Context, recipeID int64, content string, parentID *int64) (*model.Comment, error) {
	input := commentInput{
		RecipeID: recipeID,
		Content:  content,
		ParentID: parentID,
	}

	var out model.Comment
	if err := c.do(ctx, http.MethodPost, "/api/comments", nil, input, &out); err != nil {
		return nil, wrapTransportError(err)
	}
	return &out, nil
}

// UpdateComment はコメント本文を更新する。認証と所有権が必要。
func (c *Client) UpdateComment(ctx context.Context, commentID int64, content string) (*model.Comment, error) {
	var out model.Comment
	body := map[string]string{"content": content}
	err := c.do(ctx, http.MethodPut, fmt.Sprintf("/api/comments/%d", commentID), nil, body, &out)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, model.NewCommentNotFoundError(strconv.FormatInt(commentID, 10))
		}
		return nil, wrapTransportError(err)
	}
	return &out, nil
}

// DeleteComment はコメントを削除する。認証と所有権が必要。
func (c *Client) DeleteComment(ctx context.Context, commentID int64) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, nil, nil)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return model.NewCommentNotFoundError(strconv.FormatInt(commentID, 10))
		}
		return wrapTransportError(err)
	}
	return nil
}

// VoteComment はコメントに投票する。voteTypeはmodel.VoteUpまたはmodel.VoteDown。
// 既に投票済みの場合は投票が置き換えられる（APIの仕様）。
func (c *Client) VoteComment(ctx context.Context, commentID int64, voteType string) error {
	if voteType != model.VoteUp && voteType != model.VoteDown {
		return model.NewValidationError(fmt.Sprintf("投票種別が不正です: %s", voteType))
	}

	err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/comments/%d/vote", commentID), nil, voteInput{VoteType: voteType}, nil)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return model.NewCommentNotFoundError(strconv.FormatInt(commentID, 10))
		}
		return wrapTransportError(err)
	}
	return nil
}

// RemoveCommentVote は自分の投票を取り消す。
func (c *Client) RemoveCommentVote(ctx context.Context, commentID int64) error {
	err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/comments/%d/vote", commentID), nil, nil, nil)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return model.NewCommentNotFoundError(strconv.FormatInt(commentID, 10))
		}
		return wrapTransportError(err)
	}
	return nil
}

// ListCommentReplies は指定コメントへの返信をページネーション付きで取得する。
func (c *Client) ListCommentReplies(ctx context.Context, commentID int64, skip, limit int) (*model.CommentPage, error) {
	query := url.Values{}
	query.Set("skip", strconv.Itoa(skip))
	query.Set("limit", strconv.Itoa(limit))

	var out model.CommentPage
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/comments/%d/replies", commentID), query, nil, &out)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, model.NewCommentNotFoundError(strconv.FormatInt(commentID, 10))
		}
		return nil, wrapTransportError(err)
	}
	return &out, nil
}
