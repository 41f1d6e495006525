package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipeman/internal/model"
)

// CommentService はコメントハンドラーが必要とするAPI操作のインターフェース。
// recipeapi.Clientの部分集合として定義する。
type CommentService interface {
	CreateComment(ctx context.Context, recipeID int64, content string, parentID *int64) (*model.Comment, error)
	DeleteComment(ctx context.Context, commentID int64) error
	VoteComment(ctx context.Context, commentID int64, voteType string) error
	RemoveCommentVote(ctx context.Context, commentID int64) error
}

// CommentHandler はコメントの投稿・削除・投票のHTTPハンドラー。
// 処理後は元のレシピ詳細ページへリダイレクトする。
type CommentHandler struct {
	api    CommentService
	logger *slog.Logger
}

// NewCommentHandler はCommentHandlerを生成する。
func NewCommentHandler(api CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{
		api:    api,
		logger: logger,
	}
}

// Create はコメント投稿を処理する。
// POST /recipes/{id}/comments
// parent_idが指定されている場合は返信として作成する。
func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	content := strings.TrimSpace(r.PostFormValue("content"))
	if content == "" {
		// 空コメントは投稿せず元のページに戻す
		http.Redirect(w, r, redirect, http.StatusSeeOther)
		return
	}

	var parentID *int64
	if raw := r.PostFormValue("parent_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		parentID = &id
	}

	if _, err := h.api.CreateComment(r.Context(), recipeID, content, parentID); err != nil {
		h.logger.Error("コメントの投稿に失敗しました",
			slog.Int64("recipe_id", recipeID),
			slog.String("error", err.Error()),
		)
	}

	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// Delete はコメント削除を処理する。
// POST /comments/{commentID}/delete
func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	commentID, err := parseCommentID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.api.DeleteComment(r.Context(), commentID); err != nil {
		h.logger.Error("コメントの削除に失敗しました",
			slog.Int64("comment_id", commentID),
			slog.String("error", err.Error()),
		)
	}

	http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
}

// Vote はコメントへの投票を処理する。
// POST /comments/{commentID}/vote
// voteフィールドはup/down/removeのいずれか。
func (h *CommentHandler) Vote(w http.ResponseWriter, r *http.Request) {
	commentID, err := parseCommentID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	vote := r.PostFormValue("vote")
	switch vote {
	case model.VoteUp, model.VoteDown:
		err = h.api.VoteComment(r.Context(), commentID, vote)
	case "remove":
		err = h.api.RemoveCommentVote(r.Context(), commentID)
	default:
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	if err != nil {
		h.logger.Error("コメントへの投票に失敗しました",
			slog.Int64("comment_id", commentID),
			slog.String("vote", vote),
			slog.String("error", err.Error()),
		)
	}

	http.Redirect(w, r, redirectTarget(r), http.StatusSeeOther)
}

// parseCommentID はパスパラメータからコメントIDを取得する。
func parseCommentID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "commentID"), 10, 64)
}

// redirectTarget はフォームのrecipe_idから戻り先のレシピ詳細パスを組み立てる。
// 取得できない場合はトップページに戻す。
func redirectTarget(r *http.Request) string {
	if raw := r.PostFormValue("recipe_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return fmt.Sprintf("/recipes/%d", id)
		}
	}
	return "/"
}
