package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/recipeman/internal/middleware"
	"github.com/hitoshi/recipeman/internal/model"
	"github.com/hitoshi/recipeman/internal/security"
)

// recipesPerPage は一覧ページに表示するレシピ数。
const recipesPerPage = 12

// excerptLength は一覧プレビューの最大文字数。
const excerptLength = 90

// RecipeService はレシピハンドラーが必要とするAPI操作のインターフェース。
// recipeapi.Clientの部分集合として定義する。
type RecipeService interface {
	ListRecipes(ctx context.Context, page, limit int, search string) (*model.RecipeList, error)
	GetRecipe(ctx context.Context, id int64) (*model.Recipe, error)
	CreateRecipe(ctx context.Context, input model.RecipeInput) (*model.Recipe, error)
	UpdateRecipe(ctx context.Context, id int64, input model.RecipeInput) (*model.Recipe, error)
	DeleteRecipe(ctx context.Context, id int64) error
}

// CommentLister はレシピ詳細に表示するコメントの取得インターフェース。
type CommentLister interface {
	ListRecipeComments(ctx context.Context, recipeID int64) ([]model.Comment, error)
}

// UserSource は現在のセッション状態の参照インターフェース。
type UserSource interface {
	IsAuthenticated() bool
	CurrentUser() *model.User
}

// ImageURLValidator は投稿フォームの画像URL検証インターフェース。
// security.ImageGuardServiceの部分集合として定義する。
type ImageURLValidator interface {
	ValidateImageURL(rawURL string) error
}

// RecipeHandler はレシピの閲覧・投稿・編集・削除のHTTPハンドラー。
type RecipeHandler struct {
	api       RecipeService
	comments  CommentLister
	sessions  UserSource
	sanitizer security.ContentSanitizerService
	guard     ImageURLValidator
	renderer  *Renderer
	logger    *slog.Logger
}

// NewRecipeHandler はRecipeHandlerを生成する。
func NewRecipeHandler(
	api RecipeService,
	comments CommentLister,
	sessions UserSource,
	sanitizer security.ContentSanitizerService,
	guard ImageURLValidator,
	renderer *Renderer,
	logger *slog.Logger,
) *RecipeHandler {
	return &RecipeHandler{
		api:       api,
		comments:  comments,
		sessions:  sessions,
		sanitizer: sanitizer,
		guard:     guard,
		renderer:  renderer,
		logger:    logger,
	}
}

// basePage は共通のテンプレートデータを組み立てる。
func (h *RecipeHandler) basePage(r *http.Request, title string) *PageData {
	return &PageData{
		Title:         title,
		Authenticated: h.sessions.IsAuthenticated(),
		User:          h.sessions.CurrentUser(),
		CSRFToken:     middleware.CSRFTokenFromRequest(r),
	}
}

// recipeCard は一覧ページの1レシピ分のテンプレートデータ。
type recipeCard struct {
	ID            int64
	Title         string
	ImageURL      string
	Excerpt       string
	TotalTime     int
	AverageRating float64
	RatingCount   int
}

// recipeListData は一覧ページのテンプレートデータ。
type recipeListData struct {
	Recipes  []recipeCard
	Search   string
	Page     int
	PrevPage int
	NextPage int
	HasNext  bool
}

// List はレシピ一覧ページを表示する。
// GET / および GET /recipes
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	page := 1
	if p, err := strconv.Atoi(query.Get("page")); err == nil && p > 0 {
		page = p
	}
	search := query.Get("search")

	list, err := h.api.ListRecipes(r.Context(), page, recipesPerPage, search)
	if err != nil {
		h.logger.Error("レシピ一覧の取得に失敗しました", slog.String("error", err.Error()))
		h.renderer.RenderError(w, http.StatusBadGateway, err, h.basePage(r, "エラー"))
		return
	}

	cards := make([]recipeCard, 0, len(list.Recipes))
	for i := range list.Recipes {
		rec := &list.Recipes[i]
		cards = append(cards, recipeCard{
			ID:            rec.ID,
			Title:         h.sanitizer.SanitizeStrict(rec.Title),
			ImageURL:      rec.ImageURL,
			Excerpt:       security.ExtractExcerpt(rec.Description, excerptLength),
			TotalTime:     rec.TotalTime(),
			AverageRating: rec.AverageRating,
			RatingCount:   rec.RatingCount,
		})
	}

	pageData := h.basePage(r, "レシピ一覧")
	pageData.Data = recipeListData{
		Recipes:  cards,
		Search:   search,
		Page:     page,
		PrevPage: page - 1,
		NextPage: page + 1,
		HasNext:  page*recipesPerPage < list.Total,
	}
	h.renderer.Render(w, http.StatusOK, "recipe_list.html", pageData)
}

// recipeDetailData は詳細ページのテンプレートデータ。
type recipeDetailData struct {
	Recipe          *model.Recipe
	Description     string
	Instructions    string
	IngredientLines []string
	Comments        []*model.Comment
	CommentTotal    int
	IsOwner         bool
}

// Detail はレシピ詳細ページを表示する。
// GET /recipes/{id}
// コメントの取得失敗はページ全体の失敗にはせず、コメントなしで表示する。
func (h *RecipeHandler) Detail(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecipeID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	recipe, err := h.api.GetRecipe(r.Context(), id)
	if err != nil {
		status := http.StatusBadGateway
		if model.HasCode(err, model.ErrCodeRecipeNotFound) {
			status = http.StatusNotFound
		}
		h.renderer.RenderError(w, status, err, h.basePage(r, "エラー"))
		return
	}

	flat, err := h.comments.ListRecipeComments(r.Context(), id)
	if err != nil {
		h.logger.Warn("コメントの取得に失敗しました",
			slog.Int64("recipe_id", id),
			slog.String("error", err.Error()),
		)
		flat = nil
	}

	// 表示するのは有効なコメントのみ
	active := make([]model.Comment, 0, len(flat))
	for _, c := range flat {
		if c.IsActive {
			c.Content = h.sanitizer.SanitizeStrict(c.Content)
			active = append(active, c)
		}
	}

	isOwner := false
	if user := h.sessions.CurrentUser(); user != nil {
		isOwner = user.ID == recipe.Author.ID
	}

	pageData := h.basePage(r, h.sanitizer.SanitizeStrict(recipe.Title))
	pageData.Data = recipeDetailData{
		Recipe:          recipe,
		Description:     formatMultiline(h.sanitizer.Sanitize(recipe.Description)),
		Instructions:    formatMultiline(h.sanitizer.Sanitize(recipe.Instructions)),
		IngredientLines: splitLines(h.sanitizer.SanitizeStrict(recipe.Ingredients)),
		Comments:        model.BuildCommentTree(active),
		CommentTotal:    len(active),
		IsOwner:         isOwner,
	}
	h.renderer.Render(w, http.StatusOK, "recipe_detail.html", pageData)
}

// recipeFormData は投稿・編集フォームのテンプレートデータ。
type recipeFormData struct {
	IsEdit bool
	Action string
	Input  model.RecipeInput
}

// NewForm はレシピ投稿フォームを表示する。
// GET /recipes/new
func (h *RecipeHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	pageData := h.basePage(r, "レシピを投稿")
	pageData.Data = recipeFormData{
		Action: "/recipes",
		Input: model.RecipeInput{
			Servings:   2,
			Difficulty: "medium",
		},
	}
	h.renderer.Render(w, http.StatusOK, "recipe_form.html", pageData)
}

// Create はレシピ投稿を処理する。
// POST /recipes
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	input, err := h.parseRecipeForm(r)
	if err != nil {
		pageData := h.basePage(r, "レシピを投稿")
		pageData.ErrorMessage = errorMessage(err)
		pageData.Data = recipeFormData{Action: "/recipes", Input: input}
		h.renderer.Render(w, http.StatusUnprocessableEntity, "recipe_form.html", pageData)
		return
	}

	recipe, err := h.api.CreateRecipe(r.Context(), input)
	if err != nil {
		h.logger.Error("レシピの作成に失敗しました", slog.String("error", err.Error()))
		pageData := h.basePage(r, "レシピを投稿")
		pageData.ErrorMessage = errorMessage(err)
		pageData.Data = recipeFormData{Action: "/recipes", Input: input}
		h.renderer.Render(w, http.StatusBadGateway, "recipe_form.html", pageData)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/recipes/%d", recipe.ID), http.StatusSeeOther)
}

// EditForm はレシピ編集フォームを表示する。
// GET /recipes/{id}/edit
// 自分のレシピ以外は編集できない。
func (h *RecipeHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecipeID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	recipe, err := h.api.GetRecipe(r.Context(), id)
	if err != nil {
		status := http.StatusBadGateway
		if model.HasCode(err, model.ErrCodeRecipeNotFound) {
			status = http.StatusNotFound
		}
		h.renderer.RenderError(w, status, err, h.basePage(r, "エラー"))
		return
	}

	if !h.isOwner(recipe) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	pageData := h.basePage(r, "レシピを編集")
	pageData.Data = recipeFormData{
		IsEdit: true,
		Action: fmt.Sprintf("/recipes/%d", id),
		Input: model.RecipeInput{
			Title:        recipe.Title,
			Description:  recipe.Description,
			Ingredients:  recipe.Ingredients,
			Instructions: recipe.Instructions,
			PrepTime:     recipe.PrepTime,
			CookTime:     recipe.CookTime,
			Servings:     recipe.Servings,
			Difficulty:   recipe.Difficulty,
			ImageURL:     recipe.ImageURL,
		},
	}
	h.renderer.Render(w, http.StatusOK, "recipe_form.html", pageData)
}

// Update はレシピ更新を処理する。
// POST /recipes/{id}
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecipeID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	action := fmt.Sprintf("/recipes/%d", id)

	input, err := h.parseRecipeForm(r)
	if err != nil {
		pageData := h.basePage(r, "レシピを編集")
		pageData.ErrorMessage = errorMessage(err)
		pageData.Data = recipeFormData{IsEdit: true, Action: action, Input: input}
		h.renderer.Render(w, http.StatusUnprocessableEntity, "recipe_form.html", pageData)
		return
	}

	if _, err := h.api.UpdateRecipe(r.Context(), id, input); err != nil {
		status := http.StatusBadGateway
		if model.HasCode(err, model.ErrCodeRecipeNotFound) {
			status = http.StatusNotFound
		}
		h.logger.Error("レシピの更新に失敗しました",
			slog.Int64("recipe_id", id),
			slog.String("error", err.Error()),
		)
		pageData := h.basePage(r, "レシピを編集")
		pageData.ErrorMessage = errorMessage(err)
		pageData.Data = recipeFormData{IsEdit: true, Action: action, Input: input}
		h.renderer.Render(w, status, "recipe_form.html", pageData)
		return
	}

	http.Redirect(w, r, action, http.StatusSeeOther)
}

// Delete はレシピ削除を処理する。
// POST /recipes/{id}/delete
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseRecipeID(r)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	if err := h.api.DeleteRecipe(r.Context(), id); err != nil {
		status := http.StatusBadGateway
		if model.HasCode(err, model.ErrCodeRecipeNotFound) {
			status = http.StatusNotFound
		}
		h.renderer.RenderError(w, status, err, h.basePage(r, "エラー"))
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// isOwner はレシピが現在のユーザーの投稿かを判定する。
func (h *RecipeHandler) isOwner(recipe *model.Recipe) bool {
	user := h.sessions.CurrentUser()
	return user != nil && user.ID == recipe.Author.ID
}

// parseRecipeForm はフォームからRecipeInputを組み立てて検証する。
// 必須項目が欠けている場合と画像URLが不正な場合はエラーを返す。
func (h *RecipeHandler) parseRecipeForm(r *http.Request) (model.RecipeInput, error) {
	if err := r.ParseForm(); err != nil {
		return model.RecipeInput{}, model.NewValidationError("フォームの解析に失敗しました")
	}

	input := model.RecipeInput{
		Title:        strings.TrimSpace(r.PostFormValue("title")),
		Description:  r.PostFormValue("description"),
		Ingredients:  r.PostFormValue("ingredients"),
		Instructions: r.PostFormValue("instructions"),
		Difficulty:   r.PostFormValue("difficulty"),
		ImageURL:     strings.TrimSpace(r.PostFormValue("image_url")),
	}
	input.PrepTime, _ = strconv.Atoi(r.PostFormValue("prep_time"))
	input.CookTime, _ = strconv.Atoi(r.PostFormValue("cook_time"))
	input.Servings, _ = strconv.Atoi(r.PostFormValue("servings"))

	if input.Title == "" {
		return input, model.NewValidationError("タイトルを入力してください")
	}
	if strings.TrimSpace(input.Ingredients) == "" {
		return input, model.NewValidationError("材料を入力してください")
	}
	if strings.TrimSpace(input.Instructions) == "" {
		return input, model.NewValidationError("作り方を入力してください")
	}

	if input.ImageURL != "" {
		if err := h.guard.ValidateImageURL(input.ImageURL); err != nil {
			return input, model.NewInvalidURLError(err.Error())
		}
	}

	return input, nil
}

// parseRecipeID はパスパラメータからレシピIDを取得する。
func parseRecipeID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// formatMultiline はサニタイズ済みテキストの改行を<br>に変換する。
// プレーンテキストで投稿された説明文や手順の表示用。
func formatMultiline(sanitized string) string {
	return strings.ReplaceAll(strings.ReplaceAll(sanitized, "\r\n", "\n"), "\n", "<br>")
}

// splitLines はテキストを行ごとに分割し、空行を除去する。
func splitLines(s string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
