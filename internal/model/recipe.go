package model

import "time"

// Recipe はレシピAPIが返すレシピを表す。
type Recipe struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	Ingredients   string     `json:"ingredients"`
	Instructions  string     `json:"instructions"`
	PrepTime      int        `json:"prep_time"`
	CookTime      int        `json:"cook_time"`
	Servings      int        `json:"servings"`
	Difficulty    string     `json:"difficulty"`
	ImageURL      string     `json:"image_url"`
	IsPublished   bool       `json:"is_published"`
	Author        User       `json:"author"`
	AverageRating float64    `json:"average_rating"`
	RatingCount   int        `json:"rating_count"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     *time.Time `json:"updated_at"`
}

// TotalTime は準備時間と調理時間の合計（分）を返す。
func (r *Recipe) TotalTime() int {
	return r.PrepTime + r.CookTime
}

// RecipeInput はレシピの作成・更新リクエストのボディ。
type RecipeInput struct {
	Title        string `json:"title"`
	Description  string `json:"description,omitempty"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
	PrepTime     int    `json:"prep_time,omitempty"`
	CookTime     int    `json:"cook_time,omitempty"`
	Servings     int    `json:"servings,omitempty"`
	Difficulty   string `json:"difficulty,omitempty"`
	ImageURL     string `json:"image_url,omitempty"`
}

// RecipeList はページネーション付きのレシピ一覧レスポンス。
type RecipeList struct {
	Recipes []Recipe `json:"recipes"`
	Total   int      `json:"total"`
}
