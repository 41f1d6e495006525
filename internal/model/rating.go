package model

import "time"

// Rating はレシピに対する評価（1〜5）を表す。
type Rating struct {
	ID        int64     `json:"id"`
	RecipeID  int64     `json:"recipe_id"`
	Rating    float64   `json:"rating"`
	Author    User      `json:"author"`
	CreatedAt time.Time `json:"created_at"`
}
