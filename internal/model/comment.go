package model

import "time"

// コメント投票の種別。
const (
	VoteUp   = "up"
	VoteDown = "down"
)

// Comment はレシピに対するスレッド形式のコメントを表す。
// ParentIDがnilの場合はトップレベルコメント、非nilの場合は返信。
type Comment struct {
	ID        int64      `json:"id"`
	RecipeID  int64      `json:"recipe_id"`
	ParentID  *int64     `json:"parent_id"`
	Content   string     `json:"content"`
	IsActive  bool       `json:"is_active"`
	Author    User       `json:"author"`
	Upvotes   int        `json:"upvotes"`
	Downvotes int        `json:"downvotes"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`

	// Replies はクライアント側でツリー構築した返信。APIレスポンスには含まれない。
	Replies []*Comment `json:"-"`
}

// Score は賛成票と反対票の差分を返す。
func (c *Comment) Score() int {
	return c.Upvotes - c.Downvotes
}

// CommentPage はページネーション付きのコメント一覧レスポンス。
type CommentPage struct {
	Comments []Comment `json:"comments"`
	Total    int       `json:"total"`
}

// BuildCommentTree はフラットなコメント一覧を親子ツリーに組み立てる。
// 親が見つからない返信はトップレベルとして扱う。入力順は保持される。
func BuildCommentTree(flat []Comment) []*Comment {
	byID := make(map[int64]*Comment, len(flat))
	nodes := make([]*Comment, len(flat))
	for i := range flat {
		c := flat[i]
		nodes[i] = &c
		byID[c.ID] = nodes[i]
	}

	var roots []*Comment
	for _, n := range nodes {
		if n.ParentID != nil {
			if parent, ok := byID[*n.ParentID]; ok {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	return roots
}
