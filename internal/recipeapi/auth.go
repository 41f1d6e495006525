package recipeapi

import (
	"context"
	"net/http"

	"github.com/hitoshi/recipeman/internal/model"
)

// LoginInput はログインリクエストのボディ。
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterInput はアカウント登録リクエストのボディ。
type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse はログイン/登録成功時のレスポンス。
type AuthResponse struct {
	AccessToken string     `json:"access_token"`
	User        model.User `json:"user"`
}

// Login は資格情報をトークンとユーザー情報に交換する。
// サーバーが資格情報を拒否した場合はInvalidCredentialsエラーを返す。
func (c *Client) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, input, &out)
	if err != nil {
		switch statusOf(err) {
		case http.StatusUnauthorized, http.StatusBadRequest, http.StatusForbidden:
			return nil, model.NewInvalidCredentialsError()
		case 0:
			return nil, model.NewAPIUnreachableError(err.Error())
		default:
			return nil, err
		}
	}
	return &out, nil
}

// Register は新規アカウントを作成し、ログインと同じレスポンスを返す。
// メールアドレス重複等のコンフリクトはRegistrationRejectedエラーになる。
func (c *Client) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", nil, input, &out)
	if err != nil {
		switch statusOf(err) {
		case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
			return nil, model.NewRegistrationRejectedError(detailOf(err))
		case 0:
			return nil, model.NewAPIUnreachableError(err.Error())
		default:
			return nil, err
		}
	}
	return &out, nil
}

// Profile は現在のトークンに紐づくユーザー情報を取得する。
// トークンが拒否された場合はSessionInvalidエラーを返す。
// 到達不能もセッション無効と同様に扱う（リトライせずフェイルクローズ）。
func (c *Client) Profile(ctx context.Context) (*model.User, error) {
	var out model.User
	err := c.do(ctx, http.MethodGet, "/api/auth/profile", nil, nil, &out)
	if err != nil {
		switch statusOf(err) {
		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, model.NewSessionInvalidError()
		case 0:
			return nil, model.NewAPIUnreachableError(err.Error())
		default:
			return nil, err
		}
	}
	return &out, nil
}
