// Package session はクライアント側の認証/セッションライフサイクルを管理する。
// トークンの取得・永続化、認証状態の購読インターフェース、
// 外部からのセッション失効への反応を提供する。
package session

import (
	"context"
	"errors"

	"github.com/hitoshi/recipeman/internal/model"
	"github.com/hitoshi/recipeman/internal/recipeapi"
)

// ErrModeUnsupported は現在の認証モードでサポートされない操作を表す。
var ErrModeUnsupported = errors.New("operation not supported in this auth mode")

// Credentials は直接モードのログイン資格情報。
type Credentials struct {
	Email    string
	Password string
}

// Registration は直接モードのアカウント登録フォーム。
type Registration struct {
	Email           string
	Username        string
	Password        string
	PasswordConfirm string
}

// Strategy は認証方式を抽象化する。
// 直接モード（DirectStrategy）と外部IDプロバイダーへの
// リダイレクトモード（OIDCStrategy)の2実装があり、起動時の設定で選択される。
// 排他的なデプロイモードであり、重ねて使用することはない。
type Strategy interface {
	// Name は戦略名（"direct" または "oidc"）を返す。
	Name() string

	// Exchange は資格情報をトークンとユーザーに交換する。directモードのみ。
	Exchange(ctx context.Context, creds Credentials) (string, *model.User, error)

	// RegisterAccount は新規アカウントを作成し、Exchangeと同じ結果を返す。directモードのみ。
	RegisterAccount(ctx context.Context, reg Registration) (string, *model.User, error)

	// LoginURL はIDプロバイダーの認可URLを返す。oidcモードのみ。directでは空文字列。
	LoginURL(state string) string

	// ExchangeCode は認可コードをトークンとユーザーに交換する。oidcモードのみ。
	ExchangeCode(ctx context.Context, code string) (string, *model.User, error)

	// LogoutURL はプロバイダーのサインアウトURLを返す。不要なモードでは空文字列。
	LogoutURL() string

	// ResolveUser はトークンに紐づくユーザーを解決する。
	// 解決できないトークンは信頼されない（呼び出し側がフェイルクローズする）。
	ResolveUser(ctx context.Context, token string) (*model.User, error)
}

// DirectStrategy はレシピAPI自身の認証エンドポイントを使用する認証戦略。
type DirectStrategy struct {
	api *recipeapi.Client
}

// NewDirectStrategy はDirectStrategyを生成する。
func NewDirectStrategy(api *recipeapi.Client) *DirectStrategy {
	return &DirectStrategy{api: api}
}

// Name は"direct"を返す。
func (s *DirectStrategy) Name() string { return "direct" }

// Exchange はPOST /api/auth/loginで資格情報を交換する。
func (s *DirectStrategy) Exchange(ctx context.Context, creds Credentials) (string, *model.User, error) {
	resp, err := s.api.Login(ctx, recipeapi.LoginInput{
		Email:    creds.Email,
		Password: creds.Password,
	})
	if err != nil {
		return "", nil, err
	}
	return resp.AccessToken, &resp.User, nil
}

// RegisterAccount はPOST /api/auth/registerで新規アカウントを作成する。
func (s *DirectStrategy) RegisterAccount(ctx context.Context, reg Registration) (string, *model.User, error) {
	resp, err := s.api.Register(ctx, recipeapi.RegisterInput{
		Email:    reg.Email,
		Username: reg.Username,
		Password: reg.Password,
	})
	if err != nil {
		return "", nil, err
	}
	return resp.AccessToken, &resp.User, nil
}

// LoginURL はdirectモードでは使用しない。
func (s *DirectStrategy) LoginURL(state string) string { return "" }

// ExchangeCode はdirectモードでは使用しない。
func (s *DirectStrategy) ExchangeCode(ctx context.Context, code string) (string, *model.User, error) {
	return "", nil, ErrModeUnsupported
}

// LogoutURL はdirectモードでは使用しない。
func (s *DirectStrategy) LogoutURL() string { return "" }

// ResolveUser はGET /api/auth/profileでユーザーを解決する。
// トークンの添付はBearerTransportが行うため、引数のトークンは使用しない。
func (s *DirectStrategy) ResolveUser(ctx context.Context, token string) (*model.User, error) {
	return s.api.Profile(ctx)
}
