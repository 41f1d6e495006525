package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hitoshi/recipeman/internal/model"
)

// OIDCConfig はOIDCStrategyの設定。
type OIDCConfig struct {
	// Authority はIDプロバイダーのissuer URL（末尾スラッシュなし）。
	Authority string
	// ClientID はプロバイダーに登録済みのクライアントID。
	ClientID string
	// RedirectURL は認可コードを受け取るコールバックURL。
	RedirectURL string
	// Scopes は要求するスコープ（スペース区切り）。
	Scopes string
	// PostLogoutRedirectURL はサインアウト後に戻るURL。
	PostLogoutRedirectURL string

	// テスト用にディスカバリーを省略してオーバーライド可能なエンドポイント
	AuthorizationEndpoint string
	TokenEndpoint         string
	UserInfoEndpoint      string
	EndSessionEndpoint    string
}

// OIDCStrategy は外部IDプロバイダーへの認可コードリダイレクトフローを使用する認証戦略。
// ログインはブラウザのフルページ遷移でプロバイダーに委譲され、
// コールバックで受け取った認可コードをトークンに交換する。
type OIDCStrategy struct {
	config     OIDCConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// discoveryDocument はOpenID Connectのディスカバリードキュメント。
type discoveryDocument struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserInfoEndpoint      string `json:"userinfo_endpoint"`
	EndSessionEndpoint    string `json:"end_session_endpoint"`
}

// NewOIDCStrategy はOIDCStrategyを生成する。
// エンドポイントが未指定の場合はauthorityのwell-knownドキュメントから解決する。
// ディスカバリー失敗は起動エラーとして扱う。
func NewOIDCStrategy(ctx context.Context, config OIDCConfig, httpClient *http.Client, logger *slog.Logger) (*OIDCStrategy, error) {
	s := &OIDCStrategy{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
	}

	if config.AuthorizationEndpoint == "" || config.TokenEndpoint == "" || config.UserInfoEndpoint == "" {
		if err := s.discover(ctx); err != nil {
			return nil, fmt.Errorf("OIDC discovery failed: %w", err)
		}
	}

	return s, nil
}

// discover はwell-knownドキュメントからエンドポイントを解決する。
func (s *OIDCStrategy) discover(ctx context.Context) error {
	wellKnown := s.config.Authority + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, wellKnown, nil)
	if err != nil {
		return fmt.Errorf("failed to create discovery request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return fmt.Errorf("failed to decode discovery document: %w", err)
	}

	if s.config.AuthorizationEndpoint == "" {
		s.config.AuthorizationEndpoint = doc.AuthorizationEndpoint
	}
	if s.config.TokenEndpoint == "" {
		s.config.TokenEndpoint = doc.TokenEndpoint
	}
	if s.config.UserInfoEndpoint == "" {
		s.config.UserInfoEndpoint = doc.UserInfoEndpoint
	}
	if s.config.EndSessionEndpoint == "" {
		s.config.EndSessionEndpoint = doc.EndSessionEndpoint
	}

	s.logger.Info("OIDCエンドポイントを解決しました",
		slog.String("authority", s.config.Authority),
		slog.String("token_endpoint", s.config.TokenEndpoint),
	)

	return nil
}

// Name は"oidc"を返す。
func (s *OIDCStrategy) Name() string { return "oidc" }

// Exchange はoidcモードでは使用しない。ログインはリダイレクトフローで行う。
func (s *OIDCStrategy) Exchange(ctx context.Context, creds Credentials) (string, *model.User, error) {
	return "", nil, ErrModeUnsupported
}

// RegisterAccount はoidcモードでは使用しない。登録はプロバイダー側で行う。
func (s *OIDCStrategy) RegisterAccount(ctx context.Context, reg Registration) (string, *model.User, error) {
	return "", nil, ErrModeUnsupported
}

// LoginURL はプロバイダーの認可URLを生成する。
// response_type=codeの認可コードフローを使用する。
func (s *OIDCStrategy) LoginURL(state string) string {
	params := url.Values{
		"client_id":     {s.config.ClientID},
		"redirect_uri":  {s.config.RedirectURL},
		"response_type": {"code"},
		"scope":         {s.config.Scopes},
		"state":         {state},
	}
	return s.config.AuthorizationEndpoint + "?" + params.Encode()
}

// tokenResponse はトークンエンドポイントのレスポンス。
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// ExchangeCode は認可コードをトークンに交換し、IDトークンのクレームからユーザーを構築する。
// リダイレクトフローに同期的な失敗はなく、交換失敗は未認証状態として表面化する。
func (s *OIDCStrategy) ExchangeCode(ctx context.Context, code string) (string, *model.User, error) {
	form := url.Values{
		"grant_type":   {"authorization_code"},
		"code":         {code},
		"client_id":    {s.config.ClientID},
		"redirect_uri": {s.config.RedirectURL},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.TokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", nil, model.NewAPIUnreachableError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		s.logger.Warn("トークンエンドポイントがエラーを返しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("body", string(body)),
		)
		return "", nil, model.NewInvalidCredentialsError()
	}

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", nil, fmt.Errorf("failed to decode token response: %w", err)
	}

	// トークンはTLS経由でプロバイダーから直接受け取ったものなので、
	// 署名検証は行わずクレームのマッピングのみ行う。
	user, err := userFromIDToken(token.IDToken)
	if err != nil {
		return "", nil, err
	}

	return token.AccessToken, user, nil
}

// LogoutURL はプロバイダーのサインアウトURLを生成する。
// end_session_endpointが未解決の場合は空文字列を返す。
func (s *OIDCStrategy) LogoutURL() string {
	if s.config.EndSessionEndpoint == "" {
		return ""
	}

	params := url.Values{
		"client_id": {s.config.ClientID},
	}
	if s.config.PostLogoutRedirectURL != "" {
		params.Set("logout_uri", s.config.PostLogoutRedirectURL)
	}
	return s.config.EndSessionEndpoint + "?" + params.Encode()
}

// ResolveUser はuserinfoエンドポイントでトークンからユーザーを解決する。
func (s *OIDCStrategy) ResolveUser(ctx context.Context, token string) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.config.UserInfoEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, model.NewAPIUnreachableError(err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewSessionInvalidError()
	}

	var claims map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&claims); err != nil {
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	return userFromClaims(claims), nil
}

// userFromIDToken はIDトークンのクレームからユーザーを構築する。
func userFromIDToken(idToken string) (*model.User, error) {
	if idToken == "" {
		return nil, fmt.Errorf("token response did not include an ID token")
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse ID token: %w", err)
	}

	return userFromClaims(claims), nil
}

// userFromClaims はIDプロバイダーのクレームをUserにマッピングする。
//
//	id:       sub → cognito:username
//	username: preferred_username → cognito:username → email
//	email:    email
func userFromClaims(claims map[string]any) *model.User {
	user := &model.User{}

	if sub, ok := claims["sub"].(string); ok && sub != "" {
		user.ID = sub
	} else if name, ok := claims["cognito:username"].(string); ok {
		user.ID = name
	}

	if name, ok := claims["preferred_username"].(string); ok && name != "" {
		user.Username = name
	} else if name, ok := claims["cognito:username"].(string); ok && name != "" {
		user.Username = name
	} else if email, ok := claims["email"].(string); ok {
		user.Username = email
	}

	if email, ok := claims["email"].(string); ok {
		user.Email = email
	}

	return user
}
