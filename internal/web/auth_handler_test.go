package web

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/recipeman/internal/model"
	"github.com/hitoshi/recipeman/internal/session"
)

// mockSessionService はSessionServiceのモック実装。
type mockSessionService struct {
	authenticated    bool
	user             *model.User
	loginFunc        func(ctx context.Context, creds session.Credentials) error
	registerFunc     func(ctx context.Context, reg session.Registration) error
	completeLoginErr error
	logoutCalled     bool
	loginURL         string
	logoutURL        string
}

func (m *mockSessionService) IsAuthenticated() bool { return m.authenticated }

func (m *mockSessionService) CurrentUser() *model.User { return m.user }

func (m *mockSessionService) LogoutURL() string { return m.logoutURL }

func (m *mockSessionService) LoginURL(state string) string {
	return m.loginURL + "?state=" + state
}

func (m *mockSessionService) Login(ctx context.Context, creds session.Credentials) error {
	if m.loginFunc != nil {
		return m.loginFunc(ctx, creds)
	}
	return nil
}

func (m *mockSessionService) Register(ctx context.Context, reg session.Registration) error {
	if m.registerFunc != nil {
		return m.registerFunc(ctx, reg)
	}
	return nil
}

func (m *mockSessionService) CompleteLogin(ctx context.Context, code string) error {
	return m.completeLoginErr
}

func (m *mockSessionService) Logout(ctx context.Context) error {
	m.logoutCalled = true
	return nil
}

func testWebLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(testWebLogger())
	if err != nil {
		t.Fatalf("NewRenderer() error = %v", err)
	}
	return r
}

func newAuthHandler(t *testing.T, sessions *mockSessionService, config AuthHandlerConfig) *AuthHandler {
	t.Helper()
	return NewAuthHandler(sessions, testRenderer(t), config, testWebLogger())
}

func postFormRequest(path string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// TestShowLogin_RendersForm はdirectモードでログインフォームが表示されることをテストする。
func TestShowLogin_RendersForm(t *testing.T) {
	h := newAuthHandler(t, &mockSessionService{}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	h.ShowLogin(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `name="email"`) || !strings.Contains(body, `name="password"`) {
		t.Error("ログインフォームの入力欄が出力されていません")
	}
}

// TestShowLogin_RedirectsAuthenticated は認証済みの場合にトップへ戻ることをテストする。
func TestShowLogin_RedirectsAuthenticated(t *testing.T) {
	h := newAuthHandler(t, &mockSessionService{authenticated: true}, AuthHandlerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	h.ShowLogin(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want /", got)
	}
}

// TestShowLogin_OIDCRedirectsToProvider はoidcモードでIDプロバイダーへ
// リダイレクトされ、stateのCookieが設定されることをテストする。
func TestShowLogin_OIDCRedirectsToProvider(t *testing.T) {
	sessions := &mockSessionService{loginURL: "https://idp.example.com/authorize"}
	h := newAuthHandler(t, sessions, AuthHandlerConfig{OIDCMode: true})

	req := httptest.NewRequest(http.MethodGet, "/login", nil)
	rec := httptest.NewRecorder()
	h.ShowLogin(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "https://idp.example.com/authorize") {
		t.Errorf("Location = %q, want IDプロバイダーのURL", location)
	}

	var stateCookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == oauthStateCookieName {
			stateCookie = c
		}
	}
	if stateCookie == nil || stateCookie.Value == "" {
		t.Fatal("stateのCookieが設定されていません")
	}
	if !strings.Contains(location, "state="+stateCookie.Value) {
		t.Error("リダイレクトURLのstateとCookieのstateが一致しません")
	}
}

// TestLogin_Success はログイン成功時のリダイレクトをテストする。
func TestLogin_Success(t *testing.T) {
	var gotCreds session.Credentials
	sessions := &mockSessionService{
		loginFunc: func(ctx context.Context, creds session.Credentials) error {
			gotCreds = creds
			return nil
		},
	}
	h := newAuthHandler(t, sessions, AuthHandlerConfig{})

	form := url.Values{
		"email":    {"tanaka@example.com"},
		"password": {"secret"},
		"next":     {"/recipes/5"},
	}
	rec := httptest.NewRecorder()
	h.Login(rec, postFormRequest("/login", form))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != "/recipes/5" {
		t.Errorf("Location = %q, want /recipes/5", got)
	}
	if gotCreds.Email != "tanaka@example.com" {
		t.Errorf("email = %q", gotCreds.Email)
	}
}

// TestLogin_InvalidCredentials はログイン拒否時に401でフォームを再表示することをテストする。
func TestLogin_InvalidCredentials(t *testing.T) {
	sessions := &mockSessionService{
		loginFunc: func(ctx context.Context, creds session.Credentials) error {
			return model.NewInvalidCredentialsError()
		},
	}
	h := newAuthHandler(t, sessions, AuthHandlerConfig{})

	form := url.Values{"email": {"tanaka@example.com"}, "password": {"wrong"}}
	rec := httptest.NewRecorder()
	h.Login(rec, postFormRequest("/login", form))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "メールアドレスまたはパスワードが正しくありません") {
		t.Error("エラーメッセージが表示されていません")
	}
	if !strings.Contains(body, `value="tanaka@example.com"`) {
		t.Error("入力済みメールアドレスが保持されていません")
	}
}

// TestLogin_NotFoundInOIDCMode はoidcモードでフォームログインが404になることをテストする。
func TestLogin_NotFoundInOIDCMode(t *testing.T) {
	h := newAuthHandler(t, &mockSessionService{}, AuthHandlerConfig{OIDCMode: true})

	rec := httptest.NewRecorder()
	h.Login(rec, postFormRequest("/login", url.Values{}))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

// TestRegister_ValidationError はローカル検証エラーで422になることをテストする。
func TestRegister_ValidationError(t *testing.T) {
	sessions := &mockSessionService{
		registerFunc: func(ctx context.Context, reg session.Registration) error {
			return session.ValidateRegistration(reg)
		},
	}
	h := newAuthHandler(t, sessions, AuthHandlerConfig{})

	form := url.Values{
		"email":            {"tanaka@example.com"},
		"username":         {"tanaka"},
		"password":         {"secret1"},
		"password_confirm": {"secret2"},
	}
	rec := httptest.NewRecorder()
	h.Register(rec, postFormRequest("/register", form))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnprocessableEntity)
	}
	if !strings.Contains(rec.Body.String(), "確認用パスワードが一致しません") {
		t.Error("検証エラーメッセージが表示されていません")
	}
}

// TestCallback_Success はstate一致時にログインが完了することをテストする。
func TestCallback_Success(t *testing.T) {
	h := newAuthHandler(t, &mockSessionService{}, AuthHandlerConfig{OIDCMode: true})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=s1", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookieName, Value: "s1"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want /", got)
	}
}

// TestCallback_StateMismatch はstate不一致が400になることをテストする。
func TestCallback_StateMismatch(t *testing.T) {
	h := newAuthHandler(t, &mockSessionService{}, AuthHandlerConfig{OIDCMode: true})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=forged", nil)
	req.AddCookie(&http.Cookie{Name: oauthStateCookieName, Value: "s1"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

// TestCallback_ProviderError はプロバイダーの拒否がエラーページになることをテストする。
func TestCallback_ProviderError(t *testing.T) {
	h := newAuthHandler(t, &mockSessionService{}, AuthHandlerConfig{OIDCMode: true})

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?error=access_denied", nil)
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

// TestLogout_Direct はdirectモードのログアウトをテストする。
func TestLogout_Direct(t *testing.T) {
	sessions := &mockSessionService{authenticated: true}
	h := newAuthHandler(t, sessions, AuthHandlerConfig{})

	rec := httptest.NewRecorder()
	h.Logout(rec, postFormRequest("/logout", url.Values{}))

	if !sessions.logoutCalled {
		t.Error("Logoutが呼ばれていません")
	}
	if got := rec.Header().Get("Location"); got != "/" {
		t.Errorf("Location = %q, want /", got)
	}
}

// TestLogout_OIDCRedirectsToProvider はoidcモードのログアウトが
// プロバイダーのサインアウトURLへリダイレクトされることをテストする。
func TestLogout_OIDCRedirectsToProvider(t *testing.T) {
	sessions := &mockSessionService{
		authenticated: true,
		logoutURL:     "https://idp.example.com/logout?client_id=c1",
	}
	h := newAuthHandler(t, sessions, AuthHandlerConfig{OIDCMode: true})

	rec := httptest.NewRecorder()
	h.Logout(rec, postFormRequest("/logout", url.Values{}))

	if !sessions.logoutCalled {
		t.Error("Logoutが呼ばれていません")
	}
	if got := rec.Header().Get("Location"); got != sessions.logoutURL {
		t.Errorf("Location = %q, want %q", got, sessions.logoutURL)
	}
}
