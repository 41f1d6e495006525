package web

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/recipeman/internal/middleware"
	"github.com/hitoshi/recipeman/internal/model"
	"github.com/hitoshi/recipeman/internal/session"
)

// oauthStateCookieName はOIDCリダイレクトフローのstateを保持するCookieの名前。
const oauthStateCookieName = "oauth_state"

// SessionService は認証ハンドラーが必要とするセッション操作のインターフェース。
// session.Managerの部分集合として定義する。
type SessionService interface {
	IsAuthenticated() bool
	CurrentUser() *model.User
	Login(ctx context.Context, creds session.Credentials) error
	Register(ctx context.Context, reg session.Registration) error
	LoginURL(state string) string
	CompleteLogin(ctx context.Context, code string) error
	Logout(ctx context.Context) error
	LogoutURL() string
}

// AuthHandlerConfig は認証ハンドラーの設定。
type AuthHandlerConfig struct {
	// OIDCMode がtrueの場合、ログインは外部IDプロバイダーへの
	// リダイレクトフローになり、フォームログインと登録は提供されない。
	OIDCMode     bool
	CookieSecure bool
}

// AuthHandler はログイン・登録・ログアウトのHTTPハンドラー。
type AuthHandler struct {
	sessions SessionService
	renderer *Renderer
	config   AuthHandlerConfig
	logger   *slog.Logger
}

// NewAuthHandler はAuthHandlerを生成する。
func NewAuthHandler(sessions SessionService, renderer *Renderer, config AuthHandlerConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		sessions: sessions,
		renderer: renderer,
		config:   config,
		logger:   logger,
	}
}

// basePage は共通のテンプレートデータを組み立てる。
func (h *AuthHandler) basePage(r *http.Request, title string) *PageData {
	return &PageData{
		Title:         title,
		Authenticated: h.sessions.IsAuthenticated(),
		User:          h.sessions.CurrentUser(),
		CSRFToken:     middleware.CSRFTokenFromRequest(r),
	}
}

// loginFormData はログインフォームのテンプレートデータ。
type loginFormData struct {
	Email string
	Next  string
}

// ShowLogin はログインページを表示する。
// GET /login
// 認証済みの場合はトップページへ、oidcモードの場合はIDプロバイダーへリダイレクトする。
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	if h.sessions.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if h.config.OIDCMode {
		h.redirectToProvider(w, r)
		return
	}

	page := h.basePage(r, "ログイン")
	page.Data = loginFormData{Next: middleware.SafeReturnPath(r.URL.Query().Get("next"))}
	h.renderer.Render(w, http.StatusOK, "login.html", page)
}

// Login はフォームログインを処理する。directモードのみ。
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if h.config.OIDCMode {
		http.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	creds := session.Credentials{
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	next := middleware.SafeReturnPath(r.PostFormValue("next"))

	if err := h.sessions.Login(r.Context(), creds); err != nil {
		status := http.StatusUnauthorized
		if model.HasCode(err, model.ErrCodeAPIUnreachable) {
			status = http.StatusBadGateway
		}

		page := h.basePage(r, "ログイン")
		page.ErrorMessage = errorMessage(err)
		page.Data = loginFormData{Email: creds.Email, Next: next}
		h.renderer.Render(w, status, "login.html", page)
		return
	}

	http.Redirect(w, r, next, http.StatusSeeOther)
}

// registerFormData は登録フォームのテンプレートデータ。
type registerFormData struct {
	Email    string
	Username string
}

// ShowRegister は新規登録ページを表示する。directモードのみ。
// GET /register
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	if h.config.OIDCMode {
		http.NotFound(w, r)
		return
	}
	if h.sessions.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	page := h.basePage(r, "新規登録")
	page.Data = registerFormData{}
	h.renderer.Render(w, http.StatusOK, "register.html", page)
}

// Register は新規登録を処理する。directモードのみ。
// POST /register
// ローカル検証に失敗した場合、ネットワーク送信は行われずフォームを再表示する。
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h.config.OIDCMode {
		http.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	reg := session.Registration{
		Email:           r.PostFormValue("email"),
		Username:        r.PostFormValue("username"),
		Password:        r.PostFormValue("password"),
		PasswordConfirm: r.PostFormValue("password_confirm"),
	}

	if err := h.sessions.Register(r.Context(), reg); err != nil {
		status := http.StatusUnprocessableEntity
		if model.HasCode(err, model.ErrCodeAPIUnreachable) {
			status = http.StatusBadGateway
		}

		page := h.basePage(r, "新規登録")
		page.ErrorMessage = errorMessage(err)
		page.Data = registerFormData{Email: reg.Email, Username: reg.Username}
		h.renderer.Render(w, status, "register.html", page)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// redirectToProvider はstateを発行してIDプロバイダーへリダイレクトする。
func (h *AuthHandler) redirectToProvider(w http.ResponseWriter, r *http.Request) {
	state, err := generateState()
	if err != nil {
		h.logger.Error("stateの生成に失敗しました", slog.String("error", err.Error()))
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600, // 10分
		HttpOnly: true,
		Secure:   h.config.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.sessions.LoginURL(state), http.StatusSeeOther)
}

// Callback はIDプロバイダーからの認可コードコールバックを処理する。oidcモードのみ。
// GET /auth/callback
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	if !h.config.OIDCMode {
		http.NotFound(w, r)
		return
	}

	query := r.URL.Query()

	if errCode := query.Get("error"); errCode != "" {
		h.logger.Warn("IDプロバイダーが認可を拒否しました",
			slog.String("error", errCode),
			slog.String("description", query.Get("error_description")),
		)
		h.renderer.RenderError(w, http.StatusUnauthorized, model.NewInvalidCredentialsError(), h.basePage(r, "エラー"))
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil || stateCookie.Value == "" || stateCookie.Value != query.Get("state") {
		h.logger.Warn("stateの検証に失敗しました")
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	// stateは使い捨て
	http.SetCookie(w, &http.Cookie{
		Name:   oauthStateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing code", http.StatusBadRequest)
		return
	}

	if err := h.sessions.CompleteLogin(r.Context(), code); err != nil {
		h.logger.Warn("認可コードの交換に失敗しました", slog.String("error", err.Error()))
		h.renderer.RenderError(w, http.StatusUnauthorized, err, h.basePage(r, "エラー"))
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout はログアウトを処理する。
// POST /logout
// oidcモードでプロバイダーのサインアウトURLが解決済みの場合はそこへリダイレクトする。
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.logger.Error("ログアウトに失敗しました", slog.String("error", err.Error()))
	}

	if h.config.OIDCMode {
		if logoutURL := h.sessions.LogoutURL(); logoutURL != "" {
			http.Redirect(w, r, logoutURL, http.StatusSeeOther)
			return
		}
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// errorMessage はerrのユーザー向けメッセージを返す。
func errorMessage(err error) string {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "エラーが発生しました。しばらく待ってから再試行してください。"
}

// generateState はCSRF防止用のランダムなstateを生成する。
func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
