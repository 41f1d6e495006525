// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"net/http"
	"net/url"
)

// AuthChecker は認証状態の問い合わせに必要なインターフェース。
// session.Managerの部分集合として定義する。
type AuthChecker interface {
	IsAuthenticated() bool
}

// loginPath は未認証リクエストのリダイレクト先。
const loginPath = "/login"

// NewAuthGuard は保護されたルートへの未認証アクセスを
// ログインページへリダイレクトするミドルウェアを返す。
// 元のリクエスト先はnextクエリパラメータとして引き継がれ、
// ログイン成功後に復帰できる。認証済みリクエストはそのまま通過する。
func NewAuthGuard(sessions AuthChecker) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.IsAuthenticated() {
				target := loginPath
				if r.URL.Path != "/" && r.URL.Path != "" {
					target += "?next=" + url.QueryEscape(r.URL.RequestURI())
				}
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SafeReturnPath はnextパラメータの値を検証して返す。
// オープンリダイレクト防止のため、同一サイト内の絶対パスのみ許可し、
// それ以外は"/"を返す。
func SafeReturnPath(next string) string {
	if next == "" {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil {
		return "/"
	}
	// スキームやホストを持つURL（外部サイト）と //host 形式を拒否
	if u.Scheme != "" || u.Host != "" {
		return "/"
	}
	if len(u.Path) == 0 || u.Path[0] != '/' {
		return "/"
	}
	return u.String()
}
