package recipeapi

import (
	"net/http"
)

// TokenSource は送信リクエストに添付するベアラートークンの供給元。
// セッションマネージャーが実装する。
type TokenSource interface {
	// Token は現在のトークンを返す。未認証の場合は空文字列。
	Token() string
}

// BearerTransport はレシピAPIへの全リクエストにベアラートークンを添付するRoundTripper。
// トークンを添付したリクエストが401で拒否された場合、OnUnauthorizedフックを呼び出す。
// 期限切れ・失効したセッションをクライアント側に残さないための仕組み（フェイルクローズ）。
type BearerTransport struct {
	// Base は実際の送信に使用するRoundTripper。nilの場合はhttp.DefaultTransport。
	Base http.RoundTripper

	// Tokens は添付するトークンの供給元。
	Tokens TokenSource

	// OnUnauthorized はトークン付きリクエストが401で拒否された際に呼ばれる。
	// 強制ログアウトに配線される。nilの場合は何もしない。
	OnUnauthorized func()
}

// RoundTrip はhttp.RoundTripperを実装する。
func (t *BearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	token := ""
	if t.Tokens != nil {
		token = t.Tokens.Token()
	}

	if token != "" {
		// RoundTripperはリクエストを変更してはならないため複製する
		clone := req.Clone(req.Context())
		clone.Header.Set("Authorization", "Bearer "+token)
		req = clone
	}

	resp, err := base.RoundTrip(req)
	if err != nil {
		return nil, err
	}

	// トークンを添付していたのに拒否された場合のみ、セッション失効として扱う。
	// トークンなしの401（ログイン失敗等）はセッション状態と無関係。
	if token != "" && resp.StatusCode == http.StatusUnauthorized && t.OnUnauthorized != nil {
		t.OnUnauthorized()
	}

	return resp, err
}
