package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/hitoshi/recipeman/internal/model"
)

// makeIDToken は検証なしパース用の未署名IDトークンを組み立てる。
func makeIDToken(t *testing.T, claims map[string]any) string {
	t.Helper()
	header, err := json.Marshal(map[string]string{"alg": "none", "typ": "JWT"})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatal(err)
	}
	enc := base64.RawURLEncoding
	return enc.EncodeToString(header) + "." + enc.EncodeToString(payload) + "."
}

func testOIDCConfig(ts *httptest.Server) OIDCConfig {
	return OIDCConfig{
		Authority:             ts.URL,
		ClientID:              "client-1",
		RedirectURL:           "https://app.example.com/auth/callback",
		Scopes:                "email openid phone",
		PostLogoutRedirectURL: "https://app.example.com/",
		AuthorizationEndpoint: ts.URL + "/oauth2/authorize",
		TokenEndpoint:         ts.URL + "/oauth2/token",
		UserInfoEndpoint:      ts.URL + "/oauth2/userInfo",
		EndSessionEndpoint:    ts.URL + "/logout",
	}
}

func TestOIDCStrategy_Discovery(t *testing.T) {
	var ts *httptest.Server
	ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/openid-configuration" {
			t.Errorf("予期しないパス: %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
			return
		}
		json.NewEncoder(w).Encode(discoveryDocument{
			AuthorizationEndpoint: ts.URL + "/oauth2/authorize",
			TokenEndpoint:         ts.URL + "/oauth2/token",
			UserInfoEndpoint:      ts.URL + "/oauth2/userInfo",
			EndSessionEndpoint:    ts.URL + "/logout",
		})
	}))
	defer ts.Close()

	s, err := NewOIDCStrategy(context.Background(), OIDCConfig{
		Authority: ts.URL,
		ClientID:  "client-1",
	}, ts.Client(), testLogger())
	if err != nil {
		t.Fatalf("NewOIDCStrategy() error = %v", err)
	}

	if s.config.TokenEndpoint != ts.URL+"/oauth2/token" {
		t.Errorf("TokenEndpoint = %q", s.config.TokenEndpoint)
	}
	if s.config.EndSessionEndpoint != ts.URL+"/logout" {
		t.Errorf("EndSessionEndpoint = %q", s.config.EndSessionEndpoint)
	}
}

func TestOIDCStrategy_DiscoveryFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := NewOIDCStrategy(context.Background(), OIDCConfig{
		Authority: ts.URL,
		ClientID:  "client-1",
	}, ts.Client(), testLogger())
	if err == nil {
		t.Fatal("ディスカバリー失敗でエラーになっていません")
	}
}

func TestOIDCStrategy_LoginURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	s, err := NewOIDCStrategy(context.Background(), testOIDCConfig(ts), ts.Client(), testLogger())
	if err != nil {
		t.Fatalf("NewOIDCStrategy() error = %v", err)
	}

	raw := s.LoginURL("state-123")
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("LoginURL()が不正なURLを返しました: %v", err)
	}

	if u.Path != "/oauth2/authorize" {
		t.Errorf("path = %q, want /oauth2/authorize", u.Path)
	}
	q := u.Query()
	if got := q.Get("response_type"); got != "code" {
		t.Errorf("response_type = %q, want code", got)
	}
	if got := q.Get("client_id"); got != "client-1" {
		t.Errorf("client_id = %q", got)
	}
	if got := q.Get("scope"); got != "email openid phone" {
		t.Errorf("scope = %q", got)
	}
	if got := q.Get("state"); got != "state-123" {
		t.Errorf("state = %q", got)
	}
	if got := q.Get("redirect_uri"); got != "https://app.example.com/auth/callback" {
		t.Errorf("redirect_uri = %q", got)
	}
}

func TestOIDCStrategy_ExchangeCode(t *testing.T) {
	idToken := ""
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth2/token" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.PostForm.Get("code"); got != "code-abc" {
			t.Errorf("code = %q", got)
		}
		json.NewEncoder(w).Encode(tokenResponse{
			AccessToken: "access-1",
			IDToken:     idToken,
			TokenType:   "Bearer",
			ExpiresIn:   3600,
		})
	}))
	defer ts.Close()

	idToken = makeIDToken(t, map[string]any{
		"sub":              "uuid-1",
		"cognito:username": "tanaka",
		"email":            "tanaka@example.com",
	})

	s, err := NewOIDCStrategy(context.Background(), testOIDCConfig(ts), ts.Client(), testLogger())
	if err != nil {
		t.Fatalf("NewOIDCStrategy() error = %v", err)
	}

	token, user, err := s.ExchangeCode(context.Background(), "code-abc")
	if err != nil {
		t.Fatalf("ExchangeCode() error = %v", err)
	}
	if token != "access-1" {
		t.Errorf("token = %q, want access-1", token)
	}
	if user.ID != "uuid-1" {
		t.Errorf("user.ID = %q, want uuid-1", user.ID)
	}
	if user.Username != "tanaka" {
		t.Errorf("user.Username = %q, want tanaka", user.Username)
	}
	if user.Email != "tanaka@example.com" {
		t.Errorf("user.Email = %q", user.Email)
	}
}

func TestOIDCStrategy_ExchangeCodeRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"invalid_grant"}`))
	}))
	defer ts.Close()

	s, err := NewOIDCStrategy(context.Background(), testOIDCConfig(ts), ts.Client(), testLogger())
	if err != nil {
		t.Fatalf("NewOIDCStrategy() error = %v", err)
	}

	_, _, err = s.ExchangeCode(context.Background(), "bad-code")
	if !model.HasCode(err, model.ErrCodeInvalidCredentials) {
		t.Errorf("error = %v, want INVALID_CREDENTIALS", err)
	}
}

func TestOIDCStrategy_ResolveUser(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"sub":                "uuid-1",
			"preferred_username": "tanaka",
			"email":              "tanaka@example.com",
		})
	}))
	defer ts.Close()

	s, err := NewOIDCStrategy(context.Background(), testOIDCConfig(ts), ts.Client(), testLogger())
	if err != nil {
		t.Fatalf("NewOIDCStrategy() error = %v", err)
	}

	user, err := s.ResolveUser(context.Background(), "access-1")
	if err != nil {
		t.Fatalf("ResolveUser() error = %v", err)
	}
	if user.Username != "tanaka" {
		t.Errorf("user.Username = %q, want tanaka", user.Username)
	}

	_, err = s.ResolveUser(context.Background(), "revoked")
	if !model.HasCode(err, model.ErrCodeSessionInvalid) {
		t.Errorf("error = %v, want SESSION_INVALID", err)
	}
}

func TestOIDCStrategy_LogoutURL(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	s, err := NewOIDCStrategy(context.Background(), testOIDCConfig(ts), ts.Client(), testLogger())
	if err != nil {
		t.Fatalf("NewOIDCStrategy() error = %v", err)
	}

	raw := s.LogoutURL()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("LogoutURL()が不正なURLを返しました: %v", err)
	}
	if u.Path != "/logout" {
		t.Errorf("path = %q, want /logout", u.Path)
	}
	q := u.Query()
	if got := q.Get("client_id"); got != "client-1" {
		t.Errorf("client_id = %q", got)
	}
	if got := q.Get("logout_uri"); got != "https://app.example.com/" {
		t.Errorf("logout_uri = %q", got)
	}
}

func TestOIDCStrategy_DirectOpsUnsupported(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer ts.Close()

	s, err := NewOIDCStrategy(context.Background(), testOIDCConfig(ts), ts.Client(), testLogger())
	if err != nil {
		t.Fatalf("NewOIDCStrategy() error = %v", err)
	}

	if _, _, err := s.Exchange(context.Background(), Credentials{}); err != ErrModeUnsupported {
		t.Errorf("Exchange() error = %v, want ErrModeUnsupported", err)
	}
	if _, _, err := s.RegisterAccount(context.Background(), Registration{}); err != ErrModeUnsupported {
		t.Errorf("RegisterAccount() error = %v, want ErrModeUnsupported", err)
	}
}

func TestMakeIDTokenRoundTrip(t *testing.T) {
	tok := makeIDToken(t, map[string]any{"sub": "x"})
	if strings.Count(tok, ".") != 2 {
		t.Fatalf("IDトークンの形式が不正です: %q", tok)
	}
}
