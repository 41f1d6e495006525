package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// 認証モード。
const (
	// AuthModeDirect はレシピAPIに対する直接のログイン/登録を使用する。
	AuthModeDirect = "direct"
	// AuthModeOIDC は外部IDプロバイダーへのリダイレクトフローを使用する。
	AuthModeOIDC = "oidc"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Recipe API
	APIBaseURL string

	// Auth
	AuthMode        string
	OIDCAuthority   string
	OIDCClientID    string
	OIDCRedirectURL string
	OIDCScopes      string

	// Local state
	StateDBPath string

	// Session
	SessionRefreshInterval time.Duration

	// Image proxy
	ProxyTimeout time.Duration
	ProxyMaxSize int64

	// Rate limit
	RateLimitLogin int

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
// AUTH_MODE=oidcの場合はOIDC関連の環境変数も必須になる。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.APIBaseURL = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if cfg.APIBaseURL == "" {
		missing = append(missing, "API_BASE_URL")
	}

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.AuthMode = getEnvString("AUTH_MODE", AuthModeDirect)
	if cfg.AuthMode != AuthModeDirect && cfg.AuthMode != AuthModeOIDC {
		return nil, fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDirect, AuthModeOIDC, cfg.AuthMode)
	}

	// OIDCモードでのみ必須になるフィールド
	if cfg.AuthMode == AuthModeOIDC {
		cfg.OIDCAuthority = strings.TrimRight(os.Getenv("OIDC_AUTHORITY"), "/")
		if cfg.OIDCAuthority == "" {
			missing = append(missing, "OIDC_AUTHORITY")
		}

		cfg.OIDCClientID = os.Getenv("OIDC_CLIENT_ID")
		if cfg.OIDCClientID == "" {
			missing = append(missing, "OIDC_CLIENT_ID")
		}

		cfg.OIDCRedirectURL = os.Getenv("OIDC_REDIRECT_URL")
		if cfg.OIDCRedirectURL == "" {
			missing = append(missing, "OIDC_REDIRECT_URL")
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.OIDCScopes = getEnvString("OIDC_SCOPES", "email openid phone")
	cfg.StateDBPath = getEnvString("STATE_DB_PATH", "recipeman.db")
	cfg.SessionRefreshInterval = getEnvDuration("SESSION_REFRESH_INTERVAL", 5*time.Minute)
	cfg.ProxyTimeout = getEnvDuration("PROXY_TIMEOUT", 10*time.Second)
	cfg.ProxyMaxSize = getEnvInt64("PROXY_MAX_SIZE", 5242880)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
