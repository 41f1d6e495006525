package config

import (
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("API_BASE_URL", "http://localhost:8000")
	t.Setenv("BASE_URL", "http://localhost:8080")
}

func TestLoad_AllRequiredVarsSet_ReturnsConfig(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("APIBaseURL = %q, want %q", cfg.APIBaseURL, "http://localhost:8000")
	}
	if cfg.BaseURL != "http://localhost:8080" {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, "http://localhost:8080")
	}
	if cfg.AuthMode != AuthModeDirect {
		t.Errorf("AuthMode = %q, want %q", cfg.AuthMode, AuthModeDirect)
	}
}

func TestLoad_MissingRequiredVars_ReturnsError(t *testing.T) {
	t.Setenv("API_BASE_URL", "")
	t.Setenv("BASE_URL", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing required vars, got nil")
	}
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	t.Setenv("API_BASE_URL", "http://localhost:8000/")
	t.Setenv("BASE_URL", "http://localhost:8080/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.APIBaseURL != "http://localhost:8000" {
		t.Errorf("APIBaseURL = %q, trailing slash should be trimmed", cfg.APIBaseURL)
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.StateDBPath != "recipeman.db" {
		t.Errorf("StateDBPath = %q, want %q", cfg.StateDBPath, "recipeman.db")
	}
	if cfg.SessionRefreshInterval != 5*time.Minute {
		t.Errorf("SessionRefreshInterval = %v, want %v", cfg.SessionRefreshInterval, 5*time.Minute)
	}
	if cfg.ProxyTimeout != 10*time.Second {
		t.Errorf("ProxyTimeout = %v, want %v", cfg.ProxyTimeout, 10*time.Second)
	}
	if cfg.ProxyMaxSize != 5242880 {
		t.Errorf("ProxyMaxSize = %d, want %d", cfg.ProxyMaxSize, 5242880)
	}
	if cfg.RateLimitLogin != 10 {
		t.Errorf("RateLimitLogin = %d, want %d", cfg.RateLimitLogin, 10)
	}
	if cfg.OIDCScopes != "email openid phone" {
		t.Errorf("OIDCScopes = %q, want %q", cfg.OIDCScopes, "email openid phone")
	}
	if cfg.ServerPort != "8080" {
		t.Errorf("ServerPort = %q, want %q", cfg.ServerPort, "8080")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "info")
	}
}

func TestLoad_InvalidAuthMode_ReturnsError(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("AUTH_MODE", "saml")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for invalid AUTH_MODE, got nil")
	}
}

func TestLoad_OIDCMode_RequiresProviderVars(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("AUTH_MODE", "oidc")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when OIDC vars are missing, got nil")
	}
}

func TestLoad_OIDCMode_AllVarsSet(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("AUTH_MODE", "oidc")
	t.Setenv("OIDC_AUTHORITY", "https://cognito-idp.us-east-2.amazonaws.com/us-east-2_test")
	t.Setenv("OIDC_CLIENT_ID", "test-client-id")
	t.Setenv("OIDC_REDIRECT_URL", "http://localhost:8080/auth/callback")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.AuthMode != AuthModeOIDC {
		t.Errorf("AuthMode = %q, want %q", cfg.AuthMode, AuthModeOIDC)
	}
	if cfg.OIDCClientID != "test-client-id" {
		t.Errorf("OIDCClientID = %q, want %q", cfg.OIDCClientID, "test-client-id")
	}
}

func TestLoad_CookieSecureDerivedFromBaseURL(t *testing.T) {
	t.Setenv("API_BASE_URL", "https://api.example.com")
	t.Setenv("BASE_URL", "https://recipes.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if !cfg.CookieSecure {
		t.Error("CookieSecure should be true for https BASE_URL")
	}
}
