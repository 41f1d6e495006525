// Package recipeapi はリモートのレシピ共有APIに対する型付きHTTPクライアントを提供する。
// 全てのビジネス状態（レシピ、コメント、投票、評価、ユーザー）はリモートAPI側が正であり、
// このパッケージはその薄いラッパーに徹する。
package recipeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
)

const userAgent = "Recipeman/1.0 Recipe Client"

// maxErrorBodySize はエラーレスポンスボディの読み取り上限。
const maxErrorBodySize = 64 * 1024

// Client はレシピAPIのクライアント。
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New はClientの新しいインスタンスを生成する。
// baseURLは末尾スラッシュなしのAPIベースURL（例: "http://localhost:8000"）を指定する。
func New(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// statusError はAPIが返した非2xxステータスを表す内部エラー。
// 各エンドポイントのメソッドがドメインエラーへ変換する。
type statusError struct {
	status int
	detail string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("recipe API returned status %d: %s", e.status, e.detail)
}

// errorDetail はAPIのエラーレスポンスボディ。
type errorDetail struct {
	Detail string `json:"detail"`
}

// do はJSONリクエストを送信し、2xxレスポンスをoutにデコードする。
// 非2xxの場合は*statusErrorを、送信自体の失敗はラップしたエラーを返す。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("レシピAPIの呼び出しに失敗しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("request to recipe API failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		var detail errorDetail
		if err := json.Unmarshal(data, &detail); err != nil || detail.Detail == "" {
			detail.Detail = http.StatusText(resp.StatusCode)
		}
		c.logger.Warn("レシピAPIがエラーステータスを返しました",
			slog.String("method", method),
			slog.String("path", path),
			slog.Int("http_status", resp.StatusCode),
		)
		return &statusError{status: resp.StatusCode, detail: detail.Detail}
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}

// statusOf はerrが*statusErrorの場合にステータスコードを返す。それ以外は0。
func statusOf(err error) int {
	if se, ok := err.(*statusError); ok {
		return se.status
	}
	return 0
}

// detailOf はerrが*statusErrorの場合に詳細メッセージを返す。
func detailOf(err error) string {
	if se, ok := err.(*statusError); ok {
		return se.detail
	}
	return ""
}
