// Package imageproxy はレシピ画像の取得プロキシを提供する。
//
// レシピAPIが返すimage_urlは任意の外部URLであるため、
// ブラウザに直接参照させず自サーバー経由で配信する。
// これによりCSPをimg-src 'self'に保てるうえ、SSRFガードで
// 内部ネットワークへの到達を遮断できる。
package imageproxy

import (
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hitoshi/recipeman/internal/security"
)

// proxyUserAgent はプロキシが外部サーバーへ送るUser-Agent。
const proxyUserAgent = "Recipeman/1.0 Image Proxy"

// MetricsRecorder は画像プロキシのメトリクス記録に必要なインターフェース。
// metrics.MetricsCollectorの部分集合として定義する。
type MetricsRecorder interface {
	RecordImageProxyRequest(outcome string)
}

// Proxy は画像プロキシのHTTPハンドラー。
type Proxy struct {
	guard   security.ImageGuardService
	client  *http.Client
	metrics MetricsRecorder
	logger  *slog.Logger
	maxSize int64
}

// NewProxy はProxyを生成する。
// timeoutとmaxSizeは外部サーバーへの取得リクエストに適用される。
func NewProxy(guard security.ImageGuardService, metrics MetricsRecorder, logger *slog.Logger, timeout time.Duration, maxSize int64) *Proxy {
	return &Proxy{
		guard:   guard,
		client:  guard.NewSafeClient(timeout),
		metrics: metrics,
		logger:  logger,
		maxSize: maxSize,
	}
}

// ServeHTTP は GET /img?url=<画像URL> を処理する。
// URLの静的検証に失敗した場合は400、取得失敗時は502を返す。
// 画像以外のContent-Typeやサイズ超過も502として扱う。
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rawURL := r.URL.Query().Get("url")
	if err := p.guard.ValidateImageURL(rawURL); err != nil {
		p.logger.Warn("画像プロキシ: URL検証失敗",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		p.metrics.RecordImageProxyRequest("blocked")
		http.Error(w, "不正な画像URLです", http.StatusBadRequest)
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, rawURL, nil)
	if err != nil {
		p.metrics.RecordImageProxyRequest("blocked")
		http.Error(w, "不正な画像URLです", http.StatusBadRequest)
		return
	}
	req.Header.Set("User-Agent", proxyUserAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		// safeurlのDialer検証で弾かれた場合もここに到達する
		p.logger.Warn("画像プロキシ: 取得失敗",
			slog.String("url", rawURL),
			slog.String("error", err.Error()),
		)
		p.metrics.RecordImageProxyRequest("upstream_error")
		http.Error(w, "画像を取得できませんでした", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("画像プロキシ: HTTPステータス異常",
			slog.String("url", rawURL),
			slog.Int("status", resp.StatusCode),
		)
		p.metrics.RecordImageProxyRequest("upstream_error")
		http.Error(w, "画像を取得できませんでした", http.StatusBadGateway)
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !isImageContentType(contentType) {
		p.logger.Warn("画像プロキシ: 画像以外のContent-Type",
			slog.String("url", rawURL),
			slog.String("content_type", contentType),
		)
		p.metrics.RecordImageProxyRequest("upstream_error")
		http.Error(w, "画像を取得できませんでした", http.StatusBadGateway)
		return
	}

	// サイズ超過検出のため上限+1バイトまで読む
	body, err := io.ReadAll(io.LimitReader(resp.Body, p.maxSize+1))
	if err != nil {
		p.metrics.RecordImageProxyRequest("upstream_error")
		http.Error(w, "画像を取得できませんでした", http.StatusBadGateway)
		return
	}
	if int64(len(body)) > p.maxSize {
		p.logger.Warn("画像プロキシ: サイズ超過",
			slog.String("url", rawURL),
			slog.Int("size", len(body)),
		)
		p.metrics.RecordImageProxyRequest("upstream_error")
		http.Error(w, "画像が大きすぎます", http.StatusBadGateway)
		return
	}

	p.metrics.RecordImageProxyRequest("success")

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(body)
}

// isImageContentType はContent-Typeが画像かを判定する。
func isImageContentType(contentType string) bool {
	mediaType := strings.TrimSpace(strings.Split(contentType, ";")[0])
	return strings.HasPrefix(strings.ToLower(mediaType), "image/")
}
