// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// APIクライアント、セッション管理、画像プロキシから利用する。
type MetricsCollector interface {
	RecordAPIRequest(operation string, statusCode int)
	RecordAPILatency(operation string, duration time.Duration)
	RecordAuthTransition(authenticated bool)
	RecordSessionInvalidated(reason string)
	RecordImageProxyRequest(outcome string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiRequests        *prometheus.CounterVec
	apiLatency         *prometheus.HistogramVec
	authTransitions    *prometheus.CounterVec
	sessionInvalidated *prometheus.CounterVec
	imageProxyRequests *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipeman_api_requests_total",
			Help: "レシピAPIへのリクエスト数（操作・ステータスコード別）",
		}, []string{"operation", "status_code"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "recipeman_api_latency_seconds",
			Help:    "レシピAPIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		authTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipeman_auth_transitions_total",
			Help: "認証状態の遷移数（方向別）",
		}, []string{"to"}),
		sessionInvalidated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipeman_session_invalidated_total",
			Help: "強制的に無効化されたセッション数（理由別）",
		}, []string{"reason"}),
		imageProxyRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "recipeman_image_proxy_requests_total",
			Help: "画像プロキシのリクエスト数（結果別）",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiLatency,
		c.authTransitions,
		c.sessionInvalidated,
		c.imageProxyRequests,
	)

	return c
}

// RecordAPIRequest はレシピAPIへのリクエストを記録する。
func (c *Collector) RecordAPIRequest(operation string, statusCode int) {
	c.apiRequests.WithLabelValues(operation, strconv.Itoa(statusCode)).Inc()
}

// RecordAPILatency はレシピAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordAPILatency(operation string, duration time.Duration) {
	c.apiLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordAuthTransition は認証状態の遷移を記録する。
func (c *Collector) RecordAuthTransition(authenticated bool) {
	to := "unauthenticated"
	if authenticated {
		to = "authenticated"
	}
	c.authTransitions.WithLabelValues(to).Inc()
}

// RecordSessionInvalidated はセッションの強制無効化を記録する。
// reasonは"api_rejected"、"profile_resolve_failed"、"revalidate_failed"のいずれか。
func (c *Collector) RecordSessionInvalidated(reason string) {
	c.sessionInvalidated.WithLabelValues(reason).Inc()
}

// RecordImageProxyRequest は画像プロキシのリクエスト結果を記録する。
// outcomeは"success"、"blocked"、"upstream_error"のいずれか。
func (c *Collector) RecordImageProxyRequest(outcome string) {
	c.imageProxyRequests.WithLabelValues(outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
