package recipeapi

import (
	"net/http"
	"strings"
	"time"
)

// Metrics は送信APIリクエストの計測フック。
// metricsパッケージのCollectorが実装する。
type Metrics interface {
	RecordAPIRequest(operation string, statusCode int)
	RecordAPILatency(operation string, duration time.Duration)
}

// MetricsTransport はレシピAPIへの全リクエストの件数とレイテンシを記録するRoundTripper。
type MetricsTransport struct {
	// Base は実際の送信に使用するRoundTripper。nilの場合はhttp.DefaultTransport。
	Base http.RoundTripper

	// Metrics は記録先。nilの場合は何も記録しない。
	Metrics Metrics
}

// RoundTrip はhttp.RoundTripperを実装する。
// 送信エラーの場合はステータスコード0で記録する。
func (t *MetricsTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	if t.Metrics == nil {
		return base.RoundTrip(req)
	}

	operation := req.Method + " " + normalizePath(req.URL.Path)

	start := time.Now()
	resp, err := base.RoundTrip(req)
	t.Metrics.RecordAPILatency(operation, time.Since(start))

	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	t.Metrics.RecordAPIRequest(operation, status)

	return resp, err
}

// normalizePath はパス中の数値セグメント（レシピID等）を:idに置き換える。
// メトリクスラベルのカーディナリティをエンドポイント数に抑えるため。
func normalizePath(path string) string {
	segments := strings.Split(path, "/")
	for i, seg := range segments {
		if isAllDigits(seg) {
			segments[i] = ":id"
		}
	}
	return strings.Join(segments, "/")
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
