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
// ミドルウェアや認可サービスから利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordAuthFailure(kind string)
	RecordAdminCheck(allowed bool)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram
	authFailures   *prometheus.CounterVec
	adminChecks    *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainlearn_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "chainlearn_request_latency_seconds",
			Help:    "リクエスト処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		authFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainlearn_auth_failures_total",
			Help: "認証・認可失敗の種別ごとの合計数",
		}, []string{"kind"}),
		adminChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chainlearn_admin_checks_total",
			Help: "管理者集合の照会結果ごとの合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.authFailures,
		c.adminChecks,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordAuthFailure は認証・認可失敗を記録する。
// kindは"unauthenticated"または"forbidden"。
func (c *Collector) RecordAuthFailure(kind string) {
	c.authFailures.WithLabelValues(kind).Inc()
}

// RecordAdminCheck は管理者集合の照会結果を記録する。
func (c *Collector) RecordAdminCheck(allowed bool) {
	result := "denied"
	if allowed {
		result = "allowed"
	}
	c.adminChecks.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
