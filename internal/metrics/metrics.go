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
// 認証サービスとOAuthプロバイダーから利用する。
type MetricsCollector interface {
	RecordLogin(provider string, success bool)
	RecordTokenRefresh(success bool)
	RecordRegistration()
	RecordHTTPStatus(statusCode int)
	RecordUpstreamLatency(provider string, duration time.Duration)
	RecordTokensPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins          *prometheus.CounterVec
	tokenRefreshes  *prometheus.CounterVec
	registrations   prometheus.Counter
	httpStatus      *prometheus.CounterVec
	upstreamLatency *prometheus.HistogramVec
	tokensPurged    prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_login_total",
			Help: "プロバイダー・結果別のログイン試行の合計数",
		}, []string{"provider", "result"}),
		tokenRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_token_refresh_total",
			Help: "結果別のトークンリフレッシュの合計数",
		}, []string{"result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_registration_total",
			Help: "アカウント登録の合計数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "authgate_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		upstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "authgate_upstream_latency_seconds",
			Help:    "OAuthプロバイダー呼び出しのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		tokensPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "authgate_tokens_purged_total",
			Help: "クリーンアップで削除された期限切れリフレッシュトークンの合計数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.tokenRefreshes,
		c.registrations,
		c.httpStatus,
		c.upstreamLatency,
		c.tokensPurged,
	)

	return c
}

// RecordLogin はプロバイダー別のログイン試行を記録する。
func (c *Collector) RecordLogin(provider string, success bool) {
	c.logins.WithLabelValues(provider, resultLabel(success)).Inc()
}

// RecordTokenRefresh はトークンリフレッシュの試行を記録する。
func (c *Collector) RecordTokenRefresh(success bool) {
	c.tokenRefreshes.WithLabelValues(resultLabel(success)).Inc()
}

// RecordRegistration はアカウント登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUpstreamLatency はOAuthプロバイダー呼び出しのレイテンシを記録する。
func (c *Collector) RecordUpstreamLatency(provider string, duration time.Duration) {
	c.upstreamLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordTokensPurged はクリーンアップで削除されたトークン数を記録する。
func (c *Collector) RecordTokensPurged(count int64) {
	c.tokensPurged.Add(float64(count))
}

func resultLabel(success bool) string {
	if success {
		return "success"
	}
	return "failure"
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
