// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder はメトリクス収集のインターフェース。
// APIクライアントとwatchループから利用する。
type Recorder interface {
	RecordAPIRequest(operation string, status int)
	RecordAPILatency(operation string, duration time.Duration)
	RecordRefresh(success bool)
}

// NopRecorder は何も記録しないRecorder実装。
// メトリクスを公開しない対話コマンドで使う。
type NopRecorder struct{}

// RecordAPIRequest は何もしない。
func (NopRecorder) RecordAPIRequest(operation string, status int) {}

// RecordAPILatency は何もしない。
func (NopRecorder) RecordAPILatency(operation string, duration time.Duration) {}

// RecordRefresh は何もしない。
func (NopRecorder) RecordRefresh(success bool) {}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	refreshes   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "semearctl_api_requests_total",
			Help: "APIリクエストの合計数（操作・ステータスコード別）",
		}, []string{"operation", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "semearctl_api_request_seconds",
			Help:    "APIリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "semearctl_refresh_total",
			Help: "お知らせ一覧リフレッシュの合計数（結果別）",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.apiRequests,
		c.apiLatency,
		c.refreshes,
	)

	return c
}

// RecordAPIRequest はAPIリクエストの完了を記録する。
// ネットワークエラーで応答が得られなかった場合はstatus 0で記録される。
func (c *Collector) RecordAPIRequest(operation string, status int) {
	c.apiRequests.WithLabelValues(operation, strconv.Itoa(status)).Inc()
}

// RecordAPILatency はAPIリクエストのレイテンシを記録する。
func (c *Collector) RecordAPILatency(operation string, duration time.Duration) {
	c.apiLatency.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordRefresh はリフレッシュの実行結果を記録する。
func (c *Collector) RecordRefresh(success bool) {
	result := "success"
	if !success {
		result = "failure"
	}
	c.refreshes.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
