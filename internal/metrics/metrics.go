// Package metrics は Prometheus のメトリクスを定義します。
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "gemini_post_kit"

// Metrics はサービスが公開するコレクタの集まりです。
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	BranchTotal    *prometheus.CounterVec
	BranchDuration *prometheus.HistogramVec

	CyclesInFlight prometheus.Gauge
	CyclesTotal    *prometheus.CounterVec
}

// New は reg にコレクタを登録して返します。reg が nil ならデフォルトのレジストリを使います。
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		// 生成の枝（text / media）
		BranchTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "branch_total",
				Help:      "Total number of settled generation branches",
			},
			[]string{"branch", "media_type", "outcome"},
		),
		BranchDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "branch_duration_seconds",
				Help:      "Generation branch duration in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 30, 60, 120, 300, 600},
			},
			[]string{"branch", "media_type"},
		),
		CyclesInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "cycles_in_flight",
				Help:      "Number of generation cycles currently running",
			},
		),
		CyclesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "generation",
				Name:      "cycles_total",
				Help:      "Total number of generation requests by result",
			},
			[]string{"media_type", "result"},
		),
	}
}

// ObserveBranch は orchestrator.Recorder を満たします。
func (m *Metrics) ObserveBranch(branch, media, outcome string, d time.Duration) {
	m.BranchTotal.WithLabelValues(branch, media, outcome).Inc()
	m.BranchDuration.WithLabelValues(branch, media).Observe(d.Seconds())
}

// ObserveHTTP は1リクエスト分の HTTP メトリクスを記録します。
func (m *Metrics) ObserveHTTP(method, path, status string, d time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(d.Seconds())
}
