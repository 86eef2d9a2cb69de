package services

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	chatRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatbot_chat_requests_total",
			Help: "Chat requests by outcome (success, degraded_keyword, degraded_apology, validation_error)",
		},
		[]string{"outcome"},
	)

	chatRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatbot_chat_request_duration_seconds",
			Help:    "Chat request duration by outcome",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"outcome"},
	)

	leadsCapturedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatbot_leads_captured_total",
			Help: "Leads stored since process start",
		},
	)
)

// MetricsService 暴露Prometheus指标
type MetricsService struct {
	handler http.Handler
}

// NewMetricsService 创建指标服务
func NewMetricsService() *MetricsService {
	return &MetricsService{handler: promhttp.Handler()}
}

// ServeHTTP 输出Prometheus格式的指标
func (m *MetricsService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.handler.ServeHTTP(w, r)
}

// ObserveChat 记录一次聊天请求的结局与耗时
func (m *MetricsService) ObserveChat(outcome string, elapsed time.Duration) {
	chatRequestsTotal.WithLabelValues(outcome).Inc()
	chatRequestDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// ObserveLead 记录一条新lead
func (m *MetricsService) ObserveLead() {
	leadsCapturedTotal.Inc()
}
