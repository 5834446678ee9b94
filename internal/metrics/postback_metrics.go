package metrics

import (
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// 回调处理结果标签
const (
	OutcomePersisted   = "persisted"
	OutcomeDuplicate   = "duplicate"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
	OutcomeTimeout     = "timeout"
	OutcomeRateLimited = "rate_limited"
)

// 身份解析失败类型
const (
	IdentityKindSource   = "source"
	IdentityKindPlatform = "platform"
)

// PostbackMetrics 回调接入的核心指标
type PostbackMetrics struct {
	requests        *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	identityFailure *prometheus.CounterVec
	enqueueFailure  *prometheus.CounterVec
	tasksProcessed  *prometheus.CounterVec
	retentionPurged *prometheus.CounterVec
}

var (
	postbackMetricsOnce sync.Once
	postbackMetrics     *PostbackMetrics
)

// Postback 返回进程级单例指标
func Postback() *PostbackMetrics {
	postbackMetricsOnce.Do(func() {
		postbackMetrics = NewPostbackMetrics(prometheus.DefaultRegisterer)
	})
	return postbackMetrics
}

// NewPostbackMetrics 在指定注册器上创建指标（测试使用独立注册器）
func NewPostbackMetrics(registerer prometheus.Registerer) *PostbackMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	m := &PostbackMetrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postback",
			Name:      "requests_total",
			Help:      "Postback requests by partner and outcome.",
		}, []string{"partner", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "postback",
			Name:      "request_duration_seconds",
			Help:      "Postback handling latency.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"partner", "outcome"}),
		identityFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postback",
			Name:      "identity_resolution_failures_total",
			Help:      "Identity resolution failures tolerated during ingestion.",
		}, []string{"partner", "kind"}),
		enqueueFailure: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postback",
			Name:      "enqueue_failures_total",
			Help:      "Post-processing tasks that could not be enqueued.",
		}, []string{"task"}),
		tasksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postback",
			Name:      "worker_tasks_total",
			Help:      "Worker tasks by type and result.",
		}, []string{"task", "result"}),
		retentionPurged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "postback",
			Name:      "retention_purged_total",
			Help:      "Conversions deleted by the retention loop.",
		}, []string{"partner"}),
	}
	registerer.MustRegister(
		m.requests,
		m.duration,
		m.identityFailure,
		m.enqueueFailure,
		m.tasksProcessed,
		m.retentionPurged,
	)
	return m
}

// ObservePostback 记录一次回调处理结果
func (m *PostbackMetrics) ObservePostback(partner, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	partner = labelOrUnknown(partner)
	m.requests.WithLabelValues(partner, outcome).Inc()
	m.duration.WithLabelValues(partner, outcome).Observe(elapsed.Seconds())
}

// IncIdentityFailure 记录可容忍的身份解析失败
func (m *PostbackMetrics) IncIdentityFailure(partner, kind string) {
	if m == nil {
		return
	}
	m.identityFailure.WithLabelValues(labelOrUnknown(partner), kind).Inc()
}

// IncEnqueueFailure 记录任务入队失败
func (m *PostbackMetrics) IncEnqueueFailure(task string) {
	if m == nil {
		return
	}
	m.enqueueFailure.WithLabelValues(task).Inc()
}

// IncTask 记录 worker 任务结果
func (m *PostbackMetrics) IncTask(task, result string) {
	if m == nil {
		return
	}
	m.tasksProcessed.WithLabelValues(task, result).Inc()
}

// AddRetentionPurged 记录保留期清理条数
func (m *PostbackMetrics) AddRetentionPurged(partner string, count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.retentionPurged.WithLabelValues(labelOrUnknown(partner)).Add(float64(count))
}

// 未知合作方统一归入一个标签，避免任意路径撑爆时序数量
func labelOrUnknown(value string) string {
	if strings.TrimSpace(value) == "" {
		return "unknown"
	}
	return value
}
