// Package metrics 暴露领取、核销与持有权校验的 Prometheus 指标。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "dealmint"

// Recorder 指标记录器，nil 接收者安全
type Recorder struct {
	claims      *prometheus.CounterVec
	redemptions *prometheus.CounterVec
	oracle      *prometheus.HistogramVec
	compensated *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// NewRecorder 在给定注册表上创建并注册指标
func NewRecorder(reg *prometheus.Registry) *Recorder {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	r := &Recorder{
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_total",
			Help:      "Claim attempts by outcome.",
		}, []string{"outcome"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Redemption attempts by outcome.",
		}, []string{"outcome"}),
		oracle: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "oracle_verify_seconds",
			Help:      "Ownership oracle latency by result.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5},
		}, []string{"result"}),
		compensated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compensations_total",
			Help:      "Compensating writes by kind and result.",
		}, []string{"kind", "result"}),
		gatherer: reg,
	}
	reg.MustRegister(r.claims, r.redemptions, r.oracle, r.compensated)
	return r
}

// ClaimOutcome 记录领取结果
func (r *Recorder) ClaimOutcome(outcome string) {
	if r == nil {
		return
	}
	r.claims.WithLabelValues(outcome).Inc()
}

// RedemptionOutcome 记录核销结果
func (r *Recorder) RedemptionOutcome(outcome string) {
	if r == nil {
		return
	}
	r.redemptions.WithLabelValues(outcome).Inc()
}

// OracleLatency 记录持有权校验耗时
func (r *Recorder) OracleLatency(result string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.oracle.WithLabelValues(result).Observe(elapsed.Seconds())
}

// Compensation 记录补偿写入
func (r *Recorder) Compensation(kind string, ok bool) {
	if r == nil {
		return
	}
	result := "applied"
	if !ok {
		result = "failed"
	}
	r.compensated.WithLabelValues(kind, result).Inc()
}

// Handler 返回 /metrics 处理器
func (r *Recorder) Handler() http.Handler {
	if r == nil || r.gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.gatherer, promhttp.HandlerOpts{})
}
