package generation

import (
	"strings"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// Recorder 阶段耗时与结果的观测接口
type Recorder interface {
	ObservePhaseDuration(step Step, d time.Duration)
	IncPhaseResult(step Step, success bool)
	IncRunOutcome(kind string, status Status)
}

// NoopRecorder 未配置指标时的默认实现
type NoopRecorder struct{}

func (NoopRecorder) ObservePhaseDuration(Step, time.Duration) {}
func (NoopRecorder) IncPhaseResult(Step, bool)                {}
func (NoopRecorder) IncRunOutcome(string, Status)             {}

// PrometheusRecorder 基于 Prometheus 的实现
type PrometheusRecorder struct {
	registry      *prom.Registry
	phaseDuration *prom.HistogramVec
	phaseResults  *prom.CounterVec
	runOutcomes   *prom.CounterVec
}

// NewPrometheusRecorder 创建并注册指标，reg 为 nil 时使用新的 Registry
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		registry: reg,
		phaseDuration: prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "sitedeploy",
			Name:      "phase_duration_seconds",
			Help:      "Duration of individual generation phases",
			Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"step"}),
		phaseResults: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitedeploy",
			Name:      "phase_results_total",
			Help:      "Phase result counts by outcome",
		}, []string{"step", "result"}),
		runOutcomes: prom.NewCounterVec(prom.CounterOpts{
			Namespace: "sitedeploy",
			Name:      "run_outcomes_total",
			Help:      "Generation and deletion runs by final status",
		}, []string{"kind", "status"}),
	}
	reg.MustRegister(pr.phaseDuration, pr.phaseResults, pr.runOutcomes)
	return pr
}

// WriteTextfile 以 node_exporter textfile 格式写出全部指标
func (p *PrometheusRecorder) WriteTextfile(path string) error {
	return prom.WriteToTextfile(path, p.registry)
}

func (p *PrometheusRecorder) ObservePhaseDuration(step Step, d time.Duration) {
	if p == nil {
		return
	}
	p.phaseDuration.WithLabelValues(stepLabel(step)).Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncPhaseResult(step Step, success bool) {
	if p == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.phaseResults.WithLabelValues(stepLabel(step), res).Inc()
}

func (p *PrometheusRecorder) IncRunOutcome(kind string, status Status) {
	if p == nil {
		return
	}
	p.runOutcomes.WithLabelValues(kind, strings.ToLower(string(status))).Inc()
}

func stepLabel(step Step) string {
	return strings.ToLower(string(step))
}
