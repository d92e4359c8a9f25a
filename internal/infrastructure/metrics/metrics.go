package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"browserx/internal/application/port/output"
	"browserx/internal/domain/entity"
)

var _ output.Metrics = (*Prometheus)(nil)

const namespace = "browserx"

type Prometheus struct {
	registry *prometheus.Registry

	runsStarted   prometheus.Counter
	runsActive    prometheus.Gauge
	runsFinished  *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	steps         prometheus.Counter
	elements      prometheus.Histogram
	actions       *prometheus.CounterVec
	decisions     *prometheus.CounterVec
	loopsDetected prometheus.Counter
}

func New() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_started_total",
			Help:      "Agent runs started.",
		}),
		runsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_active",
			Help:      "Agent runs in progress.",
		}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Agent runs by outcome.",
		}, []string{"outcome"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of agent runs.",
			Buckets:   prometheus.ExponentialBuckets(5, 2, 10),
		}, []string{"outcome"}),
		steps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Observed loop steps.",
		}),
		elements: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "page_elements",
			Help:      "Labeled elements per observation.",
			Buckets:   []float64{0, 10, 25, 50, 100, 200, 400, 800},
		}),
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Dispatched actions by kind and status.",
		}, []string{"kind", "status"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decision_attempts_total",
			Help:      "Oracle calls by whether the reply was a valid command.",
		}, []string{"valid"}),
		loopsDetected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loops_detected_total",
			Help:      "Steps where the page did not change after an action.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runsStarted, m.runsActive, m.runsFinished, m.runDuration,
		m.steps, m.elements, m.actions, m.decisions, m.loopsDetected,
	)
	return m
}

func (m *Prometheus) Registry() *prometheus.Registry { return m.registry }

func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Prometheus) RunStarted() {
	m.runsStarted.Inc()
	m.runsActive.Inc()
}

func (m *Prometheus) RunFinished(outcome string, d time.Duration) {
	m.runsActive.Dec()
	m.runsFinished.WithLabelValues(outcome).Inc()
	m.runDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (m *Prometheus) StepObserved(elements int) {
	m.steps.Inc()
	m.elements.Observe(float64(elements))
}

func (m *Prometheus) ActionDispatched(kind entity.ActionKind, status entity.ResultStatus) {
	m.actions.WithLabelValues(string(kind), string(status)).Inc()
}

func (m *Prometheus) DecisionAttempt(valid bool) {
	m.decisions.WithLabelValues(strconv.FormatBool(valid)).Inc()
}

func (m *Prometheus) LoopDetected() {
	m.loopsDetected.Inc()
}
