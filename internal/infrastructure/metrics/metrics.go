// Package metrics exposes editorial engine activity to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ersonp/loremaster/internal/domain/entities"
	"github.com/ersonp/loremaster/internal/domain/ports"
)

const namespace = "loremaster"

// Compile-time check to ensure Recorder implements EditorMetrics.
var _ ports.EditorMetrics = (*Recorder)(nil)

// Recorder implements ports.EditorMetrics on its own registry, so several
// recorders can coexist in one process.
type Recorder struct {
	registry *prometheus.Registry

	generationsStarted  *prometheus.CounterVec
	generationsFinished *prometheus.CounterVec
	generationSeconds   prometheus.Histogram
	superseded          prometheus.Counter
	eventsCommitted     *prometheus.CounterVec
	actionsSubmitted    *prometheus.CounterVec
	evolutionDropped    prometheus.Counter
}

// NewRecorder creates a Recorder with every metric registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		generationsStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_started_total",
			Help:      "Total number of narrative generations started, by game.",
		}, []string{"game_id"}),
		generationsFinished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_finished_total",
			Help:      "Total number of narrative generations finished, by outcome.",
		}, []string{"outcome"}),
		generationSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Wall time of narrative generations.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		}),
		superseded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_superseded_total",
			Help:      "Total number of provider results dropped because a newer generation started.",
		}),
		eventsCommitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_committed_total",
			Help:      "Total number of canonical events committed, by event type.",
		}, []string{"event_type"}),
		actionsSubmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dm_actions_total",
			Help:      "Total number of DM editorial actions submitted, by action.",
		}, []string{"action"}),
		evolutionDropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evolution_dropped_total",
			Help:      "Total number of committed events skipped by a full evolution queue.",
		}),
	}
}

func (r *Recorder) GenerationStarted(gameID string) {
	r.generationsStarted.WithLabelValues(gameID).Inc()
}

func (r *Recorder) GenerationFinished(outcome string, seconds float64) {
	r.generationsFinished.WithLabelValues(outcome).Inc()
	r.generationSeconds.Observe(seconds)
}

func (r *Recorder) GenerationSuperseded() {
	r.superseded.Inc()
}

func (r *Recorder) EventCommitted(eventType entities.EventType) {
	r.eventsCommitted.WithLabelValues(string(eventType)).Inc()
}

func (r *Recorder) ActionSubmitted(action entities.ActionType) {
	r.actionsSubmitted.WithLabelValues(string(action)).Inc()
}

func (r *Recorder) EvolutionDropped() {
	r.evolutionDropped.Inc()
}

// Registry returns the registry the metrics live on.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
