package observability

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/edboykin-insight/botbuilder-dotnet/pkg/domain"
)

// Turn outcomes used as the "outcome" label.
const (
	OutcomeOK       = "ok"
	OutcomeConflict = "conflict"
	OutcomeError    = "error"
	OutcomeCanceled = "canceled"
)

// Metrics holds the Prometheus collectors fed by engine hooks.
type Metrics struct {
	Turns        *prometheus.CounterVec
	TurnDuration prometheus.Histogram
	Messages     prometheus.Counter
	RulesFired   *prometheus.CounterVec
	Steps        *prometheus.CounterVec
	Suspensions  *prometheus.CounterVec
	DialogPushes *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botbuilder_turns_total",
				Help: "Total number of processed turns by outcome",
			},
			[]string{"outcome"},
		),
		TurnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "botbuilder_turn_duration_seconds",
				Help:    "Duration of turns",
				Buckets: prometheus.DefBuckets,
			},
		),
		Messages: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "botbuilder_messages_sent_total",
				Help: "Total number of outbound messages",
			},
		),
		RulesFired: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botbuilder_rules_fired_total",
				Help: "Total number of fired trigger rules",
			},
			[]string{"dialog", "match"},
		),
		Steps: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botbuilder_steps_total",
				Help: "Total number of executed steps",
			},
			[]string{"kind"},
		),
		Suspensions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botbuilder_suspensions_total",
				Help: "Total number of plan suspensions",
			},
			[]string{"dialog"},
		),
		DialogPushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "botbuilder_dialog_pushes_total",
				Help: "Total number of dialog frames pushed",
			},
			[]string{"dialog"},
		),
	}

	for _, c := range []prometheus.Collector{m.Turns, m.TurnDuration, m.Messages, m.RulesFired, m.Steps, m.Suspensions, m.DialogPushes} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTurnEnd: func(_ context.Context, e *domain.TurnEvent) {
			m.Turns.WithLabelValues(Outcome(e.Err)).Inc()
			m.TurnDuration.Observe(e.Duration.Seconds())
			m.Messages.Add(float64(e.Messages))
		},
		OnRuleFired: func(_ context.Context, e *domain.RuleEvent) {
			m.RulesFired.WithLabelValues(e.Dialog, string(e.Match)).Inc()
		},
		OnStep: func(_ context.Context, e *domain.StepEvent) {
			m.Steps.WithLabelValues(string(e.Kind)).Inc()
		},
		OnSuspend: func(_ context.Context, e *domain.StepEvent) {
			m.Suspensions.WithLabelValues(e.Dialog).Inc()
		},
		OnDialogPush: func(_ context.Context, e *domain.StepEvent) {
			m.DialogPushes.WithLabelValues(e.Dialog).Inc()
		},
	}
}

// Outcome classifies a turn error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, domain.ErrStorageConflict):
		return OutcomeConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}
