// Package metrics exposes Prometheus collectors for the bot and a small HTTP
// server serving them alongside a health check.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "gamebot"

// Collector owns a private registry so tests can build isolated instances.
// All methods are safe to call on a nil *Collector.
type Collector struct {
	registry *prometheus.Registry

	commands       *prometheus.CounterVec
	commandLatency *prometheus.HistogramVec
	outcomes       *prometheus.CounterVec
	moved          *prometheus.CounterVec
	sessions       *prometheus.GaugeVec
	lockWait       prometheus.Histogram
	rateLimited    prometheus.Counter
	settingsReload *prometheus.CounterVec
}

// NewCollector creates and registers every collector.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "commands_total",
				Help:      "Commands and callbacks handled, by endpoint and result.",
			},
			[]string{"endpoint", "ok"},
		),
		commandLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "command_duration_seconds",
				Help:      "Time spent handling a command.",
				Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
			},
			[]string{"endpoint"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "games",
				Name:      "outcomes_total",
				Help:      "Terminal game outcomes.",
			},
			[]string{"game", "outcome"},
		),
		moved: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "economy",
				Name:      "currency_moved_total",
				Help:      "Absolute currency moved, by ledger kind.",
			},
			[]string{"kind"},
		),
		sessions: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "games",
				Name:      "active_sessions",
				Help:      "Players currently holding a session slot.",
			},
			[]string{"game"},
		),
		lockWait: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "cache",
				Name:      "lock_wait_seconds",
				Help:      "Time spent waiting for an advisory lock.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
			},
		),
		rateLimited: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "dispatch",
				Name:      "rate_limited_total",
				Help:      "Updates dropped by the per-user rate limiter.",
			},
		),
		settingsReload: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settings",
				Name:      "reloads_total",
				Help:      "Configuration snapshot reloads.",
			},
			[]string{"ok"},
		),
	}

	c.registry.MustRegister(
		c.commands,
		c.commandLatency,
		c.outcomes,
		c.moved,
		c.sessions,
		c.lockWait,
		c.rateLimited,
		c.settingsReload,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return c
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// RecordCommand records one handled command or callback.
func (c *Collector) RecordCommand(endpoint string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	c.commands.WithLabelValues(endpoint, strconv.FormatBool(err == nil)).Inc()
	c.commandLatency.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordOutcome records a terminal game state such as "won" or "missed".
func (c *Collector) RecordOutcome(game, outcome string) {
	if c == nil {
		return
	}
	c.outcomes.WithLabelValues(game, outcome).Inc()
}

// RecordMovement records a balance change of the given kind.
func (c *Collector) RecordMovement(kind string, amount int64) {
	if c == nil {
		return
	}
	if amount < 0 {
		amount = -amount
	}
	c.moved.WithLabelValues(kind).Add(float64(amount))
}

// SetActiveSessions reports the size of a game's membership registry.
func (c *Collector) SetActiveSessions(game string, n int) {
	if c == nil {
		return
	}
	c.sessions.WithLabelValues(game).Set(float64(n))
}

// ObserveLockWait records how long an advisory lock acquisition took.
func (c *Collector) ObserveLockWait(d time.Duration) {
	if c == nil {
		return
	}
	c.lockWait.Observe(d.Seconds())
}

// IncRateLimited counts one dropped update.
func (c *Collector) IncRateLimited() {
	if c == nil {
		return
	}
	c.rateLimited.Inc()
}

// RecordSettingsReload counts a snapshot reload attempt.
func (c *Collector) RecordSettingsReload(err error) {
	if c == nil {
		return
	}
	c.settingsReload.WithLabelValues(strconv.FormatBool(err == nil)).Inc()
}
