// Package metrics collects and exposes Prometheus metrics for rounds,
// answers, persistence side effects and leaderboard queries.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is what services report into.
type Recorder interface {
	RoundStarted(mode string)
	RoundEnded(mode, reason string, streak int)
	AnswerSubmitted(correct bool)
	OutboxFailed(job string)
	LeaderboardQueried(period string, d time.Duration)
	LeaderboardExported(ok bool)
	SetActiveRounds(n int)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	roundsStarted  *prometheus.CounterVec
	roundsEnded    *prometheus.CounterVec
	finalStreak    prometheus.Histogram
	answers        *prometheus.CounterVec
	outboxFailures *prometheus.CounterVec
	boardLatency   *prometheus.HistogramVec
	exports        *prometheus.CounterVec
	activeRounds   prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		roundsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_rounds_started_total",
			Help: "Rounds started, by game mode",
		}, []string{"mode"}),
		roundsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_rounds_ended_total",
			Help: "Rounds ended, by game mode and end reason",
		}, []string{"mode", "reason"}),
		finalStreak: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trivia_round_final_streak",
			Help:    "Streak reached when a round ends",
			Buckets: []float64{0, 1, 3, 5, 10, 20, 50},
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_answers_total",
			Help: "Submitted answers, by outcome",
		}, []string{"outcome"}),
		outboxFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_outbox_failures_total",
			Help: "Best-effort persistence jobs that failed",
		}, []string{"job"}),
		boardLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "trivia_leaderboard_query_seconds",
			Help:    "Leaderboard computation latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"period"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trivia_leaderboard_exports_total",
			Help: "Leaderboard snapshot uploads, by result",
		}, []string{"result"}),
		activeRounds: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trivia_active_rounds",
			Help: "Round controllers currently held in memory",
		}),
	}

	reg.MustRegister(
		c.roundsStarted,
		c.roundsEnded,
		c.finalStreak,
		c.answers,
		c.outboxFailures,
		c.boardLatency,
		c.exports,
		c.activeRounds,
	)

	return c
}

func (c *Collector) RoundStarted(mode string) {
	c.roundsStarted.WithLabelValues(mode).Inc()
}

func (c *Collector) RoundEnded(mode, reason string, streak int) {
	c.roundsEnded.WithLabelValues(mode, reason).Inc()
	c.finalStreak.Observe(float64(streak))
}

func (c *Collector) AnswerSubmitted(correct bool) {
	outcome := "incorrect"
	if correct {
		outcome = "correct"
	}
	c.answers.WithLabelValues(outcome).Inc()
}

func (c *Collector) OutboxFailed(job string) {
	c.outboxFailures.WithLabelValues(job).Inc()
}

func (c *Collector) LeaderboardQueried(period string, d time.Duration) {
	c.boardLatency.WithLabelValues(period).Observe(d.Seconds())
}

func (c *Collector) LeaderboardExported(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	c.exports.WithLabelValues(result).Inc()
}

func (c *Collector) SetActiveRounds(n int) {
	c.activeRounds.Set(float64(n))
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything. Used when no registry is wired, mostly in tests.
type Nop struct{}

func (Nop) RoundStarted(string)                      {}
func (Nop) RoundEnded(string, string, int)           {}
func (Nop) AnswerSubmitted(bool)                     {}
func (Nop) OutboxFailed(string)                      {}
func (Nop) LeaderboardQueried(string, time.Duration) {}
func (Nop) LeaderboardExported(bool)                 {}
func (Nop) SetActiveRounds(int)                      {}
