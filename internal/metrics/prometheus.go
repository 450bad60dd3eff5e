package metrics

import (
	"AShareSentinel/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder holds the agent's Prometheus collectors.
type Recorder struct {
	signalsTotal  *prometheus.CounterVec
	fetchErrors   *prometheus.CounterVec
	alertsTotal   *prometheus.CounterVec
	runDuration   prometheus.Histogram
	drawdown      prometheus.Gauge
	allowNewBuy   prometheus.Gauge
	symbolsPerRun prometheus.Gauge
}

// New registers the collectors on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		signalsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ashare_signals_total",
				Help: "Signals produced, by action",
			},
			[]string{"action"},
		),
		fetchErrors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ashare_fetch_errors_total",
				Help: "Failed fetches, by source",
			},
			[]string{"source"},
		),
		alertsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ashare_alerts_total",
				Help: "Alerts sent, by result",
			},
			[]string{"result"},
		),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "ashare_run_duration_seconds",
			Help:    "Duration of a full watchlist run",
			Buckets: prometheus.DefBuckets,
		}),
		drawdown: f.NewGauge(prometheus.GaugeOpts{
			Name: "ashare_portfolio_drawdown",
			Help: "Drawdown from peak equity at the last run",
		}),
		allowNewBuy: f.NewGauge(prometheus.GaugeOpts{
			Name: "ashare_allow_new_buy",
			Help: "1 when new BUY signals are allowed",
		}),
		symbolsPerRun: f.NewGauge(prometheus.GaugeOpts{
			Name: "ashare_run_symbols",
			Help: "Symbols evaluated in the last run",
		}),
	}
}

func (r *Recorder) RecordSignal(action model.SignalAction) {
	if r == nil {
		return
	}
	r.signalsTotal.WithLabelValues(action.String()).Inc()
}

// RecordFetchError counts a failed fetch; source is market, news or announcement.
func (r *Recorder) RecordFetchError(source string) {
	if r == nil {
		return
	}
	r.fetchErrors.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordAlert(ok bool) {
	if r == nil {
		return
	}
	result := "failed"
	if ok {
		result = "ok"
	}
	r.alertsTotal.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordRun(seconds float64, symbols int) {
	if r == nil {
		return
	}
	r.runDuration.Observe(seconds)
	r.symbolsPerRun.Set(float64(symbols))
}

func (r *Recorder) RecordRiskState(rs model.RiskState) {
	if r == nil {
		return
	}
	r.drawdown.Set(rs.Drawdown)
	if rs.AllowNewBuy {
		r.allowNewBuy.Set(1)
	} else {
		r.allowNewBuy.Set(0)
	}
}
