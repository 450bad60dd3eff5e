// Package agent runs one research pass over a watchlist: fetch, score,
// persist, alert and report.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"

	"AShareSentinel/internal/collector"
	"AShareSentinel/internal/fund"
	"AShareSentinel/internal/metrics"
	"AShareSentinel/internal/model"
	"AShareSentinel/internal/news"
	"AShareSentinel/internal/notifier"
	"AShareSentinel/internal/report"
	"AShareSentinel/internal/store"
	"AShareSentinel/internal/strategy"
	"AShareSentinel/internal/trace"
)

var (
	ErrNoSymbols      = errors.New("no symbols provided and watchlist is empty")
	ErrInvalidEquity  = errors.New("equity must be positive")
	ErrRunInProgress  = errors.New("a run is already in progress")
	errNoRiskManager  = errors.New("risk manager not configured")
	errNoBarCollector = errors.New("market collector not configured")
)

// Reason prefixes attached when an upstream source fails for a symbol.
const (
	ReasonMarketFailed       = "行情获取失败: "
	ReasonNewsFailed         = "新闻获取失败: "
	ReasonAnnouncementFailed = "公告获取失败: "
)

// Options are the non-collaborator settings of a run.
type Options struct {
	Params               strategy.Params
	Location             *time.Location
	ResultsDir           string
	NewsLookback         time.Duration
	AnnouncementLookback time.Duration
}

// Deps are the collaborators of the agent. News, Announcements, Notifier
// and Metrics may be nil.
type Deps struct {
	Collector     *collector.Collector
	News          news.Searcher
	Announcements news.AnnouncementSource
	Notifier      notifier.Notifier
	Store         store.Store
	Risk          *fund.Manager
	Metrics       *metrics.Recorder
	Scorer        strategy.SentimentScorer
}

// Agent orchestrates research runs. Runs are serialized.
type Agent struct {
	opts Options
	deps Deps
	now  func() time.Time

	running sync.Mutex
	mu      sync.RWMutex
	last    *model.RunResult
}

// New creates an Agent. A nil Store is replaced by store.NoopStore.
func New(opts Options, deps Deps) *Agent {
	if opts.Location == nil {
		opts.Location = time.FixedZone("CST", 8*3600)
	}
	if opts.NewsLookback <= 0 {
		opts.NewsLookback = 48 * time.Hour
	}
	if opts.AnnouncementLookback <= 0 {
		opts.AnnouncementLookback = 7 * 24 * time.Hour
	}
	if deps.Store == nil {
		deps.Store = store.NewNoopStore()
	}
	return &Agent{opts: opts, deps: deps, now: time.Now}
}

// Store returns the backing store.
func (a *Agent) Store() store.Store { return a.deps.Store }

// Location returns the trade-date zone.
func (a *Agent) Location() *time.Location { return a.opts.Location }

// LastResult returns the result of the most recent successful run.
func (a *Agent) LastResult() (*model.RunResult, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.last, a.last != nil
}

// Today returns the current trade date in the configured zone.
func (a *Agent) Today() time.Time {
	now := a.now().In(a.opts.Location)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, a.opts.Location)
}

// RunOnce evaluates every symbol in order and returns the batch result.
// Upstream failures degrade the affected signal instead of failing the run.
func (a *Agent) RunOnce(ctx context.Context, symbols []string, equity float64) (*model.RunResult, error) {
	if len(symbols) == 0 {
		return nil, ErrNoSymbols
	}
	if !(equity > 0) {
		return nil, ErrInvalidEquity
	}
	if a.deps.Risk == nil {
		return nil, errNoRiskManager
	}
	if a.deps.Collector == nil {
		return nil, errNoBarCollector
	}
	if !a.running.TryLock() {
		return nil, ErrRunInProgress
	}
	defer a.running.Unlock()

	started := time.Now()
	ctx, span := trace.StartSpan(ctx, "run_once", attribute.Int("symbols", len(symbols)))
	defer span.End()

	now := a.now().In(a.opts.Location)
	today := a.Today()
	day := model.DayKey(today)

	risk, err := a.deps.Risk.Evaluate(ctx, equity, today)
	if err != nil {
		return nil, fmt.Errorf("evaluate risk state: %w", err)
	}
	a.deps.Metrics.RecordRiskState(risk)
	a.logEvent(ctx, store.EventRunStart, map[string]interface{}{"symbols": symbols, "date": day})

	log.Info().
		Str("date", day).
		Int("symbols", len(symbols)).
		Float64("equity", equity).
		Bool("allow_new_buy", risk.AllowNewBuy).
		Msg("run started")

	signals := make([]model.TradeSignal, 0, len(symbols))
	for _, symbol := range symbols {
		signals = append(signals, a.evaluateSymbol(ctx, symbol, equity, risk, now))
	}

	if err := a.deps.Store.SaveSignals(ctx, signals); err != nil {
		return nil, fmt.Errorf("save signals: %w", err)
	}

	alerts := a.sendAlerts(ctx, signals)

	paths, err := report.Write(a.opts.ResultsDir, today, signals, risk)
	if err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	a.logEvent(ctx, store.EventRunEnd, map[string]interface{}{
		"date":        day,
		"signals":     len(signals),
		"alerts_sent": alerts,
		"output":      paths.Dir,
	})
	a.deps.Metrics.RecordRun(time.Since(started).Seconds(), len(symbols))

	result := &model.RunResult{
		Date:           today,
		Symbols:        append([]string(nil), symbols...),
		Signals:        signals,
		RiskState:      risk,
		OutputMarkdown: paths.Markdown,
		OutputJSON:     paths.JSON,
		AlertsSent:     alerts,
	}
	a.mu.Lock()
	a.last = result
	a.mu.Unlock()

	log.Info().
		Str("date", day).
		Int("signals", len(signals)).
		Int("alerts", alerts).
		Str("output", paths.Dir).
		Dur("elapsed", time.Since(started)).
		Msg("run finished")
	return result, nil
}

func (a *Agent) evaluateSymbol(ctx context.Context, symbol string, equity float64, risk model.RiskState, now time.Time) model.TradeSignal {
	ctx, span := trace.StartSpan(ctx, "symbol", attribute.String("symbol", symbol))
	defer span.End()

	var failures []string

	bars, err := a.deps.Collector.Collect(ctx, symbol, now)
	if err != nil {
		failures = append(failures, ReasonMarketFailed+err.Error())
		a.sourceFailed(ctx, store.EventMarketError, "market", symbol, err)
	}

	var newsItems []model.NewsItem
	if a.deps.News != nil {
		newsItems, err = a.deps.News.SearchNews(ctx, symbol, a.opts.NewsLookback)
		if err != nil {
			failures = append(failures, ReasonNewsFailed+err.Error())
			a.sourceFailed(ctx, store.EventNewsError, "news", symbol, err)
		}
	}

	var anns []model.NewsItem
	if a.deps.Announcements != nil {
		anns, err = a.deps.Announcements.Announcements(ctx, symbol, a.opts.AnnouncementLookback)
		if err != nil {
			failures = append(failures, ReasonAnnouncementFailed+err.Error())
			a.sourceFailed(ctx, store.EventAnnouncementError, "announcement", symbol, err)
		}
	}

	if len(bars) > 0 {
		if err := a.deps.Store.SaveBars(ctx, bars); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("save bars")
		}
	}
	evidence := news.Dedupe(append(append([]model.NewsItem(nil), newsItems...), anns...))
	if len(evidence) > 0 {
		if err := a.deps.Store.SaveNewsItems(ctx, evidence); err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("save news items")
		}
	}

	sig := strategy.BuildSignal(strategy.SignalInput{
		Symbol:        symbol,
		Bars:          bars,
		News:          newsItems,
		Announcements: anns,
		Params:        a.opts.Params,
		Risk:          risk,
		Equity:        equity,
		Time:          now,
		Scorer:        a.deps.Scorer,
	})
	if len(failures) > 0 {
		sig.LowConfidence = true
		sig.Reasons = append(sig.Reasons, failures...)
	}

	a.deps.Metrics.RecordSignal(sig.Action)
	span.SetAttributes(attribute.String("action", sig.Action.String()))
	log.Info().
		Str("symbol", symbol).
		Str("action", sig.Action.String()).
		Float64("score", sig.Score).
		Float64("confidence", sig.Confidence).
		Bool("low_confidence", sig.LowConfidence).
		Msg("signal")
	return sig
}

func (a *Agent) sendAlerts(ctx context.Context, signals []model.TradeSignal) int {
	if a.deps.Notifier == nil {
		return 0
	}
	sent := 0
	for _, sig := range signals {
		if !notifier.ShouldAlert(sig.Action) {
			continue
		}
		res := a.deps.Notifier.SendText(ctx, notifier.FormatAlert(sig))
		a.deps.Metrics.RecordAlert(res.OK)
		a.logEvent(ctx, store.EventAlert, map[string]interface{}{
			"signal_id": sig.ID,
			"symbol":    sig.Symbol,
			"ok":        res.OK,
			"detail":    res.Detail,
		})
		if res.OK {
			sent++
			continue
		}
		log.Warn().Str("symbol", sig.Symbol).Str("detail", res.Detail).Msg("alert not delivered")
	}
	return sent
}

func (a *Agent) sourceFailed(ctx context.Context, event, source, symbol string, err error) {
	a.deps.Metrics.RecordFetchError(source)
	log.Warn().Err(err).Str("symbol", symbol).Str("source", source).Msg("fetch failed")
	a.logEvent(ctx, event, map[string]interface{}{"symbol": symbol, "error": err.Error()})
}

func (a *Agent) logEvent(ctx context.Context, event string, payload interface{}) {
	if err := a.deps.Store.LogEvent(ctx, event, payload); err != nil {
		log.Error().Err(err).Str("event", event).Msg("audit log")
	}
}
