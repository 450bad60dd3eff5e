package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"AShareSentinel/internal/agent"
	"AShareSentinel/internal/model"
	"AShareSentinel/internal/notifier"
)

// Job slots.
const (
	SlotPreOpen   = "pre_open"
	SlotPostClose = "post_close"
	SlotIntraday  = "intraday"
	SlotManual    = "manual"
)

// Scheduler manages the cron jobs that trigger research runs.
type Scheduler struct {
	Cron     *cron.Cron
	Agent    *agent.Agent
	Notifier notifier.Notifier
	// Symbols supplies the watchlist for every run.
	Symbols func() ([]string, error)
	Equity  float64
	Ctx     context.Context

	loc *time.Location
	now func() time.Time
}

// NewScheduler creates a Scheduler whose cron expressions are evaluated in loc.
func NewScheduler(ctx context.Context, loc *time.Location, ag *agent.Agent, n notifier.Notifier, symbols func() ([]string, error), equity float64) *Scheduler {
	if loc == nil {
		loc = time.FixedZone("CST", 8*3600)
	}
	return &Scheduler{
		Cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Agent:    ag,
		Notifier: n,
		Symbols:  symbols,
		Equity:   equity,
		Ctx:      ctx,
		loc:      loc,
		now:      time.Now,
	}
}

// RegisterAll registers the pre-open, post-close and intraday jobs. Times are
// "HH:MM" in the scheduler zone; everyMinutes <= 0 disables intraday runs.
func (s *Scheduler) RegisterAll(preOpen, postClose string, everyMinutes int) error {
	preSpec, err := DailySpec(preOpen)
	if err != nil {
		return fmt.Errorf("register pre-open task: %w", err)
	}
	if _, err := s.Cron.AddFunc(preSpec, func() { s.RunNow(SlotPreOpen) }); err != nil {
		return fmt.Errorf("register pre-open task: %w", err)
	}

	postSpec, err := DailySpec(postClose)
	if err != nil {
		return fmt.Errorf("register post-close task: %w", err)
	}
	if _, err := s.Cron.AddFunc(postSpec, func() { s.RunNow(SlotPostClose) }); err != nil {
		return fmt.Errorf("register post-close task: %w", err)
	}

	if everyMinutes > 0 {
		spec := fmt.Sprintf("0 */%d * * * 1-5", everyMinutes)
		if _, err := s.Cron.AddFunc(spec, s.intradayTask); err != nil {
			return fmt.Errorf("register intraday task: %w", err)
		}
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Info().Int("jobs", len(s.Cron.Entries())).Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Info().Msg("scheduler stopped")
}

// DailySpec converts "HH:MM" into a weekday cron spec with seconds.
func DailySpec(hhmm string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(hhmm))
	if err != nil {
		return "", fmt.Errorf("invalid time %q: %w", hhmm, err)
	}
	return fmt.Sprintf("0 %d %d * * 1-5", t.Minute(), t.Hour()), nil
}

// InTradingWindow reports whether t falls in a continuous trading session,
// 09:30-11:30 or 13:00-15:00 inclusive.
func InTradingWindow(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	am := m >= 9*60+30 && m <= 11*60+30
	pm := m >= 13*60 && m <= 15*60
	return am || pm
}

func (s *Scheduler) intradayTask() {
	if !InTradingWindow(s.now().In(s.loc)) {
		return
	}
	s.RunNow(SlotIntraday)
}

// RunNow executes a run immediately (manual trigger / RUN_ON_START).
func (s *Scheduler) RunNow(slot string) (*model.RunResult, error) {
	log.Info().Str("slot", slot).Msg("running research task")
	symbols, err := s.Symbols()
	if err != nil {
		log.Error().Err(err).Str("slot", slot).Msg("load watchlist")
		s.trySend(fmt.Sprintf("❌ 自选股加载失败: %v", err))
		return nil, err
	}
	res, err := s.Agent.RunOnce(s.Ctx, symbols, s.Equity)
	if err != nil {
		log.Error().Err(err).Str("slot", slot).Msg("run failed")
		s.trySend(fmt.Sprintf("❌ 运行失败 (%s): %v", slot, err))
		return nil, err
	}
	return res, nil
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(ctx context.Context, command string) string {
	switch strings.TrimSpace(command) {
	case "立即运行", "/run":
		res, err := s.RunNow(SlotManual)
		if err != nil {
			return fmt.Sprintf("运行失败: %v", err)
		}
		return notifier.FormatSignalList(model.DayKey(res.Date), res.Signals)
	case "查看风险状态", "/risk":
		if res, ok := s.Agent.LastResult(); ok {
			return notifier.FormatRiskState(res.RiskState)
		}
		rs, err := s.Agent.Store().LatestRiskState(ctx)
		if err != nil {
			return fmt.Sprintf("读取风险状态失败: %v", err)
		}
		if rs == nil {
			return "暂无风险状态记录"
		}
		return notifier.FormatRiskState(*rs)
	case "查看今日信号", "/signals":
		day := s.Agent.Today()
		signals, err := s.Agent.Store().SignalsByDate(ctx, day)
		if err != nil {
			return fmt.Sprintf("读取信号失败: %v", err)
		}
		return notifier.FormatSignalList(model.DayKey(day), signals)
	default:
		return "可用命令:\n• /run 立即运行\n• /risk 查看风险状态\n• /signals 查看今日信号"
	}
}

func (s *Scheduler) trySend(text string) {
	if s.Notifier == nil {
		return
	}
	if res := s.Notifier.SendText(s.Ctx, text); !res.OK {
		log.Error().Str("detail", res.Detail).Msg("send notification")
	}
}
