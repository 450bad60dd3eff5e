package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"

	"AShareSentinel/internal/agent"
	"AShareSentinel/internal/api"
	"AShareSentinel/internal/backtest"
	"AShareSentinel/internal/collector"
	"AShareSentinel/internal/config"
	"AShareSentinel/internal/fund"
	"AShareSentinel/internal/logger"
	"AShareSentinel/internal/metrics"
	"AShareSentinel/internal/model"
	"AShareSentinel/internal/news"
	"AShareSentinel/internal/notifier"
	"AShareSentinel/internal/scheduler"
	"AShareSentinel/internal/store"
	"AShareSentinel/internal/strategy"
	"AShareSentinel/internal/trace"
)

func main() {
	os.Exit(run())
}

func run() int {
	once := flag.Bool("once", false, "run the watchlist once and exit")
	symbolsFlag := flag.String("symbols", "", "comma separated symbols overriding the watchlist")
	runBacktest := flag.Bool("backtest", false, "replay the technical score and exit")
	btStart := flag.String("start", "", "backtest start date (YYYY-MM-DD)")
	btEnd := flag.String("end", "", "backtest end date (YYYY-MM-DD)")
	benchmark := flag.String("benchmark", backtest.DefaultBenchmark, "backtest benchmark symbol")
	flag.Parse()

	config.LoadDotEnv()
	cfg, err := config.Load(config.Path())
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "config validation: %v\n", err)
		return 1
	}
	if _, err := logger.Init(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	log.Info().Msg("AShareSentinel starting")

	loc, err := cfg.Location()
	if err != nil {
		log.Error().Err(err).Msg("load timezone")
		return 1
	}
	if err := trace.Init(cfg.Tracing.Enabled); err != nil {
		log.Error().Err(err).Msg("init tracing")
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(sctx); err != nil {
			log.Error().Err(err).Msg("shutdown tracing")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Market data
	var fetcher collector.Fetcher
	switch cfg.Market.Source {
	case "mock":
		fetcher = &collector.MockFetcher{Price: 10}
	default:
		em := collector.NewEastMoneyFetcher(cfg.Proxy, loc)
		if cfg.Market.BaseURL != "" {
			em.BaseURL = cfg.Market.BaseURL
		}
		fetcher = em
	}
	adjust, err := collector.ParseAdjust(cfg.Market.Adjust)
	if err != nil {
		log.Error().Err(err).Msg("market adjust mode")
		return 1
	}
	log.Info().Str("source", fetcher.Name()).Str("adjust", string(adjust)).Msg("market data source")

	watchlist := func() ([]string, error) {
		if *symbolsFlag != "" {
			var out []string
			for _, s := range strings.Split(*symbolsFlag, ",") {
				if s = strings.TrimSpace(s); s != "" {
					out = append(out, s)
				}
			}
			return out, nil
		}
		return config.LoadWatchlist(cfg.UniverseFile)
	}

	if *runBacktest {
		return backtestMain(ctx, fetcher, adjust, cfg, loc, watchlist, *btStart, *btEnd, *benchmark)
	}

	// Storage and risk state
	var st store.Store
	var riskStore fund.StateStore
	if cfg.Storage.SQLitePath != "" {
		sq, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite store failed, using noop")
		} else {
			st = sq
			riskStore = sq
		}
	}
	if st == nil {
		st = store.NewNoopStore()
		riskStore = fund.NewFileStore(cfg.Storage.StateFile)
		log.Info().Str("file", cfg.Storage.StateFile).Msg("risk state kept in file")
	}
	defer st.Close()

	// Search cache
	var cache news.Cache
	if cfg.Cache.RedisAddr != "" {
		rc, err := news.NewRedisCache(cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, "")
		if err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("redis unavailable, using memory cache")
		} else {
			cache = rc
			defer rc.Close()
		}
	}
	if cache == nil {
		mc := news.NewMemoryCache()
		cache = mc
		go sweepCache(ctx, mc, cfg.Cache.TTL)
	}
	serper := news.NewSerperClient(cfg.SerperAPIKey(), cfg.Proxy, cache, cfg.Cache.TTL)

	// Notifiers
	var sinks notifier.Multi
	if hook := cfg.WecomWebhook(); hook != "" {
		sinks = append(sinks, notifier.NewWecomNotifier(hook))
	}
	var tg *notifier.TelegramNotifier
	if cfg.Integrations.TelegramBotToken != "" && cfg.Integrations.TelegramChatID != "" {
		tg = notifier.NewTelegramNotifier(cfg.Integrations.TelegramBotToken, cfg.Integrations.TelegramChatID, cfg.Proxy)
		sinks = append(sinks, tg)
	}
	var sink notifier.Notifier
	if len(sinks) > 0 {
		sink = sinks
	} else {
		log.Warn().Msg("no notifier configured, alerts disabled")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ag := agent.New(agent.Options{
		Params:               signalParams(cfg),
		Location:             loc,
		ResultsDir:           cfg.ResultsDir,
		NewsLookback:         time.Duration(cfg.Lookback.NewsHours) * time.Hour,
		AnnouncementLookback: time.Duration(cfg.Lookback.AnnouncementDays) * 24 * time.Hour,
	}, agent.Deps{
		Collector:     collector.NewCollector(fetcher, cfg.Lookback.BarsDays, adjust),
		News:          serper,
		Announcements: news.NewAnnouncementClient(serper),
		Notifier:      sink,
		Store:         st,
		Risk:          fund.NewManager(riskStore, cfg.Risk.MaxDrawdownLimit),
		Metrics:       metrics.New(reg),
	})

	if *once {
		return runOnceMain(ctx, ag, watchlist, cfg.Account.Equity)
	}

	sched := scheduler.NewScheduler(ctx, loc, ag, sink, watchlist, cfg.Account.Equity)
	if err := sched.RegisterAll(cfg.Schedule.PreOpen, cfg.Schedule.PostClose, cfg.Schedule.IntradayEveryMinutes); err != nil {
		log.Error().Err(err).Msg("register cron tasks")
		return 1
	}
	sched.Start()
	defer sched.Stop()

	srv := api.NewServer(cfg.HTTP.Addr, &api.Handler{
		Agent:    ag,
		Backtest: backtest.NewEngine(fetcher, adjust, cfg.Signal.BuyThreshold, cfg.Signal.ReduceThreshold),
		Symbols:  watchlist,
		Equity:   cfg.Account.Equity,
	}, reg)
	srv.Start()
	defer func() {
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		if err := srv.Stop(sctx); err != nil {
			log.Error().Err(err).Msg("stop http server")
		}
	}()

	if tg != nil {
		go tg.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running now")
		go sched.RunNow(scheduler.SlotManual)
	}

	log.Info().Msg("AShareSentinel is running. Press Ctrl+C to stop.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Info().Msg("shutdown signal received, stopping")
	cancel()
	return 0
}

func signalParams(cfg *config.Config) strategy.Params {
	return strategy.Params{
		TechnicalWeight: cfg.Signal.TechnicalWeight,
		NewsWeight:      cfg.Signal.NewsWeight,
		BuyThreshold:    cfg.Signal.BuyThreshold,
		ReduceThreshold: cfg.Signal.ReduceThreshold,
		RiskPerTrade:    cfg.Risk.RiskPerTrade,
		ATRStopMultiple: cfg.Risk.ATRStopMultiple,
	}
}

func runOnceMain(ctx context.Context, ag *agent.Agent, watchlist func() ([]string, error), equity float64) int {
	symbols, err := watchlist()
	if err != nil {
		log.Error().Err(err).Msg("load watchlist")
		return 1
	}
	res, err := ag.RunOnce(ctx, symbols, equity)
	if err != nil {
		log.Error().Err(err).Msg("run failed")
		return 1
	}
	fmt.Println(notifier.FormatSignalList(model.DayKey(res.Date), res.Signals))
	fmt.Printf("json: %s\nmarkdown: %s\nalerts: %d\n", res.OutputJSON, res.OutputMarkdown, res.AlertsSent)
	return 0
}

func backtestMain(ctx context.Context, fetcher collector.Fetcher, adjust collector.Adjust, cfg *config.Config, loc *time.Location, watchlist func() ([]string, error), start, end, benchmark string) int {
	symbols, err := watchlist()
	if err != nil {
		log.Error().Err(err).Msg("load watchlist")
		return 1
	}
	endT := time.Now().In(loc)
	if end != "" {
		if endT, err = time.ParseInLocation("2006-01-02", end, loc); err != nil {
			log.Error().Err(err).Msg("parse end date")
			return 1
		}
	}
	startT := endT.AddDate(-1, 0, 0)
	if start != "" {
		if startT, err = time.ParseInLocation("2006-01-02", start, loc); err != nil {
			log.Error().Err(err).Msg("parse start date")
			return 1
		}
	}

	eng := backtest.NewEngine(fetcher, adjust, cfg.Signal.BuyThreshold, cfg.Signal.ReduceThreshold)
	res, err := eng.Run(ctx, symbols, startT, endT, benchmark)
	if err != nil {
		log.Error().Err(err).Msg("backtest failed")
		return 1
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	fmt.Println(string(out))
	return 0
}

func sweepCache(ctx context.Context, mc *news.MemoryCache, ttl time.Duration) {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	ticker := time.NewTicker(ttl)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			mc.Cleanup()
		}
	}
}
