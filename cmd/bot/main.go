package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"StopLineTrader/internal/broker"
	"StopLineTrader/internal/config"
	"StopLineTrader/internal/engine"
	"StopLineTrader/internal/journal"
	"StopLineTrader/internal/notifier"
	"StopLineTrader/internal/scheduler"
	"StopLineTrader/internal/stopline"
	"StopLineTrader/internal/universe"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] StopLineTrader starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init broker
	var bk broker.Broker
	if cfg.Broker.Mode == "bridge" {
		bk = broker.NewBridgeBroker(cfg.Broker.BaseURL, cfg.Broker.APIKey, cfg.Proxy)
	} else {
		bk = broker.NewPaperBroker()
	}
	log.Printf("[INFO] broker: %s", bk.Name())

	// Init universe
	var uni universe.Provider
	static := &universe.Static{
		Symbols:  cfg.Universe.Symbols,
		Exclude:  cfg.Universe.Exclude,
		MinPrice: cfg.Universe.MinPrice,
		MaxPrice: cfg.Universe.MaxPrice,
		Broker:   bk,
	}
	if cfg.Universe.Ranked {
		uni = &universe.Ranked{
			Base:          static,
			Broker:        bk,
			ShortWindow:   cfg.Universe.ShortWindow,
			LongWindow:    cfg.Universe.LongWindow,
			MaxCandidates: cfg.Universe.MaxCandidates,
		}
	} else {
		uni = static
	}
	log.Printf("[INFO] universe: %s, %d symbols configured", uni.Name(), len(cfg.Universe.Symbols))

	// Init Telegram notifier
	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)

	// Init journal
	var jnl journal.Journal
	if cfg.Database.SQLitePath != "" {
		sj, err := journal.NewSQLiteJournal(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite journal failed, using noop: %v", err)
			jnl = journal.NewNoopJournal()
		} else {
			jnl = sj
			defer sj.Close()
		}
	} else {
		jnl = journal.NewNoopJournal()
	}

	// Init session
	session := engine.NewSession(engine.Config{
		SessionCash:  cfg.Trading.SessionCash,
		MaxPositions: cfg.Trading.MaxPositions,
		CoolOutTime:  cfg.Trading.CoolOutTime,
		Detector: stopline.Config{
			Window:      cfg.Trading.MinMaxWindow,
			Interval:    cfg.Trading.Interval,
			Proportion:  cfg.Trading.Proportion,
			PickNearest: cfg.Trading.LevelPick == "nearest",
		},
	}, bk, uni, jnl)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched, err := scheduler.NewScheduler(ctx, session, tn, scheduler.Config{
		MarketOpen:         cfg.Schedule.MarketOpen,
		Timezone:           cfg.Schedule.Timezone,
		SessionMinutes:     cfg.Schedule.SessionMinutes,
		Interval:           cfg.Trading.Interval,
		CoolOutTime:        cfg.Trading.CoolOutTime,
		FlattenBeforeClose: cfg.Schedule.FlattenBeforeClose,
	})
	if err != nil {
		log.Fatalf("[FATAL] init scheduler: %v", err)
	}
	if err := sched.RegisterAll(); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		log.Printf("[INFO] metrics listening on %s", cfg.Metrics.ListenAddr)
		if err := http.ListenAndServe(cfg.Metrics.ListenAddr, mux); err != nil {
			log.Printf("[ERROR] metrics server: %v", err)
		}
	}()

	// Start Telegram polling
	go tn.StartPolling(ctx, sched.HandleCommand)
	log.Println("[INFO] Telegram polling started")

	// Optional: start a session immediately on launch
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, starting session now")
		sched.RunStartOfDayNow()
	}

	log.Println("[INFO] StopLineTrader is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] StopLineTrader stopped")
}
