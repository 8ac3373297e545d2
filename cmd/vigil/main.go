package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"vigil/internal/alerts"
	"vigil/internal/collector"
	"vigil/internal/config"
	"vigil/internal/errorrate"
	"vigil/internal/models"
	"vigil/internal/monitor"
	"vigil/internal/notifier"
	"vigil/internal/probes"
	"vigil/internal/retention"
	"vigil/internal/store"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	var cfgPath string

	root := &cobra.Command{
		Use:   "vigil",
		Short: "Self-hosted operational monitor",
		Long: `vigil samples host and dependency health on a fixed interval, evaluates
two-tier thresholds and keeps an alert history in sqlite, notifying on
critical conditions.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Start the monitor and block until SIGINT/SIGTERM",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
			logger.Info("starting vigil",
				"version", version, "db", cfg.DBPath, "interval", cfg.SampleInterval)

			sqldb, err := store.Open(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			if err := store.Migrate(sqldb); err != nil {
				_ = sqldb.Close()
				return fmt.Errorf("migrating store: %w", err)
			}
			st := store.New(sqldb)
			defer st.Close()

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.RedisAddr,
				Password: cfg.RedisPassword,
				DB:       cfg.RedisDB,
			})
			defer rdb.Close()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			window := errorrate.NewWindow(cfg.ErrorWindow)
			if cfg.LogTailPath != "" {
				go errorrate.NewTailer(cfg.LogTailPath, window, logger.With("module", "logtail")).Run(ctx)
			}

			col := collector.New(collector.Config{
				Cache:      probes.RedisPing(rdb),
				Store:      probes.SQLPing(sqldb),
				API:        probes.HTTPCheck(cfg.APIHealthURL, &http.Client{Timeout: cfg.APIProbeTimeout}),
				QueueDepth: probes.RedisQueueDepth(rdb, cfg.RedisQueueKey),
				ErrorRate: func(context.Context) (float64, error) {
					return window.Rate(), nil
				},
				CacheTimeout: cfg.CacheProbeTimeout,
				StoreTimeout: cfg.StoreProbeTimeout,
				APITimeout:   cfg.APIProbeTimeout,
				CPUWindow:    cfg.CPUSampleWindow,
			}, logger.With("module", "collector"))

			dispatcher := notifier.NewDispatcher(buildSender(cfg), logger.With("module", "notifier"))
			queue := alerts.NewQueue(cfg.QueueCapacity)
			proc := alerts.NewProcessor(st, dispatcher, cfg.DedupWindow, logger.With("module", "alerts"))
			ret := retention.NewService(st, cfg.RetentionMaxAge, logger.With("module", "retention"))

			m := monitor.New(monitor.Config{
				SampleInterval:  cfg.SampleInterval,
				PollTimeout:     cfg.QueuePollTimeout,
				SweepEvery:      cfg.RetentionSweepEvery,
				SummaryLookback: cfg.SummaryLookback,
				Thresholds:      cfg.Thresholds,
			}, st, col, queue, proc, ret, logger.With("module", "monitor"))

			if err := m.Start(); err != nil {
				return err
			}
			<-ctx.Done()
			logger.Info("shutting down")
			if err := m.Stop(); err != nil {
				logger.Error("stop monitor", "err", err)
			}
			queue.Close()
			return nil
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate the configuration and print the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			fmt.Println("configuration ok")
			fmt.Printf("  log_level:        %s\n", cfg.LogLevel)
			fmt.Printf("  db_path:          %s\n", cfg.DBPath)
			fmt.Printf("  sample_interval:  %s\n", cfg.SampleInterval)
			fmt.Printf("  api_health_url:   %s\n", cfg.APIHealthURL)
			fmt.Printf("  redis_addr:       %s\n", cfg.RedisAddr)
			fmt.Printf("  log_tail_path:    %s\n", cfg.LogTailPath)
			fmt.Printf("  notify_channel:   %s\n", cfg.NotifyChannel)
			fmt.Printf("  retention:        %s, sweep every %s\n", cfg.RetentionMaxAge, cfg.RetentionSweepEvery)
			fmt.Printf("  queue:            capacity %d, poll %s\n", cfg.QueueCapacity, cfg.QueuePollTimeout)
			fmt.Printf("  dedup_window:     %s\n", cfg.DedupWindow)
			fmt.Println("  thresholds:")
			for _, rule := range models.NumericRules() {
				th := cfg.Thresholds[rule]
				fmt.Printf("    %-18s warning %.2f  critical %.2f\n", rule, th.Warning, th.Critical)
			}
			return nil
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print vigil version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("vigil %s (commit %s, built %s)\n", version, commit, date)
		},
	}

	root.AddCommand(runCmd, checkCmd, versionCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildSender(cfg *config.Config) notifier.Sender {
	switch cfg.NotifyChannel {
	case "smtp":
		return notifier.NewSMTP(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword,
			cfg.SMTPFrom, cfg.SMTPTo, cfg.SMTPTimeout)
	case "webhook":
		return notifier.NewWebhook(cfg.WebhookURL, cfg.WebhookTimeout)
	case "telegram":
		return notifier.NewTelegram(cfg.TelegramBotToken, cfg.TelegramChatID, cfg.TelegramTimeout)
	default:
		return nil
	}
}
