package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"vigil/internal/models"
)

type Config struct {
	LogLevel string `mapstructure:"log_level"`
	DBPath   string `mapstructure:"db_path"`

	SampleInterval  time.Duration `mapstructure:"sample_interval"`
	CPUSampleWindow time.Duration `mapstructure:"cpu_sample_window"`

	CacheProbeTimeout time.Duration `mapstructure:"cache_probe_timeout"`
	StoreProbeTimeout time.Duration `mapstructure:"store_probe_timeout"`
	APIProbeTimeout   time.Duration `mapstructure:"api_probe_timeout"`
	APIHealthURL      string        `mapstructure:"api_health_url"`

	RedisAddr     string `mapstructure:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`
	RedisQueueKey string `mapstructure:"redis_queue_key"`

	QueueCapacity    int           `mapstructure:"alert_queue_capacity"`
	QueuePollTimeout time.Duration `mapstructure:"alert_poll_timeout"`
	DedupWindow      time.Duration `mapstructure:"dedup_window"`
	SummaryLookback  time.Duration `mapstructure:"summary_lookback"`

	ErrorWindow time.Duration `mapstructure:"error_window"`
	LogTailPath string        `mapstructure:"log_tail_path"`

	RetentionMaxAge     time.Duration `mapstructure:"retention_max_age"`
	RetentionSweepEvery time.Duration `mapstructure:"retention_sweep_every"`

	NotifyChannel    string        `mapstructure:"notify_channel"`
	SMTPHost         string        `mapstructure:"smtp_host"`
	SMTPPort         int           `mapstructure:"smtp_port"`
	SMTPUsername     string        `mapstructure:"smtp_username"`
	SMTPPassword     string        `mapstructure:"smtp_password"`
	SMTPFrom         string        `mapstructure:"smtp_from"`
	SMTPTo           []string      `mapstructure:"smtp_to"`
	SMTPTimeout      time.Duration `mapstructure:"smtp_timeout"`
	WebhookURL       string        `mapstructure:"webhook_url"`
	WebhookTimeout   time.Duration `mapstructure:"webhook_timeout"`
	TelegramBotToken string        `mapstructure:"telegram_bot_token"`
	TelegramChatID   string        `mapstructure:"telegram_chat_id"`
	TelegramTimeout  time.Duration `mapstructure:"telegram_timeout"`

	Thresholds models.Thresholds `mapstructure:"thresholds"`
}

// Load reads settings from an optional config file (path when given,
// otherwise ./vigil.yaml or /etc/vigil/vigil.yaml) and falls back to
// defaults. Environment variables with prefix VIGIL_ override file values.
func Load(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("log_level", "info")
	v.SetDefault("db_path", "vigil.db")

	v.SetDefault("sample_interval", 30*time.Second)
	v.SetDefault("cpu_sample_window", 500*time.Millisecond)

	v.SetDefault("cache_probe_timeout", 5*time.Second)
	v.SetDefault("store_probe_timeout", 5*time.Second)
	v.SetDefault("api_probe_timeout", 10*time.Second)
	v.SetDefault("api_health_url", "http://localhost:8080/healthz")

	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_queue_key", "vigil:work")

	v.SetDefault("alert_queue_capacity", 256)
	v.SetDefault("alert_poll_timeout", 30*time.Second)
	v.SetDefault("dedup_window", 5*time.Minute)
	v.SetDefault("summary_lookback", 24*time.Hour)

	v.SetDefault("error_window", 5*time.Minute)
	v.SetDefault("log_tail_path", "")

	v.SetDefault("retention_max_age", 14*24*time.Hour)
	v.SetDefault("retention_sweep_every", 6*time.Hour)

	v.SetDefault("notify_channel", "none")
	v.SetDefault("smtp_port", 587)
	v.SetDefault("smtp_timeout", 10*time.Second)
	v.SetDefault("webhook_timeout", 10*time.Second)
	v.SetDefault("telegram_bot_token", "")
	v.SetDefault("telegram_chat_id", "")
	v.SetDefault("telegram_timeout", 10*time.Second)

	v.SetDefault("thresholds.cpu_usage.warning", 80.0)
	v.SetDefault("thresholds.cpu_usage.critical", 95.0)
	v.SetDefault("thresholds.memory_usage.warning", 85.0)
	v.SetDefault("thresholds.memory_usage.critical", 95.0)
	v.SetDefault("thresholds.disk_usage.warning", 85.0)
	v.SetDefault("thresholds.disk_usage.critical", 95.0)
	v.SetDefault("thresholds.api_response_time.warning", 1000.0)
	v.SetDefault("thresholds.api_response_time.critical", 5000.0)
	v.SetDefault("thresholds.queue_depth.warning", 100.0)
	v.SetDefault("thresholds.queue_depth.critical", 500.0)
	v.SetDefault("thresholds.error_rate.warning", 5.0)
	v.SetDefault("thresholds.error_rate.critical", 15.0)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("vigil")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/vigil")
	}
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("VIGIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level: unknown level %q", c.LogLevel)
	}
	if c.DBPath == "" {
		return fmt.Errorf("db_path: must not be empty")
	}
	for key, d := range map[string]time.Duration{
		"sample_interval":       c.SampleInterval,
		"cache_probe_timeout":   c.CacheProbeTimeout,
		"store_probe_timeout":   c.StoreProbeTimeout,
		"api_probe_timeout":     c.APIProbeTimeout,
		"alert_poll_timeout":    c.QueuePollTimeout,
		"dedup_window":          c.DedupWindow,
		"summary_lookback":      c.SummaryLookback,
		"error_window":          c.ErrorWindow,
		"retention_max_age":     c.RetentionMaxAge,
		"retention_sweep_every": c.RetentionSweepEvery,
	} {
		if d <= 0 {
			return fmt.Errorf("%s: must be positive, got %s", key, d)
		}
	}
	if c.QueueCapacity < 1 {
		return fmt.Errorf("alert_queue_capacity: must be at least 1, got %d", c.QueueCapacity)
	}

	known := make(map[string]bool)
	for _, name := range models.NumericRules() {
		known[name] = true
	}
	for name, th := range c.Thresholds {
		if !known[name] {
			return fmt.Errorf("thresholds.%s: unknown rule", name)
		}
		if th.Warning < 0 || th.Critical < 0 {
			return fmt.Errorf("thresholds.%s: negative bound", name)
		}
		if th.Warning >= th.Critical {
			return fmt.Errorf("thresholds.%s: warning %.2f must be below critical %.2f", name, th.Warning, th.Critical)
		}
	}
	for _, name := range models.NumericRules() {
		if _, ok := c.Thresholds[name]; !ok {
			return fmt.Errorf("thresholds.%s: missing rule", name)
		}
	}

	switch c.NotifyChannel {
	case "none":
	case "smtp":
		if c.SMTPHost == "" || c.SMTPFrom == "" || len(c.SMTPTo) == 0 {
			return fmt.Errorf("notify_channel smtp: smtp_host, smtp_from and smtp_to are required")
		}
		if c.SMTPPort < 1 || c.SMTPPort > 65535 {
			return fmt.Errorf("smtp_port: out of range, got %d", c.SMTPPort)
		}
	case "webhook":
		if c.WebhookURL == "" {
			return fmt.Errorf("notify_channel webhook: webhook_url is required")
		}
	case "telegram":
		if c.TelegramBotToken == "" || c.TelegramChatID == "" {
			return fmt.Errorf("notify_channel telegram: telegram_bot_token and telegram_chat_id are required")
		}
	default:
		return fmt.Errorf("notify_channel: unknown channel %q", c.NotifyChannel)
	}
	return nil
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
