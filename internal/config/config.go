package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// App holds the runtime configuration, loaded from (highest priority first)
// environment variables, an optional config file and built-in defaults.
type App struct {
	Env             string        `mapstructure:"env"`
	HTTPPort        string        `mapstructure:"http_port"`
	WorkerPort      string        `mapstructure:"worker_port"`
	DatabaseDSN     string        `mapstructure:"database_dsn"`
	RedisAddr       string        `mapstructure:"redis_addr"`
	QueueBackend    string        `mapstructure:"queue_backend"`
	RateLimitPerMin int           `mapstructure:"rate_limit_per_min"`
	ScanRatePerMin  int           `mapstructure:"scan_rate_per_min"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	Timezone        string        `mapstructure:"timezone"`
	JWTIssuer       string        `mapstructure:"jwt_issuer"`
	JWTSigningKey   string        `mapstructure:"jwt_signing_key"`
	AccessTTL       time.Duration `mapstructure:"access_ttl"`
	RefreshTTL      time.Duration `mapstructure:"refresh_ttl"`
	Schedule        Schedule      `mapstructure:"schedule"`
	Holidays        []string      `mapstructure:"holidays"`
	Mail            Mail          `mapstructure:"mail"`
	Summary         Summary       `mapstructure:"summary"`
}

// Schedule carries the attendance cut-off hours (school-local time). These are
// school policy, not derived values, so they live in config rather than code.
type Schedule struct {
	MorningLateHour     int `mapstructure:"morning_late_hour"`
	MorningAbsentHour   int `mapstructure:"morning_absent_hour"`
	AfternoonLateHour   int `mapstructure:"afternoon_late_hour"`
	AfternoonAbsentHour int `mapstructure:"afternoon_absent_hour"`
}

// Mail configures guardian notification delivery.
type Mail struct {
	Backend     string `mapstructure:"backend"` // "sendgrid" or "console"
	SendgridKey string `mapstructure:"sendgrid_key"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

// Summary configures the end-of-day stats email sent by the worker.
type Summary struct {
	Enabled    bool     `mapstructure:"enabled"`
	CronSpec   string   `mapstructure:"cron_spec"`
	Recipients []string `mapstructure:"recipients"`
}

// Load reads configuration. A .env file in the working directory is honored
// when present so local dev does not need exported env vars.
func Load(path string) (App, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("env", "dev")
	v.SetDefault("http_port", "8081")
	v.SetDefault("worker_port", "8082")
	v.SetDefault("database_dsn", "classtrack:classtrack@tcp(localhost:3306)/classtrack?parseTime=true")
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("queue_backend", "redis")
	v.SetDefault("rate_limit_per_min", 120)
	// Whole classes scan through one device at the gate, so scans get more
	// headroom than the rest of the API.
	v.SetDefault("scan_rate_per_min", 240)
	v.SetDefault("cors_origins", []string{"*"})
	v.SetDefault("timezone", "Asia/Manila")

	v.SetDefault("jwt_issuer", "classtrack")
	v.SetDefault("jwt_signing_key", "dev-signing-secret-change")
	v.SetDefault("access_ttl", "15m")
	v.SetDefault("refresh_ttl", "24h")

	v.SetDefault("schedule.morning_late_hour", 8)
	v.SetDefault("schedule.morning_absent_hour", 10)
	v.SetDefault("schedule.afternoon_late_hour", 14)
	v.SetDefault("schedule.afternoon_absent_hour", 15)
	v.SetDefault("holidays", []string{})

	v.SetDefault("mail.backend", "console")
	v.SetDefault("mail.from_address", "noreply@localhost")
	v.SetDefault("mail.from_name", "ClassTrack")

	v.SetDefault("summary.enabled", false)
	v.SetDefault("summary.cron_spec", "0 18 * * 1-5")
	v.SetDefault("summary.recipients", []string{})

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CLASSTRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return App{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg App
	if err := v.Unmarshal(&cfg); err != nil {
		return App{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return App{}, err
	}
	return cfg, nil
}

func (c App) validate() error {
	if strings.TrimSpace(c.JWTSigningKey) == "" {
		return fmt.Errorf("config: jwt_signing_key must not be empty")
	}
	s := c.Schedule
	if !(s.MorningLateHour < s.MorningAbsentHour && s.MorningAbsentHour <= 12) {
		return fmt.Errorf("config: morning cut-off hours out of order")
	}
	if !(12 <= s.AfternoonLateHour && s.AfternoonLateHour < s.AfternoonAbsentHour) {
		return fmt.Errorf("config: afternoon cut-off hours out of order")
	}
	if c.Mail.Backend == "sendgrid" && c.Mail.SendgridKey == "" {
		return fmt.Errorf("config: mail.sendgrid_key required for sendgrid backend")
	}
	return nil
}
