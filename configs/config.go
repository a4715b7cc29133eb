package configs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/BotCoder254/projects254/internal/logging"
)

const envPrefix = "FOODHUB_"

type Account struct {
	Email        string `koanf:"email"`
	PasswordHash string `koanf:"password_hash"`
	Role         string `koanf:"role"`
}

type Config struct {
	App struct {
		Name     string `koanf:"name"`
		HTTPAddr string `koanf:"http_addr"`
	} `koanf:"app"`

	Log struct {
		Level      string `koanf:"level"`
		Format     string `koanf:"format"`
		File       string `koanf:"file"`
		MaxSizeMB  int    `koanf:"max_size_mb"`
		MaxBackups int    `koanf:"max_backups"`
		MaxAgeDays int    `koanf:"max_age_days"`
		Compress   bool   `koanf:"compress"`
	} `koanf:"log"`

	HTTP struct {
		ReadTimeout  time.Duration `koanf:"read_timeout"`
		WriteTimeout time.Duration `koanf:"write_timeout"`
		IdleTimeout  time.Duration `koanf:"idle_timeout"`
	} `koanf:"http"`

	MySQL struct {
		DSN             string        `koanf:"dsn"`
		MaxOpenConns    int           `koanf:"max_open_conns"`
		MaxIdleConns    int           `koanf:"max_idle_conns"`
		ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
		EnsureSchema    bool          `koanf:"ensure_schema"`
	} `koanf:"mysql"`

	Redis struct {
		Addr     string `koanf:"addr"`
		Password string `koanf:"password"`
		DB       int    `koanf:"db"`
	} `koanf:"redis"`

	Cart struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"cart"`

	Checkout struct {
		TTL time.Duration `koanf:"ttl"`
	} `koanf:"checkout"`

	Idempotency struct {
		TTL     time.Duration `koanf:"ttl"`
		LockTTL time.Duration `koanf:"lock_ttl"`
	} `koanf:"idempotency"`

	Mpesa struct {
		BaseURL         string        `koanf:"base_url"`
		ConsumerKey     string        `koanf:"consumer_key"`
		ConsumerSecret  string        `koanf:"consumer_secret"`
		ShortCode       string        `koanf:"shortcode"`
		Passkey         string        `koanf:"passkey"`
		CallbackURL     string        `koanf:"callback_url"`
		TransactionType string        `koanf:"transaction_type"`
		CountryCode     string        `koanf:"country_code"`
		Timeout         time.Duration `koanf:"timeout"`
	} `koanf:"mpesa"`

	Rabbit struct {
		Enabled    bool   `koanf:"enabled"`
		URL        string `koanf:"url"`
		Exchange   string `koanf:"exchange"`
		StatsQueue string `koanf:"stats_queue"`
		Prefetch   int    `koanf:"prefetch"`
	} `koanf:"rabbitmq"`

	Kafka struct {
		Enabled       bool     `koanf:"enabled"`
		Brokers       []string `koanf:"brokers"`
		GroupID       string   `koanf:"group_id"`
		CallbackTopic string   `koanf:"callback_topic"`
	} `koanf:"kafka"`

	Security struct {
		JWTSecret string        `koanf:"jwt_secret"`
		Issuer    string        `koanf:"issuer"`
		Audience  string        `koanf:"audience"`
		TTL       time.Duration `koanf:"ttl"`
		Accounts  []Account     `koanf:"accounts"`
	} `koanf:"security"`
}

func defaults() map[string]any {
	return map[string]any{
		"app.name":                "foodhub-api",
		"app.http_addr":           ":8080",
		"log.level":               "info",
		"log.format":              "json",
		"log.max_size_mb":         50,
		"log.max_backups":         3,
		"log.max_age_days":        7,
		"http.read_timeout":       "10s",
		"http.write_timeout":      "60s",
		"http.idle_timeout":       "60s",
		"mysql.max_open_conns":    16,
		"mysql.max_idle_conns":    16,
		"mysql.conn_max_lifetime": "30m",
		"redis.addr":              "localhost:6379",
		"cart.ttl":                "72h",
		"checkout.ttl":            "24h",
		"idempotency.ttl":         "168h",
		"idempotency.lock_ttl":    "30s",
		"mpesa.base_url":          "https://sandbox.safaricom.co.ke",
		"mpesa.transaction_type":  "CustomerPayBillOnline",
		"mpesa.country_code":      "254",
		"mpesa.timeout":           "30s",
		"rabbitmq.exchange":       "foodhub.admin",
		"rabbitmq.stats_queue":    "foodhub.stats.q",
		"rabbitmq.prefetch":       50,
		"kafka.group_id":          "foodhub-api",
		"kafka.callback_topic":    "mpesa.stk.callbacks",
		"security.issuer":         "foodhub-api",
		"security.audience":       "foodhub-admin",
		"security.ttl":            "8h",
	}
}

func Load(pathDir, envName string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	// 1) base
	if err := k.Load(file.Provider(fmt.Sprintf("%s/base.yaml", pathDir)), yaml.Parser()); err != nil {
		return Config{}, fmt.Errorf("load base: %w", err)
	}

	// 2) env override (dev/staging/prod). Optional: allow missing for local runs.
	_ = k.Load(file.Provider(fmt.Sprintf("%s/%s.yaml", pathDir, envName)), yaml.Parser())

	// 3) environment variables, nested with __
	// e.g. FOODHUB_MYSQL__DSN, FOODHUB_MPESA__PASSKEY
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, envPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return Config{}, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LogOptions maps the log section onto the logger setup.
func (c Config) LogOptions() logging.Options {
	return logging.Options{
		Component:  c.App.Name,
		Level:      c.Log.Level,
		Format:     c.Log.Format,
		File:       c.Log.File,
		MaxSizeMB:  c.Log.MaxSizeMB,
		MaxBackups: c.Log.MaxBackups,
		MaxAgeDays: c.Log.MaxAgeDays,
		Compress:   c.Log.Compress,
	}
}

func (c Config) Validate() error {
	var errs []error
	if c.App.HTTPAddr == "" {
		errs = append(errs, errors.New("app.http_addr required"))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if f := strings.ToLower(c.Log.Format); f != "" && f != "json" && f != "text" {
		errs = append(errs, errors.New("log.format must be json or text"))
	}
	if c.MySQL.DSN == "" {
		errs = append(errs, errors.New("mysql.dsn required"))
	}
	if c.Redis.Addr == "" {
		errs = append(errs, errors.New("redis.addr required"))
	}
	if c.Mpesa.ShortCode == "" || c.Mpesa.Passkey == "" {
		errs = append(errs, errors.New("mpesa.shortcode and mpesa.passkey required"))
	}
	if c.Mpesa.CallbackURL == "" {
		errs = append(errs, errors.New("mpesa.callback_url required"))
	}
	if c.Rabbit.Enabled && c.Rabbit.URL == "" {
		errs = append(errs, errors.New("rabbitmq.url required when enabled"))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		errs = append(errs, errors.New("kafka.brokers required when enabled"))
	}
	if len(c.Security.JWTSecret) < 32 {
		errs = append(errs, errors.New("security.jwt_secret must be at least 32 bytes"))
	}
	return errors.Join(errs...)
}
