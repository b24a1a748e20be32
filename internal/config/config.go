package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL    string `yaml:"database_url"`
	HTTPListenAddr string `yaml:"http_listen_addr"`
	LogLevel       string `yaml:"log_level"`
	ServiceName    string `yaml:"service_name"`

	// DBMaxConns caps the pgx pool. Zero keeps the pgx default.
	DBMaxConns int32 `yaml:"db_max_conns"`

	// MetricsListenAddr serves /metrics on a separate listener when set.
	MetricsListenAddr string `yaml:"metrics_listen_addr"`

	ResendAPIKey        string        `yaml:"resend_api_key"`
	ResendAPIURL        string        `yaml:"resend_api_url"`
	ResendWebhookSecret string        `yaml:"resend_webhook_secret"`
	ProviderTimeout     time.Duration `yaml:"provider_timeout"`

	// MailFrom is the sender identity, e.g. "Mailtrack <noreply@example.com>".
	MailFrom    string `yaml:"mail_from"`
	MailReplyTo string `yaml:"mail_reply_to"`

	// NATSURL enables the NATS change feed. Empty means in-process only.
	NATSURL           string `yaml:"nats_url"`
	NATSSubjectPrefix string `yaml:"nats_subject_prefix"`
	NATSTLSCert       string `yaml:"nats_tls_cert"`
	NATSTLSKey        string `yaml:"nats_tls_key"`
	NATSTLSCACert     string `yaml:"nats_tls_ca_cert"`

	CORSOrigins []string `yaml:"cors_origins"`
}

// Load builds the config from defaults, an optional YAML file named by
// MAILTRACK_CONFIG, and environment variables, in increasing precedence.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPListenAddr:    ":8080",
		LogLevel:          "info",
		ServiceName:       "mailtrack",
		ResendAPIURL:      "https://api.resend.com",
		ProviderTimeout:   10 * time.Second,
		NATSSubjectPrefix: "mailtrack",
	}

	if path := os.Getenv("MAILTRACK_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.HTTPListenAddr = getEnv("HTTP_LISTEN_ADDR", cfg.HTTPListenAddr)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ServiceName = getEnv("SERVICE_NAME", cfg.ServiceName)
	cfg.MetricsListenAddr = getEnv("METRICS_LISTEN_ADDR", cfg.MetricsListenAddr)
	cfg.ResendAPIKey = getEnv("RESEND_API_KEY", cfg.ResendAPIKey)
	cfg.ResendAPIURL = strings.TrimRight(getEnv("RESEND_API_URL", cfg.ResendAPIURL), "/")
	cfg.ResendWebhookSecret = getEnv("RESEND_WEBHOOK_SECRET", cfg.ResendWebhookSecret)
	cfg.MailFrom = getEnv("MAIL_FROM", cfg.MailFrom)
	cfg.MailReplyTo = getEnv("MAIL_REPLY_TO", cfg.MailReplyTo)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.NATSSubjectPrefix = getEnv("NATS_SUBJECT_PREFIX", cfg.NATSSubjectPrefix)
	cfg.NATSTLSCert = getEnv("NATS_TLS_CERT", cfg.NATSTLSCert)
	cfg.NATSTLSKey = getEnv("NATS_TLS_KEY", cfg.NATSTLSKey)
	cfg.NATSTLSCACert = getEnv("NATS_TLS_CA_CERT", cfg.NATSTLSCACert)

	if v := os.Getenv("PROVIDER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("parse PROVIDER_TIMEOUT: %w", err)
		}
		cfg.ProviderTimeout = d
	}

	if v := os.Getenv("DB_MAX_CONNS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse DB_MAX_CONNS: %w", err)
		}
		cfg.DBMaxConns = int32(n)
	}

	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	return cfg, nil
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.ResendAPIKey == "" {
		missing = append(missing, "RESEND_API_KEY")
	}
	if c.MailFrom == "" {
		missing = append(missing, "MAIL_FROM")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("PROVIDER_TIMEOUT must be positive")
	}
	if c.DBMaxConns < 0 {
		return fmt.Errorf("DB_MAX_CONNS must not be negative")
	}
	return nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
