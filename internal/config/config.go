package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	DatabaseURL    string
	HTTPListenAddr string
	// MetricsAddr is an optional standalone metrics listener. Empty means
	// metrics are only served from the API router.
	MetricsAddr string
	LogLevel    string
	// LogFormat selects the log encoding: "json" for collectors or
	// "console" for local development.
	LogFormat   string
	ServiceName string
	Environment string
	// MaxConcurrentJobs is the process-wide ceiling on jobs in pending or
	// running state, applied on top of per-schedule limits. Zero disables it.
	MaxConcurrentJobs int
	// SMTPAddr/SMTPFrom configure the outbound mail collaborator. Both must
	// be set together; when absent, email actions log and report success.
	SMTPAddr string
	SMTPFrom string
	// Webhook TLS fields pin how workflow webhooks dial endpoints signed by
	// a private CA or requiring a client certificate.
	WebhookTLSCert       string
	WebhookTLSKey        string
	WebhookTLSCACert     string
	WebhookTLSServerName string
}

func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		HTTPListenAddr:    getEnv("HTTP_LISTEN_ADDR", ":8090"),
		MetricsAddr:       getEnv("METRICS_ADDR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
		ServiceName:       getEnv("SERVICE_NAME", "automation-api"),
		Environment:       getEnv("ENVIRONMENT", ""),
		MaxConcurrentJobs: getEnvInt("MAX_CONCURRENT_JOBS", 500),
		SMTPAddr:          getEnv("SMTP_ADDR", ""),
		SMTPFrom:          getEnv("SMTP_FROM", ""),

		WebhookTLSCert:       getEnv("WEBHOOK_TLS_CERT", ""),
		WebhookTLSKey:        getEnv("WEBHOOK_TLS_KEY", ""),
		WebhookTLSCACert:     getEnv("WEBHOOK_TLS_CA_CERT", ""),
		WebhookTLSServerName: getEnv("WEBHOOK_TLS_SERVER_NAME", ""),
	}

	return cfg, nil
}

// Validate checks that the fields required by the given component are set.
func (c *Config) Validate(component string) error {
	var missing []string

	switch component {
	case "automation-api":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
		if c.HTTPListenAddr == "" {
			missing = append(missing, "HTTP_LISTEN_ADDR")
		}
	case "seeder":
		if c.DatabaseURL == "" {
			missing = append(missing, "DATABASE_URL")
		}
	default:
		return fmt.Errorf("unknown component %q", component)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration for %s: %s", component, strings.Join(missing, ", "))
	}

	if (c.SMTPAddr == "") != (c.SMTPFrom == "") {
		return fmt.Errorf("SMTP_ADDR and SMTP_FROM must both be set or both be empty")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
