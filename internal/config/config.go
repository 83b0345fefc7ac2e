package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config contains all runtime settings.
// Load order: defaults -> YAML (optional) -> env overrides.
type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	AdminKey   string `yaml:"admin_key"`

	Database struct {
		Driver string `yaml:"driver"` // sqlite3, postgres
		DSN    string `yaml:"dsn"`
	} `yaml:"database"`

	// Logging configuration
	Logging struct {
		Level      string `yaml:"level"`        // trace, debug, info, warn, error, fatal, panic
		Format     string `yaml:"format"`       // json, console
		Output     string `yaml:"output"`       // stdout, file, syslog, multi
		FilePath   string `yaml:"file_path"`    // path to log file (if output=file or multi)
		MaxSizeMB  int    `yaml:"max_size_mb"`  // max size before rotation
		MaxBackups int    `yaml:"max_backups"`  // max number of old log files
		MaxAgeDays int    `yaml:"max_age_days"` // max age in days
		Compress   bool   `yaml:"compress"`     // compress rotated files
		SyslogAddr string `yaml:"syslog_addr"`  // syslog server address (if output=syslog or multi)
		SyslogNet  string `yaml:"syslog_net"`   // tcp, udp, or empty for local
	} `yaml:"logging"`

	// OIDC is off by default; API keys always work as a fallback.
	OIDC struct {
		Enabled     bool   `yaml:"enabled"`
		IssuerURL   string `yaml:"issuer_url"`
		ClientID    string `yaml:"client_id"`
		Audience    string `yaml:"audience"`
		TenantClaim string `yaml:"tenant_claim"`
		AdminRole   string `yaml:"admin_role"`
	} `yaml:"oidc"`

	Webhooks struct {
		TimeoutSec int    `yaml:"timeout_sec"`
		BackoffMS  []int  `yaml:"backoff_ms"`
		UserAgent  string `yaml:"user_agent"`
		// ShutdownGraceSec bounds how long in-flight deliveries may run after SIGTERM.
		ShutdownGraceSec int `yaml:"shutdown_grace_sec"`
	} `yaml:"webhooks"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
}

// Load reads YAML if path is non-empty, then applies env overrides.
func Load(path string) (Config, error) {
	cfg := defaults()

	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	}

	applyEnv(&cfg)
	return cfg, cfg.Validate()
}

func defaults() Config {
	var c Config
	c.ListenAddr = ":8080"

	c.Database.Driver = "sqlite3"
	c.Database.DSN = "/data/db/media-webhooks.db"

	// Logging defaults
	c.Logging.Level = "info"
	c.Logging.Format = "json"
	c.Logging.Output = "stdout"
	c.Logging.FilePath = "/var/log/media-webhooks/app.log"
	c.Logging.MaxSizeMB = 100
	c.Logging.MaxBackups = 3
	c.Logging.MaxAgeDays = 28
	c.Logging.Compress = true
	c.Logging.SyslogAddr = ""
	c.Logging.SyslogNet = "udp"

	c.Webhooks.TimeoutSec = 30
	c.Webhooks.BackoffMS = []int{1000, 5000}
	c.Webhooks.UserAgent = "media-webhooks/1.0"
	c.Webhooks.ShutdownGraceSec = 40

	c.OIDC.Enabled = false
	c.OIDC.TenantClaim = "tenant_id"

	c.Metrics.Enabled = true
	c.Metrics.Path = "/metrics"
	return c
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("%w: database.driver %q", ErrInvalidConfig, c.Database.Driver)
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		return fmt.Errorf("%w: database.dsn is required", ErrInvalidConfig)
	}
	if c.Webhooks.TimeoutSec <= 0 {
		return fmt.Errorf("%w: webhooks.timeout_sec must be positive", ErrInvalidConfig)
	}
	if len(c.Webhooks.BackoffMS) != 2 {
		return fmt.Errorf("%w: webhooks.backoff_ms needs exactly 2 entries, got %d", ErrInvalidConfig, len(c.Webhooks.BackoffMS))
	}
	for _, ms := range c.Webhooks.BackoffMS {
		if ms < 0 {
			return fmt.Errorf("%w: webhooks.backoff_ms entries must not be negative", ErrInvalidConfig)
		}
	}
	if c.OIDC.Enabled && strings.TrimSpace(c.OIDC.IssuerURL) == "" {
		return fmt.Errorf("%w: oidc.issuer_url is required when oidc is enabled", ErrInvalidConfig)
	}
	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("%w: metrics.path must start with /", ErrInvalidConfig)
	}
	return nil
}

// Timeout is the per-attempt HTTP timeout.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Webhooks.TimeoutSec) * time.Second
}

// Backoff is the wait before each retry. Validate pins it to two entries,
// so a delivery sequence is always three attempts.
func (c Config) Backoff() []time.Duration {
	out := make([]time.Duration, len(c.Webhooks.BackoffMS))
	for i, ms := range c.Webhooks.BackoffMS {
		out[i] = time.Duration(ms) * time.Millisecond
	}
	return out
}

func (c Config) ShutdownGrace() time.Duration {
	return time.Duration(c.Webhooks.ShutdownGraceSec) * time.Second
}

func applyEnv(cfg *Config) {
	setStr(&cfg.ListenAddr, "MW_LISTEN_ADDR")
	setStr(&cfg.AdminKey, "MW_ADMIN_KEY")

	setStr(&cfg.Database.Driver, "MW_DB_DRIVER")
	setStr(&cfg.Database.DSN, "MW_DB_DSN")

	if v := os.Getenv("MW_WEBHOOK_TIMEOUT_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Webhooks.TimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("MW_WEBHOOK_BACKOFF_MS")); v != "" {
		if b, ok := parseIntList(v); ok {
			cfg.Webhooks.BackoffMS = b
		}
	}
	setStr(&cfg.Webhooks.UserAgent, "MW_WEBHOOK_USER_AGENT")
	if v := os.Getenv("MW_WEBHOOK_SHUTDOWN_GRACE_SEC"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Webhooks.ShutdownGraceSec = n
		}
	}

	if v := os.Getenv("MW_OIDC_ENABLED"); v != "" {
		cfg.OIDC.Enabled = parseBool(v)
	}
	setStr(&cfg.OIDC.IssuerURL, "MW_OIDC_ISSUER_URL")
	setStr(&cfg.OIDC.ClientID, "MW_OIDC_CLIENT_ID")
	setStr(&cfg.OIDC.Audience, "MW_OIDC_AUDIENCE")
	setStr(&cfg.OIDC.TenantClaim, "MW_OIDC_TENANT_CLAIM")
	setStr(&cfg.OIDC.AdminRole, "MW_OIDC_ADMIN_ROLE")

	if v := os.Getenv("MW_METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	setStr(&cfg.Metrics.Path, "MW_METRICS_PATH")

	// Logging configuration
	setStr(&cfg.Logging.Level, "MW_LOG_LEVEL")
	setStr(&cfg.Logging.Format, "MW_LOG_FORMAT")
	setStr(&cfg.Logging.Output, "MW_LOG_OUTPUT")
	setStr(&cfg.Logging.FilePath, "MW_LOG_FILE_PATH")
	setStr(&cfg.Logging.SyslogAddr, "MW_LOG_SYSLOG_ADDR")
	setStr(&cfg.Logging.SyslogNet, "MW_LOG_SYSLOG_NET")

	if v := os.Getenv("MW_LOG_MAX_SIZE_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Logging.MaxSizeMB = n
		}
	}
	if v := os.Getenv("MW_LOG_MAX_BACKUPS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Logging.MaxBackups = n
		}
	}
	if v := os.Getenv("MW_LOG_MAX_AGE_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Logging.MaxAgeDays = n
		}
	}
	if v := os.Getenv("MW_LOG_COMPRESS"); v != "" {
		cfg.Logging.Compress = parseBool(v)
	}
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func parseBool(v string) bool {
	return v == "1" || strings.ToLower(v) == "true"
}

// parseIntList parses "1000,5000". An unparsable list is ignored as a whole.
func parseIntList(v string) ([]int, bool) {
	parts := strings.Split(v, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil || n < 0 {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
