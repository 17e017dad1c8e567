// Package config loads the warden configuration: an explicit object
// constructed once at service start and passed by reference to every
// component that needs it. There is no ambient global state; components
// never reach for process-wide defaults.
//
// Values come from an optional YAML file (WARDEN_CONFIG_FILE) with
// environment variables taking precedence, mirroring how deployments
// layer their settings.
package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all warden configuration.
type Config struct {
	// Observability
	LogLevel       string `yaml:"log_level"`
	MetricsEnabled bool   `yaml:"metrics_enabled"`

	// Access controller decision cache
	DecisionCacheSize int           `yaml:"decision_cache_size"`
	DecisionCacheTTL  time.Duration `yaml:"decision_cache_ttl"`

	// Anomaly monitor
	AnomalyThreshold int           `yaml:"anomaly_threshold"`
	AnomalyWindow    time.Duration `yaml:"anomaly_window"`

	// Retention policies per log kind
	Retention RetentionConfig `yaml:"retention"`

	// Encrypted audit log key, hex-encoded, 32 bytes decoded. Owned by
	// the deployment; never embedded in source.
	EncryptionKeyHex string `yaml:"encryption_key"`

	// Background job schedules (cron expressions)
	AnomalySweepSchedule     string `yaml:"anomaly_sweep_schedule"`
	ComplianceReportSchedule string `yaml:"compliance_report_schedule"`
	RetentionSchedule        string `yaml:"retention_schedule"`
}

// RetentionConfig carries the per-kind retention windows in days.
type RetentionConfig struct {
	Audit      KindRetention `yaml:"audit"`
	Security   KindRetention `yaml:"security"`
	Access     KindRetention `yaml:"access"`
	Compliance KindRetention `yaml:"compliance"`
}

// KindRetention is the policy shape for one log kind.
type KindRetention struct {
	RetentionDays    int `yaml:"retention_days"`
	ArchiveAfterDays int `yaml:"archive_after_days"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel:          "info",
		MetricsEnabled:    true,
		DecisionCacheSize: 4096,
		DecisionCacheTTL:  30 * time.Second,
		AnomalyThreshold:  50,
		AnomalyWindow:     time.Hour,
		Retention: RetentionConfig{
			Audit:      KindRetention{RetentionDays: 365, ArchiveAfterDays: 90},
			Security:   KindRetention{RetentionDays: 365, ArchiveAfterDays: 90},
			Access:     KindRetention{RetentionDays: 180, ArchiveAfterDays: 30},
			Compliance: KindRetention{RetentionDays: 730, ArchiveAfterDays: 365},
		},
		AnomalySweepSchedule:     "*/15 * * * *",
		ComplianceReportSchedule: "5 0 * * *",
		RetentionSchedule:        "30 1 * * *",
	}
}

// Load builds the configuration from defaults, then the YAML file named
// by WARDEN_CONFIG_FILE (if set), then environment overrides, and
// validates the result.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("WARDEN_CONFIG_FILE"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.LogLevel = getEnv("WARDEN_LOG_LEVEL", c.LogLevel)
	c.MetricsEnabled = getEnvBool("WARDEN_METRICS_ENABLED", c.MetricsEnabled)
	c.DecisionCacheSize = getEnvInt("WARDEN_DECISION_CACHE_SIZE", c.DecisionCacheSize)
	c.DecisionCacheTTL = getEnvDuration("WARDEN_DECISION_CACHE_TTL", c.DecisionCacheTTL)
	c.AnomalyThreshold = getEnvInt("WARDEN_ANOMALY_THRESHOLD", c.AnomalyThreshold)
	c.AnomalyWindow = getEnvDuration("WARDEN_ANOMALY_WINDOW", c.AnomalyWindow)
	c.EncryptionKeyHex = getEnv("WARDEN_ENCRYPTION_KEY", c.EncryptionKeyHex)
	c.AnomalySweepSchedule = getEnv("WARDEN_ANOMALY_SWEEP_SCHEDULE", c.AnomalySweepSchedule)
	c.ComplianceReportSchedule = getEnv("WARDEN_COMPLIANCE_REPORT_SCHEDULE", c.ComplianceReportSchedule)
	c.RetentionSchedule = getEnv("WARDEN_RETENTION_SCHEDULE", c.RetentionSchedule)

	c.Retention.Audit.RetentionDays = getEnvInt("WARDEN_AUDIT_RETENTION_DAYS", c.Retention.Audit.RetentionDays)
	c.Retention.Audit.ArchiveAfterDays = getEnvInt("WARDEN_AUDIT_ARCHIVE_AFTER_DAYS", c.Retention.Audit.ArchiveAfterDays)
	c.Retention.Security.RetentionDays = getEnvInt("WARDEN_SECURITY_RETENTION_DAYS", c.Retention.Security.RetentionDays)
	c.Retention.Security.ArchiveAfterDays = getEnvInt("WARDEN_SECURITY_ARCHIVE_AFTER_DAYS", c.Retention.Security.ArchiveAfterDays)
	c.Retention.Access.RetentionDays = getEnvInt("WARDEN_ACCESS_RETENTION_DAYS", c.Retention.Access.RetentionDays)
	c.Retention.Access.ArchiveAfterDays = getEnvInt("WARDEN_ACCESS_ARCHIVE_AFTER_DAYS", c.Retention.Access.ArchiveAfterDays)
	c.Retention.Compliance.RetentionDays = getEnvInt("WARDEN_COMPLIANCE_RETENTION_DAYS", c.Retention.Compliance.RetentionDays)
	c.Retention.Compliance.ArchiveAfterDays = getEnvInt("WARDEN_COMPLIANCE_ARCHIVE_AFTER_DAYS", c.Retention.Compliance.ArchiveAfterDays)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if c.AnomalyThreshold <= 0 {
		return fmt.Errorf("anomaly threshold must be positive, got %d", c.AnomalyThreshold)
	}
	if c.AnomalyWindow <= 0 {
		return fmt.Errorf("anomaly window must be positive, got %s", c.AnomalyWindow)
	}
	if c.DecisionCacheSize < 0 {
		return fmt.Errorf("decision cache size must not be negative, got %d", c.DecisionCacheSize)
	}
	for kind, r := range map[string]KindRetention{
		"audit":      c.Retention.Audit,
		"security":   c.Retention.Security,
		"access":     c.Retention.Access,
		"compliance": c.Retention.Compliance,
	} {
		if r.RetentionDays <= 0 {
			return fmt.Errorf("%s retention days must be positive, got %d", kind, r.RetentionDays)
		}
		if r.ArchiveAfterDays < 0 || r.ArchiveAfterDays >= r.RetentionDays {
			return fmt.Errorf("%s archive-after days must fall inside the retention window", kind)
		}
	}
	if c.EncryptionKeyHex != "" {
		if _, err := c.EncryptionKey(); err != nil {
			return err
		}
	}
	return nil
}

// EncryptionKey decodes the configured encryption key. An empty setting
// returns nil; the encrypted log is then left unconfigured.
func (c *Config) EncryptionKey() ([]byte, error) {
	if c.EncryptionKeyHex == "" {
		return nil, nil
	}
	key, err := hex.DecodeString(c.EncryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("encryption key is not valid hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must decode to 32 bytes, got %d", len(key))
	}
	return key, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
