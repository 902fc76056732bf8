// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Dashboard  DashboardConfig  `yaml:"dashboard"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	Logging    LoggingConfig    `yaml:"logging"`
	Web        WebConfig        `yaml:"web"`
	Servers    []ServerEntry    `yaml:"servers"`
}

type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IngestRPS    float64       `yaml:"ingest_rps"`
	IngestBurst  int           `yaml:"ingest_burst"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type DashboardConfig struct {
	OfflineTimeout  time.Duration `yaml:"offline_timeout"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	StorageTimeout  time.Duration `yaml:"storage_timeout"`
}

type PrometheusConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MetricsPath string `yaml:"metrics_path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type WebConfig struct {
	Root string `yaml:"root"`
}

// ServerEntry seeds the server registry at startup. This is the
// administrative provisioning path; the ingest and query handlers never
// write these rows.
type ServerEntry struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Hostname string `yaml:"hostname"`
	APIKey   string `yaml:"api_key"`
	Location string `yaml:"location"`
	Provider string `yaml:"host_provider"`
	Type     string `yaml:"server_type"`
	Active   bool   `yaml:"active"`
}

func Load(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 10 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 10 * time.Second
	}
	if cfg.Server.IngestRPS == 0 {
		cfg.Server.IngestRPS = 5
	}
	if cfg.Server.IngestBurst == 0 {
		cfg.Server.IngestBurst = 10
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "./data/dashboard.db"
	}

	if cfg.Dashboard.OfflineTimeout == 0 {
		cfg.Dashboard.OfflineTimeout = 5 * time.Minute
	}
	if cfg.Dashboard.RefreshInterval == 0 {
		cfg.Dashboard.RefreshInterval = 10 * time.Second
	}
	if cfg.Dashboard.StorageTimeout == 0 {
		cfg.Dashboard.StorageTimeout = 5 * time.Second
	}

	if cfg.Prometheus.MetricsPath == "" {
		cfg.Prometheus.MetricsPath = "/metrics"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}

	if cfg.Web.Root == "" {
		cfg.Web.Root = "web/index.html"
	}
}

func validate(cfg *Config) error {
	if cfg.Dashboard.OfflineTimeout <= 0 {
		return fmt.Errorf("dashboard.offline_timeout must be positive")
	}
	if cfg.Dashboard.StorageTimeout <= 0 {
		return fmt.Errorf("dashboard.storage_timeout must be positive")
	}
	if cfg.Server.IngestRPS < 0 {
		return fmt.Errorf("server.ingest_rps cannot be negative")
	}

	seenIDs := make(map[string]bool)
	seenHosts := make(map[string]bool)
	for _, entry := range cfg.Servers {
		if entry.Hostname == "" {
			return fmt.Errorf("server entry %q is missing a hostname", entry.Name)
		}
		if entry.APIKey == "" {
			return fmt.Errorf("server entry %q is missing an api_key", entry.Hostname)
		}
		if entry.ID != "" {
			if seenIDs[entry.ID] {
				return fmt.Errorf("duplicate server ID: %s", entry.ID)
			}
			seenIDs[entry.ID] = true
		}
		if seenHosts[entry.Hostname] {
			return fmt.Errorf("duplicate server hostname: %s", entry.Hostname)
		}
		seenHosts[entry.Hostname] = true
	}

	return nil
}
