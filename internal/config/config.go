package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Entities  []string  `yaml:"entities"`
	Fetch     Fetch     `yaml:"fetch"`
	Analysis  Analysis  `yaml:"analysis"`
	Retention Retention `yaml:"retention"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Output    Output    `yaml:"output"`
	Server    Server    `yaml:"server"`
	Logging   Logging   `yaml:"logging"`
}

type Fetch struct {
	Source            string `yaml:"source"` // "api" or "feeds"
	APIURL            string `yaml:"api_url"`
	APITokenEnv       string `yaml:"api_token_env"`
	MaxItemsPerEntity int    `yaml:"max_items_per_entity"`
	Feeds             []Feed `yaml:"feeds"`
}

// Feed maps an entity to the feed URL its items are read from when
// fetch.source is "feeds".
type Feed struct {
	Entity string `yaml:"entity"`
	URL    string `yaml:"url"`
}

// Analysis holds the tunable analysis thresholds. Downstream report
// consumers assume the defaults; change them only together.
type Analysis struct {
	SentimentThreshold float64 `yaml:"sentiment_threshold"`
	TopK               int     `yaml:"top_k"`
	MinAvgEngagement   float64 `yaml:"min_avg_engagement"`
	MinMediaPercentage float64 `yaml:"min_media_percentage"`
	MaxNeutralRatio    float64 `yaml:"max_neutral_ratio"`
	ClassifierURL      string  `yaml:"classifier_url"`
}

type Retention struct {
	DaysToKeep int    `yaml:"days_to_keep"`
	Schedule   string `yaml:"schedule"` // cron expression, empty disables scheduled sweeps
}

type Pipeline struct {
	Workers  int    `yaml:"workers"`
	Schedule string `yaml:"schedule"` // cron expression for scheduled runs
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for pulsetrack.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "pulsetrack")
}

// DataDir returns the XDG data directory for pulsetrack.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "pulsetrack")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/pulsetrack/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'pulsetrack init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Fetch: Fetch{
			Source:            "api",
			APITokenEnv:       "PULSETRACK_API_TOKEN",
			MaxItemsPerEntity: 100,
		},
		Analysis: Analysis{
			SentimentThreshold: 0.1,
			TopK:               5,
			MinAvgEngagement:   10,
			MinMediaPercentage: 30,
			MaxNeutralRatio:    0.70,
		},
		Retention: Retention{DaysToKeep: 30},
		Pipeline:  Pipeline{Workers: 4},
		Server:    Server{Port: 8000},
		Logging:   Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Fetch.MaxItemsPerEntity <= 0 {
		cfg.Fetch.MaxItemsPerEntity = 100
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 4
	}
	if cfg.Retention.DaysToKeep <= 0 {
		cfg.Retention.DaysToKeep = 30
	}

	return cfg, nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

// FeedURL returns the configured feed URL for an entity, or empty.
func (c *Config) FeedURL(entity string) string {
	for _, f := range c.Fetch.Feeds {
		if f.Entity == entity {
			return f.URL
		}
	}
	return ""
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
