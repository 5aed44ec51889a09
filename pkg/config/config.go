package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

var GlobalConfig *Config

// Config global configuration
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Redis        RedisConfig        `yaml:"redis"`
	MySQL        MySQLConfig        `yaml:"mysql"`
	Queue        QueueConfig        `yaml:"queue"`
	Logger       LoggerConfig       `yaml:"logger"`
	Providers    ProvidersConfig    `yaml:"providers"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Simulation   SimulationConfig   `yaml:"simulation"`
	Events       EventsConfig       `yaml:"events"`
}

// ServerConfig server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Mode string `yaml:"mode"` // debug, release, test
}

// RedisConfig Redis configuration
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// MySQLConfig MySQL configuration
type MySQLConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// QueueConfig phase queue configuration. Concurrency and Name only apply to asynq.
type QueueConfig struct {
	Concurrency int           `yaml:"concurrency"`
	Name        string        `yaml:"name"`
	MaxRetry    int           `yaml:"max_retry"`
	RetryDelay  time.Duration `yaml:"retry_delay"`
}

// LoggerConfig logger configuration
type LoggerConfig struct {
	Level  string           `yaml:"level"`  // debug, info, warn, error
	Output string           `yaml:"output"` // console, file, both
	File   LoggerFileConfig `yaml:"file"`
}

// LoggerFileConfig logger file configuration
type LoggerFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// ProvidersConfig selects backend implementations
type ProvidersConfig struct {
	Store string `yaml:"store"` // memory, mysql
	Queue string `yaml:"queue"` // memory, asynq
}

// OrchestratorConfig query pipeline configuration.
// Phase delays are measured from submission, not from the previous phase.
type OrchestratorConfig struct {
	StartDelay    time.Duration `yaml:"start_delay"`
	ProgressDelay time.Duration `yaml:"progress_delay"`
	CompleteDelay time.Duration `yaml:"complete_delay"`
	DefaultUserID string        `yaml:"default_user_id"`
	SeedWorkers   bool          `yaml:"seed_workers"`
}

// SimulationConfig background tick configuration
type SimulationConfig struct {
	Enabled         bool          `yaml:"enabled"`
	TickInterval    time.Duration `yaml:"tick_interval"`
	DistributedLock bool          `yaml:"distributed_lock"` // requires redis
}

// EventsConfig event bus configuration
type EventsConfig struct {
	SubscriberBuffer int `yaml:"subscriber_buffer"`
	HistorySize      int `yaml:"history_size"`
}

// Default returns a configuration that runs fully in memory
func Default() *Config {
	return &Config{
		Server: ServerConfig{Port: 8080, Mode: "release"},
		Redis:  RedisConfig{Addr: "localhost:6379"},
		MySQL: MySQLConfig{
			Host:     "localhost",
			Port:     3306,
			User:     "root",
			Database: "labswarm",
		},
		Queue: QueueConfig{
			Concurrency: 10,
			Name:        "phases",
			MaxRetry:    3,
			RetryDelay:  2 * time.Second,
		},
		Logger: LoggerConfig{
			Level:  "info",
			Output: "console",
			File: LoggerFileConfig{
				Path:       "logs/labswarm.log",
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 7,
			},
		},
		Providers: ProvidersConfig{Store: "memory", Queue: "memory"},
		Orchestrator: OrchestratorConfig{
			StartDelay:    time.Second,
			ProgressDelay: 5 * time.Second,
			CompleteDelay: 10 * time.Second,
			DefaultUserID: "user",
			SeedWorkers:   true,
		},
		Simulation: SimulationConfig{
			Enabled:      true,
			TickInterval: 5 * time.Second,
		},
		Events: EventsConfig{
			SubscriberBuffer: 256,
			HistorySize:      1000,
		},
	}
}

// Init initializes configuration
func Init() error {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		return err
	}

	GlobalConfig = cfg
	return nil
}

// Load reads the YAML file at path on top of Default(). A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	validateAndApplyDefaults(cfg)
	return cfg, nil
}

// validateAndApplyDefaults replaces invalid values with defaults
func validateAndApplyDefaults(cfg *Config) {
	defaults := Default()

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		cfg.Server.Port = defaults.Server.Port
	}
	switch cfg.Server.Mode {
	case "debug", "release", "test":
	default:
		cfg.Server.Mode = defaults.Server.Mode
	}

	switch cfg.Providers.Store {
	case "memory", "mysql":
	default:
		cfg.Providers.Store = defaults.Providers.Store
	}
	switch cfg.Providers.Queue {
	case "memory", "asynq":
	default:
		cfg.Providers.Queue = defaults.Providers.Queue
	}

	if cfg.Queue.Concurrency <= 0 {
		cfg.Queue.Concurrency = defaults.Queue.Concurrency
	}
	if cfg.Queue.Name == "" {
		cfg.Queue.Name = defaults.Queue.Name
	}
	if cfg.Queue.MaxRetry < 0 {
		cfg.Queue.MaxRetry = defaults.Queue.MaxRetry
	}
	if cfg.Queue.RetryDelay <= 0 {
		cfg.Queue.RetryDelay = defaults.Queue.RetryDelay
	}

	o := &cfg.Orchestrator
	if o.StartDelay <= 0 {
		o.StartDelay = defaults.Orchestrator.StartDelay
	}
	if o.ProgressDelay <= 0 {
		o.ProgressDelay = defaults.Orchestrator.ProgressDelay
	}
	if o.CompleteDelay <= 0 {
		o.CompleteDelay = defaults.Orchestrator.CompleteDelay
	}
	// Phases must fire in start < progress < complete order
	if o.ProgressDelay <= o.StartDelay || o.CompleteDelay <= o.ProgressDelay {
		o.StartDelay = defaults.Orchestrator.StartDelay
		o.ProgressDelay = defaults.Orchestrator.ProgressDelay
		o.CompleteDelay = defaults.Orchestrator.CompleteDelay
	}
	if o.DefaultUserID == "" {
		o.DefaultUserID = defaults.Orchestrator.DefaultUserID
	}

	if cfg.Simulation.TickInterval <= 0 {
		cfg.Simulation.TickInterval = defaults.Simulation.TickInterval
	}

	if cfg.Events.SubscriberBuffer <= 0 {
		cfg.Events.SubscriberBuffer = defaults.Events.SubscriberBuffer
	}
	if cfg.Events.HistorySize <= 0 {
		cfg.Events.HistorySize = defaults.Events.HistorySize
	}

	if cfg.Logger.File.Path == "" {
		cfg.Logger.File.Path = defaults.Logger.File.Path
	}
	if cfg.Logger.File.MaxSizeMB <= 0 {
		cfg.Logger.File.MaxSizeMB = defaults.Logger.File.MaxSizeMB
	}
}
