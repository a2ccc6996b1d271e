package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/0xmhha/supplyscan/internal/constants"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for supplyscan
type Config struct {
	RPC    RPCConfig    `yaml:"rpc"`
	Scan   ScanConfig   `yaml:"scan"`
	Cache  CacheConfig  `yaml:"cache"`
	Output OutputConfig `yaml:"output"`
	Log    LogConfig    `yaml:"log"`
}

// RPCConfig holds connection manager configuration
type RPCConfig struct {
	// Endpoints is the ordered list of candidate node endpoints
	Endpoints []string `yaml:"endpoints"`
	// Timeout is the per-call RPC timeout
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of consecutive failures on one endpoint
	// before rotating to the next
	MaxRetries int `yaml:"max_retries"`
	// RetryDelay is the fixed delay between retries on the same endpoint
	RetryDelay time.Duration `yaml:"retry_delay"`
	// RateLimit is the outbound requests-per-second limit
	RateLimit float64 `yaml:"rate_limit"`
	// RateBurst is the rate limiter burst size
	RateBurst int `yaml:"rate_burst"`
}

// ScanConfig holds event fetcher configuration
type ScanConfig struct {
	// PoolAddress is the lending pool contract emitting Supply events
	PoolAddress string `yaml:"pool_address"`
	// ReserveAddress is the token whose Supply events are collected
	ReserveAddress string `yaml:"reserve_address"`
	// ReserveDecimals is the token's decimal precision
	ReserveDecimals int `yaml:"reserve_decimals"`
	// TargetEvents is the number of events to accumulate before stopping
	TargetEvents int `yaml:"target_events"`
	// BlocksPerBatch is the block window width per log query
	BlocksPerBatch uint64 `yaml:"blocks_per_batch"`
	// MaxBatchAttempts caps failed batch queries for one scan
	MaxBatchAttempts int `yaml:"max_batch_attempts"`
	// EnrichTimestamps enables block timestamp resolution after the scan
	EnrichTimestamps bool `yaml:"enrich_timestamps"`
}

// CacheConfig holds block timestamp cache configuration
type CacheConfig struct {
	// Enabled turns the persistent timestamp cache on
	Enabled bool `yaml:"enabled"`
	// Path is the pebble database directory
	Path string `yaml:"path"`
}

// OutputConfig holds output artifact configuration
type OutputConfig struct {
	// EventsCSV is the path for the raw events table
	EventsCSV string `yaml:"events_csv"`
	// SummaryCSV is the path for the top suppliers table
	SummaryCSV string `yaml:"summary_csv"`
	// TopSuppliers is the number of rows in the summary table
	TopSuppliers int `yaml:"top_suppliers"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults sets default values for the configuration
func (c *Config) SetDefaults() {
	// RPC defaults
	if c.RPC.Timeout == 0 {
		c.RPC.Timeout = constants.DefaultQueryTimeout
	}
	if c.RPC.MaxRetries == 0 {
		c.RPC.MaxRetries = constants.DefaultMaxRetries
	}
	if c.RPC.RetryDelay == 0 {
		c.RPC.RetryDelay = constants.DefaultRetryDelay
	}
	if c.RPC.RateLimit == 0 {
		c.RPC.RateLimit = constants.DefaultRateLimitPerSecond
	}
	if c.RPC.RateBurst == 0 {
		c.RPC.RateBurst = constants.DefaultRateLimitBurst
	}

	// Scan defaults
	if c.Scan.PoolAddress == "" {
		c.Scan.PoolAddress = constants.AaveV3PoolAddress
	}
	if c.Scan.ReserveAddress == "" {
		c.Scan.ReserveAddress = constants.USDCAddress
	}
	if c.Scan.ReserveDecimals == 0 {
		c.Scan.ReserveDecimals = constants.USDCDecimals
	}
	if c.Scan.TargetEvents == 0 {
		c.Scan.TargetEvents = constants.DefaultTargetEvents
	}
	if c.Scan.BlocksPerBatch == 0 {
		c.Scan.BlocksPerBatch = constants.DefaultBlocksPerBatch
	}
	if c.Scan.MaxBatchAttempts == 0 {
		c.Scan.MaxBatchAttempts = constants.DefaultMaxBatchAttempts
	}

	// Output defaults
	if c.Output.EventsCSV == "" {
		c.Output.EventsCSV = constants.DefaultEventsCSV
	}
	if c.Output.SummaryCSV == "" {
		c.Output.SummaryCSV = constants.DefaultSummaryCSV
	}
	if c.Output.TopSuppliers == 0 {
		c.Output.TopSuppliers = constants.DefaultTopSuppliers
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
}

// LoadFromEnv loads configuration from environment variables
// Environment variables take precedence over file configuration
func (c *Config) LoadFromEnv() error {
	if endpoints := os.Getenv("SUPPLYSCAN_RPC_ENDPOINTS"); endpoints != "" {
		c.RPC.Endpoints = SplitList(endpoints)
	}
	if timeout := os.Getenv("SUPPLYSCAN_RPC_TIMEOUT"); timeout != "" {
		duration, err := time.ParseDuration(timeout)
		if err != nil {
			return fmt.Errorf("invalid SUPPLYSCAN_RPC_TIMEOUT: %w", err)
		}
		c.RPC.Timeout = duration
	}
	if maxRetries := os.Getenv("SUPPLYSCAN_RPC_MAX_RETRIES"); maxRetries != "" {
		val, err := strconv.Atoi(maxRetries)
		if err != nil {
			return fmt.Errorf("invalid SUPPLYSCAN_RPC_MAX_RETRIES: %w", err)
		}
		c.RPC.MaxRetries = val
	}
	if retryDelay := os.Getenv("SUPPLYSCAN_RPC_RETRY_DELAY"); retryDelay != "" {
		duration, err := time.ParseDuration(retryDelay)
		if err != nil {
			return fmt.Errorf("invalid SUPPLYSCAN_RPC_RETRY_DELAY: %w", err)
		}
		c.RPC.RetryDelay = duration
	}

	if poolAddr := os.Getenv("SUPPLYSCAN_POOL_ADDRESS"); poolAddr != "" {
		c.Scan.PoolAddress = poolAddr
	}
	if reserveAddr := os.Getenv("SUPPLYSCAN_RESERVE_ADDRESS"); reserveAddr != "" {
		c.Scan.ReserveAddress = reserveAddr
	}
	if target := os.Getenv("SUPPLYSCAN_TARGET_EVENTS"); target != "" {
		val, err := strconv.Atoi(target)
		if err != nil {
			return fmt.Errorf("invalid SUPPLYSCAN_TARGET_EVENTS: %w", err)
		}
		c.Scan.TargetEvents = val
	}
	if batch := os.Getenv("SUPPLYSCAN_BLOCKS_PER_BATCH"); batch != "" {
		val, err := strconv.ParseUint(batch, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid SUPPLYSCAN_BLOCKS_PER_BATCH: %w", err)
		}
		c.Scan.BlocksPerBatch = val
	}
	if enrich := os.Getenv("SUPPLYSCAN_ENRICH_TIMESTAMPS"); enrich != "" {
		val, err := strconv.ParseBool(enrich)
		if err != nil {
			return fmt.Errorf("invalid SUPPLYSCAN_ENRICH_TIMESTAMPS: %w", err)
		}
		c.Scan.EnrichTimestamps = val
	}

	if cacheEnabled := os.Getenv("SUPPLYSCAN_CACHE_ENABLED"); cacheEnabled != "" {
		val, err := strconv.ParseBool(cacheEnabled)
		if err != nil {
			return fmt.Errorf("invalid SUPPLYSCAN_CACHE_ENABLED: %w", err)
		}
		c.Cache.Enabled = val
	}
	if cachePath := os.Getenv("SUPPLYSCAN_CACHE_PATH"); cachePath != "" {
		c.Cache.Path = cachePath
	}

	if eventsCSV := os.Getenv("SUPPLYSCAN_EVENTS_CSV"); eventsCSV != "" {
		c.Output.EventsCSV = eventsCSV
	}
	if summaryCSV := os.Getenv("SUPPLYSCAN_SUMMARY_CSV"); summaryCSV != "" {
		c.Output.SummaryCSV = summaryCSV
	}

	if level := os.Getenv("SUPPLYSCAN_LOG_LEVEL"); level != "" {
		c.Log.Level = level
	}
	if format := os.Getenv("SUPPLYSCAN_LOG_FORMAT"); format != "" {
		c.Log.Format = format
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if len(c.RPC.Endpoints) == 0 {
		return fmt.Errorf("at least one RPC endpoint is required")
	}
	for _, endpoint := range c.RPC.Endpoints {
		if strings.TrimSpace(endpoint) == "" {
			return fmt.Errorf("RPC endpoint cannot be blank")
		}
	}
	if c.RPC.Timeout <= 0 {
		return fmt.Errorf("RPC timeout must be positive")
	}
	if c.RPC.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be positive")
	}
	if c.RPC.RetryDelay <= 0 {
		return fmt.Errorf("retry delay must be positive")
	}

	if c.Scan.PoolAddress == "" {
		return fmt.Errorf("pool address is required")
	}
	if c.Scan.ReserveAddress == "" {
		return fmt.Errorf("reserve address is required")
	}
	if c.Scan.ReserveDecimals < 0 {
		return fmt.Errorf("reserve decimals cannot be negative")
	}
	if c.Scan.TargetEvents <= 0 {
		return fmt.Errorf("target events must be positive")
	}
	if c.Scan.BlocksPerBatch == 0 {
		return fmt.Errorf("blocks per batch must be positive")
	}
	if c.Scan.MaxBatchAttempts <= 0 {
		return fmt.Errorf("max batch attempts must be positive")
	}

	if c.Cache.Enabled && c.Cache.Path == "" {
		return fmt.Errorf("cache path is required when cache is enabled")
	}

	if c.Output.EventsCSV == "" {
		return fmt.Errorf("events CSV path is required")
	}
	if c.Output.SummaryCSV == "" {
		return fmt.Errorf("summary CSV path is required")
	}
	if c.Output.TopSuppliers <= 0 {
		return fmt.Errorf("top suppliers count must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.Log.Level] {
		return fmt.Errorf("invalid log level %q, must be one of: debug, info, warn, error", c.Log.Level)
	}

	validLogFormats := map[string]bool{
		"json":    true,
		"console": true,
	}
	if !validLogFormats[c.Log.Format] {
		return fmt.Errorf("invalid log format %q, must be one of: json, console", c.Log.Format)
	}

	return nil
}

// Load is a convenience method that loads configuration in the following order:
// 1. Load from file (if provided)
// 2. Load from environment variables (override file)
// 3. Set defaults for any missing values
// 4. Validate
func Load(configFile string) (*Config, error) {
	cfg := &Config{}

	if configFile != "" {
		if err := cfg.LoadFromFile(configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// SplitList splits a comma-separated list, trimming blanks
func SplitList(raw string) []string {
	items := make([]string, 0)
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}
