package infra

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the full execution-core configuration. Loaded once at
// startup, validated, then treated as immutable.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Trading struct {
		Mode string `yaml:"mode"` // "paper" or "live"
	} `yaml:"trading"`

	Exchange struct {
		Endpoint         string   `yaml:"endpoint"` // Must be https:// (order REST).
		FeedURL          string   `yaml:"feed_url"` // Must be wss:// (market data).
		APIKey           string   `yaml:"api_key"`
		APISecret        string   `yaml:"api_secret"`
		Passphrase       string   `yaml:"passphrase"`
		Symbols          []string `yaml:"symbols"`
		RequestTimeoutMS int      `yaml:"request_timeout_ms"`
	} `yaml:"exchange"`

	Risk struct {
		MaxOrderNotionalMicros    int64   `yaml:"max_order_notional_micros"`
		MaxPositionNotionalMicros int64   `yaml:"max_position_notional_micros"`
		MaxTotalNotionalMicros    int64   `yaml:"max_total_notional_micros"`
		MaxOpenPositions          int64   `yaml:"max_open_positions"`
		MaxDailyLossMicros        int64   `yaml:"max_daily_loss_micros"`
		MaxSlippageBps            float64 `yaml:"max_slippage_bps"`
	} `yaml:"risk"`

	RateLimit struct {
		Burst     int     `yaml:"burst"`
		PerSecond float64 `yaml:"per_second"`
		MaxWaitMS int     `yaml:"max_wait_ms"`
	} `yaml:"rate_limit"`

	Retry struct {
		MaxAttempts int     `yaml:"max_attempts"`
		BaseDelayMS int     `yaml:"base_delay_ms"`
		MaxDelayMS  int     `yaml:"max_delay_ms"`
		JitterFrac  float64 `yaml:"jitter_frac"`
	} `yaml:"retry"`

	Breaker struct {
		FailureThreshold int `yaml:"failure_threshold"`
		CoolDownMS       int `yaml:"cool_down_ms"`
	} `yaml:"breaker"`

	Book struct {
		MaxLevels     int `yaml:"max_levels"`
		SnapshotDepth int `yaml:"snapshot_depth"`
	} `yaml:"book"`

	Logging struct {
		Level string `yaml:"level"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the config file, applies environment
// overrides for secrets, and fails fast on invalid values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Validate checks configuration validity, including the construction-time
// transport security checks: encrypted endpoints and non-empty credentials.
func (c *Config) Validate() error {
	mode := strings.ToLower(c.Trading.Mode)
	if mode != "paper" && mode != "live" {
		return fmt.Errorf("unknown trading mode: %q", c.Trading.Mode)
	}

	if mode == "live" {
		if !strings.HasPrefix(c.Exchange.Endpoint, "https://") {
			return fmt.Errorf("exchange endpoint must use an encrypted channel: %s", c.Exchange.Endpoint)
		}
		if c.Exchange.APIKey == "" || c.Exchange.APISecret == "" {
			return fmt.Errorf("exchange credentials are required in live mode")
		}
	}

	if c.Exchange.FeedURL != "" && !strings.HasPrefix(c.Exchange.FeedURL, "wss://") {
		return fmt.Errorf("feed URL must use an encrypted channel: %s", c.Exchange.FeedURL)
	}
	if len(c.Exchange.Symbols) == 0 {
		return fmt.Errorf("at least one symbol is required")
	}

	if c.Risk.MaxOrderNotionalMicros <= 0 || c.Risk.MaxTotalNotionalMicros <= 0 ||
		c.Risk.MaxPositionNotionalMicros <= 0 {
		return fmt.Errorf("risk notional limits must be positive")
	}
	if c.Risk.MaxOpenPositions <= 0 {
		return fmt.Errorf("max open positions must be positive")
	}
	if c.Risk.MaxDailyLossMicros <= 0 {
		return fmt.Errorf("max daily loss must be positive")
	}

	if c.RateLimit.Burst <= 0 || c.RateLimit.PerSecond <= 0 {
		return fmt.Errorf("rate limit burst and refill rate must be positive")
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be positive")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker failure threshold must be positive")
	}

	return nil
}

// RetryPolicy materializes the configured retry section.
func (c *Config) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: c.Retry.MaxAttempts,
		BaseDelay:   time.Duration(c.Retry.BaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
		JitterFrac:  c.Retry.JitterFrac,
	}
}

// BreakerConfig materializes the configured breaker section.
func (c *Config) BreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		FailureThreshold: c.Breaker.FailureThreshold,
		CoolDown:         time.Duration(c.Breaker.CoolDownMS) * time.Millisecond,
	}
}

// IsLive reports whether real-money trading is configured.
func (c *Config) IsLive() bool {
	return strings.ToLower(c.Trading.Mode) == "live"
}

// overrideWithEnv applies environment variables over file values.
// Rule #5: env vars outrank the config file for secrets.
func overrideWithEnv(cfg *Config) {
	if cfg.Exchange.APISecret != "" {
		fmt.Println("⚠️  SECURITY WARNING: API secret found in config file.")
		fmt.Println("   Recommendation: use environment variables instead:")
		fmt.Println("   - EXEC_API_KEY, EXEC_API_SECRET, EXEC_API_PASSPHRASE")
	}

	if key := os.Getenv("EXEC_API_KEY"); key != "" {
		cfg.Exchange.APIKey = key
	}
	if secret := os.Getenv("EXEC_API_SECRET"); secret != "" {
		cfg.Exchange.APISecret = secret
	}
	if pass := os.Getenv("EXEC_API_PASSPHRASE"); pass != "" {
		cfg.Exchange.Passphrase = pass
	}
}
