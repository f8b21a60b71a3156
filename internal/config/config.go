// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig                `mapstructure:"app"`
	Networks  map[string]NetworkConfig `mapstructure:"networks"`
	RPC       RPCConfig                `mapstructure:"rpc"`
	Retry     RetryConfig              `mapstructure:"retry"`
	Cache     CacheConfig              `mapstructure:"cache"`
	Quote     QuoteConfig              `mapstructure:"quote"`
	Telemetry TelemetryConfig          `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	ListenPort  int    `mapstructure:"listen_port"`
	HealthPort  int    `mapstructure:"health_port"`
}

// NetworkConfig describes one supported network: its interchangeable RPC
// endpoints and the AMM contract addresses deployed on it. A network without
// a V4 state view simply produces no V4 candidates.
type NetworkConfig struct {
	ChainID     uint64   `mapstructure:"chain_id"`
	Endpoints   []string `mapstructure:"endpoints"`
	V2Factory   string   `mapstructure:"v2_factory"`
	V3Factory   string   `mapstructure:"v3_factory"`
	V4StateView string   `mapstructure:"v4_state_view"`
	V2Router    string   `mapstructure:"v2_router"`
	V3Router    string   `mapstructure:"v3_router"`
}

// RPCConfig holds gateway and batching settings.
type RPCConfig struct {
	CallTimeout       time.Duration `mapstructure:"call_timeout"`
	Selection         string        `mapstructure:"selection"` // "roundrobin" or "random"
	BatchWindow       time.Duration `mapstructure:"batch_window"`
	MaxBatchSize      int           `mapstructure:"max_batch_size"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
}

// RetryConfig holds the backoff policy applied around gateway calls.
type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	Multiplier  float64       `mapstructure:"multiplier"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// CacheConfig holds per-data-class TTLs.
type CacheConfig struct {
	TokenMetaTTL time.Duration `mapstructure:"token_meta_ttl"`
	PoolRefTTL   time.Duration `mapstructure:"pool_ref_ttl"`
	PoolStateTTL time.Duration `mapstructure:"pool_state_ttl"`
	GasPriceTTL  time.Duration `mapstructure:"gas_price_ttl"`
	RouteTTL     time.Duration `mapstructure:"route_ttl"`
	QuoteTTL     time.Duration `mapstructure:"quote_ttl"`
	ApprovalTTL  time.Duration `mapstructure:"approval_ttl"`
}

// QuoteConfig holds orchestrator limits and routing knobs.
type QuoteConfig struct {
	DefaultDeadline  time.Duration `mapstructure:"default_deadline"`
	MinDeadline      time.Duration `mapstructure:"min_deadline"`
	MaxDeadline      time.Duration `mapstructure:"max_deadline"`
	OverallTimeout   time.Duration `mapstructure:"overall_timeout"`
	MaxAmountInWei   string        `mapstructure:"max_amount_in_wei"`
	PreferredFeeTier uint32        `mapstructure:"preferred_fee_tier"`
	FeeTierBonusBps  uint32        `mapstructure:"fee_tier_bonus_bps"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("SQ")
	v.AutomaticEnv()
	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	v.BindEnv("app.name", "SQ_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "SQ_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "SQ_LOG_LEVEL", "LOG_LEVEL")
	v.BindEnv("app.listen_port", "SQ_LISTEN_PORT")

	v.BindEnv("rpc.call_timeout", "SQ_RPC_CALL_TIMEOUT")
	v.BindEnv("rpc.selection", "SQ_RPC_SELECTION")
	v.BindEnv("rpc.batch_window", "SQ_RPC_BATCH_WINDOW")
	v.BindEnv("rpc.max_batch_size", "SQ_RPC_MAX_BATCH_SIZE")

	v.BindEnv("retry.max_attempts", "SQ_RETRY_MAX_ATTEMPTS")
	v.BindEnv("retry.base_delay", "SQ_RETRY_BASE_DELAY")

	v.BindEnv("telemetry.enabled", "SQ_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "SQ_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "SQ_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "swap-quoter")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.listen_port", 8080)
	v.SetDefault("app.health_port", 8081)

	// Uniswap mainnet deployments
	v.SetDefault("networks.mainnet.chain_id", 1)
	v.SetDefault("networks.mainnet.v2_factory", "0x5C69bEe701ef814a2B6a3EDD4B1652CB9cc5aA6f")
	v.SetDefault("networks.mainnet.v3_factory", "0x1F98431c8aD98523631AE4a59f267346ea31F984")
	v.SetDefault("networks.mainnet.v4_state_view", "0x7fFE42C4a5DEeA5b0feC41C94C136Cf115597227")
	v.SetDefault("networks.mainnet.v2_router", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D")
	v.SetDefault("networks.mainnet.v3_router", "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")

	v.SetDefault("rpc.call_timeout", 10*time.Second)
	v.SetDefault("rpc.selection", "roundrobin")
	v.SetDefault("rpc.batch_window", 100*time.Millisecond)
	v.SetDefault("rpc.max_batch_size", 10)
	v.SetDefault("rpc.requests_per_second", 50.0)
	v.SetDefault("rpc.burst", 10)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.base_delay", 200*time.Millisecond)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_delay", 5*time.Second)

	v.SetDefault("cache.token_meta_ttl", 24*time.Hour)
	v.SetDefault("cache.pool_ref_ttl", 24*time.Hour)
	v.SetDefault("cache.pool_state_ttl", 5*time.Minute)
	v.SetDefault("cache.gas_price_ttl", 30*time.Second)
	v.SetDefault("cache.route_ttl", time.Minute)
	v.SetDefault("cache.quote_ttl", 30*time.Second)
	v.SetDefault("cache.approval_ttl", 10*time.Minute)

	v.SetDefault("quote.default_deadline", 20*time.Minute)
	v.SetDefault("quote.min_deadline", time.Minute)
	v.SetDefault("quote.max_deadline", time.Hour)
	v.SetDefault("quote.overall_timeout", 15*time.Second)
	// uint120 max keeps amounts well inside any pool reserve representation
	v.SetDefault("quote.max_amount_in_wei", "1329227995784915872903807060280344575")
	v.SetDefault("quote.preferred_fee_tier", 3000)
	v.SetDefault("quote.fee_tier_bonus_bps", 25)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "swap-quoter")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return fmt.Errorf("at least one network must be configured")
	}
	for name, net := range c.Networks {
		if len(net.Endpoints) == 0 {
			return fmt.Errorf("networks.%s.endpoints cannot be empty", name)
		}
		for _, addr := range []struct{ field, value string }{
			{"v2_factory", net.V2Factory},
			{"v3_factory", net.V3Factory},
			{"v4_state_view", net.V4StateView},
			{"v2_router", net.V2Router},
			{"v3_router", net.V3Router},
		} {
			if addr.value != "" && !common.IsHexAddress(addr.value) {
				return fmt.Errorf("invalid networks.%s.%s: %s", name, addr.field, addr.value)
			}
		}
	}
	if c.RPC.Selection != "roundrobin" && c.RPC.Selection != "random" {
		return fmt.Errorf("rpc.selection must be roundrobin or random, got %q", c.RPC.Selection)
	}
	if c.RPC.MaxBatchSize < 1 {
		return fmt.Errorf("rpc.max_batch_size must be positive")
	}
	if c.Quote.MinDeadline <= 0 || c.Quote.MaxDeadline <= c.Quote.MinDeadline {
		return fmt.Errorf("quote deadline window is inverted")
	}
	return nil
}

// Network returns the configuration for a named network.
func (c *Config) Network(name string) (NetworkConfig, bool) {
	net, ok := c.Networks[name]
	return net, ok
}
