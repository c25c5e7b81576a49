package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete service configuration, loadable from environment
// variables (TOPUP_ prefix), flags, or YAML config files.
type Config struct {
	Addr string `default:"0.0.0.0:8080" usage:"API server listen address"`
	// DatabaseURL enables the PostgreSQL mirror of the order store when set.
	// Empty means the store is purely in-memory.
	DatabaseURL string `usage:"PostgreSQL connection URL (TOPUP_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	// SeedFile optionally points at a JSON file of orders loaded into the
	// store at boot, for running without the checkout flow that normally
	// creates orders.
	SeedFile string `usage:"JSON file with orders to load at startup" flag:"seed-file"`

	Check     CheckConfig
	Providers ProvidersConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// CheckConfig controls the reconciliation loop.
type CheckConfig struct {
	Interval    time.Duration `default:"5m" usage:"Period between automatic batch checks"`
	Timeout     time.Duration `default:"5s" usage:"Per-provider-call timeout"`
	Concurrency int           `default:"8"  usage:"Max concurrent provider calls within a batch"`
}

// ProvidersConfig holds one section per supported network provider. A
// provider with an empty base URL is simply not registered; its orders are
// excluded from polling rather than errored.
type ProvidersConfig struct {
	Airtel AirtelConfig
	MTN    MTNConfig
}

// AirtelConfig configures the Airtel status adapter.
type AirtelConfig struct {
	BaseURL string `usage:"Airtel dealer API base URL" flag:"airtel-base-url"`
	Token   string `usage:"Airtel bearer token (TOPUP_PROVIDERS_AIRTEL_TOKEN)" flag:"airtel-token"`
}

// MTNConfig configures the MTN status adapter.
type MTNConfig struct {
	BaseURL string `usage:"MTN reseller API base URL" flag:"mtn-base-url"`
	APIKey  string `usage:"MTN API key (TOPUP_PROVIDERS_MTN_APIKEY)" flag:"mtn-api-key"`
}

// RateLimitConfig controls the per-client API rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins []string `default:"*" usage:"Allowed CORS origins"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TOPUP",
		Files:     []string{"config.yaml", "/etc/topup-reconciler/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables that use
// standard names like DATABASE_URL and PORT onto the TOPUP_-prefixed
// configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
