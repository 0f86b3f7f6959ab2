package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ShreyanshuGhosh/nitebite/internal/domain/cart"
	"github.com/ShreyanshuGhosh/nitebite/internal/remote"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (NITEBITE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (NITEBITE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL     string `usage:"Redis URL for cart state (NITEBITE_REDIS_URL or REDIS_URL); carts stay in memory when empty" flag:"redis-url"`
	ImageBaseURL string `default:"" usage:"Base URL for root-relative product images" flag:"image-base-url"`
	AuthSecret   string `usage:"HMAC secret shared with the auth service (NITEBITE_AUTH_SECRET)" flag:"auth-secret"`
	// StockTracking checks live stock before every add and update.
	StockTracking bool `default:"true" usage:"Check live stock on cart changes" flag:"stock-tracking"`
	Pricing       PricingConfig
	Sessions      SessionConfig
	UPI           UPIConfig
	Breaker       remote.BreakerConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	Graceful      GracefulConfig
}

// PricingConfig sets the fee policy. Amounts are decimal strings.
type PricingConfig struct {
	FreeDeliveryThreshold string `default:"149" usage:"Subtotal from which delivery is free"`
	DeliveryFee           string `default:"20" usage:"Delivery fee below the threshold"`
	ConvenienceMode       string `default:"flat" usage:"Convenience fee mode: flat or percent"`
	ConvenienceFlat       string `default:"10" usage:"Flat convenience fee"`
	ConvenienceRate       string `default:"0.05" usage:"Convenience fee rate in percent mode"`
}

// Pricing parses the policy into a cart.Pricing.
func (c PricingConfig) Pricing() (cart.Pricing, error) {
	var (
		p   = cart.Pricing{ConvenienceMode: cart.ConvenienceMode(c.ConvenienceMode)}
		err error
	)
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"free delivery threshold", c.FreeDeliveryThreshold, &p.FreeDeliveryThreshold},
		{"delivery fee", c.DeliveryFee, &p.DeliveryFee},
		{"convenience flat", c.ConvenienceFlat, &p.ConvenienceFlat},
		{"convenience rate", c.ConvenienceRate, &p.ConvenienceRate},
	} {
		if *f.dst, err = decimal.NewFromString(f.raw); err != nil {
			return cart.Pricing{}, errors.Wrapf(err, "parse %s", f.name)
		}
	}
	if err := p.Validate(); err != nil {
		return cart.Pricing{}, err
	}
	return p, nil
}

// SessionConfig controls session lifetime.
type SessionConfig struct {
	// TTL bounds both the session cookie and the persisted cart.
	TTL  time.Duration `default:"168h" usage:"Session cookie and cart state lifetime"`
	Idle time.Duration `default:"30m" usage:"Evict in-memory sessions idle for longer than this"`
	// SecureCookies should be on behind TLS.
	SecureCookies bool `default:"false" usage:"Mark the session cookie Secure" flag:"secure-cookies"`
}

// UPIConfig identifies the account QR payments go to.
type UPIConfig struct {
	VPA  string `default:"nitebite@upi" usage:"UPI virtual payment address"`
	Name string `default:"NiteBite" usage:"Payee name shown in UPI apps"`
	Note string `default:"Order Payment" usage:"Transaction note prefix"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return loadConfig(aconfig.Config{
		EnvPrefix: "NITEBITE",
		Files:     []string{"config.yaml", "/etc/nitebite/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
}

func loadConfig(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set NITEBITE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.AuthSecret == "" {
		return nil, errors.New("auth secret is required: set NITEBITE_AUTH_SECRET")
	}
	if _, err := cfg.Pricing.Pricing(); err != nil {
		return nil, errors.Wrap(err, "pricing")
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's NITEBITE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.RedisURL == "" {
		c.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}
