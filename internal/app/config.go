package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	Currency     string `default:"USD" usage:"Default currency for drafts without one"`
	APIKeyPepper string `usage:"HMAC pepper for API key hashing (STORE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	Gateway      GatewayConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// GatewayConfig configures the payment gateway client and webhook intake.
type GatewayConfig struct {
	APIKey           string        `usage:"Payment gateway secret key (STORE_GATEWAY_API_KEY)" flag:"gateway-api-key"`
	BaseURL          string        `default:"https://api.stripe.com" usage:"Payment gateway API base URL" flag:"gateway-base-url"`
	WebhookSecret    string        `usage:"Shared secret for webhook signatures (STORE_GATEWAY_WEBHOOK_SECRET)" flag:"gateway-webhook-secret"`
	Timeout          time.Duration `default:"10s" usage:"Per-request gateway timeout"`
	WebhookTolerance time.Duration `default:"5m" usage:"Maximum accepted webhook timestamp age" flag:"webhook-tolerance"`
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
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Gateway.WebhookSecret == "" {
		return nil, errors.New("webhook secret is required: set STORE_GATEWAY_WEBHOOK_SECRET")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables
// (Railway, Render, etc.) that use standard names like DATABASE_URL and PORT
// to the STORE_-prefixed configuration.
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
