package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	App struct {
		Env string `mapstructure:"env"` // development|production
	} `mapstructure:"app"`

	Server struct {
		HTTPAddr string `mapstructure:"http_addr"`
		GRPCAddr string `mapstructure:"grpc_addr"`
	} `mapstructure:"server"`

	Database struct {
		DSN string `mapstructure:"dsn"` // empty selects the in-memory store
	} `mapstructure:"database"`

	Session struct {
		TTL time.Duration `mapstructure:"ttl"`
	} `mapstructure:"session"`

	HTTP struct {
		AllowedOrigins []string `mapstructure:"allowed_origins"`
		TrustedProxies []string `mapstructure:"trusted_proxies"`
	} `mapstructure:"http"`

	RateLimit struct {
		PerSecond int `mapstructure:"per_second"`
		Burst     int `mapstructure:"burst"`
	} `mapstructure:"ratelimit"`

	Settlement struct {
		TokenAddress string `mapstructure:"token_address"`
		ChainID      int64  `mapstructure:"chain_id"`
	} `mapstructure:"settlement"`

	Checkout struct {
		BasePath string `mapstructure:"base_path"`
	} `mapstructure:"checkout"`

	Logging struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"logs"`
}

// Production reports whether production hardening applies.
func (c *Config) Production() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Load reads defaults, then an optional YAML file, then BYUND_* environment variables.
func Load() (*Config, error) {
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("BYUND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.env", "development")
	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.grpc_addr", ":9090")
	v.SetDefault("database.dsn", "")
	v.SetDefault("session.ttl", "336h")
	v.SetDefault("http.allowed_origins", []string{})
	v.SetDefault("http.trusted_proxies", []string{})
	v.SetDefault("ratelimit.per_second", 10)
	v.SetDefault("ratelimit.burst", 20)
	v.SetDefault("settlement.token_address", "")
	v.SetDefault("settlement.chain_id", 8453)
	v.SetDefault("checkout.base_path", "/checkout")
	v.SetDefault("logs.level", "info")
	v.SetDefault("logs.format", "json")

	if cfgFile := os.Getenv("BYUND_CONFIG_FILE"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/byund")
	}
	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			return nil, fmt.Errorf("config read error: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal error: %w", err)
	}
	// Env lists arrive comma separated and possibly padded.
	cfg.HTTP.AllowedOrigins = splitList(strings.Join(cfg.HTTP.AllowedOrigins, ","))
	cfg.HTTP.TrustedProxies = splitList(strings.Join(cfg.HTTP.TrustedProxies, ","))
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(c *Config) error {
	switch strings.ToLower(c.App.Env) {
	case "development", "production":
	default:
		return fmt.Errorf("app.env must be development or production, got %q", c.App.Env)
	}
	if strings.TrimSpace(c.Server.HTTPAddr) == "" {
		return errors.New("server.http_addr must not be empty")
	}
	if c.Session.TTL <= 0 {
		return errors.New("session.ttl must be positive")
	}
	if c.RateLimit.PerSecond <= 0 || c.RateLimit.Burst <= 0 {
		return errors.New("ratelimit.per_second and ratelimit.burst must be positive")
	}
	if c.Settlement.ChainID <= 0 {
		return errors.New("settlement.chain_id must be positive")
	}
	if !strings.HasPrefix(c.Checkout.BasePath, "/") {
		return errors.New("checkout.base_path must start with /")
	}
	if c.Production() {
		if len(c.HTTP.AllowedOrigins) == 0 {
			return errors.New("http.allowed_origins is required in production")
		}
		if strings.TrimSpace(c.Database.DSN) == "" {
			return errors.New("database.dsn is required in production")
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
