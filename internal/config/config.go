// Package config defines all configuration for the indexer binaries.
// Config is loaded from a JSON file (default: config.mainnet.json) with
// operational settings supplied via environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/viper"
)

// ErrInvalidChainID is returned when a chain has no known provider endpoint.
var ErrInvalidChainID = errors.New("invalid chain id")

// Chain selects which Fuel network the indexer follows. The upstream stream
// and the block-height provider both depend on it.
type Chain string

const (
	ChainFuel        Chain = "FUEL"
	ChainFuelTestnet Chain = "FUELTESTNET"
)

// ParseChain maps the CHAIN_ID environment value to a Chain. "FUEL" selects
// mainnet; everything else, including an unset variable, falls back to the
// testnet.
func ParseChain(s string) Chain {
	if s == "FUEL" {
		return ChainFuel
	}
	return ChainFuelTestnet
}

// ProviderURL returns the GraphQL endpoint of the chain's public provider.
func (c Chain) ProviderURL() (string, error) {
	switch c {
	case ChainFuel:
		return "https://mainnet.fuel.network/v1/graphql", nil
	case ChainFuelTestnet:
		return "https://testnet.fuel.network/v1/graphql", nil
	default:
		return "", ErrInvalidChainID
	}
}

// Config is the top-level configuration. The file part maps directly to the
// JSON structure; the unexported-looking plain fields below it come from the
// environment only.
type Config struct {
	PangeaHost       string         `mapstructure:"pangea_host"`
	PangeaStartBlock int64          `mapstructure:"pangea_start_block"`
	Markets          []MarketConfig `mapstructure:"markets"`
	Logging          LoggingConfig  `mapstructure:"logging"`

	// Environment-only settings: DATABASE_URL, CHAIN_ID, PANGEA_USERNAME,
	// PANGEA_PASSWORD, MARKET_ID.
	DatabaseURL    string `mapstructure:"-"`
	Chain          Chain  `mapstructure:"-"`
	PangeaUsername string `mapstructure:"-"`
	PangeaPassword string `mapstructure:"-"`
}

// MarketConfig identifies one Spark market: the 32-byte contract hash the
// upstream filters on plus a human-readable name for logs.
type MarketConfig struct {
	ID   string `mapstructure:"id"`
	Name string `mapstructure:"name"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NewLogger builds the process root logger described by this block.
func (c LoggingConfig) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(c.Level)}
	var handler slog.Handler
	if c.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Load reads config from a JSON file and applies environment overrides.
// MARKET_ID, when set, narrows the markets list to that single market.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.Chain = ParseChain(os.Getenv("CHAIN_ID"))
	cfg.PangeaUsername = os.Getenv("PANGEA_USERNAME")
	cfg.PangeaPassword = os.Getenv("PANGEA_PASSWORD")

	if marketID := os.Getenv("MARKET_ID"); marketID != "" {
		var found *MarketConfig
		for i := range cfg.Markets {
			if cfg.Markets[i].ID == marketID {
				found = &cfg.Markets[i]
				break
			}
		}
		if found == nil {
			return nil, fmt.Errorf("MARKET_ID %q is not in the configured markets", marketID)
		}
		cfg.Markets = []MarketConfig{*found}
	}

	return &cfg, nil
}

// Validate checks all required fields and market-id shape.
func (c *Config) Validate() error {
	if c.PangeaHost == "" {
		return fmt.Errorf("pangea_host is required")
	}
	if c.PangeaStartBlock < 0 {
		return fmt.Errorf("pangea_start_block must be >= 0")
	}
	if len(c.Markets) == 0 {
		return fmt.Errorf("at least one market is required")
	}
	for _, m := range c.Markets {
		if m.Name == "" {
			return fmt.Errorf("market %q has no name", m.ID)
		}
		raw, err := hexutil.Decode(m.ID)
		if err != nil {
			return fmt.Errorf("market id %q is not valid hex: %w", m.ID, err)
		}
		if len(raw) != 32 {
			return fmt.Errorf("market id %q must be a 32-byte hash, got %d bytes", m.ID, len(raw))
		}
	}
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := c.Chain.ProviderURL(); err != nil {
		return err
	}
	return nil
}
