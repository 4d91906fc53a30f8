// Package config loads the run configuration for the airdrop jobs.
// A Config is read once per process and handed to each stage as an
// immutable per-chain ChainConfig.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Configuration errors. A chain scope that hits one of these short-circuits
// to an empty result; other chains continue.
var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrMissingEndpoint  = errors.New("missing subgraph endpoint")
)

// Default ingestion and distribution values.
const (
	DefaultPageSize    = 1000
	DefaultWindow      = 24 * time.Hour
	DefaultMaxInFlight = 50
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 500 * time.Millisecond
	DefaultMultiplier  = 2.0
	DefaultDecimals    = 18
)

// Endpoint names used as keys of ChainConfig.Endpoints.
const (
	EndpointMarkets   = "markets"
	EndpointTokens    = "tokens"
	EndpointPools     = "pools"
	EndpointPositions = "positions"
	EndpointHumans    = "humans"
)

// Config is the top-level YAML document.
type Config struct {
	PostgresDSN   string             `yaml:"postgres_dsn"`
	ClickhouseDSN string             `yaml:"clickhouse_dsn"`
	Chains        []ChainConfig      `yaml:"chains" validate:"required,min=1,dive"`
	Ingestion     IngestionConfig    `yaml:"ingestion"`
	Distribution  DistributionConfig `yaml:"distribution"`
}

// ChainConfig scopes every stage to one chain.
type ChainConfig struct {
	ID              int64             `yaml:"id" validate:"required,gt=0"`
	Name            string            `yaml:"name" validate:"required"`
	CollateralToken string            `yaml:"collateral_token" validate:"required,eth_addr"`
	LoyaltyToken    string            `yaml:"loyalty_token" validate:"omitempty,eth_addr"`
	Endpoints       map[string]string `yaml:"endpoints" validate:"dive,keys,oneof=markets tokens pools positions humans,endkeys,url"`
	IgnoreAddresses []string          `yaml:"ignore_addresses" validate:"dive,eth_addr"`
	StartTimestamp  int64             `yaml:"start_timestamp" validate:"gte=0"`
	TokenDecimals   int32             `yaml:"token_decimals" validate:"gte=0,lte=36"`
}

// IngestionConfig tunes paging, windowing and the retry policy.
type IngestionConfig struct {
	PageSize    int           `yaml:"page_size" validate:"gte=0,lte=1000"`
	Window      time.Duration `yaml:"window" validate:"gte=0"`
	MaxInFlight int           `yaml:"max_in_flight" validate:"gte=0"`
	MaxAttempts int           `yaml:"max_attempts" validate:"gte=0"`
	BaseDelay   time.Duration `yaml:"base_delay" validate:"gte=0"`
	Multiplier  float64       `yaml:"multiplier" validate:"gte=0"`
	Timeout     time.Duration `yaml:"timeout" validate:"gte=0"`
}

// DistributionConfig holds the daily budget and scheme weights.
type DistributionConfig struct {
	DailyBudget    string  `yaml:"daily_budget" validate:"required,numeric"`
	HoldingWeight  float64 `yaml:"holding_weight" validate:"gte=0,lte=1"`
	VerifiedWeight float64 `yaml:"verified_weight" validate:"gte=0,lte=1"`
	LoyaltyWeight  float64 `yaml:"loyalty_weight" validate:"gte=0,lte=1"`
}

// Load reads and validates a YAML config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	in := &c.Ingestion
	if in.PageSize == 0 {
		in.PageSize = DefaultPageSize
	}
	if in.Window == 0 {
		in.Window = DefaultWindow
	}
	if in.MaxInFlight == 0 {
		in.MaxInFlight = DefaultMaxInFlight
	}
	if in.MaxAttempts == 0 {
		in.MaxAttempts = DefaultMaxAttempts
	}
	if in.BaseDelay == 0 {
		in.BaseDelay = DefaultBaseDelay
	}
	if in.Multiplier == 0 {
		in.Multiplier = DefaultMultiplier
	}

	d := &c.Distribution
	if d.HoldingWeight == 0 && d.VerifiedWeight == 0 && d.LoyaltyWeight == 0 {
		d.HoldingWeight, d.VerifiedWeight, d.LoyaltyWeight = 0.25, 0.25, 0.5
	}

	for i := range c.Chains {
		if c.Chains[i].TokenDecimals == 0 {
			c.Chains[i].TokenDecimals = DefaultDecimals
		}
	}
}

// Validate checks struct tags and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	seen := make(map[int64]bool, len(c.Chains))
	for _, ch := range c.Chains {
		if seen[ch.ID] {
			return fmt.Errorf("invalid config: duplicate chain id %d", ch.ID)
		}
		seen[ch.ID] = true
	}

	d := c.Distribution
	sum := d.HoldingWeight + d.VerifiedWeight + d.LoyaltyWeight
	if sum < 0.999999 || sum > 1.000001 {
		return fmt.Errorf("invalid config: distribution weights sum to %v, want 1", sum)
	}
	return nil
}

// Chain returns the chain scope with the given id.
func (c *Config) Chain(id int64) (ChainConfig, error) {
	for _, ch := range c.Chains {
		if ch.ID == id {
			return ch, nil
		}
	}
	return ChainConfig{}, fmt.Errorf("chain %d: %w", id, ErrUnsupportedChain)
}

// Select returns the chains named by names, each a chain name or numeric id.
// No names selects every chain.
func (c *Config) Select(names []string) ([]ChainConfig, error) {
	if len(names) == 0 {
		return c.Chains, nil
	}
	out := make([]ChainConfig, 0, len(names))
	for _, n := range names {
		ch, err := c.lookup(n)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func (c *Config) lookup(name string) (ChainConfig, error) {
	for _, ch := range c.Chains {
		if strings.EqualFold(ch.Name, name) {
			return ch, nil
		}
	}
	id, err := strconv.ParseInt(name, 10, 64)
	if err != nil {
		return ChainConfig{}, fmt.Errorf("chain %q: %w", name, ErrUnsupportedChain)
	}
	return c.Chain(id)
}

// LoadEnvFile sets environment variables from a KEY=VALUE file, keeping
// variables that are already set. A missing file is ignored.
func LoadEnvFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

// Budget returns the daily budget as a decimal.
func (d DistributionConfig) Budget() decimal.Decimal {
	b, err := decimal.NewFromString(d.DailyBudget)
	if err != nil {
		return decimal.Zero
	}
	return b
}

// Endpoint returns the URL for a named subgraph, or ErrMissingEndpoint.
func (c ChainConfig) Endpoint(name string) (string, error) {
	url := strings.TrimSpace(c.Endpoints[name])
	if url == "" {
		return "", fmt.Errorf("chain %s endpoint %q: %w", c.Name, name, ErrMissingEndpoint)
	}
	return url, nil
}

// Collateral returns the collateral token address.
func (c ChainConfig) Collateral() common.Address {
	return common.HexToAddress(c.CollateralToken)
}

// Loyalty returns the loyalty token address and whether one is configured.
func (c ChainConfig) Loyalty() (common.Address, bool) {
	if c.LoyaltyToken == "" {
		return common.Address{}, false
	}
	return common.HexToAddress(c.LoyaltyToken), true
}

// Ignored returns the set of addresses excluded from the loyalty scheme.
func (c ChainConfig) Ignored() map[common.Address]bool {
	out := make(map[common.Address]bool, len(c.IgnoreAddresses))
	for _, a := range c.IgnoreAddresses {
		out[common.HexToAddress(a)] = true
	}
	return out
}
