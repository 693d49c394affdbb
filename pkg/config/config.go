package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

const EnvPrefix = "HYPERROUTE"

type Config struct {
	RPCEndpoint         string `mapstructure:"rpc_endpoint"`
	JitoEndpoint        string `mapstructure:"jito_endpoint"`
	RequestsPerSecond   int    `mapstructure:"requests_per_second"`
	ProgramID           string `mapstructure:"program_id"`
	PoolID              string `mapstructure:"pool_id"`
	TransferFeeAware    bool   `mapstructure:"transfer_fee_aware"`
	IncludeCurveAccount bool   `mapstructure:"include_curve_account"`
	SlippageBps         uint64 `mapstructure:"slippage_bps"`
	PrivateKey          string `mapstructure:"private_key"`
	LogLevel            string `mapstructure:"log_level"`
	FetchRetries        uint   `mapstructure:"fetch_retries"`
}

const (
	DefaultRPCEndpoint       = "https://api.mainnet-beta.solana.com"
	DefaultRequestsPerSecond = 20
	DefaultProgramID         = "SwapsVeCiPHMUAtzQWZw7RjsKjgCjhwU55QGu4U1Szw"
	DefaultSlippageBps       = 50
	DefaultLogLevel          = "info"
	DefaultFetchRetries      = 3

	maxSlippageBps = 10_000
)

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"rpc_endpoint":          DefaultRPCEndpoint,
		"jito_endpoint":         "",
		"requests_per_second":   DefaultRequestsPerSecond,
		"program_id":            DefaultProgramID,
		"pool_id":               "",
		"transfer_fee_aware":    true,
		"include_curve_account": false,
		"slippage_bps":          DefaultSlippageBps,
		"private_key":           "",
		"log_level":             DefaultLogLevel,
		"fetch_retries":         DefaultFetchRetries,
	}
}

// LoadConfig reads the config file at path, if any, then applies
// HYPERROUTE_* environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.RPCEndpoint == "" {
		return errors.New("rpc_endpoint is empty")
	}
	if err := validateURL(c.RPCEndpoint, "http"); err != nil {
		return fmt.Errorf("invalid rpc_endpoint: %w", err)
	}
	if c.JitoEndpoint != "" {
		if err := validateURL(c.JitoEndpoint, "http"); err != nil {
			return fmt.Errorf("invalid jito_endpoint: %w", err)
		}
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("invalid requests_per_second")
	}
	if _, err := solana.PublicKeyFromBase58(c.ProgramID); err != nil {
		return fmt.Errorf("invalid program_id: %w", err)
	}
	if c.PoolID != "" {
		if _, err := solana.PublicKeyFromBase58(c.PoolID); err != nil {
			return fmt.Errorf("invalid pool_id: %w", err)
		}
	}
	if c.SlippageBps > maxSlippageBps {
		return fmt.Errorf("slippage_bps %d above %d", c.SlippageBps, maxSlippageBps)
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	return nil
}

func (c *Config) ProgramKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.ProgramID)
}

// PoolKey returns the configured pool, or false when none is set.
func (c *Config) PoolKey() (solana.PublicKey, bool) {
	if c.PoolID == "" {
		return solana.PublicKey{}, false
	}
	return solana.MustPublicKeyFromBase58(c.PoolID), true
}

// Signer decodes the base58 private key.
func (c *Config) Signer() (solana.PrivateKey, error) {
	if c.PrivateKey == "" {
		return nil, errors.New("private_key is not configured")
	}
	key, err := solana.PrivateKeyFromBase58(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("invalid private_key: %w", err)
	}
	return key, nil
}

func validateURL(rawURL, scheme string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, scheme) {
		return fmt.Errorf("scheme %q is not %s", parsed.Scheme, scheme)
	}
	return nil
}
