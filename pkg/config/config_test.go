package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
rpc_endpoint: https://rpc.example.com
jito_endpoint: https://mainnet.block-engine.jito.wtf/api/v1
requests_per_second: 5
pool_id: 8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj
transfer_fee_aware: false
include_curve_account: true
slippage_bps: 100
log_level: debug
fetch_retries: 5
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadConfig(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example.com", cfg.RPCEndpoint)
	assert.Equal(t, "https://mainnet.block-engine.jito.wtf/api/v1", cfg.JitoEndpoint)
	assert.Equal(t, 5, cfg.RequestsPerSecond)
	assert.False(t, cfg.TransferFeeAware)
	assert.True(t, cfg.IncludeCurveAccount)
	assert.Equal(t, uint64(100), cfg.SlippageBps)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint(5), cfg.FetchRetries)
	assert.Equal(t, DefaultProgramID, cfg.ProgramID)

	pool, ok := cfg.PoolKey()
	require.True(t, ok)
	assert.Equal(t, solana.MustPublicKeyFromBase58("8sLbNZoA1cfnvMJLPfp98ZLAnFSYCFApfJKMbiXNLwxj"), pool)
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, DefaultRPCEndpoint, cfg.RPCEndpoint)
	assert.Equal(t, DefaultRequestsPerSecond, cfg.RequestsPerSecond)
	assert.Equal(t, uint64(DefaultSlippageBps), cfg.SlippageBps)
	assert.True(t, cfg.TransferFeeAware)
	assert.Equal(t, solana.MustPublicKeyFromBase58(DefaultProgramID), cfg.ProgramKey())

	_, ok := cfg.PoolKey()
	assert.False(t, ok)
	_, err = cfg.Signer()
	assert.Error(t, err)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("HYPERROUTE_RPC_ENDPOINT", "https://override.example.com")
	t.Setenv("HYPERROUTE_SLIPPAGE_BPS", "25")

	cfg, err := LoadConfig(writeConfig(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "https://override.example.com", cfg.RPCEndpoint)
	assert.Equal(t, uint64(25), cfg.SlippageBps)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad rpc scheme", "rpc_endpoint: ws://rpc.example.com\n"},
		{"bad program id", "program_id: not-a-key\n"},
		{"bad pool id", "pool_id: 123\n"},
		{"slippage above 100%", "slippage_bps: 10001\n"},
		{"unknown log level", "log_level: chatty\n"},
		{"negative rate", "requests_per_second: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestSigner(t *testing.T) {
	wallet := solana.NewWallet()
	cfg := &Config{PrivateKey: wallet.PrivateKey.String()}

	key, err := cfg.Signer()
	require.NoError(t, err)
	assert.Equal(t, wallet.PublicKey(), key.PublicKey())

	cfg.PrivateKey = "garbage"
	_, err = cfg.Signer()
	assert.Error(t, err)
}
