package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValidConfig(t *testing.T) {
	cleanupEnv()
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("WALLET_PRIVATE_KEY", "base58-secret")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, "https://api.mainnet-beta.solana.com", cfg.SolanaRPCURL)
	assert.Equal(t, "base58-secret", cfg.WalletPrivateKey)
	assert.Equal(t, ":8080", cfg.ServerAddr) // Default
	assert.Equal(t, "info", cfg.LogLevel)    // Default
	assert.Equal(t, "mainnet", cfg.SolanaNetwork)
	assert.Equal(t, "https://sanctum-s-api.fly.dev", cfg.SanctumAPIURL)
	assert.Equal(t, 30*time.Second, cfg.SanctumAPITimeout)
	assert.Equal(t, 60*time.Second, cfg.ToolTimeout)
	assert.Equal(t, 200, cfg.MaxChatMessages)
	assert.False(t, cfg.SignOnly)
	assert.False(t, cfg.TemporalEnabled)
	assert.Equal(t, "solkit-tools", cfg.TemporalTaskQueue)
}

func TestLoad_MissingSolanaRPCURL(t *testing.T) {
	cleanupEnv()
	os.Setenv("WALLET_PRIVATE_KEY", "base58-secret")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "SOLANA_RPC_URL is required")
}

func TestLoad_MissingWallet(t *testing.T) {
	cleanupEnv()
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "one of WALLET_PRIVATE_KEY or WALLET_KEYPAIR_PATH is required")
}

func TestLoad_BothWalletSources(t *testing.T) {
	cleanupEnv()
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("WALLET_PRIVATE_KEY", "base58-secret")
	os.Setenv("WALLET_KEYPAIR_PATH", "/tmp/id.json")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestLoad_InvalidNetwork(t *testing.T) {
	cleanupEnv()
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("WALLET_PRIVATE_KEY", "base58-secret")
	os.Setenv("SOLANA_NETWORK", "testnet")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SOLANA_NETWORK must be")
}

func TestLoad_InvalidSignOnly(t *testing.T) {
	cleanupEnv()
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("WALLET_PRIVATE_KEY", "base58-secret")
	os.Setenv("SIGN_ONLY", "sometimes")
	defer cleanupEnv()

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid boolean")
}

func TestLoad_InvalidTimeout(t *testing.T) {
	cleanupEnv()
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("WALLET_PRIVATE_KEY", "base58-secret")
	os.Setenv("SANCTUM_API_TIMEOUT", "invalid")
	defer cleanupEnv()

	cfg, err := Load()
	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_CustomValues(t *testing.T) {
	cleanupEnv()
	os.Setenv("SOLANA_RPC_URL", "https://api.devnet.solana.com")
	os.Setenv("SOLANA_NETWORK", "devnet")
	os.Setenv("WALLET_KEYPAIR_PATH", "/home/solkit/.config/solana/id.json")
	os.Setenv("SIGN_ONLY", "true")
	os.Setenv("SERVER_ADDR", ":9090")
	os.Setenv("LOG_LEVEL", "debug")
	os.Setenv("NATS_URL", "nats://nats.example.com:4222")
	os.Setenv("DATABASE_URL", "postgres://localhost/solkit")
	os.Setenv("TEMPORAL_ENABLED", "1")
	os.Setenv("TEMPORAL_HOST", "temporal.example.com:7233")
	os.Setenv("TOOL_TIMEOUT", "2m")
	os.Setenv("MAX_CHAT_MESSAGES", "50")
	defer cleanupEnv()

	cfg, err := Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.ServerAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "devnet", cfg.SolanaNetwork)
	assert.Equal(t, "/home/solkit/.config/solana/id.json", cfg.WalletKeypairPath)
	assert.True(t, cfg.SignOnly)
	assert.Equal(t, "nats://nats.example.com:4222", cfg.NATSURL)
	assert.Equal(t, "postgres://localhost/solkit", cfg.DatabaseURL)
	assert.True(t, cfg.TemporalEnabled)
	assert.Equal(t, "temporal.example.com:7233", cfg.TemporalHost)
	assert.Equal(t, 2*time.Minute, cfg.ToolTimeout)
	assert.Equal(t, 50, cfg.MaxChatMessages)
}

func TestValidate_ValidConfig(t *testing.T) {
	cfg := &Config{
		SolanaRPCURL:     "https://api.mainnet-beta.solana.com",
		WalletPrivateKey: "base58-secret",
		SanctumAPIURL:    "https://sanctum-s-api.fly.dev",
		ToolTimeout:      30 * time.Second,
	}

	err := cfg.Validate()
	assert.NoError(t, err)
}

func TestValidate_MissingWallet(t *testing.T) {
	cfg := &Config{
		SolanaRPCURL:  "https://api.mainnet-beta.solana.com",
		SanctumAPIURL: "https://sanctum-s-api.fly.dev",
		ToolTimeout:   30 * time.Second,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WalletPrivateKey or WalletKeypairPath is required")
}

func TestValidate_TemporalEnabledWithoutHost(t *testing.T) {
	cfg := &Config{
		SolanaRPCURL:      "https://api.mainnet-beta.solana.com",
		WalletPrivateKey:  "base58-secret",
		SanctumAPIURL:     "https://sanctum-s-api.fly.dev",
		ToolTimeout:       30 * time.Second,
		TemporalEnabled:   true,
		TemporalNamespace: "default",
		TemporalTaskQueue: "solkit-tools",
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TemporalHost is required")
}

func TestValidate_TooShortTimeout(t *testing.T) {
	cfg := &Config{
		SolanaRPCURL:     "https://api.mainnet-beta.solana.com",
		WalletPrivateKey: "base58-secret",
		SanctumAPIURL:    "https://sanctum-s-api.fly.dev",
		ToolTimeout:      500 * time.Millisecond,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be at least 1 second")
}

func TestMustLoad_Panics(t *testing.T) {
	// Don't set required env vars
	cleanupEnv()
	defer cleanupEnv()

	assert.Panics(t, func() {
		MustLoad()
	})
}

func TestMustLoad_Success(t *testing.T) {
	cleanupEnv()
	os.Setenv("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com")
	os.Setenv("WALLET_PRIVATE_KEY", "base58-secret")
	defer cleanupEnv()

	assert.NotPanics(t, func() {
		cfg := MustLoad()
		assert.NotNil(t, cfg)
	})
}

// cleanupEnv clears all environment variables used in tests
func cleanupEnv() {
	for _, key := range []string{
		"SERVER_ADDR",
		"LOG_LEVEL",
		"SOLANA_RPC_URL",
		"SOLANA_NETWORK",
		"WALLET_PRIVATE_KEY",
		"WALLET_KEYPAIR_PATH",
		"SIGN_ONLY",
		"SANCTUM_API_URL",
		"SANCTUM_API_TIMEOUT",
		"DATABASE_URL",
		"NATS_URL",
		"TEMPORAL_ENABLED",
		"TEMPORAL_HOST",
		"TEMPORAL_NAMESPACE",
		"TEMPORAL_TASK_QUEUE",
		"TOOL_TIMEOUT",
		"MAX_CHAT_MESSAGES",
	} {
		os.Unsetenv(key)
	}
}
