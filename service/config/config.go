package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Solana configuration
	SolanaRPCURL  string
	SolanaNetwork string // "mainnet" or "devnet", used for metrics labels

	// Wallet configuration. Exactly one of the two must be set.
	WalletPrivateKey  string // base58 encoded secret key
	WalletKeypairPath string // solana-keygen JSON file

	// SignOnly makes every tool return a signed transaction instead of submitting it.
	SignOnly bool

	// Sanctum configuration
	SanctumAPIURL     string
	SanctumAPITimeout time.Duration

	// Database configuration (optional, enables invocation audit log and chat storage)
	DatabaseURL string

	// NATS configuration (optional, enables tool event streaming)
	NATSURL string

	// Temporal configuration
	TemporalEnabled   bool
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Tool execution
	ToolTimeout     time.Duration
	MaxChatMessages int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Solana configuration
	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.SolanaNetwork = getEnvOrDefault("SOLANA_NETWORK", "mainnet")
	if cfg.SolanaNetwork != "mainnet" && cfg.SolanaNetwork != "devnet" {
		errs = append(errs, fmt.Errorf("SOLANA_NETWORK must be 'mainnet' or 'devnet', got %q", cfg.SolanaNetwork))
	}

	// Wallet configuration
	cfg.WalletPrivateKey = os.Getenv("WALLET_PRIVATE_KEY")
	cfg.WalletKeypairPath = os.Getenv("WALLET_KEYPAIR_PATH")
	if cfg.WalletPrivateKey == "" && cfg.WalletKeypairPath == "" {
		errs = append(errs, fmt.Errorf("one of WALLET_PRIVATE_KEY or WALLET_KEYPAIR_PATH is required"))
	}
	if cfg.WalletPrivateKey != "" && cfg.WalletKeypairPath != "" {
		errs = append(errs, fmt.Errorf("WALLET_PRIVATE_KEY and WALLET_KEYPAIR_PATH are mutually exclusive"))
	}

	signOnly, err := parseBool("SIGN_ONLY", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SignOnly = signOnly
	}

	// Sanctum configuration
	cfg.SanctumAPIURL = getEnvOrDefault("SANCTUM_API_URL", "https://sanctum-s-api.fly.dev")

	sanctumTimeout, err := parseDuration("SANCTUM_API_TIMEOUT", "30s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SanctumAPITimeout = sanctumTimeout
	}

	// Optional infrastructure
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	// Temporal configuration
	temporalEnabled, err := parseBool("TEMPORAL_ENABLED", false)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.TemporalEnabled = temporalEnabled
	}
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "solkit-tools")

	// Tool execution
	toolTimeout, err := parseDuration("TOOL_TIMEOUT", "60s")
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ToolTimeout = toolTimeout
	}

	maxMessages, err := parseInt("MAX_CHAT_MESSAGES", 200)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.MaxChatMessages = maxMessages
	}

	if cfg.ToolTimeout < time.Second {
		errs = append(errs, fmt.Errorf("TOOL_TIMEOUT (%v) must be at least 1s", cfg.ToolTimeout))
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.WalletPrivateKey == "" && c.WalletKeypairPath == "" {
		errs = append(errs, fmt.Errorf("WalletPrivateKey or WalletKeypairPath is required"))
	}

	if c.SanctumAPIURL == "" {
		errs = append(errs, fmt.Errorf("SanctumAPIURL is required"))
	}

	if c.TemporalEnabled {
		if c.TemporalHost == "" {
			errs = append(errs, fmt.Errorf("TemporalHost is required"))
		}
		if c.TemporalNamespace == "" {
			errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
		}
		if c.TemporalTaskQueue == "" {
			errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
		}
	}

	if c.ToolTimeout < time.Second {
		errs = append(errs, fmt.Errorf("ToolTimeout must be at least 1 second"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}
