package toolkit

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/brojonat/solkit/service/agent"
	"github.com/brojonat/solkit/service/config"
	"github.com/brojonat/solkit/service/metrics"
	"github.com/brojonat/solkit/service/sanctum"
	"github.com/brojonat/solkit/service/solana"
)

// NewAgentRegistry registers every tool backed by a.
func NewAgentRegistry(a *agent.Agent, logger *slog.Logger, opts ...RegistryOption) (*Registry, error) {
	r := NewRegistry(logger, opts...)
	if err := r.Register(
		NewSanctumAddLiquidityTool(a),
		NewTreasuryTransferTool(a),
		NewDeployTokenTool(a),
	); err != nil {
		return nil, err
	}
	return r, nil
}

// NewAgentFromConfig builds an agent with an RPC connection, the configured
// wallet and a Sanctum liquidity provider. m may be nil.
func NewAgentFromConfig(cfg *config.Config, m *metrics.Metrics, logger *slog.Logger) (*agent.Agent, error) {
	wallet, err := agent.LoadWallet(cfg.WalletPrivateKey, cfg.WalletKeypairPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet: %w", err)
	}

	conn := solana.NewClient(solana.NewRPCClient(cfg.SolanaRPCURL), cfg.SolanaNetwork, m, logger)
	liquidity := sanctum.NewClient(cfg.SanctumAPIURL, &http.Client{Timeout: cfg.SanctumAPITimeout}, m, logger)

	a := agent.New(conn, wallet, agent.Config{SignOnly: cfg.SignOnly},
		agent.WithLiquidityProvider(liquidity),
		agent.WithLogger(logger),
		agent.WithMetrics(m),
	)
	logger.Info("agent initialized",
		"wallet", a.PublicKey().String(),
		"network", cfg.SolanaNetwork,
		"sign_only", cfg.SignOnly,
	)
	return a, nil
}
