package agent

import (
	"context"
	"errors"
	"log/slog"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/brojonat/solkit/service/metrics"
)

// Connection is the subset of the RPC client every tool relies on.
// *solana.Client implements it.
type Connection interface {
	LatestBlockhash(ctx context.Context) (solanago.Hash, error)
	GetAccountData(ctx context.Context, account solanago.PublicKey) ([]byte, error)
	GetMintDecimals(ctx context.Context, mint solanago.PublicKey) (uint8, error)
	SendTransaction(ctx context.Context, tx *solanago.Transaction) (solanago.Signature, error)
}

// Config carries per-agent behavior flags.
type Config struct {
	// SignOnly returns signed transactions to the caller instead of submitting them.
	SignOnly bool
}

// AddLiquidityParams are the inputs of a Sanctum add-liquidity call.
// Amounts are base-unit integers encoded as strings.
type AddLiquidityParams struct {
	LSTMint      string
	Amount       string
	QuotedAmount string
	PriorityFee  uint64
}

// LiquidityProvider builds an unsigned add-liquidity transaction for signer.
type LiquidityProvider interface {
	AddLiquidityTx(ctx context.Context, signer solanago.PublicKey, params AddLiquidityParams) (*solanago.Transaction, error)
}

// LiquidityResult is returned by AddSanctumLiquidity.
type LiquidityResult struct {
	TxID string
	// Transaction is set in sign-only mode.
	Transaction *solanago.Transaction
}

// ErrNoLiquidityProvider is returned when the agent was built without one.
var ErrNoLiquidityProvider = errors.New("no liquidity provider configured")

// Agent is handed to every tool. It does not own any protocol state.
type Agent struct {
	Connection Connection
	Wallet     Wallet
	Config     Config
	Liquidity  LiquidityProvider

	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures an Agent.
type Option func(*Agent)

// WithLiquidityProvider sets the backend for AddSanctumLiquidity.
func WithLiquidityProvider(p LiquidityProvider) Option {
	return func(a *Agent) { a.Liquidity = p }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithMetrics enables transaction counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Agent) { a.metrics = m }
}

// New creates an agent.
func New(conn Connection, wallet Wallet, cfg Config, opts ...Option) *Agent {
	a := &Agent{
		Connection: conn,
		Wallet:     wallet,
		Config:     cfg,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Logger returns the agent's logger.
func (a *Agent) Logger() *slog.Logger {
	return a.logger
}

// PublicKey is shorthand for the wallet address.
func (a *Agent) PublicKey() solanago.PublicKey {
	return a.Wallet.PublicKey()
}

// AddSanctumLiquidity fetches the liquidity transaction from the provider,
// refreshes its blockhash and signs or sends it.
func (a *Agent) AddSanctumLiquidity(ctx context.Context, params AddLiquidityParams) (*LiquidityResult, error) {
	if a.Liquidity == nil {
		return nil, ErrNoLiquidityProvider
	}

	tx, err := a.Liquidity.AddLiquidityTx(ctx, a.PublicKey(), params)
	if err != nil {
		return nil, err
	}

	blockhash, err := a.Connection.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx.Message.RecentBlockhash = blockhash

	res, err := SignOrSend(ctx, a, tx)
	if err != nil {
		return nil, err
	}

	out := &LiquidityResult{TxID: res.Signature.String()}
	if !res.Sent {
		out.Transaction = res.Transaction
	}
	return out, nil
}
