package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/solkit/service/metrics"
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"
)

// ErrAccountNotFound is returned when an account does not exist on chain.
var ErrAccountNotFound = errors.New("account not found")

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real Solana nodes.
// *rpc.Client satisfies it directly.
type RPCClient interface {
	GetLatestBlockhash(
		ctx context.Context,
		commitment rpc.CommitmentType,
	) (*rpc.GetLatestBlockhashResult, error)

	GetAccountInfo(
		ctx context.Context,
		account solana.PublicKey,
	) (*rpc.GetAccountInfoResult, error)

	SendTransactionWithOpts(
		ctx context.Context,
		tx *solana.Transaction,
		opts rpc.TransactionOpts,
	) (solana.Signature, error)
}

// Client is the network connection handed to every tool.
// It wraps the RPC client with metrics and logging.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)
}

// NewClient creates a new Solana client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet", "devnet", or RPC hostname).
// If metrics is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Client {
	return &Client{
		rpc:      rpcClient,
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// Endpoint returns the endpoint label this client reports metrics under.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// LatestBlockhash fetches a fresh finalized blockhash.
func (c *Client) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	start := time.Now()
	out, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	c.observe("GetLatestBlockhash", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get latest blockhash", "error", err)
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: %w", err)
	}
	if out == nil || out.Value == nil {
		return solana.Hash{}, fmt.Errorf("failed to get latest blockhash: empty response")
	}

	c.logger.DebugContext(ctx, "fetched latest blockhash",
		"blockhash", out.Value.Blockhash.String(),
		"last_valid_block_height", out.Value.LastValidBlockHeight,
	)

	return out.Value.Blockhash, nil
}

// GetAccountData returns the raw data of an account.
// Returns ErrAccountNotFound if the account does not exist.
func (c *Client) GetAccountData(ctx context.Context, account solana.PublicKey) ([]byte, error) {
	start := time.Now()
	out, err := c.rpc.GetAccountInfo(ctx, account)
	if errors.Is(err, rpc.ErrNotFound) {
		c.observe("GetAccountInfo", start, nil)
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}
	c.observe("GetAccountInfo", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to get account info",
			"account", account.String(),
			"error", err,
		)
		return nil, fmt.Errorf("failed to get account info for %s: %w", account, err)
	}
	if out == nil || out.Value == nil || out.Value.Data == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, account)
	}

	return out.Value.Data.GetBinary(), nil
}

// GetMintDecimals reads the decimals field of an SPL mint account.
func (c *Client) GetMintDecimals(ctx context.Context, mint solana.PublicKey) (uint8, error) {
	data, err := c.GetAccountData(ctx, mint)
	if err != nil {
		return 0, err
	}

	decoded, err := DecodeMint(data)
	if err != nil {
		return 0, fmt.Errorf("failed to decode mint %s: %w", mint, err)
	}

	c.logger.DebugContext(ctx, "fetched mint",
		"mint", mint.String(),
		"decimals", decoded.Decimals,
		"supply", decoded.Supply,
	)

	return decoded.Decimals, nil
}

// SendTransaction submits a fully signed transaction.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := time.Now()
	sig, err := c.rpc.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	c.observe("SendTransaction", start, err)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to send transaction", "error", err)
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.InfoContext(ctx, "transaction sent", "signature", sig.String())
	return sig, nil
}

// DecodeMint decodes the base SPL mint layout.
func DecodeMint(data []byte) (*token.Mint, error) {
	if len(data) < MintAccountSize {
		return nil, fmt.Errorf("mint account data too short: %d bytes", len(data))
	}

	var mint token.Mint
	if err := bin.NewBinDecoder(data[:MintAccountSize]).Decode(&mint); err != nil {
		return nil, err
	}
	if !mint.IsInitialized {
		return nil, fmt.Errorf("mint is not initialized")
	}
	return &mint, nil
}

func (c *Client) observe(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}
