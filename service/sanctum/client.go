// Package sanctum talks to the Sanctum S API, which returns ready-made
// liquidity transactions for the caller to sign.
package sanctum

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"

	"github.com/brojonat/solkit/service/agent"
	"github.com/brojonat/solkit/service/metrics"
)

// DefaultBaseURL is the public Sanctum S API.
const DefaultBaseURL = "https://sanctum-s-api.fly.dev"

// DefaultUnitLimit is the compute unit limit requested with the auto priority fee.
const DefaultUnitLimit = 300_000

// Error codes reported through APIError.
const (
	CodeAPIError      = "SANCTUM_API_ERROR"
	CodeRequestFailed = "SANCTUM_REQUEST_FAILED"
)

// APIError is returned for any failed Sanctum call.
type APIError struct {
	Code       string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	switch {
	case e.Code == CodeRequestFailed:
		return fmt.Sprintf("sanctum request failed: %s", e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("sanctum api error (%d): %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("sanctum api error: %s", e.Message)
	}
}

func (e *APIError) Unwrap() error { return e.Err }

// ErrorCode exposes the code to tool adapters.
func (e *APIError) ErrorCode() string { return e.Code }

// Client is the HTTP client for the Sanctum S API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// NewClient creates a Sanctum client. A nil httpClient gets a 30s timeout.
func NewClient(baseURL string, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
		metrics:    m,
	}
}

type priorityFee struct {
	Auto autoPriorityFee `json:"Auto"`
}

type autoPriorityFee struct {
	MaxUnitPriceMicroLamports uint64 `json:"max_unit_price_micro_lamports"`
	UnitLimit                 uint32 `json:"unit_limit"`
}

type addLiquidityRequest struct {
	Amount       string      `json:"amount"`
	DstLpAcc     *string     `json:"dstLpAcc"`
	LSTMint      string      `json:"lstMint"`
	PriorityFee  priorityFee `json:"priorityFee"`
	QuotedAmount string      `json:"quotedAmount"`
	Signer       string      `json:"signer"`
	SrcLstAcc    *string     `json:"srcLstAcc"`
}

type transactionResponse struct {
	Tx string `json:"tx"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// AddLiquidityTx asks Sanctum for an unsigned add-liquidity transaction.
func (c *Client) AddLiquidityTx(ctx context.Context, signer solanago.PublicKey, params agent.AddLiquidityParams) (*solanago.Transaction, error) {
	reqBody := addLiquidityRequest{
		Amount:  params.Amount,
		LSTMint: params.LSTMint,
		PriorityFee: priorityFee{Auto: autoPriorityFee{
			MaxUnitPriceMicroLamports: params.PriorityFee,
			UnitLimit:                 DefaultUnitLimit,
		}},
		QuotedAmount: params.QuotedAmount,
		Signer:       signer.String(),
	}

	var out transactionResponse
	if err := c.post(ctx, "/v1/liquidity/add", reqBody, &out); err != nil {
		return nil, err
	}

	tx, err := decodeTransaction(out.Tx)
	if err != nil {
		return nil, &APIError{Code: CodeAPIError, Message: err.Error(), Err: err}
	}

	c.logger.DebugContext(ctx, "received liquidity transaction",
		"lst_mint", params.LSTMint,
		"amount", params.Amount,
		"instructions", len(tx.Message.Instructions),
	)
	return tx, nil
}

func (c *Client) post(ctx context.Context, path string, reqBody, out any) error {
	start := time.Now()
	status := "error"
	defer func() {
		if c.metrics != nil {
			c.metrics.RecordSanctumRequest(path, status, time.Since(start).Seconds())
		}
	}()

	body, err := json.Marshal(reqBody)
	if err != nil {
		return &APIError{Code: CodeRequestFailed, Message: fmt.Sprintf("failed to marshal request: %v", err), Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return &APIError{Code: CodeRequestFailed, Message: fmt.Sprintf("failed to create request: %v", err), Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.ErrorContext(ctx, "sanctum request failed", "path", path, "error", err)
		return &APIError{Code: CodeRequestFailed, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseErrorResponse(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Code: CodeAPIError, StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to decode response: %v", err), Err: err}
	}
	status = "success"
	return nil
}

func (c *Client) parseErrorResponse(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := strings.TrimSpace(string(raw))
	var er errorResponse
	if err := json.Unmarshal(raw, &er); err == nil {
		switch {
		case er.Message != "":
			msg = er.Message
		case er.Error != "":
			msg = er.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return &APIError{Code: CodeAPIError, StatusCode: resp.StatusCode, Message: msg}
}

func decodeTransaction(encoded string) (*solanago.Transaction, error) {
	if encoded == "" {
		return nil, fmt.Errorf("response contained no transaction")
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid transaction encoding: %w", err)
	}
	tx, err := solanago.TransactionFromDecoder(bin.NewBinDecoder(raw))
	if err != nil {
		return nil, fmt.Errorf("invalid transaction: %w", err)
	}
	return tx, nil
}
