package toolkit

import (
	"context"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/brojonat/solkit/service/agent"
)

// LiquidityAdder is the agent capability the liquidity tool calls.
type LiquidityAdder interface {
	AddSanctumLiquidity(ctx context.Context, params agent.AddLiquidityParams) (*agent.LiquidityResult, error)
}

const sanctumAddLiquidityDescription = `Add liquidity to LST pool on the Sanctum.

  Inputs (input is a JSON string):
  lstMint: string, eg "So11111111111111111111111111111111111111112" (required)
  amount: string, eg "1000000000" (required)
  quotedAmount: string, eg "900000000" (required)
  priorityFee: number, eg 5000 (required)
  `

// SanctumAddLiquidityTool adds liquidity to a Sanctum LST pool.
type SanctumAddLiquidityTool struct {
	agent LiquidityAdder
}

// NewSanctumAddLiquidityTool wraps an agent.
func NewSanctumAddLiquidityTool(a LiquidityAdder) *SanctumAddLiquidityTool {
	return &SanctumAddLiquidityTool{agent: a}
}

func (t *SanctumAddLiquidityTool) Name() string        { return "sanctum_add_liquidity" }
func (t *SanctumAddLiquidityTool) Description() string { return sanctumAddLiquidityDescription }

func (t *SanctumAddLiquidityTool) Params() []Param {
	return []Param{
		{Name: "lstMint", Type: "string", Required: true, Description: "LST mint address"},
		{Name: "amount", Type: "string", Required: true, Description: "Amount of LST to deposit, in base units"},
		{Name: "quotedAmount", Type: "string", Required: true, Description: "Quoted LP token amount, in base units"},
		{Name: "priorityFee", Type: "number", Required: true, Description: "Max compute unit price in micro-lamports"},
	}
}

type sanctumAddLiquidityInput struct {
	LSTMint      string      `json:"lstMint"`
	Amount       *flexString `json:"amount"`
	QuotedAmount *flexString `json:"quotedAmount"`
	PriorityFee  *uint64     `json:"priorityFee"`
}

type sanctumAddLiquidityOutput struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	TxID        string `json:"txId"`
	Transaction string `json:"transaction,omitempty"`
}

func (t *SanctumAddLiquidityTool) Call(ctx context.Context, input string) string {
	params, err := parseSanctumAddLiquidityInput(input)
	if err != nil {
		return ErrorJSON(err, CodeUnknown)
	}

	res, err := t.agent.AddSanctumLiquidity(ctx, params)
	if err != nil {
		return ErrorJSON(err, CodeUnknown)
	}

	out := sanctumAddLiquidityOutput{
		Status:  StatusSuccess,
		Message: "Liquidity added successfully",
		TxID:    res.TxID,
	}
	if res.Transaction != nil {
		encoded, err := res.Transaction.ToBase64()
		if err != nil {
			return ErrorJSON(err, CodeUnknown)
		}
		out.Transaction = encoded
	}
	return successJSON(out)
}

func parseSanctumAddLiquidityInput(input string) (agent.AddLiquidityParams, error) {
	var in sanctumAddLiquidityInput
	if err := decodeInput(input, &in); err != nil {
		return agent.AddLiquidityParams{}, err
	}

	if in.LSTMint == "" {
		return agent.AddLiquidityParams{}, InvalidInput("lstMint is required")
	}
	if _, err := solanago.PublicKeyFromBase58(in.LSTMint); err != nil {
		return agent.AddLiquidityParams{}, InvalidInput("lstMint is not a valid address: %v", err)
	}
	amount, err := requireUint("amount", in.Amount)
	if err != nil {
		return agent.AddLiquidityParams{}, err
	}
	quoted, err := requireUint("quotedAmount", in.QuotedAmount)
	if err != nil {
		return agent.AddLiquidityParams{}, err
	}
	if in.PriorityFee == nil {
		return agent.AddLiquidityParams{}, InvalidInput("priorityFee is required")
	}

	return agent.AddLiquidityParams{
		LSTMint:      in.LSTMint,
		Amount:       amount,
		QuotedAmount: quoted,
		PriorityFee:  *in.PriorityFee,
	}, nil
}
