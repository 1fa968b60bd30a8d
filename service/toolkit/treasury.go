package toolkit

import (
	"context"
	"math"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/brojonat/solkit/service/agent"
	"github.com/brojonat/solkit/service/tools"
)

// TreasuryTransferTool proposes a transfer out of the agent's Squads vault.
type TreasuryTransferTool struct {
	agent *agent.Agent
}

func NewTreasuryTransferTool(a *agent.Agent) *TreasuryTransferTool {
	return &TreasuryTransferTool{agent: a}
}

func (t *TreasuryTransferTool) Name() string { return "multisig_transfer_from_treasury" }

func (t *TreasuryTransferTool) Description() string {
	return `Transfer SOL or SPL tokens to a recipient from a multisig vault.

  Inputs (input is a JSON string):
  amount: number, eg 1.5 (required)
  to: string, recipient address (required)
  vaultIndex: number, eg 0 (optional)
  mint: string, SPL token mint; omit for SOL (optional)
  `
}

func (t *TreasuryTransferTool) Params() []Param {
	return []Param{
		{Name: "amount", Type: "number", Required: true, Description: "Amount in SOL or whole tokens"},
		{Name: "to", Type: "string", Required: true, Description: "Recipient address"},
		{Name: "vaultIndex", Type: "number", Description: "Vault index, default 0"},
		{Name: "mint", Type: "string", Description: "SPL token mint, omit for SOL"},
	}
}

type treasuryTransferInput struct {
	Amount     *float64 `json:"amount"`
	To         string   `json:"to"`
	VaultIndex *int64   `json:"vaultIndex"`
	Mint       string   `json:"mint"`
}

type treasuryTransferOutput struct {
	Status           string `json:"status"`
	Message          string `json:"message"`
	TxID             string `json:"txId"`
	TransactionIndex uint64 `json:"transactionIndex"`
	Multisig         string `json:"multisig"`
	Vault            string `json:"vault"`
	Transaction      string `json:"transaction,omitempty"`
}

func (t *TreasuryTransferTool) Call(ctx context.Context, input string) string {
	params, err := parseTreasuryTransferInput(input)
	if err != nil {
		return ErrorJSON(err, CodeInvalidInput)
	}

	res, err := tools.TransferFromTreasury(ctx, t.agent, params)
	if err != nil {
		return ErrorJSON(err, CodeToolExecutionFailed)
	}

	out := treasuryTransferOutput{
		Status:           StatusSuccess,
		Message:          "Transfer proposal created successfully",
		TxID:             res.Signature.String(),
		TransactionIndex: res.TransactionIndex,
		Multisig:         res.Multisig.String(),
		Vault:            res.Vault.String(),
	}
	if !res.Sent {
		encoded, err := res.Base64()
		if err != nil {
			return ErrorJSON(err, CodeUnknown)
		}
		out.Transaction = encoded
	}
	return successJSON(out)
}

func parseTreasuryTransferInput(input string) (tools.TreasuryTransferParams, error) {
	var in treasuryTransferInput
	if err := decodeInput(input, &in); err != nil {
		return tools.TreasuryTransferParams{}, err
	}

	if in.Amount == nil {
		return tools.TreasuryTransferParams{}, InvalidInput("amount is required")
	}
	if in.To == "" {
		return tools.TreasuryTransferParams{}, InvalidInput("to is required")
	}
	to, err := solanago.PublicKeyFromBase58(in.To)
	if err != nil {
		return tools.TreasuryTransferParams{}, InvalidInput("to is not a valid address: %v", err)
	}

	params := tools.TreasuryTransferParams{Amount: *in.Amount, To: to}
	if in.VaultIndex != nil {
		if *in.VaultIndex < 0 || *in.VaultIndex > math.MaxUint8 {
			return tools.TreasuryTransferParams{}, InvalidInput("vaultIndex must be between 0 and 255")
		}
		params.VaultIndex = uint8(*in.VaultIndex)
	}
	if in.Mint != "" {
		mint, err := solanago.PublicKeyFromBase58(in.Mint)
		if err != nil {
			return tools.TreasuryTransferParams{}, InvalidInput("mint is not a valid address: %v", err)
		}
		params.Mint = &mint
	}
	return params, nil
}
