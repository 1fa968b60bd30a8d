package toolkit

import (
	"context"
	"math"

	"github.com/brojonat/solkit/service/agent"
	"github.com/brojonat/solkit/service/tools"
)

// DeployTokenTool deploys a fungible token with Metaplex metadata.
type DeployTokenTool struct {
	agent *agent.Agent
}

func NewDeployTokenTool(a *agent.Agent) *DeployTokenTool {
	return &DeployTokenTool{agent: a}
}

func (t *DeployTokenTool) Name() string { return "deploy_token" }

func (t *DeployTokenTool) Description() string {
	return `Deploy a new SPL token with Metaplex metadata.

  Inputs (input is a JSON string):
  name: string, eg "My Token" (required)
  uri: string, metadata JSON url (required)
  symbol: string, eg "MTK" (required)
  decimals: number, eg 9 (optional, default 9)
  initialSupply: number, eg 1000000 (optional)
  `
}

func (t *DeployTokenTool) Params() []Param {
	return []Param{
		{Name: "name", Type: "string", Required: true, Description: "Token name"},
		{Name: "uri", Type: "string", Required: true, Description: "Metadata JSON url"},
		{Name: "symbol", Type: "string", Required: true, Description: "Token symbol"},
		{Name: "decimals", Type: "number", Description: "Decimals, default 9"},
		{Name: "initialSupply", Type: "number", Description: "Whole tokens minted to the agent wallet"},
	}
}

type deployTokenInput struct {
	Name          string   `json:"name"`
	URI           string   `json:"uri"`
	Symbol        string   `json:"symbol"`
	Decimals      *int64   `json:"decimals"`
	InitialSupply *float64 `json:"initialSupply"`
}

type deployTokenOutput struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Mint        string `json:"mint"`
	TxID        string `json:"txId"`
	Transaction string `json:"transaction,omitempty"`
}

func (t *DeployTokenTool) Call(ctx context.Context, input string) string {
	params, err := parseDeployTokenInput(input)
	if err != nil {
		return ErrorJSON(err, CodeInvalidInput)
	}

	res, err := tools.DeployToken(ctx, t.agent, params)
	if err != nil {
		return ErrorJSON(err, CodeToolExecutionFailed)
	}

	out := deployTokenOutput{
		Status:  StatusSuccess,
		Message: "Token deployed successfully",
		Mint:    res.Mint.String(),
		TxID:    res.Signature.String(),
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

func parseDeployTokenInput(input string) (tools.DeployTokenParams, error) {
	var in deployTokenInput
	if err := decodeInput(input, &in); err != nil {
		return tools.DeployTokenParams{}, err
	}

	switch {
	case in.Name == "":
		return tools.DeployTokenParams{}, InvalidInput("name is required")
	case in.URI == "":
		return tools.DeployTokenParams{}, InvalidInput("uri is required")
	case in.Symbol == "":
		return tools.DeployTokenParams{}, InvalidInput("symbol is required")
	}

	params := tools.DeployTokenParams{
		Name:          in.Name,
		URI:           in.URI,
		Symbol:        in.Symbol,
		InitialSupply: in.InitialSupply,
	}
	if in.Decimals != nil {
		if *in.Decimals < 0 || *in.Decimals > math.MaxUint8 {
			return tools.DeployTokenParams{}, InvalidInput("decimals must be between 0 and 255")
		}
		d := uint8(*in.Decimals)
		params.Decimals = &d
	}
	if in.InitialSupply != nil && *in.InitialSupply < 0 {
		return tools.DeployTokenParams{}, InvalidInput("initialSupply must not be negative")
	}
	return params, nil
}
