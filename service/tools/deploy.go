package tools

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"

	"github.com/brojonat/solkit/service/agent"
	"github.com/brojonat/solkit/service/metaplex"
	"github.com/brojonat/solkit/service/solana"
)

// DefaultDecimals is used when DeployTokenParams.Decimals is nil.
const DefaultDecimals uint8 = 9

// DeployTokenParams describes a new fungible token.
type DeployTokenParams struct {
	Name          string
	URI           string
	Symbol        string
	Decimals      *uint8
	InitialSupply *float64 // whole tokens minted to the agent wallet
}

// DeployedToken is the outcome of DeployToken.
type DeployedToken struct {
	*agent.TxResult
	Mint solanago.PublicKey
}

// DeployToken creates a mint with Metaplex metadata and optionally mints an
// initial supply to the agent wallet.
func DeployToken(ctx context.Context, a *agent.Agent, p DeployTokenParams) (*DeployedToken, error) {
	out, err := deployToken(ctx, a, p)
	if err != nil {
		return nil, fmt.Errorf("Token deployment failed: %w", err)
	}
	return out, nil
}

func deployToken(ctx context.Context, a *agent.Agent, p DeployTokenParams) (*DeployedToken, error) {
	if p.Name == "" || p.Symbol == "" || p.URI == "" {
		return nil, fmt.Errorf("name, symbol and uri are required")
	}
	decimals := DefaultDecimals
	if p.Decimals != nil {
		decimals = *p.Decimals
	}

	mintKey, err := solanago.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("failed to generate mint keypair: %w", err)
	}
	mint := mintKey.PublicKey()
	owner := a.PublicKey()

	instructions, err := deployInstructions(mint, owner, p, decimals)
	if err != nil {
		return nil, err
	}

	blockhash, err := a.Connection.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := solanago.NewTransaction(instructions, blockhash, solanago.TransactionPayer(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	a.Logger().InfoContext(ctx, "deploying token",
		"mint", mint.String(),
		"symbol", p.Symbol,
		"decimals", decimals,
		"mints_supply", len(instructions) > 1,
	)

	res, err := agent.SignOrSend(ctx, a, tx, mintKey)
	if err != nil {
		return nil, err
	}
	return &DeployedToken{TxResult: res, Mint: mint}, nil
}

func deployInstructions(mint, owner solanago.PublicKey, p DeployTokenParams, decimals uint8) ([]solanago.Instruction, error) {
	create, err := metaplex.NewCreateV1Instruction(metaplex.CreateV1Params{
		Mint:      mint,
		Authority: owner,
		Name:      p.Name,
		Symbol:    p.Symbol,
		URI:       p.URI,
		Decimals:  decimals,
	})
	if err != nil {
		return nil, err
	}
	instructions := []solanago.Instruction{create}

	if p.InitialSupply == nil || *p.InitialSupply == 0 {
		return instructions, nil
	}

	amount, err := solana.ToBaseUnits(*p.InitialSupply, decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid initial supply: %w", err)
	}
	mintTo, err := metaplex.NewMintV1Instruction(metaplex.MintV1Params{
		Mint:       mint,
		Authority:  owner,
		TokenOwner: owner,
		Amount:     amount,
	})
	if err != nil {
		return nil, err
	}
	return append(instructions, mintTo), nil
}
