// Package tools holds the single-purpose Solana operations an agent can run.
// Each one is a short sequential chain of RPC calls ending in agent.SignOrSend.
package tools

import (
	"context"
	"errors"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"

	"github.com/brojonat/solkit/service/agent"
	"github.com/brojonat/solkit/service/solana"
	"github.com/brojonat/solkit/service/squads"
)

// TreasuryTransferParams describes a transfer out of a multisig vault.
type TreasuryTransferParams struct {
	Amount     float64 // SOL, or whole tokens when Mint is set
	To         solanago.PublicKey
	VaultIndex uint8
	Mint       *solanago.PublicKey
}

// ErrMultisigNotFound is returned when the agent has no multisig.
var ErrMultisigNotFound = errors.New("multisig account not found")

// TreasuryTransfer is the outcome of a proposed treasury transfer.
type TreasuryTransfer struct {
	*agent.TxResult
	Multisig         solanago.PublicKey
	Vault            solanago.PublicKey
	TransactionIndex uint64
}

// TransferFromTreasury proposes a vault transaction that moves SOL or SPL
// tokens from the agent's multisig vault to p.To. The multisig is the one
// created with the agent wallet as create key. The vault at p.VaultIndex is
// both the source of the funds and the transfer authority; the agent wallet
// only pays fees and rent for the proposal.
func TransferFromTreasury(ctx context.Context, a *agent.Agent, p TreasuryTransferParams) (*TreasuryTransfer, error) {
	out, err := transferFromTreasury(ctx, a, p)
	if err != nil {
		return nil, fmt.Errorf("Transfer failed: %w", err)
	}
	return out, nil
}

func transferFromTreasury(ctx context.Context, a *agent.Agent, p TreasuryTransferParams) (*TreasuryTransfer, error) {
	if p.Amount <= 0 {
		return nil, fmt.Errorf("amount must be positive, got %v", p.Amount)
	}
	creator := a.PublicKey()

	multisigPDA, _, err := squads.MultisigPDA(creator)
	if err != nil {
		return nil, err
	}
	data, err := a.Connection.GetAccountData(ctx, multisigPDA)
	if err != nil {
		if errors.Is(err, solana.ErrAccountNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrMultisigNotFound, multisigPDA)
		}
		return nil, err
	}
	ms, err := squads.DecodeMultisig(data)
	if err != nil {
		return nil, err
	}
	txIndex := ms.NextTransactionIndex()

	vault, _, err := squads.VaultPDA(multisigPDA, p.VaultIndex)
	if err != nil {
		return nil, err
	}

	transfer, err := buildVaultTransfer(ctx, a, vault, p)
	if err != nil {
		return nil, err
	}
	if decoded, err := solana.DecodeTransfer(transfer); err == nil {
		a.Logger().DebugContext(ctx, "built vault transfer",
			"program", decoded.Program,
			"base_units", decoded.Amount,
			"source", decoded.Source.String(),
			"destination", decoded.Destination.String(),
		)
	}

	msg, err := squads.CompileVaultMessage(vault, []solanago.Instruction{transfer})
	if err != nil {
		return nil, err
	}
	txPDA, _, err := squads.TransactionPDA(multisigPDA, txIndex)
	if err != nil {
		return nil, err
	}

	create, err := squads.NewVaultTransactionCreateInstruction(
		squads.VaultTransactionCreateAccounts{
			Multisig:    multisigPDA,
			Transaction: txPDA,
			Creator:     creator,
			RentPayer:   creator,
		},
		squads.VaultTransactionCreateArgs{
			VaultIndex: p.VaultIndex,
			Message:    msg,
		},
	)
	if err != nil {
		return nil, err
	}

	blockhash, err := a.Connection.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := solanago.NewTransaction(
		[]solanago.Instruction{create},
		blockhash,
		solanago.TransactionPayer(creator),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	a.Logger().InfoContext(ctx, "proposing treasury transfer",
		"multisig", multisigPDA.String(),
		"vault", vault.String(),
		"vault_index", p.VaultIndex,
		"transaction_index", txIndex,
		"to", p.To.String(),
		"amount", p.Amount,
	)

	res, err := agent.SignOrSend(ctx, a, tx)
	if err != nil {
		return nil, err
	}
	return &TreasuryTransfer{
		TxResult:         res,
		Multisig:         multisigPDA,
		Vault:            vault,
		TransactionIndex: txIndex,
	}, nil
}

// buildVaultTransfer returns the instruction the vault will execute.
func buildVaultTransfer(ctx context.Context, a *agent.Agent, vault solanago.PublicKey, p TreasuryTransferParams) (solanago.Instruction, error) {
	if p.Mint == nil {
		lamports, err := solana.SOLToLamports(p.Amount)
		if err != nil {
			return nil, err
		}
		return system.NewTransferInstruction(lamports, vault, p.To).Build(), nil
	}

	mint := *p.Mint
	fromATA, err := solana.AssociatedTokenAddress(vault, mint)
	if err != nil {
		return nil, err
	}
	toATA, err := solana.AssociatedTokenAddress(p.To, mint)
	if err != nil {
		return nil, err
	}
	decimals, err := a.Connection.GetMintDecimals(ctx, mint)
	if err != nil {
		return nil, err
	}
	units, err := solana.ToBaseUnits(p.Amount, decimals)
	if err != nil {
		return nil, err
	}
	return token.NewTransferInstruction(units, fromATA, toATA, vault, nil).Build(), nil
}
