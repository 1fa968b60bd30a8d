package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL uint64 = 1_000_000_000

// MintAccountSize is the size of the base SPL mint layout. Token-2022 mints with
// extensions are longer but share this prefix.
const MintAccountSize = 82

// Transfer is a decoded view of a transfer instruction built by a tool.
// This is our domain model, independent of the instruction builder types.
type Transfer struct {
	Program     string // "system" or "token"
	Amount      uint64 // lamports for system transfers, base units for token transfers
	Source      solana.PublicKey
	Destination solana.PublicKey
	Authority   solana.PublicKey // owner signing the transfer; equals Source for system transfers
}

// AssociatedTokenAddress derives the associated token account of owner for mint.
func AssociatedTokenAddress(owner, mint solana.PublicKey) (solana.PublicKey, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to derive associated token account: %w", err)
	}
	return ata, nil
}
