// Package squads builds the Squads v4 multisig accounts and instructions the
// treasury tool needs. Proposal approval and execution are left to Squads clients.
package squads

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// ProgramID is the Squads v4 multisig program.
var ProgramID = solanago.MustPublicKeyFromBase58("SQDS4ep65T869zMMBKyuUq6aD6EgTu8psMjkvj52pCf")

var (
	seedPrefix      = []byte("multisig")
	seedMultisig    = []byte("multisig")
	seedVault       = []byte("vault")
	seedTransaction = []byte("transaction")
)

// MultisigPDA derives the multisig account for a create key.
func MultisigPDA(createKey solanago.PublicKey) (solanago.PublicKey, uint8, error) {
	pda, bump, err := solanago.FindProgramAddress(
		[][]byte{seedPrefix, seedMultisig, createKey[:]},
		ProgramID,
	)
	if err != nil {
		return solanago.PublicKey{}, 0, fmt.Errorf("failed to derive multisig PDA: %w", err)
	}
	return pda, bump, nil
}

// VaultPDA derives the vault owned by a multisig at the given index.
func VaultPDA(multisig solanago.PublicKey, index uint8) (solanago.PublicKey, uint8, error) {
	pda, bump, err := solanago.FindProgramAddress(
		[][]byte{seedPrefix, multisig[:], seedVault, {index}},
		ProgramID,
	)
	if err != nil {
		return solanago.PublicKey{}, 0, fmt.Errorf("failed to derive vault PDA: %w", err)
	}
	return pda, bump, nil
}

// TransactionPDA derives the vault transaction account at a transaction index.
func TransactionPDA(multisig solanago.PublicKey, index uint64) (solanago.PublicKey, uint8, error) {
	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)
	pda, bump, err := solanago.FindProgramAddress(
		[][]byte{seedPrefix, multisig[:], seedTransaction, idx[:]},
		ProgramID,
	)
	if err != nil {
		return solanago.PublicKey{}, 0, fmt.Errorf("failed to derive transaction PDA: %w", err)
	}
	return pda, bump, nil
}

// discriminator returns the 8 byte anchor prefix for "namespace:name".
func discriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var out [8]byte
	copy(out[:], sum[:8])
	return out
}
