package solana

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Well-known Solana program IDs
var (
	// SystemProgramID is the native SOL transfer program
	SystemProgramID = solana.SystemProgramID

	// TokenProgramID is the SPL Token program
	TokenProgramID = solana.TokenProgramID

	// Token2022ProgramID is the Token Extensions program (Token-2022)
	Token2022ProgramID = solana.MustPublicKeyFromBase58("TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb")

	// AssociatedTokenProgramID derives associated token accounts
	AssociatedTokenProgramID = solana.SPLAssociatedTokenAccountProgramID
)

// System Program instruction types
const (
	SystemProgramTransferInstruction = uint32(2)
)

// Token Program instruction types
const (
	TokenProgramTransferInstruction        = uint8(3)
	TokenProgramTransferCheckedInstruction = uint8(12)
)

// DecodeTransfer inspects a built instruction and returns the transfer it encodes.
// Only System Transfer, Token Transfer and Token TransferChecked are recognized.
func DecodeTransfer(ix solana.Instruction) (*Transfer, error) {
	data, err := ix.Data()
	if err != nil {
		return nil, fmt.Errorf("failed to read instruction data: %w", err)
	}
	accounts := ix.Accounts()
	programID := ix.ProgramID()

	switch {
	case programID.Equals(SystemProgramID):
		return decodeSystemTransfer(data, accounts)
	case programID.Equals(TokenProgramID), programID.Equals(Token2022ProgramID):
		return decodeTokenTransfer(data, accounts)
	default:
		return nil, fmt.Errorf("unsupported program: %s", programID)
	}
}

// decodeSystemTransfer extracts the amount and accounts from a System Program Transfer instruction.
func decodeSystemTransfer(data []byte, accounts []*solana.AccountMeta) (*Transfer, error) {
	// System Transfer instruction format:
	// [0..4]  = instruction type (u32, should be 2 for Transfer)
	// [4..12] = lamports (u64)
	if len(data) < 12 {
		return nil, fmt.Errorf("instruction data too short: %d bytes", len(data))
	}

	instructionType := binary.LittleEndian.Uint32(data[0:4])
	if instructionType != SystemProgramTransferInstruction {
		return nil, fmt.Errorf("not a transfer instruction: type %d", instructionType)
	}

	// System Transfer accounts: [from, to]
	if len(accounts) < 2 {
		return nil, fmt.Errorf("transfer missing accounts: got %d", len(accounts))
	}

	return &Transfer{
		Program:     "system",
		Amount:      binary.LittleEndian.Uint64(data[4:12]),
		Source:      accounts[0].PublicKey,
		Destination: accounts[1].PublicKey,
		Authority:   accounts[0].PublicKey,
	}, nil
}

// decodeTokenTransfer extracts amount and accounts from an SPL Token transfer instruction.
func decodeTokenTransfer(data []byte, accounts []*solana.AccountMeta) (*Transfer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty instruction data")
	}

	switch data[0] {
	case TokenProgramTransferInstruction:
		// [0]     = instruction type (u8, 3 = Transfer)
		// [1..9]  = amount (u64)
		if len(data) < 9 {
			return nil, fmt.Errorf("transfer instruction data too short")
		}
		// Account layout for Transfer: [source, destination, authority]
		if len(accounts) < 3 {
			return nil, fmt.Errorf("transfer missing accounts: got %d", len(accounts))
		}
		return &Transfer{
			Program:     "token",
			Amount:      binary.LittleEndian.Uint64(data[1:9]),
			Source:      accounts[0].PublicKey,
			Destination: accounts[1].PublicKey,
			Authority:   accounts[2].PublicKey,
		}, nil

	case TokenProgramTransferCheckedInstruction:
		// [0]      = instruction type (u8, 12 = TransferChecked)
		// [1..9]   = amount (u64)
		// [9]      = decimals (u8)
		if len(data) < 10 {
			return nil, fmt.Errorf("transferChecked instruction data too short")
		}
		// [source, mint, destination, authority, ...]
		if len(accounts) < 4 {
			return nil, fmt.Errorf("transferChecked missing accounts")
		}
		return &Transfer{
			Program:     "token",
			Amount:      binary.LittleEndian.Uint64(data[1:9]),
			Source:      accounts[0].PublicKey,
			Destination: accounts[2].PublicKey,
			Authority:   accounts[3].PublicKey,
		}, nil

	default:
		return nil, fmt.Errorf("unknown token instruction type: %d", data[0])
	}
}
