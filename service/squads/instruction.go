package squads

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

var vaultTransactionCreateDiscriminator = discriminator("global", "vault_transaction_create")

// VaultTransactionCreateArgs are the instruction arguments.
type VaultTransactionCreateArgs struct {
	VaultIndex       uint8
	EphemeralSigners uint8
	Message          *VaultMessage
	Memo             *string
}

// VaultTransactionCreateAccounts are the accounts the instruction touches.
type VaultTransactionCreateAccounts struct {
	Multisig    solanago.PublicKey
	Transaction solanago.PublicKey
	Creator     solanago.PublicKey
	RentPayer   solanago.PublicKey
}

// NewVaultTransactionCreateInstruction builds vault_transaction_create.
func NewVaultTransactionCreateInstruction(
	accounts VaultTransactionCreateAccounts,
	args VaultTransactionCreateArgs,
) (solanago.Instruction, error) {
	if args.Message == nil {
		return nil, fmt.Errorf("vault transaction message is required")
	}
	msg, err := args.Message.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to encode vault message: %w", err)
	}

	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := writeAll(
		func() error { return enc.WriteBytes(vaultTransactionCreateDiscriminator[:], false) },
		func() error { return enc.WriteUint8(args.VaultIndex) },
		func() error { return enc.WriteUint8(args.EphemeralSigners) },
		func() error { return enc.WriteUint32(uint32(len(msg)), binary.LittleEndian) },
		func() error { return enc.WriteBytes(msg, false) },
		func() error { return writeOptionString(enc, args.Memo) },
	); err != nil {
		return nil, fmt.Errorf("failed to encode vault_transaction_create: %w", err)
	}

	metas := solanago.AccountMetaSlice{
		solanago.Meta(accounts.Multisig).WRITE(),
		solanago.Meta(accounts.Transaction).WRITE(),
		solanago.Meta(accounts.Creator).SIGNER(),
		solanago.Meta(accounts.RentPayer).WRITE().SIGNER(),
		solanago.Meta(solanago.SystemProgramID),
	}
	return solanago.NewInstruction(ProgramID, metas, buf.Bytes()), nil
}

func writeOptionString(enc *bin.Encoder, s *string) error {
	if s == nil {
		return enc.WriteUint8(0)
	}
	if err := enc.WriteUint8(1); err != nil {
		return err
	}
	if err := enc.WriteUint32(uint32(len(*s)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(*s), false)
}

func writeAll(steps ...func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
