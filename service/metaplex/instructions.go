package metaplex

import (
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

// CreateV1Params describes a new fungible token.
type CreateV1Params struct {
	Mint      solanago.PublicKey // must sign, the program creates the account
	Authority solanago.PublicKey // mint authority, update authority and payer
	Name      string
	Symbol    string
	URI       string
	Decimals  uint8
}

// NewCreateV1Instruction creates the mint and its metadata in one instruction.
// Seller fee is zero and the authority is the sole verified creator.
func NewCreateV1Instruction(p CreateV1Params) (solanago.Instruction, error) {
	metadata, err := MetadataPDA(p.Mint)
	if err != nil {
		return nil, err
	}

	asset := AssetData{
		Name:                 p.Name,
		Symbol:               p.Symbol,
		URI:                  p.URI,
		SellerFeeBasisPoints: 0,
		Creators:             []Creator{{Address: p.Authority, Verified: true, Share: 100}},
		PrimarySaleHappened:  false,
		IsMutable:            true,
		TokenStandard:        TokenStandardFungible,
	}

	data, err := encode(func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(instructionCreate); err != nil {
			return err
		}
		if err := enc.WriteUint8(argsV1); err != nil {
			return err
		}
		if err := asset.MarshalWithEncoder(enc); err != nil {
			return err
		}
		// decimals: Some(u8)
		if err := enc.WriteUint8(1); err != nil {
			return err
		}
		if err := enc.WriteUint8(p.Decimals); err != nil {
			return err
		}
		// print_supply: None
		return enc.WriteUint8(0)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode CreateV1: %w", err)
	}

	accounts := solanago.AccountMetaSlice{
		solanago.Meta(metadata).WRITE(),
		optional(), // master edition
		solanago.Meta(p.Mint).WRITE().SIGNER(),
		solanago.Meta(p.Authority).SIGNER(),
		solanago.Meta(p.Authority).WRITE().SIGNER(), // payer
		solanago.Meta(p.Authority).SIGNER(),         // update authority
		solanago.Meta(solanago.SystemProgramID),
		solanago.Meta(solanago.SysVarInstructionsPubkey),
		solanago.Meta(solanago.TokenProgramID),
	}
	return solanago.NewInstruction(ProgramID, accounts, data), nil
}

// MintV1Params mints fungible supply into the owner's associated token account.
type MintV1Params struct {
	Mint       solanago.PublicKey
	Authority  solanago.PublicKey // mint authority and payer
	TokenOwner solanago.PublicKey
	Amount     uint64 // base units
}

// NewMintV1Instruction mints Amount to ATA(TokenOwner, Mint), creating it if needed.
func NewMintV1Instruction(p MintV1Params) (solanago.Instruction, error) {
	metadata, err := MetadataPDA(p.Mint)
	if err != nil {
		return nil, err
	}
	ata, _, err := solanago.FindAssociatedTokenAddress(p.TokenOwner, p.Mint)
	if err != nil {
		return nil, fmt.Errorf("failed to derive token account: %w", err)
	}

	data, err := encode(func(enc *bin.Encoder) error {
		if err := enc.WriteUint8(instructionMint); err != nil {
			return err
		}
		if err := enc.WriteUint8(argsV1); err != nil {
			return err
		}
		if err := enc.WriteUint64(p.Amount, binary.LittleEndian); err != nil {
			return err
		}
		// authorization_data: None
		return enc.WriteUint8(0)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode MintV1: %w", err)
	}

	accounts := solanago.AccountMetaSlice{
		solanago.Meta(ata).WRITE(),
		solanago.Meta(p.TokenOwner),
		solanago.Meta(metadata),
		optional(), // master edition
		optional(), // token record
		solanago.Meta(p.Mint).WRITE(),
		solanago.Meta(p.Authority).SIGNER(),
		optional(), // delegate record
		solanago.Meta(p.Authority).WRITE().SIGNER(), // payer
		solanago.Meta(solanago.SystemProgramID),
		solanago.Meta(solanago.SysVarInstructionsPubkey),
		solanago.Meta(solanago.TokenProgramID),
		solanago.Meta(solanago.SPLAssociatedTokenAccountProgramID),
		optional(), // authorization rules program
		optional(), // authorization rules
	}
	return solanago.NewInstruction(ProgramID, accounts, data), nil
}

// DecodeMintAmount returns the amount of a MintV1 instruction and whether ix is one.
func DecodeMintAmount(ix solanago.Instruction) (uint64, bool) {
	if !ix.ProgramID().Equals(ProgramID) {
		return 0, false
	}
	data, err := ix.Data()
	if err != nil || len(data) < 10 || data[0] != instructionMint {
		return 0, false
	}
	return binary.LittleEndian.Uint64(data[2:10]), true
}

// IsCreateV1 reports whether ix is a CreateV1 instruction.
func IsCreateV1(ix solanago.Instruction) bool {
	if !ix.ProgramID().Equals(ProgramID) {
		return false
	}
	data, err := ix.Data()
	return err == nil && len(data) > 0 && data[0] == instructionCreate
}
