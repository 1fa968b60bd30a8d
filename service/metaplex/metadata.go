// Package metaplex builds Token Metadata instructions for fungible tokens.
package metaplex

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

// ProgramID is the Metaplex Token Metadata program.
var ProgramID = solanago.MustPublicKeyFromBase58("metaqbxxUerdq28cj1RbAWkYQm3ybzjb6a8bt518x1s")

// TokenStandard mirrors the program's enum.
type TokenStandard uint8

const (
	TokenStandardNonFungible TokenStandard = iota
	TokenStandardFungibleAsset
	TokenStandardFungible
	TokenStandardNonFungibleEdition
	TokenStandardProgrammableNonFungible
)

const (
	instructionCreate = 42
	instructionMint   = 43
	argsV1            = 0
)

// MetadataPDA derives the metadata account of a mint.
func MetadataPDA(mint solanago.PublicKey) (solanago.PublicKey, error) {
	pda, _, err := solanago.FindProgramAddress(
		[][]byte{[]byte("metadata"), ProgramID[:], mint[:]},
		ProgramID,
	)
	if err != nil {
		return solanago.PublicKey{}, fmt.Errorf("failed to derive metadata PDA: %w", err)
	}
	return pda, nil
}

// Creator is a royalty recipient listed on the metadata.
type Creator struct {
	Address  solanago.PublicKey
	Verified bool
	Share    uint8
}

// AssetData is the metadata stored for a new asset.
type AssetData struct {
	Name                 string
	Symbol               string
	URI                  string
	SellerFeeBasisPoints uint16
	Creators             []Creator
	PrimarySaleHappened  bool
	IsMutable            bool
	TokenStandard        TokenStandard
}

func (d AssetData) MarshalWithEncoder(enc *bin.Encoder) error {
	for _, s := range []string{d.Name, d.Symbol, d.URI} {
		if err := writeString(enc, s); err != nil {
			return err
		}
	}
	if err := enc.WriteUint16(d.SellerFeeBasisPoints, binary.LittleEndian); err != nil {
		return err
	}

	if len(d.Creators) == 0 {
		if err := enc.WriteUint8(0); err != nil {
			return err
		}
	} else {
		if err := enc.WriteUint8(1); err != nil {
			return err
		}
		if err := enc.WriteUint32(uint32(len(d.Creators)), binary.LittleEndian); err != nil {
			return err
		}
		for _, c := range d.Creators {
			if err := enc.WriteBytes(c.Address[:], false); err != nil {
				return err
			}
			if err := enc.WriteBool(c.Verified); err != nil {
				return err
			}
			if err := enc.WriteUint8(c.Share); err != nil {
				return err
			}
		}
	}

	if err := enc.WriteBool(d.PrimarySaleHappened); err != nil {
		return err
	}
	if err := enc.WriteBool(d.IsMutable); err != nil {
		return err
	}
	if err := enc.WriteUint8(uint8(d.TokenStandard)); err != nil {
		return err
	}

	// collection, uses, collection_details, rule_set
	for i := 0; i < 4; i++ {
		if err := enc.WriteUint8(0); err != nil {
			return err
		}
	}
	return nil
}

func writeString(enc *bin.Encoder, s string) error {
	if err := enc.WriteUint32(uint32(len(s)), binary.LittleEndian); err != nil {
		return err
	}
	return enc.WriteBytes([]byte(s), false)
}

func encode(fn func(enc *bin.Encoder) error) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := fn(bin.NewBorshEncoder(buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// optional stands in for an omitted optional account, which the program
// expects as its own ID.
func optional() *solanago.AccountMeta {
	return solanago.Meta(ProgramID)
}
