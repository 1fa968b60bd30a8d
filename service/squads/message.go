package squads

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

// VaultMessage is the compact transaction message a vault transaction stores.
// Lengths are single bytes except instruction data, which uses a u16.
type VaultMessage struct {
	NumSigners            uint8
	NumWritableSigners    uint8
	NumWritableNonSigners uint8
	AccountKeys           []solanago.PublicKey
	Instructions          []VaultInstruction
}

// VaultInstruction is a compiled instruction inside a VaultMessage.
type VaultInstruction struct {
	ProgramIDIndex uint8
	AccountIndexes []uint8
	Data           []byte
}

// CompileVaultMessage compiles instructions with the vault as payer.
// The blockhash is irrelevant to Squads and is left zero.
func CompileVaultMessage(vault solanago.PublicKey, instructions []solanago.Instruction) (*VaultMessage, error) {
	tx, err := solanago.NewTransaction(instructions, solanago.Hash{}, solanago.TransactionPayer(vault))
	if err != nil {
		return nil, fmt.Errorf("failed to compile vault message: %w", err)
	}
	msg := tx.Message
	if len(msg.AccountKeys) > math.MaxUint8 {
		return nil, fmt.Errorf("too many accounts for vault message: %d", len(msg.AccountKeys))
	}

	header := msg.Header
	out := &VaultMessage{
		NumSigners:            header.NumRequiredSignatures,
		NumWritableSigners:    header.NumRequiredSignatures - header.NumReadonlySignedAccounts,
		NumWritableNonSigners: uint8(len(msg.AccountKeys)) - header.NumRequiredSignatures - header.NumReadonlyUnsignedAccounts,
		AccountKeys:           msg.AccountKeys,
	}

	for _, ci := range msg.Instructions {
		if len(ci.Data) > math.MaxUint16 {
			return nil, fmt.Errorf("instruction data too long: %d bytes", len(ci.Data))
		}
		idx := make([]uint8, len(ci.Accounts))
		for i, a := range ci.Accounts {
			idx[i] = uint8(a)
		}
		out.Instructions = append(out.Instructions, VaultInstruction{
			ProgramIDIndex: uint8(ci.ProgramIDIndex),
			AccountIndexes: idx,
			Data:           []byte(ci.Data),
		})
	}
	return out, nil
}

func (m VaultMessage) MarshalWithEncoder(enc *bin.Encoder) error {
	for _, b := range []uint8{m.NumSigners, m.NumWritableSigners, m.NumWritableNonSigners, uint8(len(m.AccountKeys))} {
		if err := enc.WriteUint8(b); err != nil {
			return err
		}
	}
	for _, key := range m.AccountKeys {
		if err := enc.WriteBytes(key[:], false); err != nil {
			return err
		}
	}

	if err := enc.WriteUint8(uint8(len(m.Instructions))); err != nil {
		return err
	}
	for _, ix := range m.Instructions {
		if err := enc.WriteUint8(ix.ProgramIDIndex); err != nil {
			return err
		}
		if err := enc.WriteUint8(uint8(len(ix.AccountIndexes))); err != nil {
			return err
		}
		if err := enc.WriteBytes(ix.AccountIndexes, false); err != nil {
			return err
		}
		if err := enc.WriteUint16(uint16(len(ix.Data)), binary.LittleEndian); err != nil {
			return err
		}
		if err := enc.WriteBytes(ix.Data, false); err != nil {
			return err
		}
	}

	// address_table_lookups: always empty
	return enc.WriteUint8(0)
}

func (m *VaultMessage) UnmarshalWithDecoder(dec *bin.Decoder) error {
	var err error
	if m.NumSigners, err = dec.ReadUint8(); err != nil {
		return err
	}
	if m.NumWritableSigners, err = dec.ReadUint8(); err != nil {
		return err
	}
	if m.NumWritableNonSigners, err = dec.ReadUint8(); err != nil {
		return err
	}

	numKeys, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	m.AccountKeys = make([]solanago.PublicKey, numKeys)
	for i := range m.AccountKeys {
		if m.AccountKeys[i], err = readPublicKey(dec); err != nil {
			return err
		}
	}

	numIxs, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	m.Instructions = make([]VaultInstruction, numIxs)
	for i := range m.Instructions {
		ix := &m.Instructions[i]
		if ix.ProgramIDIndex, err = dec.ReadUint8(); err != nil {
			return err
		}
		n, err := dec.ReadUint8()
		if err != nil {
			return err
		}
		if ix.AccountIndexes, err = dec.ReadNBytes(int(n)); err != nil {
			return err
		}
		dataLen, err := dec.ReadUint16(binary.LittleEndian)
		if err != nil {
			return err
		}
		if ix.Data, err = dec.ReadNBytes(int(dataLen)); err != nil {
			return err
		}
	}

	lookups, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	if lookups != 0 {
		return fmt.Errorf("address table lookups are not supported")
	}
	return nil
}

// Bytes serializes the message for the vault_transaction_create argument.
func (m *VaultMessage) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeVaultMessage parses a serialized vault message.
func DecodeVaultMessage(data []byte) (*VaultMessage, error) {
	var m VaultMessage
	if err := bin.NewBorshDecoder(data).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode vault message: %w", err)
	}
	return &m, nil
}
