package squads

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

var multisigDiscriminator = discriminator("account", "Multisig")

// Member is a multisig member and its permission mask.
type Member struct {
	Key         solanago.PublicKey
	Permissions uint8
}

// Permission bits.
const (
	PermissionInitiate uint8 = 1 << iota
	PermissionVote
	PermissionExecute
)

// Multisig is the on-chain Squads v4 multisig account.
type Multisig struct {
	CreateKey             solanago.PublicKey
	ConfigAuthority       solanago.PublicKey
	Threshold             uint16
	TimeLock              uint32
	TransactionIndex      uint64
	StaleTransactionIndex uint64
	RentCollector         *solanago.PublicKey
	Bump                  uint8
	Members               []Member
}

// NextTransactionIndex is the index the next vault transaction must use.
func (m *Multisig) NextTransactionIndex() uint64 {
	return m.TransactionIndex + 1
}

// DecodeMultisig decodes a multisig account including its discriminator.
func DecodeMultisig(data []byte) (*Multisig, error) {
	var m Multisig
	if err := bin.NewBorshDecoder(data).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode multisig account: %w", err)
	}
	return &m, nil
}

func (m *Multisig) UnmarshalWithDecoder(dec *bin.Decoder) error {
	disc, err := dec.ReadNBytes(8)
	if err != nil {
		return err
	}
	if !bytes.Equal(disc, multisigDiscriminator[:]) {
		return fmt.Errorf("not a multisig account")
	}

	if m.CreateKey, err = readPublicKey(dec); err != nil {
		return err
	}
	if m.ConfigAuthority, err = readPublicKey(dec); err != nil {
		return err
	}
	if m.Threshold, err = dec.ReadUint16(binary.LittleEndian); err != nil {
		return err
	}
	if m.TimeLock, err = dec.ReadUint32(binary.LittleEndian); err != nil {
		return err
	}
	if m.TransactionIndex, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}
	if m.StaleTransactionIndex, err = dec.ReadUint64(binary.LittleEndian); err != nil {
		return err
	}

	hasCollector, err := dec.ReadUint8()
	if err != nil {
		return err
	}
	if hasCollector == 1 {
		pk, err := readPublicKey(dec)
		if err != nil {
			return err
		}
		m.RentCollector = &pk
	}

	if m.Bump, err = dec.ReadUint8(); err != nil {
		return err
	}

	count, err := dec.ReadUint32(binary.LittleEndian)
	if err != nil {
		return err
	}
	m.Members = make([]Member, 0, count)
	for i := uint32(0); i < count; i++ {
		key, err := readPublicKey(dec)
		if err != nil {
			return err
		}
		perms, err := dec.ReadUint8()
		if err != nil {
			return err
		}
		m.Members = append(m.Members, Member{Key: key, Permissions: perms})
	}
	return nil
}

func (m Multisig) MarshalWithEncoder(enc *bin.Encoder) error {
	if err := enc.WriteBytes(multisigDiscriminator[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(m.CreateKey[:], false); err != nil {
		return err
	}
	if err := enc.WriteBytes(m.ConfigAuthority[:], false); err != nil {
		return err
	}
	if err := enc.WriteUint16(m.Threshold, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint32(m.TimeLock, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.TransactionIndex, binary.LittleEndian); err != nil {
		return err
	}
	if err := enc.WriteUint64(m.StaleTransactionIndex, binary.LittleEndian); err != nil {
		return err
	}
	if m.RentCollector == nil {
		if err := enc.WriteUint8(0); err != nil {
			return err
		}
	} else {
		if err := enc.WriteUint8(1); err != nil {
			return err
		}
		if err := enc.WriteBytes(m.RentCollector[:], false); err != nil {
			return err
		}
	}
	if err := enc.WriteUint8(m.Bump); err != nil {
		return err
	}
	if err := enc.WriteUint32(uint32(len(m.Members)), binary.LittleEndian); err != nil {
		return err
	}
	for _, member := range m.Members {
		if err := enc.WriteBytes(member.Key[:], false); err != nil {
			return err
		}
		if err := enc.WriteUint8(member.Permissions); err != nil {
			return err
		}
	}
	return nil
}

// EncodeMultisig serializes an account the way the program stores it.
func EncodeMultisig(m *Multisig) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := bin.NewBorshEncoder(buf).Encode(m); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func readPublicKey(dec *bin.Decoder) (solanago.PublicKey, error) {
	raw, err := dec.ReadNBytes(solanago.PublicKeyLength)
	if err != nil {
		return solanago.PublicKey{}, err
	}
	return solanago.PublicKeyFromBytes(raw), nil
}
