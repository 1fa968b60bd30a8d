package squads

import (
	"encoding/binary"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscriminators(t *testing.T) {
	assert.Equal(t, [8]byte{224, 116, 121, 186, 68, 161, 79, 236}, multisigDiscriminator)
	assert.Equal(t, [8]byte{48, 250, 78, 168, 208, 226, 218, 211}, vaultTransactionCreateDiscriminator)
}

func TestPDAs(t *testing.T) {
	createKey := solanago.NewWallet().PublicKey()

	ms, _, err := MultisigPDA(createKey)
	require.NoError(t, err)
	again, _, err := MultisigPDA(createKey)
	require.NoError(t, err)
	assert.Equal(t, ms, again, "derivation is deterministic")

	vault0, _, err := VaultPDA(ms, 0)
	require.NoError(t, err)
	vault1, _, err := VaultPDA(ms, 1)
	require.NoError(t, err)
	assert.NotEqual(t, vault0, vault1)

	tx1, _, err := TransactionPDA(ms, 1)
	require.NoError(t, err)
	tx2, _, err := TransactionPDA(ms, 2)
	require.NoError(t, err)
	assert.NotEqual(t, tx1, tx2)
}

func TestMultisigLayout(t *testing.T) {
	collector := solanago.NewWallet().PublicKey()
	member := solanago.NewWallet().PublicKey()
	in := &Multisig{
		CreateKey:             solanago.NewWallet().PublicKey(),
		Threshold:             2,
		TimeLock:              0,
		TransactionIndex:      41,
		StaleTransactionIndex: 3,
		RentCollector:         &collector,
		Bump:                  254,
		Members: []Member{
			{Key: member, Permissions: PermissionInitiate | PermissionVote | PermissionExecute},
		},
	}

	data, err := EncodeMultisig(in)
	require.NoError(t, err)
	// transaction_index sits after discriminator, two keys, threshold and time lock.
	assert.Equal(t, uint64(41), binary.LittleEndian.Uint64(data[78:86]))

	out, err := DecodeMultisig(data)
	require.NoError(t, err)
	assert.Equal(t, in.CreateKey, out.CreateKey)
	assert.Equal(t, uint64(41), out.TransactionIndex)
	assert.Equal(t, uint64(42), out.NextTransactionIndex())
	require.NotNil(t, out.RentCollector)
	assert.Equal(t, collector, *out.RentCollector)
	require.Len(t, out.Members, 1)
	assert.Equal(t, uint8(7), out.Members[0].Permissions)
}

func TestDecodeMultisig_WrongDiscriminator(t *testing.T) {
	data, err := EncodeMultisig(&Multisig{})
	require.NoError(t, err)
	data[0] ^= 0xff

	_, err = DecodeMultisig(data)
	require.Error(t, err)
}

func TestCompileVaultMessage(t *testing.T) {
	vault := solanago.NewWallet().PublicKey()
	recipient := solanago.NewWallet().PublicKey()

	msg, err := CompileVaultMessage(vault, []solanago.Instruction{
		system.NewTransferInstruction(1_000_000_000, vault, recipient).Build(),
	})
	require.NoError(t, err)

	assert.Equal(t, uint8(1), msg.NumSigners)
	assert.Equal(t, uint8(1), msg.NumWritableSigners)
	assert.Equal(t, uint8(1), msg.NumWritableNonSigners)
	require.Len(t, msg.AccountKeys, 3)
	assert.Equal(t, vault, msg.AccountKeys[0])
	assert.Equal(t, recipient, msg.AccountKeys[1])
	assert.Equal(t, solanago.SystemProgramID, msg.AccountKeys[2])

	require.Len(t, msg.Instructions, 1)
	ix := msg.Instructions[0]
	assert.Equal(t, uint8(2), ix.ProgramIDIndex)
	assert.Equal(t, []uint8{0, 1}, ix.AccountIndexes)
	assert.Equal(t, uint64(1_000_000_000), binary.LittleEndian.Uint64(ix.Data[4:12]))

	raw, err := msg.Bytes()
	require.NoError(t, err)
	// header(3) + keys(1+96) + ixs(1 + 1 + 1+2 + 2+12) + lookups(1)
	assert.Len(t, raw, 3+1+96+1+1+1+2+2+12+1)

	decoded, err := DecodeVaultMessage(raw)
	require.NoError(t, err)
	assert.Equal(t, msg.AccountKeys, decoded.AccountKeys)
	assert.Equal(t, msg.Instructions, decoded.Instructions)
}

func TestNewVaultTransactionCreateInstruction(t *testing.T) {
	creator := solanago.NewWallet().PublicKey()
	ms, _, err := MultisigPDA(creator)
	require.NoError(t, err)
	vault, _, err := VaultPDA(ms, 3)
	require.NoError(t, err)
	txPda, _, err := TransactionPDA(ms, 5)
	require.NoError(t, err)

	msg, err := CompileVaultMessage(vault, []solanago.Instruction{
		system.NewTransferInstruction(10, vault, solanago.NewWallet().PublicKey()).Build(),
	})
	require.NoError(t, err)
	msgBytes, err := msg.Bytes()
	require.NoError(t, err)

	ix, err := NewVaultTransactionCreateInstruction(
		VaultTransactionCreateAccounts{
			Multisig:    ms,
			Transaction: txPda,
			Creator:     creator,
			RentPayer:   creator,
		},
		VaultTransactionCreateArgs{VaultIndex: 3, Message: msg},
	)
	require.NoError(t, err)

	assert.Equal(t, ProgramID, ix.ProgramID())

	accounts := ix.Accounts()
	require.Len(t, accounts, 5)
	assert.Equal(t, ms, accounts[0].PublicKey)
	assert.True(t, accounts[0].IsWritable)
	assert.Equal(t, txPda, accounts[1].PublicKey)
	assert.True(t, accounts[2].IsSigner)
	assert.True(t, accounts[3].IsSigner)
	assert.True(t, accounts[3].IsWritable)
	assert.Equal(t, solanago.SystemProgramID, accounts[4].PublicKey)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, vaultTransactionCreateDiscriminator[:], data[:8])
	assert.Equal(t, uint8(3), data[8], "vault index")
	assert.Equal(t, uint8(0), data[9], "ephemeral signers")
	assert.Equal(t, uint32(len(msgBytes)), binary.LittleEndian.Uint32(data[10:14]))
	assert.Equal(t, msgBytes, data[14:14+len(msgBytes)])
	assert.Equal(t, uint8(0), data[len(data)-1], "no memo")
}

func TestNewVaultTransactionCreateInstruction_Memo(t *testing.T) {
	memo := "payroll"
	ix, err := NewVaultTransactionCreateInstruction(
		VaultTransactionCreateAccounts{},
		VaultTransactionCreateArgs{Message: &VaultMessage{}, Memo: &memo},
	)
	require.NoError(t, err)

	data, err := ix.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte(memo), data[len(data)-len(memo):])
}

func TestNewVaultTransactionCreateInstruction_NoMessage(t *testing.T) {
	_, err := NewVaultTransactionCreateInstruction(VaultTransactionCreateAccounts{}, VaultTransactionCreateArgs{})
	assert.Error(t, err)
}
