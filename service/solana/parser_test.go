package solana

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTransfer_System(t *testing.T) {
	from := solana.NewWallet().PublicKey()
	to := solana.NewWallet().PublicKey()

	ix := system.NewTransferInstruction(2_500_000_000, from, to).Build()

	transfer, err := DecodeTransfer(ix)
	require.NoError(t, err)
	assert.Equal(t, "system", transfer.Program)
	assert.Equal(t, uint64(2_500_000_000), transfer.Amount)
	assert.Equal(t, from, transfer.Source)
	assert.Equal(t, to, transfer.Destination)
	assert.Equal(t, from, transfer.Authority)
}

func TestDecodeTransfer_Token(t *testing.T) {
	src := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	ix := token.NewTransferInstruction(42, src, dst, owner, nil).Build()

	transfer, err := DecodeTransfer(ix)
	require.NoError(t, err)
	assert.Equal(t, "token", transfer.Program)
	assert.Equal(t, uint64(42), transfer.Amount)
	assert.Equal(t, src, transfer.Source)
	assert.Equal(t, dst, transfer.Destination)
	assert.Equal(t, owner, transfer.Authority)
}

func TestDecodeTransfer_TokenChecked(t *testing.T) {
	src := solana.NewWallet().PublicKey()
	mint := solana.NewWallet().PublicKey()
	dst := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	ix := token.NewTransferCheckedInstruction(7, 6, src, mint, dst, owner, nil).Build()

	transfer, err := DecodeTransfer(ix)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), transfer.Amount)
	assert.Equal(t, dst, transfer.Destination)
	assert.Equal(t, owner, transfer.Authority)
}

func TestDecodeTransfer_UnsupportedProgram(t *testing.T) {
	ix := solana.NewInstruction(solana.NewWallet().PublicKey(), nil, []byte{1})

	_, err := DecodeTransfer(ix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported program")
}

func TestDecodeTransfer_ShortData(t *testing.T) {
	ix := solana.NewInstruction(SystemProgramID, solana.AccountMetaSlice{}, []byte{2, 0, 0, 0})

	_, err := DecodeTransfer(ix)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too short")
}
