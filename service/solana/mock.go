package solana

import (
	"context"
	"encoding/binary"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// MockRPC is an in-memory RPCClient for tests.
// It serves accounts from a map and records every transaction it is asked to send.
type MockRPC struct {
	mu sync.Mutex

	Blockhash solana.Hash
	Accounts  map[solana.PublicKey][]byte

	// Err, when set, is returned from every call.
	Err error
	// SendErr, when set, is returned from SendTransactionWithOpts only.
	SendErr error

	Sent []*solana.Transaction
}

// NewMockRPC returns a MockRPC with a random blockhash and no accounts.
func NewMockRPC() *MockRPC {
	return &MockRPC{
		Blockhash: solana.Hash(solana.NewWallet().PublicKey()),
		Accounts:  make(map[solana.PublicKey][]byte),
	}
}

// SetAccount stores raw account data.
func (m *MockRPC) SetAccount(pk solana.PublicKey, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Accounts[pk] = data
}

// SetMint stores an initialized SPL mint account with the given decimals.
func (m *MockRPC) SetMint(mint, authority solana.PublicKey, decimals uint8) {
	m.SetAccount(mint, EncodeMint(authority, 0, decimals))
}

// SentTransactions returns a copy of the transactions sent so far.
func (m *MockRPC) SentTransactions() []*solana.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*solana.Transaction, len(m.Sent))
	copy(out, m.Sent)
	return out
}

func (m *MockRPC) GetLatestBlockhash(
	ctx context.Context,
	commitment rpc.CommitmentType,
) (*rpc.GetLatestBlockhashResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            m.Blockhash,
			LastValidBlockHeight: 1000,
		},
	}, nil
}

func (m *MockRPC) GetAccountInfo(
	ctx context.Context,
	account solana.PublicKey,
) (*rpc.GetAccountInfoResult, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	data, ok := m.Accounts[account]
	m.mu.Unlock()
	if !ok {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{
		Value: &rpc.Account{
			Lamports: LamportsPerSOL,
			Data:     rpc.DataBytesOrJSONFromBytes(data),
		},
	}, nil
}

func (m *MockRPC) SendTransactionWithOpts(
	ctx context.Context,
	tx *solana.Transaction,
	opts rpc.TransactionOpts,
) (solana.Signature, error) {
	if m.Err != nil {
		return solana.Signature{}, m.Err
	}
	if m.SendErr != nil {
		return solana.Signature{}, m.SendErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, tx)
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, nil
	}
	return tx.Signatures[0], nil
}

// EncodeMint builds the 82 byte SPL mint layout.
func EncodeMint(authority solana.PublicKey, supply uint64, decimals uint8) []byte {
	data := make([]byte, MintAccountSize)
	// mint_authority: COption<Pubkey>
	binary.LittleEndian.PutUint32(data[0:4], 1)
	copy(data[4:36], authority[:])
	binary.LittleEndian.PutUint64(data[36:44], supply)
	data[44] = decimals
	data[45] = 1 // is_initialized
	// freeze_authority: COption<Pubkey>
	binary.LittleEndian.PutUint32(data[46:50], 1)
	copy(data[50:82], authority[:])
	return data
}
