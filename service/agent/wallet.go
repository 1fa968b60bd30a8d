package agent

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// Wallet is the signer an agent acts as.
type Wallet interface {
	PublicKey() solanago.PublicKey
	// SignTransaction adds this wallet's signature to tx. Any other required
	// signers must be supplied through extra keys.
	SignTransaction(ctx context.Context, tx *solanago.Transaction, extra ...solanago.PrivateKey) error
}

// KeypairWallet signs with a local ed25519 keypair.
type KeypairWallet struct {
	key solanago.PrivateKey
}

// NewKeypairWallet wraps an already decoded private key.
func NewKeypairWallet(key solanago.PrivateKey) *KeypairWallet {
	return &KeypairWallet{key: key}
}

// WalletFromBase58 decodes a base58 secret key.
func WalletFromBase58(secret string) (*KeypairWallet, error) {
	key, err := solanago.PrivateKeyFromBase58(secret)
	if err != nil {
		return nil, fmt.Errorf("invalid base58 private key: %w", err)
	}
	return NewKeypairWallet(key), nil
}

// WalletFromKeygenFile loads a solana-keygen JSON keypair file.
func WalletFromKeygenFile(path string) (*KeypairWallet, error) {
	key, err := solanago.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair from %s: %w", path, err)
	}
	return NewKeypairWallet(key), nil
}

// LoadWallet picks whichever of secret or path is set.
func LoadWallet(secret, path string) (*KeypairWallet, error) {
	switch {
	case secret != "" && path != "":
		return nil, fmt.Errorf("wallet secret and keypair path are mutually exclusive")
	case secret != "":
		return WalletFromBase58(secret)
	case path != "":
		return WalletFromKeygenFile(path)
	default:
		return nil, fmt.Errorf("no wallet configured")
	}
}

func (w *KeypairWallet) PublicKey() solanago.PublicKey {
	return w.key.PublicKey()
}

func (w *KeypairWallet) SignTransaction(ctx context.Context, tx *solanago.Transaction, extra ...solanago.PrivateKey) error {
	keys := make(map[solanago.PublicKey]*solanago.PrivateKey, len(extra)+1)
	keys[w.key.PublicKey()] = &w.key
	for i := range extra {
		keys[extra[i].PublicKey()] = &extra[i]
	}

	// Sign appends, so a transaction that arrived with placeholder signatures
	// would otherwise end up with too many.
	tx.Signatures = nil
	if _, err := tx.Sign(func(key solanago.PublicKey) *solanago.PrivateKey {
		return keys[key]
	}); err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
