package agent

import (
	"context"
	"fmt"

	solanago "github.com/gagliardetto/solana-go"
)

// TxResult is what a tool produces once its transaction is built.
// When Sent is false the caller owns the signed Transaction.
type TxResult struct {
	Signature   solanago.Signature
	Transaction *solanago.Transaction
	Sent        bool
}

// Base64 encodes the signed transaction for transport.
func (r *TxResult) Base64() (string, error) {
	if r.Transaction == nil {
		return "", fmt.Errorf("no transaction")
	}
	return r.Transaction.ToBase64()
}

// SignOrSend signs tx with the agent wallet plus any extra signers. In
// sign-only mode the signed transaction is returned, otherwise it is sent.
func SignOrSend(ctx context.Context, a *Agent, tx *solanago.Transaction, extraSigners ...solanago.PrivateKey) (*TxResult, error) {
	if err := a.Wallet.SignTransaction(ctx, tx, extraSigners...); err != nil {
		return nil, err
	}

	res := &TxResult{Transaction: tx}
	if len(tx.Signatures) > 0 {
		res.Signature = tx.Signatures[0]
	}

	if a.Config.SignOnly {
		a.logger.DebugContext(ctx, "returning signed transaction", "signature", res.Signature.String())
		if a.metrics != nil {
			a.metrics.RecordTransaction("sign_only")
		}
		return res, nil
	}

	sig, err := a.Connection.SendTransaction(ctx, tx)
	if err != nil {
		return nil, err
	}
	res.Signature = sig
	res.Sent = true
	if a.metrics != nil {
		a.metrics.RecordTransaction("sent")
	}
	return res, nil
}
