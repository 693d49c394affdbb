package sol

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

var ErrNoSigners = errors.New("at least one signer is required")

// SignTransaction wraps instrs in a transaction against the latest finalized
// blockhash. The first signer pays; every key the message marks as a signer
// must be in signers.
func (c *Client) SignTransaction(ctx context.Context, signers []solana.PrivateKey, instrs ...solana.Instruction) (*solana.Transaction, error) {
	if len(signers) == 0 {
		return nil, ErrNoSigners
	}

	res, err := c.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, fmt.Errorf("failed to get blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(instrs, res.Value.Blockhash, solana.TransactionPayer(signers[0].PublicKey()))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}
	if err := signTx(tx, signers...); err != nil {
		return nil, err
	}

	c.logger.Debug("signed transaction",
		zap.Stringer("signature", tx.Signatures[0]),
		zap.Int("instructions", len(instrs)),
		zap.Stringer("blockhash", res.Value.Blockhash))
	return tx, nil
}

func signTx(tx *solana.Transaction, signers ...solana.PrivateKey) error {
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		for i := range signers {
			if signers[i].PublicKey().Equals(key) {
				return &signers[i]
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}
	return nil
}
