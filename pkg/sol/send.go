package sol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

var ErrJitoDisabled = errors.New("jito client is not configured")

const (
	bundlePollAttempts = 5
	bundlePollInterval = 5 * time.Second
)

func (c *Client) SendTx(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.SendTransactionWithOpts(
		ctx, tx,
		rpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: rpc.CommitmentProcessed,
		},
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	c.logger.Info("transaction sent", zap.Stringer("signature", sig))
	return sig, nil
}

// SendTxWithJito submits mainTx together with a tip transfer paid by the
// first signer as one bundle, then waits for it to finalize.
func (c *Client) SendTxWithJito(ctx context.Context, jitoTipAmount uint64, signers []solana.PrivateKey, mainTx *solana.Transaction) (string, error) {
	if c.jitoClient == nil {
		return "", ErrJitoDisabled
	}
	if len(signers) == 0 {
		return "", errors.New("at least one signer is required")
	}

	res, err := c.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return "", fmt.Errorf("failed to get blockhash: %w", err)
	}

	tipTx, err := createTipTransaction(signers[0], jitoTipAmount, res.Value.Blockhash, c.jitoClient.tipAccount)
	if err != nil {
		return "", err
	}

	encodedMain, err := encodeTransaction(mainTx)
	if err != nil {
		return "", err
	}
	encodedTip, err := encodeTransaction(tipTx)
	if err != nil {
		return "", err
	}

	bundleIDRaw, err := c.jitoClient.rpcClient.SendBundle([][]string{{encodedMain, encodedTip}})
	if err != nil {
		return "", fmt.Errorf("failed to send bundle: %w", err)
	}
	var bundleID string
	if err := json.Unmarshal(bundleIDRaw, &bundleID); err != nil {
		return "", fmt.Errorf("failed to unmarshal bundle ID: %w", err)
	}
	c.logger.Info("bundle sent", zap.String("bundle_id", bundleID))

	status, err := c.jitoClient.WaitForBundle(ctx, c.logger, bundleID, bundlePollAttempts, bundlePollInterval)
	if err != nil {
		return bundleID, err
	}
	c.logger.Info("bundle finalized",
		zap.String("bundle_id", bundleID),
		zap.Int64("slot", status.Slot),
		zap.Strings("transactions", status.Transactions))
	return bundleID, nil
}
