package sol

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"go.uber.org/zap"
)

type JitoClient struct {
	rpcClient  *jitorpc.JitoJsonRpcClient
	tipAccount solana.PublicKey
}

// Jito endpoint refer to: https://docs.jito.wtf/lowlatencytxnsend/
func NewJitoClient(ctx context.Context, endpoint string) (*JitoClient, error) {
	rpcClient := jitorpc.NewJitoJsonRpcClient(endpoint, "")
	tipAccount, err := rpcClient.GetRandomTipAccount()
	if err != nil {
		return nil, fmt.Errorf("failed to get random tip account: %w", err)
	}
	tipAccountPublicKey, err := solana.PublicKeyFromBase58(tipAccount.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to parse tip account: %w", err)
	}
	return &JitoClient{
		rpcClient:  rpcClient,
		tipAccount: tipAccountPublicKey,
	}, nil
}

func createTipTransaction(privateKey solana.PrivateKey, amount uint64, recentBlockhash solana.Hash, tipAccount solana.PublicKey) (*solana.Transaction, error) {
	tx, err := solana.NewTransaction(
		[]solana.Instruction{
			system.NewTransferInstruction(
				amount,
				privateKey.PublicKey(),
				tipAccount,
			).Build(),
		},
		recentBlockhash,
		solana.TransactionPayer(privateKey.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tip transaction: %w", err)
	}

	if err := signTx(tx, privateKey); err != nil {
		return nil, fmt.Errorf("tip transaction: %w", err)
	}

	return tx, nil
}

func encodeTransaction(tx *solana.Transaction) (string, error) {
	serializedTx, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(serializedTx), nil
}

// BundleStatus is the last confirmation status seen for a bundle.
type BundleStatus struct {
	ConfirmationStatus string
	// Slot keeps the signed type jito-go-rpc reports.
	Slot         int64
	Transactions []string
	Failed       bool
}

// WaitForBundle polls the bundle status until it reaches a final state or
// maxAttempts polls have been made. It stops early when ctx is done.
func (c *JitoClient) WaitForBundle(ctx context.Context, logger *zap.Logger, bundleID string, maxAttempts int, pollInterval time.Duration) (*BundleStatus, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	var last *BundleStatus
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}

		statusResponse, err := c.rpcClient.GetBundleStatuses([]string{bundleID})
		if err != nil {
			logger.Warn("failed to get bundle status", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}
		if len(statusResponse.Value) == 0 {
			logger.Debug("no bundle status available", zap.Int("attempt", attempt))
			continue
		}

		bundleStatus := statusResponse.Value[0]
		last = &BundleStatus{
			ConfirmationStatus: bundleStatus.ConfirmationStatus,
			Slot:               bundleStatus.Slot,
			Transactions:       bundleStatus.Transactions,
			Failed:             bundleStatus.Err.Ok != nil,
		}
		logger.Debug("bundle status",
			zap.Int("attempt", attempt),
			zap.String("status", bundleStatus.ConfirmationStatus))

		switch bundleStatus.ConfirmationStatus {
		case "processed", "confirmed":
			continue
		case "finalized":
			if last.Failed {
				return last, fmt.Errorf("bundle %s failed: %v", bundleID, bundleStatus.Err.Ok)
			}
			return last, nil
		default:
			return last, fmt.Errorf("unexpected bundle status %q", bundleStatus.ConfirmationStatus)
		}
	}
	return last, fmt.Errorf("bundle %s not finalized after %d attempts", bundleID, maxAttempts)
}
