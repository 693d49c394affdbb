package sol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/yimingwow/hyperroute/pkg"
	"go.uber.org/zap"
)

// MaxMultipleAccounts is the getMultipleAccounts per-request limit.
const MaxMultipleAccounts = 100

// FetchAccounts loads the raw data of keys in batches. Accounts that do not
// exist are left out of the result rather than reported as errors.
func (c *Client) FetchAccounts(ctx context.Context, keys []solana.PublicKey) (pkg.AccountMap, error) {
	out := make(pkg.AccountMap, len(keys))
	for _, batch := range chunkKeys(keys, MaxMultipleAccounts) {
		resp, err := c.GetMultipleAccountsWithOpts(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to get multiple accounts: %w", err)
		}
		if len(resp.Value) != len(batch) {
			return nil, fmt.Errorf("rpc returned %d accounts for %d keys", len(resp.Value), len(batch))
		}
		for i, acc := range resp.Value {
			if acc == nil || acc.Data == nil {
				c.logger.Debug("account not found", zap.Stringer("account", batch[i]))
				continue
			}
			out[batch[i]] = acc.Data.GetBinary()
		}
	}
	return out, nil
}

func chunkKeys(keys []solana.PublicKey, size int) [][]solana.PublicKey {
	var chunks [][]solana.PublicKey
	for len(keys) > size {
		chunks = append(chunks, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		chunks = append(chunks, keys)
	}
	return chunks
}
