package protocol

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/yimingwow/hyperroute/pkg"
	"github.com/yimingwow/hyperroute/pkg/pool/hyperplane"
	"go.uber.org/zap"
)

const (
	DefaultFetchRetries  = 3
	defaultRetryInterval = 200 * time.Millisecond
)

// SolClient is the part of sol.Client the protocol needs.
type SolClient interface {
	GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
	GetProgramAccountsWithOpts(ctx context.Context, programID solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error)
	FetchAccounts(ctx context.Context, keys []solana.PublicKey) (pkg.AccountMap, error)
}

// HyperplaneProtocol discovers Hyperplane pools and keeps their adapters
// fed with fresh account data.
type HyperplaneProtocol struct {
	SolClient     SolClient
	Options       hyperplane.Options
	FetchRetries  uint
	RetryInterval time.Duration
	logger        *zap.Logger
}

// NewHyperplane creates a new instance of HyperplaneProtocol
func NewHyperplane(solClient SolClient, opts hyperplane.Options, logger *zap.Logger) *HyperplaneProtocol {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Logger == nil {
		opts.Logger = logger
	}
	if opts.ProgramID.IsZero() {
		opts.ProgramID = hyperplane.HyperplaneProgramID
	}
	return &HyperplaneProtocol{
		SolClient:     solClient,
		Options:       opts,
		FetchRetries:  DefaultFetchRetries,
		RetryInterval: defaultRetryInterval,
		logger:        logger.Named("protocol.hyperplane"),
	}
}

func (p *HyperplaneProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolNameHyperplane
}

// FetchPoolsByPair retrieves the pools trading baseMint against quoteMint in
// either token order.
func (p *HyperplaneProtocol) FetchPoolsByPair(ctx context.Context, baseMint, quoteMint solana.PublicKey) ([]pkg.Amm, error) {
	var pools []pkg.Amm
	for _, pair := range [][2]solana.PublicKey{{baseMint, quoteMint}, {quoteMint, baseMint}} {
		accounts, err := p.getPoolAccountsByTokenPair(ctx, pair[0], pair[1])
		if err != nil {
			return nil, err
		}
		for _, account := range accounts {
			adapter, err := hyperplane.NewAdapter(account.Pubkey, account.Account.Data.GetBinary(), p.Options)
			if err != nil {
				p.logger.Debug("skipping undecodable pool", zap.Stringer("pool", account.Pubkey), zap.Error(err))
				continue
			}
			pools = append(pools, adapter)
		}
	}
	return pools, nil
}

func (p *HyperplaneProtocol) getPoolAccountsByTokenPair(ctx context.Context, tokenAMint, tokenBMint solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	var layout hyperplane.SwapPool
	filters := []rpc.RPCFilter{
		{
			DataSize: layout.Span(),
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: 0,
				Bytes:  hyperplane.SwapPoolDiscriminator[:],
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: layout.Offset("TokenAMint"),
				Bytes:  tokenAMint.Bytes(),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: layout.Offset("TokenBMint"),
				Bytes:  tokenBMint.Bytes(),
			},
		},
	}

	result, err := p.SolClient.GetProgramAccountsWithOpts(ctx, p.Options.ProgramID, &rpc.GetProgramAccountsOpts{
		Filters: filters,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get pools for %s/%s: %w", tokenAMint, tokenBMint, err)
	}
	return result, nil
}

// FetchPoolByID retrieves a pool by its address.
func (p *HyperplaneProtocol) FetchPoolByID(ctx context.Context, poolID solana.PublicKey) (pkg.Amm, error) {
	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolID)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolID, err)
	}
	if account == nil || account.Value == nil {
		return nil, fmt.Errorf("pool account %s not found", poolID)
	}
	if owner := account.Value.Owner; !owner.Equals(p.Options.ProgramID) {
		return nil, fmt.Errorf("pool account %s is owned by %s, not %s", poolID, owner, p.Options.ProgramID)
	}

	adapter, err := hyperplane.NewAdapter(poolID, account.Value.Data.GetBinary(), p.Options)
	if err != nil {
		return nil, fmt.Errorf("failed to decode pool data for %s: %w", poolID, err)
	}
	return adapter, nil
}

// Refresh fetches every account the adapter tracks and feeds it to Update.
// Fetch failures and missing accounts are retried with exponential backoff;
// malformed account data is not.
func (p *HyperplaneProtocol) Refresh(ctx context.Context, amm pkg.Amm) error {
	keys := amm.GetAccountsToTrack()

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = p.RetryInterval
	policy.MaxInterval = p.RetryInterval * 10

	notify := func(err error, d time.Duration) {
		p.logger.Info("retrying pool refresh",
			zap.Stringer("pool", amm.Key()),
			zap.Duration("backoff", d),
			zap.Error(err))
	}

	operation := func() (struct{}, error) {
		accounts, err := p.SolClient.FetchAccounts(ctx, keys)
		if err != nil {
			return struct{}{}, err
		}
		if err := amm.Update(accounts); err != nil {
			if errors.Is(err, hyperplane.ErrMissingAccounts) {
				return struct{}{}, err
			}
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, nil
	}

	tries := p.FetchRetries
	if tries == 0 {
		tries = 1
	}
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(tries),
		backoff.WithNotify(notify))
	if err != nil {
		return fmt.Errorf("failed to refresh pool %s: %w", amm.Key(), err)
	}
	return nil
}
